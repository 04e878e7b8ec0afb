package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"famfin-server/src/middleware"
	"famfin-server/src/models"
	"famfin-server/src/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ReportInvalidator drops cached analytics of a family whose ledger, goals or
// categories changed.
type ReportInvalidator interface {
	InvalidateFamily(familyID uuid.UUID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func familyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.FamilyIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		providerErr *pipeline.ProviderAPIError
		storageErr  *pipeline.StorageError
	)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.As(err, &storageErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
