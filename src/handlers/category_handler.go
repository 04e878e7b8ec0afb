package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	db "famfin-server/src/db/sql"
	"famfin-server/src/logger"
	"famfin-server/src/util"

	"github.com/jackc/pgx/v5/pgxpool"
)

func CreateCategory(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !util.ValidateName(req.Name) {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		created, err := db.CreateCategory(r.Context(), pool, famID, strings.TrimSpace(req.Name))
		if err != nil {
			log.Error().Err(err).Str("name", req.Name).Msg("Failed to create category")
			http.Error(w, "failed to create category", http.StatusInternalServerError)
			return
		}
		log.Info().Str("category_id", created.ID.String()).Msg("Created category")
		writeJSON(w, http.StatusCreated, created)
	}
}

func GetCategories(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		categories, err := db.ListCategories(r.Context(), pool, famID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list categories")
			http.Error(w, "failed to get categories", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	}
}
