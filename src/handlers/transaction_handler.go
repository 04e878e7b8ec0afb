package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	db "famfin-server/src/db/sql"
	"famfin-server/src/logger"
	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dateLayout = "2006-01-02"

// parseTransactionFilter reads account_id, category_id, status, direction,
// from and to query parameters.
func parseTransactionFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	var f models.TransactionFilter

	if v := q.Get("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid account_id")
		}
		f.AccountID = &id
	}
	if v := q.Get("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid category_id")
		}
		f.CategoryID = &id
	}
	if v := q.Get("status"); v != "" {
		f.Status = models.Status(v)
		if !f.Status.Valid() {
			return f, errors.New("invalid status")
		}
	}
	if v := q.Get("direction"); v != "" {
		f.Direction = models.Direction(v)
		if !f.Direction.Valid() {
			return f, errors.New("invalid direction")
		}
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		if v := q.Get(p.key); v != "" {
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				return f, errors.New("invalid " + p.key + " date")
			}
			*p.dst = t
		}
	}
	return f, nil
}

func GetTransactions(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		filter, err := parseTransactionFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		transactions, err := db.ListTransactions(r.Context(), pool, famID, filter)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list transactions")
			http.Error(w, "failed to get transactions", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, transactions)
	}
}

// CategorizeTransaction assigns a category, which reconciles the transaction.
func CategorizeTransaction(pool *pgxpool.Pool, cache ReportInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		transactionID, ok := uuidParam(w, r, "transaction_id")
		if !ok {
			return
		}

		var req struct {
			CategoryID uuid.UUID `json:"category_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CategoryID == uuid.Nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if _, err := db.GetCategory(r.Context(), pool, famID, req.CategoryID); err != nil {
			http.Error(w, "unknown category", http.StatusBadRequest)
			return
		}

		updated, err := db.SetTransactionCategory(r.Context(), pool, famID, transactionID, req.CategoryID)
		if err != nil {
			log.Error().Err(err).Str("transaction_id", transactionID.String()).Msg("Failed to categorize transaction")
			http.Error(w, "failed to categorize transaction", statusFor(err))
			return
		}
		cache.InvalidateFamily(famID)
		writeJSON(w, http.StatusOK, updated)
	}
}

// UpdateTransactionStatus moves a transaction through the review workflow.
func UpdateTransactionStatus(pool *pgxpool.Pool, cache ReportInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		transactionID, ok := uuidParam(w, r, "transaction_id")
		if !ok {
			return
		}

		var req struct {
			Status models.Status `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.Valid() {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		current, err := db.GetTransaction(r.Context(), pool, famID, transactionID)
		if err != nil {
			http.Error(w, "transaction not found", statusFor(err))
			return
		}
		if !current.Status.CanTransition(req.Status) {
			http.Error(w, models.ErrInvalidTransition.Error(), http.StatusConflict)
			return
		}
		if req.Status == models.StatusReconciled && current.CategoryID == nil {
			http.Error(w, "transaction needs a category before it can be reconciled", http.StatusConflict)
			return
		}
		if req.Status == current.Status {
			writeJSON(w, http.StatusOK, current)
			return
		}

		updated, err := db.SetTransactionStatus(r.Context(), pool, famID, transactionID, req.Status)
		if err != nil {
			log.Error().Err(err).Str("transaction_id", transactionID.String()).Msg("Failed to update transaction status")
			http.Error(w, "failed to update transaction status", statusFor(err))
			return
		}
		cache.InvalidateFamily(famID)
		writeJSON(w, http.StatusOK, updated)
	}
}
