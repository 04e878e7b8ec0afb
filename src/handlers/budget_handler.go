package handlers

import (
	"encoding/json"
	"net/http"

	db "famfin-server/src/db/sql"
	"famfin-server/src/logger"
	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type budgetRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	CategoryID uuid.UUID       `json:"category_id"`
}

func (req budgetRequest) valid() bool {
	return req.CategoryID != uuid.Nil && !req.Amount.IsNegative()
}

func CreateBudget(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		var req budgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if _, err := db.GetCategory(r.Context(), pool, famID, req.CategoryID); err != nil {
			http.Error(w, "unknown category", http.StatusBadRequest)
			return
		}
		created, err := db.CreateBudget(r.Context(), pool, &models.Budget{
			FamilyID:   famID,
			CategoryID: req.CategoryID,
			Amount:     req.Amount,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to create budget")
			http.Error(w, "failed to create budget", http.StatusInternalServerError)
			return
		}
		log.Info().Str("budget_id", created.ID.String()).Str("category_id", created.CategoryID.String()).Msg("Created budget")
		writeJSON(w, http.StatusCreated, created)
	}
}

func GetBudgetByID(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		budgetID, ok := uuidParam(w, r, "budget_id")
		if !ok {
			return
		}
		budget, err := db.GetBudgetByID(r.Context(), pool, famID, budgetID)
		if err != nil {
			http.Error(w, "budget not found", statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, budget)
	}
}

func GetAllBudgetsForFamily(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		budgets, err := db.GetAllBudgetsForFamily(r.Context(), pool, famID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to get budgets")
			http.Error(w, "failed to get budgets", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, budgets)
	}
}

func UpdateBudget(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		budgetID, ok := uuidParam(w, r, "budget_id")
		if !ok {
			return
		}
		var req budgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		updated, err := db.UpdateBudget(r.Context(), pool, &models.Budget{
			ID:         budgetID,
			FamilyID:   famID,
			CategoryID: req.CategoryID,
			Amount:     req.Amount,
		})
		if err != nil {
			log.Error().Err(err).Str("budget_id", budgetID.String()).Msg("Failed to update budget")
			http.Error(w, "failed to update budget", statusFor(err))
			return
		}
		log.Info().Str("budget_id", updated.ID.String()).Msg("Updated budget")
		writeJSON(w, http.StatusOK, updated)
	}
}

func DeleteBudget(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		budgetID, ok := uuidParam(w, r, "budget_id")
		if !ok {
			return
		}
		if err := db.DeleteBudget(r.Context(), pool, famID, budgetID); err != nil {
			log.Error().Err(err).Str("budget_id", budgetID.String()).Msg("Failed to delete budget")
			http.Error(w, "failed to delete budget", statusFor(err))
			return
		}
		log.Info().Str("budget_id", budgetID.String()).Msg("Deleted budget")
		writeJSON(w, http.StatusOK, map[string]string{"message": "budget deleted"})
	}
}
