package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	db "famfin-server/src/db/sql"
	"famfin-server/src/logger"
	"famfin-server/src/models"
	"famfin-server/src/util"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type goalRequest struct {
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	TargetDate    string          `json:"target_date"`
	Active        *bool           `json:"active"`
}

func (req goalRequest) toGoal() (*models.Goal, bool) {
	if !util.ValidateName(req.Name) || !req.TargetAmount.IsPositive() || req.CurrentAmount.IsNegative() {
		return nil, false
	}
	g := &models.Goal{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Active:        req.Active == nil || *req.Active,
	}
	if req.TargetDate != "" {
		d, err := time.Parse(dateLayout, req.TargetDate)
		if err != nil {
			return nil, false
		}
		g.TargetDate = &d
	}
	return g, true
}

func CreateGoal(pool *pgxpool.Pool, cache ReportInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		var req goalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		goal, ok := req.toGoal()
		if !ok {
			http.Error(w, "invalid goal", http.StatusBadRequest)
			return
		}
		goal.FamilyID = famID

		created, err := db.CreateGoal(r.Context(), pool, goal)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create goal")
			http.Error(w, "failed to create goal", http.StatusInternalServerError)
			return
		}
		cache.InvalidateFamily(famID)
		log.Info().Str("goal_id", created.ID.String()).Msg("Created goal")
		writeJSON(w, http.StatusCreated, created)
	}
}

func GetGoals(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		goals, err := db.ListGoals(r.Context(), pool, famID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list goals")
			http.Error(w, "failed to get goals", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, goals)
	}
}

func GetGoalByID(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		goalID, ok := uuidParam(w, r, "goal_id")
		if !ok {
			return
		}
		goal, err := db.GetGoal(r.Context(), pool, famID, goalID)
		if err != nil {
			http.Error(w, "goal not found", statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, goal)
	}
}

func UpdateGoal(pool *pgxpool.Pool, cache ReportInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		goalID, ok := uuidParam(w, r, "goal_id")
		if !ok {
			return
		}
		var req goalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		goal, ok := req.toGoal()
		if !ok {
			http.Error(w, "invalid goal", http.StatusBadRequest)
			return
		}
		goal.ID = goalID
		goal.FamilyID = famID

		updated, err := db.UpdateGoal(r.Context(), pool, goal)
		if err != nil {
			log.Error().Err(err).Str("goal_id", goalID.String()).Msg("Failed to update goal")
			http.Error(w, "failed to update goal", statusFor(err))
			return
		}
		cache.InvalidateFamily(famID)
		writeJSON(w, http.StatusOK, updated)
	}
}

func DeleteGoal(pool *pgxpool.Pool, cache ReportInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		goalID, ok := uuidParam(w, r, "goal_id")
		if !ok {
			return
		}
		if err := db.DeleteGoal(r.Context(), pool, famID, goalID); err != nil {
			log.Error().Err(err).Str("goal_id", goalID.String()).Msg("Failed to delete goal")
			http.Error(w, "failed to delete goal", statusFor(err))
			return
		}
		cache.InvalidateFamily(famID)
		writeJSON(w, http.StatusOK, map[string]string{"message": "goal deleted"})
	}
}
