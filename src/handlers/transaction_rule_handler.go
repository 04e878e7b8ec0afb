package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	db "famfin-server/src/db/sql"
	"famfin-server/src/logger"
	"famfin-server/src/models"
	"famfin-server/src/rules"
	"famfin-server/src/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RuleApplier interface {
	Apply(ctx context.Context, familyID uuid.UUID) (int, error)
}

type ruleRequest struct {
	Name       string          `json:"name"`
	Conditions json.RawMessage `json:"conditions"`
	CategoryID uuid.UUID       `json:"category_id"`
}

// decodeRule reads and validates a rule body, including its condition tree
// and that the target category belongs to the family.
func decodeRule(w http.ResponseWriter, r *http.Request, pool *pgxpool.Pool, famID uuid.UUID) (*models.TransactionRule, bool) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !util.ValidateName(req.Name) {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return nil, false
	}
	if _, err := rules.Parse(req.Conditions); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if _, err := db.GetCategory(r.Context(), pool, famID, req.CategoryID); err != nil {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return nil, false
	}
	return &models.TransactionRule{
		FamilyID:   famID,
		Name:       req.Name,
		Conditions: req.Conditions,
		CategoryID: req.CategoryID,
	}, true
}

func CreateTransactionRule(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		rule, ok := decodeRule(w, r, pool, famID)
		if !ok {
			return
		}
		created, err := db.CreateTransactionRule(r.Context(), pool, rule)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create transaction rule")
			http.Error(w, "failed to create transaction rule", http.StatusInternalServerError)
			return
		}
		log.Info().Str("rule_id", created.ID.String()).Str("name", created.Name).Msg("Created transaction rule")
		writeJSON(w, http.StatusCreated, created)
	}
}

func GetTransactionRuleByID(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		ruleID, ok := uuidParam(w, r, "rule_id")
		if !ok {
			return
		}
		rule, err := db.GetTransactionRuleByID(r.Context(), pool, famID, ruleID)
		if err != nil {
			http.Error(w, "transaction rule not found", statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, rule)
	}
}

func GetAllTransactionRules(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		list, err := db.GetAllTransactionRules(r.Context(), pool, famID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to get transaction rules")
			http.Error(w, "failed to get transaction rules", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func UpdateTransactionRule(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		ruleID, ok := uuidParam(w, r, "rule_id")
		if !ok {
			return
		}
		rule, ok := decodeRule(w, r, pool, famID)
		if !ok {
			return
		}
		rule.ID = ruleID
		updated, err := db.UpdateTransactionRule(r.Context(), pool, rule)
		if err != nil {
			log.Error().Err(err).Str("rule_id", ruleID.String()).Msg("Failed to update transaction rule")
			http.Error(w, "failed to update transaction rule", statusFor(err))
			return
		}
		log.Info().Str("rule_id", updated.ID.String()).Msg("Updated transaction rule")
		writeJSON(w, http.StatusOK, updated)
	}
}

func DeleteTransactionRule(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		ruleID, ok := uuidParam(w, r, "rule_id")
		if !ok {
			return
		}
		if err := db.DeleteTransactionRule(r.Context(), pool, famID, ruleID); err != nil {
			log.Error().Err(err).Str("rule_id", ruleID.String()).Msg("Failed to delete transaction rule")
			http.Error(w, "failed to delete transaction rule", statusFor(err))
			return
		}
		log.Info().Str("rule_id", ruleID.String()).Msg("Deleted transaction rule")
		writeJSON(w, http.StatusOK, map[string]string{"message": "transaction rule deleted"})
	}
}

func TriggerTransactionRules(engine RuleApplier, cache ReportInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		adjusted, err := engine.Apply(r.Context(), famID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to trigger transaction rules")
			http.Error(w, "failed to trigger transaction rules", http.StatusInternalServerError)
			return
		}
		if adjusted > 0 {
			cache.InvalidateFamily(famID)
		}
		writeJSON(w, http.StatusOK, map[string]int{"adjusted": adjusted})
	}
}
