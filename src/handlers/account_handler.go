package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	db "famfin-server/src/db/sql"
	"famfin-server/src/gocardless"
	"famfin-server/src/logger"
	"famfin-server/src/models"
	"famfin-server/src/pipeline"
	"famfin-server/src/syncer"
	"famfin-server/src/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountSyncer interface {
	SyncAccount(ctx context.Context, familyID, accountID uuid.UUID) (*syncer.Result, error)
}

func LinkGoCardlessAccount(gc *gocardless.Client, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}

		var req struct {
			AccountID string `json:"account_id"`
			Name      string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.AccountID) == "" {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		details, err := gc.AccountDetails(r.Context(), req.AccountID)
		if err != nil {
			log.Error().Err(err).Str("provider_account_id", req.AccountID).Msg("Failed to fetch GoCardless account details")
			http.Error(w, "failed to fetch account details", statusFor(err))
			return
		}

		name := req.Name
		if name == "" {
			name = details.Name
		}
		currency := details.Currency
		if !util.ValidateCurrency(currency) {
			currency = pipeline.DefaultCurrency
		}

		account, err := db.SaveAccount(r.Context(), pool, &models.Account{
			FamilyID:          famID,
			Provider:          models.ProviderGoCardless,
			ProviderAccountID: req.AccountID,
			Name:              name,
			Currency:          currency,
		})
		if err != nil {
			log.Error().Err(err).Str("provider_account_id", req.AccountID).Msg("Failed to save GoCardless account")
			http.Error(w, "failed to save account", statusFor(err))
			return
		}

		log.Info().Str("account_id", account.ID.String()).Msg("Linked GoCardless account")
		writeJSON(w, http.StatusCreated, account)
	}
}

func GetAccounts(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		accounts, err := db.ListAccounts(r.Context(), pool, famID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list accounts")
			http.Error(w, "failed to get accounts", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

func SyncAccount(svc AccountSyncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		accountID, ok := uuidParam(w, r, "account_id")
		if !ok {
			return
		}

		res, err := svc.SyncAccount(r.Context(), famID, accountID)
		if err != nil {
			log.Error().Err(err).Str("account_id", accountID.String()).Msg("Failed to sync account")
			if res != nil {
				// Partial progress is still worth reporting; the sync can be re-run.
				writeJSON(w, statusFor(err), map[string]interface{}{"error": err.Error(), "result": res})
				return
			}
			http.Error(w, "failed to sync account", statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type AccountResetter interface {
	ResetAccount(ctx context.Context, familyID, accountID uuid.UUID) (int64, error)
}

// ResetAccountTransactions deletes every ledger transaction of one account.
func ResetAccountTransactions(svc AccountResetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		accountID, ok := uuidParam(w, r, "account_id")
		if !ok {
			return
		}

		deleted, err := svc.ResetAccount(r.Context(), famID, accountID)
		if err != nil {
			log.Error().Err(err).Str("account_id", accountID.String()).Msg("Failed to reset account transactions")
			http.Error(w, "failed to reset transactions", statusFor(err))
			return
		}

		log.Info().Str("account_id", accountID.String()).Int64("deleted", deleted).Msg("Reset account transactions")
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
	}
}
