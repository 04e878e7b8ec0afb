package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	db "famfin-server/src/db/sql"
	"famfin-server/src/logger"
	"famfin-server/src/models"
	famplaid "famfin-server/src/plaid"
	"famfin-server/src/syncer"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plaid/plaid-go/v41/plaid"
)

const (
	maxWebhookBody     = 1 << 20
	webhookSyncTimeout = 2 * time.Minute
)

type WebhookVerifier interface {
	Verify(ctx context.Context, body []byte, header http.Header) error
}

type ItemSyncer interface {
	SyncItem(ctx context.Context, itemID string) ([]syncer.Result, error)
}

func CreateLinkToken(plaidClient *plaid.APIClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}

		linkToken, err := famplaid.CreateLinkToken(r.Context(), plaidClient, famID.String())
		if err != nil {
			log.Error().Err(err).Msg("Plaid link token creation failed")
			http.Error(w, "Failed to create link token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"link_token": linkToken})
	}
}

func ExchangePublicToken(plaidClient *plaid.APIClient, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}

		var req struct {
			PublicToken string `json:"public_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicToken == "" {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		item, err := famplaid.ExchangePublicToken(r.Context(), plaidClient, req.PublicToken)
		if err != nil {
			log.Error().Err(err).Msg("Plaid public token exchange failed")
			http.Error(w, "Failed to exchange public token", http.StatusBadGateway)
			return
		}

		saved := make([]*models.Account, 0, len(item.Accounts))
		for _, account := range item.FamilyAccounts(famID) {
			a, err := db.SaveAccount(r.Context(), pool, &account)
			if err != nil {
				log.Error().Err(err).Str("item_id", item.ItemID).Msg("Failed to save Plaid account")
				http.Error(w, "Failed to save accounts", statusFor(err))
				return
			}
			saved = append(saved, a)
		}

		log.Info().Str("item_id", item.ItemID).Int("accounts", len(saved)).Msg("Linked Plaid item")
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"item_id":  item.ItemID,
			"accounts": saved,
		})
	}
}

// PlaidWebhook acknowledges verified webhooks at once and syncs the item in
// the background.
func PlaidWebhook(verifier WebhookVerifier, svc ItemSyncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := verifier.Verify(r.Context(), body, r.Header); err != nil {
			log.Warn().Err(err).Msg("Rejected Plaid webhook")
			http.Error(w, "invalid webhook", http.StatusUnauthorized)
			return
		}

		var event famplaid.WebhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		log.Info().
			Str("webhook_type", event.WebhookType).
			Str("webhook_code", event.WebhookCode).
			Str("item_id", event.ItemID).
			Msg("Received Plaid webhook")

		if event.SyncUpdatesAvailable() && event.ItemID != "" {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), webhookSyncTimeout)
			go func() {
				defer cancel()
				if _, err := svc.SyncItem(ctx, event.ItemID); err != nil {
					log.Error().Err(err).Str("item_id", event.ItemID).Msg("Webhook sync failed")
				}
			}()
		}
		w.WriteHeader(http.StatusOK)
	}
}
