package db

import (
	"context"
	"errors"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, family_id, provider, provider_account_id, provider_item_id, name, currency, access_token, sync_cursor, created_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.FamilyID, &a.Provider, &a.ProviderAccountID, &a.ProviderItemID,
		&a.Name, &a.Currency, &a.AccessToken, &a.SyncCursor, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAccount inserts an account or refreshes the name, token and item of an
// existing one. The sync cursor of an existing account is kept.
func SaveAccount(ctx context.Context, pool *pgxpool.Pool, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, family_id, provider, provider_account_id, provider_item_id, name, currency, access_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, provider_account_id) DO UPDATE SET
			name = EXCLUDED.name,
			provider_item_id = EXCLUDED.provider_item_id,
			access_token = EXCLUDED.access_token,
			currency = EXCLUDED.currency
		WHERE accounts.family_id = EXCLUDED.family_id
		RETURNING ` + accountColumns

	id := account.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	a, err := scanAccount(pool.QueryRow(ctx, query,
		id,
		account.FamilyID,
		string(account.Provider),
		account.ProviderAccountID,
		account.ProviderItemID,
		account.Name,
		account.Currency,
		account.AccessToken,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// The provider account is already linked to another family.
		return nil, models.ErrNotFound
	}
	return a, err
}

func GetAccount(ctx context.Context, pool *pgxpool.Pool, familyID, accountID uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND family_id = $2`
	a, err := scanAccount(pool.QueryRow(ctx, query, accountID, familyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return a, err
}

func ListAccounts(ctx context.Context, pool *pgxpool.Pool, familyID uuid.UUID) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE family_id = $1 ORDER BY created_at`
	return queryAccounts(ctx, pool, query, familyID)
}

// ListAccountsByItem finds the accounts behind a Plaid item. It is the only
// lookup not scoped to a family: webhooks identify themselves by item id.
func ListAccountsByItem(ctx context.Context, pool *pgxpool.Pool, itemID string) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE provider = $1 AND provider_item_id = $2 ORDER BY created_at`
	return queryAccounts(ctx, pool, query, string(models.ProviderPlaid), itemID)
}

func queryAccounts(ctx context.Context, pool *pgxpool.Pool, query string, args ...interface{}) ([]models.Account, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func UpdateSyncCursor(ctx context.Context, pool *pgxpool.Pool, accountID uuid.UUID, cursor string) error {
	query := `UPDATE accounts SET sync_cursor = $1 WHERE id = $2`
	_, err := pool.Exec(ctx, query, cursor, accountID)
	return err
}
