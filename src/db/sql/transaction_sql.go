package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, account_id, family_id, external_id, date, description, merchant,
	amount::text, direction, currency, pending, category_id, status, created_at`

func scanTransaction(row pgx.Row) (*models.LedgerTransaction, error) {
	var t models.LedgerTransaction
	var amount string
	err := row.Scan(&t.ID, &t.AccountID, &t.FamilyID, &t.ExternalID, &t.Date, &t.Description, &t.Merchant,
		&amount, &t.Direction, &t.Currency, &t.Pending, &t.CategoryID, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("scan amount %q: %w", amount, err)
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]models.LedgerTransaction, error) {
	defer rows.Close()
	transactions := []models.LedgerTransaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// FindTransaction returns nil, nil when the account has no transaction with
// that external id.
func FindTransaction(ctx context.Context, pool *pgxpool.Pool, accountID uuid.UUID, externalID string) (*models.LedgerTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1 AND external_id = $2`
	t, err := scanTransaction(pool.QueryRow(ctx, query, accountID, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func InsertTransaction(ctx context.Context, pool *pgxpool.Pool, txn models.NormalizedTransaction, accountID, familyID uuid.UUID) (*models.LedgerTransaction, error) {
	query := `
		INSERT INTO transactions (id, account_id, family_id, external_id, date, description, merchant, amount, direction, currency, pending, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12)
		RETURNING ` + transactionColumns

	return scanTransaction(pool.QueryRow(ctx, query,
		uuid.New(),
		accountID,
		familyID,
		txn.ExternalID,
		txn.Date,
		txn.Description,
		txn.Merchant,
		txn.Amount.String(),
		string(txn.Direction),
		txn.Currency,
		txn.Pending,
		string(models.StatusNeedsCategorization),
	))
}

func GetTransaction(ctx context.Context, pool *pgxpool.Pool, familyID, transactionID uuid.UUID) (*models.LedgerTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND family_id = $2`
	t, err := scanTransaction(pool.QueryRow(ctx, query, transactionID, familyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return t, err
}

func ListTransactions(ctx context.Context, pool *pgxpool.Pool, familyID uuid.UUID, filter models.TransactionFilter) ([]models.LedgerTransaction, error) {
	where := []string{"family_id = $1"}
	args := []interface{}{familyID}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.AccountID != nil {
		add("account_id = $%d", *filter.AccountID)
	}
	if filter.CategoryID != nil {
		add("category_id = $%d", *filter.CategoryID)
	}
	if filter.Categorized {
		where = append(where, "category_id IS NOT NULL")
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Direction != "" {
		add("direction = $%d", string(filter.Direction))
	}
	if !filter.From.IsZero() {
		add("date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("date < $%d", filter.To)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date, created_at`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// SetTransactionCategory assigns a category and reconciles the transaction.
func SetTransactionCategory(ctx context.Context, pool *pgxpool.Pool, familyID, transactionID, categoryID uuid.UUID) (*models.LedgerTransaction, error) {
	query := `
		UPDATE transactions
		SET category_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND family_id = $4
		RETURNING ` + transactionColumns
	t, err := scanTransaction(pool.QueryRow(ctx, query, categoryID, string(models.StatusReconciled), transactionID, familyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return t, err
}

func SetTransactionStatus(ctx context.Context, pool *pgxpool.Pool, familyID, transactionID uuid.UUID, status models.Status) (*models.LedgerTransaction, error) {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND family_id = $3
		RETURNING ` + transactionColumns
	t, err := scanTransaction(pool.QueryRow(ctx, query, string(status), transactionID, familyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return t, err
}

// DeleteAccountTransactions is the explicit bulk reset of one account's ledger.
// The account's sync cursor is cleared in the same transaction so the next
// sync fetches the provider's full history again.
func DeleteAccountTransactions(ctx context.Context, pool *pgxpool.Pool, familyID, accountID uuid.UUID) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM transactions WHERE account_id = $1 AND family_id = $2`, accountID, familyID)
		if err != nil {
			return err
		}
		deleted = cmd.RowsAffected()

		_, err = tx.Exec(ctx, `UPDATE accounts SET sync_cursor = '' WHERE id = $1 AND family_id = $2`, accountID, familyID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
