package db

import (
	"context"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store binds the query functions to a pool for the services that take their
// storage as an interface.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) FindTransaction(ctx context.Context, accountID uuid.UUID, externalID string) (*models.LedgerTransaction, error) {
	return FindTransaction(ctx, s.pool, accountID, externalID)
}

func (s *Store) InsertTransaction(ctx context.Context, txn models.NormalizedTransaction, accountID, familyID uuid.UUID) (*models.LedgerTransaction, error) {
	return InsertTransaction(ctx, s.pool, txn, accountID, familyID)
}

func (s *Store) ListTransactions(ctx context.Context, familyID uuid.UUID, filter models.TransactionFilter) ([]models.LedgerTransaction, error) {
	return ListTransactions(ctx, s.pool, familyID, filter)
}

func (s *Store) SetTransactionCategory(ctx context.Context, familyID, transactionID, categoryID uuid.UUID) (*models.LedgerTransaction, error) {
	return SetTransactionCategory(ctx, s.pool, familyID, transactionID, categoryID)
}

func (s *Store) ListGoals(ctx context.Context, familyID uuid.UUID) ([]models.Goal, error) {
	return ListGoals(ctx, s.pool, familyID)
}

func (s *Store) ListCategories(ctx context.Context, familyID uuid.UUID) ([]models.Category, error) {
	return ListCategories(ctx, s.pool, familyID)
}

func (s *Store) ListTransactionRules(ctx context.Context, familyID uuid.UUID) ([]models.TransactionRule, error) {
	return GetAllTransactionRules(ctx, s.pool, familyID)
}

func (s *Store) GetAccount(ctx context.Context, familyID, accountID uuid.UUID) (*models.Account, error) {
	return GetAccount(ctx, s.pool, familyID, accountID)
}

func (s *Store) ListAccountsByItem(ctx context.Context, itemID string) ([]models.Account, error) {
	return ListAccountsByItem(ctx, s.pool, itemID)
}

func (s *Store) UpdateSyncCursor(ctx context.Context, accountID uuid.UUID, cursor string) error {
	return UpdateSyncCursor(ctx, s.pool, accountID, cursor)
}

func (s *Store) DeleteAccountTransactions(ctx context.Context, familyID, accountID uuid.UUID) (int64, error) {
	return DeleteAccountTransactions(ctx, s.pool, familyID, accountID)
}
