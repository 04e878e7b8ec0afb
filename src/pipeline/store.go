package pipeline

import (
	"context"

	"famfin-server/src/models"

	"github.com/google/uuid"
)

// LedgerStore is the slice of the ledger the import pipeline needs.
// FindTransaction returns nil, nil when no row matches.
type LedgerStore interface {
	FindTransaction(ctx context.Context, accountID uuid.UUID, externalID string) (*models.LedgerTransaction, error)
	InsertTransaction(ctx context.Context, txn models.NormalizedTransaction, accountID, familyID uuid.UUID) (*models.LedgerTransaction, error)
}
