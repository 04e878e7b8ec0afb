package pipeline

import (
	"context"

	"famfin-server/src/models"

	"github.com/google/uuid"
)

// Writer persists new transactions. It never retries; the caller re-runs the
// batch and the Gate filters what was already written.
type Writer struct {
	store LedgerStore
}

func NewWriter(store LedgerStore) *Writer {
	return &Writer{store: store}
}

func (w *Writer) Write(ctx context.Context, txn models.NormalizedTransaction, accountID, familyID uuid.UUID) (*models.LedgerTransaction, error) {
	created, err := w.store.InsertTransaction(ctx, txn, accountID, familyID)
	if err != nil {
		return nil, &StorageError{Op: "insert transaction", Err: err}
	}
	return created, nil
}
