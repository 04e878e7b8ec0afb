package pipeline

import (
	"context"

	"github.com/google/uuid"
)

type Verdict string

const (
	VerdictNew    Verdict = "NEW"
	VerdictExists Verdict = "EXISTS"
)

// Gate decides whether a normalized transaction is already in the ledger,
// keyed on (account, external id).
type Gate struct {
	store LedgerStore
}

func NewGate(store LedgerStore) *Gate {
	return &Gate{store: store}
}

func (g *Gate) Check(ctx context.Context, accountID uuid.UUID, externalID string) (Verdict, error) {
	existing, err := g.store.FindTransaction(ctx, accountID, externalID)
	if err != nil {
		return "", &StorageError{Op: "find transaction", Err: err}
	}
	if existing != nil {
		return VerdictExists, nil
	}
	return VerdictNew, nil
}
