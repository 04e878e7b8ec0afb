package rules

import (
	"context"
	"fmt"

	"famfin-server/src/logger"
	"famfin-server/src/models"

	"github.com/google/uuid"
)

type Store interface {
	ListTransactionRules(ctx context.Context, familyID uuid.UUID) ([]models.TransactionRule, error)
	ListTransactions(ctx context.Context, familyID uuid.UUID, filter models.TransactionFilter) ([]models.LedgerTransaction, error)
	SetTransactionCategory(ctx context.Context, familyID, transactionID, categoryID uuid.UUID) (*models.LedgerTransaction, error)
}

type compiledRule struct {
	rule models.TransactionRule
	cond models.Condition
}

// Engine categorizes transactions that still need a category with the
// family's rules. The first matching rule wins.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Apply returns the number of transactions it categorized.
func (e *Engine) Apply(ctx context.Context, familyID uuid.UUID) (int, error) {
	log := logger.FromContext(ctx)

	rules, err := e.store.ListTransactionRules(ctx, familyID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transaction rules: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cond, err := Parse(r.Conditions)
		if err != nil {
			log.Warn().Err(err).Str("rule_id", r.ID.String()).Msg("Skipping invalid transaction rule")
			continue
		}
		compiled = append(compiled, compiledRule{rule: r, cond: cond})
	}

	txns, err := e.store.ListTransactions(ctx, familyID, models.TransactionFilter{Status: models.StatusNeedsCategorization})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	adjusted := 0
	for _, txn := range txns {
		for _, c := range compiled {
			if !Evaluate(c.cond, txn) {
				continue
			}
			if _, err := e.store.SetTransactionCategory(ctx, familyID, txn.ID, c.rule.CategoryID); err != nil {
				return adjusted, fmt.Errorf("failed to update transaction category: %w", err)
			}
			log.Debug().
				Str("transaction_id", txn.ID.String()).
				Str("rule_id", c.rule.ID.String()).
				Msg("Transaction categorized by rule")
			adjusted++
			break
		}
	}

	log.Info().Str("family_id", familyID.String()).Int("adjusted", adjusted).Msg("Applied transaction rules")
	return adjusted, nil
}
