package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"famfin-server/src/logger"
	"famfin-server/src/models"
	"famfin-server/src/pipeline"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const maxImportRetries = 3

// Fetcher pulls the transactions an account has accumulated at its provider
// since cursor. The returned cursor is stored only after the batch imported.
type Fetcher interface {
	Fetch(ctx context.Context, account models.Account) ([]models.RawTransaction, string, error)
}

type Store interface {
	GetAccount(ctx context.Context, familyID, accountID uuid.UUID) (*models.Account, error)
	ListAccountsByItem(ctx context.Context, itemID string) ([]models.Account, error)
	UpdateSyncCursor(ctx context.Context, accountID uuid.UUID, cursor string) error
	DeleteAccountTransactions(ctx context.Context, familyID, accountID uuid.UUID) (int64, error)
}

type RuleApplier interface {
	Apply(ctx context.Context, familyID uuid.UUID) (int, error)
}

type CacheInvalidator interface {
	InvalidateFamily(familyID uuid.UUID)
}

type Result struct {
	AccountID    uuid.UUID `json:"account_id"`
	RulesApplied int       `json:"rules_applied"`
	pipeline.ImportResult
}

type Service struct {
	store      Store
	importer   *pipeline.Importer
	fetchers   map[models.Provider]Fetcher
	rules      RuleApplier
	cache      CacheInvalidator
	newBackOff func() backoff.BackOff
}

func NewService(store Store, importer *pipeline.Importer, fetchers map[models.Provider]Fetcher, rules RuleApplier, cache CacheInvalidator) *Service {
	return &Service{
		store:    store,
		importer: importer,
		fetchers: fetchers,
		rules:    rules,
		cache:    cache,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(b, maxImportRetries)
		},
	}
}

// SyncAccount fetches and imports the account's new transactions.
func (s *Service) SyncAccount(ctx context.Context, familyID, accountID uuid.UUID) (*Result, error) {
	account, err := s.store.GetAccount(ctx, familyID, accountID)
	if err != nil {
		return nil, err
	}
	return s.sync(ctx, *account)
}

// ResetAccount deletes the account's ledger and rewinds its sync cursor, so
// the next sync imports the provider's full history again.
func (s *Service) ResetAccount(ctx context.Context, familyID, accountID uuid.UUID) (int64, error) {
	if _, err := s.store.GetAccount(ctx, familyID, accountID); err != nil {
		return 0, err
	}
	deleted, err := s.store.DeleteAccountTransactions(ctx, familyID, accountID)
	if err != nil {
		return 0, &pipeline.StorageError{Op: "reset account", Err: err}
	}
	if s.cache != nil {
		s.cache.InvalidateFamily(familyID)
	}
	return deleted, nil
}

// SyncItem syncs every account linked through one Plaid item. It stops at
// the first failing account.
func (s *Service) SyncItem(ctx context.Context, itemID string) ([]Result, error) {
	accounts, err := s.store.ListAccountsByItem(ctx, itemID)
	if err != nil {
		return nil, &pipeline.StorageError{Op: "list accounts by item", Err: err}
	}
	results := make([]Result, 0, len(accounts))
	for _, account := range accounts {
		res, err := s.sync(ctx, account)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func (s *Service) sync(ctx context.Context, account models.Account) (*Result, error) {
	log := logger.FromContext(ctx).With().
		Str("family_id", account.FamilyID.String()).
		Str("account_id", account.ID.String()).
		Logger()

	fetcher, ok := s.fetchers[account.Provider]
	if !ok || fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for provider %q", account.Provider)
	}

	batch, cursor, err := fetcher.Fetch(ctx, account)
	if err != nil {
		return nil, err
	}

	res := &Result{AccountID: account.ID}
	written := 0
	operation := func() error {
		out, err := s.importer.Import(ctx, account.FamilyID, account, batch)
		res.ImportResult = out
		written += out.Imported
		var storageErr *pipeline.StorageError
		if err != nil && !errors.As(err, &storageErr) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("Import failed, retrying batch")
	}
	err = backoff.RetryNotify(operation, backoff.WithContext(s.newBackOff(), ctx), notify)

	// A failed batch may still have written rows.
	if s.cache != nil && written > 0 {
		s.cache.InvalidateFamily(account.FamilyID)
	}
	if err != nil {
		return res, err
	}

	if cursor != "" && cursor != account.SyncCursor {
		if err := s.store.UpdateSyncCursor(ctx, account.ID, cursor); err != nil {
			return res, &pipeline.StorageError{Op: "update sync cursor", Err: err}
		}
	}

	if s.rules != nil && written > 0 {
		applied, err := s.rules.Apply(ctx, account.FamilyID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to apply transaction rules after sync")
		} else if applied > 0 && s.cache != nil {
			s.cache.InvalidateFamily(account.FamilyID)
		}
		res.RulesApplied = applied
	}

	log.Info().
		Int("imported", res.Imported).
		Int("duplicates", res.Duplicates).
		Int("rules_applied", res.RulesApplied).
		Msg("Account synced")
	return res, nil
}
