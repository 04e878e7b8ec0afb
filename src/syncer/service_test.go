package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"famfin-server/src/models"
	"famfin-server/src/pipeline"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu      sync.Mutex
	rows    map[string]models.LedgerTransaction
	inserts int
	// failAt makes the n-th insert fail; failAll fails every insert.
	failAt  int
	failAll bool
}

func (l *fakeLedger) FindTransaction(_ context.Context, accountID uuid.UUID, externalID string) (*models.LedgerTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.rows[accountID.String()+"/"+externalID]; ok {
		return &row, nil
	}
	return nil, nil
}

func (l *fakeLedger) InsertTransaction(_ context.Context, txn models.NormalizedTransaction, accountID, familyID uuid.UUID) (*models.LedgerTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inserts++
	if l.failAll || l.inserts == l.failAt {
		return nil, errors.New("deadlock detected")
	}
	if l.rows == nil {
		l.rows = map[string]models.LedgerTransaction{}
	}
	row := models.LedgerTransaction{NormalizedTransaction: txn, ID: uuid.New(), AccountID: accountID, FamilyID: familyID, Status: models.StatusNeedsCategorization}
	l.rows[accountID.String()+"/"+txn.ExternalID] = row
	return &row, nil
}

type fakeStore struct {
	accounts map[uuid.UUID]models.Account
	cursors  map[uuid.UUID]string
	ledger   *fakeLedger
}

func (s *fakeStore) GetAccount(_ context.Context, familyID, accountID uuid.UUID) (*models.Account, error) {
	a, ok := s.accounts[accountID]
	if !ok || a.FamilyID != familyID {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (s *fakeStore) ListAccountsByItem(_ context.Context, itemID string) ([]models.Account, error) {
	var out []models.Account
	for _, a := range s.accounts {
		if a.ProviderItemID == itemID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateSyncCursor(_ context.Context, accountID uuid.UUID, cursor string) error {
	if s.cursors == nil {
		s.cursors = map[uuid.UUID]string{}
	}
	s.cursors[accountID] = cursor
	if a, ok := s.accounts[accountID]; ok {
		a.SyncCursor = cursor
		s.accounts[accountID] = a
	}
	return nil
}

func (s *fakeStore) DeleteAccountTransactions(_ context.Context, familyID, accountID uuid.UUID) (int64, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	var deleted int64
	for key, row := range s.ledger.rows {
		if row.AccountID == accountID && row.FamilyID == familyID {
			delete(s.ledger.rows, key)
			deleted++
		}
	}
	a := s.accounts[accountID]
	a.SyncCursor = ""
	s.accounts[accountID] = a
	return deleted, nil
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, account models.Account) ([]models.RawTransaction, string, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]models.RawTransaction), args.String(1), args.Error(2)
}

type countingRules struct {
	calls int
	n     int
	err   error
}

func (r *countingRules) Apply(context.Context, uuid.UUID) (int, error) {
	r.calls++
	return r.n, r.err
}

type recordingCache struct {
	invalidated []uuid.UUID
}

func (c *recordingCache) InvalidateFamily(familyID uuid.UUID) {
	c.invalidated = append(c.invalidated, familyID)
}

func strPtr(s string) *string { return &s }

func plaidBatch() []models.RawTransaction {
	return []models.RawTransaction{
		models.PlaidTransaction{TransactionID: strPtr("t1"), AccountID: "pa", Amount: "12.00", Date: "2024-02-01", Name: "Groceries"},
		models.PlaidTransaction{TransactionID: strPtr("t2"), AccountID: "pa", Amount: "-2500", Date: "2024-02-01", Name: "Salary"},
	}
}

type fixture struct {
	familyID uuid.UUID
	account  models.Account
	store    *fakeStore
	ledger   *fakeLedger
	fetcher  *mockFetcher
	rules    *countingRules
	cache    *recordingCache
	svc      *Service
}

func newFixture() *fixture {
	familyID := uuid.New()
	account := models.Account{
		ID:                uuid.New(),
		FamilyID:          familyID,
		Provider:          models.ProviderPlaid,
		ProviderAccountID: "pa",
		ProviderItemID:    "item-1",
		SyncCursor:        "c1",
	}
	ledger := &fakeLedger{}
	f := &fixture{
		familyID: familyID,
		account:  account,
		store:    &fakeStore{accounts: map[uuid.UUID]models.Account{account.ID: account}, ledger: ledger},
		ledger:   ledger,
		fetcher:  new(mockFetcher),
		rules:    &countingRules{n: 1},
		cache:    &recordingCache{},
	}
	f.svc = NewService(f.store, pipeline.NewImporter(f.ledger),
		map[models.Provider]Fetcher{models.ProviderPlaid: f.fetcher}, f.rules, f.cache)
	f.svc.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxImportRetries)
	}
	return f
}

func TestSyncAccountImportsAndAdvancesCursor(t *testing.T) {
	f := newFixture()
	f.fetcher.On("Fetch", mock.Anything, f.account).Return(plaidBatch(), "c2", nil).Once()

	res, err := f.svc.SyncAccount(context.Background(), f.familyID, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.RulesApplied)
	assert.Equal(t, "c2", f.store.cursors[f.account.ID])
	assert.Equal(t, 1, f.rules.calls)
	assert.Contains(t, f.cache.invalidated, f.familyID)
	f.fetcher.AssertExpectations(t)
}

func TestSyncAccountRetriesStorageErrors(t *testing.T) {
	f := newFixture()
	f.ledger.failAt = 2
	f.fetcher.On("Fetch", mock.Anything, f.account).Return(plaidBatch(), "c2", nil)

	res, err := f.svc.SyncAccount(context.Background(), f.familyID, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, f.ledger.rows, 2)
	assert.Equal(t, "c2", f.store.cursors[f.account.ID])
}

func TestSyncAccountKeepsCursorWhenImportFails(t *testing.T) {
	f := newFixture()
	f.ledger.failAll = true
	f.fetcher.On("Fetch", mock.Anything, f.account).Return(plaidBatch(), "c2", nil)

	res, err := f.svc.SyncAccount(context.Background(), f.familyID, f.account.ID)
	var storageErr *pipeline.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 1+maxImportRetries, f.ledger.inserts)
	assert.NotContains(t, f.store.cursors, f.account.ID)
	assert.Zero(t, f.rules.calls)
}

func TestSyncAccountDoesNotRetryProviderErrors(t *testing.T) {
	f := newFixture()
	providerErr := &pipeline.ProviderAPIError{Provider: models.ProviderPlaid, Op: "transactions sync", Err: errors.New("ITEM_LOGIN_REQUIRED")}
	f.fetcher.On("Fetch", mock.Anything, f.account).Return(nil, "", providerErr).Once()

	_, err := f.svc.SyncAccount(context.Background(), f.familyID, f.account.ID)
	assert.ErrorIs(t, err, providerErr)
	assert.Zero(t, f.ledger.inserts)
	f.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestSyncAccountRejectsOtherFamily(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SyncAccount(context.Background(), uuid.New(), f.account.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestSyncAccountWithoutFetcher(t *testing.T) {
	f := newFixture()
	gc := models.Account{ID: uuid.New(), FamilyID: f.familyID, Provider: models.ProviderGoCardless, ProviderAccountID: "g"}
	f.store.accounts[gc.ID] = gc

	_, err := f.svc.SyncAccount(context.Background(), f.familyID, gc.ID)
	assert.ErrorContains(t, err, "no fetcher")
}

func TestSyncItemSyncsEveryAccountAndIsIdempotent(t *testing.T) {
	f := newFixture()
	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(plaidBatch(), "c2", nil)

	results, err := f.svc.SyncItem(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Imported)

	f.rules.calls = 0
	results, err = f.svc.SyncItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 0, results[0].Imported)
	assert.Equal(t, 2, results[0].Duplicates)
	assert.Zero(t, f.rules.calls)
}

func TestResetAccountRewindsCursorSoHistoryReimports(t *testing.T) {
	f := newFixture()
	f.fetcher.On("Fetch", mock.Anything, mock.MatchedBy(func(a models.Account) bool { return a.SyncCursor == "c1" })).
		Return(plaidBatch(), "c2", nil).Once()
	// From an empty cursor Plaid replays the account's whole history.
	f.fetcher.On("Fetch", mock.Anything, mock.MatchedBy(func(a models.Account) bool { return a.SyncCursor == "" })).
		Return(plaidBatch(), "c3", nil).Once()

	res, err := f.svc.SyncAccount(context.Background(), f.familyID, f.account.ID)
	require.NoError(t, err)
	require.Equal(t, 2, res.Imported)

	f.cache.invalidated = nil
	deleted, err := f.svc.ResetAccount(context.Background(), f.familyID, f.account.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	assert.Empty(t, f.ledger.rows)
	assert.Equal(t, []uuid.UUID{f.familyID}, f.cache.invalidated)

	res, err = f.svc.SyncAccount(context.Background(), f.familyID, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Duplicates)
	assert.Len(t, f.ledger.rows, 2)
	assert.Equal(t, "c3", f.store.cursors[f.account.ID])
	f.fetcher.AssertExpectations(t)
}

func TestResetAccountRejectsOtherFamily(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ResetAccount(context.Background(), uuid.New(), f.account.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, f.cache.invalidated)
}
