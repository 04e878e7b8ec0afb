package plaid

import (
	"context"
	"errors"
	"testing"

	"famfin-server/src/models"
	"famfin-server/src/pipeline"

	"github.com/google/uuid"
	"github.com/plaid/plaid-go/v41/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plaidTxn(id, accountID string, amount float64, name string) plaid.Transaction {
	var txn plaid.Transaction
	txn.SetTransactionId(id)
	txn.SetAccountId(accountID)
	txn.SetAmount(amount)
	txn.SetDate("2024-01-02")
	txn.SetName(name)
	txn.SetIsoCurrencyCode("USD")
	return txn
}

func page(next string, more bool, added ...plaid.Transaction) plaid.TransactionsSyncResponse {
	var resp plaid.TransactionsSyncResponse
	resp.SetAdded(added)
	resp.SetNextCursor(next)
	resp.SetHasMore(more)
	return resp
}

func TestFetchPagesUntilDoneAndFiltersAccount(t *testing.T) {
	pages := map[string]plaid.TransactionsSyncResponse{
		"c0": page("c1", true, plaidTxn("t1", "acc-a", 12.5, "Coffee"), plaidTxn("t2", "acc-b", 3, "Other")),
		"c1": page("c2", false, plaidTxn("t3", "acc-a", -1000, "Payroll")),
	}
	var seen []string
	f := &TransactionFetcher{page: func(_ context.Context, token, cursor string) (plaid.TransactionsSyncResponse, error) {
		assert.Equal(t, "access-1", token)
		seen = append(seen, cursor)
		return pages[cursor], nil
	}}

	account := models.Account{ID: uuid.New(), ProviderAccountID: "acc-a", AccessToken: "access-1", SyncCursor: "c0"}
	batch, cursor, err := f.Fetch(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1"}, seen)
	assert.Equal(t, "c2", cursor)
	require.Len(t, batch, 2)

	first := batch[0].(models.PlaidTransaction)
	assert.Equal(t, "t1", *first.TransactionID)
	assert.Equal(t, models.RawAmount("12.5"), first.Amount)
	assert.Equal(t, "USD", *first.IsoCurrencyCode)
	assert.Nil(t, first.MerchantName)

	n, err := pipeline.Normalize(batch[1], account.ProviderAccountID)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionIncome, n.Direction)
	assert.Equal(t, "1000", n.Amount.String())
}

func TestFetchWrapsProviderErrors(t *testing.T) {
	f := &TransactionFetcher{page: func(context.Context, string, string) (plaid.TransactionsSyncResponse, error) {
		return plaid.TransactionsSyncResponse{}, errors.New("ITEM_LOGIN_REQUIRED")
	}}
	_, _, err := f.Fetch(context.Background(), models.Account{})
	var apiErr *pipeline.ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ProviderPlaid, apiErr.Provider)
}
