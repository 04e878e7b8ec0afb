package gocardless

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"famfin-server/src/models"
	"famfin-server/src/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transactionsBody = `{
  "transactions": {
    "booked": [
      {
        "transactionId": "2024011401",
        "bookingDate": "2024-01-14",
        "transactionAmount": {"amount": "-45.30", "currency": "EUR"},
        "creditorName": "Shell",
        "remittanceInformationUnstructured": "SHELL GAS"
      }
    ],
    "pending": [
      {
        "valueDate": "2024-01-16",
        "transactionAmount": {"amount": "-12.00", "currency": "EUR"},
        "remittanceInformationUnstructured": "BAKERY"
      }
    ]
  }
}`

func newTestServer(t *testing.T, tokenCalls *int32, failFirstWith401 bool) *httptest.Server {
	t.Helper()
	var txnCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/token/new/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "id", body["secret_id"])
		assert.Equal(t, "key", body["secret_key"])
		n := atomic.AddInt32(tokenCalls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access":         "token-" + string(rune('0'+n)),
			"access_expires": 86400,
		})
	})
	mux.HandleFunc("/api/v2/accounts/acc-1/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&txnCalls, 1) == 1 && failFirstWith401 {
			http.Error(w, `{"detail":"expired"}`, http.StatusUnauthorized)
			return
		}
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer token-")
		w.Write([]byte(transactionsBody))
	})
	mux.HandleFunc("/api/v2/accounts/acc-1/details/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"account": {"currency": "EUR", "name": "Main"}}`))
	})
	mux.HandleFunc("/api/v2/accounts/missing/transactions/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"summary":"Account not found"}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTransactionsMarksPendingAndReusesToken(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls, false)
	c := NewClient(srv.URL, "id", "key", srv.Client())

	txns, err := c.Transactions(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.False(t, txns[0].Pending)
	assert.Equal(t, models.RawAmount("-45.30"), txns[0].TransactionAmount.Amount)
	assert.True(t, txns[1].Pending)

	details, err := c.AccountDetails(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", details.Currency)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestTransactionsRefreshesTokenOnUnauthorized(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls, true)
	c := NewClient(srv.URL, "id", "key", srv.Client())

	txns, err := c.Transactions(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Len(t, txns, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
}

func TestFetchNormalizesShellGas(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls, false)
	c := NewClient(srv.URL, "id", "key", srv.Client())

	account := models.Account{Provider: models.ProviderGoCardless, ProviderAccountID: "acc-1"}
	batch, cursor, err := c.Fetch(context.Background(), account)
	require.NoError(t, err)
	assert.Empty(t, cursor)
	require.Len(t, batch, 2)

	n, err := pipeline.Normalize(batch[0], account.ProviderAccountID)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionExpense, n.Direction)
	assert.Equal(t, "45.3", n.Amount.String())
	assert.Equal(t, "EUR", n.Currency)
	assert.Equal(t, "Shell", n.Merchant)
}

func TestNotFoundIsProviderAPIError(t *testing.T) {
	var tokenCalls int32
	srv := newTestServer(t, &tokenCalls, false)
	c := NewClient(srv.URL, "id", "key", srv.Client())

	_, err := c.Transactions(context.Background(), "missing")
	var apiErr *pipeline.ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ProviderGoCardless, apiErr.Provider)
	assert.Contains(t, apiErr.Error(), "404")
}
