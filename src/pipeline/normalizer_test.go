package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"famfin-server/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeGoCardlessShellGas(t *testing.T) {
	raw := models.GoCardlessTransaction{
		TransactionAmount:                 models.GoCardlessAmount{Amount: "-45.30", Currency: "EUR"},
		BookingDate:                       "2024-01-14",
		RemittanceInformationUnstructured: "SHELL GAS",
		CreditorName:                      "Shell",
	}

	n, err := Normalize(raw, "gc-acc-1")
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("45.30").Equal(n.Amount))
	assert.Equal(t, models.DirectionExpense, n.Direction)
	assert.Equal(t, "SHELL GAS", n.Description)
	assert.Equal(t, "Shell", n.Merchant)
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), n.Date)
	assert.Equal(t, "EUR", n.Currency)
	assert.True(t, strings.HasPrefix(n.ExternalID, "gocardless-"))
}

func TestNormalizeSignConvention(t *testing.T) {
	tests := []struct {
		name      string
		raw       models.RawTransaction
		amount    string
		direction models.Direction
	}{
		{
			name:      "gocardless outflow",
			raw:       models.GoCardlessTransaction{TransactionAmount: models.GoCardlessAmount{Amount: "-12.50"}, BookingDate: "2024-02-01"},
			amount:    "12.50",
			direction: models.DirectionExpense,
		},
		{
			name:      "gocardless inflow",
			raw:       models.GoCardlessTransaction{TransactionAmount: models.GoCardlessAmount{Amount: "1500"}, BookingDate: "2024-02-01"},
			amount:    "1500",
			direction: models.DirectionIncome,
		},
		{
			name:      "gocardless zero",
			raw:       models.GoCardlessTransaction{TransactionAmount: models.GoCardlessAmount{Amount: "0.00"}, BookingDate: "2024-02-01"},
			amount:    "0",
			direction: models.DirectionExpense,
		},
		{
			name:      "plaid debit is positive",
			raw:       models.PlaidTransaction{TransactionID: strPtr("p1"), Amount: "23.10", Date: "2024-02-01", Name: "Coffee"},
			amount:    "23.10",
			direction: models.DirectionExpense,
		},
		{
			name:      "plaid credit is negative",
			raw:       models.PlaidTransaction{TransactionID: strPtr("p2"), Amount: "-2000", Date: "2024-02-01", Name: "Payroll"},
			amount:    "2000",
			direction: models.DirectionIncome,
		},
		{
			name:      "plaid zero",
			raw:       models.PlaidTransaction{TransactionID: strPtr("p3"), Amount: "0", Date: "2024-02-01"},
			amount:    "0",
			direction: models.DirectionExpense,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Normalize(tt.raw, "acc")
			require.NoError(t, err)
			assert.False(t, n.Amount.IsNegative())
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(n.Amount), "got %s", n.Amount)
			assert.Equal(t, tt.direction, n.Direction)
		})
	}
}

func TestNormalizeMalformedAmount(t *testing.T) {
	for _, amount := range []models.RawAmount{"", "abc", "NaN", "Infinity", "12,50"} {
		_, err := Normalize(models.GoCardlessTransaction{
			TransactionAmount: models.GoCardlessAmount{Amount: amount},
			BookingDate:       "2024-01-01",
		}, "acc")

		var malformed *MalformedInputError
		require.ErrorAs(t, err, &malformed, "amount %q", amount)
		assert.Equal(t, "amount", malformed.Field)
	}
}

func TestNormalizeMissingDate(t *testing.T) {
	_, err := Normalize(models.PlaidTransaction{Amount: "1.00"}, "acc")
	var malformed *MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "date", malformed.Field)
}

func TestNormalizeDateFallbacks(t *testing.T) {
	n, err := Normalize(models.GoCardlessTransaction{
		TransactionAmount: models.GoCardlessAmount{Amount: "-1"},
		ValueDate:         "2024-03-05",
	}, "acc")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), n.Date)

	n, err = Normalize(models.PlaidTransaction{Amount: "1", AuthorizedDate: "2024-03-04T10:00:00Z"}, "acc")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), n.Date)
}

func TestNormalizeTruncatesText(t *testing.T) {
	long := strings.Repeat("é", 400)
	n, err := Normalize(models.GoCardlessTransaction{
		TransactionAmount:                 models.GoCardlessAmount{Amount: "-3"},
		BookingDate:                       "2024-01-01",
		RemittanceInformationUnstructured: long,
		CreditorName:                      long,
	}, "acc")
	require.NoError(t, err)

	assert.Equal(t, MaxDescriptionLength, len([]rune(n.Description)))
	assert.Equal(t, MaxMerchantLength, len([]rune(n.Merchant)))
}

func TestNormalizeExternalIDs(t *testing.T) {
	t.Run("native plaid id", func(t *testing.T) {
		n, err := Normalize(models.PlaidTransaction{TransactionID: strPtr("tx-123"), Amount: "1", Date: "2024-01-01"}, "acc")
		require.NoError(t, err)
		assert.Equal(t, "tx-123", n.ExternalID)
	})

	t.Run("gocardless internal id fallback", func(t *testing.T) {
		n, err := Normalize(models.GoCardlessTransaction{
			InternalTransactionID: strPtr("int-9"),
			TransactionAmount:     models.GoCardlessAmount{Amount: "1"},
			BookingDate:           "2024-01-01",
		}, "acc")
		require.NoError(t, err)
		assert.Equal(t, "int-9", n.ExternalID)
	})

	t.Run("synthetic id is deterministic", func(t *testing.T) {
		raw := models.GoCardlessTransaction{
			TransactionAmount:                 models.GoCardlessAmount{Amount: "-45.30"},
			BookingDate:                       "2024-01-14",
			RemittanceInformationUnstructured: "SHELL GAS",
			CreditorName:                      "Shell",
			EndToEndID:                        "E2E-1",
		}
		a, err := Normalize(raw, "acc")
		require.NoError(t, err)
		b, err := Normalize(raw, "acc")
		require.NoError(t, err)
		assert.Equal(t, a.ExternalID, b.ExternalID)

		want := syntheticExternalID(models.ProviderGoCardless, "acc", "2024-01-14", "-45.30", "SHELL GAS", "Shell", "E2E-1")
		assert.Equal(t, want, a.ExternalID)

		other, err := Normalize(raw, "another-acc")
		require.NoError(t, err)
		assert.NotEqual(t, a.ExternalID, other.ExternalID)
	})
}

func TestNormalizeDefaults(t *testing.T) {
	n, err := Normalize(models.PlaidTransaction{
		Amount:                 "5",
		Date:                   "2024-01-01",
		Name:                   "Corner shop",
		UnofficialCurrencyCode: strPtr("btc"),
		Pending:                true,
	}, "acc")
	require.NoError(t, err)
	assert.Equal(t, "BTC", n.Currency)
	assert.True(t, n.Pending)
	assert.Equal(t, "", n.Merchant)

	n, err = Normalize(models.GoCardlessTransaction{
		TransactionAmount:                      models.GoCardlessAmount{Amount: "5"},
		BookingDate:                            "2024-01-01",
		RemittanceInformationUnstructuredArray: []string{"REF 1", "INVOICE 2"},
		DebtorName:                             "ACME Ltd",
	}, "acc")
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, n.Currency)
	assert.Equal(t, "REF 1 INVOICE 2", n.Description)
	assert.Equal(t, "ACME Ltd", n.Merchant)
}

func TestNormalizeRejectsNil(t *testing.T) {
	var p *models.PlaidTransaction
	_, err := Normalize(p, "acc")
	var malformed *MalformedInputError
	assert.ErrorAs(t, err, &malformed)
}

func TestRawAmountAcceptsStringAndNumber(t *testing.T) {
	var p models.PlaidTransaction
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 12.5, "date": "2024-01-01"}`), &p))
	assert.Equal(t, models.RawAmount("12.5"), p.Amount)

	var g models.GoCardlessTransaction
	require.NoError(t, json.Unmarshal([]byte(`{"transactionAmount": {"amount": "-45.30", "currency": "EUR"}}`), &g))
	assert.Equal(t, models.RawAmount("-45.30"), g.TransactionAmount.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount": true}`), &p))
}

func TestRollingHash(t *testing.T) {
	assert.Equal(t, int32(0), rollingHash(""))
	assert.Equal(t, int32(96354), rollingHash("abc"))
	assert.Equal(t, int32(1794106052), rollingHash("hello world"))
	assert.Equal(t, int32(1772899), rollingHash("😀"))
	assert.Equal(t, "plaid-22ci", syntheticExternalID(models.ProviderPlaid, "abc"))
}
