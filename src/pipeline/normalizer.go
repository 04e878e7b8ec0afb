package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"famfin-server/src/models"

	"github.com/shopspring/decimal"
)

const (
	MaxDescriptionLength = 255
	MaxMerchantLength    = 100
	DefaultCurrency      = "USD"

	dateLayout = "2006-01-02"
)

// Normalize maps one raw provider transaction onto the canonical form.
// accountProviderID is the provider's id for the account the transaction was
// fetched from; it seeds the synthetic external id when the provider sent none.
func Normalize(raw models.RawTransaction, accountProviderID string) (models.NormalizedTransaction, error) {
	switch t := raw.(type) {
	case models.PlaidTransaction:
		return normalizePlaid(t, accountProviderID)
	case *models.PlaidTransaction:
		if t == nil {
			return models.NormalizedTransaction{}, &MalformedInputError{Provider: models.ProviderPlaid, Field: "transaction", Value: "<nil>"}
		}
		return normalizePlaid(*t, accountProviderID)
	case models.GoCardlessTransaction:
		return normalizeGoCardless(t, accountProviderID)
	case *models.GoCardlessTransaction:
		if t == nil {
			return models.NormalizedTransaction{}, &MalformedInputError{Provider: models.ProviderGoCardless, Field: "transaction", Value: "<nil>"}
		}
		return normalizeGoCardless(*t, accountProviderID)
	default:
		return models.NormalizedTransaction{}, &MalformedInputError{Field: "transaction", Value: fmt.Sprintf("%T", raw)}
	}
}

func normalizePlaid(t models.PlaidTransaction, accountProviderID string) (models.NormalizedTransaction, error) {
	amount, err := parseAmount(models.ProviderPlaid, t.Amount)
	if err != nil {
		return models.NormalizedTransaction{}, err
	}
	date, dateText, err := parseDate(models.ProviderPlaid, t.Date, t.AuthorizedDate)
	if err != nil {
		return models.NormalizedTransaction{}, err
	}

	// Plaid reports money leaving the account as a positive amount.
	magnitude, direction := splitSign(amount.Neg())

	merchant := deref(t.MerchantName)
	currency := deref(t.IsoCurrencyCode)
	if currency == "" {
		currency = deref(t.UnofficialCurrencyCode)
	}

	accountID := t.AccountID
	if accountID == "" {
		accountID = accountProviderID
	}
	externalID := deref(t.TransactionID)
	if externalID == "" {
		externalID = syntheticExternalID(models.ProviderPlaid, accountID, dateText, t.Amount.String(), t.Name, merchant)
	}

	return models.NormalizedTransaction{
		Date:        date,
		Description: truncate(t.Name, MaxDescriptionLength),
		Merchant:    truncate(merchant, MaxMerchantLength),
		Amount:      magnitude,
		Direction:   direction,
		Currency:    normalizeCurrency(currency),
		ExternalID:  externalID,
		Pending:     t.Pending,
	}, nil
}

func normalizeGoCardless(t models.GoCardlessTransaction, accountProviderID string) (models.NormalizedTransaction, error) {
	amount, err := parseAmount(models.ProviderGoCardless, t.TransactionAmount.Amount)
	if err != nil {
		return models.NormalizedTransaction{}, err
	}
	date, dateText, err := parseDate(models.ProviderGoCardless, t.BookingDate, t.ValueDate)
	if err != nil {
		return models.NormalizedTransaction{}, err
	}

	magnitude, direction := splitSign(amount)

	merchant := t.CreditorName
	if merchant == "" {
		merchant = t.DebtorName
	}
	description := goCardlessDescription(t)
	if description == "" {
		description = merchant
	}

	externalID := deref(t.TransactionID)
	if externalID == "" {
		externalID = deref(t.InternalTransactionID)
	}
	if externalID == "" {
		parts := []string{accountProviderID, dateText, t.TransactionAmount.Amount.String(), description, merchant}
		if t.EndToEndID != "" {
			parts = append(parts, t.EndToEndID)
		}
		externalID = syntheticExternalID(models.ProviderGoCardless, parts...)
	}

	return models.NormalizedTransaction{
		Date:        date,
		Description: truncate(description, MaxDescriptionLength),
		Merchant:    truncate(merchant, MaxMerchantLength),
		Amount:      magnitude,
		Direction:   direction,
		Currency:    normalizeCurrency(t.TransactionAmount.Currency),
		ExternalID:  externalID,
		Pending:     t.Pending,
	}, nil
}

func goCardlessDescription(t models.GoCardlessTransaction) string {
	if s := strings.TrimSpace(t.RemittanceInformationUnstructured); s != "" {
		return s
	}
	if len(t.RemittanceInformationUnstructuredArray) > 0 {
		if s := strings.TrimSpace(strings.Join(t.RemittanceInformationUnstructuredArray, " ")); s != "" {
			return s
		}
	}
	return strings.TrimSpace(t.RemittanceInformationStructured)
}

// splitSign turns a signed amount into a magnitude and direction. Zero is an
// expense of zero.
func splitSign(signed decimal.Decimal) (decimal.Decimal, models.Direction) {
	if signed.IsPositive() {
		return signed, models.DirectionIncome
	}
	return signed.Abs(), models.DirectionExpense
}

func parseAmount(provider models.Provider, raw models.RawAmount) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw.String())
	if text == "" {
		return decimal.Zero, &MalformedInputError{Provider: provider, Field: "amount", Value: text, Err: errors.New("missing")}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, &MalformedInputError{Provider: provider, Field: "amount", Value: text, Err: err}
	}
	return d, nil
}

// parseDate returns the first candidate that parses as a calendar date.
func parseDate(provider models.Provider, candidates ...string) (time.Time, string, error) {
	var lastErr error
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if len(c) > len(dateLayout) {
			c = c[:len(dateLayout)]
		}
		d, err := time.Parse(dateLayout, c)
		if err != nil {
			lastErr = err
			continue
		}
		return d, c, nil
	}
	return time.Time{}, "", &MalformedInputError{Provider: provider, Field: "date", Value: strings.Join(candidates, ","), Err: lastErr}
}

func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
