package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderPlaid      Provider = "plaid"
	ProviderGoCardless Provider = "gocardless"
)

func (p Provider) Valid() bool {
	return p == ProviderPlaid || p == ProviderGoCardless
}

// RawTransaction is a transaction exactly as a bank aggregator returned it.
// The only implementations are PlaidTransaction and GoCardlessTransaction.
type RawTransaction interface {
	Provider() Provider
	rawTransaction()
}

// RawAmount holds the textual form of an amount that a provider sent either
// as a JSON string or a JSON number.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = RawAmount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = RawAmount(n.String())
	return nil
}

func (a RawAmount) String() string { return string(a) }

type PlaidTransaction struct {
	TransactionID          *string   `json:"transaction_id"`
	AccountID              string    `json:"account_id"`
	Amount                 RawAmount `json:"amount"`
	Date                   string    `json:"date"`
	AuthorizedDate         string    `json:"authorized_date"`
	Name                   string    `json:"name"`
	MerchantName           *string   `json:"merchant_name"`
	IsoCurrencyCode        *string   `json:"iso_currency_code"`
	UnofficialCurrencyCode *string   `json:"unofficial_currency_code"`
	Pending                bool      `json:"pending"`
}

func (PlaidTransaction) Provider() Provider { return ProviderPlaid }
func (PlaidTransaction) rawTransaction()    {}

type GoCardlessAmount struct {
	Amount   RawAmount `json:"amount"`
	Currency string    `json:"currency"`
}

type GoCardlessTransaction struct {
	TransactionID                          *string          `json:"transactionId"`
	InternalTransactionID                  *string          `json:"internalTransactionId"`
	BookingDate                            string           `json:"bookingDate"`
	ValueDate                              string           `json:"valueDate"`
	TransactionAmount                      GoCardlessAmount `json:"transactionAmount"`
	RemittanceInformationUnstructured      string           `json:"remittanceInformationUnstructured"`
	RemittanceInformationUnstructuredArray []string         `json:"remittanceInformationUnstructuredArray"`
	RemittanceInformationStructured        string           `json:"remittanceInformationStructured"`
	CreditorName                           string           `json:"creditorName"`
	DebtorName                             string           `json:"debtorName"`
	EndToEndID                             string           `json:"endToEndId"`

	// Pending is set by the client for entries of the "pending" list.
	Pending bool `json:"-"`
}

func (GoCardlessTransaction) Provider() Provider { return ProviderGoCardless }
func (GoCardlessTransaction) rawTransaction()    {}
