package rules

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func txn(description, merchant, amount string, direction models.Direction) models.LedgerTransaction {
	return models.LedgerTransaction{
		NormalizedTransaction: models.NormalizedTransaction{
			Description: description,
			Merchant:    merchant,
			Amount:      decimal.RequireFromString(amount),
			Direction:   direction,
			Currency:    "EUR",
		},
		ID:     uuid.New(),
		Status: models.StatusNeedsCategorization,
	}
}

func mustParse(t *testing.T, raw string) models.Condition {
	t.Helper()
	cond, err := Parse(json.RawMessage(raw))
	require.NoError(t, err)
	return cond
}

func TestEvaluate(t *testing.T) {
	gas := txn("SHELL GAS", "Shell", "45.30", models.DirectionExpense)

	tests := []struct {
		name string
		cond string
		want bool
	}{
		{"contains ignores case", `{"field":"description","op":"contains","value":"gas"}`, true},
		{"equals merchant", `{"field":"merchant","op":"equals","value":"SHELL"}`, true},
		{"equals amount", `{"field":"amount","op":"equals","value":45.3}`, true},
		{"amount as string", `{"field":"amount","op":"gte","value":"45.30"}`, true},
		{"gt false", `{"field":"amount","op":"gt","value":45.3}`, false},
		{"lt", `{"field":"amount","op":"lt","value":100}`, true},
		{"lte", `{"field":"amount","op":"lte","value":45.29}`, false},
		{"in", `{"field":"merchant","op":"in","value":["BP","shell"]}`, true},
		{"direction", `{"field":"direction","op":"equals","value":"EXPENSE"}`, true},
		{"currency", `{"field":"currency","op":"equals","value":"usd"}`, false},
		{"and", `{"and":[{"field":"merchant","op":"equals","value":"shell"},{"field":"amount","op":"lt","value":10}]}`, false},
		{"or", `{"or":[{"field":"merchant","op":"equals","value":"bp"},{"field":"description","op":"contains","value":"shell"}]}`, true},
		{"type mismatch", `{"field":"description","op":"contains","value":5}`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(mustParse(t, tc.cond), gas))
		})
	}
}

func TestParseRejectsUnknownFieldsAndOps(t *testing.T) {
	_, err := Parse(json.RawMessage(`{"field":"account","op":"equals","value":"x"}`))
	assert.Error(t, err)
	_, err = Parse(json.RawMessage(`{"and":[{"field":"amount","op":"between","value":1}]}`))
	assert.Error(t, err)
	_, err = Parse(json.RawMessage(`not json`))
	assert.Error(t, err)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListTransactionRules(ctx context.Context, familyID uuid.UUID) ([]models.TransactionRule, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TransactionRule), args.Error(1)
}

func (m *MockStore) ListTransactions(ctx context.Context, familyID uuid.UUID, filter models.TransactionFilter) ([]models.LedgerTransaction, error) {
	args := m.Called(ctx, familyID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LedgerTransaction), args.Error(1)
}

func (m *MockStore) SetTransactionCategory(ctx context.Context, familyID, transactionID, categoryID uuid.UUID) (*models.LedgerTransaction, error) {
	args := m.Called(ctx, familyID, transactionID, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerTransaction), args.Error(1)
}

func TestEngineFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	familyID := uuid.New()
	fuel, shopping := uuid.New(), uuid.New()

	rules := []models.TransactionRule{
		{ID: uuid.New(), Name: "broken", Conditions: json.RawMessage(`{"field":"nope","op":"equals","value":1}`), CategoryID: shopping},
		{ID: uuid.New(), Name: "fuel", Conditions: json.RawMessage(`{"field":"merchant","op":"in","value":["shell","bp"]}`), CategoryID: fuel},
		{ID: uuid.New(), Name: "big spend", Conditions: json.RawMessage(`{"field":"amount","op":"gt","value":20}`), CategoryID: shopping},
	}
	gas := txn("SHELL GAS", "Shell", "45.30", models.DirectionExpense)
	coffee := txn("COFFEE", "Cafe", "3.50", models.DirectionExpense)

	store := new(MockStore)
	store.On("ListTransactionRules", ctx, familyID).Return(rules, nil)
	store.On("ListTransactions", ctx, familyID, models.TransactionFilter{Status: models.StatusNeedsCategorization}).
		Return([]models.LedgerTransaction{gas, coffee}, nil)
	store.On("SetTransactionCategory", ctx, familyID, gas.ID, fuel).Return(&gas, nil).Once()

	n, err := NewEngine(store).Apply(ctx, familyID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SetTransactionCategory", ctx, familyID, coffee.ID, mock.Anything)
}

func TestEngineWithoutRulesSkipsTransactions(t *testing.T) {
	ctx := context.Background()
	familyID := uuid.New()
	store := new(MockStore)
	store.On("ListTransactionRules", ctx, familyID).Return([]models.TransactionRule{}, nil)

	n, err := NewEngine(store).Apply(ctx, familyID)
	require.NoError(t, err)
	assert.Zero(t, n)
	store.AssertNotCalled(t, "ListTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngineStopsOnUpdateError(t *testing.T) {
	ctx := context.Background()
	familyID := uuid.New()
	cat := uuid.New()
	a := txn("A", "", "1", models.DirectionExpense)

	store := new(MockStore)
	store.On("ListTransactionRules", ctx, familyID).Return([]models.TransactionRule{
		{ID: uuid.New(), Conditions: json.RawMessage(`{"field":"amount","op":"gte","value":0}`), CategoryID: cat},
	}, nil)
	store.On("ListTransactions", ctx, familyID, mock.Anything).Return([]models.LedgerTransaction{a}, nil)
	store.On("SetTransactionCategory", ctx, familyID, a.ID, cat).Return(nil, errors.New("db down"))

	_, err := NewEngine(store).Apply(ctx, familyID)
	assert.ErrorContains(t, err, "db down")
}
