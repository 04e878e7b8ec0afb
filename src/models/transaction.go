package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionIncome   Direction = "INCOME"
	DirectionExpense  Direction = "EXPENSE"
	DirectionTransfer Direction = "TRANSFER"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionIncome, DirectionExpense, DirectionTransfer:
		return true
	}
	return false
}

type Status string

const (
	StatusReconciled          Status = "RECONCILED"
	StatusNeedsCategorization Status = "NEEDS_CATEGORIZATION"
	StatusNeedsReview         Status = "NEEDS_REVIEW"
	StatusInProgress          Status = "IN_PROGRESS"
)

var statusTransitions = map[Status][]Status{
	StatusNeedsCategorization: {StatusReconciled, StatusNeedsReview, StatusInProgress},
	StatusNeedsReview:         {StatusReconciled},
	StatusInProgress:          {StatusReconciled, StatusNeedsReview},
}

func (s Status) Valid() bool {
	switch s {
	case StatusReconciled, StatusNeedsCategorization, StatusNeedsReview, StatusInProgress:
		return true
	}
	return false
}

// CanTransition reports whether a ledger transaction may move from s to next.
// RECONCILED is terminal; setting the current status again is a no-op.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NormalizedTransaction is the provider-independent form of an imported
// transaction. Amount is always a magnitude; the sign lives in Direction.
type NormalizedTransaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	Currency    string          `json:"currency"`
	ExternalID  string          `json:"external_id"`
	Pending     bool            `json:"pending"`
}

type LedgerTransaction struct {
	NormalizedTransaction
	ID         uuid.UUID  `json:"id"`
	AccountID  uuid.UUID  `json:"account_id"`
	FamilyID   uuid.UUID  `json:"family_id"`
	CategoryID *uuid.UUID `json:"category_id"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TransactionFilter narrows a family's ledger listing. Zero values mean
// "no constraint"; From is inclusive and To exclusive.
type TransactionFilter struct {
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	Status     Status
	Direction  Direction
	From       time.Time
	To         time.Time
	// Categorized restricts the listing to transactions with a category.
	Categorized bool
}

// Matches applies the filter to one row the way ListTransactions does in SQL.
func (f TransactionFilter) Matches(t LedgerTransaction) bool {
	if f.AccountID != nil && t.AccountID != *f.AccountID {
		return false
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Categorized && t.CategoryID == nil {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Direction != "" && t.Direction != f.Direction {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Date.Before(f.To) {
		return false
	}
	return true
}
