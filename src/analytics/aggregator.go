package analytics

import (
	"time"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WindowStart returns the first instant of a trailing window of the given
// number of months ending at now. A day that does not exist in the target
// month is clamped to its last day (May 31 minus three months is Feb 29).
func WindowStart(now time.Time, months int) time.Time {
	y, m, d := now.Date()
	first := time.Date(y, m-time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// IsReconciledExpense reports whether t counts toward spending analytics.
func IsReconciledExpense(t models.LedgerTransaction) bool {
	return t.Status == models.StatusReconciled &&
		t.Direction == models.DirectionExpense &&
		t.CategoryID != nil
}

// Aggregate sums reconciled, categorized expenses per category. The caller
// has already restricted txns to the window.
func Aggregate(txns []models.LedgerTransaction, monthsInWindow int) map[uuid.UUID]models.CategoryTotal {
	totals := make(map[uuid.UUID]models.CategoryTotal)
	for _, t := range txns {
		if !IsReconciledExpense(t) {
			continue
		}
		ct := totals[*t.CategoryID]
		ct.TotalMagnitude = ct.TotalMagnitude.Add(t.Amount)
		ct.MonthsInWindow = monthsInWindow
		totals[*t.CategoryID] = ct
	}
	return totals
}

// AverageMonthly is TotalMagnitude spread over the window.
func AverageMonthly(ct models.CategoryTotal) decimal.Decimal {
	if ct.MonthsInWindow <= 0 {
		return decimal.Zero
	}
	return ct.TotalMagnitude.Div(decimal.NewFromInt(int64(ct.MonthsInWindow)))
}
