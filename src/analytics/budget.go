package analytics

import (
	"sort"
	"time"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var budgetBuffer = decimal.RequireFromString("1.05")

// MonthsUntil counts calendar months from now to target, at least one.
func MonthsUntil(now, target time.Time) int {
	months := (target.Year()-now.Year())*12 + int(target.Month()-now.Month())
	if months < 1 {
		return 1
	}
	return months
}

// MonthlyGoalAllocation is what the family has to save each month to reach
// all active goals that still have a future target date.
func MonthlyGoalAllocation(goals []models.Goal, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, g := range goals {
		if !g.Active || g.TargetDate == nil || !g.TargetDate.After(now) {
			continue
		}
		remaining := g.TargetAmount.Sub(g.CurrentAmount)
		monthly := remaining.Div(decimal.NewFromInt(int64(MonthsUntil(now, *g.TargetDate))))
		if monthly.IsPositive() {
			total = total.Add(monthly)
		}
	}
	return total
}

// RecommendBudgets adds a 5% buffer to each category's average monthly spend,
// then takes an equal share of the monthly goal allocation off every
// category, never going below zero.
func RecommendBudgets(totals map[uuid.UUID]models.CategoryTotal, goals []models.Goal, now time.Time) []models.BudgetRecommendation {
	if len(totals) == 0 {
		return []models.BudgetRecommendation{}
	}

	share := decimal.Zero
	if allocation := MonthlyGoalAllocation(goals, now); allocation.IsPositive() {
		share = allocation.Div(decimal.NewFromInt(int64(len(totals))))
	}

	recs := make([]models.BudgetRecommendation, 0, len(totals))
	for categoryID, ct := range totals {
		avg := AverageMonthly(ct)
		base := avg.Mul(budgetBuffer).Round(2)
		recommended := base.Sub(share)
		if recommended.IsNegative() {
			recommended = decimal.Zero
		}
		recs = append(recs, models.BudgetRecommendation{
			CategoryID:         categoryID,
			AverageMonthly:     avg.Round(2),
			BaseRecommendation: base,
			GoalAdjustment:     share.Round(2),
			Recommended:        recommended.Round(2),
		})
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CategoryID.String() < recs[j].CategoryID.String()
	})
	return recs
}
