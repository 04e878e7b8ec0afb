package analytics

import (
	"math"
	"sort"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

type Stats struct {
	Count  int
	Mean   decimal.Decimal
	StdDev decimal.Decimal
}

// Threshold is the z-score cut-off, mean + 2 standard deviations.
func (s Stats) Threshold() decimal.Decimal {
	return s.Mean.Add(s.StdDev.Mul(two))
}

// IsAnomalous is strict: an amount exactly on the threshold is not flagged.
func (s Stats) IsAnomalous(amount decimal.Decimal) bool {
	return amount.GreaterThan(s.Threshold())
}

// Describe computes the mean and population standard deviation of amounts.
func Describe(amounts []decimal.Decimal) (Stats, bool) {
	if len(amounts) == 0 {
		return Stats{}, false
	}
	n := decimal.NewFromInt(int64(len(amounts)))
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	mean := sum.Div(n)

	sq := decimal.Zero
	for _, a := range amounts {
		d := a.Sub(mean)
		sq = sq.Add(d.Mul(d))
	}
	variance, _ := sq.Div(n).Float64()

	return Stats{
		Count:  len(amounts),
		Mean:   mean,
		StdDev: decimal.NewFromFloat(math.Sqrt(variance)),
	}, true
}

// DetectAnomalies flags reconciled expenses that sit above their category's
// mean + 2σ. Results are ordered by amount, largest first.
func DetectAnomalies(txns []models.LedgerTransaction) []models.AnomalyRecord {
	byCategory := make(map[uuid.UUID][]models.LedgerTransaction)
	for _, t := range txns {
		if !IsReconciledExpense(t) {
			continue
		}
		byCategory[*t.CategoryID] = append(byCategory[*t.CategoryID], t)
	}

	anomalies := []models.AnomalyRecord{}
	for categoryID, group := range byCategory {
		amounts := make([]decimal.Decimal, len(group))
		for i, t := range group {
			amounts[i] = t.Amount
		}
		stats, ok := Describe(amounts)
		if !ok {
			continue
		}
		threshold := stats.Threshold()
		for _, t := range group {
			if !stats.IsAnomalous(t.Amount) {
				continue
			}
			anomalies = append(anomalies, models.AnomalyRecord{
				TransactionID: t.ID,
				CategoryID:    categoryID,
				Date:          t.Date,
				Description:   t.Description,
				Amount:        t.Amount,
				Mean:          stats.Mean.Round(2),
				StdDev:        stats.StdDev.Round(2),
				Threshold:     threshold.Round(2),
			})
		}
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if !anomalies[i].Amount.Equal(anomalies[j].Amount) {
			return anomalies[i].Amount.GreaterThan(anomalies[j].Amount)
		}
		return anomalies[i].Date.Before(anomalies[j].Date)
	})
	return anomalies
}
