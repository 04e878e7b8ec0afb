package analytics

import (
	"math"
	"sort"
	"time"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
}

// BuildSeries buckets reconciled expenses by calendar month per category.
// MonthIndex starts at 1 for a category's first month with spend, and gaps
// keep their distance.
func BuildSeries(txns []models.LedgerTransaction) models.CategorySpendSeries {
	buckets := make(map[uuid.UUID]map[time.Time]decimal.Decimal)
	for _, t := range txns {
		if !IsReconciledExpense(t) {
			continue
		}
		m, ok := buckets[*t.CategoryID]
		if !ok {
			m = make(map[time.Time]decimal.Decimal)
			buckets[*t.CategoryID] = m
		}
		month := monthOf(t.Date)
		m[month] = m[month].Add(t.Amount)
	}

	series := make(models.CategorySpendSeries, len(buckets))
	for categoryID, m := range buckets {
		months := make([]time.Time, 0, len(m))
		for month := range m {
			months = append(months, month)
		}
		sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

		points := make([]models.SpendPoint, len(months))
		for i, month := range months {
			points[i] = models.SpendPoint{
				MonthIndex: monthsBetween(months[0], month) + 1,
				Month:      month,
				Total:      m[month],
			}
		}
		series[categoryID] = points
	}
	return series
}

// LinearFit is an ordinary least-squares fit of total against month index.
// With fewer than two distinct indices the slope is 0 and the intercept is
// the mean.
func LinearFit(points []models.SpendPoint) (slope, intercept float64) {
	n := float64(len(points))
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY float64
	for _, p := range points {
		y, _ := p.Total.Float64()
		sumX += float64(p.MonthIndex)
		sumY += y
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy float64
	for _, p := range points {
		y, _ := p.Total.Float64()
		dx := float64(p.MonthIndex) - meanX
		sxx += dx * dx
		sxy += dx * (y - meanY)
	}
	if sxx == 0 {
		return 0, meanY
	}
	slope = sxy / sxx
	return slope, meanY - slope*meanX
}

// ForecastCategory projects the month after the last point, floored at 0.
func ForecastCategory(categoryID uuid.UUID, points []models.SpendPoint) models.ForecastRecord {
	rec := models.ForecastRecord{CategoryID: categoryID, Points: len(points), Projected: decimal.Zero}
	if len(points) == 0 {
		return rec
	}
	last := points[len(points)-1]
	rec.Slope, rec.Intercept = LinearFit(points)
	rec.NextMonth = last.Month.AddDate(0, 1, 0)

	projected := rec.Intercept + rec.Slope*float64(last.MonthIndex+1)
	if projected < 0 || math.IsNaN(projected) {
		projected = 0
	}
	rec.Projected = decimal.NewFromFloat(projected).Round(2)
	return rec
}

func Forecast(series models.CategorySpendSeries) []models.ForecastRecord {
	out := make([]models.ForecastRecord, 0, len(series))
	for categoryID, points := range series {
		out = append(out, ForecastCategory(categoryID, points))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CategoryID.String() < out[j].CategoryID.String()
	})
	return out
}
