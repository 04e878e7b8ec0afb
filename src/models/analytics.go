package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SpendPoint struct {
	MonthIndex int             `json:"month_index"`
	Month      time.Time       `json:"month"`
	Total      decimal.Decimal `json:"total"`
}

// CategorySpendSeries maps a category to its monthly expense totals, oldest
// month first.
type CategorySpendSeries map[uuid.UUID][]SpendPoint

type CategoryTotal struct {
	TotalMagnitude decimal.Decimal `json:"total_magnitude"`
	MonthsInWindow int             `json:"months_in_window"`
}

type BudgetRecommendation struct {
	CategoryID         uuid.UUID       `json:"category_id"`
	AverageMonthly     decimal.Decimal `json:"average_monthly"`
	BaseRecommendation decimal.Decimal `json:"base_recommendation"`
	GoalAdjustment     decimal.Decimal `json:"goal_adjustment"`
	Recommended        decimal.Decimal `json:"recommended"`
}

type AnomalyRecord struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	CategoryID    uuid.UUID       `json:"category_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Mean          decimal.Decimal `json:"mean"`
	StdDev        decimal.Decimal `json:"std_dev"`
	Threshold     decimal.Decimal `json:"threshold"`
}

type ForecastRecord struct {
	CategoryID uuid.UUID       `json:"category_id"`
	Slope      float64         `json:"slope"`
	Intercept  float64         `json:"intercept"`
	Points     int             `json:"points"`
	NextMonth  time.Time       `json:"next_month"`
	Projected  decimal.Decimal `json:"projected"`
}

type InsightReport struct {
	FamilyID        uuid.UUID              `json:"family_id"`
	WindowMonths    int                    `json:"window_months"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Recommendations []BudgetRecommendation `json:"recommendations"`
	Anomalies       []AnomalyRecord        `json:"anomalies"`
	Forecasts       []ForecastRecord       `json:"forecasts"`
	Summary         string                 `json:"summary,omitempty"`
}
