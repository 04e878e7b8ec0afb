package analytics

import (
	"context"
	"fmt"
	"time"

	"famfin-server/src/logger"
	"famfin-server/src/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultWindowMonths = 3

type Store interface {
	ListTransactions(ctx context.Context, familyID uuid.UUID, filter models.TransactionFilter) ([]models.LedgerTransaction, error)
	ListGoals(ctx context.Context, familyID uuid.UUID) ([]models.Goal, error)
	ListCategories(ctx context.Context, familyID uuid.UUID) ([]models.Category, error)
}

// ReportCache holds computed reports until the family's ledger changes.
// SetReport refuses a report whose generation is no longer current.
type ReportCache interface {
	GetReport(familyID uuid.UUID, window int) (*models.InsightReport, bool)
	Generation(familyID uuid.UUID) uint64
	SetReport(familyID uuid.UUID, window int, generation uint64, report *models.InsightReport) bool
}

type Service struct {
	store      Store
	cache      ReportCache
	summarizer *Summarizer
	now        func() time.Time
}

func NewService(store Store, cache ReportCache, summarizer *Summarizer) *Service {
	return &Service{
		store:      store,
		cache:      cache,
		summarizer: summarizer,
		now:        time.Now,
	}
}

// Report computes budget recommendations, anomalies and forecasts for the
// family over a trailing window and attaches an AI summary when available.
func (s *Service) Report(ctx context.Context, familyID uuid.UUID, window int) (*models.InsightReport, error) {
	if window <= 0 {
		window = DefaultWindowMonths
	}
	var generation uint64
	if s.cache != nil {
		if cached, ok := s.cache.GetReport(familyID, window); ok {
			return cached, nil
		}
		generation = s.cache.Generation(familyID)
	}

	now := s.now().UTC()
	var (
		txns       []models.LedgerTransaction
		goals      []models.Goal
		categories []models.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txns, err = s.store.ListTransactions(gctx, familyID, models.TransactionFilter{
			Status:      models.StatusReconciled,
			Direction:   models.DirectionExpense,
			From:        WindowStart(now, window),
			Categorized: true,
		})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		goals, err = s.store.ListGoals(gctx, familyID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx, familyID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &models.InsightReport{
		FamilyID:        familyID,
		WindowMonths:    window,
		GeneratedAt:     now,
		Recommendations: RecommendBudgets(Aggregate(txns, window), goals, now),
		Anomalies:       DetectAnomalies(txns),
		Forecasts:       Forecast(BuildSeries(txns)),
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID.String()] = c.Name
	}
	report.Summary = s.summarizer.Summarize(ctx, report, names)

	if s.cache != nil && !s.cache.SetReport(familyID, window, generation, report) {
		log := logger.FromContext(ctx)
		log.Debug().Str("family_id", familyID.String()).Msg("Ledger changed while computing report, not caching it")
	}
	return report, nil
}
