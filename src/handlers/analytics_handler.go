package handlers

import (
	"context"
	"net/http"

	"famfin-server/src/logger"
	"famfin-server/src/models"
	"famfin-server/src/util"

	"github.com/google/uuid"
)

type ReportService interface {
	Report(ctx context.Context, familyID uuid.UUID, window int) (*models.InsightReport, error)
}

// analyticsHandler loads the family's report for the requested window and
// writes the part of it that view selects.
func analyticsHandler(svc ReportService, defaultWindow int, view func(*models.InsightReport) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		famID, ok := familyID(w, r)
		if !ok {
			return
		}
		window, err := util.ParseWindow(r.URL.Query().Get("window"), defaultWindow)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		report, err := svc.Report(r.Context(), famID, window)
		if err != nil {
			log.Error().Err(err).Int("window", window).Msg("Failed to build analytics report")
			http.Error(w, "failed to build report", statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, view(report))
	}
}

func GetInsightReport(svc ReportService, defaultWindow int) http.HandlerFunc {
	return analyticsHandler(svc, defaultWindow, func(rep *models.InsightReport) interface{} { return rep })
}

func GetBudgetRecommendations(svc ReportService, defaultWindow int) http.HandlerFunc {
	return analyticsHandler(svc, defaultWindow, func(rep *models.InsightReport) interface{} { return rep.Recommendations })
}

func GetAnomalies(svc ReportService, defaultWindow int) http.HandlerFunc {
	return analyticsHandler(svc, defaultWindow, func(rep *models.InsightReport) interface{} { return rep.Anomalies })
}

func GetForecast(svc ReportService, defaultWindow int) http.HandlerFunc {
	return analyticsHandler(svc, defaultWindow, func(rep *models.InsightReport) interface{} { return rep.Forecasts })
}
