package api

import (
	"net/http"

	"famfin-server/src/analytics"
	"famfin-server/src/config"
	"famfin-server/src/db"
	"famfin-server/src/gocardless"
	"famfin-server/src/handlers"
	"famfin-server/src/middleware"
	famplaid "famfin-server/src/plaid"
	"famfin-server/src/rules"
	"famfin-server/src/syncer"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plaid/plaid-go/v41/plaid"
	"github.com/rs/zerolog"
)

// Server carries everything the routes are wired to. PlaidClient and
// GoCardless may be nil when the provider is not configured.
type Server struct {
	Config      config.Config
	Log         zerolog.Logger
	Pool        *pgxpool.Pool
	Cache       *db.Cache
	PlaidClient *plaid.APIClient
	Verifier    *famplaid.Verifier
	GoCardless  *gocardless.Client
	Sync        *syncer.Service
	Rules       *rules.Engine
	Analytics   *analytics.Service
}

func NewRouter(s Server) *chi.Mux {
	pool := s.Pool
	window := s.Config.AnalyticsWindowMonths

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(s.Log))
	r.Use(middleware.Recovery)
	r.Use(middleware.CORSMiddleware(s.Config.AllowedOrigins))
	r.Use(middleware.DemoModeMiddleware(s.Config.DemoMode))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if s.PlaidClient != nil {
			r.Post("/plaid/webhook", handlers.PlaidWebhook(s.Verifier, s.Sync))
		}

		// Protected routes
		r.With(middleware.JWTAuthMiddleware([]byte(s.Config.JWTSecret))).Group(func(r chi.Router) {
			// Plaid
			if s.PlaidClient != nil {
				r.Post("/plaid/link-token", handlers.CreateLinkToken(s.PlaidClient))
				r.Post("/plaid/exchange-public-token", handlers.ExchangePublicToken(s.PlaidClient, pool))
			}

			// Accounts
			if s.GoCardless != nil {
				r.Post("/accounts/gocardless", handlers.LinkGoCardlessAccount(s.GoCardless, pool))
			}
			r.Get("/accounts", handlers.GetAccounts(pool))
			r.Post("/accounts/{account_id}/sync", handlers.SyncAccount(s.Sync))
			r.Delete("/accounts/{account_id}/transactions", handlers.ResetAccountTransactions(s.Sync))

			// Transactions
			r.Get("/transactions", handlers.GetTransactions(pool))
			r.Put("/transactions/{transaction_id}/category", handlers.CategorizeTransaction(pool, s.Cache))
			r.Put("/transactions/{transaction_id}/status", handlers.UpdateTransactionStatus(pool, s.Cache))

			// Categories
			r.Post("/categories", handlers.CreateCategory(pool))
			r.Get("/categories", handlers.GetCategories(pool))

			// Budgets
			r.Post("/budgets", handlers.CreateBudget(pool))
			r.Get("/budgets", handlers.GetAllBudgetsForFamily(pool))
			r.Get("/budgets/{budget_id}", handlers.GetBudgetByID(pool))
			r.Put("/budgets/{budget_id}", handlers.UpdateBudget(pool))
			r.Delete("/budgets/{budget_id}", handlers.DeleteBudget(pool))

			// Goals
			r.Post("/goals", handlers.CreateGoal(pool, s.Cache))
			r.Get("/goals", handlers.GetGoals(pool))
			r.Get("/goals/{goal_id}", handlers.GetGoalByID(pool))
			r.Put("/goals/{goal_id}", handlers.UpdateGoal(pool, s.Cache))
			r.Delete("/goals/{goal_id}", handlers.DeleteGoal(pool, s.Cache))

			// Transaction Rules
			r.Post("/transaction-rules", handlers.CreateTransactionRule(pool))
			r.Post("/transaction-rules/trigger", handlers.TriggerTransactionRules(s.Rules, s.Cache))
			r.Get("/transaction-rules", handlers.GetAllTransactionRules(pool))
			r.Get("/transaction-rules/{rule_id}", handlers.GetTransactionRuleByID(pool))
			r.Put("/transaction-rules/{rule_id}", handlers.UpdateTransactionRule(pool))
			r.Delete("/transaction-rules/{rule_id}", handlers.DeleteTransactionRule(pool))

			// Analytics
			r.Get("/analytics/report", handlers.GetInsightReport(s.Analytics, window))
			r.Get("/analytics/budgets", handlers.GetBudgetRecommendations(s.Analytics, window))
			r.Get("/analytics/anomalies", handlers.GetAnomalies(s.Analytics, window))
			r.Get("/analytics/forecast", handlers.GetForecast(s.Analytics, window))
		})
	})

	return r
}
