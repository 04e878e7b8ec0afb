package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"famfin-server/src/ai"
	"famfin-server/src/analytics"
	"famfin-server/src/api"
	"famfin-server/src/config"
	"famfin-server/src/db"
	dbsql "famfin-server/src/db/sql"
	"famfin-server/src/gocardless"
	"famfin-server/src/logger"
	"famfin-server/src/models"
	"famfin-server/src/pipeline"
	famplaid "famfin-server/src/plaid"
	"famfin-server/src/rules"
	"famfin-server/src/syncer"
)

func main() {
	cfg, err := config.Load()
	bootLog := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// Connect to database
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("DB connection failed")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("DB migration failed")
	}

	cache, err := db.NewCache()
	if err != nil {
		log.Fatal().Err(err).Msg("Cache init failed")
	}
	defer cache.Close()

	store := dbsql.NewStore(pool)
	engine := rules.NewEngine(store)
	fetchers := map[models.Provider]syncer.Fetcher{}
	srv := api.Server{
		Config: cfg,
		Log:    log,
		Pool:   pool,
		Cache:  cache,
		Rules:  engine,
	}

	if cfg.PlaidEnabled() {
		client, err := famplaid.NewPlaidClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv)
		if err != nil {
			log.Fatal().Err(err).Msg("Plaid client init failed")
		}
		srv.PlaidClient = client
		srv.Verifier = famplaid.NewVerifier(client, cache)
		fetchers[models.ProviderPlaid] = famplaid.NewTransactionFetcher(client)
	} else {
		log.Warn().Msg("Plaid credentials not set, Plaid routes disabled")
	}

	if cfg.GoCardlessEnabled() {
		gc := gocardless.NewClient(cfg.GoCardlessBaseURL, cfg.GoCardlessSecretID, cfg.GoCardlessSecretKey, nil)
		srv.GoCardless = gc
		fetchers[models.ProviderGoCardless] = gc
	} else {
		log.Warn().Msg("GoCardless credentials not set, GoCardless routes disabled")
	}

	var completer analytics.Completer
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Gemini client init failed")
		}
		completer = gemini
	}

	srv.Sync = syncer.NewService(store, pipeline.NewImporter(store), fetchers, engine, cache)
	srv.Analytics = analytics.NewService(store, cache, analytics.NewSummarizer(completer))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("API server running")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
