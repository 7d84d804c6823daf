package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmeyerson/repboard/internal/aggregator"
	"github.com/dmeyerson/repboard/internal/api"
	"github.com/dmeyerson/repboard/internal/auth"
	"github.com/dmeyerson/repboard/internal/cache"
	"github.com/dmeyerson/repboard/internal/config"
	"github.com/dmeyerson/repboard/internal/fetcher"
	"github.com/dmeyerson/repboard/internal/metrics"
	"github.com/dmeyerson/repboard/internal/notify"
	"github.com/dmeyerson/repboard/internal/reports"
	"github.com/dmeyerson/repboard/internal/scheduler"
	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/dmeyerson/repboard/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Dur("fetch_interval", cfg.FetchInterval).
		Msg("starting repboard server")

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create store
	store, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}

	// Create report cache
	reportCache := cache.NewReportCache(cfg.CacheTTL)

	// Create WebSocket hub
	hub := notify.NewHub(log.Logger)
	go hub.Run()
	wsHandler := notify.NewHandler(hub, cfg.AllowedOrigins, log.Logger)

	// Create fetchers
	callFetcher := fetcher.NewGoToFetcher(cfg, store, log.Logger)
	emailFetcher := fetcher.NewOutlookFetcher(cfg, store, log.Logger)
	leadFetcher := fetcher.NewSheetsFetcher(cfg, store, log.Logger)

	// Create services
	aggService := aggregator.NewService(store, reportCache, log.Logger)
	reportService := reports.NewService(store, reportCache, log.Logger)

	// Create background scheduler
	sched := scheduler.NewScheduler(callFetcher, emailFetcher, leadFetcher, aggService, reportCache, hub, cfg.FetchInterval, log.Logger)
	go sched.Start(ctx)

	// Create API handlers
	fetchHandler := api.NewFetchHandler(callFetcher, emailFetcher, leadFetcher, aggService, reportCache, hub, log.Logger)
	reportsHandler := api.NewReportsHandler(reportService, log.Logger)
	comparisonHandler := api.NewComparisonHandler(aggService, log.Logger)
	averageHandler := api.NewAverageHandler(aggService, log.Logger)
	usersHandler := api.NewUsersHandler(store, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes (no auth required)
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/ws", wsHandler.ServeHTTP)

		r.Route("/api", func(r chi.Router) {
			r.Get("/users", usersHandler.HandleListUsers)

			r.Get("/reports/calls", reportsHandler.HandleCallReport)
			r.Get("/reports/email", reportsHandler.HandleEmailReport)
			r.Get("/reports/b2b", reportsHandler.HandleB2BReport)

			r.Get("/comparison/{userId}", comparisonHandler.HandleComparison)

			// Mutating endpoints require the manager role
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireManager)

				r.Post("/fetch/calls", fetchHandler.HandleFetchCalls)
				r.Post("/fetch/email", fetchHandler.HandleFetchEmail)
				r.Post("/fetch/b2b", fetchHandler.HandleFetchB2B)

				r.Post("/average/calculate", averageHandler.HandleCalculate)
				r.Post("/average/recalculate", averageHandler.HandleRecalculate)
			})
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the scheduler
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"repboard"}`)
}
