package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mawsool/insights-backend/internal/api"
	"github.com/mawsool/insights-backend/internal/auth"
	"github.com/mawsool/insights-backend/internal/config"
	"github.com/mawsool/insights-backend/internal/forecast"
	"github.com/mawsool/insights-backend/internal/genesys"
	"github.com/mawsool/insights-backend/internal/metrics"
	"github.com/mawsool/insights-backend/internal/refresh"
	"github.com/mawsool/insights-backend/internal/storage"
	"github.com/mawsool/insights-backend/internal/websocket"
	"github.com/mawsool/insights-backend/pkg/middleware"
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
		Str("queue", cfg.QueueName).
		Str("region", cfg.GenesysRegion).
		Dur("refresh_interval", cfg.RefreshInterval).
		Str("log_level", cfg.LogLevel).
		Msg("starting insights backend server")

	// Initialize JWKS for token verification (production mode only)
	if !cfg.SkipAuth {
		if issuer := os.Getenv("OIDC_ISSUER"); issuer != "" {
			if err := auth.InitJWKS(issuer); err != nil {
				log.Fatal().Err(err).Msg("failed to initialize JWKS")
			}
		}
	}

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create WebSocket hub
	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	// Create Genesys client
	tokens := genesys.NewTokenSource(cfg.GenesysClientID, cfg.GenesysClientSecret, cfg.GenesysRegion, log.Logger)
	client := genesys.NewClient(tokens, log.Logger)

	// Create store
	store, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}

	// Create refresh pipeline
	refreshService := refresh.NewService(client, store, hub, cfg.QueueName, cfg.RefreshInterval, log.Logger)
	go refreshService.Run(ctx)

	// Create handlers
	dashboardHandler := api.NewDashboardHandler(refreshService, log.Logger)
	plannerHandler := api.NewPlannerHandler(forecast.NewPlanner(), refreshService, log.Logger)
	historyHandler := api.NewHistoryHandler(store, refreshService, log.Logger)
	adminHandler := api.NewAdminHandler(store, log.Logger)
	wsHandler := websocket.NewHandler(hub, cfg, log.Logger,
		metrics.WebsocketConnections.Inc, metrics.WebsocketConnections.Dec)

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
	r.Get("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)

	// Add auth middleware for protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/ws", wsHandler.ServeHTTP)

		r.Route("/api", func(r chi.Router) {
			r.Post("/refresh", dashboardHandler.HandleRefresh)
			r.Get("/dashboard", dashboardHandler.HandleDashboard)
			r.Get("/customers", dashboardHandler.HandleCustomers)
			r.Get("/interactions", dashboardHandler.HandleInteractions)
			r.Get("/history", historyHandler.HandleIntervalHistory)

			r.Route("/planner", func(r chi.Router) {
				r.Get("/forecast", plannerHandler.HandleForecast)
				r.Get("/history", historyHandler.HandleForecastHistory)
				r.Post("/upload", plannerHandler.HandleUpload)
				r.Post("/scenario", plannerHandler.HandleScenario)
				r.Get("/view", plannerHandler.HandleView)
				r.Get("/export", plannerHandler.HandleExport)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(api.RequireAdmin)
				r.Post("/truncate", adminHandler.HandleTruncate)
			})
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
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

	// Stop the refresh pipeline
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
	fmt.Fprintf(w, `{"status":"ok","service":"insights-backend"}`)
}
