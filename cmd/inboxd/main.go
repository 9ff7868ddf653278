// Package main is the entry point for the inbox daemon.
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
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/skportal/feedback-inbox/internal/config"
	"github.com/skportal/feedback-inbox/internal/handler"
	"github.com/skportal/feedback-inbox/internal/inbox"
	"github.com/skportal/feedback-inbox/internal/middleware"
	"github.com/skportal/feedback-inbox/internal/operator"
	"github.com/skportal/feedback-inbox/internal/push"
	"github.com/skportal/feedback-inbox/internal/upstream"
	"github.com/skportal/feedback-inbox/pkg/logger"
	"github.com/skportal/feedback-inbox/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting inbox daemon")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "feedback-inbox", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Parse the operator identity from the configured session token. It is
	// injected explicitly into the engine; nothing reads it from globals.
	who, err := operator.FromToken(cfg.UpstreamToken, cfg.JWTSecret)
	if err != nil {
		log.Warn("could not parse operator identity from session token, sends will carry no sender name", zap.Error(err))
	}

	// Upstream client and sync engine
	api := upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamToken, cfg.UpstreamTimeout)
	engine := inbox.NewEngine(api, who, log)

	// Prime the active list before serving; a failure is tolerated, the
	// poller retries on its cadence.
	if err := engine.List.LoadActive(ctx); err != nil {
		log.Warn("initial active list load failed", zap.Error(err))
	}

	// Start the polling scheduler
	pollCtx, stopPolling := context.WithCancel(ctx)
	poller := inbox.NewPoller(engine, cfg.PollFocusInterval, cfg.PollIdleInterval, log)
	go poller.Run(pollCtx)

	// Optional NATS push channel
	var pushClient *push.Client
	if cfg.NATSURL != "" {
		pushClient, err = push.Connect(push.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("push channel unavailable, continuing on polling only", zap.Error(err))
			pushClient = nil
		} else {
			defer pushClient.Close()
			subscriber := push.NewSubscriber(pushClient, engine, log)
			if err := subscriber.Start(); err != nil {
				log.Warn("push subscribe failed, continuing on polling only", zap.Error(err))
			} else {
				defer subscriber.Stop()
			}
		}
	}

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(pushClient)
	inboxHandler := handler.NewInboxHandler(engine, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/inbox", func(r chi.Router) {
			r.Get("/conversations", inboxHandler.List)
			r.Get("/agents", inboxHandler.Agents)
			r.Delete("/open", inboxHandler.CloseOpen)

			r.Route("/conversations/{id}", func(r chi.Router) {
				r.Get("/", inboxHandler.Open)
				r.Post("/messages", inboxHandler.Send)
				r.Put("/status", inboxHandler.SetStatus)
				r.Put("/assign", inboxHandler.Assign)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	stopPolling()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("stopped")
}
