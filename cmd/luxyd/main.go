// cmd/luxyd/main.go
// Package main implements the entry point for luxyd, the gallery engine
// daemon. It wires the local state, the content gateway client, the session
// and the engine, and serves the presentation API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/P3dro7wz/Luxy/internal/config"
	"github.com/P3dro7wz/Luxy/internal/engine"
	"github.com/P3dro7wz/Luxy/internal/event"
	"github.com/P3dro7wz/Luxy/internal/gateway"
	"github.com/P3dro7wz/Luxy/internal/media"
	"github.com/P3dro7wz/Luxy/internal/metrics"
	"github.com/P3dro7wz/Luxy/internal/model"
	"github.com/P3dro7wz/Luxy/internal/server"
	"github.com/P3dro7wz/Luxy/internal/session"
	"github.com/P3dro7wz/Luxy/internal/storage"
	"github.com/P3dro7wz/Luxy/internal/store"
	"github.com/P3dro7wz/Luxy/internal/telemetry"
)

// recentChanges is the number of changes kept for /v1/changes
const recentChanges = 200

// main initializes all components, starts the HTTP server, and handles graceful shutdown.
func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging for the application
	logLevel := slog.LevelInfo
	if cfg.IsDev() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	if _, err := telemetry.InitTracer("luxyd", nil, cfg.IsDev()); err != nil {
		logger.Error("failed to initialize OpenTelemetry tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.ShutdownTracer(ctx)
	}()

	// Initialize local state (BadgerDB or in-memory)
	var state storage.Store
	if cfg.StateDir != "" {
		state, err = storage.NewBadger(cfg.StateDir)
		if err != nil {
			logger.Error("failed to open state directory", "dir", cfg.StateDir, "error", err)
			os.Exit(1)
		}
	} else {
		state = storage.NewMemory()
	}
	defer state.Close()

	m := metrics.NewMetrics()

	gw, err := gateway.New(gateway.Config{
		BaseURL: cfg.GatewayURL,
		Timeout: cfg.GatewayTimeout,
		Tokens:  state,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		logger.Error("failed to create gateway client", "error", err)
		os.Exit(1)
	}

	sess := session.New()
	sessions := session.NewManager(gw, state, sess, logger)
	gw.OnUnauthorized(sessions.Teardown)

	// Change feed (NATS JetStream or no-op), recorded for /v1/changes
	feed := event.NewRecorder(recentChanges, event.NewPublisher(cfg.NATSURL, logger))
	defer feed.Close()

	// Preview staging for pending uploads (S3 or inline)
	var stager media.Stager = media.Inline{}
	if cfg.S3Endpoint != "" {
		s3, err := media.NewS3Stager(cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey, cfg.PreviewTTL)
		if err != nil {
			logger.Error("failed to initialize S3 stager", "error", err)
			os.Exit(1)
		}
		stager = s3
	}

	eng := engine.New(engine.Deps{
		Store:     store.New(),
		Gateway:   gw,
		Session:   sess,
		Publisher: feed,
		Stager:    stager,
		Logger:    logger,
		Metrics:   m,
	})

	// Restore the session and fetch the catalog. An unreachable gateway is
	// not fatal: the API starts degraded and /v1/gallery/reload retries.
	startCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.GatewayTimeout)
	if err := sessions.Init(startCtx); err != nil {
		logger.Warn("session restore incomplete, starting degraded", "error", err)
	}
	if err := eng.Load(startCtx, model.ContentFilter{}); err != nil {
		logger.Warn("initial catalog load failed", "error", err)
	}
	cancel()

	handler := server.NewMux(server.Options{
		Engine:             eng,
		Sessions:           sessions,
		State:              state,
		Changes:            feed,
		Logger:             logger,
		Metrics:            m,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimit,
	})

	// Create HTTP server with timeout configuration
	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second, // Multipart uploads
		WriteTimeout: 2*cfg.GatewayTimeout + 10*time.Second,
	}

	// Start server in a separate goroutine
	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env, "gateway", cfg.GatewayURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Handle graceful shutdown
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Warn("pending operations did not finish", "error", err)
	}

	logger.Info("server exited")
}
