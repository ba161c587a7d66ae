package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study-assistant/internal/app"
	"study-assistant/internal/config"
	"study-assistant/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API indexes study material uploaded into sessions and answers questions from it.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Study Assistant API
//   description: |
//     Retrieval-augmented question answering over documents uploaded into a study session.
//     Upload plain text, markdown or PDF files, then query the most relevant passages or ask
//     questions answered from them with page-level citations.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

// janitorInterval is how often idle sessions are looked for.
const janitorInterval = time.Minute

// shutdownTimeout bounds how long in-flight requests may take to finish on shutdown.
const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			slog.Error("Failed to close resources", "error", err)
		}
	}()

	// Indexes are in memory only, so sessions left over from a previous run are unusable
	purged, err := stack.Sessions.PurgeStored(ctx)
	if err != nil {
		slog.Warn("Failed to purge stale sessions", "error", err)
	} else if purged > 0 {
		slog.Info("Purged stale sessions", "count", purged)
	}

	go stack.Sessions.RunJanitor(ctx, janitorInterval, cfg.SessionIdleTimeout)

	router := http.NewRouter(&http.Deps{
		StudyService:   stack.Service,
		VectorStore:    stack.Vectors,
		Sessions:       stack.Sessions,
		LLMEnabled:     stack.Engine != nil,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("Failed to listen", "addr", server.Addr, "error", err)
		return
	}

	slog.Info("Starting API server", "addr", server.Addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName, "disabled", cfg.LLMDisabled)
	if err := serve(ctx, server, listener, shutdownTimeout); err != nil {
		slog.Error("API server failed", "error", err)
		return
	}
	slog.Info("API server stopped")
}

// serve runs server on listener until ctx is cancelled, then drains in-flight requests.
// It returns only after Shutdown has finished.
func serve(ctx context.Context, server *nethttp.Server, listener net.Listener, timeout time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(listener)
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
