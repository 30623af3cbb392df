// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vantage/internal/agent"
	"github.com/starford/vantage/internal/api"
	"github.com/starford/vantage/internal/board"
	"github.com/starford/vantage/internal/chat"
	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/mcpserver"
	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/seed"
	"github.com/starford/vantage/internal/sse"
	"github.com/starford/vantage/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("agent_base_url", cfg.Agent.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize attachment storage.
	files, err := storage.NewFS(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the SQLite graph store.
	db, err := graph.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init graph store: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	anchor := models.Point{X: cfg.Board.AnchorX, Y: cfg.Board.AnchorY}
	boards := board.NewService(db, broker, anchor)

	// Agent client, knowledge map builder, and chat wiring.
	agentClient := agent.NewClient(cfg.Agent.BaseURL, cfg.Agent.Model, cfg.Agent.Timeout)
	mapGen := agent.NewKnowledgeMapBuilder(agentClient, boards, logger)
	status := chat.NewBrokerStatus(broker)
	chatHandler := api.NewChatHandler(db, agentClient, status, mapGen, anchor, logger)

	// Seed dataset import.
	importer := seed.NewImporter(boards, logger)
	if cfg.Board.Seed != "" {
		if err := importer.ImportFile(ctx, cfg.Board.Seed); err != nil {
			logger.Warn("seed import failed", slog.String("error", err.Error()))
		}
	}

	apiRouter := api.NewRouter(boards, files, chatHandler, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-import the seed dataset when it changes.
	if cfg.Board.Seed != "" && cfg.Board.Watch {
		g.Go(func() error {
			return seed.Watch(gCtx, importer, cfg.Board.Seed, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves whiteboard tools over MCP stdio. Logs go to stderr so
// stdout stays clean for the protocol.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := graph.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init graph store: %w", err)
	}
	defer db.Close()

	logger.Info("MCP server starting on stdio", slog.String("sqlite_path", cfg.SQLite.Path))
	return mcpserver.New(db).ServeStdio()
}

// RunSeed imports a dataset file once and exits.
func RunSeed(ctx context.Context, cfg *Config, path string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if path == "" {
		path = cfg.Board.Seed
	}
	if path == "" {
		return fmt.Errorf("no dataset file given (flag or board.seed config)")
	}

	db, err := graph.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init graph store: %w", err)
	}
	defer db.Close()

	anchor := models.Point{X: cfg.Board.AnchorX, Y: cfg.Board.AnchorY}
	boards := board.NewService(db, nil, anchor)
	return seed.NewImporter(boards, logger).ImportFile(ctx, path)
}
