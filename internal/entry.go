// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/openkit/internal/api"
	"github.com/starford/openkit/internal/kernel"
	"github.com/starford/openkit/internal/mcpserver"
	"github.com/starford/openkit/internal/sse"
	"github.com/starford/openkit/internal/watch"
)

// NewLogger returns a JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// OpenKernel builds a kernel service for root from cfg, with the history
// database opened. The returned close func releases the database.
func OpenKernel(cfg *Config, root string, logger *slog.Logger) (*kernel.Service, func() error, error) {
	db, err := kernel.OpenHistory(root, cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init history: %w", err)
	}
	svc, err := kernel.New(root,
		kernel.WithDocsDirs(cfg.Memory.DocsDirs),
		kernel.WithHealthFile(cfg.Memory.HealthFile),
		kernel.WithHistory(db),
		kernel.WithLogger(logger),
	)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return svc, db.Close, nil
}

func (a *application) setup() error {
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	if a.projectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("detect project root: %w", err)
		}
		a.projectRoot = wd
	}
	if a.logger == nil {
		a.logger = NewLogger(os.Stderr, a.config.App.LogLevel)
	}
	if a.version == "" {
		a.version = "dev"
	}
	return nil
}

// Serve runs the HTTP API, the SSE broker and the docs watcher until ctx is
// cancelled or a shutdown signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}
	if err := app.setup(); err != nil {
		return err
	}

	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	svc, closeKernel, err := OpenKernel(cfg, app.projectRoot, logger)
	if err != nil {
		return err
	}
	defer closeKernel()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_root", svc.Root()),
		slog.String("docs_root", svc.DocsRoot()),
		slog.String("history_path", cfg.History.Path),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.Watch.Throttle)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, broker.PublishDoctor)

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
	r.Get("/health/ready", readyHandler(svc))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-run the doctor on docs changes and push results to SSE clients.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := watch.Watch(gCtx, svc, svc.DocsRoot(), logger, broker.PublishDoctor,
				watch.WithWrite(true),
				watch.WithDebounce(cfg.Watch.Debounce),
			)
			if err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
			return nil
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// readyHandler reports 503 until the docs root exists.
func readyHandler(svc *kernel.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if info, err := os.Stat(svc.DocsRoot()); err != nil || !info.IsDir() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"docs root missing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ServeMCP serves the MCP tools on stdin/stdout. Logs go to stderr so the
// protocol stream stays clean.
func ServeMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}
	if err := app.setup(); err != nil {
		return err
	}

	svc, closeKernel, err := OpenKernel(app.config, app.projectRoot, app.logger)
	if err != nil {
		return err
	}
	defer closeKernel()

	app.logger.Info("MCP server starting",
		slog.String("project_root", svc.Root()),
		slog.String("docs_root", svc.DocsRoot()))

	return mcpserver.New(svc, app.version).ServeStdio()
}
