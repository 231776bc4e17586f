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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/graphlint/internal/api"
	"github.com/starford/graphlint/internal/apperr"
	"github.com/starford/graphlint/internal/graph"
	"github.com/starford/graphlint/internal/graphservice"
	"github.com/starford/graphlint/internal/index"
	"github.com/starford/graphlint/internal/lint"
	"github.com/starford/graphlint/internal/mcpserver"
	"github.com/starford/graphlint/internal/report"
	"github.com/starford/graphlint/internal/sse"
	"github.com/starford/graphlint/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{stdout: os.Stdout, stderr: os.Stderr, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return app, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger. Logs go to stderr because
// stdout carries the report.
func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// fail prints a fatal diagnostic in the CLI's format.
func (a *application) fail(err error) {
	fmt.Fprintf(a.stderr, "ERROR: %v\n", err)
}

// openIndex opens the configured index. It returns a nil GraphIndex when
// none is configured.
func (a *application) openIndex() (index.GraphIndex, error) {
	if !a.config.Index.Enabled() {
		return nil, nil
	}
	db, err := index.Open(a.config.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	return db, nil
}

// newService wires storage, the optional index and the lint engine.
func (a *application) newService(logger *slog.Logger) (*graphservice.Service, func(), error) {
	cfg := a.config
	store, err := storage.NewFS(cfg.Lint.Root, cfg.Lint.StorageOptions())
	if err != nil {
		return nil, nil, err
	}
	db, err := a.openIndex()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if db != nil {
		closeFn = func() { _ = db.Close() }
	}
	return graphservice.NewService(store, cfg.Lint.Options(logger), db, logger), closeFn, nil
}

func exitFor(err error) int {
	if errors.Is(err, apperr.ErrRootNotFound) {
		return report.ExitRootNotFound
	}
	return report.ExitUsage
}

// Lint runs one lint pass, renders the report and returns the process exit
// status. With watch enabled it re-renders after every change until ctx is
// cancelled or a signal arrives.
func Lint(ctx context.Context, opts ...Option) int {
	app, err := newApplication(opts)
	if err != nil {
		app.fail(err)
		return report.ExitUsage
	}
	cfg := app.config
	logger := app.newLogger()

	svc, closeFn, err := app.newService(logger)
	if err != nil {
		app.fail(err)
		return exitFor(err)
	}
	defer closeFn()

	rep, err := svc.Refresh(ctx)
	if err != nil {
		app.fail(err)
		return report.ExitUsage
	}
	if err := report.Render(app.stdout, rep, cfg.Lint.Format); err != nil {
		// Downstream reader went away.
		return report.ExitFindings
	}
	code := report.ExitCode(rep)
	if !cfg.Lint.Watch {
		return code
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeFailed := false
	err = lint.Watch(ctx, svc.Root(), logger, func() {
		rep, err := svc.Refresh(ctx)
		if err != nil {
			logger.Error("re-lint failed", slog.String("error", err.Error()))
			return
		}
		if err := renderUpdate(app.stdout, rep, cfg.Lint.Format); err != nil {
			writeFailed = true
			cancel()
			return
		}
		code = report.ExitCode(rep)
	})
	if writeFailed {
		return report.ExitFindings
	}
	if err != nil {
		logger.Error("watch failed", slog.String("error", err.Error()))
		return report.ExitUsage
	}
	return code
}

// renderUpdate writes a report produced by watch mode. Text reports are
// separated by a blank line.
func renderUpdate(w io.Writer, rep *lint.Report, format string) error {
	if format == report.FormatText {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return report.Render(w, rep, format)
}

// Backlinks prints the documents that link to target according to the
// persisted index. It returns 0 when at least one linker exists.
func Backlinks(ctx context.Context, target string, opts ...Option) int {
	app, err := newApplication(opts)
	if err != nil {
		app.fail(err)
		return report.ExitUsage
	}
	cfg := app.config

	if !cfg.Index.Enabled() {
		app.fail(fmt.Errorf("%w: pass --index-db", apperr.ErrNoIndex))
		return report.ExitUsage
	}
	if _, err := os.Stat(cfg.Index.Path); err != nil {
		app.fail(fmt.Errorf("%w: %s", apperr.ErrNoIndex, cfg.Index.Path))
		return report.ExitUsage
	}

	store, err := storage.NewFS(cfg.Lint.Root, cfg.Lint.StorageOptions())
	if err != nil {
		app.fail(err)
		return exitFor(err)
	}
	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		app.fail(err)
		return report.ExitUsage
	}
	defer db.Close()

	p := filepath.FromSlash(target)
	if !filepath.IsAbs(p) {
		p = filepath.Join(store.Root(), p)
	}
	linkers, err := db.Backlinks(graph.Canonical(p))
	if err != nil {
		app.fail(err)
		return report.ExitUsage
	}
	for _, l := range linkers {
		if _, err := fmt.Fprintln(app.stdout, l); err != nil {
			return report.ExitFindings
		}
	}
	if len(linkers) == 0 {
		return report.ExitFindings
	}
	return report.ExitOK
}

func reportEvent(rep *lint.Report) sse.ReportSummary {
	return sse.ReportSummary{
		Files:      len(rep.Documents),
		Findings:   len(rep.Findings),
		Duplicates: len(rep.Duplicates),
		OK:         !rep.HasFindings(),
	}
}

// Serve starts the HTTP API with live re-linting.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", cfg.Lint.Root),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, closeFn, err := app.newService(logger)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	defer closeFn()

	if _, err := svc.Refresh(ctx); err != nil {
		return fmt.Errorf("initial lint: %w", err)
	}

	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()
	publish := func(rep *lint.Report) {
		broker.PublishReport(reportEvent(rep))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, publish)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Re-lint on change and announce the new report.
	g.Go(func() error {
		err := lint.Watch(gCtx, svc.Root(), logger, func() {
			rep, err := svc.Refresh(gCtx)
			if err != nil {
				logger.Error("re-lint failed", slog.String("error", err.Error()))
				return
			}
			publish(rep)
		})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()
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

// errShutdown cancels the group's context so the watcher stops with the
// server.
var errShutdown = errors.New("shutdown")

// ServeMCP runs the MCP server over stdio.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	svc, closeFn, err := app.newService(logger)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	defer closeFn()

	if _, err := svc.Refresh(ctx); err != nil {
		return fmt.Errorf("initial lint: %w", err)
	}

	srv := mcpserver.New(svc, app.config.Lint.Required, app.version)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
