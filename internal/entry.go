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
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/logfields"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/siteservice"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/watch"
)

// newApplication applies opts. Without WithLogger, logs go to logOut.
func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = NewLogger(logOut, app.config.App)
	}
	return app, nil
}

// NewLogger builds the structured logger described by cfg.
func NewLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Run executes a single named target: clean, build, install or a category
// output path.
func Run(ctx context.Context, target string, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	app.logger.Info("app: configuration loaded",
		slog.String("source", cfg.Site.Source),
		slog.String("output", cfg.Site.Output),
		slog.String("environment", app.environment),
		slog.Bool("standalone", cfg.Site.Standalone),
		slog.Bool("fail_fast", cfg.Runner.FailFast))

	b, err := newBuilder(app, prom.NewRegistry())
	if err != nil {
		return err
	}
	defer b.Close()

	_, err = b.run(ctx, target)
	return err
}

// Targets lists every runnable target name.
func Targets(_ context.Context, opts ...Option) ([]string, error) {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(app, prom.NewRegistry())
	if err != nil {
		return nil, err
	}
	defer b.Close()

	_, g, err := b.assemble()
	if err != nil {
		return nil, err
	}
	return g.SortedNames(), nil
}

// watchOptions returns the watcher configuration shared by watch and serve.
func watchOptions(cfg *Config, logger *slog.Logger) watch.Options {
	roots := []string{cfg.Site.Source}
	if dir := filepath.Dir(cfg.Site.Template); dir != "" {
		roots = append(roots, dir)
	}
	return watch.Options{
		Roots:    roots,
		Patterns: cfg.Site.Watch,
		Ignore:   []string{cfg.Site.Output, cfg.Site.WorkDir},
		Logger:   logger,
	}
}

// rebuildOnChange runs svc.Build for every burst of changes until ctx ends.
func rebuildOnChange(ctx context.Context, cfg *Config, svc *siteservice.Service, logger *slog.Logger) error {
	return watch.Watch(ctx, watchOptions(cfg, logger), func(ctx context.Context, changed []string) {
		logger.Info("watch: rebuilding", slog.Int("changed", len(changed)))
		if _, err := svc.Build(ctx); err != nil {
			if errors.Is(err, apperr.ErrBuildInProgress) {
				logger.Warn("watch: build already running, change skipped")
				return
			}
			logger.Error("watch: rebuild failed", logfields.Error(err))
		}
	})
}

// Watch builds once and rebuilds whenever watched sources change.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	b, err := newBuilder(app, prom.NewRegistry())
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, err := b.Build(ctx)
	if err != nil {
		app.logger.Error("watch: initial build failed", logfields.Error(err))
	}
	svc := siteservice.NewService(root, b.pipeline.Source(), b, siteservice.WithObserver(b.recorder))
	return rebuildOnChange(ctx, app.config, svc, app.logger)
}

// Serve builds, watches and serves the output tree together with the API,
// metrics and live-reload events.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	reg := prom.NewRegistry()
	b, err := newBuilder(app, reg)
	if err != nil {
		return err
	}
	defer b.Close()

	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	root, err := b.Build(ctx)
	if err != nil {
		logger.Error("serve: initial build failed", logfields.Error(err))
	}
	svc := siteservice.NewService(root, b.pipeline.Source(), b,
		siteservice.WithObserver(b.recorder),
		siteservice.WithListener(func(kind string, r siteservice.Result) {
			broker.PublishBuildEvent(kind, sse.BuildInfo{
				Target:     r.Target,
				DurationMS: r.DurationMS,
				Error:      r.Error,
			})
		}),
	)

	r := newServeRouter(cfg, svc, broker, reg)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rebuildOnChange(gCtx, cfg, svc, logger)
	})

	g.Go(func() error {
		logger.Info("serve: starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
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
			logger.Info("serve: received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("serve: context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("serve: HTTP server shutdown error", logfields.Error(err))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("serve: application error", logfields.Error(err))
		return err
	}

	logger.Info("serve: stopped")
	return nil
}

// newServeRouter mounts health, metrics, the API, live-reload events and the
// static output tree. Everything but health, metrics and static files sits
// behind the configured auth.
func newServeRouter(cfg *Config, svc *siteservice.Service, events http.Handler, reg *prom.Registry) chi.Router {
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
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))
	// Browsers subscribe here for live reload; only build notifications flow.
	r.With(api.AuthMiddleware(cfg.Auth.AuthEnabled(), cfg.Auth.Token)).Get("/events", events.ServeHTTP)
	r.Handle("/*", http.FileServer(http.Dir(cfg.Site.Output)))
	return r
}

// ServeMCP exposes the site over the Model Context Protocol on stdio. Logs
// go to stderr so they do not corrupt the protocol stream.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	b, err := newBuilder(app, prom.NewRegistry())
	if err != nil {
		return err
	}
	defer b.Close()

	root, _, err := b.assemble()
	if err != nil {
		return err
	}
	svc := siteservice.NewService(root, b.pipeline.Source(), b, siteservice.WithObserver(b.recorder))
	return mcpserver.New(svc, app.version).ServeStdio()
}
