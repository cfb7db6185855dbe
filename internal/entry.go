// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/layerline/internal/api"
	"github.com/starford/layerline/internal/cache"
	"github.com/starford/layerline/internal/index"
	"github.com/starford/layerline/internal/layerservice"
	"github.com/starford/layerline/internal/mcpserver"
	"github.com/starford/layerline/internal/metrics"
	"github.com/starford/layerline/internal/sse"
	"github.com/starford/layerline/internal/storage"
	"github.com/starford/layerline/internal/timeline"
)

// Version is reported by the MCP server.
var Version = "dev"

// runtime holds the components shared by every sub-command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	svc    *layerservice.Service
	axis   layerservice.AxisDefaults
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// open builds the catalogue, index and layer service. notify receives layer
// change events; it may be nil.
func open(app *application, notify layerservice.Notifier) (*runtime, error) {
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("default_zoom", cfg.Timeline.DefaultZoom),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Catalog.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	refreshIndexedLayers(db, logger)

	calc := timeline.NewCalculator(
		timeline.WithIgnoredLayers(cfg.Timeline.IgnoredLayers...),
		timeline.WithMaxIntervals(cfg.Timeline.MaxIntervals),
		timeline.WithCacheObserver(metrics.ObserveCache),
	)

	svcOpts := []layerservice.Option{layerservice.WithLogger(logger)}
	respCache := cache.NewCoverage(cache.Open(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), cfg.Redis.TTL, logger)
	if respCache.Enabled() {
		if err := respCache.Ping(context.Background()); err != nil {
			logger.Warn("coverage cache unreachable", slog.String("addr", cfg.Redis.Addr), slog.String("error", err.Error()))
		}
		svcOpts = append(svcOpts, layerservice.WithResponseCache(respCache))
	}
	if notify != nil {
		svcOpts = append(svcOpts, layerservice.WithNotifier(notify))
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		db:     db,
		svc:    layerservice.NewService(store, db, calc, svcOpts...),
		axis: layerservice.AxisDefaults{
			Width: cfg.Timeline.DefaultWidth,
			Zoom:  cfg.Timeline.Zoom(),
			Now:   app.now,
		},
	}, nil
}

func refreshIndexedLayers(db index.LayerIndex, logger *slog.Logger) {
	sums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("count indexed layers", slog.String("error", err.Error()))
		return
	}
	metrics.IndexedLayers.Set(float64(len(sums)))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	broker := sse.NewBroker(cfg.Timeline.InvalidateThrottle)
	defer broker.Close()

	rt, err := open(app, broker.PublishLayerEvent)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, rt.axis, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Catalog.Watch {
		g.Go(func() error {
			err := index.Watch(gCtx, rt.db, rt.store, rt.store.Root(), logger, func(kind, id string) {
				rt.svc.HandleCatalogEvent(kind, id)
				refreshIndexedLayers(rt.db, logger)
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
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

// errShutdown cancels the errgroup context so the watcher stops with the
// HTTP server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := open(app, nil)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	if app.config.Catalog.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := index.Watch(watchCtx, rt.db, rt.store, rt.store.Root(), rt.logger, rt.svc.HandleCatalogEvent); err != nil {
				rt.logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, rt.axis, Version).ServeStdio()
}

// CoverageRequest selects the layers and window printed by RunCoverage.
// Empty fields fall back to the configured axis defaults.
type CoverageRequest struct {
	Layers []string
	Front  string
	Back   string
	Now    string
	Zoom   string
	Width  float64
}

func (r CoverageRequest) query() url.Values {
	q := url.Values{}
	q.Set("front", r.Front)
	q.Set("back", r.Back)
	if r.Now != "" {
		q.Set("now", r.Now)
	}
	if r.Zoom != "" {
		q.Set("zoom", r.Zoom)
	}
	if r.Width > 0 {
		q.Set("width", fmt.Sprint(r.Width))
	}
	return q
}

// RunCoverage indexes the catalogue once, computes coverage for req and
// writes it to out as indented JSON.
func RunCoverage(ctx context.Context, req CoverageRequest, out io.Writer, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := open(app, nil)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	axis, err := layerservice.ParseAxis(req.query(), rt.axis)
	if err != nil {
		return fmt.Errorf("coverage: %w", err)
	}

	var ids []string
	for _, id := range req.Layers {
		for _, part := range strings.Split(id, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}

	cov, err := rt.svc.CoverageAll(ctx, ids, axis)
	if err != nil {
		return fmt.Errorf("coverage: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(api.CoverageResponse{Layers: cov})
}
