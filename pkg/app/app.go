// Package app wires configuration, stores and the HTTP router together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/linkgate/pkg/adapters/cache"
	"github.com/wadjakorntonsri/linkgate/pkg/adapters/handler"
	redisrl "github.com/wadjakorntonsri/linkgate/pkg/adapters/ratelimit"
	"github.com/wadjakorntonsri/linkgate/pkg/adapters/repository/analytics"
	"github.com/wadjakorntonsri/linkgate/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/linkgate/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/linkgate/pkg/config"
	"github.com/wadjakorntonsri/linkgate/pkg/core/ratelimit"
	"github.com/wadjakorntonsri/linkgate/pkg/core/services"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

// MemoryURL selects the process-local link store and an in-memory
// analytics database.
const MemoryURL = "memory:"

const memoryAnalyticsDSN = "file:analytics?mode=memory&cache=shared"

// App is the composition root for the HTTP server.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	router  http.Handler
	service *services.LinkService
	closers []io.Closer
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, pingers, err := a.openLinkStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	events, err := analytics.Open(ctx, analyticsDSN(cfg), cfg.Dataset)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open analytics: %w", err)
	}
	a.closers = append(a.closers, events)
	pingers = append(pingers, events)

	limiterStore, err := a.openLimiterStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if p, ok := limiterStore.(handler.Pinger); ok {
		pingers = append(pingers, p)
	}

	resolver := services.NewResolver(services.ResolverConfig{
		SlugPattern:         cfg.SlugPattern,
		ReservedSlugs:       cfg.ReservedSlugs,
		HomeURL:             cfg.HomeURL,
		CacheTTL:            cfg.LinkCacheTTL,
		CaseSensitive:       cfg.CaseSensitive,
		RedirectWithQuery:   cfg.RedirectWithQuery,
		RedirectStatus:      cfg.RedirectStatusCode,
		DisableBotAccessLog: cfg.DisableBotAccessLog,
	}, store, events, events, logger)

	a.service = services.NewLinkService(services.LinkServiceConfig{
		CaseSensitive: cfg.CaseSensitive,
		PreviewMode:   cfg.PreviewMode,
	}, store, events, logger)

	a.router = handler.NewRouter(handler.RouterDeps{
		Config:   cfg,
		Service:  a.service,
		Resolver: resolver,
		Limiter:  ratelimit.New(limiterStore, ratelimit.DefaultLimit, ratelimit.DefaultWindow),
		Logger:   logger,
		Pingers:  pingers,
	})

	return a, nil
}

func (a *App) openLinkStore(ctx context.Context) (ports.LinkStore, []handler.Pinger, error) {
	var (
		backing ports.LinkStore
		pingers []handler.Pinger
	)

	if a.cfg.DatabaseURL == MemoryURL {
		backing = memory.New()
	} else {
		repo, err := sqlite.NewSQLiteRepository(a.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open link store: %w", err)
		}
		a.closers = append(a.closers, repo)
		pingers = append(pingers, repo)
		backing = repo
	}

	if a.cfg.AppEnv == "development" {
		if err := memory.Seed(ctx, backing, time.Now()); err != nil {
			return nil, nil, fmt.Errorf("seed links: %w", err)
		}
		a.logger.InfoContext(ctx, "seeded development links")
	}

	store, err := cache.NewLinkCache(backing, a.cfg.LinkCacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("link cache: %w", err)
	}
	a.closers = append(a.closers, store)

	return store, pingers, nil
}

func (a *App) openLimiterStore(ctx context.Context) (ratelimit.Store, error) {
	if a.cfg.RateLimitRedisURL == "" {
		return ratelimit.NewMemoryStore(), nil
	}

	store, err := redisrl.NewRedisStore(ctx, a.cfg.RateLimitRedisURL)
	if err != nil {
		return nil, fmt.Errorf("open rate limit store: %w", err)
	}
	a.closers = append(a.closers, store)

	return store, nil
}

func analyticsDSN(cfg *config.Config) string {
	if cfg.AnalyticsURL == MemoryURL {
		return memoryAnalyticsDSN
	}
	return cfg.AnalyticsURL
}

// Handler is the full middleware chain and API mux.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Service() *services.LinkService {
	return a.service
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.router,
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	a.logger.InfoContext(ctx, "server starting", "port", a.cfg.Port, "env", a.cfg.AppEnv)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server: %w", err)

	case <-ctx.Done():
		return gracefulShutdown(ctx, srv, a.cfg.HTTPShutdownTimeout, errCh)
	}
}

func gracefulShutdown(ctx context.Context, srv *http.Server, timeout time.Duration, errCh <-chan error) error {
	srv.SetKeepAlivesEnabled(false)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http shutdown failed; forced close: %w", err)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server stopped with error: %w", err)
	default:
		return nil
	}
}
