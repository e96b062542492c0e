package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/storefront/internal/adapters/cache"
	"github.com/okian/storefront/internal/adapters/http/api"
	"github.com/okian/storefront/internal/adapters/http/site"
	"github.com/okian/storefront/internal/adapters/http/swagger"
	"github.com/okian/storefront/internal/adapters/upstream"
	app "github.com/okian/storefront/internal/app"
	"github.com/okian/storefront/internal/config"
	"github.com/okian/storefront/internal/domain/ranking"
	"github.com/okian/storefront/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	retryDelay        = 200 * time.Millisecond
)

func main() {
	// Bootstrap logger until the configured one is ready.
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		// Apply configured log level (fallback to info on invalid input)
		_ = logger.Init(logger.WithFormat(cfg.LogFormat))
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, nil); err != nil {
		logger.Get().Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// run serves the storefront until ctx is canceled. When ready is non-nil it
// receives the bound listen address once the server accepts connections.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	log := logger.Get()

	source, store := buildCatalog(ctx, cfg, log)
	defer func() { _ = store.Close() }()

	svc := newService(cfg, source, log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Handler:           newMux(cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildCatalog wires client -> cache. Without Redis, or when Redis is
// unreachable, responses are not cached.
func buildCatalog(ctx context.Context, cfg *config.Config, log logger.Logger) (*cache.Catalog, cache.Store) {
	client := upstream.New(
		upstream.WithBaseURL(cfg.CatalogBaseURL),
		upstream.WithTimeout(cfg.CatalogTimeout()),
		upstream.WithRetry(cfg.CatalogRetryAttempts, retryDelay),
	)

	var store cache.Store = cache.NoopStore{}
	if cfg.RedisAddr != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn(ctx, "redis unavailable, caching disabled", logger.String("addr", cfg.RedisAddr), logger.Error(err))
		} else {
			store = rs
			log.Info(ctx, "using redis response cache", logger.String("addr", cfg.RedisAddr))
		}
	}

	return cache.NewCatalog(client, store, cache.WithTTL(cfg.CacheTTL())), store
}

func newService(cfg *config.Config, source *cache.Catalog, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithSource(source),
		app.WithInvalidator(source),
		app.WithRankingDefaults(ranking.Options{
			RatingWeight:      cfg.RatingWeight,
			PriceWeight:       cfg.PriceWeight,
			PreferHigherPrice: cfg.PreferHigherPrice,
			Limit:             cfg.DefaultLimit,
		}),
		app.WithLargeDatasetThreshold(cfg.LargeDatasetThreshold),
		app.WithMaxTopLimit(cfg.MaxTopLimit),
		app.WithRefreshInterval(cfg.RefreshInterval()),
		app.WithSnapshotInterval(cfg.SnapshotInterval()),
		app.WithIdempotencySize(cfg.IdempotencySize),
	)
}

func newMux(cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(mux)
	swagger.Register(mux)
	api.NewServer(svc, svc, cfg.MaxTopLimit).Register(mux)
	return mux
}
