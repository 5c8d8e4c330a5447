package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SanteonNL/storefront/cmd/storefront/api"
	"github.com/SanteonNL/storefront/cmd/storefront/auth"
	"github.com/SanteonNL/storefront/cmd/storefront/cache"
	"github.com/SanteonNL/storefront/cmd/storefront/catalog"
	"github.com/SanteonNL/storefront/cmd/storefront/metrics"
	"github.com/SanteonNL/storefront/cmd/storefront/notify"
	"github.com/SanteonNL/storefront/cmd/storefront/orders"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Addr = addr
			}
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address; overrides HTTP_ADDR")
	return cmd
}

// newCaches returns the product listing store and the store of revoked
// tokens. With the memory driver revocations live in a store without a
// size limit.
func (a *app) newCaches(ctx context.Context) (cache.Store, cache.Store, error) {
	if a.cfg.CacheDriver == "redis" {
		store, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:       a.cfg.RedisAddr,
			Password:   a.cfg.RedisPassword,
			DB:         a.cfg.RedisDB,
			DefaultTTL: a.cfg.ProductCacheTTL,
		}, a.log)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}

	products := cache.NewMemory(cache.Config{
		DefaultTTL:      a.cfg.ProductCacheTTL,
		MaxSize:         a.cfg.CacheMaxSize,
		CleanupInterval: a.cfg.CacheCleanupInterval,
	}, a.log)
	revoked := cache.NewMemory(cache.Config{
		DefaultTTL:      a.cfg.TokenTTL,
		CleanupInterval: a.cfg.CacheCleanupInterval,
	}, a.log)
	return products, revoked, nil
}

func (a *app) serve(ctx context.Context) error {
	store, revoked, err := a.newCaches(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up %s cache: %w", a.cfg.CacheDriver, err)
	}
	defer store.Close()
	if revoked != store {
		defer revoked.Close()
	}

	m := metrics.New()
	if mem, ok := store.(*cache.Memory); ok {
		m.WatchCacheSize("products", mem.Len)
	}
	if mem, ok := revoked.(*cache.Memory); ok && revoked != store {
		m.WatchCacheSize("revoked_tokens", mem.Len)
	}

	notifier := notify.New(notify.Options{WebhookURL: a.cfg.NotifyWebhookURL}, a.log)
	notifier.OnDelivery(m.NotificationDelivered)
	defer notifier.Close()

	db := a.ds.DB()
	catalogService := catalog.NewService(catalog.NewRepository(db), a.log,
		catalog.WithCache(store, a.cfg.ProductCacheTTL),
		catalog.WithCacheObserver(m.CacheLookup),
	)
	tokens := auth.NewTokenService(a.cfg.JWTSecret, a.cfg.TokenTTL, revoked)

	var limiter *api.RateLimiter
	if a.cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(float64(a.cfg.RateLimitRPS), a.cfg.RateLimitBurst, a.log)
		go a.cleanupLimiter(ctx, limiter)
	}

	router := api.NewStorefrontRouter(api.Dependencies{
		Catalog: catalogService,
		Orders:  orders.NewService(a.ds, notifier, a.log),
		Auth:    auth.NewService(auth.NewUsers(db), tokens, a.log),
		Metrics: m,
		Limiter: limiter,
		Ping:    a.ds.Ping,
	}, a.log)

	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", server.Addr).Str("cache", a.cfg.CacheDriver).Msg("Starting storefront API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.log.Info().Dur("timeout", a.cfg.ShutdownTimeout).Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	a.log.Info().Msg("Server stopped")
	return nil
}

func (a *app) cleanupLimiter(ctx context.Context, limiter *api.RateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup(10000)
		}
	}
}
