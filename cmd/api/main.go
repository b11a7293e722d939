package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/lancamentos/internal/auth"
	"github.com/gestaozabele/lancamentos/internal/cache"
	"github.com/gestaozabele/lancamentos/internal/config"
	"github.com/gestaozabele/lancamentos/internal/db"
	internalhttp "github.com/gestaozabele/lancamentos/internal/http"
	"github.com/gestaozabele/lancamentos/internal/logging"
	"github.com/gestaozabele/lancamentos/internal/metrics"
	"github.com/gestaozabele/lancamentos/internal/reconcile"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/service"
	"github.com/gestaozabele/lancamentos/internal/tenant"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	cacheClient, err := cache.New(ctx, cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.ResolverCacheTTL,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	store := repo.New(pool)
	resolver := tenant.NewResolver(store, cacheClient, cfg.ResolverCacheTTL, log.Logger)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	notifier := reconcile.NotifierFor(cfg.Reconcile)
	reconciler := reconcile.NewService(store, resolver, cfg.Reconcile, log.Logger, notifier)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	handler := internalhttp.NewRouter(internalhttp.Deps{
		Config:      cfg,
		DB:          pool,
		Cache:       cacheClient,
		Auth:        service.NewAuthService(store, cacheClient, jwtManager, cfg.JWTRefreshTTL, log.Logger),
		Users:       service.NewUserService(store, log.Logger),
		Tenants:     service.NewTenantService(store, resolver, log.Logger, service.WithStrictCNPJ(cfg.CNPJStrict)),
		Lancamentos: service.NewLancamentoService(store),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
