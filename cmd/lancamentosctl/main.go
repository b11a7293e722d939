package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/lancamentos/internal/cache"
	"github.com/gestaozabele/lancamentos/internal/config"
	"github.com/gestaozabele/lancamentos/internal/db"
	"github.com/gestaozabele/lancamentos/internal/logging"
	"github.com/gestaozabele/lancamentos/internal/repo"
)

func main() {
	root := newRootCmd(openPostgres, os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// openPostgres conecta no banco e no cache configurados no ambiente.
func openPostgres(ctx context.Context) (*deps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	c, err := cache.New(ctx, cache.Config{RedisURL: cfg.RedisURL, Prefix: cfg.CachePrefix, DefaultTTL: cfg.ResolverCacheTTL})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("cache: %w", err)
	}

	d := &deps{
		cfg:     cfg,
		store:   repo.New(pool),
		cache:   c,
		logger:  log.Logger,
		migrate: func(ctx context.Context) error { return db.Migrate(ctx, pool) },
	}
	closeFn := func() {
		_ = c.Close()
		pool.Close()
	}
	return d, closeFn, nil
}
