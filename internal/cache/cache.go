// Package cache oferece um cliente chave/valor com dois drivers: memória (go-cache)
// e Redis. O resolvedor de CNPJ usa o cache apenas para resultados positivos.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound indica chave ausente ou expirada.
var ErrNotFound = errors.New("cache: chave não encontrada")

// Client define as operações usadas pelos serviços.
type Client interface {
	// Get devolve ErrNotFound quando a chave não existe.
	Get(ctx context.Context, key string) (string, error)
	// Set grava o valor; ttl zero usa o TTL padrão do driver.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config escolhe o driver. RedisURL vazio implica cache em memória.
type Config struct {
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
}

// New cria o cliente conforme a configuração.
func New(ctx context.Context, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	}
	return NewRedis(ctx, cfg)
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
