package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/lancamentos")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, time.Hour, cfg.JWTAccessTTL)
	require.Equal(t, 10*time.Minute, cfg.ResolverCacheTTL)
	require.Empty(t, cfg.RedisURL)
	require.False(t, cfg.CNPJStrict)
	require.Equal(t, 30*time.Minute, cfg.Reconcile.Interval)
	require.Equal(t, 4, cfg.Reconcile.Concurrency)
	require.NoError(t, cfg.ValidateAPI())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/lancamentos")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOW_ORIGINS", "http://a.gov.br, ,http://b.gov.br")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CNPJ_STRICT", "true")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("RECONCILE_INTERVAL", "off")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, []string{"http://a.gov.br", "http://b.gov.br"}, cfg.AllowOrigins)
	require.InDelta(t, 2.5, cfg.RateLimit.RequestsPerSecond, 0.0001)
	require.True(t, cfg.CNPJStrict)
	require.Equal(t, "json", cfg.LogFormat)
	require.Zero(t, cfg.Reconcile.Interval)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("DB_DSN", "")
	_, err := Load()
	require.EqualError(t, err, "DB_DSN obrigatório")

	t.Setenv("DB_DSN", "postgres://localhost/lancamentos")
	t.Setenv("JWT_ACCESS_TTL", "uma hora")
	_, err = Load()
	require.EqualError(t, err, "JWT_ACCESS_TTL inválido")

	t.Setenv("JWT_ACCESS_TTL", "")
	t.Setenv("JWT_SECRET", "curto")
	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.ValidateAPI())
}
