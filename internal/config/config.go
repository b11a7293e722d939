package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port             int
	DBDSN            string
	RedisURL         string
	CachePrefix      string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	JWTSecret        string
	AllowOrigins     []string
	RateLimit        RateLimitConfig
	RateLimitAuth    RateLimitConfig
	ResolverCacheTTL time.Duration
	CNPJStrict       bool
	LogLevel         string
	LogFormat        string
	Reconcile        ReconcileConfig
}

// ReconcileConfig controla a sincronização periódica de lançamentos órfãos.
// Interval zero desliga o loop.
type ReconcileConfig struct {
	Interval        time.Duration
	Concurrency     int
	SlackWebhookURL string
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load carrega variáveis de ambiente e aplica defaults seguros. DB_DSN é sempre
// obrigatório; JWT_SECRET só é validado por ValidateAPI.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = strings.TrimSpace(getEnv("DB_DSN", ""))
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))
	cfg.CachePrefix = strings.TrimSpace(getEnv("CACHE_PREFIX", "lancamentos"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))

	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = parseDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ResolverCacheTTL, err = parseDurationEnv("RESOLVER_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	rps, err := parseFloatEnv("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, err
	}
	burst, err := parseIntEnv("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = RateLimitConfig{RequestsPerSecond: rps, Burst: burst}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 2, Burst: 10}

	if cfg.CNPJStrict, err = parseBoolEnv("CNPJ_STRICT", false); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info")))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", "console")))
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return nil, errors.New("LOG_FORMAT deve ser console ou json")
	}

	switch strings.ToLower(strings.TrimSpace(getEnv("RECONCILE_INTERVAL", ""))) {
	case "":
		cfg.Reconcile.Interval = 30 * time.Minute
	case "0", "off":
	default:
		if cfg.Reconcile.Interval, err = parseDurationEnv("RECONCILE_INTERVAL", 0); err != nil {
			return nil, err
		}
	}
	if cfg.Reconcile.Concurrency, err = parseIntEnv("RECONCILE_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.Reconcile.Concurrency <= 0 {
		return nil, errors.New("RECONCILE_CONCURRENCY deve ser positivo")
	}
	cfg.Reconcile.SlackWebhookURL = strings.TrimSpace(getEnv("SLACK_WEBHOOK_URL", ""))

	return cfg, nil
}

// ValidateAPI verifica o que só o servidor HTTP exige.
func (c *Config) ValidateAPI() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("RATE_LIMIT_RPS e RATE_LIMIT_BURST devem ser positivos")
	}
	return nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return f, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " inválido")
	}
	return b, nil
}
