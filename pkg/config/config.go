// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iziplay/saime-api/pkg/database"
	"github.com/iziplay/saime-api/pkg/saime"
)

// Cache backends.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the whole service configuration.
type Config struct {
	Addr      string
	Host      string
	LogLevel  slog.Level
	JWTSecret string

	Upstream Upstream
	Cache    Cache
	Postgres database.Config

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string
}

// Upstream configures the registry client.
type Upstream struct {
	URL       string
	Origin    string
	Timeout   time.Duration
	RPS       float64
	Burst     int
	UserAgent string
}

// Cache configures the encrypted cache.
type Cache struct {
	Backend  string
	TTL      time.Duration
	Secret   string
	RedisURL string
}

// Load reads an optional .env file then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	addr := ":80"
	if port := os.Getenv("API_PORT"); port != "" {
		addr = ":" + port
	}

	cfg := Config{
		Addr:      addr,
		Host:      getenv("API_HOST", "http://localhost"+addr),
		LogLevel:  LogLevel(os.Getenv("LOG_LEVEL")),
		JWTSecret: os.Getenv("SAIME_JWT_SECRET"),
		Upstream: Upstream{
			URL:       getenv("SAIME_UPSTREAM_URL", saime.DefaultEndpoint),
			Origin:    getenv("SAIME_UPSTREAM_ORIGIN", saime.DefaultOrigin),
			UserAgent: getenv("SAIME_UPSTREAM_USER_AGENT", saime.DefaultUserAgent),
		},
		Cache: Cache{
			Backend:  strings.ToLower(getenv("CACHE_BACKEND", BackendNone)),
			Secret:   os.Getenv("CACHE_SECRET"),
			RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Postgres: database.Config{
			Host:     getenv("POSTGRES_HOST", "localhost"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: os.Getenv("POSTGRES_DATABASE"),
			Port:     getenv("POSTGRES_PORT", "5432"),
		},
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var errs []error
	var err error

	if cfg.Upstream.Timeout, err = duration("SAIME_UPSTREAM_TIMEOUT", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.Upstream.RPS, err = float("SAIME_UPSTREAM_RPS", 2); err != nil {
		errs = append(errs, err)
	}
	if cfg.Upstream.Burst, err = integer("SAIME_UPSTREAM_BURST", 4); err != nil {
		errs = append(errs, err)
	}
	if cfg.Cache.TTL, err = duration("CACHE_TTL", 0); err != nil {
		errs = append(errs, err)
	}

	switch cfg.Cache.Backend {
	case BackendNone:
	case BackendMemory, BackendRedis, BackendPostgres:
		if cfg.Cache.Secret == "" {
			errs = append(errs, fmt.Errorf("CACHE_SECRET is required for the %s cache backend", cfg.Cache.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.Cache.Backend))
	}

	return cfg, errors.Join(errs...)
}

// LogLevel maps debug, warn and error to their slog level. Anything else is info.
func LogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback, fmt.Errorf("invalid %s %q: expected a non-negative duration such as 30s", key, v)
	}
	return d, nil
}

func float(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func integer(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
