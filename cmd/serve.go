package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"gorm.io/plugin/opentelemetry/tracing"

	saimeapi "github.com/iziplay/saime-api"
	routing "github.com/iziplay/saime-api/pkg/api"
	"github.com/iziplay/saime-api/pkg/cache"
	"github.com/iziplay/saime-api/pkg/config"
	"github.com/iziplay/saime-api/pkg/database"
	"github.com/iziplay/saime-api/pkg/lookup"
	"github.com/iziplay/saime-api/pkg/metrics"
	"github.com/iziplay/saime-api/pkg/saime"
	"github.com/iziplay/saime-api/pkg/vault"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// purger drops cache entries written before a point in time.
type purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	store, purge, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	client := saime.New(saime.Options{
		Endpoint:          cfg.Upstream.URL,
		Origin:            cfg.Upstream.Origin,
		UserAgent:         cfg.Upstream.UserAgent,
		Timeout:           cfg.Upstream.Timeout,
		RequestsPerSecond: cfg.Upstream.RPS,
		Burst:             cfg.Upstream.Burst,
	})

	opts := []lookup.Option{lookup.WithMetrics(metrics.New(prometheus.DefaultRegisterer))}
	if store != nil {
		opts = append(opts, lookup.WithStore(store))
	}
	svc, err := lookup.New(client, opts...)
	if err != nil {
		return err
	}

	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Server"},
		AllowCredentials: false,
	}))
	router.Handle("/metrics", promhttp.Handler())

	humaConfig := huma.DefaultConfig("SAIME API", "1.0.0")
	humaConfig.OpenAPI.Info.Description = saimeapi.Readme
	humaConfig.OpenAPI.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	humaConfig.DocsPath = "/"
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.Host},
	}
	api := humachi.New(router, humaConfig)

	routing.Setup(api, svc, cfg.JWTSecret)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(router, "api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if purge != nil && cfg.Cache.TTL > 0 {
		go purgeLoop(ctx, purge, cfg.Cache.TTL)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", cfg.Addr, "cache", cfg.Cache.Backend)
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

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupTracing(ctx context.Context, endpoint string) (func(), error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName("saime-api"),
			),
		),
	}

	if endpoint != "" {
		exp, err := otlptracegrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}, nil
}

// openCache builds the configured cache backend. The store is nil when
// caching is disabled, the purger is nil when the backend expires entries
// on its own.
func openCache(ctx context.Context, cfg config.Config) (*cache.Encrypted, purger, func(), error) {
	v := vault.New([]byte(cfg.Cache.Secret))

	switch cfg.Cache.Backend {
	case config.BackendMemory:
		mem := cache.NewMemory(cfg.Cache.TTL)
		return cache.NewEncrypted(mem, v), mem, func() {}, nil

	case config.BackendRedis:
		client, err := cache.DialRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		closeClient := func() {
			if err := client.Close(); err != nil {
				slog.Warn("Failed to close redis client", "error", err)
			}
		}
		return cache.NewEncrypted(cache.NewRedis(client, cfg.Cache.TTL), v), nil, closeClient, nil

	case config.BackendPostgres:
		db, err := database.Open(cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to enable database tracing: %w", err)
		}
		if err := database.Ping(ctx, db); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to reach database: %w", err)
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		store := database.NewStore(db, cfg.Cache.TTL)
		return cache.NewEncrypted(store, v), store, closeDB, nil
	}

	return nil, nil, func() {}, nil
}

// purgeLoop drops expired entries until ctx is done.
func purgeLoop(ctx context.Context, p purger, ttl time.Duration) {
	interval := min(ttl, time.Hour)

	for {
		slog.Debug("Next cache purge scheduled", "in", interval)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		n, err := p.Purge(ctx, time.Now().Add(-ttl))
		if err != nil {
			slog.Error("Cache purge failed", "error", err)
			continue
		}
		if n > 0 {
			slog.Info("Purged expired cache entries", "count", n)
		}
	}
}
