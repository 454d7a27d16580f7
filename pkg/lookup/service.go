// Package lookup answers identity lookups: it consults the encrypted cache,
// falls back to the registry and normalizes the returned form.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iziplay/saime-api/pkg/cache"
	"github.com/iziplay/saime-api/pkg/cachekey"
	"github.com/iziplay/saime-api/pkg/document"
	"github.com/iziplay/saime-api/pkg/form"
	"github.com/iziplay/saime-api/pkg/identity"
	"github.com/iziplay/saime-api/pkg/metrics"
	"github.com/iziplay/saime-api/pkg/saime"
)

// Fetcher returns the raw registry page for a document.
type Fetcher interface {
	Fetch(ctx context.Context, document int64, docType string) (string, error)
}

// Store persists lookup results addressed by signature and unlocked by entropy.
type Store interface {
	Read(ctx context.Context, signature, entropy string) ([]byte, error)
	Write(ctx context.Context, signature string, payload []byte, entropy string) error
}

// Request describes one lookup.
type Request struct {
	Type     document.Type
	Document int64

	// Cache stores a freshly fetched record for later lookups.
	Cache bool
}

// Service orchestrates lookups.
type Service struct {
	fetcher Fetcher
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	stats   *Stats
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables the cache.
func WithStore(store Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service.
func New(fetcher Fetcher, opts ...Option) (*Service, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}

	s := &Service{
		fetcher: fetcher,
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/iziplay/saime-api/pkg/lookup"),
		stats:   &Stats{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Stats returns the lookup counters of this service.
func (s *Service) Stats() Counters {
	return s.stats.Snapshot()
}

// CacheStats describes the cache backend, errors.ErrUnsupported when there
// is none or it cannot report.
func (s *Service) CacheStats(ctx context.Context) (cache.Stats, error) {
	if r, ok := s.store.(cache.StatsReporter); ok {
		return r.Stats(ctx)
	}
	return cache.Stats{}, errors.ErrUnsupported
}

// Lookup returns the identity record of the requested document. Only a
// registry failure is returned as an error.
func (s *Service) Lookup(ctx context.Context, req Request) (identity.Record, error) {
	id := uuid.New().String()
	docType := strings.ToUpper(strings.TrimSpace(string(req.Type)))

	ctx, span := s.tracer.Start(ctx, "lookup.Lookup", trace.WithAttributes(
		attribute.String("lookup.id", id),
		attribute.String("document.type", docType),
		attribute.Bool("lookup.cache", req.Cache),
	))
	defer span.End()

	logger := s.logger.With("lookup", id, "type", docType)
	key := cachekey.Derive(docType, document.Format(req.Document))

	if record, ok := s.readCache(ctx, logger, key); ok {
		span.SetAttributes(attribute.Bool("lookup.cache_hit", true))
		s.stats.hit(s.now())
		s.metrics.IncrementLookup(metrics.OutcomeHit)
		logger.Debug("Served from cache")
		return record, nil
	}

	start := time.Now()
	raw, err := s.fetcher.Fetch(ctx, req.Document, docType)
	if err != nil {
		s.metrics.ObserveFetch(string(saime.Category(err)), time.Since(start))
		s.metrics.IncrementLookup(metrics.OutcomeError)
		s.stats.failure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "registry fetch failed")
		logger.Warn("Registry fetch failed", "error", err)
		return identity.Record{}, fmt.Errorf("fetch registry: %w", err)
	}
	s.metrics.ObserveFetch("ok", time.Since(start))

	record := identity.Normalize(form.Parse(strings.TrimSpace(raw)))
	s.stats.miss(s.now())
	s.metrics.IncrementLookup(metrics.OutcomeMiss)

	if req.Cache {
		s.writeCache(ctx, logger, key, record)
	}

	logger.Debug("Served from registry", "duration", time.Since(start))
	return record, nil
}

func (s *Service) readCache(ctx context.Context, logger *slog.Logger, key cachekey.Key) (identity.Record, bool) {
	if s.store == nil {
		return identity.Record{}, false
	}

	payload, err := s.store.Read(ctx, key.Signature, key.Entropy)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("Cache read failed, fetching fresh data", "error", err)
		}
		return identity.Record{}, false
	}

	record := identity.Empty()
	if err := json.Unmarshal(payload, &record); err != nil {
		logger.Warn("Cache entry is not a record, fetching fresh data", "error", err)
		return identity.Record{}, false
	}
	return record, true
}

func (s *Service) writeCache(ctx context.Context, logger *slog.Logger, key cachekey.Key, record identity.Record) {
	if s.store == nil {
		return
	}

	payload, err := json.Marshal(record)
	if err == nil {
		err = s.store.Write(ctx, key.Signature, payload, key.Entropy)
	}
	if err != nil {
		s.stats.writeFailure()
		s.metrics.IncrementCacheWriteFailure()
		logger.Error("Cache write failed", "error", err)
	}
}
