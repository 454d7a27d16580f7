package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/iziplay/saime-api/pkg/cache"
)

// statsMaxAge bounds how long a computed snapshot is served.
const statsMaxAge = 30 * time.Second

type statsCache struct {
	mu         sync.RWMutex
	stats      *cache.Stats
	computedAt time.Time
}

// Stats reports the number of live entries and the latest write. The
// result is computed at most every statsMaxAge. It never waits on another
// caller: while a computation runs, an empty snapshot is returned.
func (s *Store) Stats(ctx context.Context) (cache.Stats, error) {
	if !s.stats.mu.TryLock() {
		if !s.stats.mu.TryRLock() {
			return cache.Stats{Backend: "postgres"}, nil
		}
		defer s.stats.mu.RUnlock()
		if s.stats.stats != nil {
			return *s.stats.stats, nil
		}
		return cache.Stats{Backend: "postgres"}, nil
	}
	defer s.stats.mu.Unlock()

	if s.stats.stats != nil && s.now().Sub(s.stats.computedAt) < statsMaxAge {
		return *s.stats.stats, nil
	}

	stats, err := s.computeStats(ctx)
	if err != nil {
		return cache.Stats{}, err
	}
	s.stats.stats = &stats
	s.stats.computedAt = s.now()
	return stats, nil
}

func (s *Store) computeStats(ctx context.Context) (cache.Stats, error) {
	stats := cache.Stats{Backend: "postgres"}

	q := s.db.WithContext(ctx).Model(&CacheEntry{})
	if s.ttl > 0 {
		q = q.Where("updated_at > ?", s.now().Add(-s.ttl))
	}

	var row struct {
		Entries   int64
		LastWrite sql.NullTime
	}
	if err := q.Select("COUNT(*) AS entries, MAX(updated_at) AS last_write").Scan(&row).Error; err != nil {
		return cache.Stats{}, fmt.Errorf("failed to compute cache stats: %w", err)
	}

	stats.Entries = row.Entries
	if row.LastWrite.Valid {
		stats.LastWrite = row.LastWrite.Time
	}
	return stats, nil
}
