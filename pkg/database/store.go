package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iziplay/saime-api/pkg/cache"
)

// Store is a cache backend over the saime_cache_entries table.
type Store struct {
	db    *gorm.DB
	ttl   time.Duration
	now   func() time.Time
	stats *statsCache
}

// NewStore creates a backend. A zero TTL keeps entries forever.
func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	return &Store{
		db:    db,
		ttl:   ttl,
		now:   time.Now,
		stats: &statsCache{},
	}
}

// Get returns the blob stored under signature, or cache.ErrNotFound when it
// is missing or older than the TTL.
func (s *Store) Get(ctx context.Context, signature string) ([]byte, error) {
	q := s.db.WithContext(ctx).Where("signature = ?", signature)
	if s.ttl > 0 {
		q = q.Where("updated_at > ?", s.now().Add(-s.ttl))
	}

	var entry CacheEntry
	err := q.First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return entry.Payload, nil
}

// Put upserts the blob under signature.
func (s *Store) Put(ctx context.Context, signature string, blob []byte) error {
	now := s.now()
	entry := CacheEntry{
		Model:     Model{CreatedAt: now, UpdatedAt: now},
		Signature: signature,
		Payload:   blob,
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signature"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// Purge deletes entries last written before the given time.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", before).Delete(&CacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
