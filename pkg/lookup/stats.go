package lookup

import (
	"sync"
	"time"
)

// Counters is a point-in-time view of lookup activity.
type Counters struct {
	Lookups            int64     `json:"lookups" doc:"Lookups served since start"`
	CacheHits          int64     `json:"cacheHits" doc:"Lookups answered from the cache"`
	CacheMisses        int64     `json:"cacheMisses" doc:"Lookups that reached the registry"`
	Failures           int64     `json:"failures" doc:"Lookups that failed upstream"`
	CacheWriteFailures int64     `json:"cacheWriteFailures" doc:"Cache writes dropped after an error"`
	LastLookup         time.Time `json:"lastLookup,omitzero" doc:"Time of the most recent lookup"`
}

// Stats holds lookup counters for the running process.
type Stats struct {
	mu       sync.RWMutex
	counters Counters
}

// Snapshot returns a copy of the current counters
func (s *Stats) Snapshot() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.counters
}

func (s *Stats) hit(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.Lookups++
	s.counters.CacheHits++
	s.counters.LastLookup = at
}

func (s *Stats) miss(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.Lookups++
	s.counters.CacheMisses++
	s.counters.LastLookup = at
}

func (s *Stats) failure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.Failures++
}

func (s *Stats) writeFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.CacheWriteFailures++
}
