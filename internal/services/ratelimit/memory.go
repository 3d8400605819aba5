package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps windows in process memory. Expired windows are swept by
// the cache's cleaner and are also reset lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	windows *ttlcache.Cache[string, window]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	windows := ttlcache.New[string, window](
		ttlcache.WithTTL[string, window](ttl),
		ttlcache.WithDisableTouchOnHit[string, window](),
	)
	go windows.Start()

	return &MemoryStore{windows: windows}
}

func (s *MemoryStore) Hit(_ context.Context, key string, length time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var w window
	if item := s.windows.Get(key); item != nil && !now.After(item.Value().resetAt) {
		w = item.Value()
		w.count++
	} else {
		w = window{count: 1, resetAt: now.Add(length)}
	}

	s.windows.Set(key, w, ttlcache.DefaultTTL)
	return w.count, w.resetAt, nil
}

// Len reports how many client windows are currently tracked.
func (s *MemoryStore) Len() int {
	return s.windows.Len()
}

// Close stops the background sweeper.
func (s *MemoryStore) Close() {
	s.windows.Stop()
}
