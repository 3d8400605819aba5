package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *fakeClock) {
	t.Helper()
	store := NewMemoryStore(window)
	t.Cleanup(store.Close)

	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter("images", Policy{Limit: limit, Window: window}, store, zap.NewNop())
	l.now = clock.Now
	return l, clock
}

func TestLimiterRejectsAfterLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 60, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 60; i++ {
		d := l.Admit(ctx, "10.0.0.1")
		require.True(t, d.Allowed, "request %d should be admitted", i)
		assert.Equal(t, 60-i, d.Remaining)
	}

	d := l.Admit(ctx, "10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Hour)
	ctx := context.Background()

	assert.True(t, l.Admit(ctx, "c").Allowed)
	assert.True(t, l.Admit(ctx, "c").Allowed)
	rejected := l.Admit(ctx, "c")
	assert.False(t, rejected.Allowed)
	assert.Equal(t, time.Hour, rejected.RetryAfter(clock.Now()))

	// Exactly at the reset instant the window still holds.
	clock.Advance(time.Hour)
	assert.False(t, l.Admit(ctx, "c").Allowed)

	clock.Advance(time.Nanosecond)
	d := l.Admit(ctx, "c")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestLimiterClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Admit(ctx, "a").Allowed)
	assert.False(t, l.Admit(ctx, "a").Allowed)
	assert.True(t, l.Admit(ctx, "b").Allowed)
}

func TestLimiterConcurrentAdmits(t *testing.T) {
	l, _ := newTestLimiter(t, 50, time.Hour)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit(ctx, "shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration, time.Time) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func TestLimiterFailsOpen(t *testing.T) {
	l := NewLimiter("documents", Policy{Limit: 10, Window: time.Hour}, failingStore{}, zap.NewNop())
	d := l.Admit(context.Background(), "c")
	assert.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

func TestMemoryStoreTracksClients(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()

	now := time.Now()
	_, _, err := s.Hit(context.Background(), "a", time.Hour, now)
	require.NoError(t, err)
	_, _, err = s.Hit(context.Background(), "b", time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name string
		xff  string
		want string
	}{
		{"single", "203.0.113.7", "203.0.113.7"},
		{"first of many", "203.0.113.7, 10.0.0.2, 10.0.0.3", "203.0.113.7"},
		{"padded", "  198.51.100.1 ", "198.51.100.1"},
		{"missing", "", UnknownClient},
		{"empty first", " , 10.0.0.2", UnknownClient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", nil)
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIdentity(r))
		})
	}
}
