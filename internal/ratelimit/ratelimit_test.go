package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/booking/internal/auth"
	"example.com/booking/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedStore(rps float64, burst int, opts ...StoreOption) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(rps, burst, opts...)
	s.now = clock.Now
	return s, clock
}

func TestStoreDecide(t *testing.T) {
	s, clock := newClockedStore(2, 2)

	require.True(t, s.Decide("a").Allowed)
	require.True(t, s.Decide("a").Allowed)

	denied := s.Decide("a")
	require.False(t, denied.Allowed)
	require.Equal(t, 500*time.Millisecond, denied.RetryAfter)

	require.True(t, s.Decide("b").Allowed, "keys have independent buckets")

	clock.Advance(500 * time.Millisecond)
	require.True(t, s.Decide("a").Allowed)
}

func TestStoreCleanup(t *testing.T) {
	s, clock := newClockedStore(1, 1, WithIdleTTL(time.Minute))
	s.Decide("old")
	clock.Advance(45 * time.Second)
	s.Decide("fresh")
	clock.Advance(30 * time.Second)

	s.Cleanup()
	require.Equal(t, 1, s.Len())

	s.Decide("old")
	require.Equal(t, 2, s.Len())
}

type recordingStats struct {
	mu     sync.Mutex
	events []StatsEvent
	err    error
}

func (r *recordingStats) Record(_ context.Context, ev StatsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	store, _ := newClockedStore(1, 1)
	stats := &recordingStats{err: errors.New("redis down")}
	handler := Middleware(Options{Store: store, Stats: stats, Logger: zerolog.Nop()})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "1", rr.Header().Get("Retry-After"))
	require.JSONEq(t, `{"type":"rate_limited","detail":"too many requests, retry later"}`, rr.Body.String())

	require.Len(t, stats.events, 2)
	require.Equal(t, "ip:10.0.0.1", stats.events[0].Key)
	require.True(t, stats.events[0].Allowed)
	require.False(t, stats.events[1].Allowed)
	require.Equal(t, "/v1/activities", stats.events[1].Path)
}

func TestDefaultKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/enrollments", nil)
	req.RemoteAddr = "192.168.1.7:443"
	require.Equal(t, "ip:192.168.1.7", DefaultKeyFunc(req))

	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{UserID: 12, Role: domain.RoleConsumer}))
	require.Equal(t, "user:12", DefaultKeyFunc(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ""
	require.Equal(t, "unknown", DefaultKeyFunc(req))
}

func TestRedisStatsWithoutClientIsNoop(t *testing.T) {
	var stats *RedisStats
	require.NoError(t, stats.Record(context.Background(), StatsEvent{Allowed: true}))
	require.NoError(t, NewRedisStats(nil, "", 0).Record(context.Background(), StatsEvent{}))
}
