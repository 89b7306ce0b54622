package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRules(t *testing.T) {
	rules, err := ParseRules("200 per day;50 per hour")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, int64(200), rules[0].Limit)
	assert.Equal(t, 24*time.Hour, rules[0].Window)
	assert.Equal(t, int64(50), rules[1].Limit)
	assert.Equal(t, time.Hour, rules[1].Window)
	assert.Equal(t, "50 per hour", rules[1].String())
}

func TestParseRules_Forms(t *testing.T) {
	tests := []struct {
		in     string
		limit  int64
		window time.Duration
	}{
		{"10/minute", 10, time.Minute},
		{"5 per seconds", 5, time.Second},
		{"  30 PER Minute ", 30, time.Minute},
		{"1/day", 1, 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rules, err := ParseRules(tt.in)
			require.NoError(t, err)
			require.Len(t, rules, 1)
			assert.Equal(t, tt.limit, rules[0].Limit)
			assert.Equal(t, tt.window, rules[0].Window)
		})
	}
}

func TestParseRules_Empty(t *testing.T) {
	rules, err := ParseRules(" ; ")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestParseRules_Invalid(t *testing.T) {
	for _, in := range []string{"ten per minute", "0 per minute", "-1/hour", "5 per fortnight", "5 every minute", "5"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRules(in)
			assert.Error(t, err)
		})
	}
}

func TestMustParseRules_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseRules("nope") })
}

func TestMemoryStore_IncrAndExpiry(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(context.Background(), "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	now = now.Add(time.Minute)
	n, err := s.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired counter starts over")
}

func TestMemoryStore_Cleanup(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	_, _ = s.Incr(context.Background(), "short", time.Second)
	_, _ = s.Incr(context.Background(), "long", time.Hour)
	require.Equal(t, 2, s.Len())

	now = now.Add(2 * time.Second)
	s.Cleanup()
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_CloseIdempotent(t *testing.T) {
	s := NewMemoryStore(time.Millisecond)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Incr(context.Background(), "k", time.Minute)
		}()
	}
	wg.Wait()

	n, err := s.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), n)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(context.Background(), "memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(context.Background(), "memcached://localhost:11211")
	assert.ErrorContains(t, err, "unsupported rate limit storage")

	_, err = NewStore(context.Background(), "redis://localhost:6379/notadb")
	assert.ErrorContains(t, err, "parse rate limit storage")
}

func newTestLimiter(t *testing.T) (*Limiter, *time.Time) {
	t.Helper()
	store := NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })

	now := time.Unix(3600*10, 0)
	store.now = func() time.Time { return now }
	l := NewLimiter(store)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	l, _ := newTestLimiter(t)
	rules := MustParseRules("2 per minute")

	for i := 0; i < 2; i++ {
		dec, err := l.Allow(context.Background(), "c", rules)
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	}

	dec, err := l.Allow(context.Background(), "c", rules)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, int64(2), dec.Limit)
	assert.Equal(t, int64(0), dec.Remaining)
	assert.Equal(t, time.Minute, dec.RetryAfter)
}

func TestLimiter_WindowBoundary(t *testing.T) {
	l, now := newTestLimiter(t)
	rules := MustParseRules("1 per minute")

	*now = now.Add(59 * time.Second)
	dec, _ := l.Allow(context.Background(), "c", rules)
	assert.True(t, dec.Allowed)
	dec, _ = l.Allow(context.Background(), "c", rules)
	assert.False(t, dec.Allowed)
	assert.Equal(t, time.Second, dec.RetryAfter)

	*now = now.Add(time.Second)
	dec, _ = l.Allow(context.Background(), "c", rules)
	assert.True(t, dec.Allowed, "a new aligned window opens")
}

func TestLimiter_TightestRuleReported(t *testing.T) {
	l, _ := newTestLimiter(t)
	rules := MustParseRules("100 per day;3 per hour")

	dec, err := l.Allow(context.Background(), "c", rules)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dec.Limit)
	assert.Equal(t, int64(2), dec.Remaining)
}

func TestLimiter_KeysIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	rules := MustParseRules("1 per minute")

	dec, _ := l.Allow(context.Background(), "a", rules)
	assert.True(t, dec.Allowed)
	dec, _ = l.Allow(context.Background(), "b", rules)
	assert.True(t, dec.Allowed)
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}
func (failingStore) Close() error { return nil }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Rejects(t *testing.T) {
	l, _ := newTestLimiter(t)
	h := l.Middleware("domains-write", MustParseRules("1 per minute"))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/domains", nil)
	req.RemoteAddr = "192.0.2.10:4321"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, MsgRateLimited, body["error"])

	other := httptest.NewRequest(http.MethodPost, "/api/domains", nil)
	other.RemoteAddr = "192.0.2.11:4321"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_ClassesIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	rules := MustParseRules("1 per minute")
	read := l.Middleware("domains-read", rules)(okHandler())
	write := l.Middleware("domains-write", rules)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/domains", nil)

	rec := httptest.NewRecorder()
	read.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	write.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_StoreFailureLetsThrough(t *testing.T) {
	l := NewLimiter(failingStore{})
	h := l.Middleware("default", MustParseRules("1 per minute"))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_NilLimiterPassesThrough(t *testing.T) {
	var l *Limiter
	h := l.Middleware("default", MustParseRules("1 per minute"))(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "198.51.100.7:55000"
	assert.Equal(t, "198.51.100.7", ClientKey(req))

	req.RemoteAddr = "198.51.100.7"
	assert.Equal(t, "198.51.100.7", ClientKey(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientKey(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown", ClientKey(req))
}
