package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store counts hits per window key. Incr adds one hit to key and returns the
// new count; ttl bounds how long the counter is kept once created.
type Store interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Close() error
}

// NewStore builds a Store from a storage URI: "memory://" for an in-process
// store, "redis://" or "rediss://" for a shared one.
func NewStore(ctx context.Context, uri string) (Store, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "" || strings.HasPrefix(uri, "memory://"):
		return NewMemoryStore(time.Minute), nil
	case strings.HasPrefix(uri, "redis://"), strings.HasPrefix(uri, "rediss://"):
		opts, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parse rate limit storage: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("ping rate limit storage: %w", err)
		}
		return NewRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit storage %q", uri)
	}
}

// MemoryStore keeps counters in process memory. A janitor goroutine drops
// expired counters until Close is called.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type memoryEntry struct {
	count   int64
	expires time.Time
}

func NewMemoryStore(cleanupEvery time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.janitor(cleanupEvery)
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || !now.Before(ent.expires) {
		ent = &memoryEntry{expires: now.Add(ttl)}
		s.entries[key] = ent
	}
	ent.count++
	return ent.count, nil
}

// Len reports the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup removes expired counters.
func (s *MemoryStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ent := range s.entries {
		if !now.Before(ent.expires) {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryStore) janitor(every time.Duration) {
	defer close(s.done)
	if every <= 0 {
		<-s.stop
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// RedisStore shares counters between API replicas.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "mail-api:ratelimit"}
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := s.prefix + ":" + key

	pipe := s.rdb.Pipeline()
	incr := pipe.IncrBy(ctx, k, 1)
	pipe.ExpireNX(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr %s: %w", k, err)
	}
	return incr.Val(), nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
