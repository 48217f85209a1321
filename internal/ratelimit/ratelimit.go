// Package ratelimit throttles form and calculator submissions per client.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// DefaultWindow replaces a non-positive window.
const DefaultWindow = constants.DefaultRateLimitWindowSeconds * time.Second

const (
	idleThreshold   = 1 * time.Hour
	cleanupInterval = 30 * time.Minute
	keyPrefix       = "site:ratelimit:"
)

// Limiter decides whether a client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-process token bucket limiter. Idle buckets are dropped by a
// background loop until Stop is called.
type Memory struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	now         func() time.Time
	clients     map[string]*entry
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMemory allows requests per window with bursts up to burst (requests when burst <= 0).
func NewMemory(requests int, window time.Duration, burst int) *Memory {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if burst <= 0 {
		burst = requests
	}
	m := &Memory{
		limit:       rate.Every(window / time.Duration(requests)),
		burst:       burst,
		now:         time.Now,
		clients:     make(map[string]*entry),
		stopCleanup: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.clients {
		if now.Sub(e.lastSeen) > idleThreshold {
			delete(m.clients, key)
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.clients[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Redis is a fixed-window limiter shared by every instance using the same redis.
type Redis struct {
	client   redis.UniversalClient
	requests int64
	window   time.Duration
	now      func() time.Time
}

// NewRedis allows requests per window for each key. Windows are whole seconds.
func NewRedis(client redis.UniversalClient, requests int, window time.Duration) *Redis {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}
	window = window.Truncate(time.Second)
	if window < time.Second {
		window = time.Second
	}
	return &Redis{
		client:   client,
		requests: int64(requests),
		window:   window,
		now:      time.Now,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := r.key(key)

	pipe := r.client.Pipeline()
	count := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}
	return count.Val() <= r.requests, nil
}

func (r *Redis) key(key string) string {
	window := r.now().Unix() / int64(r.window/time.Second)
	return fmt.Sprintf("%s%s:%d", keyPrefix, key, window)
}

var (
	_ Limiter = (*Memory)(nil)
	_ Limiter = (*Redis)(nil)
)
