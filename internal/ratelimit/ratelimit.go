// Package ratelimit gates the chat pipeline with a per-user sliding
// window. Counting state lives in Redis so the quota holds across
// process instances; per-process counters break under horizontal scaling.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"examprep/internal/config"
)

// Config describes one window: at most MaxRequests per WindowSeconds.
type Config struct {
	MaxRequests   int
	WindowSeconds int
}

// Result is the outcome of an admission check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is the admission-control gate keyed per user-action-type.
type Limiter interface {
	Check(ctx context.Context, key string, cfg Config) (Result, error)
}

// Key builds the canonical "scope:userID" limiter key.
func Key(scope, userID string) string {
	return scope + ":" + userID
}

// NewFromConfig returns the Redis limiter when Redis is configured and
// an allow-all limiter otherwise. Availability of the chat feature wins
// over strict quota enforcement.
func NewFromConfig(cfg *config.RedisConfig) Limiter {
	if cfg == nil || cfg.Addr == "" {
		log.Warn().Msg("Redis not configured, rate limiting is disabled")
		return NewOpenLimiter()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisLimiter(client)
}

// RedisLimiter counts requests in Redis with an atomic check-and-
// increment script, so concurrent callers and separate processes share
// one window per key and the count never passes the limit.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// checkScript increments only while under the limit and stamps the
// window expiry on the first hit. Returns {allowed, count, pttl}.
var checkScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= limit then
	return {0, current, redis.call("PTTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, current, redis.call("PTTL", KEYS[1])}
`)

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "ratelimit:"}
}

func (r *RedisLimiter) Check(ctx context.Context, key string, cfg Config) (Result, error) {
	window := time.Duration(cfg.WindowSeconds) * time.Second

	vals, err := checkScript.Run(ctx, r.client, []string{r.prefix + key},
		cfg.MaxRequests, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("rate limit check returned %d values", len(vals))
	}

	allowed, count, pttl := vals[0] == 1, int(vals[1]), vals[2]
	resetAt := time.Now().Add(window)
	if pttl > 0 {
		resetAt = time.Now().Add(time.Duration(pttl) * time.Millisecond)
	}

	remaining := cfg.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: allowed, Remaining: remaining, ResetAt: resetAt}, nil
}

// Reset clears the window for a key.
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// sweepInterval bounds how often the memory limiter scans for expired
// windows.
const sweepInterval = time.Minute

// MemoryLimiter keeps windows in process memory. Correct for a single
// instance only; the server uses it for local development and tests.
type MemoryLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	resetAt time.Time
	count   int
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window), now: time.Now}
}

func (m *MemoryLimiter) Check(ctx context.Context, key string, cfg Config) (Result, error) {
	windowDur := time.Duration(cfg.WindowSeconds) * time.Second
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep(now)

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(windowDur)}
		m.windows[key] = w
	}

	if w.count >= cfg.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}, nil
	}
	w.count++
	return Result{Allowed: true, Remaining: cfg.MaxRequests - w.count, ResetAt: w.resetAt}, nil
}

// sweep drops expired windows so the map does not grow with every key
// ever seen. Runs at most once per sweepInterval; callers hold the lock.
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}

// OpenLimiter allows everything. It is the degraded mode for a missing
// counter store, not a production limiter.
type OpenLimiter struct{}

func NewOpenLimiter() *OpenLimiter {
	return &OpenLimiter{}
}

func (o *OpenLimiter) Check(ctx context.Context, key string, cfg Config) (Result, error) {
	log.Debug().Str("key", key).Msg("Rate limiting disabled, allowing request")
	return Result{
		Allowed:   true,
		Remaining: cfg.MaxRequests,
		ResetAt:   time.Now().Add(time.Duration(cfg.WindowSeconds) * time.Second),
	}, nil
}
