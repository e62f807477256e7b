package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// maxKeys bounds the number of tracked clients before the table is reset.
const maxKeys = 10000

// MemoryLimiter keeps a token bucket per key in process memory.
type MemoryLimiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		m:     make(map[string]*rate.Limiter),
		limit: rate.Limit(rps),
		burst: burst,
	}
}

// Allow consumes one token for key. It never fails.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.allowAt(key, time.Now()), nil
}

func (l *MemoryLimiter) allowAt(key string, now time.Time) bool {
	l.mu.Lock()
	b, ok := l.m[key]
	if !ok {
		if len(l.m) >= maxKeys {
			l.m = make(map[string]*rate.Limiter)
		}
		b = rate.NewLimiter(l.limit, l.burst)
		l.m[key] = b
	}
	l.mu.Unlock()
	return b.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
