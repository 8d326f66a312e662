package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key. Every key gets the same burst and
// refill rate.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*entry
	burst int
	every rate.Limit
	now   func() time.Time
}

// New builds a limiter allowing bursts of capacity (rounded up, at least 1)
// refilled at refillPerSec tokens per second.
func New(capacity, refillPerSec float64) *Limiter {
	burst := int(math.Ceil(capacity))
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:     make(map[string]*entry),
		burst: burst,
		every: rate.Limit(refillPerSec),
		now:   time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN consumes n tokens at once. It never succeeds for n above the burst.
func (l *Limiter) AllowN(key string, n int) bool {
	now := l.now()
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.every, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	l.mu.Unlock()
	return e.lim.AllowN(now, n)
}

// Sweep forgets keys idle for longer than idle.
func (l *Limiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.m {
		if e.seen.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
