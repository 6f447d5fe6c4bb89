// Package ratelimit provides per-key token buckets on top of
// golang.org/x/time/rate. One Limiter serves many keys, so a single
// instance can throttle every client IP on the auth routes or every
// remote OCR provider independently.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Buckets idle longer than this are evicted so the key space cannot
// grow without bound under churning client IPs.
const idleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out an independent token bucket per key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Limiter allowing rps sustained requests per second per
// key, with bursts up to burst. A background janitor evicts idle keys
// until Stop is called.
func New(rps float64, burst int) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		stop:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow reports whether a request under key may proceed right now.
func (l *Limiter) Allow(key string) bool {
	return l.bucketFor(key).Allow()
}

// Wait blocks until a request under key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.bucketFor(key).Wait(ctx)
}

// Stop shuts down the janitor. The Limiter stays usable afterwards,
// it just no longer evicts idle keys.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) bucketFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if now.Sub(b.lastSeen) > idleTTL {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
