// Package ratelimit caps request throughput per client address using a
// fixed one-minute window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	window        = time.Minute
	staleAfter    = 10 * time.Minute
	retryAfterSec = 60
)

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

type bucket struct {
	windowStart time.Time
	count       int
}

// Limiter tracks request counts per client address. Buckets for clients that
// go quiet are dropped by a background sweep so the map stays bounded.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit         int
	sweepInterval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a limiter and starts its sweep goroutine; call Stop on
// shutdown.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	l := &Limiter{
		buckets:       make(map[string]*bucket),
		limit:         config.RequestsPerMinute,
		sweepInterval: config.CleanupInterval,
		stop:          make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow reports whether one more request from the client fits in the current
// window. The window resets a minute after the client's first request in it.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[clientIP]
	if !ok || now.Sub(b.windowStart) > window {
		l.buckets[clientIP] = &bucket{windowStart: now, count: 1}
		return true
	}

	b.count++
	return b.count <= l.limit
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.dropStale()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) dropStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-staleAfter)
	for ip, b := range l.buckets {
		if b.windowStart.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
}

// ActiveClients returns the number of currently tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop terminates the sweep goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// Middleware wraps a handler with the limiter. extractIP resolves the client
// key; onLimit, if non-nil, handles rejected requests, otherwise a plain 429
// with Retry-After is written.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(extractIP(r)) {
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
