package httpserver

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClaimLimiter keeps one token bucket per provider for the pull claim route.
// Idle buckets are evicted by the janitor.
type ClaimLimiter struct {
	mu           sync.Mutex
	entries      map[string]*limiterEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type LimiterOption func(*ClaimLimiter)

func WithIdleTTL(d time.Duration) LimiterOption {
	return func(l *ClaimLimiter) { l.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) LimiterOption {
	return func(l *ClaimLimiter) { l.cleanupEvery = d }
}

func NewClaimLimiter(rps float64, burst int, opts ...LimiterOption) *ClaimLimiter {
	if burst <= 0 {
		burst = 1
	}
	l := &ClaimLimiter{
		entries:      make(map[string]*limiterEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one token for providerID.
func (l *ClaimLimiter) Allow(providerID string) bool {
	return l.get(providerID).Allow()
}

// RetryAfter is the advertised wait in whole seconds, at least one.
func (l *ClaimLimiter) RetryAfter() string {
	if l.rps <= 0 {
		return "1"
	}
	seconds := int(1 / float64(l.rps))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func (l *ClaimLimiter) get(key string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

func (l *ClaimLimiter) Cleanup() {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

func (l *ClaimLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// StartJanitor evicts idle buckets until ctx is cancelled.
func (l *ClaimLimiter) StartJanitor(ctx context.Context) {
	if l.cleanupEvery <= 0 {
		return
	}
	ticker := time.NewTicker(l.cleanupEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}
