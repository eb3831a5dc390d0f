// Package ratelimit provides a simple in-memory token-bucket rate limiter
// and an HTTP middleware that throttles slot-selection requests per client.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a single token-bucket rate limiter.
type Limiter struct {
	mu         sync.Mutex
	rate       float64 // tokens added per second
	burst      float64 // maximum token capacity
	tokens     float64
	lastRefill time.Time
}

// New creates a Limiter allowing ratePerSecond requests/s with a burst capacity.
// If burst <= 0, it defaults to ratePerSecond (no extra burst).
func New(ratePerSecond, burst float64) *Limiter {
	return newLimiter(ratePerSecond, burst, time.Now())
}

func newLimiter(rate, burst float64, now time.Time) *Limiter {
	if burst <= 0 {
		burst = rate
	}
	return &Limiter{rate: rate, burst: burst, tokens: burst, lastRefill: now}
}

// Allow consumes one token and returns true if the request is permitted.
func (l *Limiter) Allow() bool {
	return l.allowAt(time.Now())
}

func (l *Limiter) allowAt(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elapsed := now.Sub(l.lastRefill).Seconds(); elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+elapsed*l.rate)
		l.lastRefill = now
	}
	if l.tokens >= 1.0 {
		l.tokens--
		return true
	}
	return false
}

// idleAt reports whether the bucket has refilled completely by now, which
// makes it indistinguishable from a fresh one.
func (l *Limiter) idleAt(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rate <= 0 {
		return false
	}
	refill := time.Duration((l.burst - l.tokens) / l.rate * float64(time.Second))
	return now.Sub(l.lastRefill) >= refill
}

// Store maintains one Limiter per client key. Buckets that have refilled
// completely are dropped on the next sweep, so the map only holds clients
// that are currently being throttled or were seen recently.
type Store struct {
	mu        sync.Mutex
	limiters  map[string]*Limiter
	rate      float64
	burst     float64
	sweepEach time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewStore creates a Store whose per-key limiters share the same rate/burst.
func NewStore(ratePerSecond, burst float64) *Store {
	return &Store{
		limiters:  make(map[string]*Limiter),
		rate:      ratePerSecond,
		burst:     burst,
		sweepEach: time.Minute,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow checks (and creates if needed) the limiter for key.
func (s *Store) Allow(key string) bool {
	now := s.now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) >= s.sweepEach {
		s.sweepLocked(now)
	}
	l, ok := s.limiters[key]
	if !ok {
		l = newLimiter(s.rate, s.burst, now)
		s.limiters[key] = l
	}
	s.mu.Unlock()

	return l.allowAt(now)
}

// Len returns the number of tracked clients.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

func (s *Store) sweepLocked(now time.Time) {
	for key, l := range s.limiters {
		if l.idleAt(now) {
			delete(s.limiters, key)
		}
	}
	s.lastSweep = now
}
