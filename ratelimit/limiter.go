// Package ratelimit implements token bucket rate limiting for outbound
// webhook deliveries.
//
// Chat platforms throttle incoming webhooks aggressively, so endpoints
// without an explicit deliveries-per-second cap fall back to a per-kind
// default: Slack incoming webhooks tolerate roughly one message per second,
// Discord around five. Generic and GitHub endpoints have no default cap.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/feedbacksdev/fanout/endpoint"
)

// defaultRates holds per-kind deliveries-per-second caps applied when an
// endpoint carries no explicit rateLimit.
var defaultRates = map[endpoint.Kind]int{
	endpoint.KindSlack:   1,
	endpoint.KindDiscord: 5,
}

// Limiter tracks one token bucket per endpoint id.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens   float64
	lastFill time.Time
	rate     float64 // tokens per second, also the burst cap
}

// New creates a new rate limiter.
func New() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
	}
}

// rateFor resolves the effective deliveries-per-second cap for an endpoint.
// An explicit rateLimit wins; otherwise the kind default applies. 0 means
// unlimited.
func rateFor(kind endpoint.Kind, rateLimit int) int {
	if rateLimit > 0 {
		return rateLimit
	}
	return defaultRates[kind]
}

// Allow checks whether an endpoint may deliver immediately. Endpoints with
// no effective cap always pass.
func (l *Limiter) Allow(endpointID string, kind endpoint.Kind, rateLimit int) bool {
	rate := rateFor(kind, rateLimit)
	if rate <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getOrCreateBucket(endpointID, float64(rate))
	b.refill()

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until the effective cap allows the delivery or the context is
// cancelled. Endpoints with no effective cap return immediately.
func (l *Limiter) Wait(ctx context.Context, endpointID string, kind endpoint.Kind, rateLimit int) error {
	rate := rateFor(kind, rateLimit)
	if rate <= 0 {
		return nil
	}

	for {
		if l.Allow(endpointID, kind, rateLimit) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(float64(time.Second) / float64(rate))):
			// Try again after estimated wait.
		}
	}
}

// Reset clears the rate limit state for an endpoint. Call after a config
// update changes an endpoint's cap.
func (l *Limiter) Reset(endpointID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, endpointID)
}

func (l *Limiter) getOrCreateBucket(endpointID string, rate float64) *bucket {
	b, ok := l.buckets[endpointID]
	if !ok {
		b = &bucket{
			tokens:   rate, // start full
			lastFill: time.Now(),
			rate:     rate,
		}
		l.buckets[endpointID] = b
	}
	return b
}

func (b *bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * b.rate
	if b.tokens > b.rate {
		b.tokens = b.rate // cap at burst size = rate
	}
	b.lastFill = now
}
