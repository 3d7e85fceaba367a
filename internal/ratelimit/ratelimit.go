// Package ratelimit provides the token buckets that pace outbound calls to
// chat platform APIs and throttle noisy users.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
)

// Limiter is a token bucket holding up to burst tokens, refilled at rate
// tokens per second. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	burst  float64
	rate   float64
	tokens float64
	last   time.Time
	now    func() time.Time
}

// New returns a full bucket.
func New(burst, rate float64) *Limiter {
	return newWithClock(burst, rate, time.Now)
}

func newWithClock(burst, rate float64, now func() time.Time) *Limiter {
	return &Limiter{burst: burst, rate: rate, tokens: burst, last: now(), now: now}
}

// advance credits the tokens earned since the last call. mu must be held.
func (l *Limiter) advance() {
	t := l.now()
	if elapsed := t.Sub(l.last); elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+elapsed.Seconds()*l.rate)
	}
	l.last = t
}

// take consumes a token and returns zero, or returns how long until one is
// available without consuming anything.
func (l *Limiter) take() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	if l.rate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	return l.take() == 0
}

// Wait blocks until a token is consumed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		delay := l.take()
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the tokens currently in the bucket.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance()
	return l.tokens
}

// Outbound paces calls to one chat platform API. Callers wait for their turn;
// a drop is only recorded when the caller's context ends first.
type Outbound struct {
	*Limiter
	name    string
	metrics *metrics.Metrics
}

// NewOutbound allows rps calls per second with a burst of at least one call.
// m may be nil.
func NewOutbound(name string, rps float64, m *metrics.Metrics) *Outbound {
	return &Outbound{Limiter: New(max(rps, 1), rps), name: name, metrics: m}
}

// Wait blocks until the call may proceed.
func (o *Outbound) Wait(ctx context.Context) error {
	start := time.Now()
	err := o.Limiter.Wait(ctx)
	if o.metrics == nil {
		return err
	}
	if err != nil {
		o.metrics.RecordRateLimiterDrop(o.name)
	} else {
		o.metrics.RecordRateLimiterWait(o.name, time.Since(start).Seconds())
	}
	return err
}
