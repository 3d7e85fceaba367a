package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/ratelimit"
)

// Per-user inbound limits: a burst of userBurst events, then one every
// 1/userRefillPerSec seconds.
const (
	userBurst        = 10.0
	userRefillPerSec = 0.5
)

// userLimiter drops events of users flooding the bot.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ratelimit.Limiter
	burst    float64
	refill   float64
	metrics  *metrics.Metrics
}

func newUserLimiter(burst, refill float64, m *metrics.Metrics) *userLimiter {
	return &userLimiter{
		limiters: make(map[string]*ratelimit.Limiter),
		burst:    burst,
		refill:   refill,
		metrics:  m,
	}
}

// Allow consumes one token of userID. Events without a user are allowed.
func (u *userLimiter) Allow(userID string) bool {
	if userID == "" {
		return true
	}

	u.mu.Lock()
	limiter, ok := u.limiters[userID]
	if !ok {
		limiter = ratelimit.New(u.burst, u.refill)
		u.limiters[userID] = limiter
	}
	u.mu.Unlock()

	if limiter.Allow() {
		return true
	}
	if u.metrics != nil {
		u.metrics.RecordRateLimiterDrop("user")
	}
	return false
}

// Len returns the number of tracked users.
func (u *userLimiter) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.limiters)
}

// prune forgets users whose bucket refilled completely.
func (u *userLimiter) prune() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, limiter := range u.limiters {
		if limiter.Available() >= u.burst {
			delete(u.limiters, id)
		}
	}
}

// run prunes every interval until ctx is done.
func (u *userLimiter) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.prune()
		}
	}
}
