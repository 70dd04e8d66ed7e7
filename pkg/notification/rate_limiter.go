package notification

import (
	"sync"
	"time"

	"github.com/idlewatch/idlewatch/pkg/clock"
)

// TokenBucketRateLimiter caps notification bursts: a bucket holds one
// token per sendable notification, drains one per Allow, and regains
// one per refill interval.
type TokenBucketRateLimiter struct {
	mu       sync.Mutex
	clock    clock.Clock
	capacity int
	tokens   int
	refill   time.Duration
	refillAt time.Time // start of the current refill interval
}

// NewTokenBucketRateLimiter creates a limiter allowing capacity sends
// up front, regaining one per refill interval, on the system clock.
func NewTokenBucketRateLimiter(capacity int, refill time.Duration) *TokenBucketRateLimiter {
	return NewTokenBucketRateLimiterWithClock(capacity, refill, clock.System)
}

// NewTokenBucketRateLimiterWithClock is NewTokenBucketRateLimiter with
// an injectable time source.
func NewTokenBucketRateLimiterWithClock(capacity int, refill time.Duration, c clock.Clock) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		clock:    c,
		capacity: capacity,
		tokens:   capacity,
		refill:   refill,
		refillAt: c.Now(),
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucketRateLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()

	if tb.tokens == 0 {
		return false
	}
	tb.tokens--
	return true
}

// Reset refills the bucket immediately.
func (tb *TokenBucketRateLimiter) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.refillAt = tb.clock.Now()
}

// refillLocked credits one token per whole refill interval elapsed
// since the last credit, keeping the remainder toward the next one.
func (tb *TokenBucketRateLimiter) refillLocked() {
	if tb.refill <= 0 {
		return
	}

	elapsed := tb.clock.Now().Sub(tb.refillAt)
	credit := int(elapsed / tb.refill)
	if credit <= 0 {
		return
	}

	tb.tokens = min(tb.capacity, tb.tokens+credit)
	tb.refillAt = tb.refillAt.Add(tb.refill * time.Duration(credit))
}
