package webhook

import (
	"sync"
	"time"
)

// RateLimiter implements token-bucket rate limiting per webhook target.
type RateLimiter struct {
	mu           sync.Mutex
	buckets      map[string]*tokenBucket
	maxTokens    int
	refillPeriod time.Duration
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter builds a limiter allowing maxRequests per period per
// distinct target key.
func NewRateLimiter(maxRequests int, period time.Duration) *RateLimiter {
	return &RateLimiter{buckets: map[string]*tokenBucket{}, maxTokens: maxRequests, refillPeriod: period}
}

// Allow reports whether a request against target is permitted right now,
// consuming a token if so.
func (rl *RateLimiter) Allow(target string) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[target]
	if !ok {
		b = &tokenBucket{tokens: rl.maxTokens, lastRefill: time.Now()}
		rl.buckets[target] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := time.Since(b.lastRefill)
	if elapsed >= rl.refillPeriod {
		periods := int(elapsed / rl.refillPeriod)
		b.tokens = minInt(b.tokens+periods*rl.maxTokens, rl.maxTokens)
		b.lastRefill = b.lastRefill.Add(time.Duration(periods) * rl.refillPeriod)
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Reset clears the bucket for target, e.g. after the target's rate
// limit configuration has changed.
func (rl *RateLimiter) Reset(target string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, target)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
