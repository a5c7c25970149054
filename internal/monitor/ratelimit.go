// ratelimit.go - Token-bucket rate limiting per caller.
package monitor

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket.
type RateLimiter struct {
	mu           sync.Mutex
	tokens       int
	maxTokens    int
	refillRate   int
	refillPeriod time.Duration
	lastRefill   time.Time
	now          func() time.Time
}

// NewRateLimiter allows bursts of maxTokens and adds refillRate tokens every
// refillPeriod.
func NewRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return newRateLimiter(maxTokens, refillRate, refillPeriod, time.Now)
}

func newRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:       maxTokens,
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
		lastRefill:   now(),
		now:          now,
	}
}

// Allow consumes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if periods := int(now.Sub(rl.lastRefill) / rl.refillPeriod); periods > 0 {
		rl.tokens = min(rl.maxTokens, rl.tokens+periods*rl.refillRate)
		rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillPeriod)
	}
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens
}

// PeerRateLimiter keeps one bucket per caller.
type PeerRateLimiter struct {
	mu           sync.Mutex
	limiters     map[string]*RateLimiter
	maxTokens    int
	refillRate   int
	refillPeriod time.Duration
	now          func() time.Time
}

// NewPeerRateLimiter returns a limiter whose buckets use the given parameters.
func NewPeerRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration) *PeerRateLimiter {
	return &PeerRateLimiter{
		limiters:     make(map[string]*RateLimiter),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
		now:          time.Now,
	}
}

// Allow consumes a token from peer's bucket.
func (p *PeerRateLimiter) Allow(peer string) bool {
	p.mu.Lock()
	l, ok := p.limiters[peer]
	if !ok {
		l = newRateLimiter(p.maxTokens, p.refillRate, p.refillPeriod, p.now)
		p.limiters[peer] = l
	}
	p.mu.Unlock()
	return l.Allow()
}

// Peers returns the number of callers seen.
func (p *PeerRateLimiter) Peers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}
