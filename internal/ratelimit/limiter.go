// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by CheckLimit when a tool's bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// Tool names, shared with the MCP server.
const (
	ToolGenerate = "thoughtseed_generate"
	ToolSprout   = "thoughtseed_sprout"
	ToolAnalyze  = "thoughtseed_analyze"
	ToolGraph    = "thoughtseed_graph"
	ToolStatus   = "thoughtseed_status"
)

// Limiter is a token bucket per key. Every bucket starts full at burst and
// refills at rate tokens per second. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter refilling at rate tokens per second with room
// for burst tokens.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow reports whether a request for key may proceed, consuming one token
// when it may.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
	}
	b.refill(now, l.rate, float64(l.burst))

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// refill credits tokens for the time since the last check, capped at limit.
// A clock that moved backwards credits nothing.
func (b *bucket) refill(now time.Time, rate, limit float64) {
	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.tokens+rate*elapsed, limit)
	b.lastCheck = now
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// Generating and analyzing rebuild or traverse a complete graph, so they get
// the tightest budgets.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolGenerate: NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
		ToolAnalyze:  NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
		ToolSprout:   NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		ToolGraph:    NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		ToolStatus:   NewLimiter(1.0, 10),      // 60/minute, burst 10
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error wrapping ErrRateLimited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, toolName)
	}

	return nil
}
