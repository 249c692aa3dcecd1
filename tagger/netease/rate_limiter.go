package netease

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a sliding window rate limiter.
type RateLimiter struct {
	mu           sync.Mutex
	requestTimes []time.Time
	maxRequests  int
	windowSize   time.Duration
	enabled      bool
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(enabled bool, maxRequests int, windowSeconds float64) *RateLimiter {
	return &RateLimiter{
		requestTimes: make([]time.Time, 0),
		maxRequests:  maxRequests,
		windowSize:   time.Duration(windowSeconds * float64(time.Second)),
		enabled:      enabled && maxRequests > 0,
	}
}

// WaitIfNeeded blocks until a request fits in the window or ctx is done.
func (rl *RateLimiter) WaitIfNeeded(ctx context.Context) error {
	if !rl.enabled {
		return nil
	}

	for {
		rl.mu.Lock()
		now := time.Now()
		windowStart := now.Add(-rl.windowSize)

		valid := rl.requestTimes[:0]
		for _, t := range rl.requestTimes {
			if t.After(windowStart) {
				valid = append(valid, t)
			}
		}
		rl.requestTimes = valid

		if len(rl.requestTimes) < rl.maxRequests {
			rl.requestTimes = append(rl.requestTimes, now)
			rl.mu.Unlock()
			return nil
		}

		wait := rl.windowSize - now.Sub(rl.requestTimes[0])
		rl.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
