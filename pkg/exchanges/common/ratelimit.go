package common

import (
	"sync"
	"time"

	"alphapilot/pkg/logger"
)

// RateLimiter tracks venue API usage inside a rolling window. OKX limits
// requests per endpoint per window, so usage is counted client-side.
type RateLimiter struct {
	used          int
	limit         int
	lastReset     time.Time
	resetInterval time.Duration
	mu            sync.RWMutex
}

// NewRateLimiter creates a limiter allowing limit requests per resetInterval.
func NewRateLimiter(limit int, resetInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:         limit,
		resetInterval: resetInterval,
		lastReset:     time.Now(),
	}
}

// Record counts one outgoing request and warns when usage climbs.
func (rl *RateLimiter) Record() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastReset) >= rl.resetInterval {
		rl.used = 0
		rl.lastReset = time.Now()
	}
	rl.used++

	percentage := float64(rl.used) / float64(rl.limit) * 100
	if percentage >= 95 {
		logger.WithModule("exchange").Warnf("rate limit critical: %d/%d (%.1f%%)", rl.used, rl.limit, percentage)
	} else if percentage >= 80 {
		logger.WithModule("exchange").Infof("rate limit elevated: %d/%d (%.1f%%)", rl.used, rl.limit, percentage)
	}
}

// GetUsage returns current usage information.
func (rl *RateLimiter) GetUsage() (used int, limit int, percentage float64) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	if time.Since(rl.lastReset) >= rl.resetInterval {
		return 0, rl.limit, 0
	}
	return rl.used, rl.limit, float64(rl.used) / float64(rl.limit) * 100
}

// ShouldDelay returns true if the next request should wait for the window.
func (rl *RateLimiter) ShouldDelay() bool {
	_, _, pct := rl.GetUsage()
	return pct >= 90
}
