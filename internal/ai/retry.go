package ai

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// CostLedger enforces the shared daily retry budget. Admission and spend
// are one atomic step so concurrent retries can never overshoot the cap.
type CostLedger struct {
	mu    sync.Mutex
	max   float64
	spent float64
	day   time.Time // UTC midnight of the current accounting day
}

// NewCostLedger creates a ledger capped at max units per UTC day.
func NewCostLedger(max float64) *CostLedger {
	return &CostLedger{max: max, day: utcDay(time.Now())}
}

// Admit charges weight against the budget if it fits. The first attempt of
// a call is never charged; callers gate retries only.
func (l *CostLedger) Admit(weight float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(time.Now())
	if l.spent+weight > l.max {
		return false
	}
	l.spent += weight
	return true
}

// Spent returns the budget consumed so far today.
func (l *CostLedger) Spent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(time.Now())
	return l.spent
}

// Remaining returns the budget left today.
func (l *CostLedger) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(time.Now())
	if r := l.max - l.spent; r > 0 {
		return r
	}
	return 0
}

// rollover resets the ledger when the UTC day changed. Caller holds the lock.
func (l *CostLedger) rollover(now time.Time) {
	if d := utcDay(now); d.After(l.day) {
		l.day = d
		l.spent = 0
	}
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

const maxBackoff = 30 * time.Second

// backoffDelay computes the sleep before retry number attempt (0-based
// count of completed attempts): base doubling plus jitter, stretched when
// the provider has been unhealthy, doubled again after a 429.
func backoffDelay(baseDelay float64, attempt int, successRate float64, rateLimited bool) time.Duration {
	d := baseDelay*math.Pow(2, float64(attempt)) + 0.1 + rand.Float64()*0.4
	if successRate < 0.7 {
		d *= 1.5
	}
	if rateLimited {
		d *= 2
	}
	out := time.Duration(d * float64(time.Second))
	if out > maxBackoff {
		out = maxBackoff
	}
	return out
}
