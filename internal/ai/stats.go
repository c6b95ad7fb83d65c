package ai

import (
	"sync"
	"time"

	"alphapilot/pkg/config"
)

const (
	// EMA weight given to the newest latency sample.
	emaAlpha = 0.2
	// Adaptive rules only engage once this many requests were observed.
	minSamples = 5

	floorConnect  = 2.0
	floorResponse = 3.0
	floorTotal    = 5.0
)

// Timeouts is the adaptive per-provider timeout set, in seconds.
type Timeouts struct {
	Connect  float64
	Response float64
	Total    float64
	// BaseDelay is the retry delay baseline after adaptation.
	BaseDelay float64
}

// StatsSnapshot is the exported per-provider health view.
type StatsSnapshot struct {
	Provider       string    `json:"provider"`
	TotalRequests  int64     `json:"total_requests"`
	Successes      int64     `json:"successes"`
	Timeouts       int64     `json:"timeouts"`
	SuccessRate    float64   `json:"success_rate"`
	AvgResponseSec float64   `json:"avg_response_sec"`
	TotalTimeout   float64   `json:"total_timeout_sec"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type providerStats struct {
	base config.Provider

	total     int64
	successes int64
	timeouts  int64
	avgResp   float64 // seconds, EMA
	current   Timeouts
	updatedAt time.Time
}

// Tracker keeps rolling health stats per provider and derives the adaptive
// timeouts the gateway applies on the next call.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*providerStats
}

// NewTracker seeds one entry per configured provider at its baseline.
func NewTracker(providers []config.Provider) *Tracker {
	t := &Tracker{stats: make(map[string]*providerStats, len(providers))}
	for _, p := range providers {
		t.stats[p.Name] = &providerStats{
			base: p,
			current: Timeouts{
				Connect:   p.ConnectTimeout,
				Response:  p.ResponseTimeout,
				Total:     p.TotalTimeout,
				BaseDelay: p.BaseDelay,
			},
		}
	}
	return t
}

// RecordSuccess folds a successful call into the provider's stats.
func (t *Tracker) RecordSuccess(provider string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stats[provider]
	if !ok {
		return
	}
	s.total++
	s.successes++
	sample := latency.Seconds()
	if s.avgResp == 0 {
		s.avgResp = sample
	} else {
		s.avgResp = s.avgResp*(1-emaAlpha) + sample*emaAlpha
	}
	s.updatedAt = time.Now()
	s.recompute()
}

// RecordFailure folds a failed call into the provider's stats.
func (t *Tracker) RecordFailure(provider string, kind ErrorKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stats[provider]
	if !ok {
		return
	}
	s.total++
	if kind == KindTimeout {
		s.timeouts++
	}
	s.updatedAt = time.Now()
	s.recompute()
}

// Timeouts returns the provider's current adaptive timeout set.
func (t *Tracker) Timeouts(provider string) Timeouts {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.stats[provider]; ok {
		return s.current
	}
	return Timeouts{Connect: 10, Response: 20, Total: 35, BaseDelay: 3}
}

// SuccessRate returns successes/total, or 1 before any requests.
func (t *Tracker) SuccessRate(provider string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.stats[provider]
	if !ok || s.total == 0 {
		return 1.0
	}
	return float64(s.successes) / float64(s.total)
}

// Snapshot exports every provider's health view.
func (t *Tracker) Snapshot() []StatsSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]StatsSnapshot, 0, len(t.stats))
	for name, s := range t.stats {
		rate := 1.0
		if s.total > 0 {
			rate = float64(s.successes) / float64(s.total)
		}
		out = append(out, StatsSnapshot{
			Provider:       name,
			TotalRequests:  s.total,
			Successes:      s.successes,
			Timeouts:       s.timeouts,
			SuccessRate:    rate,
			AvgResponseSec: s.avgResp,
			TotalTimeout:   s.current.Total,
			UpdatedAt:      s.updatedAt,
		})
	}
	return out
}

// recompute rebuilds the adaptive timeouts from the configured baseline so
// adjustments never compound across calls. Caller holds the lock.
func (s *providerStats) recompute() {
	cur := Timeouts{
		Connect:   s.base.ConnectTimeout,
		Response:  s.base.ResponseTimeout,
		Total:     s.base.TotalTimeout,
		BaseDelay: s.base.BaseDelay,
	}
	if s.total >= minSamples {
		rate := float64(s.successes) / float64(s.total)
		mult := 1.0
		switch {
		case rate < 0.6:
			mult = 1.2
		case rate < 0.8:
			mult = 1.1
		case rate > 0.95:
			mult = 0.9
		}
		cur.Connect *= mult
		cur.Response *= mult
		cur.Total *= mult

		if float64(s.timeouts)/float64(s.total) > 0.2 {
			cur.Total *= 1.3
			cur.BaseDelay *= 1.2
		}
	}
	if cur.Connect < floorConnect {
		cur.Connect = floorConnect
	}
	if cur.Response < floorResponse {
		cur.Response = floorResponse
	}
	if cur.Total < floorTotal {
		cur.Total = floorTotal
	}
	s.current = cur
}
