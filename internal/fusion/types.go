package fusion

import (
	"time"

	"alphapilot/internal/ai"
)

// Consensus labels how the fused signal was reached.
type Consensus string

const (
	ConsensusStrong   Consensus = "strong"
	ConsensusWeak     Consensus = "weak"
	ConsensusNone     Consensus = "none"
	ConsensusSingle   Consensus = "single"
	ConsensusFallback Consensus = "fallback"
)

// DiversityReport describes how varied a signal set is.
type DiversityReport struct {
	UniqueClasses int     `json:"unique_classes"`
	ConfidenceStd float64 `json:"confidence_std"`
	Score         float64 `json:"score"`
	Homogeneous   bool    `json:"homogeneous"`
}

// Result is the fused decision for one symbol and cycle.
type Result struct {
	Symbol     string                `json:"symbol"`
	Signal     ai.Signal             `json:"signal"`
	Confidence float64               `json:"confidence"`
	Consensus  Consensus             `json:"consensus"`
	Votes      map[ai.Signal]float64 `json:"votes,omitempty"`
	Ratios     map[ai.Signal]float64 `json:"ratios,omitempty"`
	Providers  []string              `json:"providers,omitempty"`
	Diversity  DiversityReport       `json:"diversity"`
	Intervened bool                  `json:"intervened"`
	Reason     string                `json:"reason,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// Policy carries the tunable fusion thresholds.
type Policy struct {
	StrongConsensus float64 // top vote ratio for a strong call
	WeakConsensus   float64 // top vote ratio for a weak call
	MinDiversity    float64 // diversity score below which the set is homogeneous
	// ConfiguredProviders is the roster size, used for the response-rate penalty.
	ConfiguredProviders int
}

// DefaultPolicy returns the standard thresholds for n configured providers.
func DefaultPolicy(n int) Policy {
	return Policy{
		StrongConsensus:     0.7,
		WeakConsensus:       0.6,
		MinDiversity:        0.3,
		ConfiguredProviders: n,
	}
}

// Randomize bounds the diversity intervention's confidence perturbation.
type Randomize struct {
	ScaleMin float64
	ScaleMax float64
	ClampMin float64
	ClampMax float64
}

// DefaultRandomize matches the stock intervention bounds.
func DefaultRandomize() Randomize {
	return Randomize{ScaleMin: 0.8, ScaleMax: 1.2, ClampMin: 0.4, ClampMax: 0.8}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
