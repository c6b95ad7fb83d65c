package risk

import "time"

// Level buckets a total risk score.
type Level string

const (
	LevelMinimal Level = "minimal"
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
	LevelExtreme Level = "extreme"
)

// Facet names, used as keys in Assessment.Facets.
const (
	FacetMarket      = "market"
	FacetPortfolio   = "portfolio"
	FacetVolatility  = "volatility"
	FacetLiquidity   = "liquidity"
	FacetCorrelation = "correlation"
	FacetSystemic    = "systemic"
	FacetTime        = "time"
)

// facetOrder fixes the scan order so elevated lists and recommendations
// come out stable.
var facetOrder = []string{
	FacetMarket, FacetPortfolio, FacetVolatility, FacetLiquidity,
	FacetCorrelation, FacetSystemic, FacetTime,
}

// Facet weights in the composite score.
var facetWeights = map[string]float64{
	FacetMarket:      0.25,
	FacetPortfolio:   0.20,
	FacetVolatility:  0.20,
	FacetLiquidity:   0.15,
	FacetCorrelation: 0.10,
	FacetSystemic:    0.05,
	FacetTime:        0.05,
}

// Assessment is the scored risk view for one proposed trade.
type Assessment struct {
	Symbol    string             `json:"symbol"`
	Score     float64            `json:"score"` // 0..100
	Level     Level              `json:"level"`
	Facets    map[string]float64 `json:"facets"`
	Elevated  []string           `json:"elevated,omitempty"` // facets above 70
	// Recommendations is operator guidance derived from the score and
	// the elevated facets.
	Recommendations []string  `json:"recommendations,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Portfolio describes the account state a trade would land in.
type Portfolio struct {
	Balance       float64
	TotalExposure float64 // notional across open positions
	Leverage      float64
	// LargestPositionPct is the biggest single position's share of exposure.
	LargestPositionPct float64
	// HoldingHours is how long the current position in the symbol has been open.
	HoldingHours float64
}

// levelFor maps a composite score onto a level bucket.
func levelFor(score float64) Level {
	switch {
	case score >= 80:
		return LevelExtreme
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	case score >= 20:
		return LevelLow
	default:
		return LevelMinimal
	}
}
