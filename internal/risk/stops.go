package risk

import "alphapilot/internal/ai"

// Stops holds protective levels for a filled position.
type Stops struct {
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
	// TolerancePct is the volatility-scaled band within which existing
	// stop orders count as equivalent to these levels.
	TolerancePct float64 `json:"tolerance_pct"`
}

// ComputeStops derives ATR-scaled protective levels around the entry
// price: stop distance is 1.5x ATR% floored at 1%, take profit doubles it.
func ComputeStops(signal ai.Signal, entry, atrPercent float64) Stops {
	stopPct := atrPercent * 1.5
	if stopPct < 1.0 {
		stopPct = 1.0
	}
	profitPct := stopPct * 2

	tolerance := atrPercent * 0.25
	if tolerance < 0.2 {
		tolerance = 0.2
	}

	s := Stops{TolerancePct: tolerance}
	switch signal {
	case ai.SignalBuy:
		s.StopLoss = entry * (1 - stopPct/100)
		s.TakeProfit = entry * (1 + profitPct/100)
	case ai.SignalSell:
		s.StopLoss = entry * (1 + stopPct/100)
		s.TakeProfit = entry * (1 - profitPct/100)
	}
	return s
}

// WithinTolerance reports whether an existing level is close enough to a
// target level to keep, relative to the entry price.
func (s Stops) WithinTolerance(existing, target, entry float64) bool {
	if entry <= 0 {
		return false
	}
	diff := existing - target
	if diff < 0 {
		diff = -diff
	}
	return diff/entry*100 <= s.TolerancePct
}
