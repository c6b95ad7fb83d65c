package risk

import (
	"alphapilot/internal/ai"
	"alphapilot/internal/market"
)

// SizerConfig bounds the position sizer.
type SizerConfig struct {
	BaseSize        float64 // starting quantity before multipliers
	MinOrderSize    float64
	MaxPositionSize float64
	AccountRiskPct  float64 // fraction of balance risked per trade
	StopDistancePct float64 // assumed stop distance used for the risk cap
}

// Sizer turns a fused signal plus its risk assessment into a quantity.
type Sizer struct {
	cfg SizerConfig
}

// NewSizer creates a sizer with the given bounds.
func NewSizer(cfg SizerConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// Size computes the order quantity. HOLD always sizes to zero. The result
// is capped by the account-risk rule and clamped to the configured range.
func (s *Sizer) Size(signal ai.Signal, confidence float64, snap market.Snapshot, pf Portfolio, assessment Assessment) float64 {
	if signal == ai.SignalHold || confidence <= 0 {
		return 0
	}

	qty := s.cfg.BaseSize
	qty *= 0.5 + confidence*0.5

	switch {
	case snap.ATRPercent < 1:
		qty *= 1.2
	case snap.ATRPercent < 2:
		// unchanged
	case snap.ATRPercent < 3:
		qty *= 0.8
	default:
		qty *= 0.6
	}

	switch {
	case assessment.Score > 80:
		qty *= 0.3
	case assessment.Score > 60:
		qty *= 0.5
	case assessment.Score > 40:
		qty *= 0.7
	case assessment.Score > 20:
		qty *= 0.9
	}

	// Cap so that a stop-out costs at most AccountRiskPct of the balance.
	if pf.Balance > 0 && snap.Price > 0 && s.cfg.StopDistancePct > 0 {
		riskCap := pf.Balance * s.cfg.AccountRiskPct / (snap.Price * s.cfg.StopDistancePct)
		if qty > riskCap {
			qty = riskCap
		}
	}

	if qty > s.cfg.MaxPositionSize {
		qty = s.cfg.MaxPositionSize
	}
	if qty < s.cfg.MinOrderSize {
		qty = s.cfg.MinOrderSize
	}
	return qty
}
