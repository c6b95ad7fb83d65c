package fusion

import (
	"alphapilot/internal/ai"
	"alphapilot/internal/market"
)

// ConditionMultiplier scales a fused confidence by how well the signal
// direction fits the current market regime. The result is clamped to
// [0.5, 1.5] so conditions tilt a decision but never dominate it.
func ConditionMultiplier(snap market.Snapshot, signal ai.Signal) float64 {
	m := 1.0

	switch {
	case snap.RSI < 30:
		switch signal {
		case ai.SignalBuy:
			m *= 1.3
		case ai.SignalSell:
			m *= 0.7
		default:
			m *= 0.8
		}
	case snap.RSI > 70:
		switch signal {
		case ai.SignalSell:
			m *= 1.3
		case ai.SignalBuy:
			m *= 0.7
		default:
			m *= 0.8
		}
	case snap.RSI >= 35 && snap.RSI <= 65:
		if signal == ai.SignalHold {
			m *= 1.1
		}
	}

	switch {
	case snap.ATRPercent < 0.5:
		if signal == ai.SignalHold {
			m *= 1.2
		} else {
			m *= 0.8
		}
	case snap.ATRPercent < 1.0:
		if signal == ai.SignalHold {
			m *= 1.1
		} else {
			m *= 0.9
		}
	case snap.ATRPercent > 3.0:
		if signal == ai.SignalHold {
			m *= 0.9
		} else {
			m *= 1.1
		}
	}

	switch snap.Trend {
	case market.TrendBullish:
		switch signal {
		case ai.SignalBuy:
			m *= 1.2
		case ai.SignalSell:
			m *= 0.8
		default:
			m *= 0.9
		}
	case market.TrendBearish:
		switch signal {
		case ai.SignalSell:
			m *= 1.2
		case ai.SignalBuy:
			m *= 0.8
		default:
			m *= 0.9
		}
	case market.TrendConsolidation:
		if signal == ai.SignalHold {
			m *= 1.3
		} else {
			m *= 0.9
		}
	}

	return clamp(m, 0.5, 1.5)
}
