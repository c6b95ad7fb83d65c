package ai

import (
	"time"
)

// Signal is a trade direction recommendation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// ParseSignal validates a raw direction string.
func ParseSignal(raw string) (Signal, bool) {
	switch Signal(raw) {
	case SignalBuy, SignalSell, SignalHold:
		return Signal(raw), true
	}
	return "", false
}

// AISignal is one provider's recommendation for a symbol.
type AISignal struct {
	Provider   string        `json:"provider"`
	Symbol     string        `json:"symbol"`
	Signal     Signal        `json:"signal"`
	Confidence float64       `json:"confidence"`
	Reason     string        `json:"reason"`
	Latency    time.Duration `json:"latency"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Confidence tiers providers are allowed to answer with. Anything else is
// rejected rather than guessed at.
var confidenceTiers = map[string]float64{
	"HIGH":   0.9,
	"MEDIUM": 0.7,
	"LOW":    0.5,
}
