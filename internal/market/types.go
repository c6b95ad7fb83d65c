package market

import "time"

// Trend labels the prevailing market regime as classified upstream.
const (
	TrendBullish       = "bullish"
	TrendBearish       = "bearish"
	TrendConsolidation = "consolidation"
	TrendNeutral       = "neutral"
)

// Snapshot carries the per-symbol market view one decision cycle works on.
// Indicator values are computed upstream and arrive ready to use.
type Snapshot struct {
	Symbol string
	Price  float64

	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64

	// ATRPercent is ATR expressed as a percentage of price.
	ATRPercent float64

	Trend         string
	TrendStrength float64 // 0..1

	MA20 float64
	MA50 float64

	BollUpper float64
	BollMid   float64
	BollLower float64

	// VolumeRatio is current volume over its recent average.
	VolumeRatio float64

	Support    float64
	Resistance float64

	// SpreadPercent is the bid/ask spread over mid price; 0 means unknown.
	SpreadPercent float64

	Timestamp time.Time
}

// GoldenCross reports whether MACD sits above its signal line.
func (s Snapshot) GoldenCross() bool { return s.MACD > s.MACDSignal }

// DeathCross reports whether MACD sits below its signal line.
func (s Snapshot) DeathCross() bool { return s.MACD < s.MACDSignal }

// Source yields the latest snapshot for a symbol.
type Source interface {
	Snapshot(symbol string) (Snapshot, error)
}
