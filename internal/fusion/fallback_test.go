package fusion

import (
	"math/rand"
	"testing"
	"time"

	"alphapilot/internal/ai"
	"alphapilot/internal/market"
)

func oversoldSnapshot() market.Snapshot {
	return market.Snapshot{
		Symbol: "ETH-USDT-SWAP", Price: 2000,
		RSI:  22,
		MACD: 5, MACDSignal: 2, // golden cross, positive MACD
		ATRPercent: 1.2,
		Trend:      market.TrendBullish, TrendStrength: 0.5,
		MA20: 1980, MA50: 1950, // price above rising stack
		BollUpper: 2120, BollMid: 2050, BollLower: 2000, // sitting on the lower band
		VolumeRatio: 1.8,
		Support:     1995, Resistance: 2150,
		Timestamp: time.Now(),
	}
}

func overboughtSnapshot() market.Snapshot {
	return market.Snapshot{
		Symbol: "ETH-USDT-SWAP", Price: 2200,
		RSI:  78,
		MACD: -5, MACDSignal: -2, // death cross, negative MACD
		ATRPercent: 1.2,
		Trend:      market.TrendBearish, TrendStrength: 0.5,
		MA20: 2230, MA50: 2260, // price under a falling stack
		BollUpper: 2200, BollMid: 2150, BollLower: 2100,
		VolumeRatio: 1.8,
		Support:     2050, Resistance: 2205,
		Timestamp: time.Now(),
	}
}

func TestFallbackOversoldBuys(t *testing.T) {
	res := NewFallback().Generate(oversoldSnapshot())
	if res.Signal != ai.SignalBuy {
		t.Fatalf("signal = %s, want BUY (%s)", res.Signal, res.Reason)
	}
	if res.Consensus != ConsensusFallback {
		t.Errorf("consensus = %s, want fallback", res.Consensus)
	}
	if res.Confidence < 0.3 || res.Confidence > 0.95 {
		t.Errorf("confidence %v outside [0.3, 0.95]", res.Confidence)
	}
}

func TestFallbackOverboughtSells(t *testing.T) {
	res := NewFallback().Generate(overboughtSnapshot())
	if res.Signal != ai.SignalSell {
		t.Fatalf("signal = %s, want SELL (%s)", res.Signal, res.Reason)
	}
}

func TestFallbackNeutralHolds(t *testing.T) {
	res := NewFallback().Generate(neutralSnapshot())
	if res.Signal != ai.SignalHold {
		t.Fatalf("signal = %s, want HOLD (%s)", res.Signal, res.Reason)
	}
}

func TestFallbackConfidenceBounds(t *testing.T) {
	fb := NewFallback()
	rng := rand.New(rand.NewSource(99))
	trends := []string{market.TrendBullish, market.TrendBearish, market.TrendConsolidation, market.TrendNeutral}

	for i := 0; i < 500; i++ {
		price := 100 + rng.Float64()*50000
		snap := market.Snapshot{
			Symbol: "X-USDT-SWAP", Price: price,
			RSI:  rng.Float64() * 100,
			MACD: (rng.Float64() - 0.5) * 10, MACDSignal: (rng.Float64() - 0.5) * 10,
			ATRPercent: rng.Float64() * 6,
			Trend:      trends[rng.Intn(4)], TrendStrength: rng.Float64(),
			MA20: price * (0.95 + rng.Float64()*0.1),
			MA50: price * (0.9 + rng.Float64()*0.2),
			BollUpper: price * 1.03, BollMid: price, BollLower: price * 0.97,
			VolumeRatio: rng.Float64() * 3,
			Support:     price * 0.96, Resistance: price * 1.04,
			Timestamp: time.Now(),
		}
		res := fb.Generate(snap)
		if res.Confidence < 0.3 || res.Confidence > 0.95 {
			t.Fatalf("iteration %d: confidence %v outside [0.3, 0.95]", i, res.Confidence)
		}
		if res.Signal != ai.SignalBuy && res.Signal != ai.SignalSell && res.Signal != ai.SignalHold {
			t.Fatalf("iteration %d: bad signal %q", i, res.Signal)
		}
	}
}

func TestFallbackDeterministic(t *testing.T) {
	fb := NewFallback()
	snap := oversoldSnapshot()
	a := fb.Generate(snap)
	b := fb.Generate(snap)
	if a.Signal != b.Signal || a.Confidence != b.Confidence {
		t.Errorf("fallback not deterministic: %v/%v vs %v/%v", a.Signal, a.Confidence, b.Signal, b.Confidence)
	}
}
