package risk

import (
	"math"
	"testing"

	"alphapilot/internal/ai"
)

func testSizerConfig() SizerConfig {
	return SizerConfig{
		BaseSize:        0.1,
		MinOrderSize:    0.001,
		MaxPositionSize: 1.0,
		AccountRiskPct:  0.02,
		StopDistancePct: 0.02,
	}
}

func TestSizeHoldIsZero(t *testing.T) {
	s := NewSizer(testSizerConfig())
	got := s.Size(ai.SignalHold, 0.9, calmSnapshot(), calmPortfolio(), Assessment{Score: 10})
	if got != 0 {
		t.Fatalf("HOLD size = %v, want 0", got)
	}
}

func TestSizeMultiplierChain(t *testing.T) {
	s := NewSizer(testSizerConfig())
	snap := calmSnapshot()
	snap.ATRPercent = 0.8 // 1.2x volatility multiplier

	// Large balance keeps the risk cap out of the way.
	pf := Portfolio{Balance: 10_000_000}
	got := s.Size(ai.SignalBuy, 0.8, snap, pf, Assessment{Score: 50})

	// 0.1 * (0.5 + 0.8*0.5) * 1.2 * 0.7
	want := 0.1 * 0.9 * 1.2 * 0.7
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("size = %v, want %v", got, want)
	}
}

func TestSizeRiskAdjustment(t *testing.T) {
	s := NewSizer(testSizerConfig())
	snap := calmSnapshot()
	snap.ATRPercent = 1.5 // neutral volatility multiplier
	pf := Portfolio{Balance: 10_000_000}

	base := 0.1 * (0.5 + 0.9*0.5)
	cases := []struct {
		score float64
		mult  float64
	}{
		{90, 0.3}, {70, 0.5}, {50, 0.7}, {30, 0.9}, {10, 1.0},
	}
	for _, tc := range cases {
		got := s.Size(ai.SignalBuy, 0.9, snap, pf, Assessment{Score: tc.score})
		want := base * tc.mult
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("score %.0f: size = %v, want %v", tc.score, got, want)
		}
	}
}

func TestSizeAccountRiskCap(t *testing.T) {
	s := NewSizer(testSizerConfig())
	snap := calmSnapshot()
	snap.Price = 50000
	snap.ATRPercent = 1.5
	pf := Portfolio{Balance: 1000}

	got := s.Size(ai.SignalBuy, 1.0, snap, pf, Assessment{Score: 10})
	// 1000 * 0.02 / (50000 * 0.02) = 0.02, well below the multiplier chain.
	if want := 0.02; math.Abs(got-want) > 1e-12 {
		t.Errorf("size = %v, want risk cap %v", got, want)
	}
}

func TestSizeClampedToMax(t *testing.T) {
	cfg := testSizerConfig()
	cfg.BaseSize = 5
	cfg.MaxPositionSize = 0.5
	s := NewSizer(cfg)
	snap := calmSnapshot()
	snap.ATRPercent = 1.5
	got := s.Size(ai.SignalSell, 1.0, snap, Portfolio{Balance: 10_000_000}, Assessment{Score: 10})
	if got != 0.5 {
		t.Errorf("size = %v, want max clamp 0.5", got)
	}
}

func TestComputeStopsBuy(t *testing.T) {
	st := ComputeStops(ai.SignalBuy, 50000, 2.0)
	// stop 3%, profit 6%
	if math.Abs(st.StopLoss-48500) > 1e-6 {
		t.Errorf("stop loss = %v, want 48500", st.StopLoss)
	}
	if math.Abs(st.TakeProfit-53000) > 1e-6 {
		t.Errorf("take profit = %v, want 53000", st.TakeProfit)
	}
	if math.Abs(st.TolerancePct-0.5) > 1e-9 {
		t.Errorf("tolerance = %v, want 0.5", st.TolerancePct)
	}
}

func TestComputeStopsSellAndFloor(t *testing.T) {
	st := ComputeStops(ai.SignalSell, 2000, 0.2)
	// ATR floor: stop 1%, profit 2%, tolerance floor 0.2%.
	if math.Abs(st.StopLoss-2020) > 1e-6 {
		t.Errorf("stop loss = %v, want 2020", st.StopLoss)
	}
	if math.Abs(st.TakeProfit-1960) > 1e-6 {
		t.Errorf("take profit = %v, want 1960", st.TakeProfit)
	}
	if st.TolerancePct != 0.2 {
		t.Errorf("tolerance = %v, want 0.2", st.TolerancePct)
	}
}

func TestStopsWithinTolerance(t *testing.T) {
	st := ComputeStops(ai.SignalBuy, 50000, 2.0) // tolerance 0.5%
	if !st.WithinTolerance(48600, 48500, 50000) {
		t.Error("100 off on a 50000 entry (0.2%) should be within 0.5%")
	}
	if st.WithinTolerance(48000, 48500, 50000) {
		t.Error("500 off on a 50000 entry (1%) should exceed 0.5%")
	}
}
