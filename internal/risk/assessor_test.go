package risk

import (
	"math"
	"testing"

	"alphapilot/internal/market"
)

func calmSnapshot() market.Snapshot {
	return market.Snapshot{
		Symbol: "BTC-USDT-SWAP", Price: 50000,
		RSI: 50, MACD: 1, MACDSignal: 0.5,
		ATRPercent: 0.8, Trend: market.TrendNeutral,
		SpreadPercent: 0.05,
	}
}

func calmPortfolio() Portfolio {
	return Portfolio{Balance: 10000, TotalExposure: 2000, Leverage: 1, LargestPositionPct: 0.3}
}

func stressedSnapshot() market.Snapshot {
	return market.Snapshot{
		Symbol: "BTC-USDT-SWAP", Price: 50000,
		RSI: 85, MACD: -10, MACDSignal: -5,
		ATRPercent: 5.5, Trend: market.TrendBearish, TrendStrength: 0.9,
		SpreadPercent: 1.2,
	}
}

func stressedPortfolio() Portfolio {
	return Portfolio{
		Balance: 10000, TotalExposure: 35000, Leverage: 25,
		LargestPositionPct: 0.9, HoldingHours: 200,
	}
}

func TestAssessCalmMarket(t *testing.T) {
	a := NewAssessor()
	got := a.Assess(calmSnapshot(), calmPortfolio())
	if got.Level != LevelMinimal && got.Level != LevelLow {
		t.Errorf("calm market level = %s (score %.1f), want minimal/low", got.Level, got.Score)
	}
	if len(got.Elevated) != 0 {
		t.Errorf("calm market has elevated facets: %v", got.Elevated)
	}
}

func TestAssessStressedMarket(t *testing.T) {
	a := NewAssessor()
	got := a.Assess(stressedSnapshot(), stressedPortfolio())
	if got.Level != LevelExtreme && got.Level != LevelHigh {
		t.Errorf("stressed level = %s (score %.1f), want high/extreme", got.Level, got.Score)
	}
	if len(got.Elevated) < 3 {
		t.Errorf("elevated facets = %v, want at least 3", got.Elevated)
	}
}

func TestAssessCompounding(t *testing.T) {
	a := NewAssessor()
	snap := stressedSnapshot()
	pf := stressedPortfolio()

	facets := map[string]float64{
		FacetMarket:      a.marketRisk(snap),
		FacetPortfolio:   a.portfolioRisk(pf),
		FacetVolatility:  a.volatilityRisk(snap),
		FacetLiquidity:   a.liquidityRisk(snap),
		FacetCorrelation: a.correlationRisk(),
		FacetSystemic:    a.systemicRisk(snap),
		FacetTime:        a.timeRisk(pf),
	}
	base := 0.0
	elevated := 0
	for name, v := range facets {
		base += v * facetWeights[name]
		if v > 70 {
			elevated++
		}
	}
	if elevated < 3 {
		t.Fatalf("fixture should have >= 3 elevated facets, got %d", elevated)
	}

	got := a.Assess(snap, pf)
	want := math.Min(base*1.2, 100)
	if math.Abs(got.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v (1.2x compounding)", got.Score, want)
	}
}

func TestAssessScoreBounds(t *testing.T) {
	a := NewAssessor()
	got := a.Assess(stressedSnapshot(), stressedPortfolio())
	if got.Score < 0 || got.Score > 100 {
		t.Errorf("score %v outside [0, 100]", got.Score)
	}
}

func TestFacetWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range facetWeights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("facet weights sum to %v, want 1", sum)
	}
}

func TestMarketRiskBands(t *testing.T) {
	a := NewAssessor()
	cases := []struct {
		name string
		rsi  float64
		want float64 // rsi component only
	}{
		{"extreme oversold", 15, 80},
		{"oversold", 25, 60},
		{"leaning", 38, 40},
		{"neutral", 50, 20},
		{"overbought", 75, 60},
		{"extreme overbought", 85, 80},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := calmSnapshot()
			snap.RSI = tc.rsi
			snap.MACD, snap.MACDSignal = 0, 0 // neutral macd => 40
			got := a.marketRisk(snap)
			want := tc.want*0.4 + 40*0.3 + 40*0.3
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("marketRisk = %v, want %v", got, want)
			}
		})
	}
}

func TestVolatilityRiskBands(t *testing.T) {
	a := NewAssessor()
	cases := []struct {
		atr, want float64
	}{
		{0.5, 15}, {1.5, 25}, {2.5, 45}, {3.5, 65}, {6, 85},
	}
	for _, tc := range cases {
		snap := calmSnapshot()
		snap.ATRPercent = tc.atr
		if got := a.volatilityRisk(snap); got != tc.want {
			t.Errorf("atr %.1f: volatilityRisk = %v, want %v", tc.atr, got, tc.want)
		}
	}
}

func TestLiquidityRiskUnknownSpread(t *testing.T) {
	a := NewAssessor()
	snap := calmSnapshot()
	snap.SpreadPercent = 0
	if got := a.liquidityRisk(snap); got != 30 {
		t.Errorf("unknown spread risk = %v, want 30", got)
	}
}

func TestSystemicRiskCounts(t *testing.T) {
	a := NewAssessor()
	snap := calmSnapshot()
	if got := a.systemicRisk(snap); got != 0 {
		t.Errorf("calm systemic = %v, want 0", got)
	}
	snap.RSI = 15
	snap.ATRPercent = 4.5
	snap.TrendStrength = 0.9
	if got := a.systemicRisk(snap); got != 75 {
		t.Errorf("three extremes systemic = %v, want 75", got)
	}
}

func TestAssessRecommendations(t *testing.T) {
	a := NewAssessor()

	calm := a.Assess(calmSnapshot(), calmPortfolio())
	if len(calm.Recommendations) == 0 {
		t.Fatal("calm assessment carries no recommendations")
	}
	if calm.Recommendations[0] != "risk acceptable, normal operation" {
		t.Errorf("calm recommendation = %q", calm.Recommendations[0])
	}

	stressed := a.Assess(stressedSnapshot(), stressedPortfolio())
	if len(stressed.Recommendations) < 2 {
		t.Fatalf("stressed recommendations = %v", stressed.Recommendations)
	}
	if len(stressed.Recommendations) > 8 {
		t.Errorf("recommendations exceed cap: %d", len(stressed.Recommendations))
	}
	found := false
	for _, r := range stressed.Recommendations {
		if r == facetAdvice[FacetVolatility] {
			found = true
		}
	}
	if !found {
		t.Errorf("stressed set lacks the volatility advice: %v", stressed.Recommendations)
	}
}
