package risk

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"alphapilot/internal/market"
	"alphapilot/pkg/logger"
)

// Assessor scores a proposed trade across seven weighted facets.
type Assessor struct {
	log *logrus.Entry
}

// NewAssessor creates the risk assessor.
func NewAssessor() *Assessor {
	return &Assessor{log: logger.WithModule("risk")}
}

// Assess scores snap plus the portfolio it lands in. Scores run 0..100;
// several elevated facets compound the total.
func (a *Assessor) Assess(snap market.Snapshot, pf Portfolio) Assessment {
	facets := map[string]float64{
		FacetMarket:      a.marketRisk(snap),
		FacetPortfolio:   a.portfolioRisk(pf),
		FacetVolatility:  a.volatilityRisk(snap),
		FacetLiquidity:   a.liquidityRisk(snap),
		FacetCorrelation: a.correlationRisk(),
		FacetSystemic:    a.systemicRisk(snap),
		FacetTime:        a.timeRisk(pf),
	}

	score := 0.0
	elevated := []string{}
	for _, name := range facetOrder {
		v := facets[name]
		score += v * facetWeights[name]
		if v > 70 {
			elevated = append(elevated, name)
		}
	}

	// Several elevated facets together are worse than their weighted sum.
	switch {
	case len(elevated) >= 3:
		score *= 1.2
	case len(elevated) >= 2:
		score *= 1.1
	}
	score = math.Min(score, 100)

	assessment := Assessment{
		Symbol:          snap.Symbol,
		Score:           score,
		Level:           levelFor(score),
		Facets:          facets,
		Elevated:        elevated,
		Recommendations: recommendations(score, elevated),
		Timestamp:       time.Now(),
	}

	if assessment.Level == LevelHigh || assessment.Level == LevelExtreme {
		a.log.WithFields(logger.Fields{
			"symbol":   snap.Symbol,
			"score":    score,
			"level":    assessment.Level,
			"elevated": elevated,
		}).Warn("elevated trade risk")
	}
	return assessment
}

// marketRisk blends RSI extremity, MACD posture, and trend direction.
func (a *Assessor) marketRisk(s market.Snapshot) float64 {
	var rsiRisk float64
	switch {
	case s.RSI < 20 || s.RSI > 80:
		rsiRisk = 80
	case s.RSI < 30 || s.RSI > 70:
		rsiRisk = 60
	case s.RSI < 40 || s.RSI > 60:
		rsiRisk = 40
	default:
		rsiRisk = 20
	}

	macdRisk := 40.0
	switch {
	case s.DeathCross() && s.MACD < 0:
		macdRisk = 70
	case s.DeathCross():
		macdRisk = 50
	case s.GoldenCross() && s.MACD < 0:
		macdRisk = 30
	case s.GoldenCross():
		macdRisk = 20
	}

	trendRisk := 40.0
	switch s.Trend {
	case market.TrendBullish:
		trendRisk = math.Max(10, 40-s.TrendStrength*20)
	case market.TrendBearish:
		trendRisk = math.Min(90, 60+s.TrendStrength*20)
	}

	return rsiRisk*0.4 + macdRisk*0.3 + trendRisk*0.3
}

// portfolioRisk blends exposure, leverage, and concentration.
func (a *Assessor) portfolioRisk(pf Portfolio) float64 {
	sizeRisk := 15.0
	if pf.Balance > 0 {
		switch ratio := pf.TotalExposure / pf.Balance; {
		case ratio > 3:
			sizeRisk = 85
		case ratio > 2:
			sizeRisk = 65
		case ratio > 1:
			sizeRisk = 45
		case ratio > 0.5:
			sizeRisk = 30
		}
	}

	leverageRisk := 15.0
	switch {
	case pf.Leverage > 20:
		leverageRisk = 90
	case pf.Leverage > 10:
		leverageRisk = 70
	case pf.Leverage > 5:
		leverageRisk = 50
	case pf.Leverage > 2:
		leverageRisk = 30
	}

	concentrationRisk := 20.0
	switch {
	case pf.LargestPositionPct > 0.8:
		concentrationRisk = 80
	case pf.LargestPositionPct > 0.6:
		concentrationRisk = 60
	case pf.LargestPositionPct > 0.4:
		concentrationRisk = 40
	}

	return sizeRisk*0.5 + leverageRisk*0.3 + concentrationRisk*0.2
}

func (a *Assessor) volatilityRisk(s market.Snapshot) float64 {
	switch {
	case s.ATRPercent > 5:
		return 85
	case s.ATRPercent > 3:
		return 65
	case s.ATRPercent > 2:
		return 45
	case s.ATRPercent > 1:
		return 25
	default:
		return 15
	}
}

func (a *Assessor) liquidityRisk(s market.Snapshot) float64 {
	if s.SpreadPercent <= 0 {
		return 30 // unknown spread gets a cautious default
	}
	switch {
	case s.SpreadPercent > 1:
		return 70
	case s.SpreadPercent > 0.5:
		return 50
	default:
		return 25
	}
}

// correlationRisk is flat while the core trades symbols independently.
func (a *Assessor) correlationRisk() float64 { return 25 }

// systemicRisk counts simultaneously extreme indicators.
func (a *Assessor) systemicRisk(s market.Snapshot) float64 {
	extremes := 0
	if s.RSI < 20 || s.RSI > 80 {
		extremes++
	}
	if s.ATRPercent > 4 {
		extremes++
	}
	if math.Abs(s.TrendStrength) > 0.8 {
		extremes++
	}
	return float64(extremes) * 25
}

var facetAdvice = map[string]string{
	FacetMarket:      "market indicators stretched, wait for confirmation",
	FacetPortfolio:   "portfolio exposure heavy, avoid adding",
	FacetVolatility:  "volatility elevated, size down or widen stops",
	FacetLiquidity:   "spread wide, prefer smaller orders",
	FacetCorrelation: "positions correlated, diversify entries",
	FacetSystemic:    "multiple extremes at once, de-risk",
	FacetTime:        "position held long, review the original thesis",
}

// recommendations turns the composite score and its elevated facets into
// operator guidance, capped at eight lines.
func recommendations(score float64, elevated []string) []string {
	var recs []string
	switch {
	case score > 80:
		recs = append(recs,
			"risk extreme, reduce or close positions",
			"tighten stops and pause new entries")
	case score > 60:
		recs = append(recs,
			"risk high, cut position size",
			"monitor stops closely")
	case score > 40:
		recs = append(recs, "risk moderate, stay cautious")
	default:
		recs = append(recs, "risk acceptable, normal operation")
	}
	for _, f := range elevated {
		if advice, ok := facetAdvice[f]; ok {
			recs = append(recs, advice)
		}
	}
	if len(recs) > 8 {
		recs = recs[:8]
	}
	return recs
}

func (a *Assessor) timeRisk(pf Portfolio) float64 {
	switch {
	case pf.HoldingHours > 168:
		return 60
	case pf.HoldingHours > 72:
		return 40
	case pf.HoldingHours > 24:
		return 25
	default:
		return 15
	}
}
