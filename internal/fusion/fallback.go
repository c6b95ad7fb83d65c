package fusion

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"alphapilot/internal/ai"
	"alphapilot/internal/market"
	"alphapilot/pkg/logger"
)

// Factor weights for the technical fallback. The composite score is
// negative for buy pressure and positive for sell pressure.
const (
	weightRSI         = 1.0
	weightMACD        = 0.8
	weightMA          = 0.6
	weightBollinger   = 0.7
	weightVolume      = 0.5
	weightSupportRes  = 0.9
	weightEnvironment = 0.4
)

type factor struct {
	name       string
	score      float64 // negative = buy pressure
	confidence float64
	weight     float64
}

// Fallback derives a deterministic signal from indicator values when no
// provider answered.
type Fallback struct {
	log *logrus.Entry
}

// NewFallback creates the technical fallback generator.
func NewFallback() *Fallback {
	return &Fallback{log: logger.WithModule("fallback")}
}

// Generate scores seven weighted factors and maps the composite to a
// signal. Confidence always lands in [0.3, 0.95].
func (f *Fallback) Generate(snap market.Snapshot) Result {
	factors := []factor{
		f.rsiFactor(snap),
		f.macdFactor(snap),
		f.maFactor(snap),
		f.bollingerFactor(snap),
		f.volumeFactor(snap),
		f.supportResistanceFactor(snap),
		f.environmentFactor(snap),
	}

	var weightedSum, weightTotal, confSum float64
	scores := make([]float64, 0, len(factors))
	for _, fac := range factors {
		weightedSum += fac.score * fac.weight
		weightTotal += fac.weight
		confSum += fac.confidence
		scores = append(scores, fac.score)
	}
	composite := weightedSum / weightTotal

	var signal ai.Signal
	switch {
	case composite <= -0.5:
		signal = ai.SignalBuy
	case composite >= 0.5:
		signal = ai.SignalSell
	case math.Abs(composite) <= 0.2:
		signal = ai.SignalHold
	case composite < 0:
		signal = ai.SignalBuy
	default:
		signal = ai.SignalSell
	}

	strength := 0.8
	switch {
	case math.Abs(composite) > 0.7:
		strength = 1.1
	case math.Abs(composite) > 0.4:
		strength = 1.0
	}
	consistency := 0.9
	switch std := stdDev(scores); {
	case std < 0.1:
		consistency = 1.1
	case std < 0.2:
		consistency = 1.0
	}

	confidence := clamp(confSum/float64(len(factors))*strength*consistency, 0.3, 0.95)

	f.log.WithFields(logger.Fields{
		"symbol":    snap.Symbol,
		"composite": composite,
		"signal":    signal,
	}).Info("technical fallback signal")

	return Result{
		Symbol:     snap.Symbol,
		Signal:     signal,
		Confidence: confidence,
		Consensus:  ConsensusFallback,
		Providers:  []string{"technical"},
		Reason:     fmt.Sprintf("technical composite %.2f", composite),
		Timestamp:  time.Now(),
	}
}

func (f *Fallback) rsiFactor(s market.Snapshot) factor {
	fac := factor{name: "rsi", weight: weightRSI, confidence: 0.4}
	switch {
	case s.RSI < 30:
		fac.score, fac.confidence = -0.8, 0.8
		if s.BollLower > 0 && s.Price <= s.BollLower {
			fac.confidence = math.Min(fac.confidence*1.2, 1)
		}
	case s.RSI > 70:
		fac.score, fac.confidence = 0.8, 0.8
		if s.BollUpper > 0 && s.Price >= s.BollUpper {
			fac.confidence = math.Min(fac.confidence*1.2, 1)
		}
	case s.RSI < 40:
		fac.score, fac.confidence = -0.4, 0.6
		if s.BollLower > 0 && s.Price <= s.BollLower {
			fac.confidence = math.Min(fac.confidence*1.1, 1)
		}
	case s.RSI > 60:
		fac.score, fac.confidence = 0.4, 0.6
		if s.BollUpper > 0 && s.Price >= s.BollUpper {
			fac.confidence = math.Min(fac.confidence*1.1, 1)
		}
	}
	return fac
}

func (f *Fallback) macdFactor(s market.Snapshot) factor {
	fac := factor{name: "macd", weight: weightMACD, confidence: 0.4}
	switch {
	case s.GoldenCross() && s.MACD > 0:
		fac.score, fac.confidence = -0.7, 0.8
	case s.GoldenCross():
		fac.score, fac.confidence = -0.3, 0.6
	case s.DeathCross() && s.MACD < 0:
		fac.score, fac.confidence = 0.7, 0.8
	case s.DeathCross():
		fac.score, fac.confidence = 0.3, 0.6
	}
	return fac
}

func (f *Fallback) maFactor(s market.Snapshot) factor {
	fac := factor{name: "ma", weight: weightMA, confidence: 0.4}
	switch {
	case s.Price > s.MA20 && s.MA20 > s.MA50:
		fac.score, fac.confidence = -0.6, 0.7
	case s.Price < s.MA20 && s.MA20 < s.MA50:
		fac.score, fac.confidence = 0.6, 0.7
	case s.Price > s.MA20:
		fac.score, fac.confidence = -0.3, 0.5
	case s.Price < s.MA20:
		fac.score, fac.confidence = 0.3, 0.5
	}
	return fac
}

func (f *Fallback) bollingerFactor(s market.Snapshot) factor {
	fac := factor{name: "bollinger", weight: weightBollinger, confidence: 0.4}
	if s.BollUpper <= s.BollLower {
		return fac
	}
	band := s.BollUpper - s.BollLower
	switch {
	case s.Price <= s.BollLower:
		fac.score, fac.confidence = -0.7, 0.7
	case s.Price >= s.BollUpper:
		fac.score, fac.confidence = 0.7, 0.7
	case s.Price <= s.BollLower+band*0.2:
		fac.score, fac.confidence = -0.3, 0.5
	case s.Price >= s.BollUpper-band*0.2:
		fac.score, fac.confidence = 0.3, 0.5
	}
	return fac
}

func (f *Fallback) volumeFactor(s market.Snapshot) factor {
	fac := factor{name: "volume", weight: weightVolume, confidence: 0.4}
	if s.VolumeRatio > 1.5 {
		switch s.Trend {
		case market.TrendBullish:
			fac.score, fac.confidence = -0.5, 0.6
		case market.TrendBearish:
			fac.score, fac.confidence = 0.5, 0.6
		}
	} else if s.VolumeRatio > 0 && s.VolumeRatio < 0.5 {
		fac.confidence = 0.5 // thin volume says stay put
	}
	return fac
}

func (f *Fallback) supportResistanceFactor(s market.Snapshot) factor {
	fac := factor{name: "support_resistance", weight: weightSupportRes, confidence: 0.4}
	if s.Support <= 0 || s.Resistance <= 0 {
		return fac
	}
	switch {
	case math.Abs(s.Price-s.Support)/s.Support < 0.01:
		fac.score, fac.confidence = -0.8, 0.8
	case math.Abs(s.Price-s.Resistance)/s.Resistance < 0.01:
		fac.score, fac.confidence = 0.8, 0.8
	case math.Abs(s.Price-s.Support)/s.Support < 0.03:
		fac.score, fac.confidence = -0.4, 0.6
	case math.Abs(s.Price-s.Resistance)/s.Resistance < 0.03:
		fac.score, fac.confidence = 0.4, 0.6
	}
	return fac
}

func (f *Fallback) environmentFactor(s market.Snapshot) factor {
	fac := factor{name: "environment", weight: weightEnvironment, confidence: 0.4}
	switch s.Trend {
	case market.TrendBullish:
		fac.score, fac.confidence = -0.5, 0.6
	case market.TrendBearish:
		fac.score, fac.confidence = 0.5, 0.6
	case market.TrendConsolidation:
		fac.confidence = 0.5
	}
	return fac
}
