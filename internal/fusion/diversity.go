package fusion

import (
	"math"

	"alphapilot/internal/ai"
)

// analyzeDiversity scores how varied the signal set is: class spread and
// confidence spread each contribute half.
func (e *Engine) analyzeDiversity(signals []ai.AISignal) DiversityReport {
	classes := map[ai.Signal]struct{}{}
	confs := make([]float64, 0, len(signals))
	for _, s := range signals {
		classes[s.Signal] = struct{}{}
		confs = append(confs, s.Confidence)
	}

	std := stdDev(confs)
	unique := len(classes)
	score := (float64(unique)/3 + math.Min(std/0.2, 1)) / 2

	return DiversityReport{
		UniqueClasses: unique,
		ConfidenceStd: std,
		Score:         score,
		Homogeneous:   (unique == 1 && std < 0.15) || score < e.policy.MinDiversity,
	}
}

// diversify returns a copy of signals with one randomly chosen member
// flipped to a different class and its confidence perturbed. The input is
// left untouched.
func (e *Engine) diversify(signals []ai.AISignal) []ai.AISignal {
	out := make([]ai.AISignal, len(signals))
	copy(out, signals)

	e.mu.Lock()
	idx := e.rng.Intn(len(out))
	flip := otherClasses(out[idx].Signal)[e.rng.Intn(2)]
	scale := e.randomize.ScaleMin + e.rng.Float64()*(e.randomize.ScaleMax-e.randomize.ScaleMin)
	e.mu.Unlock()

	out[idx].Signal = flip
	out[idx].Confidence = clamp(out[idx].Confidence*scale, e.randomize.ClampMin, e.randomize.ClampMax)
	out[idx].Reason = "diversity adjustment"
	return out
}

func otherClasses(s ai.Signal) [2]ai.Signal {
	switch s {
	case ai.SignalBuy:
		return [2]ai.Signal{ai.SignalSell, ai.SignalHold}
	case ai.SignalSell:
		return [2]ai.Signal{ai.SignalBuy, ai.SignalHold}
	default:
		return [2]ai.Signal{ai.SignalBuy, ai.SignalSell}
	}
}

func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return math.Sqrt(variance / float64(len(xs)))
}
