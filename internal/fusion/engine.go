package fusion

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"alphapilot/internal/ai"
	"alphapilot/internal/market"
	"alphapilot/pkg/logger"
)

// Engine fuses per-provider signals into one decision by weighted vote.
type Engine struct {
	policy      Policy
	voteWeights map[string]float64
	randomize   Randomize

	mu  sync.Mutex
	rng *rand.Rand
	log *logrus.Entry
}

// NewEngine builds a fusion engine. voteWeights maps provider name to its
// voice during voting; unknown providers count at weight 1.
func NewEngine(policy Policy, voteWeights map[string]float64) *Engine {
	return &Engine{
		policy:      policy,
		voteWeights: voteWeights,
		randomize:   DefaultRandomize(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		log:         logger.WithModule("fusion"),
	}
}

// SetRandomize overrides the diversity intervention bounds.
func (e *Engine) SetRandomize(r Randomize) { e.randomize = r }

// seed makes the intervention deterministic, for tests.
func (e *Engine) seed(n int64) {
	e.mu.Lock()
	e.rng = rand.New(rand.NewSource(n))
	e.mu.Unlock()
}

// Fuse combines the signals for snap.Symbol. The input slice is never
// modified; a homogeneous set triggers exactly one diversity intervention
// on a copied slice before the final vote.
func (e *Engine) Fuse(snap market.Snapshot, signals []ai.AISignal) Result {
	if len(signals) == 0 {
		return Result{
			Symbol:    snap.Symbol,
			Signal:    ai.SignalHold,
			Consensus: ConsensusNone,
			Reason:    "no provider signals",
			Timestamp: time.Now(),
		}
	}

	// A lone signal passes through untouched; voting math and penalties
	// only apply once there is something to vote between.
	if len(signals) == 1 {
		s := signals[0]
		return Result{
			Symbol:     snap.Symbol,
			Signal:     s.Signal,
			Confidence: s.Confidence,
			Consensus:  ConsensusSingle,
			Votes:      map[ai.Signal]float64{s.Signal: 1},
			Ratios:     map[ai.Signal]float64{s.Signal: 1},
			Providers:  []string{s.Provider},
			Diversity:  e.analyzeDiversity(signals),
			Reason:     fmt.Sprintf("single provider %s", s.Provider),
			Timestamp:  time.Now(),
		}
	}

	report := e.analyzeDiversity(signals)
	work := signals
	intervened := false
	if report.Homogeneous && len(signals) >= 2 {
		work = e.diversify(signals)
		intervened = true
		report = e.analyzeDiversity(work)
		e.log.WithFields(logger.Fields{
			"symbol": snap.Symbol,
			"score":  report.Score,
		}).Info("homogeneous signal set, diversity intervention applied")
	}

	res := e.fuseOnce(snap, work)
	res.Diversity = report
	res.Intervened = intervened
	return res
}

func (e *Engine) fuseOnce(snap market.Snapshot, signals []ai.AISignal) Result {
	votes := map[ai.Signal]float64{}
	classConfSum := map[ai.Signal]float64{}
	classCount := map[ai.Signal]int{}
	providers := make([]string, 0, len(signals))

	total := 0.0
	for _, s := range signals {
		w := e.voteWeight(s.Provider)
		votes[s.Signal] += w
		classConfSum[s.Signal] += s.Confidence
		classCount[s.Signal]++
		total += w
		providers = append(providers, s.Provider)
	}

	ratios := map[ai.Signal]float64{}
	for class, v := range votes {
		ratios[class] = v / total
	}
	classMean := func(class ai.Signal) float64 {
		if classCount[class] == 0 {
			return 0
		}
		return classConfSum[class] / float64(classCount[class])
	}

	top := ai.SignalHold
	topRatio := 0.0
	for _, class := range []ai.Signal{ai.SignalBuy, ai.SignalSell, ai.SignalHold} {
		if r := ratios[class]; r > topRatio {
			top, topRatio = class, r
		}
	}

	var (
		signal     ai.Signal
		confidence float64
		consensus  Consensus
		reason     string
	)
	switch {
	case topRatio >= e.policy.StrongConsensus:
		signal = top
		confidence = classMean(top)
		consensus = ConsensusStrong
		reason = fmt.Sprintf("strong consensus %.0f%% for %s", topRatio*100, top)

		// A strong HOLD with meaningful directional dissent defers to the
		// stronger direction at reduced confidence.
		if top == ai.SignalHold && (ratios[ai.SignalBuy] > 0.2 || ratios[ai.SignalSell] > 0.2) {
			dir := ai.SignalBuy
			if classMean(ai.SignalSell) > classMean(ai.SignalBuy) {
				dir = ai.SignalSell
			}
			if classCount[dir] > 0 {
				signal = dir
				confidence = classMean(dir) * 0.8
				reason = fmt.Sprintf("hold consensus overridden by %s dissent", dir)
			}
		}
	case topRatio >= e.policy.WeakConsensus:
		signal = top
		confidence = classMean(top) * 0.95
		consensus = ConsensusWeak
		reason = fmt.Sprintf("weak consensus %.0f%% for %s", topRatio*100, top)
	default:
		// No consensus: a strictly highest mean picks the direction;
		// anything else stays flat.
		buyMean := classMean(ai.SignalBuy)
		sellMean := classMean(ai.SignalSell)
		holdMean := classMean(ai.SignalHold)
		switch {
		case buyMean > sellMean && buyMean > holdMean:
			signal = ai.SignalBuy
			confidence = buyMean * 0.7
			reason = "no consensus, highest mean confidence on BUY"
		case sellMean > buyMean && sellMean > holdMean:
			signal = ai.SignalSell
			confidence = sellMean * 0.7
			reason = "no consensus, highest mean confidence on SELL"
		default:
			signal = ai.SignalHold
			confidence = holdMean
			reason = "no consensus, holding"
		}
		consensus = ConsensusNone
	}

	// Penalize thin response rates from the configured roster.
	if n := e.policy.ConfiguredProviders; n > 0 {
		switch rate := float64(len(signals)) / float64(n); {
		case rate < 0.3:
			confidence *= 0.6
		case rate < 0.5:
			confidence *= 0.85
		}
	}

	// The winning margin weights every path the same way.
	confidence *= maxf(0.7, topRatio)
	confidence *= ConditionMultiplier(snap, signal)
	confidence = clamp(confidence, 0, 1)

	return Result{
		Symbol:     snap.Symbol,
		Signal:     signal,
		Confidence: confidence,
		Consensus:  consensus,
		Votes:      votes,
		Ratios:     ratios,
		Providers:  providers,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
}

func (e *Engine) voteWeight(provider string) float64 {
	if w, ok := e.voteWeights[provider]; ok && w > 0 {
		return w
	}
	return 1.0
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
