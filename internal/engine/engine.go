package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"alphapilot/internal/ai"
	"alphapilot/internal/events"
	"alphapilot/internal/fusion"
	"alphapilot/internal/market"
	"alphapilot/internal/monitor"
	"alphapilot/internal/order"
	"alphapilot/internal/risk"
	"alphapilot/internal/state"
	"alphapilot/pkg/config"
	"alphapilot/pkg/db"
	"alphapilot/pkg/exchanges/common"
	"alphapilot/pkg/logger"
)

// Engine composes the decision pipeline and runs it on a schedule.
type Engine struct {
	cfg      *config.Config
	source   market.Source
	client   *ai.Client
	fuser    *fusion.Engine
	fallback *fusion.Fallback
	assessor *risk.Assessor
	sizer    *risk.Sizer
	executor *order.Executor
	states   *state.Manager
	store    *db.Database
	bus      *events.Bus
	metrics  *monitor.SystemMetrics
	marker   PriceMarker
	log      *logrus.Entry

	mu     sync.Mutex
	paused bool
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Config   *config.Config
	Source   market.Source
	Client   *ai.Client
	Fuser    *fusion.Engine
	Fallback *fusion.Fallback
	Assessor *risk.Assessor
	Sizer    *risk.Sizer
	Executor *order.Executor
	States   *state.Manager
	Store    *db.Database
	Bus      *events.Bus
	Metrics  *monitor.SystemMetrics
	// Marker, when set, receives each cycle's snapshot price so a
	// simulated venue fills at the observed market price.
	Marker PriceMarker
}

// PriceMarker is implemented by venues that take their mark price from
// the decision loop instead of a live feed.
type PriceMarker interface {
	MarkPrice(symbol string, price float64)
}

func New(d Deps) *Engine {
	return &Engine{
		cfg:      d.Config,
		source:   d.Source,
		client:   d.Client,
		fuser:    d.Fuser,
		fallback: d.Fallback,
		assessor: d.Assessor,
		sizer:    d.Sizer,
		executor: d.Executor,
		states:   d.States,
		store:    d.Store,
		bus:      d.Bus,
		metrics:  d.Metrics,
		marker:   d.Marker,
		log:      logger.WithModule("engine"),
	}
}

// Run executes decision cycles for every configured symbol on the
// configured interval until the context ends.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.DecisionInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.WithFields(logger.Fields{
		"interval": interval.String(),
		"symbols":  e.cfg.Symbols,
	}).Info("decision loop started")

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("decision loop stopped")
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if e.isPaused() {
		return
	}
	if err := e.states.Refresh(ctx); err != nil {
		e.log.WithError(err).Warn("position refresh failed, using previous view")
	}
	for _, symbol := range e.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.runCycle(ctx, symbol); err != nil {
			e.metrics.IncrementErrors()
			e.log.WithField("symbol", symbol).WithError(err).Error("decision cycle failed")
		}
	}
	e.persistProviderStats(ctx)
	e.metrics.SetCostSpent(e.client.Ledger().Spent())
}

// runCycle takes one symbol through snapshot, signal acquisition,
// fusion, risk, sizing, and execution.
func (e *Engine) runCycle(ctx context.Context, symbol string) (*CycleOutcome, error) {
	started := time.Now()
	timer := monitor.NewTimer(e.metrics.DecisionLatency)
	defer timer.Stop()

	e.bus.Publish(events.EventDecisionStarted, map[string]any{"symbol": symbol})

	snap, err := e.source.Snapshot(symbol)
	if err != nil {
		return nil, fmt.Errorf("market snapshot %s: %w", symbol, err)
	}
	if e.marker != nil {
		e.marker.MarkPrice(symbol, snap.Price)
	}

	signals := e.client.CollectSignals(ctx, snap)
	for _, s := range signals {
		e.metrics.ProviderLatency.RecordDuration(s.Latency)
	}

	var result fusion.Result
	usedFallback := len(signals) == 0
	if usedFallback {
		result = e.fallback.Generate(snap)
		e.bus.Publish(events.EventFallbackUsed, result)
		e.log.WithField("symbol", symbol).Warn("no provider signals, technical fallback engaged")
	} else {
		result = e.fuser.Fuse(snap, signals)
	}

	pf := e.states.Portfolio(symbol)
	assessment := e.assessor.Assess(snap, pf)
	if assessment.Level == risk.LevelHigh || assessment.Level == risk.LevelExtreme {
		e.bus.Publish(events.EventRiskAlert, assessment)
	}

	qty := e.sizer.Size(result.Signal, result.Confidence, snap, pf, assessment)

	outcome := &CycleOutcome{
		Symbol:     symbol,
		Decision:   result,
		Assessment: assessment,
		Qty:        qty,
		Fallback:   usedFallback,
	}

	decisionID := uuid.NewString()
	if e.cfg.ExecutionEnabled && qty > 0 {
		exec, execErr := e.execute(ctx, symbol, snap, result, qty)
		outcome.Execution = exec
		e.journal(ctx, decisionID, outcome)
		if execErr != nil {
			return outcome, fmt.Errorf("execute %s: %w", symbol, execErr)
		}
	} else {
		e.journal(ctx, decisionID, outcome)
	}

	outcome.Elapsed = time.Since(started)
	e.bus.Publish(events.EventDecisionCompleted, outcome)
	e.log.WithFields(logger.Fields{
		"symbol":     symbol,
		"signal":     result.Signal,
		"confidence": result.Confidence,
		"consensus":  result.Consensus,
		"risk":       assessment.Level,
		"qty":        qty,
	}).Info("decision completed")
	return outcome, nil
}

func (e *Engine) execute(ctx context.Context, symbol string, snap market.Snapshot, result fusion.Result, qty float64) (*order.Execution, error) {
	req := order.Request{
		Symbol: symbol,
		Signal: result.Signal,
		Qty:    qty,
		Price:  snap.Price,
		Stops:  risk.ComputeStops(result.Signal, snap.Price, snap.ATRPercent),
	}

	// A signal against an open position closes it instead of opening
	// the other way.
	if pos, open := e.states.Position(symbol); open {
		closing := (pos.Side == common.SideBuy && result.Signal == ai.SignalSell) ||
			(pos.Side == common.SideSell && result.Signal == ai.SignalBuy)
		if closing {
			req.ReduceOnly = true
			req.PositionQty = pos.Qty
		}
	}

	timer := monitor.NewTimer(e.metrics.ExecutionLatency)
	exec, err := e.executor.Execute(ctx, req)
	timer.Stop()
	if exec != nil && exec.State == order.StateDone && exec.SubmittedQty > 0 {
		e.states.RecordFill(symbol, exec.Side, exec.SubmittedQty, snap.Price)
	}
	return exec, err
}

// journal persists the decision and, when present, its execution.
func (e *Engine) journal(ctx context.Context, decisionID string, out *CycleOutcome) {
	if e.store == nil {
		return
	}

	votes, _ := json.Marshal(out.Decision.Votes)
	dec := db.Decision{
		ID:         decisionID,
		Symbol:     out.Symbol,
		Signal:     string(out.Decision.Signal),
		Confidence: out.Decision.Confidence,
		Consensus:  string(out.Decision.Consensus),
		Votes:      string(votes),
		Providers:  strings.Join(out.Decision.Providers, ","),
		Intervened: out.Decision.Intervened,
		RiskScore:  out.Assessment.Score,
		RiskLevel:  string(out.Assessment.Level),
		Qty:        out.Qty,
		Reason:     out.Decision.Reason,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.store.InsertDecision(ctx, dec); err != nil {
		e.log.WithError(err).Warn("decision journal write failed")
	}

	if out.Execution == nil {
		return
	}
	exec := db.Execution{
		ID:           out.Execution.ID,
		DecisionID:   decisionID,
		Symbol:       out.Execution.Symbol,
		Side:         string(out.Execution.Side),
		RequestedQty: out.Execution.RequestedQty,
		SubmittedQty: out.Execution.SubmittedQty,
		State:        string(out.Execution.State),
		OrderID:      out.Execution.OrderID,
		Degraded:     out.Execution.Degraded,
		StopsPlaced:  out.Execution.StopsPlaced,
		RejectCode:   out.Execution.RejectCode,
		Error:        out.Execution.Error,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.store.InsertExecution(ctx, exec); err != nil {
		e.log.WithError(err).Warn("execution journal write failed")
	}
}

func (e *Engine) persistProviderStats(ctx context.Context) {
	if e.store == nil {
		return
	}
	for _, s := range e.client.Tracker().Snapshot() {
		stat := db.ProviderStat{
			Provider:     s.Provider,
			Requests:     s.TotalRequests,
			Successes:    s.Successes,
			Timeouts:     s.Timeouts,
			SuccessRate:  s.SuccessRate,
			AvgLatencyMs: s.AvgResponseSec * 1000,
		}
		if err := e.store.UpsertProviderStat(ctx, stat); err != nil {
			e.log.WithField("provider", s.Provider).WithError(err).Warn("provider stat write failed")
		}
	}
}

func (e *Engine) isPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// --- Service implementation ---

func (e *Engine) Status(ctx context.Context) SystemStatus {
	mode := "live"
	if e.cfg.DryRun {
		mode = "dry-run"
	}
	return SystemStatus{
		Mode:             mode,
		DryRun:           e.cfg.DryRun,
		Venue:            "okx",
		Symbols:          e.cfg.Symbols,
		ExecutionEnabled: e.cfg.ExecutionEnabled,
		Paused:           e.isPaused(),
		Providers:        e.client.ProviderCount(),
		Version:          Version,
		ServerTime:       time.Now().UTC(),
	}
}

// Version is the reported build version.
var Version = "dev"

func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
	e.log.Info("decision loop paused")
}

func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	e.log.Info("decision loop resumed")
}

func (e *Engine) Metrics() monitor.MetricsSnapshot {
	return e.metrics.GetSnapshot()
}

func (e *Engine) ProviderStats() []ai.StatsSnapshot {
	return e.client.Tracker().Snapshot()
}

func (e *Engine) CostBudget() CostBudget {
	ledger := e.client.Ledger()
	return CostBudget{
		Max:       e.cfg.MaxDailyCost,
		Spent:     ledger.Spent(),
		Remaining: ledger.Remaining(),
	}
}

func (e *Engine) Decisions(ctx context.Context, symbol string, limit int) ([]db.Decision, error) {
	return e.store.ListDecisions(ctx, symbol, limit)
}

func (e *Engine) Executions(ctx context.Context, symbol string, limit int) ([]db.Execution, error) {
	return e.store.ListExecutions(ctx, symbol, limit)
}

func (e *Engine) Positions(ctx context.Context) ([]common.Position, error) {
	if err := e.states.Refresh(ctx); err != nil {
		return e.states.Positions(), err
	}
	return e.states.Positions(), nil
}

func (e *Engine) TriggerCycle(ctx context.Context, symbol string) (*CycleOutcome, error) {
	found := false
	for _, s := range e.cfg.Symbols {
		if s == symbol {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("symbol %s is not configured", symbol)
	}
	return e.runCycle(ctx, symbol)
}
