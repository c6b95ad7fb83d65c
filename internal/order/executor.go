package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"alphapilot/internal/ai"
	"alphapilot/internal/events"
	"alphapilot/internal/risk"
	"alphapilot/pkg/exchanges/common"
	"alphapilot/pkg/logger"
)

// State is one step of the execution machine.
type State string

const (
	StateIdle         State = "IDLE"
	StateSubmit       State = "SUBMIT"
	StateFilled       State = "FILLED"
	StateRejected     State = "REJECTED"
	StateDegradeRetry State = "DEGRADE_RETRY"
	StateSetTPSL      State = "SET_TPSL"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// Request is one trade the decision engine wants executed.
type Request struct {
	Symbol     string
	Signal     ai.Signal
	Qty        float64
	Price      float64
	Stops      risk.Stops
	ReduceOnly bool
	// PositionQty is the live position size, used to clamp closes.
	PositionQty float64
}

// Execution records the lifecycle of one request.
type Execution struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         common.Side `json:"side"`
	RequestedQty float64     `json:"requested_qty"`
	SubmittedQty float64     `json:"submitted_qty"`
	State        State       `json:"state"`
	OrderID      string      `json:"order_id,omitempty"`
	Degraded     bool        `json:"degraded"` // second submit after a rejection
	StopsPlaced  bool        `json:"stops_placed"`
	StopsKept    bool        `json:"stops_kept"` // existing stops were close enough
	RejectCode   string      `json:"reject_code,omitempty"`
	Error        string      `json:"error,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  time.Time   `json:"completed_at"`
}

// Executor drives orders through submit, degrade-retry, and stop
// placement. Executions for the same symbol are serialized.
type Executor struct {
	gateway    common.Gateway
	normalizer *Normalizer
	bus        *events.Bus
	log        *logrus.Entry

	mu          sync.Mutex
	symbolLocks map[string]*sync.Mutex
	instruments map[string]common.Instrument
}

// NewExecutor wires the executor to a venue gateway.
func NewExecutor(gateway common.Gateway, bus *events.Bus) *Executor {
	return &Executor{
		gateway:     gateway,
		normalizer:  NewNormalizer(),
		bus:         bus,
		log:         logger.WithModule("executor"),
		symbolLocks: make(map[string]*sync.Mutex),
		instruments: make(map[string]common.Instrument),
	}
}

func (e *Executor) lockSymbol(symbol string) func() {
	e.mu.Lock()
	l, ok := e.symbolLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.symbolLocks[symbol] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// instrument returns cached venue sizing rules, fetching once per symbol.
func (e *Executor) instrument(ctx context.Context, symbol string) *common.Instrument {
	e.mu.Lock()
	inst, ok := e.instruments[symbol]
	e.mu.Unlock()
	if ok {
		return &inst
	}
	fetched, err := e.gateway.Instrument(ctx, symbol)
	if err != nil {
		e.log.WithField("symbol", symbol).WithError(err).Warn("instrument lookup failed, using grid heuristics")
		return nil
	}
	e.mu.Lock()
	e.instruments[symbol] = fetched
	e.mu.Unlock()
	return &fetched
}

// Execute runs one request through the state machine. HOLD and zero-size
// requests return nil without touching the venue.
func (e *Executor) Execute(ctx context.Context, req Request) (*Execution, error) {
	if req.Signal == ai.SignalHold || req.Qty <= 0 {
		return nil, nil
	}
	unlock := e.lockSymbol(req.Symbol)
	defer unlock()

	side := common.SideBuy
	if req.Signal == ai.SignalSell {
		side = common.SideSell
	}

	exec := &Execution{
		ID:           uuid.NewString(),
		Symbol:       req.Symbol,
		Side:         side,
		RequestedQty: req.Qty,
		State:        StateIdle,
		StartedAt:    time.Now(),
	}
	elog := e.log.WithFields(logger.Fields{"execution": exec.ID, "symbol": req.Symbol, "side": side})

	inst := e.instrument(ctx, req.Symbol)
	qty := e.sizeFor(req, inst)
	if qty <= 0 {
		exec.State = StateDone
		exec.CompletedAt = time.Now()
		return exec, nil
	}

	// Submit, with one degraded retry on venue rejection.
	exec.State = StateSubmit
	res, err := e.submit(ctx, exec, side, qty, req.ReduceOnly)
	if err != nil {
		exec.State = StateFailed
		exec.Error = err.Error()
		exec.CompletedAt = time.Now()
		e.bus.Publish(events.EventOrderFailed, exec)
		return exec, fmt.Errorf("submit %s: %w", req.Symbol, err)
	}
	if !res.Accepted {
		exec.State = StateRejected
		exec.RejectCode = res.Code
		e.bus.Publish(events.EventOrderRejected, exec)
		elog.WithField("code", res.Code).Warn("order rejected, degrading quantity")

		exec.State = StateDegradeRetry
		exec.Degraded = true
		degraded := e.degradeQty(qty, req, inst)
		if degraded <= 0 || degraded >= qty {
			exec.State = StateFailed
			exec.Error = fmt.Sprintf("rejected with code %s and no smaller quantity available", res.Code)
			exec.CompletedAt = time.Now()
			e.bus.Publish(events.EventOrderFailed, exec)
			return exec, fmt.Errorf("submit %s: %s", req.Symbol, exec.Error)
		}
		res, err = e.submit(ctx, exec, side, degraded, req.ReduceOnly)
		if err != nil || !res.Accepted {
			exec.State = StateFailed
			if err != nil {
				exec.Error = err.Error()
			} else {
				exec.Error = fmt.Sprintf("rejected twice, last code %s", res.Code)
				exec.RejectCode = res.Code
			}
			exec.CompletedAt = time.Now()
			e.bus.Publish(events.EventOrderFailed, exec)
			return exec, fmt.Errorf("submit %s: %s", req.Symbol, exec.Error)
		}
	}

	exec.State = StateFilled
	exec.OrderID = res.OrderID
	e.bus.Publish(events.EventOrderFilled, exec)
	elog.WithField("qty", exec.SubmittedQty).Info("order filled")

	// Place (or keep) protective stops. A failure here degrades the result
	// but never rolls back the fill.
	exec.State = StateSetTPSL
	if req.ReduceOnly {
		// Closes need no fresh protection.
		exec.StopsPlaced = true
	} else if err := e.ensureStops(ctx, exec, req); err != nil {
		elog.WithError(err).Error("position is open without protective stops")
		e.bus.Publish(events.EventStopsMissing, exec)
	}

	exec.State = StateDone
	exec.CompletedAt = time.Now()
	return exec, nil
}

func (e *Executor) sizeFor(req Request, inst *common.Instrument) float64 {
	if req.ReduceOnly {
		return e.normalizer.NormalizeClose(req.Qty, req.PositionQty, inst)
	}
	return e.normalizer.Normalize(req.Qty, inst)
}

func (e *Executor) degradeQty(qty float64, req Request, inst *common.Instrument) float64 {
	reduced := qty * 0.99
	if req.ReduceOnly {
		return e.normalizer.NormalizeClose(reduced, req.PositionQty, inst)
	}
	out := e.normalizer.Normalize(reduced, inst)
	if out >= qty && inst != nil && inst.LotSize > 0 {
		// Rounding pulled it back up; drop one lot instead.
		out = roundTo(qty-inst.LotSize, decimalsOf(inst.LotSize))
	}
	return out
}

func (e *Executor) submit(ctx context.Context, exec *Execution, side common.Side, qty float64, reduceOnly bool) (common.OrderResult, error) {
	exec.SubmittedQty = qty
	e.bus.Publish(events.EventOrderSubmitted, exec)
	return e.gateway.SubmitOrder(ctx, common.OrderRequest{
		Symbol:     exec.Symbol,
		Side:       side,
		Qty:        qty,
		ReduceOnly: reduceOnly,
		ClientID:   clientID(exec.ID),
	})
}

// ensureStops keeps existing trigger orders when they sit within the
// volatility tolerance of the new levels, otherwise replaces them.
func (e *Executor) ensureStops(ctx context.Context, exec *Execution, req Request) error {
	if req.Stops.TakeProfit <= 0 && req.Stops.StopLoss <= 0 {
		exec.StopsPlaced = true
		return nil
	}

	pending, err := e.gateway.PendingAlgoOrders(ctx, req.Symbol)
	if err != nil {
		// Can't see existing stops; place fresh ones rather than none.
		e.log.WithField("symbol", req.Symbol).WithError(err).Warn("pending stop lookup failed")
		pending = nil
	}

	closeSide := exec.Side.Opposite()
	var tpOK, slOK bool
	var stale []string
	for _, p := range pending {
		if p.Side != closeSide {
			continue
		}
		switch {
		case req.Stops.WithinTolerance(p.TriggerPrice, req.Stops.TakeProfit, req.Price):
			tpOK = true
		case req.Stops.WithinTolerance(p.TriggerPrice, req.Stops.StopLoss, req.Price):
			slOK = true
		default:
			stale = append(stale, p.AlgoID)
		}
	}

	if len(stale) > 0 {
		if err := e.gateway.CancelAlgoOrders(ctx, req.Symbol, stale); err != nil {
			return fmt.Errorf("cancel stale stops: %w", err)
		}
	}
	if tpOK && slOK {
		exec.StopsPlaced = true
		exec.StopsKept = true
		return nil
	}

	if !tpOK && req.Stops.TakeProfit > 0 {
		if err := e.placeStop(ctx, exec, closeSide, common.StopTakeProfit, req.Stops.TakeProfit); err != nil {
			return err
		}
	}
	if !slOK && req.Stops.StopLoss > 0 {
		if err := e.placeStop(ctx, exec, closeSide, common.StopLoss, req.Stops.StopLoss); err != nil {
			return err
		}
	}
	exec.StopsPlaced = true
	e.bus.Publish(events.EventStopsPlaced, exec)
	return nil
}

func (e *Executor) placeStop(ctx context.Context, exec *Execution, side common.Side, kind common.StopKind, trigger float64) error {
	res, err := e.gateway.SubmitAlgoOrder(ctx, common.AlgoOrderRequest{
		Symbol:       exec.Symbol,
		Side:         side,
		Qty:          exec.SubmittedQty,
		Kind:         kind,
		TriggerPrice: trigger,
	})
	if err != nil {
		return fmt.Errorf("place %s: %w", kind, err)
	}
	if !res.Accepted {
		return fmt.Errorf("place %s: venue code %s: %s", kind, res.Code, res.Message)
	}
	return nil
}

// clientID derives a venue-safe client order id from the execution id.
func clientID(execID string) string {
	id := ""
	for _, r := range execID {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			id += string(r)
		}
	}
	if len(id) > 30 {
		id = id[:30]
	}
	return "ap" + id
}
