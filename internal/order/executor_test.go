package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"alphapilot/internal/ai"
	"alphapilot/internal/events"
	"alphapilot/internal/risk"
	"alphapilot/pkg/exchanges/common"
)

// fakeGateway scripts venue behavior for executor tests.
type fakeGateway struct {
	mu           sync.Mutex
	orders       []common.OrderRequest
	algoOrders   []common.AlgoOrderRequest
	canceled     []string
	rejectCodes  []string // consumed per submit; empty string accepts
	algoReject   bool
	pending      []common.AlgoOrder
	pendingErr   error
	instrument   common.Instrument
	instErr      error
	submitErr    error
}

func (f *fakeGateway) SubmitOrder(_ context.Context, req common.OrderRequest) (common.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return common.OrderResult{}, f.submitErr
	}
	f.orders = append(f.orders, req)
	if len(f.rejectCodes) > 0 {
		code := f.rejectCodes[0]
		f.rejectCodes = f.rejectCodes[1:]
		if code != "" {
			return common.OrderResult{Accepted: false, Code: code, Message: "rejected"}, nil
		}
	}
	return common.OrderResult{OrderID: "ord-1", Accepted: true, Code: "0"}, nil
}

func (f *fakeGateway) SubmitAlgoOrder(_ context.Context, req common.AlgoOrderRequest) (common.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.algoReject {
		return common.OrderResult{Accepted: false, Code: "51000"}, nil
	}
	f.algoOrders = append(f.algoOrders, req)
	return common.OrderResult{OrderID: "algo-1", Accepted: true, Code: "0"}, nil
}

func (f *fakeGateway) PendingAlgoOrders(_ context.Context, _ string) ([]common.AlgoOrder, error) {
	return f.pending, f.pendingErr
}

func (f *fakeGateway) CancelAlgoOrders(_ context.Context, _ string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, ids...)
	return nil
}

func (f *fakeGateway) Positions(_ context.Context) ([]common.Position, error) { return nil, nil }

func (f *fakeGateway) Instrument(_ context.Context, _ string) (common.Instrument, error) {
	if f.instErr != nil {
		return common.Instrument{}, f.instErr
	}
	return f.instrument, nil
}

func (f *fakeGateway) Balance(_ context.Context) (float64, error) { return 10000, nil }

func buyRequest() Request {
	return Request{
		Symbol: "BTC-USDT-SWAP",
		Signal: ai.SignalBuy,
		Qty:    0.0247,
		Price:  50000,
		Stops:  risk.ComputeStops(ai.SignalBuy, 50000, 2.0),
	}
}

func newTestExecutor(gw common.Gateway) *Executor {
	return NewExecutor(gw, events.NewBus())
}

func TestExecuteHappyPath(t *testing.T) {
	gw := &fakeGateway{instrument: common.Instrument{Symbol: "BTC-USDT-SWAP", LotSize: 0.01, MinSize: 0.01}}
	ex := newTestExecutor(gw)

	exec, err := ex.Execute(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if exec.State != StateDone {
		t.Fatalf("state = %s, want DONE", exec.State)
	}
	if exec.SubmittedQty != 0.02 {
		t.Errorf("submitted qty = %v, want normalized 0.02", exec.SubmittedQty)
	}
	if exec.Degraded {
		t.Error("clean fill marked degraded")
	}
	if !exec.StopsPlaced {
		t.Error("stops not placed")
	}
	// One TP and one SL on the close side.
	if len(gw.algoOrders) != 2 {
		t.Fatalf("algo orders = %d, want 2", len(gw.algoOrders))
	}
	for _, a := range gw.algoOrders {
		if a.Side != common.SideSell {
			t.Errorf("stop side = %s, want sell", a.Side)
		}
		if a.Qty != 0.02 {
			t.Errorf("stop qty = %v, want 0.02", a.Qty)
		}
	}
}

func TestExecuteHoldSkips(t *testing.T) {
	gw := &fakeGateway{}
	ex := newTestExecutor(gw)
	req := buyRequest()
	req.Signal = ai.SignalHold

	exec, err := ex.Execute(context.Background(), req)
	if err != nil || exec != nil {
		t.Fatalf("HOLD should be a no-op, got %v / %v", exec, err)
	}
	if len(gw.orders) != 0 {
		t.Errorf("HOLD reached the venue: %d orders", len(gw.orders))
	}
}

func TestExecuteDegradeRetryOnce(t *testing.T) {
	gw := &fakeGateway{
		instrument:  common.Instrument{LotSize: 0.01, MinSize: 0.01},
		rejectCodes: []string{"51008", ""}, // first submit rejected, second accepted
	}
	ex := newTestExecutor(gw)
	req := buyRequest()
	req.Qty = 0.1

	exec, err := ex.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if exec.State != StateDone || !exec.Degraded {
		t.Fatalf("state = %s degraded = %v, want DONE/true", exec.State, exec.Degraded)
	}
	if len(gw.orders) != 2 {
		t.Fatalf("submits = %d, want 2", len(gw.orders))
	}
	if gw.orders[1].Qty >= gw.orders[0].Qty {
		t.Errorf("retry qty %v not below original %v", gw.orders[1].Qty, gw.orders[0].Qty)
	}
}

func TestExecuteDoubleRejectionFails(t *testing.T) {
	gw := &fakeGateway{
		instrument:  common.Instrument{LotSize: 0.01, MinSize: 0.01},
		rejectCodes: []string{"51008", "51008"},
	}
	ex := newTestExecutor(gw)
	req := buyRequest()
	req.Qty = 0.1

	exec, err := ex.Execute(context.Background(), req)
	if err == nil {
		t.Fatal("double rejection should return an error")
	}
	if exec.State != StateFailed {
		t.Fatalf("state = %s, want FAILED", exec.State)
	}
	// Exactly one degrade retry, never more.
	if len(gw.orders) != 2 {
		t.Errorf("submits = %d, want 2", len(gw.orders))
	}
}

func TestExecuteTransportErrorFails(t *testing.T) {
	gw := &fakeGateway{submitErr: errors.New("connection refused")}
	ex := newTestExecutor(gw)

	exec, err := ex.Execute(context.Background(), buyRequest())
	if err == nil {
		t.Fatal("transport error should surface")
	}
	if exec.State != StateFailed {
		t.Fatalf("state = %s, want FAILED", exec.State)
	}
}

func TestExecuteKeepsCloseStops(t *testing.T) {
	stops := risk.ComputeStops(ai.SignalBuy, 50000, 2.0) // TP 53000 SL 48500, tolerance 0.5%
	gw := &fakeGateway{
		instrument: common.Instrument{LotSize: 0.01, MinSize: 0.01},
		pending: []common.AlgoOrder{
			{AlgoID: "tp-old", Symbol: "BTC-USDT-SWAP", Side: common.SideSell, TriggerPrice: 53050},
			{AlgoID: "sl-old", Symbol: "BTC-USDT-SWAP", Side: common.SideSell, TriggerPrice: 48490},
		},
	}
	ex := newTestExecutor(gw)
	req := buyRequest()
	req.Stops = stops

	exec, err := ex.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !exec.StopsKept {
		t.Fatal("close-enough stops should be kept")
	}
	if len(gw.algoOrders) != 0 {
		t.Errorf("placed %d new stops despite close existing ones", len(gw.algoOrders))
	}
	if len(gw.canceled) != 0 {
		t.Errorf("canceled %v despite being within tolerance", gw.canceled)
	}
}

func TestExecuteReplacesStaleStops(t *testing.T) {
	gw := &fakeGateway{
		instrument: common.Instrument{LotSize: 0.01, MinSize: 0.01},
		pending: []common.AlgoOrder{
			{AlgoID: "stale-1", Symbol: "BTC-USDT-SWAP", Side: common.SideSell, TriggerPrice: 40000},
		},
	}
	ex := newTestExecutor(gw)

	exec, err := ex.Execute(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(gw.canceled) != 1 || gw.canceled[0] != "stale-1" {
		t.Errorf("canceled = %v, want [stale-1]", gw.canceled)
	}
	if len(gw.algoOrders) != 2 {
		t.Errorf("algo orders = %d, want 2 replacements", len(gw.algoOrders))
	}
	if !exec.StopsPlaced {
		t.Error("stops not placed after replacement")
	}
}

func TestExecuteStopFailureDegradesNotRollsBack(t *testing.T) {
	gw := &fakeGateway{
		instrument: common.Instrument{LotSize: 0.01, MinSize: 0.01},
		algoReject: true,
	}
	bus := events.NewBus()
	missing, unsub := bus.Subscribe(events.EventStopsMissing, 2)
	defer unsub()
	ex := NewExecutor(gw, bus)

	exec, err := ex.Execute(context.Background(), buyRequest())
	if err != nil {
		t.Fatalf("stop failure must not fail the execution: %v", err)
	}
	if exec.State != StateDone {
		t.Fatalf("state = %s, want DONE", exec.State)
	}
	if exec.StopsPlaced {
		t.Error("stops marked placed after venue rejection")
	}
	select {
	case <-missing:
	default:
		t.Error("expected a stops_missing event")
	}
}

func TestExecuteReduceOnlyClamped(t *testing.T) {
	gw := &fakeGateway{instrument: common.Instrument{LotSize: 0.01, MinSize: 0.01}}
	ex := newTestExecutor(gw)
	req := Request{
		Symbol: "BTC-USDT-SWAP", Signal: ai.SignalSell,
		Qty: 1.0, Price: 50000, ReduceOnly: true, PositionQty: 0.057,
	}

	exec, err := ex.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if exec.SubmittedQty != 0.05 {
		t.Errorf("close qty = %v, want 0.05 (floored to position)", exec.SubmittedQty)
	}
	if !gw.orders[0].ReduceOnly {
		t.Error("close not flagged reduce-only")
	}
	// Closes never place fresh stops.
	if len(gw.algoOrders) != 0 {
		t.Errorf("close placed %d stops", len(gw.algoOrders))
	}
}
