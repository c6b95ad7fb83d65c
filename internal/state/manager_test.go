package state

import (
	"context"
	"testing"
	"time"

	"alphapilot/pkg/exchanges/common"
)

type stubGateway struct {
	balance   float64
	positions []common.Position
}

func (s *stubGateway) SubmitOrder(context.Context, common.OrderRequest) (common.OrderResult, error) {
	return common.OrderResult{}, nil
}
func (s *stubGateway) SubmitAlgoOrder(context.Context, common.AlgoOrderRequest) (common.OrderResult, error) {
	return common.OrderResult{}, nil
}
func (s *stubGateway) PendingAlgoOrders(context.Context, string) ([]common.AlgoOrder, error) {
	return nil, nil
}
func (s *stubGateway) CancelAlgoOrders(context.Context, string, []string) error { return nil }
func (s *stubGateway) Positions(context.Context) ([]common.Position, error) {
	return s.positions, nil
}
func (s *stubGateway) Instrument(context.Context, string) (common.Instrument, error) {
	return common.Instrument{}, nil
}
func (s *stubGateway) Balance(context.Context) (float64, error) { return s.balance, nil }

func TestRefreshAndPortfolio(t *testing.T) {
	gw := &stubGateway{
		balance: 10000,
		positions: []common.Position{
			{Symbol: "BTC-USDT-SWAP", Side: common.SideBuy, Qty: 0.1, EntryPrice: 50000,
				OpenedAt: time.Now().Add(-10 * time.Hour)},
			{Symbol: "ETH-USDT-SWAP", Side: common.SideBuy, Qty: 0.5, EntryPrice: 2000},
		},
	}
	m := NewManager(gw)
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if m.Balance() != 10000 {
		t.Errorf("balance = %v", m.Balance())
	}
	if len(m.Positions()) != 2 {
		t.Fatalf("positions = %d, want 2", len(m.Positions()))
	}

	pf := m.Portfolio("BTC-USDT-SWAP")
	// Exposure: 0.1*50000 + 0.5*2000 = 6000, largest 5000.
	if pf.TotalExposure != 6000 {
		t.Errorf("exposure = %v, want 6000", pf.TotalExposure)
	}
	if pf.Leverage != 0.6 {
		t.Errorf("leverage = %v, want 0.6", pf.Leverage)
	}
	if got, want := pf.LargestPositionPct, 5000.0/6000.0; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("largest pct = %v, want %v", got, want)
	}
	if pf.HoldingHours < 9.9 || pf.HoldingHours > 10.1 {
		t.Errorf("holding hours = %v, want ~10", pf.HoldingHours)
	}
}

func TestRefreshDropsClosedPositions(t *testing.T) {
	gw := &stubGateway{
		balance: 5000,
		positions: []common.Position{
			{Symbol: "BTC-USDT-SWAP", Side: common.SideBuy, Qty: 0.1, EntryPrice: 50000},
		},
	}
	m := NewManager(gw)
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	gw.positions = nil
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := m.Position("BTC-USDT-SWAP"); ok {
		t.Error("closed position still tracked")
	}
	if m.Portfolio("BTC-USDT-SWAP").TotalExposure != 0 {
		t.Error("exposure should be zero after close")
	}
}

func TestRecordFill(t *testing.T) {
	m := NewManager(&stubGateway{})

	m.RecordFill("BTC-USDT-SWAP", common.SideBuy, 0.1, 50000)
	p, ok := m.Position("BTC-USDT-SWAP")
	if !ok || p.Qty != 0.1 || p.EntryPrice != 50000 {
		t.Fatalf("after open: %+v ok=%v", p, ok)
	}

	// Add at a different price moves the average.
	m.RecordFill("BTC-USDT-SWAP", common.SideBuy, 0.1, 52000)
	p, _ = m.Position("BTC-USDT-SWAP")
	if p.Qty != 0.2 || p.EntryPrice != 51000 {
		t.Errorf("after add: qty %v avg %v, want 0.2 / 51000", p.Qty, p.EntryPrice)
	}

	// Partial close shrinks, full close removes.
	m.RecordFill("BTC-USDT-SWAP", common.SideSell, 0.1, 53000)
	p, _ = m.Position("BTC-USDT-SWAP")
	if p.Qty < 0.0999 || p.Qty > 0.1001 {
		t.Errorf("after partial close: qty %v, want 0.1", p.Qty)
	}
	m.RecordFill("BTC-USDT-SWAP", common.SideSell, 0.2, 53000)
	if _, ok := m.Position("BTC-USDT-SWAP"); ok {
		t.Error("position should be gone after full close")
	}

	// A SELL with no tracked position opens a short immediately, so the
	// same-cycle portfolio view already carries its exposure.
	m.RecordFill("ETH-USDT-SWAP", common.SideSell, 1, 2000)
	p, ok = m.Position("ETH-USDT-SWAP")
	if !ok || p.Side != common.SideSell || p.Qty != 1 || p.EntryPrice != 2000 {
		t.Fatalf("after short open: %+v ok=%v", p, ok)
	}
	pf := m.Portfolio("ETH-USDT-SWAP")
	if pf.TotalExposure != 2000 {
		t.Errorf("short exposure = %v, want 2000", pf.TotalExposure)
	}
}
