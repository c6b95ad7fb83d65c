package paper

import (
	"context"
	"testing"

	"alphapilot/pkg/exchanges/common"
)

func TestOpenAddAndClose(t *testing.T) {
	g := New(10000)
	g.MarkPrice("BTC-USDT-SWAP", 50000)
	ctx := context.Background()

	res, err := g.SubmitOrder(ctx, common.OrderRequest{
		Symbol: "BTC-USDT-SWAP", Side: common.SideBuy, Qty: 0.1,
	})
	if err != nil || !res.Accepted {
		t.Fatalf("open: %+v %v", res, err)
	}

	g.MarkPrice("BTC-USDT-SWAP", 52000)
	if _, err := g.SubmitOrder(ctx, common.OrderRequest{
		Symbol: "BTC-USDT-SWAP", Side: common.SideBuy, Qty: 0.1,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	positions, _ := g.Positions(ctx)
	if len(positions) != 1 {
		t.Fatalf("positions = %d", len(positions))
	}
	if positions[0].Qty != 0.2 || positions[0].EntryPrice != 51000 {
		t.Errorf("position = %+v, want qty 0.2 avg 51000", positions[0])
	}

	res, _ = g.SubmitOrder(ctx, common.OrderRequest{
		Symbol: "BTC-USDT-SWAP", Side: common.SideSell, Qty: 0.2, ReduceOnly: true,
	})
	if !res.Accepted {
		t.Fatalf("close rejected: %+v", res)
	}
	positions, _ = g.Positions(ctx)
	if len(positions) != 0 {
		t.Errorf("position survived full close: %+v", positions)
	}
}

func TestReduceOnlyWithoutPosition(t *testing.T) {
	g := New(10000)
	res, err := g.SubmitOrder(context.Background(), common.OrderRequest{
		Symbol: "ETH-USDT-SWAP", Side: common.SideSell, Qty: 1, ReduceOnly: true,
	})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if res.Accepted {
		t.Error("reduce-only with no position should be rejected")
	}
}

func TestAlgoOrderLifecycle(t *testing.T) {
	g := New(10000)
	ctx := context.Background()

	res, _ := g.SubmitAlgoOrder(ctx, common.AlgoOrderRequest{
		Symbol: "BTC-USDT-SWAP", Side: common.SideSell, Qty: 0.1,
		Kind: common.StopLoss, TriggerPrice: 48000,
	})
	if !res.Accepted {
		t.Fatalf("algo rejected: %+v", res)
	}

	pending, _ := g.PendingAlgoOrders(ctx, "BTC-USDT-SWAP")
	if len(pending) != 1 {
		t.Fatalf("pending = %d", len(pending))
	}

	if err := g.CancelAlgoOrders(ctx, "BTC-USDT-SWAP", []string{pending[0].AlgoID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	pending, _ = g.PendingAlgoOrders(ctx, "BTC-USDT-SWAP")
	if len(pending) != 0 {
		t.Errorf("algo order survived cancel")
	}
}
