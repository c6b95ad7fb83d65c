package main

import (
	"context"
	"log"

	"alphapilot/internal/ai"
	"alphapilot/internal/events"
	"alphapilot/internal/order"
	"alphapilot/internal/risk"
	"alphapilot/pkg/exchanges/paper"
)

// dry_run_demo walks a few order flows through the executor against the
// in-memory paper venue. It does not touch a real exchange or the database.
//
// Usage:
//   go run ./scripts/dry_run_demo
//
// It will:
//   1) BUY with TP/SL attached, then close the position reduce-only.
//   2) Submit an undersized BUY to show lot normalization dropping it.
//   3) Print final paper positions and balance.

func main() {
	log.Println("=== dry-run demo starting ===")

	ctx := context.Background()
	bus := events.NewBus()
	venue := paper.New(10000)
	exec := order.NewExecutor(venue, bus)

	symbol := "BTC-USDT-SWAP"
	price := 50000.0
	venue.MarkPrice(symbol, price)

	log.Printf("[SCENARIO 1] BUY %s at %.1f with stops", symbol, price)
	stops := risk.ComputeStops(ai.SignalBuy, price, 2.0)
	res, err := exec.Execute(ctx, order.Request{
		Symbol: symbol,
		Signal: ai.SignalBuy,
		Qty:    0.05,
		Price:  price,
		Stops:  stops,
	})
	if err != nil {
		log.Fatalf("buy failed: %v", err)
	}
	log.Printf("  state=%s qty=%.4f stops_placed=%v", res.State, res.SubmittedQty, res.StopsPlaced)

	log.Printf("[SCENARIO 2] close the position reduce-only")
	res, err = exec.Execute(ctx, order.Request{
		Symbol:      symbol,
		Signal:      ai.SignalSell,
		Qty:         1.0,
		Price:       price,
		ReduceOnly:  true,
		PositionQty: res.SubmittedQty,
	})
	if err != nil {
		log.Fatalf("close failed: %v", err)
	}
	log.Printf("  state=%s qty=%.4f", res.State, res.SubmittedQty)

	log.Printf("[SCENARIO 3] undersized BUY, below the venue minimum")
	res, err = exec.Execute(ctx, order.Request{
		Symbol: symbol,
		Signal: ai.SignalBuy,
		Qty:    0.0001,
		Price:  price,
	})
	if err != nil {
		log.Fatalf("undersized buy errored: %v", err)
	}
	log.Printf("  state=%s qty=%.4f (normalized away)", res.State, res.SubmittedQty)

	log.Println("[SCENARIO DONE] final paper state:")
	positions, _ := venue.Positions(ctx)
	for _, p := range positions {
		log.Printf("  %s %s qty=%.4f entry=%.1f", p.Symbol, p.Side, p.Qty, p.EntryPrice)
	}
	balance, _ := venue.Balance(ctx)
	log.Printf("  balance=%.2f", balance)

	log.Println("=== dry-run demo finished ===")
}
