// Package paper implements an in-memory venue for dry runs. It accepts
// every well-formed order and tracks positions and algo stops the way a
// net-mode account would.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"alphapilot/pkg/exchanges/common"
)

type Gateway struct {
	mu        sync.Mutex
	balance   float64
	positions map[string]common.Position
	algos     map[string][]common.AlgoOrder
	marks     map[string]float64
}

// New creates a paper gateway with a starting balance.
func New(balance float64) *Gateway {
	return &Gateway{
		balance:   balance,
		positions: make(map[string]common.Position),
		algos:     make(map[string][]common.AlgoOrder),
		marks:     make(map[string]float64),
	}
}

// MarkPrice records the latest price for a symbol so fills have a basis.
func (g *Gateway) MarkPrice(symbol string, price float64) {
	g.mu.Lock()
	g.marks[symbol] = price
	g.mu.Unlock()
}

func (g *Gateway) SubmitOrder(_ context.Context, req common.OrderRequest) (common.OrderResult, error) {
	if req.Qty <= 0 {
		return common.OrderResult{Accepted: false, Code: "51008", Message: "invalid size"}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	price := g.marks[req.Symbol]
	pos, open := g.positions[req.Symbol]
	switch {
	case !open:
		if req.ReduceOnly {
			return common.OrderResult{Accepted: false, Code: "51169", Message: "no position to reduce"}, nil
		}
		g.positions[req.Symbol] = common.Position{
			Symbol: req.Symbol, Side: req.Side, Qty: req.Qty,
			EntryPrice: price, OpenedAt: time.Now(),
		}
	case pos.Side == req.Side:
		total := pos.Qty + req.Qty
		if total > 0 {
			pos.EntryPrice = (pos.EntryPrice*pos.Qty + price*req.Qty) / total
		}
		pos.Qty = total
		g.positions[req.Symbol] = pos
	default:
		pos.Qty -= req.Qty
		if pos.Qty <= 1e-12 {
			delete(g.positions, req.Symbol)
			delete(g.algos, req.Symbol)
		} else {
			g.positions[req.Symbol] = pos
		}
	}

	return common.OrderResult{OrderID: uuid.NewString(), Accepted: true, Code: "0"}, nil
}

func (g *Gateway) SubmitAlgoOrder(_ context.Context, req common.AlgoOrderRequest) (common.OrderResult, error) {
	if req.TriggerPrice <= 0 || req.Qty <= 0 {
		return common.OrderResult{Accepted: false, Code: "51000", Message: "invalid trigger"}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	id := uuid.NewString()
	g.algos[req.Symbol] = append(g.algos[req.Symbol], common.AlgoOrder{
		AlgoID:       id,
		Symbol:       req.Symbol,
		Side:         req.Side,
		Kind:         req.Kind,
		TriggerPrice: req.TriggerPrice,
		Qty:          req.Qty,
	})
	return common.OrderResult{OrderID: id, Accepted: true, Code: "0"}, nil
}

func (g *Gateway) PendingAlgoOrders(_ context.Context, symbol string) ([]common.AlgoOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]common.AlgoOrder, len(g.algos[symbol]))
	copy(out, g.algos[symbol])
	return out, nil
}

func (g *Gateway) CancelAlgoOrders(_ context.Context, symbol string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.algos[symbol][:0]
	for _, a := range g.algos[symbol] {
		if !drop[a.AlgoID] {
			kept = append(kept, a)
		}
	}
	g.algos[symbol] = kept
	return nil
}

func (g *Gateway) Positions(_ context.Context) ([]common.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]common.Position, 0, len(g.positions))
	for _, p := range g.positions {
		out = append(out, p)
	}
	return out, nil
}

func (g *Gateway) Instrument(_ context.Context, symbol string) (common.Instrument, error) {
	if symbol == "" {
		return common.Instrument{}, fmt.Errorf("empty symbol")
	}
	return common.Instrument{
		Symbol:   symbol,
		LotSize:  0.001,
		MinSize:  0.001,
		TickSize: 0.1,
	}, nil
}

func (g *Gateway) Balance(_ context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance, nil
}
