package common

import "time"

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite flips a side, used when closing positions.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// StopKind distinguishes the two protective algo orders.
type StopKind string

const (
	StopTakeProfit StopKind = "take_profit"
	StopLoss       StopKind = "stop_loss"
)

// OrderRequest captures a market order intent.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Qty        float64
	ReduceOnly bool
	ClientID   string
}

// OrderResult returns the venue ack.
type OrderResult struct {
	OrderID  string
	Accepted bool
	Code     string // venue result code; "0" means accepted on OKX
	Message  string
}

// AlgoOrderRequest places a trigger order that fires a market order.
type AlgoOrderRequest struct {
	Symbol       string
	Side         Side
	Qty          float64
	Kind         StopKind
	TriggerPrice float64
	ClientID     string
}

// AlgoOrder is a pending trigger order as reported by the venue.
type AlgoOrder struct {
	AlgoID       string
	Symbol       string
	Side         Side
	Kind         StopKind
	TriggerPrice float64
	Qty          float64
}

// Position is an open position as reported by the venue.
type Position struct {
	Symbol     string
	Side       Side
	Qty        float64
	EntryPrice float64
	OpenedAt   time.Time
}

// Instrument carries the venue's sizing rules for one symbol.
type Instrument struct {
	Symbol   string
	LotSize  float64 // quantity step
	MinSize  float64 // smallest allowed quantity
	CtVal    float64 // contract value, 0 for non-contract instruments
	TickSize float64
}
