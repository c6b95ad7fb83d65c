package common

import "context"

// Gateway abstracts a trading venue.
type Gateway interface {
	// SubmitOrder places a market order and returns the venue ack.
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	// SubmitAlgoOrder places a protective trigger order.
	SubmitAlgoOrder(ctx context.Context, req AlgoOrderRequest) (OrderResult, error)
	// PendingAlgoOrders lists open trigger orders for one symbol.
	PendingAlgoOrders(ctx context.Context, symbol string) ([]AlgoOrder, error)
	// CancelAlgoOrders cancels trigger orders by id.
	CancelAlgoOrders(ctx context.Context, symbol string, algoIDs []string) error
	// Positions lists open positions.
	Positions(ctx context.Context) ([]Position, error)
	// Instrument fetches the sizing rules for a symbol.
	Instrument(ctx context.Context, symbol string) (Instrument, error)
	// Balance returns the account equity in quote currency.
	Balance(ctx context.Context) (float64, error)
}
