package db

import (
	"context"
	"fmt"
	"time"
)

// Decision is one fused trading decision as journaled per cycle.
type Decision struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Signal     string    `json:"signal"`
	Confidence float64   `json:"confidence"`
	Consensus  string    `json:"consensus"`
	Votes      string    `json:"votes"` // JSON-encoded weighted vote map
	Providers  string    `json:"providers"`
	Intervened bool      `json:"intervened"`
	RiskScore  float64   `json:"risk_score"`
	RiskLevel  string    `json:"risk_level"`
	Qty        float64   `json:"qty"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Execution is the journaled outcome of routing a decision to the venue.
type Execution struct {
	ID           string    `json:"id"`
	DecisionID   string    `json:"decision_id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	RequestedQty float64   `json:"requested_qty"`
	SubmittedQty float64   `json:"submitted_qty"`
	State        string    `json:"state"`
	OrderID      string    `json:"order_id"`
	Degraded     bool      `json:"degraded"`
	StopsPlaced  bool      `json:"stops_placed"`
	RejectCode   string    `json:"reject_code"`
	Error        string    `json:"error"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProviderStat is a persisted snapshot of one provider's health counters.
type ProviderStat struct {
	Provider     string    `json:"provider"`
	Requests     int64     `json:"requests"`
	Successes    int64     `json:"successes"`
	Timeouts     int64     `json:"timeouts"`
	SuccessRate  float64   `json:"success_rate"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InsertDecision journals one decision row.
func (d *Database) InsertDecision(ctx context.Context, dec Decision) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO decisions (
			id, symbol, signal, confidence, consensus, votes, providers,
			intervened, risk_score, risk_level, qty, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, dec.ID, dec.Symbol, dec.Signal, dec.Confidence, dec.Consensus, dec.Votes,
		dec.Providers, dec.Intervened, dec.RiskScore, dec.RiskLevel, dec.Qty,
		dec.Reason, dec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// InsertExecution journals one execution row.
func (d *Database) InsertExecution(ctx context.Context, e Execution) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO executions (
			id, decision_id, symbol, side, requested_qty, submitted_qty,
			state, order_id, degraded, stops_placed, reject_code, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.DecisionID, e.Symbol, e.Side, e.RequestedQty, e.SubmittedQty,
		e.State, e.OrderID, e.Degraded, e.StopsPlaced, e.RejectCode, e.Error,
		e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// UpsertProviderStat overwrites a provider's persisted counters.
func (d *Database) UpsertProviderStat(ctx context.Context, s ProviderStat) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO provider_stats (
			provider, requests, successes, timeouts, success_rate, avg_latency_ms, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(provider) DO UPDATE SET
			requests = excluded.requests,
			successes = excluded.successes,
			timeouts = excluded.timeouts,
			success_rate = excluded.success_rate,
			avg_latency_ms = excluded.avg_latency_ms,
			updated_at = CURRENT_TIMESTAMP
	`, s.Provider, s.Requests, s.Successes, s.Timeouts, s.SuccessRate, s.AvgLatencyMs)
	if err != nil {
		return fmt.Errorf("upsert provider stat: %w", err)
	}
	return nil
}
