package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("record not found")

const defaultHistoryLimit = 50

// ListDecisions returns the most recent decisions, optionally filtered
// by symbol. A non-positive limit falls back to the default page size.
func (d *Database) ListDecisions(ctx context.Context, symbol string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `
		SELECT id, symbol, signal, confidence, consensus,
		       COALESCE(votes, ''), COALESCE(providers, ''), intervened,
		       risk_score, COALESCE(risk_level, ''), qty, COALESCE(reason, ''), created_at
		FROM decisions`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var dec Decision
		if err := rows.Scan(&dec.ID, &dec.Symbol, &dec.Signal, &dec.Confidence,
			&dec.Consensus, &dec.Votes, &dec.Providers, &dec.Intervened,
			&dec.RiskScore, &dec.RiskLevel, &dec.Qty, &dec.Reason, &dec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, dec)
	}
	return out, rows.Err()
}

// GetDecision returns one decision by id.
func (d *Database) GetDecision(ctx context.Context, id string) (*Decision, error) {
	var dec Decision
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, symbol, signal, confidence, consensus,
		       COALESCE(votes, ''), COALESCE(providers, ''), intervened,
		       risk_score, COALESCE(risk_level, ''), qty, COALESCE(reason, ''), created_at
		FROM decisions WHERE id = ?
	`, id).Scan(&dec.ID, &dec.Symbol, &dec.Signal, &dec.Confidence,
		&dec.Consensus, &dec.Votes, &dec.Providers, &dec.Intervened,
		&dec.RiskScore, &dec.RiskLevel, &dec.Qty, &dec.Reason, &dec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return &dec, nil
}

// ListExecutions returns the most recent executions, optionally filtered
// by symbol.
func (d *Database) ListExecutions(ctx context.Context, symbol string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `
		SELECT id, COALESCE(decision_id, ''), symbol, side, requested_qty,
		       submitted_qty, state, COALESCE(order_id, ''), degraded,
		       stops_placed, COALESCE(reject_code, ''), COALESCE(error, ''), created_at
		FROM executions`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.DecisionID, &e.Symbol, &e.Side,
			&e.RequestedQty, &e.SubmittedQty, &e.State, &e.OrderID,
			&e.Degraded, &e.StopsPlaced, &e.RejectCode, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListProviderStats returns the persisted per-provider counters.
func (d *Database) ListProviderStats(ctx context.Context) ([]ProviderStat, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT provider, requests, successes, timeouts, success_rate, avg_latency_ms, updated_at
		FROM provider_stats ORDER BY provider
	`)
	if err != nil {
		return nil, fmt.Errorf("query provider stats: %w", err)
	}
	defer rows.Close()

	var out []ProviderStat
	for rows.Next() {
		var s ProviderStat
		if err := rows.Scan(&s.Provider, &s.Requests, &s.Successes, &s.Timeouts,
			&s.SuccessRate, &s.AvgLatencyMs, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan provider stat: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
