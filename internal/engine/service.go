// Package engine runs the periodic decision cycle and exposes a
// read-mostly service surface for the API layer.
package engine

import (
	"context"

	"alphapilot/internal/ai"
	"alphapilot/internal/monitor"
	"alphapilot/pkg/db"
	"alphapilot/pkg/exchanges/common"
)

// Service is the surface the API layer talks to. The HTTP handlers
// never reach into the trading internals directly.
type Service interface {
	// System
	Status(ctx context.Context) SystemStatus
	Pause()
	Resume()

	// Observability
	Metrics() monitor.MetricsSnapshot
	ProviderStats() []ai.StatsSnapshot
	CostBudget() CostBudget

	// History
	Decisions(ctx context.Context, symbol string, limit int) ([]db.Decision, error)
	Executions(ctx context.Context, symbol string, limit int) ([]db.Execution, error)

	// Live state
	Positions(ctx context.Context) ([]common.Position, error)

	// TriggerCycle runs one decision cycle for a symbol outside the
	// regular schedule.
	TriggerCycle(ctx context.Context, symbol string) (*CycleOutcome, error)
}
