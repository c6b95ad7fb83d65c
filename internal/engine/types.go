package engine

import (
	"time"

	"alphapilot/internal/fusion"
	"alphapilot/internal/order"
	"alphapilot/internal/risk"
)

// SystemStatus is the runtime status exposed over the API.
type SystemStatus struct {
	Mode             string    `json:"mode"` // live or dry-run
	DryRun           bool      `json:"dry_run"`
	Venue            string    `json:"venue"`
	Symbols          []string  `json:"symbols"`
	ExecutionEnabled bool      `json:"execution_enabled"`
	Paused           bool      `json:"paused"`
	Providers        int       `json:"providers"`
	Version          string    `json:"version"`
	ServerTime       time.Time `json:"server_time"`
}

// CostBudget reports the daily AI spend against its cap.
type CostBudget struct {
	Max       float64 `json:"max"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
}

// CycleOutcome is the result of one decision cycle for one symbol.
type CycleOutcome struct {
	Symbol     string           `json:"symbol"`
	Decision   fusion.Result    `json:"decision"`
	Assessment risk.Assessment  `json:"assessment"`
	Qty        float64          `json:"qty"`
	Execution  *order.Execution `json:"execution,omitempty"`
	Fallback   bool             `json:"fallback"`
	Elapsed    time.Duration    `json:"elapsed_ns"`
}
