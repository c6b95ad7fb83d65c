package db

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    signal TEXT NOT NULL,
    confidence REAL NOT NULL,
    consensus TEXT NOT NULL,
    votes TEXT,
    providers TEXT,
    intervened INTEGER DEFAULT 0,
    risk_score REAL DEFAULT 0,
    risk_level TEXT,
    qty REAL DEFAULT 0,
    reason TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_decisions_symbol_time
    ON decisions(symbol, created_at DESC);

CREATE TABLE IF NOT EXISTS executions (
    id TEXT PRIMARY KEY,
    decision_id TEXT,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    requested_qty REAL NOT NULL,
    submitted_qty REAL NOT NULL,
    state TEXT NOT NULL,
    order_id TEXT,
    degraded INTEGER DEFAULT 0,
    stops_placed INTEGER DEFAULT 0,
    reject_code TEXT,
    error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(decision_id) REFERENCES decisions(id)
);

CREATE INDEX IF NOT EXISTS idx_executions_symbol_time
    ON executions(symbol, created_at DESC);

CREATE TABLE IF NOT EXISTS provider_stats (
    provider TEXT PRIMARY KEY,
    requests INTEGER NOT NULL,
    successes INTEGER NOT NULL,
    timeouts INTEGER NOT NULL,
    success_rate REAL NOT NULL,
    avg_latency_ms REAL NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// ApplyMigrations creates the journal tables.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
