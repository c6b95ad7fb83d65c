package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"alphapilot/internal/risk"
	"alphapilot/pkg/exchanges/common"
	"alphapilot/pkg/logger"
)

// Manager keeps an in-memory view of account balance and open positions,
// refreshed from the venue before each decision cycle.
type Manager struct {
	mu        sync.RWMutex
	gateway   common.Gateway
	log       *logrus.Entry
	positions map[string]common.Position
	openedAt  map[string]time.Time
	balance   float64
	refreshed time.Time
}

func NewManager(gateway common.Gateway) *Manager {
	return &Manager{
		gateway:   gateway,
		log:       logger.WithModule("state"),
		positions: make(map[string]common.Position),
		openedAt:  make(map[string]time.Time),
	}
}

// Refresh pulls balance and positions from the venue. Symbols that
// disappeared from the venue response are treated as closed.
func (m *Manager) Refresh(ctx context.Context) error {
	balance, err := m.gateway.Balance(ctx)
	if err != nil {
		return fmt.Errorf("refresh balance: %w", err)
	}
	positions, err := m.gateway.Positions(ctx)
	if err != nil {
		return fmt.Errorf("refresh positions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
	m.refreshed = time.Now()

	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		seen[p.Symbol] = true
		if _, open := m.positions[p.Symbol]; !open {
			at := p.OpenedAt
			if at.IsZero() {
				at = time.Now()
			}
			m.openedAt[p.Symbol] = at
		}
		m.positions[p.Symbol] = p
	}
	for symbol := range m.positions {
		if !seen[symbol] {
			delete(m.positions, symbol)
			delete(m.openedAt, symbol)
		}
	}
	return nil
}

// Position returns the open position for a symbol, if any.
func (m *Manager) Position(symbol string) (common.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[symbol]
	return p, ok
}

// Positions returns a snapshot of all open positions.
func (m *Manager) Positions() []common.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]common.Position, 0, len(m.positions))
	for _, p := range m.positions {
		res = append(res, p)
	}
	return res
}

// Balance returns the last refreshed account equity.
func (m *Manager) Balance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}

// Portfolio summarizes the account for risk assessment of one symbol.
// Notional exposure uses entry prices, which is close enough for the
// ratio-based sub-scores it feeds.
func (m *Manager) Portfolio(symbol string) risk.Portfolio {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total, largest float64
	for _, p := range m.positions {
		notional := p.Qty * p.EntryPrice
		total += notional
		if notional > largest {
			largest = notional
		}
	}

	pf := risk.Portfolio{
		Balance:       m.balance,
		TotalExposure: total,
	}
	if m.balance > 0 {
		pf.Leverage = total / m.balance
	}
	if total > 0 {
		pf.LargestPositionPct = largest / total
	}
	if at, ok := m.openedAt[symbol]; ok {
		pf.HoldingHours = time.Since(at).Hours()
	}
	return pf
}

// RecordFill updates the local view immediately after an execution so
// back-to-back decisions in the same cycle see the new exposure before
// the next venue refresh.
func (m *Manager) RecordFill(symbol string, side common.Side, qty, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, open := m.positions[symbol]
	if !open {
		// A fill with no tracked position opens one on that side, a SELL
		// included: a fresh short must count toward exposure right away.
		m.positions[symbol] = common.Position{
			Symbol: symbol, Side: side, Qty: qty, EntryPrice: price, OpenedAt: time.Now(),
		}
		m.openedAt[symbol] = time.Now()
		return
	}

	if side == p.Side {
		newQty := p.Qty + qty
		p.EntryPrice = (p.EntryPrice*p.Qty + price*qty) / newQty
		p.Qty = newQty
		m.positions[symbol] = p
		return
	}

	p.Qty -= qty
	if p.Qty <= 0 {
		delete(m.positions, symbol)
		delete(m.openedAt, symbol)
		return
	}
	m.positions[symbol] = p
}
