package ai

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"alphapilot/internal/events"
	"alphapilot/internal/market"
	"alphapilot/pkg/config"
	"alphapilot/pkg/logger"
)

// Client fans one snapshot out to every enabled provider and collects
// whatever usable signals come back. Partial results are fine; the caller
// falls back to technical analysis when the slice is empty.
type Client struct {
	gateways []*Gateway
	tracker  *Tracker
	ledger   *CostLedger
	limiters map[string]*rate.Limiter
	bus      *events.Bus
	log      *logrus.Entry
}

// NewClient wires gateways, health tracking, the retry ledger, and
// per-provider pacing for the enabled subset of providers.
func NewClient(providers []config.Provider, ledger *CostLedger, bus *events.Bus) *Client {
	c := &Client{
		ledger:   ledger,
		limiters: make(map[string]*rate.Limiter),
		bus:      bus,
		log:      logger.WithModule("ai"),
	}
	enabled := make([]config.Provider, 0, len(providers))
	for _, p := range providers {
		if !p.Enabled {
			continue
		}
		enabled = append(enabled, p)
		c.gateways = append(c.gateways, NewGateway(p))
		c.limiters[p.Name] = rate.NewLimiter(rate.Limit(p.RateLimitPerMin/60.0), 1)
	}
	c.tracker = NewTracker(enabled)
	return c
}

// Tracker exposes provider health for the API layer.
func (c *Client) Tracker() *Tracker { return c.tracker }

// Ledger exposes the cost ledger for the API layer.
func (c *Client) Ledger() *CostLedger { return c.ledger }

// ProviderCount returns how many providers are enabled.
func (c *Client) ProviderCount() int { return len(c.gateways) }

// CollectSignals queries all enabled providers concurrently and returns
// the signals that parsed cleanly, in no particular order.
func (c *Client) CollectSignals(ctx context.Context, snap market.Snapshot) []AISignal {
	var (
		mu      sync.Mutex
		signals []AISignal
		wg      sync.WaitGroup
	)

	for _, gw := range c.gateways {
		wg.Add(1)
		go func(gw *Gateway) {
			defer wg.Done()
			if sig := c.query(ctx, gw, snap); sig != nil {
				mu.Lock()
				signals = append(signals, *sig)
				mu.Unlock()
			}
		}(gw)
	}
	wg.Wait()
	return signals
}

// query runs one provider's attempt loop: first attempt free, every retry
// admitted against the daily ledger and separated by backoff.
func (c *Client) query(ctx context.Context, gw *Gateway, snap market.Snapshot) *AISignal {
	prov := gw.Provider()
	plog := c.log.WithField("provider", prov.Name)

	rateLimited := false
	for attempt := 0; attempt <= prov.MaxRetries; attempt++ {
		if attempt > 0 {
			if !c.ledger.Admit(prov.CostWeight) {
				plog.Warn("daily retry budget exhausted, abandoning provider")
				c.bus.Publish(events.EventCostExhausted, map[string]any{
					"provider": prov.Name,
					"symbol":   snap.Symbol,
					"spent":    c.ledger.Spent(),
				})
				return nil
			}
			to := c.tracker.Timeouts(prov.Name)
			delay := backoffDelay(to.BaseDelay, attempt-1, c.tracker.SuccessRate(prov.Name), rateLimited)
			rateLimited = false
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
		}

		if err := c.limiters[prov.Name].Wait(ctx); err != nil {
			return nil
		}

		total := time.Duration(c.tracker.Timeouts(prov.Name).Total * float64(time.Second))
		sig, err := gw.Fetch(ctx, snap, total)
		if err == nil {
			c.tracker.RecordSuccess(prov.Name, sig.Latency)
			plog.WithFields(logger.Fields{
				"symbol":     snap.Symbol,
				"signal":     sig.Signal,
				"confidence": sig.Confidence,
				"latency_ms": sig.Latency.Milliseconds(),
			}).Info("provider signal")
			return sig
		}

		ge, _ := AsGatewayError(err)
		c.tracker.RecordFailure(prov.Name, ge.Kind)
		plog.WithField("attempt", attempt).WithError(err).Warn("provider call failed")
		c.bus.Publish(events.EventProviderFailed, map[string]any{
			"provider": prov.Name,
			"symbol":   snap.Symbol,
			"kind":     ge.Kind.String(),
			"attempt":  attempt,
		})

		if !ge.Retryable() {
			return nil
		}
		if ge.Kind == KindRateLimited {
			rateLimited = true
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}
