package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"alphapilot/internal/events"
	"alphapilot/pkg/config"
)

func fastProvider(name, url string, retries int) config.Provider {
	return config.Provider{
		Name: name, Endpoint: url, Model: "m", Enabled: true,
		ConnectTimeout: 2, ResponseTimeout: 3, TotalTimeout: 5,
		MaxRetries: retries, BaseDelay: 0.01, CostWeight: 1, VoteWeight: 0.8,
		RateLimitPerMin: 6000,
	}
}

func TestClientCollectPartialResults(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completion(`{"signal":"BUY","confidence":"HIGH","reason":"momentum"}`))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bad.Close()

	c := NewClient([]config.Provider{
		fastProvider("alpha", good.URL, 0),
		fastProvider("beta", good.URL, 0),
		fastProvider("gamma", bad.URL, 2),
	}, NewCostLedger(100), events.NewBus())

	sigs := c.CollectSignals(context.Background(), testSnapshot())
	if len(sigs) != 2 {
		t.Fatalf("got %d signals, want 2", len(sigs))
	}
	for _, s := range sigs {
		if s.Signal != SignalBuy {
			t.Errorf("signal = %s, want BUY", s.Signal)
		}
	}
}

func TestClientAuthErrorNotRetried(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient([]config.Provider{fastProvider("alpha", srv.URL, 3)}, NewCostLedger(100), events.NewBus())
	if sigs := c.CollectSignals(context.Background(), testSnapshot()); len(sigs) != 0 {
		t.Fatalf("got %d signals, want 0", len(sigs))
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("calls = %d, want 1 (auth failures must not retry)", n)
	}
}

func TestClientRetriesGatedByLedger(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	// Budget of 2 admits two retries; the provider asks for five.
	ledger := NewCostLedger(2)
	bus := events.NewBus()
	exhausted, unsub := bus.Subscribe(events.EventCostExhausted, 4)
	defer unsub()
	c := NewClient([]config.Provider{fastProvider("alpha", srv.URL, 5)}, ledger, bus)

	if sigs := c.CollectSignals(context.Background(), testSnapshot()); len(sigs) != 0 {
		t.Fatalf("got %d signals, want 0", len(sigs))
	}
	// First attempt free, then two admitted retries.
	if n := atomic.LoadInt64(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
	select {
	case <-exhausted:
	default:
		t.Error("expected a cost_exhausted event")
	}
	if ledger.Remaining() != 0 {
		t.Errorf("remaining = %v, want 0", ledger.Remaining())
	}
}

func TestClientFirstAttemptNotCharged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completion(`{"signal":"HOLD","confidence":"LOW","reason":"quiet"}`))
	}))
	defer srv.Close()

	ledger := NewCostLedger(100)
	c := NewClient([]config.Provider{fastProvider("alpha", srv.URL, 2)}, ledger, events.NewBus())
	c.CollectSignals(context.Background(), testSnapshot())
	if spent := ledger.Spent(); spent != 0 {
		t.Errorf("spent = %v, want 0 for a clean first attempt", spent)
	}
}

func TestClientDisabledProvidersSkipped(t *testing.T) {
	p := fastProvider("alpha", "http://127.0.0.1:1", 0)
	p.Enabled = false
	c := NewClient([]config.Provider{p}, NewCostLedger(10), events.NewBus())
	if c.ProviderCount() != 0 {
		t.Fatalf("provider count = %d, want 0", c.ProviderCount())
	}
	if sigs := c.CollectSignals(context.Background(), testSnapshot()); len(sigs) != 0 {
		t.Fatalf("got %d signals from disabled roster", len(sigs))
	}
}
