package monitor

import (
	"context"
	"testing"
	"time"

	"alphapilot/internal/events"
)

func TestLatencyHistogramStats(t *testing.T) {
	h := NewLatencyHistogram(10)
	for _, v := range []float64{10, 20, 30, 40, 50} {
		h.Record(v)
	}

	s := h.Stats()
	if s.Count != 5 {
		t.Fatalf("count = %d, want 5", s.Count)
	}
	if s.Min != 10 || s.Max != 50 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if s.Avg != 30 {
		t.Errorf("avg = %v, want 30", s.Avg)
	}
	if s.P50 != 30 {
		t.Errorf("p50 = %v, want 30", s.P50)
	}
}

func TestLatencyHistogramWindowSlides(t *testing.T) {
	h := NewLatencyHistogram(3)
	for _, v := range []float64{100, 1, 2, 3} {
		h.Record(v)
	}
	s := h.Stats()
	if s.Count != 3 || s.Max != 3 {
		t.Errorf("oldest sample not evicted: %+v", s)
	}
}

func TestLatencyHistogramCache(t *testing.T) {
	h := NewLatencyHistogram(10)
	h.Record(5)
	first := h.Stats()
	second := h.Stats()
	if first != second {
		t.Errorf("cached stats differ: %+v vs %+v", first, second)
	}
	h.Record(15)
	third := h.Stats()
	if third.Count != 2 {
		t.Errorf("stats not recomputed after new sample: %+v", third)
	}
}

type captureSink struct {
	topics chan string
}

func (c *captureSink) Send(topic, _ string, _ any) error {
	c.topics <- topic
	return nil
}

func TestWatcherCountsAndAlerts(t *testing.T) {
	bus := events.NewBus()
	metrics := NewSystemMetrics()
	sink := &captureSink{topics: make(chan string, 8)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewWatcher(bus, metrics, sink).Start(ctx)
	time.Sleep(20 * time.Millisecond) // let subscriptions register

	bus.Publish(events.EventDecisionCompleted, nil)
	bus.Publish(events.EventFallbackUsed, nil)
	bus.Publish(events.EventOrderFilled, nil)
	bus.Publish(events.EventStopsMissing, nil)

	deadline := time.After(2 * time.Second)
	for {
		snap := metrics.GetSnapshot()
		if snap.DecisionsCompleted == 1 && snap.FallbacksUsed == 1 &&
			snap.OrdersFilled == 1 && snap.StopsMissing == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("counters never converged: %+v", snap)
		case <-time.After(10 * time.Millisecond):
		}
	}

	select {
	case topic := <-sink.topics:
		if topic != string(events.EventStopsMissing) {
			t.Errorf("alert topic = %s", topic)
		}
	case <-time.After(time.Second):
		t.Error("no alert delivered for missing stops")
	}
}
