package monitor

import (
	"context"

	"alphapilot/internal/events"
	"alphapilot/pkg/logger"
)

// Watcher consumes bus events and keeps metrics and alerting current,
// so the rest of the system never calls the metrics object directly.
type Watcher struct {
	bus     *events.Bus
	metrics *SystemMetrics
	sink    AlertSink
}

func NewWatcher(bus *events.Bus, metrics *SystemMetrics, sink AlertSink) *Watcher {
	if sink == nil {
		sink = LogSink{}
	}
	return &Watcher{bus: bus, metrics: metrics, sink: sink}
}

// Start subscribes to all topics and runs until the context ends.
func (w *Watcher) Start(ctx context.Context) {
	stream, unsub := w.bus.SubscribeAll(256)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-stream:
				if !ok {
					return
				}
				w.handle(env)
			}
		}
	}()
}

func (w *Watcher) handle(env events.Envelope) {
	switch env.Topic {
	case events.EventDecisionCompleted:
		w.metrics.IncrementDecisions()
	case events.EventFallbackUsed:
		w.metrics.IncrementFallbacks()
	case events.EventProviderFailed:
		w.metrics.IncrementProviderFailures()
	case events.EventOrderFilled:
		w.metrics.IncrementOrdersFilled()
	case events.EventOrderFailed:
		w.metrics.IncrementOrdersFailed()
		w.metrics.IncrementErrors()
		w.alert(env, "order failed")
	case events.EventStopsMissing:
		w.metrics.IncrementStopsMissing()
		w.alert(env, "position open without protective stops")
	case events.EventCostExhausted:
		w.alert(env, "daily AI cost budget exhausted")
	case events.EventRiskAlert:
		w.alert(env, "risk level elevated")
	}
}

func (w *Watcher) alert(env events.Envelope, message string) {
	if err := w.sink.Send(string(env.Topic), message, env.Data); err != nil {
		logger.WithModule("monitor").WithError(err).Warn("alert delivery failed")
	}
}
