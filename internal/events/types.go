package events

// Event enumerates high-level topics inside the decision core.
type Event string

const (
	EventDecisionStarted   Event = "decision.started"
	EventDecisionCompleted Event = "decision.completed"
	EventFallbackUsed      Event = "decision.fallback"
	EventProviderFailed    Event = "provider.failed"
	EventCostExhausted     Event = "provider.cost_exhausted"
	EventRiskAlert         Event = "risk.alert"
	EventOrderSubmitted    Event = "order.submitted"
	EventOrderFilled       Event = "order.filled"
	EventOrderRejected     Event = "order.rejected"
	EventOrderFailed       Event = "order.failed"
	EventStopsPlaced       Event = "order.stops_placed"
	EventStopsMissing      Event = "order.stops_missing"
)

// All lists every topic, used by the websocket fan-out.
func All() []Event {
	return []Event{
		EventDecisionStarted, EventDecisionCompleted, EventFallbackUsed,
		EventProviderFailed, EventCostExhausted, EventRiskAlert,
		EventOrderSubmitted, EventOrderFilled, EventOrderRejected,
		EventOrderFailed, EventStopsPlaced, EventStopsMissing,
	}
}
