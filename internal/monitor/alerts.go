package monitor

import "alphapilot/pkg/logger"

// AlertSink delivers operator alerts. Implementations may fan out to
// chat webhooks or pagers; the default writes to the structured log.
type AlertSink interface {
	Send(topic, message string, data any) error
}

// LogSink writes alerts to the application log.
type LogSink struct{}

func (LogSink) Send(topic, message string, data any) error {
	logger.WithModule("alerts").WithFields(logger.Fields{
		"topic": topic,
		"data":  data,
	}).Warn(message)
	return nil
}
