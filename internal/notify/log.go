package notify

import (
	"context"

	"vitalwatch/internal/logger"
	"vitalwatch/internal/models"
)

// LogNotifier is the delivery channel used when no brokers are configured:
// alerts are written to the structured log so nothing is silently lost.
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send logs the alert at warn level.
func (n *LogNotifier) Send(ctx context.Context, recipientID string, alert *models.Alert) error {
	log := logger.WithComponent("log_notifier")
	log.Warn().
		Str("alert_id", alert.ID).
		Str("recipient_id", recipientID).
		Str("subject_id", alert.SubjectID).
		Str("metric", string(alert.Metric)).
		Str("severity", string(alert.Severity)).
		Str("message", alert.Message).
		Msg("alert")
	return nil
}
