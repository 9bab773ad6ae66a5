package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"vitalwatch/internal/config"
	"vitalwatch/internal/logger"
	"vitalwatch/internal/models"
)

// Notifier errors
var (
	ErrNotifierClosed  = errors.New("notifier is closed")
	ErrSerializeFailed = errors.New("failed to serialize alert")
)

// KafkaNotifier delivers alerts to a Kafka topic. Messages are keyed by
// subject so one subject's alerts land on one partition in order.
type KafkaNotifier struct {
	cfg    config.KafkaConfig
	writer *kafka.Writer
	closed atomic.Bool

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewKafkaNotifier creates a notifier writing to the configured topic.
func NewKafkaNotifier(cfg config.KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // partition by key
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  1, // retries handled here, with backoff
	}

	return &KafkaNotifier{cfg: cfg, writer: writer}, nil
}

// Send publishes one alert. Retries with exponential backoff up to the
// configured maximum before giving up.
func (n *KafkaNotifier) Send(ctx context.Context, recipientID string, alert *models.Alert) error {
	if n.closed.Load() {
		return ErrNotifierClosed
	}

	data, err := json.Marshal(alert)
	if err != nil {
		n.failed.Add(1)
		return fmt.Errorf("%w: %v", ErrSerializeFailed, err)
	}

	msg := kafka.Message{
		Key:   []byte(alert.SubjectID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "recipient_id", Value: []byte(recipientID)},
			{Key: "subject_id", Value: []byte(alert.SubjectID)},
			{Key: "metric", Value: []byte(alert.Metric)},
			{Key: "severity", Value: []byte(alert.Severity)},
		},
		Time: alert.CreatedAt,
	}

	if err := n.sendWithRetry(ctx, msg); err != nil {
		n.failed.Add(1)
		return err
	}

	n.sent.Add(1)
	return nil
}

func (n *KafkaNotifier) sendWithRetry(ctx context.Context, msg kafka.Message) error {
	log := logger.WithComponent("kafka_notifier")
	var lastErr error
	backoff := n.cfg.RetryBackoff

	for attempt := 0; attempt <= n.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying alert publish")

			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := n.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}

		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", n.cfg.MaxRetries+1, lastErr)
}

// HealthCheck verifies the notifier is usable.
func (n *KafkaNotifier) HealthCheck(ctx context.Context) error {
	if n.closed.Load() {
		return ErrNotifierClosed
	}
	_ = n.writer.Stats()
	return nil
}

// Close shuts the underlying writer down.
func (n *KafkaNotifier) Close() error {
	if n.closed.Swap(true) {
		return nil
	}
	return n.writer.Close()
}

// Stats returns delivery counters.
func (n *KafkaNotifier) Stats() Stats {
	return Stats{Sent: n.sent.Load(), Failed: n.failed.Load()}
}

// Stats holds notifier counters.
type Stats struct {
	Sent   uint64
	Failed uint64
}
