package dispatch

import (
	"context"
	"errors"
	"time"

	"vitalwatch/internal/logger"
	"vitalwatch/internal/metrics"
	"vitalwatch/internal/models"
)

// ErrNoRecipient is returned by identity resolvers when a subject has no
// assigned responsible provider.
var ErrNoRecipient = errors.New("subject has no assigned recipient")

// IdentityResolver maps a subject to the provider responsible for it.
type IdentityResolver interface {
	ResolveRecipient(ctx context.Context, subjectID string) (string, error)
}

// Notifier delivers a constructed alert to its recipient.
type Notifier interface {
	Send(ctx context.Context, recipientID string, alert *models.Alert) error
}

// AlertStore durably records alerts and readings for audit. All writes
// are best-effort from the engine's point of view.
type AlertStore interface {
	RecordAlert(ctx context.Context, alert *models.Alert) error
	RecordReading(ctx context.Context, reading *models.Reading) error
}

// Dispatcher turns trigger classifications into Alert records and hands
// them to the persistence and delivery collaborators. Collaborator
// failures are logged and counted, never raised back to ingestion.
type Dispatcher struct {
	identity IdentityResolver
	notifier Notifier
	store    AlertStore
	timeout  time.Duration
}

// Config holds dispatcher collaborators.
type Config struct {
	Identity IdentityResolver
	Notifier Notifier
	Store    AlertStore
	// Timeout bounds each downstream collaborator call
	Timeout time.Duration
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Dispatcher{
		identity: cfg.Identity,
		notifier: cfg.Notifier,
		store:    cfg.Store,
		timeout:  cfg.Timeout,
	}
}

// RecordReading persists a reading best-effort.
func (d *Dispatcher) RecordReading(ctx context.Context, r *models.Reading) {
	if d.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.store.RecordReading(ctx, r); err != nil {
		metrics.PersistenceFailures.WithLabelValues("reading").Inc()
		log := logger.WithSubject(r.SubjectID, string(r.Metric))
		log.Warn().
			Err(err).
			Msg("failed to record reading")
	}
}

// Dispatch constructs the Alert for a triggering reading, resolves its
// recipient, persists it, and delivers it. A subject without an assigned
// recipient still gets its alert constructed and persisted; only delivery
// is skipped. The constructed alert is returned for callers that need it.
func (d *Dispatcher) Dispatch(ctx context.Context, r *models.Reading, triggers models.TriggerSet) *models.Alert {
	log := logger.WithComponent("dispatcher").With().
		Str("subject_id", r.SubjectID).
		Str("metric", string(r.Metric)).
		Strs("triggers", triggers.Names()).
		Logger()

	alert := models.NewAlert(r, triggers)

	recipientID, err := d.resolveRecipient(ctx, r.SubjectID)
	if err != nil {
		metrics.RecipientResolutionFailures.Inc()
		log.Warn().
			Err(err).
			Str("alert_id", alert.ID).
			Msg("recipient resolution failed, delivery will be skipped")
	}
	alert.RecipientID = recipientID

	if d.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := d.store.RecordAlert(storeCtx, alert); err != nil {
			metrics.PersistenceFailures.WithLabelValues("alert").Inc()
			log.Error().
				Err(err).
				Str("alert_id", alert.ID).
				Msg("failed to persist alert")
		}
		cancel()
	}

	if recipientID != "" && d.notifier != nil {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := d.notifier.Send(sendCtx, recipientID, alert); err != nil {
			metrics.DeliveryFailures.Inc()
			log.Error().
				Err(err).
				Str("alert_id", alert.ID).
				Str("recipient_id", recipientID).
				Msg("failed to deliver alert")
		}
		cancel()
	}

	metrics.AlertsDispatchedTotal.WithLabelValues(string(alert.Severity)).Inc()
	log.Info().
		Str("alert_id", alert.ID).
		Str("severity", string(alert.Severity)).
		Float64("value", r.Value).
		Msg("alert dispatched")

	return alert
}

func (d *Dispatcher) resolveRecipient(ctx context.Context, subjectID string) (string, error) {
	if d.identity == nil {
		return "", ErrNoRecipient
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return d.identity.ResolveRecipient(ctx, subjectID)
}
