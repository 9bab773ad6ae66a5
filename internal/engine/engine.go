package engine

import (
	"context"
	"time"

	"vitalwatch/internal/dispatch"
	"vitalwatch/internal/history"
	"vitalwatch/internal/logger"
	"vitalwatch/internal/metrics"
	"vitalwatch/internal/models"
	"vitalwatch/internal/registry"
)

// Sink receives post-ingestion work. A full sink drops the job; it must
// never block the ingestion path.
type Sink interface {
	Enqueue(dispatch.Job) bool
}

// Engine is the vital-sign alerting core. It owns the reading history and
// threshold registry for the lifetime of the process; all collaborator I/O
// happens on the sink's workers, after the per-series lock is released.
// Engines are self-contained, so tests can run several in isolation.
type Engine struct {
	history  *history.Store
	registry *registry.Registry
	sink     Sink
}

// New creates an engine.
func New(hist *history.Store, reg *registry.Registry, sink Sink) *Engine {
	return &Engine{
		history:  hist,
		registry: reg,
		sink:     sink,
	}
}

// Ingest validates a reading, appends it to history, evaluates it against
// the subject's configured thresholds, and queues dispatch work for any
// triggers raised. Only validation errors are returned; downstream
// collaborator failures are absorbed by the dispatch workers. The returned
// set tells the caller what fired, so an API surface can shape its
// response without knowing alerting internals.
func (e *Engine) Ingest(ctx context.Context, r *models.Reading) (models.TriggerSet, error) {
	r.Normalize()

	if r.ObservedAt.IsZero() {
		r.ObservedAt = time.Now().UTC()
	}

	if err := r.Validate(); err != nil {
		metrics.ReadingsIngestedTotal.WithLabelValues(string(r.Metric), "rejected").Inc()
		metrics.ReadingValidationErrors.WithLabelValues(err.Error()).Inc()
		return nil, err
	}

	e.history.Append(*r)

	triggers := e.evaluate(r)

	for _, k := range triggers {
		metrics.TriggersRaisedTotal.WithLabelValues(k.String()).Inc()
	}
	metrics.ReadingsIngestedTotal.WithLabelValues(string(r.Metric), "accepted").Inc()

	if e.sink != nil {
		e.sink.Enqueue(dispatch.Job{Reading: *r, Triggers: triggers})
	}

	if len(triggers) > 0 {
		log := logger.WithSubject(r.SubjectID, string(r.Metric))
		log.Info().
			Float64("value", r.Value).
			Strs("triggers", triggers.Names()).
			Msg("reading raised triggers")
	}

	return triggers, nil
}

// evaluate runs the decision core for one reading. No configured
// threshold for the metric means an empty set and no further work.
func (e *Engine) evaluate(r *models.Reading) models.TriggerSet {
	th, ok := e.registry.ForMetric(r.SubjectID, r.Metric)
	if !ok {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	var trendWindow []models.Reading
	if th.HasTrendConfig() {
		windowStart := r.ObservedAt.Add(-time.Duration(*th.TrendWindowMinutes) * time.Minute)
		trendWindow = e.history.Range(r.SubjectID, r.Metric, windowStart, r.ObservedAt)
	}

	return Evaluate(r, th, trendWindow)
}

// SetThresholds replaces a subject's threshold configuration.
func (e *Engine) SetThresholds(subjectID string, thresholds []models.Threshold) {
	e.registry.Set(subjectID, thresholds)
}

// GetThresholds returns a subject's threshold configuration.
func (e *Engine) GetThresholds(subjectID string) []models.Threshold {
	return e.registry.Get(subjectID)
}

// History exposes the engine's history store for the retention sweeper.
func (e *Engine) History() *history.Store {
	return e.history
}
