package registry

import (
	"sync"

	"vitalwatch/internal/models"
)

// Registry holds the configured thresholds per subject. Reads vastly
// outnumber writes, so a read-write lock guards the map. A subject's
// threshold list is replaced wholesale on update; there is no partial
// merge and the last write wins.
type Registry struct {
	mu         sync.RWMutex
	thresholds map[string][]models.Threshold
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		thresholds: make(map[string][]models.Threshold),
	}
}

// Set replaces the full threshold list for a subject.
func (r *Registry) Set(subjectID string, thresholds []models.Threshold) {
	cp := make([]models.Threshold, len(thresholds))
	copy(cp, thresholds)

	r.mu.Lock()
	r.thresholds[subjectID] = cp
	r.mu.Unlock()
}

// Get returns the subject's threshold list. An unconfigured subject
// yields an empty list, never an error.
func (r *Registry) Get(subjectID string) []models.Threshold {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.thresholds[subjectID]
	out := make([]models.Threshold, len(stored))
	copy(out, stored)
	return out
}

// ForMetric returns the subject's threshold for one metric, if configured.
func (r *Registry) ForMetric(subjectID string, metric models.Metric) (models.Threshold, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.thresholds[subjectID] {
		if t.Metric == metric {
			return t, true
		}
	}
	return models.Threshold{}, false
}
