package history

import (
	"sync"
	"time"

	"vitalwatch/internal/metrics"
	"vitalwatch/internal/models"
)

// Key identifies one reading series.
type Key struct {
	SubjectID string
	Metric    models.Metric
}

// Store keeps a rolling in-memory window of readings per (subject, metric)
// series. Each series has its own lock, so appends, reads, and prunes for
// different series proceed fully in parallel while operations on the same
// series are serialized.
type Store struct {
	retention  time.Duration
	maxEntries int

	mu     sync.RWMutex // guards the series map only
	series map[Key]*series
}

type series struct {
	mu       sync.Mutex
	readings []models.Reading
}

// Config holds store configuration.
type Config struct {
	// Retention is the maximum age of a reading before it is prunable
	Retention time.Duration
	// MaxEntries caps each series regardless of age; oldest entries
	// are dropped first when the cap is exceeded
	MaxEntries int
}

// NewStore creates a history store.
func NewStore(cfg Config) *Store {
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100000
	}

	return &Store{
		retention:  cfg.Retention,
		maxEntries: cfg.MaxEntries,
		series:     make(map[Key]*series),
	}
}

// Retention returns the configured retention window.
func (s *Store) Retention() time.Duration {
	return s.retention
}

// Append inserts a reading into its series, keeping ascending ObservedAt
// order. Readings normally arrive in order, so the scan starts from the
// tail; out-of-order arrivals are rare and windows are short.
func (s *Store) Append(r models.Reading) {
	ser := s.getOrCreate(Key{SubjectID: r.SubjectID, Metric: r.Metric})

	ser.mu.Lock()
	defer ser.mu.Unlock()

	i := len(ser.readings)
	for i > 0 && ser.readings[i-1].ObservedAt.After(r.ObservedAt) {
		i--
	}

	ser.readings = append(ser.readings, models.Reading{})
	copy(ser.readings[i+1:], ser.readings[i:])
	ser.readings[i] = r

	if over := len(ser.readings) - s.maxEntries; over > 0 {
		ser.readings = append(ser.readings[:0:0], ser.readings[over:]...)
		metrics.HistoryCapEvictions.Add(float64(over))
	} else {
		metrics.HistoryEntries.Inc()
	}
}

// Window returns a snapshot of all readings with ObservedAt >= now-since,
// oldest first. Callers get a copy, never a live view.
func (s *Store) Window(subjectID string, metric models.Metric, since time.Duration) []models.Reading {
	return s.Range(subjectID, metric, time.Now().Add(-since), time.Time{})
}

// Range returns a snapshot of readings with ObservedAt in [from, to],
// oldest first. A zero `to` means no upper bound.
func (s *Store) Range(subjectID string, metric models.Metric, from, to time.Time) []models.Reading {
	ser := s.get(Key{SubjectID: subjectID, Metric: metric})
	if ser == nil {
		return nil
	}

	ser.mu.Lock()
	defer ser.mu.Unlock()

	// Readings are sorted, so find the first in-range index.
	start := 0
	for start < len(ser.readings) && ser.readings[start].ObservedAt.Before(from) {
		start++
	}

	end := len(ser.readings)
	if !to.IsZero() {
		for end > start && ser.readings[end-1].ObservedAt.After(to) {
			end--
		}
	}

	if start >= end {
		return nil
	}

	out := make([]models.Reading, end-start)
	copy(out, ser.readings[start:end])
	return out
}

// Prune removes readings older than the retention cutoff from one series.
// Idempotent; never removes an entry newer than the cutoff. Returns the
// number of readings removed.
func (s *Store) Prune(subjectID string, metric models.Metric) int {
	ser := s.get(Key{SubjectID: subjectID, Metric: metric})
	if ser == nil {
		return 0
	}

	cutoff := time.Now().Add(-s.retention)

	ser.mu.Lock()
	defer ser.mu.Unlock()

	start := 0
	for start < len(ser.readings) && ser.readings[start].ObservedAt.Before(cutoff) {
		start++
	}

	if start == 0 {
		return 0
	}

	ser.readings = append(ser.readings[:0:0], ser.readings[start:]...)
	metrics.HistoryPrunedTotal.Add(float64(start))
	metrics.HistoryEntries.Sub(float64(start))
	return start
}

// Keys returns a snapshot of all known series keys.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]Key, 0, len(s.series))
	for k := range s.series {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns the current series and entry counts.
func (s *Store) Stats() (seriesCount, entryCount int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ser := range s.series {
		ser.mu.Lock()
		entryCount += len(ser.readings)
		ser.mu.Unlock()
	}
	return len(s.series), entryCount
}

func (s *Store) get(k Key) *series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series[k]
}

func (s *Store) getOrCreate(k Key) *series {
	s.mu.RLock()
	ser := s.series[k]
	s.mu.RUnlock()
	if ser != nil {
		return ser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ser = s.series[k]; ser == nil {
		ser = &series{}
		s.series[k] = ser
		metrics.HistorySeries.Set(float64(len(s.series)))
	}
	return ser
}
