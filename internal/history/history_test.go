package history_test

import (
	"sync"
	"testing"
	"time"

	"vitalwatch/internal/history"
	"vitalwatch/internal/models"
)

func reading(subject string, value float64, observedAt time.Time) models.Reading {
	return models.Reading{
		SubjectID:  subject,
		Metric:     models.MetricHeartRate,
		Value:      value,
		Unit:       "bpm",
		ObservedAt: observedAt,
	}
}

func TestStoreAppendAndWindow(t *testing.T) {
	s := history.NewStore(history.Config{Retention: 24 * time.Hour})
	now := time.Now()

	s.Append(reading("subj-1", 70, now.Add(-2*time.Minute)))
	s.Append(reading("subj-1", 72, now.Add(-time.Minute)))
	s.Append(reading("subj-1", 74, now))

	window := s.Window("subj-1", models.MetricHeartRate, 5*time.Minute)
	if len(window) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(window))
	}
	if window[0].Value != 70 || window[2].Value != 74 {
		t.Errorf("window not oldest-first: %v", window)
	}

	// Snapshot, not a live view
	window[0].Value = 999
	again := s.Window("subj-1", models.MetricHeartRate, 5*time.Minute)
	if again[0].Value != 70 {
		t.Error("window mutation leaked into the store")
	}
}

func TestStoreWindowExcludesOldReadings(t *testing.T) {
	s := history.NewStore(history.Config{Retention: 24 * time.Hour})
	now := time.Now()

	s.Append(reading("subj-1", 60, now.Add(-10*time.Minute)))
	s.Append(reading("subj-1", 70, now.Add(-time.Minute)))

	window := s.Window("subj-1", models.MetricHeartRate, 5*time.Minute)
	if len(window) != 1 {
		t.Fatalf("expected 1 reading in 5m window, got %d", len(window))
	}
	if window[0].Value != 70 {
		t.Errorf("wrong reading in window: %v", window[0])
	}
}

func TestStoreOutOfOrderAppend(t *testing.T) {
	s := history.NewStore(history.Config{Retention: 24 * time.Hour})
	now := time.Now()

	s.Append(reading("subj-1", 70, now.Add(-3*time.Minute)))
	s.Append(reading("subj-1", 74, now))
	s.Append(reading("subj-1", 72, now.Add(-time.Minute))) // late arrival

	window := s.Window("subj-1", models.MetricHeartRate, 10*time.Minute)
	if len(window) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(window))
	}
	for i := 1; i < len(window); i++ {
		if window[i].ObservedAt.Before(window[i-1].ObservedAt) {
			t.Fatalf("window out of order at %d: %v", i, window)
		}
	}
	if window[1].Value != 72 {
		t.Errorf("late arrival not sorted into place: %v", window)
	}
}

func TestStorePrune(t *testing.T) {
	s := history.NewStore(history.Config{Retention: time.Hour})
	now := time.Now()

	s.Append(reading("subj-1", 60, now.Add(-2*time.Hour)))
	s.Append(reading("subj-1", 65, now.Add(-90*time.Minute)))
	s.Append(reading("subj-1", 70, now.Add(-30*time.Minute)))
	s.Append(reading("subj-1", 72, now))

	removed := s.Prune("subj-1", models.MetricHeartRate)
	if removed != 2 {
		t.Fatalf("expected 2 pruned, got %d", removed)
	}

	// Idempotent
	if removed := s.Prune("subj-1", models.MetricHeartRate); removed != 0 {
		t.Errorf("second prune removed %d entries", removed)
	}

	window := s.Window("subj-1", models.MetricHeartRate, time.Hour)
	if len(window) != 2 {
		t.Fatalf("expected 2 readings after prune, got %d", len(window))
	}
	cutoff := time.Now().Add(-time.Hour)
	for _, r := range window {
		if r.ObservedAt.Before(cutoff) {
			t.Errorf("stale reading survived prune: %v", r.ObservedAt)
		}
	}
}

func TestStoreEntryCap(t *testing.T) {
	s := history.NewStore(history.Config{Retention: 24 * time.Hour, MaxEntries: 5})
	now := time.Now()

	for i := 0; i < 10; i++ {
		s.Append(reading("subj-1", float64(i), now.Add(time.Duration(i)*time.Second)))
	}

	window := s.Window("subj-1", models.MetricHeartRate, 24*time.Hour)
	if len(window) != 5 {
		t.Fatalf("expected cap of 5 entries, got %d", len(window))
	}
	// Oldest dropped first
	if window[0].Value != 5 {
		t.Errorf("expected oldest entries evicted, got first value %v", window[0].Value)
	}
}

func TestStoreKeysAndStats(t *testing.T) {
	s := history.NewStore(history.Config{Retention: 24 * time.Hour})
	now := time.Now()

	s.Append(reading("subj-1", 70, now))
	s.Append(reading("subj-2", 80, now))
	s.Append(models.Reading{SubjectID: "subj-1", Metric: models.MetricTemperature, Value: 37, ObservedAt: now})

	if keys := s.Keys(); len(keys) != 3 {
		t.Errorf("expected 3 series keys, got %d", len(keys))
	}

	seriesCount, entryCount := s.Stats()
	if seriesCount != 3 || entryCount != 3 {
		t.Errorf("Stats() = (%d, %d), want (3, 3)", seriesCount, entryCount)
	}
}

func TestStoreConcurrentSubjects(t *testing.T) {
	s := history.NewStore(history.Config{Retention: 24 * time.Hour})
	now := time.Now()

	var wg sync.WaitGroup
	subjects := []string{"subj-1", "subj-2", "subj-3", "subj-4"}
	for _, subject := range subjects {
		wg.Add(1)
		go func(subject string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append(reading(subject, float64(i), now.Add(time.Duration(i)*time.Second)))
				s.Window(subject, models.MetricHeartRate, time.Hour)
				if i%10 == 0 {
					s.Prune(subject, models.MetricHeartRate)
				}
			}
		}(subject)
	}
	wg.Wait()

	for _, subject := range subjects {
		window := s.Window(subject, models.MetricHeartRate, 24*time.Hour)
		if len(window) != 100 {
			t.Errorf("subject %s: expected 100 readings, got %d", subject, len(window))
		}
	}
}
