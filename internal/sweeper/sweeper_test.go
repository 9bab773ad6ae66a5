package sweeper_test

import (
	"context"
	"testing"
	"time"

	"vitalwatch/internal/history"
	"vitalwatch/internal/models"
	"vitalwatch/internal/sweeper"
)

func seed(s *history.Store, subject string, ages ...time.Duration) {
	now := time.Now()
	for i, age := range ages {
		s.Append(models.Reading{
			SubjectID:  subject,
			Metric:     models.MetricHeartRate,
			Value:      float64(60 + i),
			ObservedAt: now.Add(-age),
		})
	}
}

func TestSweepNowPrunesAllSeries(t *testing.T) {
	store := history.NewStore(history.Config{Retention: time.Hour})
	seed(store, "subj-1", 2*time.Hour, 30*time.Minute)
	seed(store, "subj-2", 3*time.Hour, 90*time.Minute, time.Minute)

	swp := sweeper.New(store, time.Hour)
	removed := swp.SweepNow(context.Background())

	if removed != 3 {
		t.Fatalf("expected 3 readings pruned, got %d", removed)
	}

	if w := store.Window("subj-1", models.MetricHeartRate, 24*time.Hour); len(w) != 1 {
		t.Errorf("subj-1: expected 1 reading after sweep, got %d", len(w))
	}
	if w := store.Window("subj-2", models.MetricHeartRate, 24*time.Hour); len(w) != 1 {
		t.Errorf("subj-2: expected 1 reading after sweep, got %d", len(w))
	}
}

func TestSweepHonoursCancellation(t *testing.T) {
	store := history.NewStore(history.Config{Retention: time.Hour})
	seed(store, "subj-1", 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	swp := sweeper.New(store, time.Hour)
	if removed := swp.SweepNow(ctx); removed != 0 {
		t.Errorf("cancelled sweep removed %d readings", removed)
	}
}

func TestSweeperBackgroundCycle(t *testing.T) {
	store := history.NewStore(history.Config{Retention: time.Hour})
	seed(store, "subj-1", 2*time.Hour, time.Minute)

	swp := sweeper.New(store, 20*time.Millisecond)
	swp.Start(context.Background())

	deadline := time.After(time.Second)
	for {
		if w := store.Window("subj-1", models.MetricHeartRate, 24*time.Hour); len(w) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("background sweep never pruned the stale reading")
		case <-time.After(10 * time.Millisecond):
		}
	}

	swp.Stop()

	// A second Stop-start sequence must not deadlock or panic; Stop after
	// Stop is a no-op because the done channel is already closed.
	swp.Stop()
}
