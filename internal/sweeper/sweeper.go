package sweeper

import (
	"context"
	"time"

	"vitalwatch/internal/history"
	"vitalwatch/internal/logger"
)

// Sweeper periodically prunes stale readings across all known series to
// bound memory. It shares the per-series locks with ingestion, so a sweep
// never blocks appends on other series, and cancellation is honoured
// between series, never mid-prune of one.
type Sweeper struct {
	store    *history.Store
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a sweeper. A non-positive interval defaults to one hour.
func New(store *history.Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}

	return &Sweeper{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop. It runs until Stop is called
// or the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		defer close(s.done)

		log := logger.WithComponent("sweeper")
		log.Info().Dur("interval", s.interval).Msg("retention sweeper started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retention sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop halts the sweep loop, letting an in-flight cycle finish its
// current series first.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// SweepNow runs a single sweep cycle immediately. Useful for tests and
// for an operator-triggered prune.
func (s *Sweeper) SweepNow(ctx context.Context) int {
	return s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) int {
	log := logger.WithComponent("sweeper")
	start := time.Now()

	removed := 0
	swept := 0
	for _, key := range s.store.Keys() {
		select {
		case <-ctx.Done():
			log.Warn().
				Int("series_swept", swept).
				Int("removed", removed).
				Msg("sweep cancelled")
			return removed
		default:
		}

		removed += s.store.Prune(key.SubjectID, key.Metric)
		swept++
	}

	log.Debug().
		Int("series_swept", swept).
		Int("removed", removed).
		Dur("duration", time.Since(start)).
		Msg("sweep cycle complete")

	return removed
}
