package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vitalwatch/internal/config"
	"vitalwatch/internal/dispatch"
	"vitalwatch/internal/engine"
	"vitalwatch/internal/handlers"
	"vitalwatch/internal/history"
	"vitalwatch/internal/logger"
	"vitalwatch/internal/middleware"
	"vitalwatch/internal/notify"
	"vitalwatch/internal/registry"
	"vitalwatch/internal/store"
	"vitalwatch/internal/sweeper"
)

// Server is the high-level coordinator wiring the alerting engine to its
// collaborators and the API surface.
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	pool   *dispatch.Pool
	swp    *sweeper.Sweeper

	kafkaNotifier *notify.KafkaNotifier
	pg            *store.Postgres

	httpServer *http.Server
	wg         sync.WaitGroup
}

// New constructs a Server with given config.
func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run starts background tasks and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log := logger.WithComponent("server")
	log.Info().Msg("server starting")

	if err := s.initCollaborators(ctx); err != nil {
		return err
	}

	s.initEngine()
	s.pool.Start()

	s.swp = sweeper.New(s.engine.History(), s.cfg.Engine.SweepInterval)
	s.swp.Start(ctx)

	s.initHTTPServer()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info().Str("addr", s.cfg.HTTP.Addr).Msg("starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reportStats(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	return s.shutdown()
}

// initCollaborators opens the optional persistence and delivery backends.
// A missing backend degrades the engine, it does not stop it: alerts are
// logged when Kafka is absent, and nothing is persisted without Postgres.
func (s *Server) initCollaborators(ctx context.Context) error {
	log := logger.WithComponent("server")

	if dsn := s.cfg.Postgres.DSN; dsn != "" {
		pg, err := store.OpenPostgres(ctx, dsn)
		if err != nil {
			return fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
		s.pg = pg
		log.Info().Msg("postgres store initialized")
	} else {
		log.Warn().Msg("no postgres DSN configured, alerts will not be persisted")
	}

	if len(s.cfg.Kafka.Brokers) > 0 {
		kn, err := notify.NewKafkaNotifier(s.cfg.Kafka)
		if err != nil {
			return fmt.Errorf("failed to initialize kafka notifier: %w", err)
		}
		s.kafkaNotifier = kn
		log.Info().
			Strs("brokers", s.cfg.Kafka.Brokers).
			Str("topic", s.cfg.Kafka.Topic).
			Msg("kafka notifier initialized")
	} else {
		log.Warn().Msg("no kafka brokers configured, alerts will be logged only")
	}

	return nil
}

func (s *Server) initEngine() {
	var notifier dispatch.Notifier = notify.NewLogNotifier()
	if s.kafkaNotifier != nil {
		notifier = s.kafkaNotifier
	}

	var alertStore dispatch.AlertStore
	var identity dispatch.IdentityResolver
	if s.pg != nil {
		alertStore = s.pg
		identity = s.pg
	}

	dispatcher := dispatch.New(dispatch.Config{
		Identity: identity,
		Notifier: notifier,
		Store:    alertStore,
	})

	s.pool = dispatch.NewPool(dispatch.PoolConfig{
		Dispatcher: dispatcher,
		Workers:    s.cfg.Engine.DispatchWorkers,
		QueueSize:  s.cfg.Engine.DispatchQueueSize,
	})

	hist := history.NewStore(history.Config{
		Retention:  s.cfg.Engine.Retention,
		MaxEntries: s.cfg.Engine.MaxEntriesPerSeries,
	})

	s.engine = engine.New(hist, registry.New(), s.pool)

	log := logger.WithComponent("server")
	log.Info().
		Dur("retention", s.cfg.Engine.Retention).
		Int("dispatch_workers", s.cfg.Engine.DispatchWorkers).
		Msg("engine initialized")
}

func (s *Server) initHTTPServer() {
	mux := http.NewServeMux()

	ingestHandler := handlers.NewIngestHandler(handlers.IngestConfig{
		Engine:      s.engine,
		MaxBodySize: s.cfg.HTTP.MaxBodySize,
	})
	mux.Handle("/v1/readings", middleware.Chain(
		ingestHandler,
		middleware.Recovery,
		middleware.Logging,
	))

	thresholds := handlers.NewThresholdsHandler(s.engine)
	mux.Handle("GET /v1/subjects/{id}/thresholds", middleware.Chain(
		http.HandlerFunc(thresholds.Get),
		middleware.Recovery,
		middleware.Logging,
	))
	mux.Handle("PUT /v1/subjects/{id}/thresholds", middleware.Chain(
		http.HandlerFunc(thresholds.Put),
		middleware.Recovery,
		middleware.Logging,
	))

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}
}

// shutdown performs graceful shutdown
func (s *Server) shutdown() error {
	log := logger.WithComponent("server")
	log.Info().Msg("initiating graceful shutdown")

	// 1. Stop accepting new HTTP requests
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("stopping HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the sweeper; a running cycle finishes its current series
	s.swp.Stop()

	// 3. Drain queued dispatch work (with timeout)
	done := make(chan struct{})
	go func() {
		s.pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("dispatch pool drained")
	case <-time.After(15 * time.Second):
		log.Warn().Msg("dispatch drain timeout - forcing exit")
	}

	// 4. Close collaborators
	if s.kafkaNotifier != nil {
		if err := s.kafkaNotifier.Close(); err != nil {
			log.Error().Err(err).Msg("kafka notifier close error")
		}
	}
	if s.pg != nil {
		if err := s.pg.Close(); err != nil {
			log.Error().Err(err).Msg("postgres close error")
		}
	}

	s.wg.Wait()

	log.Info().Msg("server stopped gracefully")
	return nil
}

// reportStats periodically logs statistics
func (s *Server) reportStats(ctx context.Context) {
	log := logger.WithComponent("server")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poolStats := s.pool.Stats()
			seriesCount, entryCount := s.engine.History().Stats()

			log.Info().
				Uint64("alerts_dispatched", poolStats.Dispatched).
				Uint64("jobs_dropped", poolStats.Dropped).
				Int("queue_depth", poolStats.QueueDepth).
				Int("history_series", seriesCount).
				Int("history_entries", entryCount).
				Msg("stats")
		}
	}
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.kafkaNotifier != nil {
		if err := s.kafkaNotifier.HealthCheck(ctx); err != nil {
			http.Error(w, fmt.Sprintf("unhealthy: %v", err), http.StatusServiceUnavailable)
			return
		}
	}
	if s.pg != nil {
		if err := s.pg.HealthCheck(ctx); err != nil {
			http.Error(w, fmt.Sprintf("unhealthy: %v", err), http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// statsHandler returns current statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	poolStats := s.pool.Stats()
	seriesCount, entryCount := s.engine.History().Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"dispatch": {
			"dispatched": %d,
			"dropped": %d,
			"queue_depth": %d
		},
		"history": {
			"series": %d,
			"entries": %d
		}
	}`,
		poolStats.Dispatched,
		poolStats.Dropped,
		poolStats.QueueDepth,
		seriesCount,
		entryCount,
	)
}
