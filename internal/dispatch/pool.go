package dispatch

import (
	"context"
	"hash/fnv"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"vitalwatch/internal/logger"
	"vitalwatch/internal/metrics"
	"vitalwatch/internal/models"
)

// Job is one unit of post-ingestion work: the reading is always recorded,
// and an alert is dispatched when triggers fired.
type Job struct {
	Reading  models.Reading
	Triggers models.TriggerSet
}

// Pool runs dispatch jobs on a fixed set of shard workers. Jobs are routed
// by subject hash so all of one subject's alerts go through the same worker
// in arrival order, while different subjects proceed in parallel. Enqueue
// never blocks: a full shard queue drops the job rather than stalling
// ingestion.
type Pool struct {
	dispatcher *Dispatcher
	queues     []chan Job
	wg         sync.WaitGroup
	started    atomic.Bool

	dispatched atomic.Uint64
	dropped    atomic.Uint64
}

// PoolConfig holds pool sizing.
type PoolConfig struct {
	Dispatcher *Dispatcher
	Workers    int
	QueueSize  int
}

// NewPool creates a dispatch pool.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	queues := make([]chan Job, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan Job, cfg.QueueSize)
	}

	return &Pool{
		dispatcher: cfg.Dispatcher,
		queues:     queues,
	}
}

// Start launches the shard workers.
func (p *Pool) Start() {
	if p.started.Swap(true) {
		return
	}

	log := logger.WithComponent("dispatch_pool")
	log.Info().
		Int("workers", len(p.queues)).
		Int("queue_size", cap(p.queues[0])).
		Msg("starting dispatch pool")

	for i, q := range p.queues {
		p.wg.Add(1)
		go p.worker(i, q)
	}
}

// Stop closes the shard queues and waits for in-flight jobs to drain.
func (p *Pool) Stop() {
	if !p.started.Swap(false) {
		return
	}

	log := logger.WithComponent("dispatch_pool")
	log.Info().Msg("stopping dispatch pool")
	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
	log.Info().Msg("dispatch pool stopped")
}

// Enqueue routes a job to its subject's shard worker. Returns false when
// the shard queue is full and the job was dropped.
func (p *Pool) Enqueue(job Job) bool {
	q := p.queues[p.shard(job.Reading.SubjectID)]

	select {
	case q <- job:
		metrics.DispatchQueueDepth.Inc()
		return true
	default:
		p.dropped.Add(1)
		metrics.DispatchDroppedTotal.Inc()
		log := logger.WithSubject(job.Reading.SubjectID, string(job.Reading.Metric))
		log.Error().
			Strs("triggers", job.Triggers.Names()).
			Msg("dispatch queue full, job dropped")
		return false
	}
}

func (p *Pool) shard(subjectID string) int {
	h := fnv.New32a()
	h.Write([]byte(subjectID))
	return int(h.Sum32() % uint32(len(p.queues)))
}

func (p *Pool) worker(id int, queue <-chan Job) {
	defer p.wg.Done()

	log := logger.WithComponent("dispatch_worker").With().Int("worker_id", id).Logger()
	log.Debug().Msg("worker started")
	defer log.Debug().Msg("worker stopped")

	for job := range queue {
		metrics.DispatchQueueDepth.Dec()
		p.run(job)
	}
}

// run executes one job with panic isolation, so a failure dispatching one
// subject's alert never takes down the worker serving other subjects.
func (p *Pool) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PanicsRecovered.WithLabelValues("dispatch_worker").Inc()
			log := logger.WithComponent("dispatch_worker")
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str("subject_id", job.Reading.SubjectID).
				Msg("dispatch panic recovered")
		}
	}()

	ctx := context.Background()

	p.dispatcher.RecordReading(ctx, &job.Reading)

	if len(job.Triggers) > 0 {
		p.dispatcher.Dispatch(ctx, &job.Reading, job.Triggers)
		p.dispatched.Add(1)
	}
}

// Stats returns pool counters.
func (p *Pool) Stats() Stats {
	depth := 0
	for _, q := range p.queues {
		depth += len(q)
	}
	return Stats{
		Dispatched: p.dispatched.Load(),
		Dropped:    p.dropped.Load(),
		QueueDepth: depth,
	}
}

// Stats holds dispatch pool counters.
type Stats struct {
	Dispatched uint64
	Dropped    uint64
	QueueDepth int
}
