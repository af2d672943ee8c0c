package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lpr-service/internal/metrics"
	"lpr-service/internal/reporting"
)

type Notifier interface {
	Notify(ctx context.Context, job Job) error
}

type PoolConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Pool is a fixed set of workers fed by a buffered channel. Jobs run under
// the pool's own context, so a finished request never cancels them.
type Pool struct {
	cfg      PoolConfig
	notifier Notifier
	log      zerolog.Logger
	reporter reporting.Reporter
	metrics  *metrics.Metrics

	queue  chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPool(cfg PoolConfig, notifier Notifier, log zerolog.Logger, reporter reporting.Reporter, m *metrics.Metrics) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:      cfg,
		notifier: notifier,
		log:      log,
		reporter: reporter,
		metrics:  m,
		queue:    make(chan Job, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info().Int("workers", p.cfg.Workers).Int("queue_size", p.cfg.QueueSize).Msg("notification pool started")
}

func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- job:
		p.metrics.JobQueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		p.metrics.JobsProcessed.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. When
// ctx expires first, running jobs are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker(n int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.metrics.JobQueueDepth.Set(float64(len(p.queue)))
		p.run(n, job)
	}
}

func (p *Pool) run(n int, job Job) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := p.notifier.Notify(ctx, job)
	if err != nil {
		p.metrics.JobsProcessed.WithLabelValues("failed").Inc()
		p.reporter.Report(ctx, "jobs.notify", err, map[string]string{
			"plate":     job.Detection.Plate,
			"detection": job.Detection.ID.String(),
		})
		return
	}

	p.metrics.JobsProcessed.WithLabelValues("sent").Inc()
	p.log.Debug().
		Int("worker", n).
		Str("plate", job.Detection.Plate).
		Int("recipients", len(job.Recipients)).
		Dur("took", time.Since(start)).
		Msg("alert notification sent")
}
