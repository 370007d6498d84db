// Package workerpool runs background jobs on a fixed set of goroutines.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrStopped is returned when submitting to a stopped pool
	ErrStopped = errors.New("worker pool is stopped")
	// ErrQueueFull is returned when the job queue has no free slot
	ErrQueueFull = errors.New("worker pool queue is full")
)

// Job is a unit of background work. Fn receives the pool's context, which is canceled by Stop.
type Job struct {
	Name string
	Fn   func(context.Context) error
}

// Config holds worker pool configuration
type Config struct {
	Name       string
	MaxWorkers int
	QueueSize  int
	Logger     *zap.Logger
}

// Pool is a bounded set of workers draining a job queue
type Pool struct {
	name   string
	jobs   chan Job
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce sync.Once
	stopped  chan struct{}

	workers   int
	active    atomic.Int32
	accepted  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// New starts a pool
func New(cfg Config) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:    cfg.Name,
		jobs:    make(chan Job, cfg.QueueSize),
		logger:  cfg.Logger.With(zap.String("pool", cfg.Name)),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		workers: cfg.MaxWorkers,
	}

	for i := range cfg.MaxWorkers {
		p.wg.Add(1)
		go p.run(i)
	}

	p.logger.Info("Worker pool started",
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.Int("queue_size", cfg.QueueSize))

	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopped:
			return
		case job := <-p.jobs:
			p.execute(id, job)
		}
	}
}

func (p *Pool) execute(workerID int, job Job) {
	p.active.Add(1)
	defer p.active.Add(-1)

	start := time.Now()
	if err := p.safeExecute(job); err != nil {
		p.failed.Add(1)
		p.logger.Warn("Job failed",
			zap.Int("worker_id", workerID),
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	p.completed.Add(1)
	p.logger.Debug("Job completed",
		zap.Int("worker_id", workerID),
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)))
}

func (p *Pool) safeExecute(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Fn(p.ctx)
}

// TrySubmit enqueues job without blocking
func (p *Pool) TrySubmit(job Job) error {
	select {
	case <-p.stopped:
		p.rejected.Add(1)
		return ErrStopped
	default:
	}

	select {
	case p.jobs <- job:
		p.accepted.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

// Stop cancels running jobs and waits up to timeout for workers to exit.
// Jobs still queued are dropped.
func (p *Pool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.stopped)
		p.cancel()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Info("Worker pool stopped")
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool %q: stop timed out after %v", p.name, timeout)
			p.logger.Warn("Worker pool stop timeout")
		}
	})
	return err
}

// Stats returns current counters
func (p *Pool) Stats() Stats {
	return Stats{
		Name:      p.name,
		Workers:   p.workers,
		Active:    int(p.active.Load()),
		Queued:    len(p.jobs),
		QueueSize: cap(p.jobs),
		Accepted:  p.accepted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// Stats is a point-in-time view of a pool
type Stats struct {
	Name      string
	Workers   int
	Active    int
	Queued    int
	QueueSize int
	Accepted  uint64
	Completed uint64
	Failed    uint64
	Rejected  uint64
}

// QueueUtilization returns queue occupancy as a percentage
func (s Stats) QueueUtilization() float64 {
	if s.QueueSize == 0 {
		return 0
	}
	return float64(s.Queued) / float64(s.QueueSize) * 100.0
}
