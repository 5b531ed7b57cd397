package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/models"
)

// Handler processes one claimed job. A returned error fails the job; handlers
// are expected to swallow per-item errors themselves and only fail on
// database-level problems.
type Handler func(ctx context.Context, job *Job) error

// Pool polls the queue with a fixed set of workers and routes jobs to
// registered handlers by type.
type Pool struct {
	queue        *Queue
	handlers     map[models.JobType]Handler
	concurrency  int
	pollInterval time.Duration
	logger       arbor.ILogger
	wg           sync.WaitGroup
}

func NewPool(q *Queue, concurrency int, pollInterval time.Duration, logger arbor.ILogger) *Pool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &Pool{
		queue:        q,
		handlers:     make(map[models.JobType]Handler),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Register installs the handler for one job type. Must be called before Run.
func (p *Pool) Register(jobType models.JobType, h Handler) {
	p.handlers[jobType] = h
}

// Run processes jobs of one run until the queue drains or the context is
// cancelled. Workers are started with a small stagger so they do not hammer
// the store in lockstep.
func (p *Pool) Run(ctx context.Context, runID string) error {
	p.logger.Info().
		Int("workers", p.concurrency).
		Str("run_id", runID).
		Msg("Starting worker pool")

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx, runID, i)
		time.Sleep(10 * time.Millisecond)
	}
	p.wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Info().Str("run_id", runID).Msg("Worker pool drained")
	return nil
}

func (p *Pool) worker(ctx context.Context, runID string, id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	idlePolls := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Int("worker_id", id).Msg("Worker stopping - context cancelled")
			return
		case <-ticker.C:
			job, err := p.queue.Dequeue(runID)
			if err != nil {
				p.logger.Error().Err(err).Int("worker_id", id).Msg("Dequeue failed")
				continue
			}
			if job == nil {
				// Stop once the whole run is drained, not merely when this
				// worker sees an empty poll while others still run jobs that
				// may enqueue more.
				idlePolls++
				if idlePolls >= 3 {
					if drained, err := p.queue.Drained(runID); err == nil && drained {
						return
					}
				}
				continue
			}
			idlePolls = 0
			p.process(ctx, job, id)
		}
	}
}

func (p *Pool) process(ctx context.Context, job *Job, workerID int) {
	handler, ok := p.handlers[job.Type]
	if !ok {
		p.logger.Error().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("No handler registered")
		_ = p.queue.Fail(job.ID, fmt.Errorf("no handler for job type %s", job.Type))
		return
	}

	start := time.Now()
	if err := handler(ctx, job); err != nil {
		p.logger.Error().
			Err(err).
			Int("worker_id", workerID).
			Str("job_id", job.ID).
			Str("type", string(job.Type)).
			Msg("Job failed")
		_ = p.queue.Fail(job.ID, err)
		return
	}

	p.logger.Debug().
		Int("worker_id", workerID).
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Job completed")
	_ = p.queue.Complete(job.ID)
}
