// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package task runs best-effort background jobs on a bounded queue.

Auth flows hand off non-critical side work here: security log writes,
notification fan-out, cache warm-ups. The queue is bounded so a slow
downstream cannot grow memory without limit; when full, Submit drops the
job and reports false rather than blocking the request path.
*/
package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultQueueCapacity bounds the number of pending background jobs.
const DefaultQueueCapacity = 64

// jobTimeout bounds each job's execution so one stuck job cannot stall
// the worker forever.
const jobTimeout = 30 * time.Second

// Job is a unit of background work. The context is cancelled on runner
// shutdown or when the per-job timeout elapses.
type Job func(ctx context.Context)

// Runner executes submitted jobs sequentially on a single worker goroutine.
type Runner struct {
	logger *slog.Logger
	queue  chan namedJob

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

type namedJob struct {
	name string
	run  Job
}

// NewRunner creates and starts a background runner.
//
// # Parameters
//   - capacity: Queue size; values <= 0 fall back to [DefaultQueueCapacity].
//   - logger: Structured logger for drop and panic events.
func NewRunner(capacity int, logger *slog.Logger) *Runner {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	runner := &Runner{
		logger:  logger,
		queue:   make(chan namedJob, capacity),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}

	go runner.loop()

	return runner
}

// Submit enqueues a job for background execution.
//
// Returns false when the queue is full or the runner is shut down; callers
// treat a false return as a dropped best-effort job, not an error.
func (runner *Runner) Submit(name string, job Job) bool {
	select {
	case <-runner.stopped:
		return false
	default:
	}

	select {
	case runner.queue <- namedJob{name: name, run: job}:
		return true
	default:
		runner.logger.Warn("background_job_dropped", slog.String("job", name))
		return false
	}
}

// Shutdown stops accepting jobs, drains the queue, and waits for the worker
// to finish or the context to expire.
func (runner *Runner) Shutdown(ctx context.Context) error {
	runner.stopOnce.Do(func() {
		close(runner.stopped)
		close(runner.queue)
	})

	select {
	case <-runner.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop is the single worker goroutine.
func (runner *Runner) loop() {
	defer close(runner.done)

	for job := range runner.queue {
		runner.execute(job)
	}
}

// execute runs one job with panic isolation and a hard timeout.
func (runner *Runner) execute(job namedJob) {
	defer func() {
		if recovered := recover(); recovered != nil {
			runner.logger.Error("background_job_panicked",
				slog.String("job", job.name),
				slog.Any("error", recovered),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job.run(ctx)
}
