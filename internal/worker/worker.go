// Package worker runs the job-queue polling loop. Parallelism comes entirely
// from the database claim (row-locked, skip-locked); any number of worker
// processes can run this loop against the same queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/minho/rnd-harvester/internal/db"
	"github.com/minho/rnd-harvester/internal/models"
	"github.com/minho/rnd-harvester/internal/pipeline"
)

// JobQueue is the queue slice of the store.
type JobQueue interface {
	ClaimNextJob(ctx context.Context, workerID string, maxAttempts int, dateRange string) (*models.ScrapingJob, error)
	CompleteJob(ctx context.Context, jobID, programID uuid.UUID) error
	SkipJob(ctx context.Context, jobID uuid.UUID, reason string) error
	ReleaseJob(ctx context.Context, jobID uuid.UUID, processErr string, maxAttempts int) (models.ProcessingStatus, error)
	ExpireOverduePrograms(ctx context.Context) (int64, error)
}

// Processor normalizes one claimed job.
type Processor interface {
	ProcessJob(ctx context.Context, job *models.ScrapingJob) (*pipeline.Outcome, error)
}

// Options configures one worker's loop.
type Options struct {
	WorkerID      string
	MaxJobs       int // 0 = unlimited
	PollInterval  time.Duration
	MaxRetries    int
	IdlePollLimit int
	DateRange     string
}

// Worker claims and processes jobs until the queue stays empty, the job
// budget is spent, or the context is cancelled.
type Worker struct {
	queue JobQueue
	proc  Processor
	opts  Options
	log   *slog.Logger
}

func New(queue JobQueue, proc Processor, opts Options, log *slog.Logger) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.IdlePollLimit <= 0 {
		opts.IdlePollLimit = 5
	}
	return &Worker{queue: queue, proc: proc, opts: opts, log: log}
}

// Run executes the polling loop. It returns nil on idle self-termination,
// job-budget exhaustion, or context cancellation; claim-level database
// errors are returned after a backoff-free retry budget of one poll.
func (w *Worker) Run(ctx context.Context) error {
	processed := 0
	idlePolls := 0

	for {
		if ctx.Err() != nil {
			w.log.Info("shutdown requested, stopping before next claim", "worker", w.opts.WorkerID)
			return nil
		}

		job, err := w.queue.ClaimNextJob(ctx, w.opts.WorkerID, w.opts.MaxRetries, w.opts.DateRange)
		if err != nil {
			if errors.Is(err, db.ErrNoJob) {
				idlePolls++
				if idlePolls >= w.opts.IdlePollLimit {
					w.log.Info("queue empty, self-terminating",
						"worker", w.opts.WorkerID, "idle_polls", idlePolls, "processed", processed)
					return nil
				}
				if idlePolls == 1 {
					w.runMaintenance(ctx)
				}
				if !w.sleep(ctx) {
					return nil
				}
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("claim: %w", err)
		}

		idlePolls = 0
		w.processOne(ctx, job)
		processed++

		if w.opts.MaxJobs > 0 && processed >= w.opts.MaxJobs {
			w.log.Info("job budget spent, stopping", "worker", w.opts.WorkerID, "processed", processed)
			return nil
		}
	}
}

// processOne runs the pipeline for a claimed job and finalizes its queue
// state. A panic or error inside processing releases the job back to the
// queue (or FAILED past the attempt ceiling); it never kills the worker.
func (w *Worker) processOne(ctx context.Context, job *models.ScrapingJob) {
	w.log.Info("processing job", "worker", w.opts.WorkerID, "job_id", job.ID,
		"attempt", job.ProcessingAttempts, "title", job.AnnouncementTitle)

	outcome, err := w.runPipeline(ctx, job)
	if err != nil {
		status, relErr := w.queue.ReleaseJob(ctx, job.ID, err.Error(), w.opts.MaxRetries)
		if relErr != nil {
			w.log.Error("release job failed", "job_id", job.ID, "error", relErr)
			return
		}
		w.log.Warn("job attempt failed", "job_id", job.ID, "status", status, "error", err)
		return
	}

	if outcome.Skipped {
		if err := w.queue.SkipJob(ctx, job.ID, outcome.SkipReason); err != nil {
			w.log.Error("skip job failed", "job_id", job.ID, "error", err)
		} else {
			w.log.Info("job skipped", "job_id", job.ID, "reason", outcome.SkipReason)
		}
		return
	}

	if err := w.queue.CompleteJob(ctx, job.ID, outcome.Program.ID); err != nil {
		w.log.Error("complete job failed", "job_id", job.ID, "error", err)
		return
	}
	w.log.Info("job completed", "job_id", job.ID,
		"program_id", outcome.Program.ID, "deduplicated", outcome.Deduplicated)
}

func (w *Worker) runPipeline(ctx context.Context, job *models.ScrapingJob) (outcome *pipeline.Outcome, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = nil
			err = fmt.Errorf("pipeline panic: %v", recovered)
		}
	}()
	return w.proc.ProcessJob(ctx, job)
}

func (w *Worker) runMaintenance(ctx context.Context) {
	expired, err := w.queue.ExpireOverduePrograms(ctx)
	if err != nil {
		w.log.Warn("expire pass failed", "error", err)
		return
	}
	if expired > 0 {
		w.log.Info("expired overdue programs", "count", expired)
	}
}

// sleep waits one poll interval; false means the context was cancelled.
func (w *Worker) sleep(ctx context.Context) bool {
	timer := time.NewTimer(w.opts.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
