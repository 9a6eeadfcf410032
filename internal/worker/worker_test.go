package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/minho/rnd-harvester/internal/db"
	"github.com/minho/rnd-harvester/internal/models"
	"github.com/minho/rnd-harvester/internal/pipeline"
)

// fakeQueue serves a fixed list of jobs then reports empty.
type fakeQueue struct {
	jobs      []*models.ScrapingJob
	claims    int
	completed []uuid.UUID
	skipped   []uuid.UUID
	released  []string // process errors
	relStatus models.ProcessingStatus
	expires   int
}

func (q *fakeQueue) ClaimNextJob(_ context.Context, _ string, _ int, _ string) (*models.ScrapingJob, error) {
	q.claims++
	if len(q.jobs) == 0 {
		return nil, db.ErrNoJob
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *fakeQueue) CompleteJob(_ context.Context, jobID, _ uuid.UUID) error {
	q.completed = append(q.completed, jobID)
	return nil
}

func (q *fakeQueue) SkipJob(_ context.Context, jobID uuid.UUID, _ string) error {
	q.skipped = append(q.skipped, jobID)
	return nil
}

func (q *fakeQueue) ReleaseJob(_ context.Context, _ uuid.UUID, processErr string, _ int) (models.ProcessingStatus, error) {
	q.released = append(q.released, processErr)
	if q.relStatus == "" {
		return models.StatusPending, nil
	}
	return q.relStatus, nil
}

func (q *fakeQueue) ExpireOverduePrograms(context.Context) (int64, error) {
	q.expires++
	return 0, nil
}

// fakeProc maps job IDs to canned outcomes or errors.
type fakeProc struct {
	outcomes map[uuid.UUID]*pipeline.Outcome
	errs     map[uuid.UUID]error
	panics   map[uuid.UUID]bool
}

func (p *fakeProc) ProcessJob(_ context.Context, job *models.ScrapingJob) (*pipeline.Outcome, error) {
	if p.panics[job.ID] {
		panic("boom")
	}
	if err := p.errs[job.ID]; err != nil {
		return nil, err
	}
	if o := p.outcomes[job.ID]; o != nil {
		return o, nil
	}
	return &pipeline.Outcome{Program: &models.FundingProgram{ID: uuid.New()}}, nil
}

func testWorker(q *fakeQueue, p *fakeProc, opts Options) *Worker {
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	if opts.IdlePollLimit == 0 {
		opts.IdlePollLimit = 2
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(q, p, opts, log)
}

func TestRun_ProcessesUntilQueueEmpty(t *testing.T) {
	jobA := &models.ScrapingJob{ID: uuid.New()}
	jobB := &models.ScrapingJob{ID: uuid.New()}
	q := &fakeQueue{jobs: []*models.ScrapingJob{jobA, jobB}}
	w := testWorker(q, &fakeProc{}, Options{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(q.completed) != 2 {
		t.Fatalf("completed = %d, want 2", len(q.completed))
	}
}

func TestRun_IdleSelfTermination(t *testing.T) {
	q := &fakeQueue{}
	w := testWorker(q, &fakeProc{}, Options{IdlePollLimit: 3})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if q.claims != 3 {
		t.Fatalf("claims = %d, want 3 empty polls before stopping", q.claims)
	}
}

func TestRun_MaintenanceOnFirstIdlePoll(t *testing.T) {
	q := &fakeQueue{}
	w := testWorker(q, &fakeProc{}, Options{IdlePollLimit: 3})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if q.expires != 1 {
		t.Fatalf("expire passes = %d, want exactly 1", q.expires)
	}
}

func TestRun_JobBudget(t *testing.T) {
	var jobs []*models.ScrapingJob
	for i := 0; i < 5; i++ {
		jobs = append(jobs, &models.ScrapingJob{ID: uuid.New()})
	}
	q := &fakeQueue{jobs: jobs}
	w := testWorker(q, &fakeProc{}, Options{MaxJobs: 3})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(q.completed) != 3 {
		t.Fatalf("completed = %d, want 3", len(q.completed))
	}
	if len(q.jobs) != 2 {
		t.Fatalf("remaining = %d, want 2 left unclaimed", len(q.jobs))
	}
}

func TestRun_ContextCancelledBeforeClaim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := &fakeQueue{jobs: []*models.ScrapingJob{{ID: uuid.New()}}}
	w := testWorker(q, &fakeProc{}, Options{})

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if q.claims != 0 {
		t.Fatalf("claims = %d, want 0 after cancellation", q.claims)
	}
}

func TestRun_ErrorReleasesJob(t *testing.T) {
	job := &models.ScrapingJob{ID: uuid.New()}
	q := &fakeQueue{jobs: []*models.ScrapingJob{job}}
	proc := &fakeProc{errs: map[uuid.UUID]error{job.ID: errors.New("conversion timeout")}}
	w := testWorker(q, proc, Options{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(q.released) != 1 {
		t.Fatalf("released = %d, want 1", len(q.released))
	}
	if q.released[0] != "conversion timeout" {
		t.Fatalf("release error = %q", q.released[0])
	}
	if len(q.completed) != 0 {
		t.Fatal("failed job must not complete")
	}
}

func TestRun_PanicReleasesJobAndKeepsWorkerAlive(t *testing.T) {
	bad := &models.ScrapingJob{ID: uuid.New()}
	good := &models.ScrapingJob{ID: uuid.New()}
	q := &fakeQueue{jobs: []*models.ScrapingJob{bad, good}}
	proc := &fakeProc{panics: map[uuid.UUID]bool{bad.ID: true}}
	w := testWorker(q, proc, Options{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(q.released) != 1 {
		t.Fatalf("released = %d, want 1 for the panicking job", len(q.released))
	}
	if len(q.completed) != 1 {
		t.Fatalf("completed = %d, want the healthy job processed after the panic", len(q.completed))
	}
}

func TestRun_SkippedOutcome(t *testing.T) {
	job := &models.ScrapingJob{ID: uuid.New()}
	q := &fakeQueue{jobs: []*models.ScrapingJob{job}}
	proc := &fakeProc{outcomes: map[uuid.UUID]*pipeline.Outcome{
		job.ID: {Skipped: true, SkipReason: "classified SURVEY"},
	}}
	w := testWorker(q, proc, Options{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(q.skipped) != 1 || q.skipped[0] != job.ID {
		t.Fatalf("skipped = %v, want [%s]", q.skipped, job.ID)
	}
	if len(q.completed) != 0 {
		t.Fatal("skipped job must not complete")
	}
}

func TestRun_ClaimErrorPropagates(t *testing.T) {
	q := &errQueue{err: errors.New("connection refused")}
	w := testWorker(&fakeQueue{}, &fakeProc{}, Options{})
	w.queue = q

	err := w.Run(context.Background())
	if err == nil {
		t.Fatal("expected a claim error")
	}
	if !errors.Is(err, q.err) {
		t.Fatalf("error = %v, want wrapped %v", err, q.err)
	}
}

// errQueue fails every claim with a non-queue-empty error.
type errQueue struct {
	fakeQueue
	err error
}

func (q *errQueue) ClaimNextJob(context.Context, string, int, string) (*models.ScrapingJob, error) {
	return nil, q.err
}
