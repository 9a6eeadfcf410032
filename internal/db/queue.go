package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/minho/rnd-harvester/internal/models"
)

// ErrNoJob is returned by ClaimNextJob when no eligible PENDING row exists.
var ErrNoJob = errors.New("no pending job")

const jobCols = `id, announcement_title, announcement_url, detail_page_data,
	attachment_folder, attachment_filenames, attachment_count, scraping_status,
	processing_status, processing_attempts, processing_worker,
	processing_started_at, processed_at, processing_error, funding_program_id,
	date_range, created_at, updated_at`

func scanJob(scan func(dest ...interface{}) error) (models.ScrapingJob, error) {
	var j models.ScrapingJob
	var detailRaw []byte
	var status string

	err := scan(
		&j.ID, &j.AnnouncementTitle, &j.AnnouncementURL, &detailRaw,
		&j.AttachmentFolder, &j.AttachmentFilenames, &j.AttachmentCount, &j.ScrapingStatus,
		&status, &j.ProcessingAttempts, &j.ProcessingWorker,
		&j.ProcessingStartedAt, &j.ProcessedAt, &j.ProcessingError, &j.FundingProgramID,
		&j.DateRange, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return j, err
	}

	j.ProcessingStatus = models.ProcessingStatus(status)
	if len(detailRaw) > 0 {
		_ = json.Unmarshal(detailRaw, &j.DetailPage)
	}

	return j, nil
}

// buildClaimQuery is the single-statement claim. The inner SELECT filter
// decides eligibility: PENDING, attempts below the ceiling, and matching the
// worker's date range when one is set ($3 empty means any).
func buildClaimQuery() string {
	return fmt.Sprintf(`
		UPDATE scraping_jobs SET
			processing_status = 'PROCESSING',
			processing_worker = $1,
			processing_started_at = NOW(),
			processing_attempts = processing_attempts + 1,
			updated_at = NOW()
		WHERE id = (
			SELECT id FROM scraping_jobs
			WHERE processing_status = 'PENDING'
			  AND processing_attempts < $2
			  AND ($3 = '' OR date_range = $3)
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING %s
	`, jobCols)
}

// ClaimNextJob atomically claims the oldest eligible PENDING job for workerID.
//
// The inner SELECT takes a row lock with SKIP LOCKED, so concurrently racing
// workers never block on or double-claim the same row; the UPDATE flips the
// row to PROCESSING and bumps the attempt counter before the statement's
// implicit transaction releases the lock. dateRange, when non-empty, restricts
// the claim to jobs tagged with that range.
func (s *Store) ClaimNextJob(ctx context.Context, workerID string, maxAttempts int, dateRange string) (*models.ScrapingJob, error) {
	row := s.pool.QueryRow(ctx, buildClaimQuery(), workerID, maxAttempts, dateRange)

	j, err := scanJob(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}

	return &j, nil
}

// CompleteJob marks a job COMPLETED and links its funding program.
func (s *Store) CompleteJob(ctx context.Context, jobID, programID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE scraping_jobs SET
			processing_status = 'COMPLETED',
			funding_program_id = $2,
			processed_at = NOW(),
			processing_error = '',
			updated_at = NOW()
		WHERE id = $1
	`, jobID, programID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// SkipJob marks a non-R&D job SKIPPED with the classification reason.
func (s *Store) SkipJob(ctx context.Context, jobID uuid.UUID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE scraping_jobs SET
			processing_status = 'SKIPPED',
			processing_error = $2,
			processed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`, jobID, reason)
	if err != nil {
		return fmt.Errorf("skip job: %w", err)
	}
	return nil
}

// ReleaseJob handles a failed attempt: back to PENDING while attempts remain,
// terminal FAILED otherwise. The worker stamp is cleared either way.
func (s *Store) ReleaseJob(ctx context.Context, jobID uuid.UUID, processErr string, maxAttempts int) (models.ProcessingStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `
		UPDATE scraping_jobs SET
			processing_status = CASE WHEN processing_attempts >= $2 THEN 'FAILED' ELSE 'PENDING' END,
			processing_error = $3,
			processing_worker = '',
			processing_started_at = NULL,
			processed_at = CASE WHEN processing_attempts >= $2 THEN NOW() ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING processing_status
	`, jobID, maxAttempts, processErr).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("release job: %w", err)
	}
	return models.ProcessingStatus(status), nil
}

// RequeueJob resets one job to PENDING with a fresh attempt budget.
func (s *Store) RequeueJob(ctx context.Context, jobID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scraping_jobs SET
			processing_status = 'PENDING',
			processing_attempts = 0,
			processing_worker = '',
			processing_started_at = NULL,
			processed_at = NULL,
			processing_error = '',
			updated_at = NOW()
		WHERE id = $1 AND processing_status IN ('FAILED', 'SKIPPED', 'COMPLETED')
	`, jobID)
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueFailed resets all terminal FAILED jobs, typically after a
// pattern-table fix. Returns the number of jobs reset.
func (s *Store) RequeueFailed(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scraping_jobs SET
			processing_status = 'PENDING',
			processing_attempts = 0,
			processing_worker = '',
			processing_started_at = NULL,
			processed_at = NULL,
			updated_at = NOW()
		WHERE processing_status = 'FAILED'
	`)
	if err != nil {
		return 0, fmt.Errorf("requeue failed jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
