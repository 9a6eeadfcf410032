package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minho/rnd-harvester/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateHash is returned when an insert collides with an existing
	// content_hash. Callers treat it as "another worker created it first".
	ErrDuplicateHash = errors.New("duplicate content hash")
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const programCols = `id, title, description, deadline, published_at, application_start,
	budget_amount, target_types, min_trl, max_trl, trl_confidence, trl_inferred,
	eligibility, allowed_business_structures, ministry, announcing_agency,
	category, keywords, content_hash, announcement_type, status,
	manual_review_required, created_at, updated_at`

func scanProgram(scan func(dest ...interface{}) error) (models.FundingProgram, error) {
	var p models.FundingProgram
	var category, status string
	var eligibilityRaw []byte

	err := scan(
		&p.ID, &p.Title, &p.Description, &p.Deadline, &p.PublishedAt, &p.ApplicationStart,
		&p.BudgetAmount, &p.TargetTypes, &p.MinTRL, &p.MaxTRL, &p.TRLConfidence, &p.TRLInferred,
		&eligibilityRaw, &p.AllowedBusinessStructures, &p.Ministry, &p.AnnouncingAgency,
		&category, &p.Keywords, &p.ContentHash, &p.AnnouncementType, &status,
		&p.ManualReviewRequired, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}

	p.Category = models.Category(category)
	p.Status = models.ProgramStatus(status)
	if len(eligibilityRaw) > 0 {
		_ = json.Unmarshal(eligibilityRaw, &p.Eligibility)
	}

	return p, nil
}

// CreateFundingProgram inserts a new program row and fills in its generated ID.
// A content_hash collision returns ErrDuplicateHash.
func (s *Store) CreateFundingProgram(ctx context.Context, p *models.FundingProgram) error {
	eligibilityJSON, err := json.Marshal(p.Eligibility)
	if err != nil {
		return fmt.Errorf("marshal eligibility: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO funding_programs (
			title, description, deadline, published_at, application_start,
			budget_amount, target_types, min_trl, max_trl, trl_confidence, trl_inferred,
			eligibility, allowed_business_structures, ministry, announcing_agency,
			category, keywords, content_hash, announcement_type, status,
			manual_review_required
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12::jsonb, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21
		)
		RETURNING id, created_at, updated_at
	`,
		p.Title, p.Description, p.Deadline, p.PublishedAt, p.ApplicationStart,
		p.BudgetAmount, p.TargetTypes, p.MinTRL, p.MaxTRL, p.TRLConfidence, p.TRLInferred,
		string(eligibilityJSON), p.AllowedBusinessStructures, p.Ministry, p.AnnouncingAgency,
		string(p.Category), p.Keywords, p.ContentHash, p.AnnouncementType, string(p.Status),
		p.ManualReviewRequired,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateHash
		}
		return fmt.Errorf("insert funding program: %w", err)
	}

	return nil
}

// GetProgramByContentHash looks up the dedup identity.
func (s *Store) GetProgramByContentHash(ctx context.Context, hash string) (*models.FundingProgram, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM funding_programs WHERE content_hash = $1", programCols), hash)

	p, err := scanProgram(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get program by hash: %w", err)
	}

	return &p, nil
}

func (s *Store) GetProgram(ctx context.Context, id string) (*models.FundingProgram, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM funding_programs WHERE id = $1", programCols), id)

	p, err := scanProgram(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get program: %w", err)
	}

	return &p, nil
}

// ExpireOverduePrograms flips ACTIVE programs whose deadline has lapsed to
// EXPIRED, maintaining the status invariant for rows created before the
// deadline passed. Returns the number of rows updated.
func (s *Store) ExpireOverduePrograms(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE funding_programs
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'ACTIVE' AND deadline IS NOT NULL AND deadline < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("expire overdue programs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CreateEligibilityVerification(ctx context.Context, v *models.EligibilityVerification) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO eligibility_verifications (
			funding_program_id, required_certifications, requires_research_institute,
			confidence, extraction_method, source_files, notes, verified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		v.FundingProgramID, v.RequiredCertifications, v.RequiresResearchInstitute,
		v.Confidence, v.ExtractionMethod, v.SourceFiles, v.Notes, v.Verified,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert eligibility verification: %w", err)
	}
	return nil
}

// InsertExtractionLogs writes a job's accumulated audit entries in one batch.
func (s *Store) InsertExtractionLogs(ctx context.Context, entries []models.ExtractionLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO extraction_logs (
				scraping_job_id, field, value, source, confidence,
				attempted_sources, failure_reason, context_snippet
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.ScrapingJobID, e.Field, e.Value, e.Source, e.Confidence,
			e.AttemptedSources, e.FailureReason, e.ContextSnippet)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert extraction log: %w", err)
		}
	}

	return nil
}

// Stats summarizes the queue and program tables for the ops surface.
type Stats struct {
	JobCounts      map[string]int `json:"job_counts"`
	TotalPrograms  int            `json:"total_programs"`
	ActivePrograms int            `json:"active_programs"`
	ManualReview   int            `json:"manual_review"`
}

func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{JobCounts: map[string]int{}}

	rows, err := s.pool.Query(ctx,
		"SELECT processing_status, COUNT(*) FROM scraping_jobs GROUP BY processing_status")
	if err != nil {
		return nil, fmt.Errorf("job counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		stats.JobCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job counts iteration: %w", err)
	}

	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM funding_programs").Scan(&stats.TotalPrograms); err != nil {
		return nil, fmt.Errorf("program count: %w", err)
	}
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM funding_programs WHERE status = 'ACTIVE'").Scan(&stats.ActivePrograms); err != nil {
		return nil, fmt.Errorf("active program count: %w", err)
	}
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM funding_programs WHERE manual_review_required").Scan(&stats.ManualReview); err != nil {
		return nil, fmt.Errorf("manual review count: %w", err)
	}

	return stats, nil
}
