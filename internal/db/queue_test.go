package db

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/minho/rnd-harvester/internal/models"
)

func TestBuildClaimQuery_IsAtomicAndSkipLocked(t *testing.T) {
	query := buildClaimQuery()

	mustContain := []string{
		"FOR UPDATE SKIP LOCKED",
		"LIMIT 1",
		"processing_status = 'PENDING'",
		"processing_attempts < $2",
		"processing_attempts = processing_attempts + 1",
		"ORDER BY created_at ASC",
		"($3 = '' OR date_range = $3)",
		"RETURNING",
	}

	for _, token := range mustContain {
		if !strings.Contains(query, token) {
			t.Fatalf("claim query missing token %q:\n%s", token, query)
		}
	}

	// Claim must be one statement; a separate SELECT-then-UPDATE would open a
	// double-claim window between the read and the write.
	if strings.Count(query, "UPDATE scraping_jobs") != 1 {
		t.Fatalf("claim query must be a single UPDATE:\n%s", query)
	}
}

func TestScanJob_DecodesDetailPageJSON(t *testing.T) {
	id := uuid.New()
	scan := func(dest ...interface{}) error {
		*(dest[0].(*uuid.UUID)) = id
		*(dest[1].(*string)) = "사업 공고"
		*(dest[3].(*[]byte)) = []byte(`{"title":"상세 제목","deadline_raw":"2026.03.15"}`)
		*(dest[8].(*string)) = "PENDING"
		return nil
	}

	job, err := scanJob(scan)
	if err != nil {
		t.Fatalf("scanJob: %v", err)
	}
	if job.ID != id {
		t.Fatalf("id = %s, want %s", job.ID, id)
	}
	if job.ProcessingStatus != models.StatusPending {
		t.Fatalf("status = %s, want PENDING", job.ProcessingStatus)
	}
	if job.DetailPage.Title != "상세 제목" {
		t.Fatalf("detail title = %q", job.DetailPage.Title)
	}
	if job.DetailPage.DeadlineRaw != "2026.03.15" {
		t.Fatalf("deadline raw = %q", job.DetailPage.DeadlineRaw)
	}
}

func TestScanJob_EmptyDetailPage(t *testing.T) {
	scan := func(dest ...interface{}) error {
		*(dest[8].(*string)) = "COMPLETED"
		return nil
	}

	job, err := scanJob(scan)
	if err != nil {
		t.Fatalf("scanJob: %v", err)
	}
	if job.DetailPage.Title != "" {
		t.Fatalf("expected zero-value detail page, got %+v", job.DetailPage)
	}
	if job.ProcessingStatus != models.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", job.ProcessingStatus)
	}
}
