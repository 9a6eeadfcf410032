package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/minho/rnd-harvester/internal/models"
)

// testNow sits mid-application-window for the fixture announcements: starts
// are in the past, deadlines in the future.
func testNow() time.Time {
	return time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
}

func TestExtractor_AnnouncementFileWins(t *testing.T) {
	// Both tiers carry a deadline; the announcement file is authoritative.
	e := NewExtractor(ExtractionSources{
		AnnouncementText: "접수마감: 2026년 3월 15일",
		DetailPageText:   "접수마감: 2026년 4월 30일",
		Now:              testNow(),
	}, NewExtractionLogger(uuid.New()))

	r := e.Deadline()
	if !r.OK {
		t.Fatalf("expected a deadline, got failure: %s", r.FailureReason)
	}
	if r.Source != SourceAnnouncementFile {
		t.Fatalf("source = %s, want ANNOUNCEMENT_FILE", r.Source)
	}
	if r.Confidence != ConfidenceHigh {
		t.Fatalf("confidence = %s, want HIGH", r.Confidence)
	}
	want := time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC)
	if !r.Value.Equal(want) {
		t.Fatalf("deadline = %v, want %v", r.Value, want)
	}
}

func TestExtractor_FallsBackToDetailPage(t *testing.T) {
	e := NewExtractor(ExtractionSources{
		AnnouncementText: "지원내용은 붙임 문서를 참조",
		DetailPageText:   "접수마감: 2026년 4월 30일",
		Now:              testNow(),
	}, NewExtractionLogger(uuid.New()))

	r := e.Deadline()
	if !r.OK {
		t.Fatalf("expected a deadline, got failure: %s", r.FailureReason)
	}
	if r.Source != SourceDetailPage {
		t.Fatalf("source = %s, want DETAIL_PAGE", r.Source)
	}
	if r.Confidence != ConfidenceMedium {
		t.Fatalf("confidence = %s, want MEDIUM", r.Confidence)
	}
}

func TestExtractor_StructuredFieldIsLastWithinTier(t *testing.T) {
	// The detail page free text has no parsable deadline, but the scraper
	// shipped a raw structured value.
	e := NewExtractor(ExtractionSources{
		DetailPageText: "마감 일정은 홈페이지 참조",
		Detail:         models.DetailPageData{DeadlineRaw: "2026.05.01"},
		Now:            testNow(),
	}, NewExtractionLogger(uuid.New()))

	r := e.Deadline()
	if !r.OK {
		t.Fatalf("expected a deadline, got failure: %s", r.FailureReason)
	}
	if r.Source != SourceDetailPage {
		t.Fatalf("source = %s, want DETAIL_PAGE", r.Source)
	}
	want := time.Date(2026, 5, 1, 23, 59, 59, 0, time.UTC)
	if !r.Value.Equal(want) {
		t.Fatalf("deadline = %v, want %v", r.Value, want)
	}
}

func TestExtractor_FailureRecordsAttempts(t *testing.T) {
	logger := NewExtractionLogger(uuid.New())
	e := NewExtractor(ExtractionSources{
		AnnouncementText: "세부 일정 추후 공지",
		DetailPageText:   "붙임 참조",
		Now:              testNow(),
	}, logger)

	r := e.Deadline()
	if r.OK {
		t.Fatal("expected a failure")
	}
	if r.Source != SourceFailed {
		t.Fatalf("source = %s, want FAILED", r.Source)
	}
	if len(r.AttemptedSources) != 2 {
		t.Fatalf("attempted = %v, want both sources", r.AttemptedSources)
	}
	if r.ContextSnippet == "" {
		t.Fatal("expected a context snippet for vocabulary review")
	}

	s := logger.Summarize()
	if s.BySource[string(SourceFailed)] != 1 {
		t.Fatalf("failed count = %d, want 1", s.BySource[string(SourceFailed)])
	}
	if len(s.Unmatched) != 1 {
		t.Fatalf("unmatched = %v, want one entry", s.Unmatched)
	}
}

func TestExtractor_PublishedAtRejectsFutureDates(t *testing.T) {
	// A publication date weeks in the future is a mis-parse, not a fact.
	e := NewExtractor(ExtractionSources{
		AnnouncementText: "공고일자: 2026년 9월 1일",
		Now:              testNow(),
	}, NewExtractionLogger(uuid.New()))

	if r := e.PublishedAt(); r.OK {
		t.Fatalf("future publication date must be rejected, got %v", r.Value)
	}
}

func TestExtractor_TRLConfidenceCappedByMethod(t *testing.T) {
	// Generic development wording in the HIGH-confidence tier still yields a
	// weak inference; the source tier must not upgrade the method.
	e := NewExtractor(ExtractionSources{
		AnnouncementText: "중소기업 기술개발 지원 과제",
		Now:              testNow(),
	}, NewExtractionLogger(uuid.New()))

	r := e.TRL()
	if !r.OK {
		t.Fatalf("expected a TRL range, got failure: %s", r.FailureReason)
	}
	if r.Source != SourceAnnouncementFile {
		t.Fatalf("source = %s, want ANNOUNCEMENT_FILE", r.Source)
	}
	if r.Confidence != ConfidenceLow {
		t.Fatalf("confidence = %s, want LOW", r.Confidence)
	}
}

func TestExtractor_TRLExplicitKeepsHigh(t *testing.T) {
	e := NewExtractor(ExtractionSources{
		AnnouncementText: "지원대상: TRL 4~6 기술",
		Now:              testNow(),
	}, NewExtractionLogger(uuid.New()))

	r := e.TRL()
	if !r.OK {
		t.Fatal("expected a TRL range")
	}
	if r.Confidence != ConfidenceHigh {
		t.Fatalf("confidence = %s, want HIGH", r.Confidence)
	}
	if r.Value.Min != 4 || r.Value.Max != 6 {
		t.Fatalf("range = %d-%d, want 4-6", r.Value.Min, r.Value.Max)
	}
}

func TestExtractor_TargetTypesMergeAcrossTiers(t *testing.T) {
	e := NewExtractor(ExtractionSources{
		AnnouncementText: "중소기업 대상",
		DetailPageText:   "중소기업 및 대학 참여 가능",
		Now:              testNow(),
	}, NewExtractionLogger(uuid.New()))

	got := e.TargetTypes()
	if len(got) != 2 || got[0] != "중소기업" || got[1] != "대학" {
		t.Fatalf("target types = %v, want [중소기업 대학]", got)
	}
}
