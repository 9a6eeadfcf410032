package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the job-queue state of a scraping job.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
	StatusSkipped    ProcessingStatus = "SKIPPED"
)

// DetailPageData is the structured payload the upstream scraper captured from
// an announcement's detail page. All fields are best-effort; raw strings are
// kept so the extractor can re-parse them as a last fallback.
type DetailPageData struct {
	Title            string   `json:"title"`
	Ministry         string   `json:"ministry"`
	AnnouncingAgency string   `json:"announcing_agency"`
	Description      string   `json:"description"`
	DeadlineRaw      string   `json:"deadline_raw"`
	PublishedAtRaw   string   `json:"published_at_raw"`
	AttachmentURLs   []string `json:"attachment_urls"`
	RawHTML          string   `json:"raw_html"`
}

// ScrapingJob is one announcement discovered by the upstream scraper,
// queued for normalization.
type ScrapingJob struct {
	ID                  uuid.UUID
	AnnouncementTitle   string
	AnnouncementURL     string
	DetailPage          DetailPageData
	AttachmentFolder    string
	AttachmentFilenames []string
	AttachmentCount     int
	ScrapingStatus      string
	ProcessingStatus    ProcessingStatus
	ProcessingAttempts  int
	ProcessingWorker    string
	ProcessingStartedAt *time.Time
	ProcessedAt         *time.Time
	ProcessingError     string
	FundingProgramID    *uuid.UUID
	DateRange           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AttachmentKind tags whether a file is the authoritative announcement
// document or supporting material (application forms, templates).
type AttachmentKind string

const (
	AttachmentAnnouncement AttachmentKind = "announcement"
	AttachmentOther        AttachmentKind = "other"
)

// AttachmentFile is one attachment with its extracted plain text.
type AttachmentFile struct {
	Filename string
	Text     string
	Kind     AttachmentKind
}

// Category is the document-type classification outcome.
type Category string

const (
	CategoryRDProject Category = "R_D_PROJECT"
	CategorySurvey    Category = "SURVEY"
	CategoryEvent     Category = "EVENT"
	CategoryNotice    Category = "NOTICE"
	CategoryUnknown   Category = "UNKNOWN"
)

// ProgramStatus tracks whether a funding program is still open.
type ProgramStatus string

const (
	ProgramActive  ProgramStatus = "ACTIVE"
	ProgramExpired ProgramStatus = "EXPIRED"
)

// EligibilityCriteria is the normalized nested eligibility structure.
// Every field is optional; nil means the announcement said nothing.
type EligibilityCriteria struct {
	RequiredCertifications    []string `json:"required_certifications,omitempty"`
	RequiresResearchInstitute bool     `json:"requires_research_institute,omitempty"`
	MinInvestmentKRW          *int64   `json:"min_investment_krw,omitempty"`
	MinOperatingYears         *int     `json:"min_operating_years,omitempty"`
	MaxOperatingYears         *int     `json:"max_operating_years,omitempty"`
	MinEmployees              *int     `json:"min_employees,omitempty"`
	MaxEmployees              *int     `json:"max_employees,omitempty"`
}

// FundingProgram is the normalized record the downstream matcher consumes.
type FundingProgram struct {
	ID                        uuid.UUID
	Title                     string
	Description               string
	Deadline                  *time.Time
	PublishedAt               *time.Time
	ApplicationStart          *time.Time
	BudgetAmount              *int64 // KRW
	TargetTypes               []string
	MinTRL                    *int
	MaxTRL                    *int
	TRLConfidence             string // "explicit" or "inferred"
	TRLInferred               bool
	Eligibility               EligibilityCriteria
	AllowedBusinessStructures []string
	Ministry                  string
	AnnouncingAgency          string
	Category                  Category
	Keywords                  []string
	ContentHash               string
	AnnouncementType          string
	Status                    ProgramStatus
	ManualReviewRequired      bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// EligibilityVerification is the append-only audit record written once per
// successfully processed program. Only manual review mutates it afterwards.
type EligibilityVerification struct {
	ID                        uuid.UUID
	FundingProgramID          uuid.UUID
	RequiredCertifications    []string
	RequiresResearchInstitute bool
	Confidence                string
	ExtractionMethod          string
	SourceFiles               []string
	Notes                     string
	Verified                  bool
	CreatedAt                 time.Time
}

// ExtractionLogEntry records one field-extraction attempt, success or failure.
type ExtractionLogEntry struct {
	ID               uuid.UUID
	ScrapingJobID    uuid.UUID
	Field            string
	Value            string
	Source           string
	Confidence       string
	AttemptedSources []string
	FailureReason    string
	ContextSnippet   string
	CreatedAt        time.Time
}
