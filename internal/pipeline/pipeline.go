package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/minho/rnd-harvester/internal/models"
)

// TextConverter turns one attachment file into plain text. Implementations
// return empty text (not an error) when a document is unreadable.
type TextConverter interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Store is the slice of the database layer the processor uses.
type Store interface {
	ProgramStore
	LogWriter
	CreateEligibilityVerification(ctx context.Context, v *models.EligibilityVerification) error
}

// Processor normalizes one claimed scraping job into a funding program.
type Processor struct {
	store      Store
	conv       TextConverter
	classifier *Classifier
	dedup      *Dedup
	log        *slog.Logger
	now        func() time.Time
}

func NewProcessor(store Store, conv TextConverter, classifier *Classifier, log *slog.Logger) *Processor {
	return &Processor{
		store:      store,
		conv:       conv,
		classifier: classifier,
		dedup:      NewDedup(store),
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Outcome describes how a job finished.
type Outcome struct {
	Skipped      bool
	SkipReason   string
	Program      *models.FundingProgram
	Deduplicated bool
}

// ProcessJob runs the full per-job pipeline: classify, read attachments,
// extract fields, dedup, persist. Field-level failures never abort the job;
// a returned error means the job should be retried by queue policy.
func (p *Processor) ProcessJob(ctx context.Context, job *models.ScrapingJob) (*Outcome, error) {
	cls := p.classifier.Classify(ClassificationInput{
		Title:       firstNonEmpty(job.DetailPage.Title, job.AnnouncementTitle),
		Description: job.DetailPage.Description,
		URL:         job.AnnouncementURL,
		Agency:      job.DetailPage.AnnouncingAgency,
	})
	p.log.Debug("classified", "job_id", job.ID, "category", cls.Category, "rule", cls.Rule)

	if cls.Category != models.CategoryRDProject {
		return &Outcome{
			Skipped:    true,
			SkipReason: fmt.Sprintf("classified %s by %s (%s)", cls.Category, cls.Rule, cls.Matched),
		}, nil
	}

	announcements, others := PartitionAttachments(job.AttachmentFilenames)
	attachments := p.readAttachments(ctx, job, announcements, others)

	logger := NewExtractionLogger(job.ID)
	program := p.buildProgram(job, cls, attachments, logger)

	final, created, err := p.dedup.LinkOrCreate(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("dedup: %w", err)
	}

	if created {
		verification := buildVerification(final, announcements, program.Eligibility)
		if err := p.store.CreateEligibilityVerification(ctx, verification); err != nil {
			return nil, fmt.Errorf("eligibility verification: %w", err)
		}
	} else {
		p.log.Info("duplicate announcement, linking existing program",
			"job_id", job.ID, "program_id", final.ID, "content_hash", final.ContentHash)
	}

	if err := logger.Flush(ctx, p.store); err != nil {
		return nil, err
	}
	logger.Log(p.log)

	return &Outcome{Program: final, Deduplicated: !created}, nil
}

// readAttachments converts each attachment to text. Conversion failures are
// logged and yield empty text; "other" files (forms, templates) are read too
// but never enter the tier-1 extraction text.
func (p *Processor) readAttachments(ctx context.Context, job *models.ScrapingJob, announcements, others []string) []models.AttachmentFile {
	out := make([]models.AttachmentFile, 0, len(announcements)+len(others))
	read := func(name string, kind models.AttachmentKind) {
		path := filepath.Join(job.AttachmentFolder, name)
		text, err := p.conv.ExtractText(ctx, path)
		if err != nil {
			p.log.Warn("attachment text extraction failed", "job_id", job.ID, "file", name, "error", err)
			text = ""
		}
		out = append(out, models.AttachmentFile{Filename: name, Text: text, Kind: kind})
	}
	for _, name := range announcements {
		read(name, models.AttachmentAnnouncement)
	}
	for _, name := range others {
		read(name, models.AttachmentOther)
	}
	return out
}

func (p *Processor) buildProgram(job *models.ScrapingJob, cls Classification, attachments []models.AttachmentFile, logger *ExtractionLogger) *models.FundingProgram {
	now := p.now()

	var tier1 strings.Builder
	for _, a := range attachments {
		if a.Kind == models.AttachmentAnnouncement && a.Text != "" {
			tier1.WriteString(a.Text)
			tier1.WriteString("\n")
		}
	}

	detailText := job.DetailPage.Description
	if job.DetailPage.RawHTML != "" {
		detailText = detailPageText(job.DetailPage.RawHTML)
	}

	ex := NewExtractor(ExtractionSources{
		AnnouncementText: tier1.String(),
		DetailPageText:   detailText,
		Detail:           job.DetailPage,
		Now:              now,
	}, logger)

	title := firstNonEmpty(job.DetailPage.Title, job.AnnouncementTitle)
	program := &models.FundingProgram{
		Title:            title,
		Description:      sanitizeDescription(job.DetailPage.Description),
		Ministry:         job.DetailPage.Ministry,
		AnnouncingAgency: job.DetailPage.AnnouncingAgency,
		Category:         cls.Category,
		Keywords:         deriveKeywords(title),
		ContentHash:      ContentHash(job.DetailPage.AnnouncingAgency, title, job.AnnouncementURL),
		AnnouncementType: announcementType(title),
		Status:           models.ProgramActive,
	}

	// A job without attachments cannot be field-extracted at all; keep the
	// announcement as a placeholder for human review instead of dropping it.
	if job.AttachmentCount == 0 && len(attachments) == 0 {
		program.ManualReviewRequired = true
	}

	if r := ex.Deadline(); r.OK {
		program.Deadline = &r.Value
	}
	if r := ex.PublishedAt(); r.OK {
		program.PublishedAt = &r.Value
	}
	if r := ex.ApplicationStart(); r.OK {
		program.ApplicationStart = &r.Value
	}
	if r := ex.Budget(); r.OK {
		program.BudgetAmount = &r.Value
	}
	if r := ex.TRL(); r.OK {
		minTRL, maxTRL := r.Value.Min, r.Value.Max
		program.MinTRL = &minTRL
		program.MaxTRL = &maxTRL
		program.TRLConfidence = r.Value.Method
		program.TRLInferred = r.Value.Method == "inferred"
	}
	if r := ex.Eligibility(); r.OK {
		program.Eligibility = r.Value
	}
	if r := ex.BusinessStructures(); r.OK {
		program.AllowedBusinessStructures = r.Value
	}
	if r := ex.MinInvestment(); r.OK && program.Eligibility.MinInvestmentKRW == nil {
		program.Eligibility.MinInvestmentKRW = &r.Value
	}
	program.TargetTypes = ex.TargetTypes()

	if program.Deadline != nil && program.Deadline.Before(now) {
		program.Status = models.ProgramExpired
	}

	return program
}

func buildVerification(program *models.FundingProgram, sourceFiles []string, crit models.EligibilityCriteria) *models.EligibilityVerification {
	confidence := string(ConfidenceMedium)
	method := "two_tier_pattern"
	notes := ""
	if program.ManualReviewRequired {
		confidence = string(ConfidenceLow)
		method = "placeholder"
		notes = "no attachments; created for manual review"
	} else if len(sourceFiles) > 0 {
		confidence = string(ConfidenceHigh)
	}

	return &models.EligibilityVerification{
		FundingProgramID:          program.ID,
		RequiredCertifications:    crit.RequiredCertifications,
		RequiresResearchInstitute: crit.RequiresResearchInstitute,
		Confidence:                confidence,
		ExtractionMethod:          method,
		SourceFiles:               sourceFiles,
		Notes:                     notes,
		Verified:                  false,
	}
}

// announcementType tags re-announcements and extensions apart from fresh calls.
func announcementType(title string) string {
	switch {
	case strings.Contains(title, "수정"):
		return "수정공고"
	case strings.Contains(title, "연장"):
		return "연장공고"
	case strings.Contains(title, "재공고"):
		return "재공고"
	default:
		return "신규공고"
	}
}

var keywordStopwords = map[string]bool{
	"및": true, "등": true, "위한": true, "관련": true, "대한": true,
	"공고": true, "안내": true, "모집": true, "년도": true, "신규지원": true,
}

// deriveKeywords produces a coarse token list from the title for the
// matcher's keyword filter. Tokens are split on whitespace and punctuation;
// year prefixes and boilerplate words are dropped.
func deriveKeywords(title string) []string {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		switch r {
		case ' ', '\t', '(', ')', '[', ']', '「', '」', ',', '·', '/', '‘', '’':
			return true
		}
		return false
	})

	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if len([]rune(f)) < 2 || keywordStopwords[f] {
			continue
		}
		if strings.HasSuffix(f, "년도") || strings.HasPrefix(f, "20") {
			continue
		}
		out = appendUnique(out, f)
		if len(out) >= 8 {
			break
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
