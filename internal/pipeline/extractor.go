package pipeline

import (
	"time"

	"github.com/minho/rnd-harvester/internal/models"
)

// ExtractionSources bundles the ranked text tiers for one job.
//
// Tier 1 is the concatenated text of the authoritative announcement
// attachments (HIGH confidence). Tier 2 is the detail page: free-text pattern
// matching first, then any structurally-extracted field the upstream scraper
// already supplied, as the final fallback within the tier (both MEDIUM).
type ExtractionSources struct {
	AnnouncementText string
	DetailPageText   string
	Detail           models.DetailPageData
	Now              time.Time
}

// Extractor runs per-field two-tier extraction, reporting every attempt to
// the job's ExtractionLogger.
type Extractor struct {
	src    ExtractionSources
	logger *ExtractionLogger
}

func NewExtractor(src ExtractionSources, logger *ExtractionLogger) *Extractor {
	if src.Now.IsZero() {
		src.Now = time.Now().UTC()
	}
	return &Extractor{src: src, logger: logger}
}

// textFn extracts a value from free text, returning the value, the matched
// text, and whether it matched.
type textFn[T any] func(text string) (T, string, bool)

// extract walks the tiers in rank order and returns the first valid match.
// structured may be nil when the scraper supplies no equivalent field.
func extract[T any](e *Extractor, field string, fn textFn[T], structured func() (T, string, bool)) Result[T] {
	var attempted []Source

	if e.src.AnnouncementText != "" {
		if v, matched, ok := fn(e.src.AnnouncementText); ok {
			r := success(v, SourceAnnouncementFile, ConfidenceHigh, matched)
			Record(e.logger, field, r)
			return r
		}
	}
	attempted = append(attempted, SourceAnnouncementFile)

	if e.src.DetailPageText != "" {
		if v, matched, ok := fn(e.src.DetailPageText); ok {
			r := success(v, SourceDetailPage, ConfidenceMedium, matched)
			Record(e.logger, field, r)
			return r
		}
	}
	if structured != nil {
		if v, matched, ok := structured(); ok {
			r := success(v, SourceDetailPage, ConfidenceMedium, matched)
			Record(e.logger, field, r)
			return r
		}
	}
	attempted = append(attempted, SourceDetailPage)

	r := failure[T](attempted, "no pattern matched in any source", e.failureSnippet())
	Record(e.logger, field, r)
	return r
}

func (e *Extractor) failureSnippet() string {
	text := e.src.AnnouncementText
	if text == "" {
		text = e.src.DetailPageText
	}
	return snippetAround(text, 0, 120)
}

// notFuture rejects parsed dates later than now for past-oriented fields
// (publication, application start); a small skew allowance covers timezone
// drift between the agency and the worker.
func (e *Extractor) notFuture(t time.Time) bool {
	return !t.After(e.src.Now.Add(24 * time.Hour))
}

func (e *Extractor) Deadline() Result[time.Time] {
	return extract(e, "deadline", extractDeadline, func() (time.Time, string, bool) {
		if t, ok := parseKoreanDate(e.src.Detail.DeadlineRaw); ok {
			return toEndOfDay(t), e.src.Detail.DeadlineRaw, true
		}
		return time.Time{}, "", false
	})
}

func (e *Extractor) PublishedAt() Result[time.Time] {
	return extract(e, "published_at", func(text string) (time.Time, string, bool) {
		t, matched, ok := extractPublishedAt(text)
		if !ok || !e.notFuture(t) {
			return time.Time{}, "", false
		}
		return t, matched, true
	}, func() (time.Time, string, bool) {
		if t, ok := parseKoreanDate(e.src.Detail.PublishedAtRaw); ok && e.notFuture(t) {
			return t, e.src.Detail.PublishedAtRaw, true
		}
		return time.Time{}, "", false
	})
}

func (e *Extractor) ApplicationStart() Result[time.Time] {
	return extract(e, "application_start", func(text string) (time.Time, string, bool) {
		t, matched, ok := extractApplicationStart(text)
		if !ok || !e.notFuture(t) {
			return time.Time{}, "", false
		}
		return t, matched, true
	}, nil)
}

func (e *Extractor) Budget() Result[int64] {
	return extract(e, "budget_amount", extractBudget, nil)
}

func (e *Extractor) TRL() Result[TRLResult] {
	r := extract(e, "trl_range", func(text string) (TRLResult, string, bool) {
		v, ok := extractTRL(text)
		return v, v.Matched, ok
	}, nil)
	if r.OK {
		r.Confidence = minConfidence(r.Confidence, r.Value.Confidence)
	}
	return r
}

func (e *Extractor) Eligibility() Result[models.EligibilityCriteria] {
	return extract(e, "eligibility", func(text string) (models.EligibilityCriteria, string, bool) {
		crit, matched := extractEligibility(text)
		if len(matched) == 0 {
			return models.EligibilityCriteria{}, "", false
		}
		return crit, matched[0], true
	}, nil)
}

func (e *Extractor) BusinessStructures() Result[[]string] {
	return extract(e, "allowed_business_structures", func(text string) ([]string, string, bool) {
		out, matched := extractBusinessStructures(text)
		return out, matched, len(out) > 0
	}, nil)
}

func (e *Extractor) MinInvestment() Result[int64] {
	return extract(e, "min_investment", extractMinInvestment, nil)
}

// TargetTypes is a plain keyword scan over both tiers; it feeds the matcher's
// coarse filter and is not confidence-graded.
func (e *Extractor) TargetTypes() []string {
	out := extractTargetTypes(e.src.AnnouncementText)
	for _, t := range extractTargetTypes(e.src.DetailPageText) {
		out = appendUnique(out, t)
	}
	return out
}
