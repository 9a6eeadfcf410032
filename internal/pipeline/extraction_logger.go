package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/minho/rnd-harvester/internal/models"
)

// LogWriter persists a batch of extraction log entries.
type LogWriter interface {
	InsertExtractionLogs(ctx context.Context, entries []models.ExtractionLogEntry) error
}

// ExtractionLogger accumulates one entry per extraction attempt for the
// duration of a job and writes them in a single batch at job end. Not safe
// for concurrent use; each job gets its own logger.
type ExtractionLogger struct {
	jobID   uuid.UUID
	entries []models.ExtractionLogEntry
}

func NewExtractionLogger(jobID uuid.UUID) *ExtractionLogger {
	return &ExtractionLogger{jobID: jobID}
}

// Record appends the outcome of one field extraction.
func Record[T any](l *ExtractionLogger, field string, r Result[T]) {
	entry := models.ExtractionLogEntry{
		ScrapingJobID: l.jobID,
		Field:         field,
		Source:        string(r.Source),
		Confidence:    string(r.Confidence),
	}
	if r.OK {
		entry.Value = fmt.Sprintf("%v", r.Value)
	} else {
		entry.AttemptedSources = sourceStrings(r.AttemptedSources)
		entry.FailureReason = r.FailureReason
		entry.ContextSnippet = r.ContextSnippet
	}
	l.entries = append(l.entries, entry)
}

// Flush performs the batched write.
func (l *ExtractionLogger) Flush(ctx context.Context, w LogWriter) error {
	if err := w.InsertExtractionLogs(ctx, l.entries); err != nil {
		return fmt.Errorf("flush extraction logs: %w", err)
	}
	return nil
}

// Summary is the human-readable digest logged at job end. The unmatched-field
// snippets are the raw material for growing the label vocabulary tables.
type Summary struct {
	BySource  map[string]int
	Unmatched []string // "field: snippet"
}

func (l *ExtractionLogger) Summarize() Summary {
	s := Summary{BySource: map[string]int{}}
	for _, e := range l.entries {
		s.BySource[e.Source]++
		if e.Source == string(SourceFailed) {
			snippet := e.ContextSnippet
			if snippet == "" {
				snippet = e.FailureReason
			}
			s.Unmatched = append(s.Unmatched, e.Field+": "+snippet)
		}
	}
	return s
}

// Log emits the summary via slog.
func (l *ExtractionLogger) Log(log *slog.Logger) {
	s := l.Summarize()
	log.Info("extraction summary",
		"job_id", l.jobID,
		"attempts", len(l.entries),
		"from_announcement", s.BySource[string(SourceAnnouncementFile)],
		"from_detail_page", s.BySource[string(SourceDetailPage)],
		"failed", s.BySource[string(SourceFailed)],
	)
	if len(s.Unmatched) > 0 {
		log.Info("unmatched fields", "job_id", l.jobID, "fields", strings.Join(s.Unmatched, "; "))
	}
}

func sourceStrings(sources []Source) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, string(s))
	}
	return out
}
