// Package pipeline normalizes scraped announcement jobs into funding-program
// records: document classification, two-tier field extraction, deduplication.
package pipeline

// Source identifies which text tier produced an extracted value.
type Source string

const (
	SourceAnnouncementFile Source = "ANNOUNCEMENT_FILE"
	SourceDetailPage       Source = "DETAIL_PAGE"
	SourceFailed           Source = "FAILED"
)

// Confidence grades an extraction by tier and method.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Result is the outcome of extracting one field.
//
// On success Value holds the typed value and Matched the text that produced
// it. On failure Source is SourceFailed and AttemptedSources, FailureReason
// and ContextSnippet describe the exhausted attempts; the snippet feeds
// manual discovery of new label vocabulary.
type Result[T any] struct {
	Value            T
	OK               bool
	Source           Source
	Confidence       Confidence
	Matched          string
	AttemptedSources []Source
	FailureReason    string
	ContextSnippet   string
}

func success[T any](value T, src Source, conf Confidence, matched string) Result[T] {
	return Result[T]{Value: value, OK: true, Source: src, Confidence: conf, Matched: matched}
}

func failure[T any](attempted []Source, reason, snippet string) Result[T] {
	return Result[T]{
		Source:           SourceFailed,
		AttemptedSources: attempted,
		FailureReason:    reason,
		ContextSnippet:   snippet,
	}
}

var confidenceRank = map[Confidence]int{ConfidenceLow: 0, ConfidenceMedium: 1, ConfidenceHigh: 2}

// minConfidence returns the weaker of two grades: a HIGH-tier source cannot
// upgrade a method that is only an inference.
func minConfidence(a, b Confidence) Confidence {
	if confidenceRank[b] < confidenceRank[a] {
		return b
	}
	return a
}

// snippetAround trims text to a window around pos for failure context,
// clamping to rune boundaries.
func snippetAround(text string, pos, radius int) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(runes) {
		pos = len(runes)
	}
	start := pos - radius
	if start < 0 {
		start = 0
	}
	end := pos + radius
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}
