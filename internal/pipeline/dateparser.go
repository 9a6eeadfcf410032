package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Label synonym tables for Korean date fields. Matching tolerates dot, dash,
// slash and 년/월/일 punctuation in the date that follows the label.
var (
	deadlineLabels = []string{
		"접수마감", "신청마감", "제출기한", "신청기한", "접수기한", "마감일", "마감",
	}
	periodLabels = []string{
		"접수기간", "신청기간", "공모기간", "모집기간", "접수 기간", "신청 기간",
	}
	publishedLabels = []string{
		"공고일자", "공고일", "게시일", "등록일", "작성일",
	}
	applicationStartLabels = []string{
		"접수시작", "접수 시작", "신청시작", "접수개시", "모집 시작",
	}
)

// koreanDateRegex matches 2025년 3월 15일, 2025. 3. 15., 2025-03-15,
// 2025/03/15 and the abbreviated '25. 3. 15 form.
var koreanDateRegex = regexp.MustCompile(
	`(?:(\d{4})|'(\d{2}))\s*[.년\-/]\s*(\d{1,2})\s*[.월\-/]\s*(\d{1,2})\s*일?`)

// rangeSeparator splits "start ~ end" period expressions.
var rangeSeparator = regexp.MustCompile(`[~∼〜]|부터`)

// labelWindow is how far past a label (in runes) a date may appear.
const labelWindow = 60

// parseKoreanDate parses the first Korean-format date inside s.
func parseKoreanDate(s string) (time.Time, bool) {
	m := koreanDateRegex.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	yearStr := m[1]
	if yearStr == "" {
		yearStr = "20" + m[2]
	}
	year, _ := strconv.Atoi(yearStr)
	month, _ := strconv.Atoi(m[3])
	day, _ := strconv.Atoi(m[4])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject impossible dates that normalized (e.g. Feb 30 → Mar 2).
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

// toEndOfDay sets the time to 23:59:59 UTC; deadlines are inclusive.
func toEndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// findLabeledDate scans text for any label synonym and parses the first date
// within labelWindow runes after it. Returns the date, the matched snippet,
// and whether anything was found.
func findLabeledDate(text string, labels []string) (time.Time, string, bool) {
	for _, label := range labels {
		idx := strings.Index(text, label)
		if idx < 0 {
			continue
		}
		window := windowAfter(text, idx+len(label), labelWindow)
		if t, ok := parseKoreanDate(window); ok {
			return t, label + strings.TrimRight(window[:clampByteLen(window, 40)], " "), true
		}
	}
	return time.Time{}, "", false
}

// findLabeledRange looks for "label ... start ~ end" and returns both dates.
// end may be zero when the range is open ("3월 2일부터 상시").
func findLabeledRange(text string, labels []string) (start, end time.Time, matched string, ok bool) {
	for _, label := range labels {
		idx := strings.Index(text, label)
		if idx < 0 {
			continue
		}
		window := windowAfter(text, idx+len(label), labelWindow*2)

		parts := rangeSeparator.Split(window, 2)
		s, sOK := parseKoreanDate(parts[0])
		if !sOK {
			continue
		}
		var e time.Time
		if len(parts) == 2 {
			e, _ = parseKoreanDate(parts[1])
		}
		return s, e, label + strings.TrimSpace(parts[0]), true
	}
	return time.Time{}, time.Time{}, "", false
}

// extractDeadline finds the submission deadline: a directly labeled deadline
// first, then the end of a labeled application period.
func extractDeadline(text string) (time.Time, string, bool) {
	if t, matched, ok := findLabeledDate(text, deadlineLabels); ok {
		return toEndOfDay(t), matched, true
	}
	if _, end, matched, ok := findLabeledRange(text, periodLabels); ok && !end.IsZero() {
		return toEndOfDay(end), matched, true
	}
	return time.Time{}, "", false
}

// extractApplicationStart finds when applications open: a labeled start date
// first, then the start of a labeled application period.
func extractApplicationStart(text string) (time.Time, string, bool) {
	if t, matched, ok := findLabeledDate(text, applicationStartLabels); ok {
		return t, matched, true
	}
	if start, _, matched, ok := findLabeledRange(text, periodLabels); ok {
		return start, matched, true
	}
	return time.Time{}, "", false
}

// extractPublishedAt finds the announcement's publication date.
func extractPublishedAt(text string) (time.Time, string, bool) {
	return findLabeledDate(text, publishedLabels)
}

func windowAfter(text string, byteStart, runeCount int) string {
	if byteStart >= len(text) {
		return ""
	}
	rest := text[byteStart:]
	runes := []rune(rest)
	if len(runes) > runeCount {
		runes = runes[:runeCount]
	}
	return string(runes)
}

func clampByteLen(s string, n int) int {
	if len(s) <= n {
		return len(s)
	}
	// back off to a rune boundary
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return n
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
