package pipeline

import (
	"regexp"
	"strconv"
)

// TRLResult is a detected technology-readiness-level range. Method is
// "explicit" for a numeric mention and "inferred" for keyword taxonomy hits.
type TRLResult struct {
	Min, Max   int
	Method     string
	Confidence Confidence
	Matched    string
}

// trlExplicitRegex matches TRL 4~6, TRL4-6, 기술성숙도 7 and similar.
var trlExplicitRegex = regexp.MustCompile(`(?i)(?:TRL|기술성숙도)\s*(\d)(?:\s*[~\-–∼]\s*(\d))?`)

// stageKeywords is the three-tier Korean research-stage taxonomy.
var stageKeywords = []struct {
	keywords []string
	min, max int
}{
	{[]string{"기초연구", "기초 연구", "원천기술", "원천 기술"}, 1, 3},
	{[]string{"응용연구", "응용 연구", "시제품 개발", "시작품"}, 4, 6},
	{[]string{"사업화", "상용화", "실증", "양산"}, 7, 9},
}

// genericDevKeywords are the weakest signal: a development/support program
// with no stage wording defaults to the applied-research band.
var genericDevKeywords = []string{"기술개발", "연구개발", "개발지원", "지원사업"}

// extractTRL detects a TRL range three ways in priority order: explicit
// numeric mention, research-stage taxonomy, generic development fallback.
// No match returns ok=false; absence is null, never a default range.
func extractTRL(text string) (TRLResult, bool) {
	if m := trlExplicitRegex.FindStringSubmatch(text); m != nil {
		min, _ := strconv.Atoi(m[1])
		max := min
		if m[2] != "" {
			max, _ = strconv.Atoi(m[2])
		}
		if min >= 1 && max <= 9 && min <= max {
			return TRLResult{Min: min, Max: max, Method: "explicit", Confidence: ConfidenceHigh, Matched: m[0]}, true
		}
	}

	for _, stage := range stageKeywords {
		if kw := firstMatch(text, stage.keywords); kw != "" {
			return TRLResult{Min: stage.min, Max: stage.max, Method: "inferred", Confidence: ConfidenceMedium, Matched: kw}, true
		}
	}

	if kw := firstMatch(text, genericDevKeywords); kw != "" {
		return TRLResult{Min: 4, Max: 6, Method: "inferred", Confidence: ConfidenceLow, Matched: kw}, true
	}

	return TRLResult{}, false
}
