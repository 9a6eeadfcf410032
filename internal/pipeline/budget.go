package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Korean order-of-magnitude suffixes, longest first so 천만/백만 win over 만.
var magnitudeUnits = []struct {
	Suffix     string
	Multiplier int64
}{
	{"조", 1_000_000_000_000},
	{"억", 100_000_000},
	{"천만", 10_000_000},
	{"백만", 1_000_000},
	{"만", 10_000},
}

var amountRegex = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*(조|억|천만|백만|만)\s*원`)

var budgetLabels = []string{
	"지원규모", "지원 규모", "사업비", "지원금액", "지원 금액", "정부출연금", "총 지원", "예산",
}

// Keyword sets scoring the window around an investment-sized amount.
// eligibilityContext words say "the applicant must already have this";
// fundingContext words say "this is what the program pays out".
var (
	eligibilityContextKeywords = []string{
		"투자 유치", "투자유치", "신청자격", "자격", "요건", "이상인 기업", "보유", "실적", "대상 기업",
	}
	fundingContextKeywords = []string{
		"지원금", "지원규모", "지원 규모", "사업비", "정부출연금", "출연금", "지원금액", "지원 금액",
	}
)

// parseKoreanAmount converts the first magnitude-suffixed mention in s to won.
// Returns the amount, the matched text, and whether a mention was found.
func parseKoreanAmount(s string) (int64, string, bool) {
	m := amountRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false
	}

	numStr := strings.ReplaceAll(m[1], ",", "")
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil || num <= 0 {
		return 0, "", false
	}

	for _, unit := range magnitudeUnits {
		if m[2] == unit.Suffix {
			return int64(num * float64(unit.Multiplier)), m[0], true
		}
	}
	return 0, "", false
}

// extractBudget finds the program's payout amount: a magnitude-suffixed
// mention within a window after a funding label.
func extractBudget(text string) (int64, string, bool) {
	for _, label := range budgetLabels {
		idx := strings.Index(text, label)
		if idx < 0 {
			continue
		}
		window := windowAfter(text, idx+len(label), labelWindow)
		if amount, matched, ok := parseKoreanAmount(window); ok {
			return amount, label + " " + matched, true
		}
	}
	return 0, "", false
}

// extractMinInvestment finds a minimum prior-investment requirement
// (e.g. "투자 유치 20억원 이상"). Every 투자-adjacent amount mention is scored
// against the two context keyword sets over a ±contextRadius window:
// funding-context-only mentions are program payouts and are discarded; an
// eligibility-context or unscored mention is kept. The unscored case is kept
// for backward compatibility with announcements that label neither side.
func extractMinInvestment(text string) (int64, string, bool) {
	const contextRadius = 200

	for _, loc := range amountRegex.FindAllStringIndex(text, -1) {
		mention := text[loc[0]:loc[1]]
		if !strings.Contains(windowAround(text, loc[0], 30), "투자") {
			continue
		}

		window := windowAround(text, loc[0], contextRadius)
		hasEligibility := containsAny(window, eligibilityContextKeywords)
		hasFunding := containsAny(window, fundingContextKeywords)

		if hasFunding && !hasEligibility {
			continue
		}

		if amount, matched, ok := parseKoreanAmount(mention); ok {
			return amount, matched, true
		}
	}
	return 0, "", false
}

// windowAround returns ±radius runes of context around byte position pos.
func windowAround(text string, pos, radius int) string {
	before := text[:pos]
	after := text[pos:]

	beforeRunes := []rune(before)
	if len(beforeRunes) > radius {
		beforeRunes = beforeRunes[len(beforeRunes)-radius:]
	}
	afterRunes := []rune(after)
	if len(afterRunes) > radius {
		afterRunes = afterRunes[:radius]
	}
	return string(beforeRunes) + string(afterRunes)
}
