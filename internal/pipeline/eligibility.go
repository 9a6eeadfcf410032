package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/minho/rnd-harvester/internal/models"
)

// certificationKeywords map announcement wording to canonical certification
// names the matcher filters on.
var certificationKeywords = []struct {
	keywords  []string
	canonical string
}{
	{[]string{"기업부설연구소", "기업 부설 연구소"}, "기업부설연구소"},
	{[]string{"연구개발전담부서", "연구전담부서"}, "연구개발전담부서"},
	{[]string{"벤처기업 확인", "벤처기업확인서", "벤처확인"}, "벤처기업확인"},
	{[]string{"이노비즈", "기술혁신형 중소기업"}, "이노비즈"},
	{[]string{"메인비즈", "경영혁신형 중소기업"}, "메인비즈"},
}

var businessStructureKeywords = []struct {
	keywords  []string
	canonical string
}{
	{[]string{"법인사업자", "법인 사업자", "법인기업"}, "법인사업자"},
	{[]string{"개인사업자", "개인 사업자"}, "개인사업자"},
	{[]string{"주식회사"}, "주식회사"},
	{[]string{"협동조합"}, "협동조합"},
}

var targetTypeKeywords = []struct {
	keywords  []string
	canonical string
}{
	{[]string{"중소기업"}, "중소기업"},
	{[]string{"중견기업"}, "중견기업"},
	{[]string{"스타트업", "창업기업", "창업 기업"}, "스타트업"},
	{[]string{"대학", "대학교"}, "대학"},
	{[]string{"연구기관", "연구소"}, "연구기관"},
	{[]string{"비영리기관", "비영리 법인"}, "비영리기관"},
}

var (
	operatingYearsRegex = regexp.MustCompile(`(?:창업|설립)\s*(?:후\s*)?(\d{1,2})\s*년\s*(이내|미만|이상)`)
	employeesRegex      = regexp.MustCompile(`(?:상시\s*)?(?:근로자|종업원|직원)\s*(?:수\s*)?(\d{1,4})\s*(?:명|인)\s*(이내|미만|이상|이하)`)
)

// extractEligibility builds the normalized nested criteria structure from
// announcement text. Fields the text never mentions stay nil/empty; the
// extractor flattens the interesting ones onto the program row afterwards.
func extractEligibility(text string) (models.EligibilityCriteria, []string) {
	var crit models.EligibilityCriteria
	var matched []string

	for _, cert := range certificationKeywords {
		if kw := firstMatch(text, cert.keywords); kw != "" {
			crit.RequiredCertifications = append(crit.RequiredCertifications, cert.canonical)
			matched = append(matched, kw)
		}
	}
	crit.RequiresResearchInstitute = containsAny(text, []string{"기업부설연구소", "기업 부설 연구소", "연구개발전담부서"})

	if m := operatingYearsRegex.FindStringSubmatch(text); m != nil {
		years, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "이상":
			crit.MinOperatingYears = &years
		default: // 이내, 미만
			crit.MaxOperatingYears = &years
		}
		matched = append(matched, m[0])
	}

	if m := employeesRegex.FindStringSubmatch(text); m != nil {
		count, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "이상":
			crit.MinEmployees = &count
		default: // 이내, 미만, 이하
			crit.MaxEmployees = &count
		}
		matched = append(matched, m[0])
	}

	if amount, amtMatched, ok := extractMinInvestment(text); ok {
		crit.MinInvestmentKRW = &amount
		matched = append(matched, amtMatched)
	}

	return crit, matched
}

// extractBusinessStructures returns the canonical list of allowed business
// structures mentioned in the text.
func extractBusinessStructures(text string) ([]string, string) {
	var out []string
	var first string
	for _, bs := range businessStructureKeywords {
		if kw := firstMatch(text, bs.keywords); kw != "" {
			out = appendUnique(out, bs.canonical)
			if first == "" {
				first = kw
			}
		}
	}
	return out, first
}

// extractTargetTypes returns the canonical applicant types the program names.
func extractTargetTypes(text string) []string {
	var out []string
	for _, tt := range targetTypeKeywords {
		if firstMatch(text, tt.keywords) != "" {
			out = appendUnique(out, tt.canonical)
		}
	}
	return out
}

// appendUnique appends a string to a slice if it doesn't already exist.
func appendUnique(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
