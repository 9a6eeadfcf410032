package pipeline

import (
	"strings"

	"github.com/minho/rnd-harvester/internal/models"
)

// ClassificationInput is everything the classifier may look at. Identical
// input always yields identical output; no external state is consulted.
type ClassificationInput struct {
	Title       string
	Description string
	URL         string
	Agency      string
}

// Classification is the cascade outcome. Rule names the step that fired;
// RuleDefault marks the policy default, distinguishable from a matched rule.
type Classification struct {
	Category models.Category
	Rule     string
	Matched  string
}

// RuleDefault is the named branch applied when no rule matched. The default
// is R_D_PROJECT on purpose: a non-R&D item shown to the user is recoverable,
// a hidden funding opportunity is not.
const RuleDefault = "policy_default"

// rdTitlePhrases are phrase groups that identify an R&D funding announcement
// from the title alone. Checked before the description-based exclusions
// because those share vocabulary (모집, 공모) with legitimate R&D titles.
var rdTitlePhrases = []string{
	// project-announcement wording
	"신규지원 대상과제",
	"지원과제 공고",
	"신규과제 공고",
	"과제 공모",
	"연구개발과제",
	"대상과제 공고",
	// R&D / funding-program wording
	"기술개발사업",
	"연구개발사업",
	"기술혁신개발사업",
	"창업성장기술개발",
	"r&d",
	"연구개발 지원",
	"지원사업 공고",
	"지원계획 공고",
}

// exclusionRule matches the description only; titles are exempt so that the
// title-priority step above always wins.
type exclusionRule struct {
	name     string
	keywords []string
	category models.Category
}

var exclusionRules = []exclusionRule{
	{
		name:     "personnel_dispatch",
		keywords: []string{"인력 파견", "전문인력 파견", "파견 근무", "파견인력 모집"},
		category: models.CategoryNotice,
	},
	{
		name:     "award_recruitment",
		keywords: []string{"포상 후보", "유공자 포상", "시상식", "수상 후보자 모집", "포상 대상자"},
		category: models.CategoryEvent,
	},
	{
		name:     "consortium_recruitment",
		keywords: []string{"컨소시엄 구성", "컨소시엄 참여기관", "참여기업 모집"},
		category: models.CategoryNotice,
	},
	{
		name:     "recommendation_recruitment",
		keywords: []string{"추천 대상자", "추천서 접수", "추천 후보"},
		category: models.CategoryNotice,
	},
}

var surveyKeywords = []string{
	"수요조사",
	"수요 조사",
	"설문조사",
	"설문 조사",
	"의견수렴",
	"의견 수렴",
	"기술수요",
	"참가자 모집",
	"참여자 모집",
}

var eventKeywords = []string{
	"설명회",
	"세미나",
	"워크숍",
	"워크샵",
	"컨퍼런스",
	"포럼",
	"박람회",
	"데모데이",
	"교육생 모집",
}

var noticeKeywords = []string{
	"시행계획",
	"공지사항",
	"규정 개정",
	"법령 안내",
	"변경 안내",
	"일정 안내",
}

// noticeTitleSuffixes: a title ending in a generic announcement/guide suffix
// defaults to NOTICE unless the combined text carries a strong R&D phrase.
var noticeTitleSuffixes = []string{"안내", "알림", "공지"}

// Classifier evaluates the ordered rule cascade. Construct once; Classify is
// safe for concurrent use.
type Classifier struct {
	agencyRules []AgencyRule
}

func NewClassifier() (*Classifier, error) {
	rules, err := loadAgencyRules()
	if err != nil {
		return nil, err
	}
	return &Classifier{agencyRules: rules}, nil
}

// Classify runs the cascade in fixed order, each step short-circuiting:
//
//  1. agency/URL overrides (embedded registry)
//  2. title-priority R&D detection
//  3. exclusion patterns on the description only
//  4. R&D detection on the combined text
//  5. survey keywords
//  6. event keywords
//  7. notice keywords + title-suffix special case
//  8. named policy default (R_D_PROJECT)
func (c *Classifier) Classify(in ClassificationInput) Classification {
	title := strings.ToLower(in.Title)
	description := strings.ToLower(in.Description)
	combined := title + "\n" + description

	for _, rule := range c.agencyRules {
		if rule.matches(in) {
			return Classification{
				Category: models.Category(rule.Category),
				Rule:     "agency:" + rule.Name,
				Matched:  rule.URLContains + rule.Agency,
			}
		}
	}

	if kw := firstMatch(title, rdTitlePhrases); kw != "" {
		return Classification{Category: models.CategoryRDProject, Rule: "title_rd_priority", Matched: kw}
	}

	for _, rule := range exclusionRules {
		if kw := firstMatch(description, rule.keywords); kw != "" {
			return Classification{Category: rule.category, Rule: "exclusion:" + rule.name, Matched: kw}
		}
	}

	if kw := firstMatch(combined, rdTitlePhrases); kw != "" {
		return Classification{Category: models.CategoryRDProject, Rule: "combined_rd", Matched: kw}
	}

	if kw := firstMatch(combined, surveyKeywords); kw != "" {
		return Classification{Category: models.CategorySurvey, Rule: "survey_keywords", Matched: kw}
	}

	if kw := firstMatch(combined, eventKeywords); kw != "" {
		return Classification{Category: models.CategoryEvent, Rule: "event_keywords", Matched: kw}
	}

	if kw := firstMatch(combined, noticeKeywords); kw != "" {
		return Classification{Category: models.CategoryNotice, Rule: "notice_keywords", Matched: kw}
	}
	if suffix := noticeSuffix(title); suffix != "" {
		// A bare "안내"-style title is a notice unless R&D wording appears
		// anywhere in the text (already ruled out above, but the suffix rule
		// fires even without any other notice keyword).
		return Classification{Category: models.CategoryNotice, Rule: "notice_title_suffix", Matched: suffix}
	}

	return Classification{Category: models.CategoryRDProject, Rule: RuleDefault}
}

func firstMatch(text string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}

func noticeSuffix(title string) string {
	trimmed := strings.TrimSpace(title)
	for _, suffix := range noticeTitleSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			return suffix
		}
	}
	return ""
}
