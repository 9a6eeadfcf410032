package pipeline

import (
	"testing"

	"github.com/minho/rnd-harvester/internal/models"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier()
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return c
}

func TestClassify_TitleRDBeatsDescriptionExclusion(t *testing.T) {
	c := newTestClassifier(t)

	// The description mentions consortium recruitment, which on its own
	// would classify as NOTICE. The title carries an R&D announcement
	// phrase and must win.
	cls := c.Classify(ClassificationInput{
		Title:       "2026년도 소재부품기술개발사업 신규지원 대상과제 공고",
		Description: "본 사업은 컨소시엄 구성 후 신청 가능합니다.",
	})

	if cls.Category != models.CategoryRDProject {
		t.Fatalf("expected R_D_PROJECT, got %s (rule %s)", cls.Category, cls.Rule)
	}
	if cls.Rule != "title_rd_priority" {
		t.Fatalf("expected title_rd_priority, got %s", cls.Rule)
	}
}

func TestClassify_ExclusionOnDescriptionOnly(t *testing.T) {
	c := newTestClassifier(t)

	cls := c.Classify(ClassificationInput{
		Title:       "2026년 산업기술 분야 유공자 선정 관련",
		Description: "산업기술 진흥 유공자 포상 후보자를 모집합니다.",
	})

	if cls.Category != models.CategoryEvent {
		t.Fatalf("expected EVENT, got %s (rule %s)", cls.Category, cls.Rule)
	}
	if cls.Rule != "exclusion:award_recruitment" {
		t.Fatalf("expected exclusion:award_recruitment, got %s", cls.Rule)
	}
}

func TestClassify_AgencyURLOverride(t *testing.T) {
	c := newTestClassifier(t)

	// The URL override fires before every keyword rule, including a title
	// that would otherwise classify as R&D.
	cls := c.Classify(ClassificationInput{
		Title: "기술개발 수요조사 실시 공고",
		URL:   "https://www.smtech.go.kr/front/ifg/no/notice02_detail.do?buclYy=2026",
	})

	if cls.Category != models.CategorySurvey {
		t.Fatalf("expected SURVEY, got %s (rule %s)", cls.Category, cls.Rule)
	}
	if cls.Rule != "agency:smtech_demand_survey_listing" {
		t.Fatalf("expected agency rule, got %s", cls.Rule)
	}
}

func TestClassify_Cascade(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		in       ClassificationInput
		category models.Category
		rule     string
	}{
		{
			name: "survey keywords",
			in: ClassificationInput{
				Title:       "2026년 기술수요조사 실시",
				Description: "차년도 과제 발굴을 위한 수요조사를 실시합니다.",
			},
			category: models.CategorySurvey,
			rule:     "survey_keywords",
		},
		{
			name: "event keywords",
			in: ClassificationInput{
				Title:       "신규사업 온라인 설명회 개최",
				Description: "사업 내용을 소개하는 설명회를 개최합니다.",
			},
			category: models.CategoryEvent,
			rule:     "event_keywords",
		},
		{
			name: "notice keywords",
			in: ClassificationInput{
				Title:       "2026년도 시행계획 공고",
				Description: "연간 시행계획을 공고합니다.",
			},
			category: models.CategoryNotice,
			rule:     "notice_keywords",
		},
		{
			name: "notice title suffix",
			in: ClassificationInput{
				Title:       "전산시스템 정기점검 안내",
				Description: "전산 시스템 점검이 예정되어 있습니다.",
			},
			category: models.CategoryNotice,
			rule:     "notice_title_suffix",
		},
		{
			name: "combined text R&D",
			in: ClassificationInput{
				Title:       "2026년 신규 공고",
				Description: "중소기업 기술혁신개발사업 참여 기업을 찾습니다.",
			},
			category: models.CategoryRDProject,
			rule:     "combined_rd",
		},
		{
			name: "policy default",
			in: ClassificationInput{
				Title:       "2026년 제3차 공고",
				Description: "상세 내용은 첨부파일을 참조하시기 바랍니다.",
			},
			category: models.CategoryRDProject,
			rule:     RuleDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := c.Classify(tt.in)
			if cls.Category != tt.category {
				t.Fatalf("expected %s, got %s (rule %s)", tt.category, cls.Category, cls.Rule)
			}
			if cls.Rule != tt.rule {
				t.Fatalf("expected rule %s, got %s", tt.rule, cls.Rule)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier(t)
	in := ClassificationInput{
		Title:       "창업성장기술개발사업 공고",
		Description: "설명회 및 수요조사 병행",
	}

	first := c.Classify(in)
	for i := 0; i < 5; i++ {
		if got := c.Classify(in); got != first {
			t.Fatalf("classification changed between runs: %+v vs %+v", first, got)
		}
	}
}
