package pipeline

import "testing"

func TestParseKoreanAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
		ok   bool
	}{
		{"jo", "1조원", 1_000_000_000_000, true},
		{"eok", "20억원", 2_000_000_000, true},
		{"fractional eok", "1.5억 원", 150_000_000, true},
		{"cheonman", "3천만원", 30_000_000, true},
		{"baekman", "500백만원", 500_000_000, true},
		{"man", "5,000만원", 50_000_000, true},
		{"comma grouping", "1,200억원", 120_000_000_000, true},
		{"spaced unit", "총 2 억 원 규모", 200_000_000, true},
		{"no unit", "연간 1000 규모", 0, false},
		{"no amount", "예산 미정", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := parseKoreanAmount(tt.in)
			if ok != tt.ok {
				t.Fatalf("parseKoreanAmount(%q) ok=%v, want %v", tt.in, ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("parseKoreanAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractBudget(t *testing.T) {
	text := "지원규모: 과제당 최대 5억원 이내, 총 100억원"

	got, matched, ok := extractBudget(text)
	if !ok {
		t.Fatal("expected a budget")
	}
	if got != 500_000_000 {
		t.Fatalf("budget = %d, want 500000000", got)
	}
	if matched == "" {
		t.Fatal("expected a matched snippet")
	}
}

func TestExtractBudget_NoLabel(t *testing.T) {
	// An amount with no funding label nearby is not a budget.
	if _, _, ok := extractBudget("작년 매출 50억원을 달성한 기업"); ok {
		t.Fatal("unlabeled amount must not be extracted as budget")
	}
}

func TestExtractMinInvestment_EligibilityContext(t *testing.T) {
	text := "신청자격: 공고일 기준 누적 투자 유치 금액이 20억원 이상인 기업"

	got, _, ok := extractMinInvestment(text)
	if !ok {
		t.Fatal("expected a minimum investment requirement")
	}
	if got != 2_000_000_000 {
		t.Fatalf("min investment = %d, want 2000000000", got)
	}
}

func TestExtractMinInvestment_FundingContextDiscarded(t *testing.T) {
	// The same 투자-adjacent amount in payout wording describes what the
	// program gives out, not what the applicant must have raised.
	text := "본 사업의 지원규모는 기업당 투자 연계 지원금 20억원 규모입니다"

	if _, _, ok := extractMinInvestment(text); ok {
		t.Fatal("funding-context amount must not become an eligibility requirement")
	}
}

func TestExtractMinInvestment_UnscoredContextKept(t *testing.T) {
	// Neither keyword set scores: keep the mention.
	text := "최근 3년 내 투자 20억원 이상 유치"

	got, _, ok := extractMinInvestment(text)
	if !ok {
		t.Fatal("expected unscored 투자 mention to be kept")
	}
	if got != 2_000_000_000 {
		t.Fatalf("min investment = %d, want 2000000000", got)
	}
}

func TestExtractMinInvestment_IgnoresNonInvestmentAmounts(t *testing.T) {
	if _, _, ok := extractMinInvestment("사업비 10억원 규모의 과제"); ok {
		t.Fatal("amount with no 투자 wording nearby must be ignored")
	}
}
