package service_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/service"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCalculateScore_HealthyProfile(t *testing.T) {
	// 15% of income on fan spending, comfortable surplus, under budget.
	result := service.CalculateScore(d("100000"), d("15000"), d("40000"))

	if result.Score != 100 {
		t.Fatalf("expected score 100, got %d", result.Score)
	}
	if result.Label != domain.LabelExcellent {
		t.Errorf("expected label %q, got %q", domain.LabelExcellent, result.Label)
	}
	if result.Factors.IncomeRatioScore != 40 {
		t.Errorf("expected income ratio score 40, got %d", result.Factors.IncomeRatioScore)
	}
	if result.Factors.SurplusScore != 30 {
		t.Errorf("expected surplus score 30, got %d", result.Factors.SurplusScore)
	}
	if result.Factors.RecommendedAmountScore != 30 {
		t.Errorf("expected recommended amount score 30, got %d", result.Factors.RecommendedAmountScore)
	}
	if !result.Factors.IncomeRatio.Equal(d("15")) {
		t.Errorf("expected income ratio 15, got %s", result.Factors.IncomeRatio)
	}
	// Spending 25% less than the recommended 20000.
	if !result.Factors.RecommendedDeviation.Equal(d("-25")) {
		t.Errorf("expected deviation -25, got %s", result.Factors.RecommendedDeviation)
	}
}

func TestCalculateScore_IncomeRatioBands(t *testing.T) {
	cases := []struct {
		name     string
		fanSpend string
		want     int
	}{
		{"at 20 percent", "20000", 40},
		{"at 30 percent", "30000", 30},
		{"at 40 percent", "40000", 20},
		{"above 40 percent", "40001", 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := service.CalculateScore(d("100000"), d(tc.fanSpend), d("0"))
			if result.Factors.IncomeRatioScore != tc.want {
				t.Errorf("expected %d, got %d", tc.want, result.Factors.IncomeRatioScore)
			}
		})
	}
}

func TestCalculateScore_SurplusBands(t *testing.T) {
	// Essentials of 90000 leave a surplus of 10000.
	cases := []struct {
		name     string
		fanSpend string
		want     int
	}{
		{"at 1.0x surplus", "10000", 30},
		{"at 1.2x surplus", "12000", 20},
		{"at 1.5x surplus", "15000", 10},
		{"above 1.5x surplus", "15001", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := service.CalculateScore(d("100000"), d(tc.fanSpend), d("90000"))
			if result.Factors.SurplusScore != tc.want {
				t.Errorf("expected %d, got %d", tc.want, result.Factors.SurplusScore)
			}
		})
	}
}

func TestCalculateScore_NoSurplus(t *testing.T) {
	// Essentials eat the full income; the ratio is unbounded.
	result := service.CalculateScore(d("100000"), d("5000"), d("100000"))

	if result.Factors.SurplusScore != 0 {
		t.Errorf("expected surplus score 0, got %d", result.Factors.SurplusScore)
	}
	if !result.Factors.SurplusRatio.Equal(domain.SurplusSentinel) {
		t.Errorf("expected sentinel surplus ratio, got %s", result.Factors.SurplusRatio)
	}
}

func TestCalculateScore_NegativeSurplus(t *testing.T) {
	result := service.CalculateScore(d("100000"), d("0"), d("150000"))

	if result.Factors.SurplusScore != 0 {
		t.Errorf("expected surplus score 0, got %d", result.Factors.SurplusScore)
	}
	if !result.Factors.SurplusRatio.Equal(domain.SurplusSentinel) {
		t.Errorf("expected sentinel surplus ratio, got %s", result.Factors.SurplusRatio)
	}
}

func TestCalculateScore_DeviationBands(t *testing.T) {
	// Recommended budget is 20000.
	cases := []struct {
		name     string
		fanSpend string
		want     int
	}{
		{"under budget", "10000", 30},
		{"at plus 10 percent", "22000", 30},
		{"at plus 20 percent", "24000", 20},
		{"at plus 50 percent", "30000", 10},
		{"far over budget", "60000", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := service.CalculateScore(d("100000"), d(tc.fanSpend), d("0"))
			if result.Factors.RecommendedAmountScore != tc.want {
				t.Errorf("expected %d, got %d", tc.want, result.Factors.RecommendedAmountScore)
			}
		})
	}
}

func TestCalculateScore_Labels(t *testing.T) {
	cases := []struct {
		name      string
		fanSpend  string
		essential string
		wantLabel string
	}{
		{"excellent", "15000", "40000", domain.LabelExcellent},
		{"danger", "80000", "100000", domain.LabelDanger},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := service.CalculateScore(d("100000"), d(tc.fanSpend), d(tc.essential))
			if result.Label != tc.wantLabel {
				t.Errorf("expected label %q, got %q (score %d)", tc.wantLabel, result.Label, result.Score)
			}
		})
	}
}

func TestCalculateScore_Deterministic(t *testing.T) {
	a := service.CalculateScore(d("250000"), d("60000"), d("120000"))
	b := service.CalculateScore(d("250000"), d("60000"), d("120000"))

	if a.Score != b.Score || a.Label != b.Label {
		t.Fatalf("same inputs produced different results: %+v vs %+v", a, b)
	}
}

func TestScoreFactors_JSONRoundTrip(t *testing.T) {
	result := service.CalculateScore(d("100000"), d("5000"), d("100000"))

	raw, err := json.Marshal(result.Factors)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded domain.ScoreFactors
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !decoded.SurplusRatio.Equal(domain.SurplusSentinel) {
		t.Errorf("sentinel did not survive round trip: %s", decoded.SurplusRatio)
	}
	if !decoded.IncomeRatio.Equal(result.Factors.IncomeRatio) {
		t.Errorf("income ratio changed in round trip: %s vs %s",
			decoded.IncomeRatio, result.Factors.IncomeRatio)
	}
}
