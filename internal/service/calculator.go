package service

import (
	"github.com/shopspring/decimal"

	"github.com/oshieru/oshieru-go/internal/domain"
)

// Scoring thresholds. Each factor is scored against its bands first-match,
// top to bottom.
var (
	incomeRatioBands = []scoreBand{
		{decimal.NewFromFloat(0.20), 40},
		{decimal.NewFromFloat(0.30), 30},
		{decimal.NewFromFloat(0.40), 20},
	}
	surplusRatioBands = []scoreBand{
		{decimal.NewFromFloat(1.0), 30},
		{decimal.NewFromFloat(1.2), 20},
		{decimal.NewFromFloat(1.5), 10},
	}
	deviationBands = []scoreBand{
		{decimal.NewFromInt(10), 30},
		{decimal.NewFromInt(20), 20},
		{decimal.NewFromInt(50), 10},
	}

	recommendedShare = decimal.NewFromFloat(0.20)
	hundred          = decimal.NewFromInt(100)
)

type scoreBand struct {
	upTo   decimal.Decimal
	points int
}

func bandPoints(value decimal.Decimal, bands []scoreBand, floor int) int {
	for _, b := range bands {
		if value.LessThanOrEqual(b.upTo) {
			return b.points
		}
	}
	return floor
}

// CalculateScore turns an analysis window's three aggregates into a 0-100
// safety score. It is deterministic and has no side effects; callers are
// responsible for rejecting a non-positive income before calling.
//
// Three factors contribute:
//   - how much of income goes to fan spending (max 40)
//   - fan spending against the surplus left after essentials (max 30)
//   - deviation from the recommended budget, 20% of income (max 30)
func CalculateScore(income, fanSpend, essentialSpend decimal.Decimal) domain.ScoreResult {
	incomeRatio := decimal.Zero
	if income.IsPositive() {
		incomeRatio = fanSpend.Div(income)
	}
	incomeRatioScore := bandPoints(incomeRatio, incomeRatioBands, 10)

	// Surplus of zero or less means essentials already consume the income;
	// the ratio is unbounded and the factor scores nothing.
	surplus := income.Sub(essentialSpend)
	surplusRatio := domain.SurplusSentinel
	surplusScore := 0
	if surplus.IsPositive() {
		surplusRatio = fanSpend.Div(surplus)
		surplusScore = bandPoints(surplusRatio, surplusRatioBands, 0)
	}

	recommended := income.Mul(recommendedShare)
	deviation := decimal.Zero
	if recommended.IsPositive() {
		deviation = fanSpend.Sub(recommended).Div(recommended).Mul(hundred)
	}
	deviationScore := bandPoints(deviation, deviationBands, 0)

	total := incomeRatioScore + surplusScore + deviationScore

	factors := domain.ScoreFactors{
		IncomeRatioScore:       incomeRatioScore,
		SurplusScore:           surplusScore,
		RecommendedAmountScore: deviationScore,
		IncomeRatio:            incomeRatio.Mul(hundred).Round(2),
		SurplusRatio:           surplusRatio,
		RecommendedDeviation:   deviation.Round(2),
	}
	if !surplusRatio.Equal(domain.SurplusSentinel) {
		factors.SurplusRatio = surplusRatio.Round(2)
	}

	return domain.ScoreResult{
		Score:   total,
		Label:   scoreLabel(total),
		Factors: factors,
	}
}

func scoreLabel(total int) string {
	switch {
	case total >= 80:
		return domain.LabelExcellent
	case total >= 60:
		return domain.LabelGood
	case total >= 40:
		return domain.LabelCaution
	default:
		return domain.LabelDanger
	}
}
