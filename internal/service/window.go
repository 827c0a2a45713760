package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oshieru/oshieru-go/internal/domain"
)

// Anchor lookbacks in days. The narrow window is tried first and widened
// once before giving up.
const (
	anchorLookbackDays     = 90
	anchorLookbackWideDays = 365
)

// SelectAnalysisWindow builds the income-anchored window a score is computed
// from. The anchor is the most recent committed salary inflow within the
// narrow lookback, or within the wide lookback if the narrow one is empty.
// Pending transactions never anchor a window and never count toward it.
func SelectAnalysisWindow(userID string, txs []domain.TransactionDetail, now time.Time) (*domain.AnalysisWindow, error) {
	anchor := findAnchor(txs, now.AddDate(0, 0, -anchorLookbackDays), now)
	if anchor == nil {
		anchor = findAnchor(txs, now.AddDate(0, 0, -anchorLookbackWideDays), now)
	}
	if anchor == nil {
		return nil, &domain.ErrNoAnchor{UserID: userID, LookbackDays: anchorLookbackWideDays}
	}

	w := &domain.AnalysisWindow{
		Anchor:         *anchor,
		From:           anchor.EventAt,
		To:             now,
		Income:         anchor.Amount,
		FanSpend:       decimal.Zero,
		EssentialSpend: decimal.Zero,
	}

	for i := range txs {
		t := &txs[i]
		if t.IsPending || t.Sign != domain.SignOut {
			continue
		}
		if t.EventAt.Before(w.From) || t.EventAt.After(w.To) {
			continue
		}
		switch {
		// Anything on the fan account counts as fan spending, as does a fan
		// purpose charged to the life account.
		case t.AccountKind == domain.AccountKindFan || t.Purpose.IsFanPurpose():
			w.FanSpend = w.FanSpend.Add(t.Amount)
		case t.AccountKind == domain.AccountKindLife && t.Purpose.IsEssentialPurpose():
			w.EssentialSpend = w.EssentialSpend.Add(t.Amount)
		}
	}

	return w, nil
}

func findAnchor(txs []domain.TransactionDetail, cutoff, now time.Time) *domain.TransactionDetail {
	var best *domain.TransactionDetail
	for i := range txs {
		t := &txs[i]
		if t.IsPending || t.Sign != domain.SignIn || t.Purpose != domain.PurposeSalary {
			continue
		}
		if t.EventAt.Before(cutoff) || t.EventAt.After(now) {
			continue
		}
		if best == nil || t.EventAt.After(best.EventAt) {
			best = t
		}
	}
	return best
}
