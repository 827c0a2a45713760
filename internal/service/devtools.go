package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/domain"
)

// ============================================================
// Dev Tools
// ============================================================

// Pools the demo generator draws from. Pending entries get a raw
// statement-style description and no purpose review yet.
var (
	demoFanDescriptions = []string{
		"TICKET RESERVE *0442", "GOODS STORE ONLINE", "FANCLUB RENEWAL",
		"LIVE VENUE SHOP", "STREAM EVENT PASS",
	}
	demoLifeDescriptions = []string{
		"CONVENIENCE STORE", "SUPERMARKET 24H", "UTILITY PAYMENT",
		"RAIL PASS RELOAD", "PHARMACY",
	}
)

// DevSeedRequest provisions a demo user: two accounts, a salary, and a
// spread of committed and pending transactions to review.
type DevSeedRequest struct {
	Months       int `json:"months"`
	PendingCount int `json:"pendingCount"`
}

// DevSeedResponse reports what the seeder created.
type DevSeedResponse struct {
	Success      bool     `json:"success"`
	AccountIDs   []string `json:"accountIds"`
	Transactions int      `json:"transactions"`
	Message      string   `json:"message"`
}

// DevSeed creates demo accounts and transaction history for the user so the
// categorization and scoring flows have something to chew on. Not wired in
// production configurations.
func (s *LedgerService) DevSeed(ctx context.Context, userID string, req *DevSeedRequest) (*DevSeedResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DevSeed")
	defer span.End()

	months := req.Months
	if months <= 0 || months > 12 {
		months = 3
	}
	pendingCount := req.PendingCount
	if pendingCount < 0 || pendingCount > 50 {
		pendingCount = 5
	}

	now := time.Now().UTC()
	life := &domain.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      domain.AccountKindLife,
		Name:      "Everyday",
		CreatedAt: now,
	}
	fan := &domain.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      domain.AccountKindFan,
		Name:      "Fan fund",
		CreatedAt: now,
	}
	for _, acct := range []*domain.Account{life, fan} {
		if _, err := s.store.CreateAccount(ctx, acct); err != nil {
			return nil, err
		}
	}

	count := 0
	insert := func(tx *domain.Transaction) error {
		if _, err := s.store.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		count++
		return nil
	}

	// One salary per month, newest landing a few days ago so it anchors the
	// narrow analysis window.
	salary := decimal.NewFromInt(280000)
	for m := 0; m < months; m++ {
		eventAt := now.AddDate(0, -m, 0).AddDate(0, 0, -3)
		if err := insert(&domain.Transaction{
			ID:        uuid.NewString(),
			AccountID: life.ID,
			Amount:    salary,
			Sign:      domain.SignIn,
			Purpose:   domain.PurposeSalary,
			Memo:      "monthly salary",
			CanEdit:   true,
			EventAt:   eventAt,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	// Committed spending on both accounts.
	for m := 0; m < months; m++ {
		base := now.AddDate(0, -m, 0)
		if err := insert(&domain.Transaction{
			ID:        uuid.NewString(),
			AccountID: life.ID,
			Amount:    decimal.NewFromInt(85000),
			Sign:      domain.SignOut,
			Purpose:   domain.PurposeRent,
			Memo:      "rent",
			CanEdit:   true,
			EventAt:   base.AddDate(0, 0, -2),
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		if err := insert(&domain.Transaction{
			ID:        uuid.NewString(),
			AccountID: fan.ID,
			Amount:    decimal.NewFromInt(4000 + int64(rand.Intn(12000))),
			Sign:      domain.SignOut,
			Purpose:   demoFanPurpose(),
			Memo:      demoFanDescriptions[rand.Intn(len(demoFanDescriptions))],
			CanEdit:   true,
			EventAt:   base.AddDate(0, 0, -rand.Intn(20)),
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	// Uncategorized pending entries for the review queue.
	for i := 0; i < pendingCount; i++ {
		desc := demoLifeDescriptions[rand.Intn(len(demoLifeDescriptions))]
		if err := insert(&domain.Transaction{
			ID:                  uuid.NewString(),
			AccountID:           life.ID,
			Amount:              decimal.NewFromInt(500 + int64(rand.Intn(8000))),
			Sign:                domain.SignOut,
			Purpose:             domain.PurposeOther,
			OriginalDescription: desc,
			IsPending:           true,
			IsAutoCategorized:   true,
			CanEdit:             true,
			EventAt:             now.AddDate(0, 0, -rand.Intn(14)),
			CreatedAt:           now,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.ReconcileAccounts(ctx, []string{life.ID, fan.ID}); err != nil {
		return nil, err
	}

	s.logger.Info("DEV: demo data seeded",
		zap.String("user_id", userID),
		zap.Int("transactions", count))
	return &DevSeedResponse{
		Success:      true,
		AccountIDs:   []string{life.ID, fan.ID},
		Transactions: count,
		Message:      fmt.Sprintf("%d transaction(s) seeded across 2 accounts", count),
	}, nil
}

func demoFanPurpose() domain.Purpose {
	purposes := []domain.Purpose{domain.PurposeTicket, domain.PurposeGoods, domain.PurposeEvent}
	return purposes[rand.Intn(len(purposes))]
}
