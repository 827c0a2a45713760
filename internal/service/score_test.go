package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/infra/cache"
	"github.com/oshieru/oshieru-go/internal/infra/memory"
	"github.com/oshieru/oshieru-go/internal/infra/observability"
	"github.com/oshieru/oshieru-go/internal/service"
)

func newScoreFixture(t *testing.T) (*memory.Store, *service.ScoreService) {
	t.Helper()
	store := memory.NewStore()
	svc := service.NewScoreService(store, store, cache.New[*domain.Score](time.Minute),
		observability.NewMetrics(), zap.NewNop())
	return store, svc
}

func seedScoringHistory(t *testing.T, store *memory.Store) {
	t.Helper()
	life := seedAccount(t, store, "user-1", domain.AccountKindLife)
	fan := seedAccount(t, store, "user-1", domain.AccountKindFan)

	now := time.Now().UTC()
	insert := func(accountID string, sign domain.Sign, purpose domain.Purpose, amount string, daysAgo int) {
		if _, err := store.InsertTransaction(context.Background(), &domain.Transaction{
			ID:        string(purpose) + "-" + amount,
			AccountID: accountID,
			Amount:    d(amount),
			Sign:      sign,
			Purpose:   purpose,
			CanEdit:   true,
			EventAt:   now.AddDate(0, 0, -daysAgo),
			CreatedAt: now,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	insert(life.ID, domain.SignIn, domain.PurposeSalary, "100000", 20)
	insert(life.ID, domain.SignOut, domain.PurposeRent, "40000", 15)
	insert(fan.ID, domain.SignOut, domain.PurposeTicket, "15000", 10)
}

func TestComputeScore_PersistsImmutableSnapshot(t *testing.T) {
	store, svc := newScoreFixture(t)
	seedScoringHistory(t, store)

	first, err := svc.ComputeScore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first.Score != 100 || first.Label != domain.LabelExcellent {
		t.Fatalf("unexpected score %d (%s)", first.Score, first.Label)
	}

	second, err := svc.ComputeScore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if second.ID == first.ID {
		t.Error("recomputation must append a new snapshot, not reuse the old one")
	}

	history, err := svc.ListScores(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 snapshots, got %d", len(history))
	}
}

func TestComputeScore_NoAnchor(t *testing.T) {
	store, svc := newScoreFixture(t)
	seedAccount(t, store, "user-1", domain.AccountKindLife)

	_, err := svc.ComputeScore(context.Background(), "user-1")
	var noAnchor *domain.ErrNoAnchor
	if !errors.As(err, &noAnchor) {
		t.Fatalf("expected ErrNoAnchor, got %v", err)
	}
}

func TestLatestScore_CacheInvalidatedOnRecompute(t *testing.T) {
	store, svc := newScoreFixture(t)
	seedScoringHistory(t, store)

	first, err := svc.ComputeScore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// Warm the cache.
	got, err := svc.LatestScore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("expected latest snapshot %s, got %s", first.ID, got.ID)
	}

	second, err := svc.ComputeScore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}

	got, err = svc.LatestScore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("latest after recompute: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("cache served a stale snapshot: got %s, want %s", got.ID, second.ID)
	}
}

func TestLatestScore_NotFound(t *testing.T) {
	_, svc := newScoreFixture(t)

	_, err := svc.LatestScore(context.Background(), "user-1")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDashboard_AggregatesEverything(t *testing.T) {
	store, svc := newScoreFixture(t)
	seedScoringHistory(t, store)
	ledger := service.NewLedgerService(store, observability.NewMetrics(), zap.NewNop())

	// Reconcile so the dashboard totals reflect the seeded history.
	accounts, _ := store.ListAccounts(context.Background(), "user-1")
	for _, a := range accounts {
		if _, err := ledger.Reconcile(context.Background(), a.ID); err != nil {
			t.Fatalf("reconcile: %v", err)
		}
	}
	if _, err := svc.ComputeScore(context.Background(), "user-1"); err != nil {
		t.Fatalf("compute: %v", err)
	}

	dash, err := svc.Dashboard(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(dash.Accounts) != 2 {
		t.Errorf("expected 2 accounts, got %d", len(dash.Accounts))
	}
	// 100000 in, 40000 and 15000 out.
	if !dash.TotalBalance.Equal(d("45000")) {
		t.Errorf("expected total balance 45000, got %s", dash.TotalBalance)
	}
	if dash.LatestScore == nil {
		t.Fatal("expected a latest score on the dashboard")
	}
	if len(dash.RecentTransactions) != 3 {
		t.Errorf("expected 3 recent transactions, got %d", len(dash.RecentTransactions))
	}
}

func TestDashboard_MissingScoreIsNotAnError(t *testing.T) {
	store, svc := newScoreFixture(t)
	seedAccount(t, store, "user-1", domain.AccountKindLife)

	dash, err := svc.Dashboard(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.LatestScore != nil {
		t.Error("expected nil latest score for a fresh user")
	}
}
