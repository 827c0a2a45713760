package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/infra/observability"
	"github.com/oshieru/oshieru-go/internal/port"
)

var scoreTracer = otel.Tracer("service/score")

const latestScoreCachePrefix = "score:latest:"

// Number of recent transactions included in the dashboard payload.
const dashboardRecentLimit = 10

// ScoreService computes and persists safety-score snapshots and serves the
// aggregate dashboard. Snapshots are immutable; recomputing appends.
type ScoreService struct {
	ledgerStore port.LedgerStore
	scores      port.ScoreStore
	cache       port.Cache[*domain.Score]
	metrics     *observability.Metrics
	logger      *zap.Logger

	// now is a hook for tests; defaults to time.Now.
	now func() time.Time
}

// NewScoreService creates a new score service.
func NewScoreService(ledgerStore port.LedgerStore, scores port.ScoreStore, cache port.Cache[*domain.Score], metrics *observability.Metrics, logger *zap.Logger) *ScoreService {
	return &ScoreService{
		ledgerStore: ledgerStore,
		scores:      scores,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// ComputeScore selects the user's analysis window, runs the calculator, and
// persists the result as a new immutable snapshot. The cached latest score
// is invalidated so readers see the new snapshot immediately.
func (s *ScoreService) ComputeScore(ctx context.Context, userID string) (*domain.Score, error) {
	ctx, span := scoreTracer.Start(ctx, "ScoreService.ComputeScore")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("compute_score", time.Since(start)) }()

	txs, err := s.ledgerStore.ListUserTransactions(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	window, err := SelectAnalysisWindow(userID, txs, now)
	if err != nil {
		s.metrics.IncrScoreComputation("no_anchor")
		return nil, err
	}
	if !window.Income.IsPositive() {
		return nil, &domain.ErrValidation{Field: "income", Message: "income must be greater than zero"}
	}

	result := CalculateScore(window.Income, window.FanSpend, window.EssentialSpend)

	score := &domain.Score{
		ID:         uuid.NewString(),
		UserID:     userID,
		Score:      result.Score,
		Label:      result.Label,
		Factors:    result.Factors,
		SnapshotAt: now,
	}
	saved, err := s.scores.InsertScore(ctx, score)
	if err != nil {
		s.metrics.IncrScoreComputation("error")
		return nil, err
	}

	s.cache.Delete(latestScoreCachePrefix + userID)
	s.metrics.IncrScoreComputation(saved.Label)

	s.logger.Info("score computed",
		zap.String("user_id", userID),
		zap.Int("score", saved.Score),
		zap.String("label", saved.Label),
		zap.String("window_from", window.From.Format(time.RFC3339)),
		zap.String("window_to", window.To.Format(time.RFC3339)))
	return saved, nil
}

// LatestScore returns the most recent snapshot, from cache when warm.
func (s *ScoreService) LatestScore(ctx context.Context, userID string) (*domain.Score, error) {
	ctx, span := scoreTracer.Start(ctx, "ScoreService.LatestScore")
	defer span.End()

	key := latestScoreCachePrefix + userID
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("latest_score")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("latest_score")

	score, err := s.scores.LatestScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, score)
	return score, nil
}

// ListScores returns the user's snapshot history, newest first.
func (s *ScoreService) ListScores(ctx context.Context, userID string) ([]domain.Score, error) {
	ctx, span := scoreTracer.Start(ctx, "ScoreService.ListScores")
	defer span.End()

	return s.scores.ListScores(ctx, userID)
}

// Dashboard assembles accounts, the latest score, and recent activity in a
// single response. The three fetches run concurrently; a missing score is
// not an error, only a missing section.
func (s *ScoreService) Dashboard(ctx context.Context, userID string) (*domain.Dashboard, error) {
	ctx, span := scoreTracer.Start(ctx, "ScoreService.Dashboard")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var (
		accounts []domain.Account
		latest   *domain.Score
		recent   []domain.TransactionDetail
		pending  []domain.TransactionDetail
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.ledgerStore.ListAccounts(gctx, userID)
		return err
	})
	g.Go(func() error {
		score, err := s.LatestScore(gctx, userID)
		if err != nil {
			if _, ok := errNotFound(err); ok {
				return nil
			}
			return err
		}
		latest = score
		return nil
	})
	g.Go(func() error {
		var err error
		recent, err = s.ledgerStore.ListUserTransactions(gctx, userID, dashboardRecentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.ledgerStore.ListPendingTransactions(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for i := range accounts {
		total = total.Add(accounts[i].BalanceCached)
	}

	return &domain.Dashboard{
		Accounts:           accounts,
		TotalBalance:       total,
		LatestScore:        latest,
		RecentTransactions: recent,
		PendingCount:       len(pending),
	}, nil
}

func errNotFound(err error) (*domain.ErrNotFound, bool) {
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}
