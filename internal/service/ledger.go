// Package service provides the business logic layer (use cases).
// LedgerService owns balance derivation and reconciliation,
// CategorizationService the pending-transaction workflow, and ScoreService
// the safety-score pipeline.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/infra/observability"
	"github.com/oshieru/oshieru-go/internal/port"
)

var ledgerTracer = otel.Tracer("service/ledger")

// Memos stamped on the paired entries of an account-to-account transfer.
// Each leg names its counterpart: the outgoing entry says where the money
// went, the incoming entry says where it came from.
const (
	transferMemoToFan    = "fund move -> fan account"
	transferMemoToLife   = "fund move -> life account"
	transferMemoFromFan  = "fund move <- fan account"
	transferMemoFromLife = "fund move <- life account"
)

// LedgerService derives balances from transaction history and keeps the
// cached balance column reconciled with it. The history is the source of
// truth; the cache is a read optimization only.
type LedgerService struct {
	store   port.LedgerStore
	metrics *observability.Metrics
	logger  *zap.Logger

	// Per-account mutexes so concurrent reconciliations of the same account
	// serialize instead of racing on the cached balance.
	locks sync.Map
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(store port.LedgerStore, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, metrics: metrics, logger: logger}
}

func (s *LedgerService) accountLock(accountID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(accountID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ============================================================
// Accounts & balances
// ============================================================

func (s *LedgerService) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return s.store.ListAccounts(ctx, userID)
}

func (s *LedgerService) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetAccount")
	defer span.End()

	return s.store.GetAccount(ctx, userID, accountID)
}

// DeriveBalance folds the account's full transaction history into a balance.
// Pending transactions are part of the fold; a pending entry already moved
// money even if nobody has categorized it yet.
func (s *LedgerService) DeriveBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeriveBalance")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	txs, err := s.store.ListAccountTransactions(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for i := range txs {
		balance = balance.Add(txs[i].Signed())
	}
	return balance, nil
}

// GetBalance returns the derived balance for an account the user owns,
// reconciling the cached column as a side effect.
func (s *LedgerService) GetBalance(ctx context.Context, userID, accountID string) (decimal.Decimal, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetBalance")
	defer span.End()

	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return decimal.Zero, err
	}
	return s.Reconcile(ctx, accountID)
}

// Reconcile recomputes the account balance from scratch and rewrites the
// cached column when it drifted. Running it twice in a row is a no-op the
// second time.
func (s *LedgerService) Reconcile(ctx context.Context, accountID string) (decimal.Decimal, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	mu := s.accountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	derived, err := s.DeriveBalance(ctx, accountID)
	if err != nil {
		s.metrics.IncrReconciliation("error")
		return decimal.Zero, err
	}

	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		s.metrics.IncrReconciliation("error")
		return decimal.Zero, err
	}

	if account.BalanceCached.Equal(derived) {
		s.metrics.IncrReconciliation("clean")
		return derived, nil
	}

	s.logger.Info("balance drift detected",
		zap.String("account_id", accountID),
		zap.String("cached", account.BalanceCached.String()),
		zap.String("derived", derived.String()))
	s.metrics.IncrDriftDetected()

	if err := s.store.UpdateAccountBalance(ctx, accountID, derived); err != nil {
		s.metrics.IncrReconciliation("error")
		return decimal.Zero, err
	}
	s.metrics.IncrReconciliation("repaired")
	return derived, nil
}

// ReconcileAccounts reconciles each account in turn. A failure on one
// account does not stop the sweep; all failures are aggregated into a
// single reconciliation error.
func (s *LedgerService) ReconcileAccounts(ctx context.Context, accountIDs []string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ReconcileAccounts")
	defer span.End()
	span.SetAttributes(attribute.Int("account.count", len(accountIDs)))

	var errs error
	var failed []string
	for _, id := range accountIDs {
		if _, err := s.Reconcile(ctx, id); err != nil {
			errs = multierr.Append(errs, err)
			failed = append(failed, id)
		}
	}
	if errs != nil {
		return &domain.ErrReconciliation{Accounts: failed, Err: errs}
	}
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.TransactionDetail, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return s.store.ListUserTransactions(ctx, userID, limit)
}

func (s *LedgerService) ListAccountTransactions(ctx context.Context, userID, accountID string) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListAccountTransactions")
	defer span.End()

	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListAccountTransactions(ctx, accountID)
}

func (s *LedgerService) ListPendingTransactions(ctx context.Context, userID string) ([]domain.TransactionDetail, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListPendingTransactions")
	defer span.End()

	return s.store.ListPendingTransactions(ctx, userID)
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.TransactionDetail, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetTransaction")
	defer span.End()

	return s.store.GetTransaction(ctx, userID, transactionID)
}

// CreateTransaction records a committed ledger entry on one of the user's
// accounts and reconciles that account's cached balance.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, req *domain.CreateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := validateTransactionRequest(req); err != nil {
		return nil, err
	}

	// Ownership check doubles as existence check.
	if _, err := s.store.GetAccount(ctx, userID, req.AccountID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	eventAt := now
	if req.EventAt != nil {
		eventAt = req.EventAt.UTC()
	}

	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Sign:      req.Sign,
		Purpose:   req.Purpose,
		Memo:      req.Memo,
		IsPending: false,
		CanEdit:   true,
		EventAt:   eventAt,
		CreatedAt: now,
	}

	created, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := s.ReconcileAccounts(ctx, []string{req.AccountID}); err != nil {
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.String("transaction_id", created.ID),
		zap.String("account_id", created.AccountID),
		zap.String("sign", string(created.Sign)),
		zap.String("purpose", string(created.Purpose)))
	return created, nil
}

func validateTransactionRequest(req *domain.CreateTransactionRequest) error {
	if req.AccountID == "" {
		return &domain.ErrValidation{Field: "accountId", Message: "accountId is required"}
	}
	if !req.Amount.IsPositive() {
		return &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	if !req.Sign.Valid() {
		return &domain.ErrValidation{Field: "sign", Message: "sign must be 'in' or 'out'"}
	}
	if !req.Purpose.Valid() {
		return &domain.ErrValidation{Field: "purpose", Message: "unknown purpose"}
	}
	return nil
}

// ============================================================
// Transfers
// ============================================================

// Transfer moves money between the user's life and fan accounts by writing a
// paired out/in entry, one per account, then reconciling both. Each leg
// carries a memo naming the other side of the move.
func (s *LedgerService) Transfer(ctx context.Context, userID string, req *domain.TransferRequest) (*domain.TransferResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Transfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("transfer.from", string(req.FromKind)),
		attribute.String("transfer.to", string(req.ToKind)))

	if !req.FromKind.Valid() || !req.ToKind.Valid() {
		return nil, &domain.ErrValidation{Field: "fromKind", Message: "account kind must be 'life' or 'fan'"}
	}
	if req.FromKind == req.ToKind {
		return nil, &domain.ErrValidation{Field: "toKind", Message: "cannot transfer within the same account"}
	}
	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}

	from, err := s.store.GetAccountByKind(ctx, userID, req.FromKind)
	if err != nil {
		return nil, err
	}
	to, err := s.store.GetAccountByKind(ctx, userID, req.ToKind)
	if err != nil {
		return nil, err
	}

	outMemo, inMemo := transferMemoToLife, transferMemoFromFan
	if req.ToKind == domain.AccountKindFan {
		outMemo, inMemo = transferMemoToFan, transferMemoFromLife
	}

	now := time.Now().UTC()
	outgoing := &domain.Transaction{
		ID:        uuid.NewString(),
		AccountID: from.ID,
		Amount:    req.Amount,
		Sign:      domain.SignOut,
		Purpose:   domain.PurposeOther,
		Memo:      outMemo,
		CanEdit:   true,
		EventAt:   now,
		CreatedAt: now,
	}
	incoming := &domain.Transaction{
		ID:        uuid.NewString(),
		AccountID: to.ID,
		Amount:    req.Amount,
		Sign:      domain.SignIn,
		Purpose:   domain.PurposeOther,
		Memo:      inMemo,
		CanEdit:   true,
		EventAt:   now,
		CreatedAt: now,
	}

	createdOut, err := s.store.InsertTransaction(ctx, outgoing)
	if err != nil {
		return nil, err
	}
	createdIn, err := s.store.InsertTransaction(ctx, incoming)
	if err != nil {
		return nil, err
	}

	if err := s.ReconcileAccounts(ctx, []string{from.ID, to.ID}); err != nil {
		return nil, err
	}

	s.logger.Info("transfer completed",
		zap.String("user_id", userID),
		zap.String("from_account", from.ID),
		zap.String("to_account", to.ID),
		zap.String("amount", req.Amount.String()))
	return &domain.TransferResult{Outgoing: *createdOut, Incoming: *createdIn}, nil
}
