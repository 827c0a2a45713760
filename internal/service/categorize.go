package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/infra/observability"
	"github.com/oshieru/oshieru-go/internal/port"
)

var categorizeTracer = otel.Tracer("service/categorize")

// CategorizationService runs the pending-transaction review workflow. Every
// path through it ends with a reconcile of the accounts it touched, so the
// cached balances stay in step with the history it just rewrote.
type CategorizationService struct {
	store   port.LedgerStore
	ledger  *LedgerService
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCategorizationService creates a new categorization service.
func NewCategorizationService(store port.LedgerStore, ledger *LedgerService, metrics *observability.Metrics, logger *zap.Logger) *CategorizationService {
	return &CategorizationService{store: store, ledger: ledger, metrics: metrics, logger: logger}
}

// CategorizeOne applies a reviewed purpose (and optionally a new home
// account) to a single transaction and commits it. Moving the transaction to
// another account reconciles both the old and the new account.
func (s *CategorizationService) CategorizeOne(ctx context.Context, userID, transactionID string, req *domain.CategorizeRequest) (*domain.Transaction, error) {
	ctx, span := categorizeTracer.Start(ctx, "CategorizationService.CategorizeOne")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	if !req.Purpose.Valid() {
		return nil, &domain.ErrValidation{Field: "purpose", Message: "unknown purpose"}
	}
	if req.AccountKind != "" && !req.AccountKind.Valid() {
		return nil, &domain.ErrValidation{Field: "accountType", Message: "account kind must be 'life' or 'fan'"}
	}

	current, err := s.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if !current.CanEdit {
		return nil, &domain.ErrValidation{Field: "id", Message: "transaction can no longer be edited"}
	}

	updates := map[string]any{
		"purpose":             string(req.Purpose),
		"is_pending":          false,
		"is_auto_categorized": false,
	}
	if req.Memo != nil {
		updates["memo"] = *req.Memo
	}

	touched := []string{current.AccountID}
	if req.AccountKind != "" && req.AccountKind != current.AccountKind {
		target, err := s.store.GetAccountByKind(ctx, userID, req.AccountKind)
		if err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				// No account of the requested kind; keep the transaction
				// where it is and apply the purpose only.
				s.logger.Warn("categorize target account missing, keeping current account",
					zap.String("transaction_id", transactionID),
					zap.String("kind", string(req.AccountKind)))
			} else {
				return nil, err
			}
		} else {
			updates["account_id"] = target.ID
			touched = append(touched, target.ID)
		}
	}

	updated, err := s.store.UpdateTransaction(ctx, transactionID, updates)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.ReconcileAccounts(ctx, touched); err != nil {
		return nil, err
	}

	s.metrics.IncrCategorization("single")
	s.logger.Info("transaction categorized",
		zap.String("transaction_id", transactionID),
		zap.String("purpose", string(req.Purpose)),
		zap.Int("accounts_reconciled", len(touched)))
	return updated, nil
}

// CategorizeBatch commits a set of reviewed transactions in one call. Items
// referring to transactions the user does not own, items whose target account
// cannot be resolved for the user, and items no longer editable are skipped
// rather than failing the batch. Each touched account is reconciled exactly
// once, after every update has been applied.
func (s *CategorizationService) CategorizeBatch(ctx context.Context, userID string, updates []domain.BatchUpdate) (*domain.BatchUpdateResponse, error) {
	ctx, span := categorizeTracer.Start(ctx, "CategorizationService.CategorizeBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(updates)))

	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "updates", Message: "updates must not be empty"}
	}
	for i := range updates {
		if !updates[i].Purpose.Valid() {
			return nil, &domain.ErrValidation{Field: "updates", Message: fmt.Sprintf("unknown purpose at index %d", i)}
		}
	}

	touched := map[string]struct{}{}
	updated, skipped := 0, 0
	var loopErr error
	for i := range updates {
		u := &updates[i]

		current, err := s.store.GetTransaction(ctx, userID, u.ID)
		if err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				skipped++
				s.logger.Warn("batch item skipped, transaction not found",
					zap.String("transaction_id", u.ID))
				continue
			}
			loopErr = err
			break
		}
		if !current.CanEdit {
			skipped++
			s.logger.Warn("batch item skipped, transaction can no longer be edited",
				zap.String("transaction_id", u.ID))
			continue
		}

		fields := map[string]any{
			"purpose":             string(u.Purpose),
			"is_pending":          u.IsPending,
			"is_auto_categorized": false,
		}
		if u.AccountID != "" && u.AccountID != current.AccountID {
			if _, err := s.store.GetAccount(ctx, userID, u.AccountID); err != nil {
				var nf *domain.ErrNotFound
				if errors.As(err, &nf) {
					skipped++
					s.logger.Warn("batch item skipped, target account not resolvable",
						zap.String("transaction_id", u.ID),
						zap.String("account_id", u.AccountID))
					continue
				}
				loopErr = err
				break
			}
			fields["account_id"] = u.AccountID
			touched[u.AccountID] = struct{}{}
		}
		// The pre-move account needs reconciling too when the item changes
		// the transaction's home.
		touched[current.AccountID] = struct{}{}

		if _, err := s.store.UpdateTransaction(ctx, u.ID, fields); err != nil {
			loopErr = err
			break
		}
		updated++
	}

	// Accounts already rewritten get reconciled even when a later item
	// failed hard, so no committed update leaves a stale cached balance.
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	if err := s.ledger.ReconcileAccounts(ctx, ids); err != nil {
		return nil, multierr.Append(loopErr, err)
	}
	if loopErr != nil {
		return nil, loopErr
	}

	s.metrics.IncrCategorization("batch")
	s.logger.Info("batch categorization applied",
		zap.Int("updated", updated),
		zap.Int("skipped", skipped),
		zap.Int("accounts_reconciled", len(ids)))
	return &domain.BatchUpdateResponse{
		Success:      true,
		UpdatedCount: updated,
		Message:      fmt.Sprintf("%d transaction(s) updated", updated),
	}, nil
}

// CategorizeBulk stamps one purpose onto many transactions and commits them.
// It never moves transactions between accounts. Missing and non-editable
// rows are skipped.
func (s *CategorizationService) CategorizeBulk(ctx context.Context, userID string, req *domain.BulkUpdateRequest) (*domain.BatchUpdateResponse, error) {
	ctx, span := categorizeTracer.Start(ctx, "CategorizationService.CategorizeBulk")
	defer span.End()
	span.SetAttributes(attribute.Int("bulk.size", len(req.TransactionIDs)))

	if len(req.TransactionIDs) == 0 {
		return nil, &domain.ErrValidation{Field: "transactionIds", Message: "transactionIds must not be empty"}
	}
	if !req.Purpose.Valid() {
		return nil, &domain.ErrValidation{Field: "purpose", Message: "unknown purpose"}
	}

	touched := map[string]struct{}{}
	updated := 0
	var loopErr error
	for _, id := range req.TransactionIDs {
		current, err := s.store.GetTransaction(ctx, userID, id)
		if err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				continue
			}
			loopErr = err
			break
		}
		if !current.CanEdit {
			s.logger.Warn("bulk item skipped, transaction can no longer be edited",
				zap.String("transaction_id", id))
			continue
		}

		fields := map[string]any{
			"purpose":             string(req.Purpose),
			"is_pending":          false,
			"is_auto_categorized": false,
		}
		if _, err := s.store.UpdateTransaction(ctx, id, fields); err != nil {
			loopErr = err
			break
		}
		touched[current.AccountID] = struct{}{}
		updated++
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	if err := s.ledger.ReconcileAccounts(ctx, ids); err != nil {
		return nil, multierr.Append(loopErr, err)
	}
	if loopErr != nil {
		return nil, loopErr
	}

	s.metrics.IncrCategorization("bulk")
	return &domain.BatchUpdateResponse{
		Success:      true,
		UpdatedCount: updated,
		Message:      fmt.Sprintf("%d transaction(s) updated", updated),
	}, nil
}
