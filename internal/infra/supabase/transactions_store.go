package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/infra/resilience"
)

// ============================================================
// Transactions via PostgREST, accounts joined by resource embedding
// ============================================================

// detailSelect joins each transaction with its owning account so user
// scoping and account metadata come back in one query.
const detailSelect = "select=*,account:accounts!inner(user_id,name,kind)"

func decodeDetails(body []byte) ([]domain.TransactionDetail, error) {
	if body == nil {
		return nil, nil
	}
	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	details := make([]domain.TransactionDetail, 0, len(rows))
	for i := range rows {
		details = append(details, rows[i].toDetail())
	}
	return details, nil
}

// ListUserTransactions returns the user's transactions across both accounts,
// newest event first. limit <= 0 means no limit. Runs behind the circuit
// breaker; score computation depends on this path.
func (c *Client) ListUserTransactions(ctx context.Context, userID string, limit int) ([]domain.TransactionDetail, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUserTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var details []domain.TransactionDetail

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("transactions?%s&account.user_id=eq.%s&order=event_at.desc", detailSelect, userID)
			if limit > 0 {
				path = fmt.Sprintf("%s&limit=%d", path, limit)
			}
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}
			details, err = decodeDetails(body)
			return err
		})
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return details, nil
}

func (c *Client) ListAccountTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccountTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	path := fmt.Sprintf("transactions?account_id=eq.%s&order=event_at.desc", accountID)
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	txs := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].toDomain())
	}
	return txs, nil
}

func (c *Client) ListPendingTransactions(ctx context.Context, userID string) ([]domain.TransactionDetail, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPendingTransactions")
	defer span.End()

	path := fmt.Sprintf("transactions?%s&account.user_id=eq.%s&is_pending=eq.true&order=event_at.desc", detailSelect, userID)
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeDetails(body)
}

func (c *Client) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.TransactionDetail, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()

	path := fmt.Sprintf("transactions?%s&id=eq.%s&account.user_id=eq.%s&limit=1", detailSelect, transactionID, userID)
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}

	details, err := decodeDetails(body)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	return &details[0], nil
}

func (c *Client) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", tx.AccountID))

	body, err := c.doPost(ctx, "transactions", map[string]any{
		"id":                   tx.ID,
		"account_id":           tx.AccountID,
		"amount":               tx.Amount,
		"sign":                 string(tx.Sign),
		"purpose":              string(tx.Purpose),
		"memo":                 tx.Memo,
		"original_description": tx.OriginalDescription,
		"is_pending":           tx.IsPending,
		"is_auto_categorized":  tx.IsAutoCategorized,
		"can_edit":             tx.CanEdit,
		"event_at":             tx.EventAt,
		"created_at":           tx.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created transaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase returned no row for created transaction")
	}
	created := rows[0].toDomain()
	return &created, nil
}

// UpdateTransaction patches the given columns and re-fetches the row to
// confirm the update actually persisted.
func (c *Client) UpdateTransaction(ctx context.Context, transactionID string, updates map[string]any) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	if err := c.doPatch(ctx, fmt.Sprintf("transactions?id=eq.%s", transactionID), updates); err != nil {
		return nil, err
	}

	body, err := c.doGet(ctx, fmt.Sprintf("transactions?id=eq.%s&limit=1", transactionID))
	if err != nil {
		return nil, fmt.Errorf("re-fetch after transaction update: %w", err)
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}

	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode updated transaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	updated := rows[0].toDomain()
	return &updated, nil
}
