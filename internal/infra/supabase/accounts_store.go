package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/infra/resilience"
)

// ============================================================
// Accounts via PostgREST
// ============================================================

// ListAccounts is on the hot read path (dashboard, balances), so it runs
// behind the circuit breaker with retries.
func (c *Client) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var accounts []domain.Account

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("accounts?user_id=eq.%s&order=created_at.asc", userID)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}
			if body == nil {
				accounts = nil
				return nil
			}

			var rows []accountRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("decode accounts: %w", err)
			}

			accounts = make([]domain.Account, 0, len(rows))
			for i := range rows {
				accounts = append(accounts, rows[i].toDomain())
			}
			return nil
		})
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return accounts, nil
}

func (c *Client) getAccountWhere(ctx context.Context, filter, notFoundID string) (*domain.Account, error) {
	body, err := c.doGet(ctx, fmt.Sprintf("accounts?%s&limit=1", filter))
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "account", ID: notFoundID}
	}

	var rows []accountRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "account", ID: notFoundID}
	}
	acct := rows[0].toDomain()
	return &acct, nil
}

func (c *Client) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccount")
	defer span.End()

	return c.getAccountWhere(ctx,
		fmt.Sprintf("user_id=eq.%s&id=eq.%s", userID, accountID), accountID)
}

func (c *Client) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccountByID")
	defer span.End()

	return c.getAccountWhere(ctx, fmt.Sprintf("id=eq.%s", accountID), accountID)
}

func (c *Client) GetAccountByKind(ctx context.Context, userID string, kind domain.AccountKind) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccountByKind")
	defer span.End()

	return c.getAccountWhere(ctx,
		fmt.Sprintf("user_id=eq.%s&kind=eq.%s", userID, kind), string(kind))
}

func (c *Client) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAccount")
	defer span.End()

	body, err := c.doPost(ctx, "accounts", map[string]any{
		"id":             account.ID,
		"user_id":        account.UserID,
		"kind":           string(account.Kind),
		"name":           account.Name,
		"balance_cached": account.BalanceCached,
		"created_at":     account.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	var rows []accountRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created account: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase returned no row for created account")
	}
	created := rows[0].toDomain()
	return &created, nil
}

// UpdateAccountBalance rewrites the cached balance column. Only the
// reconciler calls this.
func (c *Client) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAccountBalance")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	return c.doPatch(ctx, fmt.Sprintf("accounts?id=eq.%s", accountID), map[string]any{
		"balance_cached": balance,
	})
}

// mapBreakerErr converts gobreaker sentinels and expired deadlines into
// domain errors so callers can map them to proper status codes.
func mapBreakerErr(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return &domain.ErrCircuitOpen{Service: "supabase"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: "supabase"}
	}
	return err
}
