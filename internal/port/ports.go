// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/oshieru/oshieru-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// LedgerStore defines all data operations for accounts and transactions.
// Implemented by the Supabase adapter and the in-memory store.
type LedgerStore interface {
	// Accounts
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error)
	GetAccountByKind(ctx context.Context, userID string, kind domain.AccountKind) (*domain.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error

	// Transactions
	ListUserTransactions(ctx context.Context, userID string, limit int) ([]domain.TransactionDetail, error)
	ListAccountTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error)
	ListPendingTransactions(ctx context.Context, userID string) ([]domain.TransactionDetail, error)
	GetTransaction(ctx context.Context, userID, transactionID string) (*domain.TransactionDetail, error)
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, transactionID string, updates map[string]any) (*domain.Transaction, error)
}

// ScoreStore defines persistence for score snapshots. Scores are append-only;
// there is deliberately no update operation.
type ScoreStore interface {
	InsertScore(ctx context.Context, score *domain.Score) (*domain.Score, error)
	ListScores(ctx context.Context, userID string) ([]domain.Score, error)
	LatestScore(ctx context.Context, userID string) (*domain.Score, error)
}
