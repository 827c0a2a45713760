// Package memory implements the ledger and score stores on an in-process
// map, for local development and tests where no Supabase project exists.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/oshieru/oshieru-go/internal/domain"
)

// Store is a thread-safe in-memory implementation of port.LedgerStore and
// port.ScoreStore.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
	scores       map[string]domain.Score
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]domain.Account),
		transactions: make(map[string]domain.Transaction),
		scores:       make(map[string]domain.Score),
	}
}

// ============================================================
// Accounts
// ============================================================

func (s *Store) ListAccounts(_ context.Context, userID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, userID, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return &a, nil
}

func (s *Store) GetAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return &a, nil
}

func (s *Store) GetAccountByKind(_ context.Context, userID string, kind domain.AccountKind) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.UserID == userID && a.Kind == kind {
			acct := a
			return &acct, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "account", ID: string(kind)}
}

func (s *Store) CreateAccount(_ context.Context, account *domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.ID] = *account
	created := *account
	return &created, nil
}

func (s *Store) UpdateAccountBalance(_ context.Context, accountID string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	a.BalanceCached = balance
	s.accounts[accountID] = a
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) detail(tx domain.Transaction) domain.TransactionDetail {
	d := domain.TransactionDetail{Transaction: tx}
	if a, ok := s.accounts[tx.AccountID]; ok {
		d.AccountName = a.Name
		d.AccountKind = a.Kind
	}
	return d
}

func (s *Store) userOwns(userID string, tx domain.Transaction) bool {
	a, ok := s.accounts[tx.AccountID]
	return ok && a.UserID == userID
}

func sortDetails(out []domain.TransactionDetail) {
	sort.Slice(out, func(i, j int) bool { return out[i].EventAt.After(out[j].EventAt) })
}

func (s *Store) ListUserTransactions(_ context.Context, userID string, limit int) ([]domain.TransactionDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TransactionDetail
	for _, tx := range s.transactions {
		if s.userOwns(userID, tx) {
			out = append(out, s.detail(tx))
		}
	}
	sortDetails(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListAccountTransactions(_ context.Context, accountID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventAt.After(out[j].EventAt) })
	return out, nil
}

func (s *Store) ListPendingTransactions(_ context.Context, userID string) ([]domain.TransactionDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TransactionDetail
	for _, tx := range s.transactions {
		if tx.IsPending && s.userOwns(userID, tx) {
			out = append(out, s.detail(tx))
		}
	}
	sortDetails(out)
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, transactionID string) (*domain.TransactionDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[transactionID]
	if !ok || !s.userOwns(userID, tx) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	d := s.detail(tx)
	return &d, nil
}

func (s *Store) InsertTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[tx.ID] = *tx
	created := *tx
	return &created, nil
}

func (s *Store) UpdateTransaction(_ context.Context, transactionID string, updates map[string]any) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}

	// Mirrors the column-level patch the PostgREST adapter sends.
	for col, v := range updates {
		switch col {
		case "purpose":
			tx.Purpose = domain.Purpose(v.(string))
		case "memo":
			tx.Memo = v.(string)
		case "account_id":
			tx.AccountID = v.(string)
		case "is_pending":
			tx.IsPending = v.(bool)
		case "is_auto_categorized":
			tx.IsAutoCategorized = v.(bool)
		case "can_edit":
			tx.CanEdit = v.(bool)
		}
	}

	s.transactions[transactionID] = tx
	updated := tx
	return &updated, nil
}

// ============================================================
// Scores
// ============================================================

func (s *Store) InsertScore(_ context.Context, score *domain.Score) (*domain.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[score.ID] = *score
	created := *score
	return &created, nil
}

func (s *Store) ListScores(_ context.Context, userID string) ([]domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Score
	for _, sc := range s.scores {
		if sc.UserID == userID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotAt.After(out[j].SnapshotAt) })
	return out, nil
}

func (s *Store) LatestScore(ctx context.Context, userID string) (*domain.Score, error) {
	scores, err := s.ListScores(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, &domain.ErrNotFound{Resource: "score", ID: userID}
	}
	return &scores[0], nil
}
