package supabase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oshieru/oshieru-go/internal/domain"
)

// Row types map PostgREST's snake_case columns onto the domain.

type accountRow struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Kind          string          `json:"kind"`
	Name          string          `json:"name"`
	BalanceCached decimal.Decimal `json:"balance_cached"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (r *accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:            r.ID,
		UserID:        r.UserID,
		Kind:          domain.AccountKind(r.Kind),
		Name:          r.Name,
		BalanceCached: r.BalanceCached,
		CreatedAt:     r.CreatedAt,
	}
}

// accountEmbed is the joined account slice PostgREST resource embedding
// returns alongside a transaction row.
type accountEmbed struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
}

type transactionRow struct {
	ID                  string          `json:"id"`
	AccountID           string          `json:"account_id"`
	Amount              decimal.Decimal `json:"amount"`
	Sign                string          `json:"sign"`
	Purpose             string          `json:"purpose"`
	Memo                string          `json:"memo"`
	OriginalDescription string          `json:"original_description"`
	IsPending           bool            `json:"is_pending"`
	IsAutoCategorized   bool            `json:"is_auto_categorized"`
	CanEdit             bool            `json:"can_edit"`
	EventAt             time.Time       `json:"event_at"`
	CreatedAt           time.Time       `json:"created_at"`

	Account *accountEmbed `json:"account,omitempty"`
}

func (r *transactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:                  r.ID,
		AccountID:           r.AccountID,
		Amount:              r.Amount,
		Sign:                domain.Sign(r.Sign),
		Purpose:             domain.Purpose(r.Purpose),
		Memo:                r.Memo,
		OriginalDescription: r.OriginalDescription,
		IsPending:           r.IsPending,
		IsAutoCategorized:   r.IsAutoCategorized,
		CanEdit:             r.CanEdit,
		EventAt:             r.EventAt,
		CreatedAt:           r.CreatedAt,
	}
}

func (r *transactionRow) toDetail() domain.TransactionDetail {
	d := domain.TransactionDetail{Transaction: r.toDomain()}
	if r.Account != nil {
		d.AccountName = r.Account.Name
		d.AccountKind = domain.AccountKind(r.Account.Kind)
	}
	return d
}

type scoreRow struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Score      int                 `json:"score"`
	Label      string              `json:"label"`
	Factors    domain.ScoreFactors `json:"factors"`
	SnapshotAt time.Time           `json:"snapshot_at"`
}

func (r *scoreRow) toDomain() domain.Score {
	return domain.Score{
		ID:         r.ID,
		UserID:     r.UserID,
		Score:      r.Score,
		Label:      r.Label,
		Factors:    r.Factors,
		SnapshotAt: r.SnapshotAt,
	}
}
