package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts
// ============================================================

// AccountKind distinguishes the everyday account from the fan-activity account.
type AccountKind string

const (
	AccountKindLife AccountKind = "life"
	AccountKindFan  AccountKind = "fan"
)

func (k AccountKind) Valid() bool {
	return k == AccountKindLife || k == AccountKindFan
}

// Account is a user-owned bucket of transactions. BalanceCached is a
// denormalized copy of the derived balance; the transaction history is the
// source of truth and the cached value is only ever written by reconciliation.
type Account struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Kind          AccountKind     `json:"kind"`
	Name          string          `json:"name"`
	BalanceCached decimal.Decimal `json:"balanceCached"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ============================================================
// Transactions
// ============================================================

// Sign is the direction of a transaction relative to its account.
type Sign string

const (
	SignIn  Sign = "in"
	SignOut Sign = "out"
)

func (s Sign) Valid() bool {
	return s == SignIn || s == SignOut
}

// Purpose classifies what a transaction was for.
type Purpose string

const (
	PurposeSalary    Purpose = "salary"
	PurposeTicket    Purpose = "ticket"
	PurposeGoods     Purpose = "goods"
	PurposeEvent     Purpose = "event"
	PurposeFood      Purpose = "food"
	PurposeRent      Purpose = "rent"
	PurposeUtilities Purpose = "utilities"
	PurposeTransport Purpose = "transport"
	PurposeOther     Purpose = "other"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeSalary, PurposeTicket, PurposeGoods, PurposeEvent, PurposeFood,
		PurposeRent, PurposeUtilities, PurposeTransport, PurposeOther:
		return true
	}
	return false
}

// IsFanPurpose reports whether the purpose counts as fan-activity spending
// regardless of which account the transaction sits on.
func (p Purpose) IsFanPurpose() bool {
	return p == PurposeTicket || p == PurposeGoods || p == PurposeEvent
}

// IsEssentialPurpose reports whether the purpose counts as essential living
// cost when the transaction sits on the life account.
func (p Purpose) IsEssentialPurpose() bool {
	return p == PurposeRent || p == PurposeOther
}

// Transaction is an immutable ledger entry. Amount is always positive; Sign
// carries the direction. EventAt is when the money moved, CreatedAt is when
// the row was recorded.
type Transaction struct {
	ID                  string          `json:"id"`
	AccountID           string          `json:"accountId"`
	Amount              decimal.Decimal `json:"amount"`
	Sign                Sign            `json:"sign"`
	Purpose             Purpose         `json:"purpose"`
	Memo                string          `json:"memo,omitempty"`
	OriginalDescription string          `json:"originalDescription,omitempty"`
	IsPending           bool            `json:"isPending"`
	IsAutoCategorized   bool            `json:"isAutoCategorized"`
	CanEdit             bool            `json:"canEdit"`
	EventAt             time.Time       `json:"eventAt"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// Signed returns the amount with the sign applied: positive for inflows,
// negative for outflows.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Sign == SignOut {
		return t.Amount.Neg()
	}
	return t.Amount
}

// TransactionDetail is a transaction joined with the account it belongs to,
// the shape list endpoints and the analysis window operate on.
type TransactionDetail struct {
	Transaction
	AccountName string      `json:"accountName"`
	AccountKind AccountKind `json:"accountKind"`
}

// CreateTransactionRequest is the payload for recording a new transaction.
// EventAt defaults to the current time when omitted.
type CreateTransactionRequest struct {
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Sign      Sign            `json:"sign"`
	Purpose   Purpose         `json:"purpose"`
	Memo      string          `json:"memo,omitempty"`
	EventAt   *time.Time      `json:"eventAt,omitempty"`
}

// TransferRequest moves money between the user's two accounts.
type TransferRequest struct {
	FromKind AccountKind     `json:"fromKind"`
	ToKind   AccountKind     `json:"toKind"`
	Amount   decimal.Decimal `json:"amount"`
}

// TransferResult holds the paired ledger entries a transfer produces.
type TransferResult struct {
	Outgoing Transaction `json:"outgoing"`
	Incoming Transaction `json:"incoming"`
}

// ============================================================
// Categorization
// ============================================================

// CategorizeRequest updates a single pending transaction. AccountKind moves
// the transaction to the account of that kind when set.
type CategorizeRequest struct {
	Purpose     Purpose     `json:"purpose"`
	AccountKind AccountKind `json:"accountType,omitempty"`
	Memo        *string     `json:"memo,omitempty"`
}

// BatchUpdate is one item of a batch categorization request.
type BatchUpdate struct {
	ID        string  `json:"id"`
	Purpose   Purpose `json:"purpose"`
	AccountID string  `json:"accountId,omitempty"`
	IsPending bool    `json:"isPending"`
}

// BatchUpdateRequest commits a set of reviewed pending transactions.
type BatchUpdateRequest struct {
	Updates []BatchUpdate `json:"updates"`
}

// BatchUpdateResponse reports how many updates were applied. Items referring
// to missing transactions are skipped, not counted.
type BatchUpdateResponse struct {
	Success      bool   `json:"success"`
	UpdatedCount int    `json:"updatedCount"`
	Message      string `json:"message,omitempty"`
}

// BulkUpdateRequest applies one purpose to many transactions at once.
type BulkUpdateRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	Purpose        Purpose  `json:"purpose"`
}

// ============================================================
// Scores
// ============================================================

// SurplusSentinel is stored as the surplus ratio when income minus essential
// spending is zero or negative, standing in for an unbounded ratio.
var SurplusSentinel = decimal.NewFromFloat(999.99)

// ScoreFactors is the breakdown persisted with every score so the result can
// be explained later without recomputing.
type ScoreFactors struct {
	IncomeRatioScore       int             `json:"incomeRatioScore"`
	SurplusScore           int             `json:"surplusScore"`
	RecommendedAmountScore int             `json:"recommendedAmountScore"`
	IncomeRatio            decimal.Decimal `json:"incomeRatio"`
	SurplusRatio           decimal.Decimal `json:"surplusRatio"`
	RecommendedDeviation   decimal.Decimal `json:"recommendedDeviation"`
}

// Score is an immutable snapshot of the safety score at SnapshotAt. Scores
// are never updated in place; recomputation appends a new row.
type Score struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	Score      int          `json:"score"`
	Label      string       `json:"label"`
	Factors    ScoreFactors `json:"factors"`
	SnapshotAt time.Time    `json:"snapshotAt"`
}

// Score labels, from safest to most at risk.
const (
	LabelExcellent = "excellent"
	LabelGood      = "good"
	LabelCaution   = "caution"
	LabelDanger    = "danger"
)

// ScoreResult is the outcome of a pure score calculation, before persistence.
type ScoreResult struct {
	Score   int          `json:"score"`
	Label   string       `json:"label"`
	Factors ScoreFactors `json:"factors"`
}

// AnalysisWindow is the income-anchored slice of history a score is computed
// from. Income is the anchor amount; FanSpend and EssentialSpend are sums of
// committed outflows inside [From, To].
type AnalysisWindow struct {
	Anchor         TransactionDetail `json:"anchor"`
	From           time.Time         `json:"from"`
	To             time.Time         `json:"to"`
	Income         decimal.Decimal   `json:"income"`
	FanSpend       decimal.Decimal   `json:"fanSpend"`
	EssentialSpend decimal.Decimal   `json:"essentialSpend"`
}

// ============================================================
// Dashboard
// ============================================================

// Dashboard aggregates everything the home screen needs in one response.
type Dashboard struct {
	Accounts           []Account           `json:"accounts"`
	TotalBalance       decimal.Decimal     `json:"totalBalance"`
	LatestScore        *Score              `json:"latestScore"`
	RecentTransactions []TransactionDetail `json:"recentTransactions"`
	PendingCount       int                 `json:"pendingCount"`
}

// EngineMetrics is a point-in-time snapshot of engine counters exposed for
// quick inspection without scraping Prometheus.
type EngineMetrics struct {
	Reconciliations   map[string]float64 `json:"reconciliations"`
	DriftsDetected    float64            `json:"driftsDetected"`
	ScoreComputations map[string]float64 `json:"scoreComputations"`
	Categorizations   map[string]float64 `json:"categorizations"`
	Timestamp         time.Time          `json:"timestamp"`
}
