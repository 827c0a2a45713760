package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/handler"
	"github.com/oshieru/oshieru-go/internal/infra/cache"
	"github.com/oshieru/oshieru-go/internal/infra/memory"
	"github.com/oshieru/oshieru-go/internal/infra/observability"
	"github.com/oshieru/oshieru-go/internal/service"
)

var testSecret = []byte("router-test-secret")

func newTestRouter(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	ledger := service.NewLedgerService(store, metrics, logger)
	categorize := service.NewCategorizationService(store, ledger, metrics, logger)
	scores := service.NewScoreService(store, store, cache.New[*domain.Score](time.Minute), metrics, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Ledger:     ledger,
		Categorize: categorize,
		Scores:     scores,
		Metrics:    metrics,
		JWTSecret:  testSecret,
		DevMode:    true,
	}, logger)
	return router, store
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedHandlerAccount(t *testing.T, store *memory.Store, userID string, kind domain.AccountKind) *domain.Account {
	t.Helper()
	acct, err := store.CreateAccount(context.Background(), &domain.Account{
		ID:        string(kind) + "-" + userID,
		UserID:    userID,
		Kind:      kind,
		Name:      string(kind) + " account",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acct
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_Rejected(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not-a-jwt"},
		{"wrong secret", func() string {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "user-1",
				"exp": time.Now().Add(time.Hour).Unix(),
			})
			signed, _ := token.SignedString([]byte("someone-else"))
			return signed
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, "/v1/accounts", tt.token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestCreateTransactionAndBalance(t *testing.T) {
	router, store := newTestRouter(t)
	acct := seedHandlerAccount(t, store, "user-1", domain.AccountKindLife)
	token := mintToken(t, "user-1")

	rec := doRequest(router, http.MethodPost, "/v1/transactions", token, domain.CreateTransactionRequest{
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(250000),
		Sign:      domain.SignIn,
		Purpose:   domain.PurposeSalary,
		Memo:      "june salary",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/v1/accounts/"+acct.ID+"/balance", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var balance struct {
		AccountID string `json:"accountId"`
		Balance   string `json:"balance"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Balance != "250000" {
		t.Errorf("expected balance 250000, got %s", balance.Balance)
	}
}

func TestCreateTransaction_ValidationError(t *testing.T) {
	router, store := newTestRouter(t)
	acct := seedHandlerAccount(t, store, "user-1", domain.AccountKindLife)
	token := mintToken(t, "user-1")

	rec := doRequest(router, http.MethodPost, "/v1/transactions", token, map[string]any{
		"accountId": acct.ID,
		"amount":    "-50",
		"sign":      "in",
		"purpose":   "salary",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}

func TestAccountIsolation(t *testing.T) {
	router, store := newTestRouter(t)
	acct := seedHandlerAccount(t, store, "user-1", domain.AccountKindLife)
	token := mintToken(t, "user-2")

	rec := doRequest(router, http.MethodGet, "/v1/accounts/"+acct.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign account, got %d", rec.Code)
	}
}

func TestCategorizeTransaction(t *testing.T) {
	router, store := newTestRouter(t)
	acct := seedHandlerAccount(t, store, "user-1", domain.AccountKindLife)
	token := mintToken(t, "user-1")

	if _, err := store.InsertTransaction(context.Background(), &domain.Transaction{
		ID:        "tx-pending",
		AccountID: acct.ID,
		Amount:    decimal.NewFromInt(3000),
		Sign:      domain.SignOut,
		Purpose:   domain.PurposeOther,
		IsPending: true,
		CanEdit:   true,
		EventAt:   time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	rec := doRequest(router, http.MethodPatch, "/v1/transactions/tx-pending", token, domain.CategorizeRequest{
		Purpose: domain.PurposeFood,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	detail, err := store.GetTransaction(context.Background(), "user-1", "tx-pending")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if detail.IsPending {
		t.Error("expected transaction to leave the pending queue")
	}
	if detail.Purpose != domain.PurposeFood {
		t.Errorf("expected purpose food, got %s", detail.Purpose)
	}
}

func TestScoreCalculateAndLatest(t *testing.T) {
	router, store := newTestRouter(t)
	acct := seedHandlerAccount(t, store, "user-1", domain.AccountKindLife)
	token := mintToken(t, "user-1")

	now := time.Now().UTC()
	seed := []struct {
		sign    domain.Sign
		purpose domain.Purpose
		amount  int64
		daysAgo int
	}{
		{domain.SignIn, domain.PurposeSalary, 100000, 20},
		{domain.SignOut, domain.PurposeRent, 40000, 15},
	}
	for i, tx := range seed {
		if _, err := store.InsertTransaction(context.Background(), &domain.Transaction{
			ID:        "seed-" + string(rune('a'+i)),
			AccountID: acct.ID,
			Amount:    decimal.NewFromInt(tx.amount),
			Sign:      tx.sign,
			Purpose:   tx.purpose,
			CanEdit:   true,
			EventAt:   now.AddDate(0, 0, -tx.daysAgo),
			CreatedAt: now,
		}); err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}

	rec := doRequest(router, http.MethodPost, "/v1/scores/calculate", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var computed domain.Score
	if err := json.NewDecoder(rec.Body).Decode(&computed); err != nil {
		t.Fatalf("decode score: %v", err)
	}

	rec = doRequest(router, http.MethodGet, "/v1/scores/latest", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var latest domain.Score
	if err := json.NewDecoder(rec.Body).Decode(&latest); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if latest.ID != computed.ID {
		t.Errorf("latest snapshot %s does not match computed %s", latest.ID, computed.ID)
	}
}

func TestScoreCalculate_NoHistory(t *testing.T) {
	router, store := newTestRouter(t)
	seedHandlerAccount(t, store, "user-1", domain.AccountKindLife)
	token := mintToken(t, "user-1")

	rec := doRequest(router, http.MethodPost, "/v1/scores/calculate", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 without an income anchor, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}

func TestDevSeed(t *testing.T) {
	router, store := newTestRouter(t)
	token := mintToken(t, "user-1")

	rec := doRequest(router, http.MethodPost, "/v1/dev/seed", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	accounts, err := store.ListAccounts(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("expected a life and a fan account, got %d accounts", len(accounts))
	}
}

func TestEngineMetricsSnapshot(t *testing.T) {
	router, _ := newTestRouter(t)
	token := mintToken(t, "user-1")

	rec := doRequest(router, http.MethodGet, "/v1/metrics/engine", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snapshot domain.EngineMetrics
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
}
