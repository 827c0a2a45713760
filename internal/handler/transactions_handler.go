package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/service"
)

// ============================================================
// Transactions
// ============================================================

func listTransactionsHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())
		limit := parseLimit(r, 50)

		txs, err := ledger.ListTransactions(r.Context(), userID, limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func listPendingTransactionsHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		txs, err := ledger.ListPendingTransactions(r.Context(), userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func createTransactionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		var req domain.CreateTransactionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		tx, err := ledger.CreateTransaction(r.Context(), userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func transferHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		var req domain.TransferRequest
		if !decodeBody(w, r, &req) {
			return
		}

		result, err := ledger.Transfer(r.Context(), userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

// ============================================================
// Categorization
// ============================================================

func categorizeTransactionHandler(cat *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())
		transactionID := chi.URLParam(r, "transactionId")

		var req domain.CategorizeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		tx, err := cat.CategorizeOne(r.Context(), userID, transactionID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func batchUpdateHandler(cat *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		var req domain.BatchUpdateRequest
		if !decodeBody(w, r, &req) {
			return
		}

		resp, err := cat.CategorizeBatch(r.Context(), userID, req.Updates)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func bulkUpdateHandler(cat *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		var req domain.BulkUpdateRequest
		if !decodeBody(w, r, &req) {
			return
		}

		resp, err := cat.CategorizeBulk(r.Context(), userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
