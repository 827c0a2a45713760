package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/service"
)

// ============================================================
// Dev Tools (testing helpers)
// ============================================================

func devSeedHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		var req service.DevSeedRequest
		if r.ContentLength > 0 && !decodeBody(w, r, &req) {
			return
		}

		resp, err := ledger.DevSeed(r.Context(), userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}
