package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/infra/observability"
	"github.com/oshieru/oshieru-go/internal/service"
)

// ============================================================
// Scores & dashboard
// ============================================================

func listScoresHandler(scores *service.ScoreService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		history, err := scores.ListScores(r.Context(), userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func latestScoreHandler(scores *service.ScoreService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		score, err := scores.LatestScore(r.Context(), userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, score)
	}
}

func calculateScoreHandler(scores *service.ScoreService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		score, err := scores.ComputeScore(r.Context(), userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, score)
	}
}

func dashboardHandler(scores *service.ScoreService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())

		dashboard, err := scores.Dashboard(r.Context(), userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}

// engineMetricsHandler exposes a JSON snapshot of the engine counters, a
// cheap alternative to scraping /metrics.
func engineMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}
