package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/oshieru/oshieru-go/internal/domain"
)

// ============================================================
// Scores, append-only snapshots via PostgREST
// ============================================================

func (c *Client) InsertScore(ctx context.Context, score *domain.Score) (*domain.Score, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertScore")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", score.UserID))

	body, err := c.doPost(ctx, "scores", map[string]any{
		"id":          score.ID,
		"user_id":     score.UserID,
		"score":       score.Score,
		"label":       score.Label,
		"factors":     score.Factors,
		"snapshot_at": score.SnapshotAt,
	})
	if err != nil {
		return nil, err
	}

	var rows []scoreRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created score: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase returned no row for created score")
	}
	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) ListScores(ctx context.Context, userID string) ([]domain.Score, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListScores")
	defer span.End()

	path := fmt.Sprintf("scores?user_id=eq.%s&order=snapshot_at.desc", userID)
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var rows []scoreRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	scores := make([]domain.Score, 0, len(rows))
	for i := range rows {
		scores = append(scores, rows[i].toDomain())
	}
	return scores, nil
}

func (c *Client) LatestScore(ctx context.Context, userID string) (*domain.Score, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LatestScore")
	defer span.End()

	path := fmt.Sprintf("scores?user_id=eq.%s&order=snapshot_at.desc&limit=1", userID)
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	if body == nil || string(body) == "[]" {
		return nil, &domain.ErrNotFound{Resource: "score", ID: userID}
	}

	var rows []scoreRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode score: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "score", ID: userID}
	}
	latest := rows[0].toDomain()
	return &latest, nil
}
