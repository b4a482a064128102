package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/EduPulseAI/engagement-service/internal/models"
)

// ScoreHistoryRepository appends emitted scores to Postgres for offline
// analysis. The table is append-only; refinements of the same window insert
// new rows rather than updating earlier ones.
type ScoreHistoryRepository struct {
	db *sqlx.DB
}

// NewScoreHistoryRepository instantiates the repository.
func NewScoreHistoryRepository(db *sqlx.DB) *ScoreHistoryRepository {
	return &ScoreHistoryRepository{db: db}
}

// Insert appends one emitted score.
func (r *ScoreHistoryRepository) Insert(ctx context.Context, score models.EngagementScore) error {
	const query = `INSERT INTO engagement_scores
        (event_id, student_id, session_id, score, accuracy_score, dwell_score, pacing_score, trend, alert, window_start, window_end, emitted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	emittedAt := time.UnixMilli(score.Envelope.Timestamp).UTC()

	if _, err := r.db.ExecContext(ctx, query,
		score.Envelope.ID,
		score.Envelope.StudentID,
		score.Envelope.SessionID,
		score.Score,
		score.ScoreComponents.AccuracyScore,
		score.ScoreComponents.DwellScore,
		score.ScoreComponents.PacingScore,
		string(score.Trend),
		score.AlertThresholdCrossed,
		score.WindowStart,
		score.WindowEnd,
		emittedAt,
	); err != nil {
		return fmt.Errorf("insert engagement score: %w", err)
	}

	return nil
}

// RecentByStudent returns the most recent emitted scores for one student,
// newest first.
func (r *ScoreHistoryRepository) RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.EngagementScoreRow, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `SELECT event_id, student_id, session_id, score, accuracy_score, dwell_score, pacing_score, trend, alert, window_start, window_end, emitted_at
        FROM engagement_scores WHERE student_id = $1 ORDER BY emitted_at DESC LIMIT $2`

	var rows []models.EngagementScoreRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("query engagement scores for %s: %w", studentID, err)
	}

	return rows, nil
}
