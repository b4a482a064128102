package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/EduPulseAI/engagement-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func sampleScore() models.EngagementScore {
	return models.EngagementScore{
		Envelope: models.Envelope{
			ID:        "evt-1",
			StudentID: "student-1",
			SessionID: "session-1",
			Timestamp: 1700000000000,
			Type:      "engagement.scored",
			Source:    "engagement-service",
		},
		Score: 0.83,
		ScoreComponents: models.ScoreComponents{
			AccuracyScore: 0.8,
			DwellScore:    1.0,
			PacingScore:   0.7,
		},
		Trend:       models.TrendRising,
		WindowStart: 1699999980000,
		WindowEnd:   1700000040000,
	}
}

func TestInsertWritesAllColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScoreHistoryRepository(db)
	score := sampleScore()

	mock.ExpectExec("INSERT INTO engagement_scores").
		WithArgs(
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
			time.UnixMilli(score.Envelope.Timestamp).UTC(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), score))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPropagatesDatabaseErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScoreHistoryRepository(db)

	mock.ExpectExec("INSERT INTO engagement_scores").
		WillReturnError(context.DeadlineExceeded)

	err := repo.Insert(context.Background(), sampleScore())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentByStudentReturnsRowsNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScoreHistoryRepository(db)

	emitted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"event_id", "student_id", "session_id", "score",
		"accuracy_score", "dwell_score", "pacing_score",
		"trend", "alert", "window_start", "window_end", "emitted_at",
	}).
		AddRow("evt-2", "student-1", "session-1", 0.83, 0.8, 1.0, 0.7, "RISING", false, int64(120000), int64(180000), emitted).
		AddRow("evt-1", "student-1", "session-1", 0.6, 0.0, 1.0, 1.0, "STABLE", false, int64(60000), int64(120000), emitted.Add(-time.Minute))

	mock.ExpectQuery("SELECT (.+) FROM engagement_scores WHERE student_id").
		WithArgs("student-1", 2).
		WillReturnRows(rows)

	result, err := repo.RecentByStudent(context.Background(), "student-1", 2)
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, "evt-2", result[0].EventID)
	require.InDelta(t, 0.83, result[0].Score, 1e-9)
	require.Equal(t, "STABLE", result[1].Trend)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentByStudentDefaultsLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScoreHistoryRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM engagement_scores WHERE student_id").
		WithArgs("student-1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))

	result, err := repo.RecentByStudent(context.Background(), "student-1", 0)
	require.NoError(t, err)
	require.Empty(t, result)
	require.NoError(t, mock.ExpectationsWereMet())
}
