package models

import "time"

// EngagementScoreRow is the persisted shape of an emitted score in the
// engagement_scores table.
type EngagementScoreRow struct {
	EventID       string    `db:"event_id" json:"eventId"`
	StudentID     string    `db:"student_id" json:"studentId"`
	SessionID     string    `db:"session_id" json:"sessionId"`
	Score         float64   `db:"score" json:"score"`
	AccuracyScore float64   `db:"accuracy_score" json:"accuracyScore"`
	DwellScore    float64   `db:"dwell_score" json:"dwellScore"`
	PacingScore   float64   `db:"pacing_score" json:"pacingScore"`
	Trend         string    `db:"trend" json:"trend"`
	Alert         bool      `db:"alert" json:"alert"`
	WindowStart   int64     `db:"window_start" json:"windowStart"`
	WindowEnd     int64     `db:"window_end" json:"windowEnd"`
	EmittedAt     time.Time `db:"emitted_at" json:"emittedAt"`
}
