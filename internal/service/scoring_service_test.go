package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EduPulseAI/engagement-service/internal/models"
	"github.com/EduPulseAI/engagement-service/pkg/config"
)

func defaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Weights: config.WeightConfig{
			Accuracy: 0.4,
			Dwell:    0.3,
			Pacing:   0.3,
		},
		Thresholds: config.ThresholdConfig{
			Alert:                      0.4,
			Green:                      0.7,
			Yellow:                     0.4,
			StrugglingMs:               15000,
			RushingMs:                  5000,
			ExpectedQuestionsPerMinute: 0.5,
			PacingTolerance:            0.2,
			RapidSubmissionInterval:    5 * time.Second,
			RapidSubmissionsMin:        2,
			ConsecutiveIncorrectMin:    3,
		},
	}
}

func boolPtr(v bool) *bool    { return &v }
func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// stateWithAnswers builds an aggregate with the given number of answers, of
// which correct are marked right, each taking timeSpentMs, spaced gapMs apart
// starting at base.
func stateWithAnswers(total, correct int, timeSpentMs, gapMs, base int64) *models.StudentEngagementState {
	state := models.NewStudentEngagementState("student-1", "session-1", 0, 60000)
	for i := 0; i < total; i++ {
		event := &models.EnrichedEvent{
			EventID:     "evt",
			StudentID:   "student-1",
			Timestamp:   base + int64(i)*gapMs,
			EventType:   models.EventTypeQuizAnswered,
			IsCorrect:   boolPtr(i < correct),
			TimeSpentMs: int64Ptr(timeSpentMs),
		}
		state.AddQuizAnswer(event, 5000)
	}
	return state
}

func TestCalculateEmptyWindowScoresNeutral(t *testing.T) {
	scoring := NewScoringService(defaultScoringConfig())
	state := models.NewStudentEngagementState("student-1", "session-1", 0, 60000)

	score := scoring.Calculate(state)

	// Accuracy 0 with no answers, dwell and pacing neutral at 1.0.
	require.InDelta(t, 0.6, score.Score, 1e-9)
	require.InDelta(t, 0.0, score.ScoreComponents.AccuracyScore, 1e-9)
	require.InDelta(t, 1.0, score.ScoreComponents.DwellScore, 1e-9)
	require.InDelta(t, 1.0, score.ScoreComponents.PacingScore, 1e-9)
	require.Nil(t, score.ScoreComponents.AttentionScore)
	require.Equal(t, models.TrendStable, score.Trend)
	require.False(t, score.AlertThresholdCrossed)
}

func TestCalculateEngagedStudentRises(t *testing.T) {
	scoring := NewScoringService(defaultScoringConfig())
	// 10 answers, 8 correct, 10s each, 20s apart: accuracy 0.8, dwell 1.0,
	// pacing off-band (10 answers over 3 minutes) 0.7.
	state := stateWithAnswers(10, 8, 10000, 20000, 1000)

	score := scoring.Calculate(state)

	require.InDelta(t, 0.8, score.ScoreComponents.AccuracyScore, 1e-9)
	require.InDelta(t, 1.0, score.ScoreComponents.DwellScore, 1e-9)
	require.InDelta(t, 0.7, score.ScoreComponents.PacingScore, 1e-9)
	require.InDelta(t, 0.83, score.Score, 1e-9)
	require.Equal(t, models.TrendRising, score.Trend)
	require.False(t, score.AlertThresholdCrossed)
}

func TestCalculateAllIncorrectCrossesAlert(t *testing.T) {
	scoring := NewScoringService(defaultScoringConfig())
	// Accuracy 0, dwell rushing 0.5, pacing off-band 0.7: 0.15 + 0.21 = 0.36.
	state := stateWithAnswers(5, 0, 2000, 3000, 1000)

	score := scoring.Calculate(state)

	require.InDelta(t, 0.36, score.Score, 1e-9)
	require.Equal(t, models.TrendCritical, score.Trend)
	require.True(t, score.AlertThresholdCrossed)
}

func TestCalculateStrugglingDwellLowersScore(t *testing.T) {
	scoring := NewScoringService(defaultScoringConfig())
	// Average 20s per answer exceeds the struggling bound: dwell 0.3.
	state := stateWithAnswers(4, 2, 20000, 30000, 1000)

	score := scoring.Calculate(state)

	require.InDelta(t, 0.3, score.ScoreComponents.DwellScore, 1e-9)
	// 0.5*0.4 + 0.3*0.3 + 0.7*0.3 = 0.5
	require.InDelta(t, 0.5, score.Score, 1e-9)
	require.Equal(t, models.TrendStable, score.Trend)
}

func TestCalculateInBandPacingScoresFull(t *testing.T) {
	scoring := NewScoringService(defaultScoringConfig())
	// 2 answers 4 minutes apart: 0.5 qpm, exactly the expected pace.
	state := stateWithAnswers(2, 2, 10000, 240000, 1000)

	score := scoring.Calculate(state)

	require.InDelta(t, 1.0, score.ScoreComponents.PacingScore, 1e-9)
	// 1.0*0.4 + 1.0*0.3 + 1.0*0.3 = 1.0
	require.InDelta(t, 1.0, score.Score, 1e-9)
	require.Equal(t, models.TrendRising, score.Trend)
}

func TestCalculateIsDeterministic(t *testing.T) {
	scoring := NewScoringService(defaultScoringConfig())
	state := stateWithAnswers(10, 8, 10000, 20000, 1000)

	first := scoring.Calculate(state)
	second := scoring.Calculate(state)

	require.Equal(t, first, second)
}

func TestCalculateClampsPathologicalWeights(t *testing.T) {
	cfg := defaultScoringConfig()
	cfg.Weights = config.WeightConfig{Accuracy: 2.0, Dwell: 2.0, Pacing: 2.0}
	scoring := NewScoringService(cfg)
	state := stateWithAnswers(4, 4, 10000, 20000, 1000)

	score := scoring.Calculate(state)

	require.InDelta(t, 1.0, score.Score, 1e-9)
}

func TestCalculatePenaltyRunsBeforeClamp(t *testing.T) {
	halve := func(score float64, state *models.StudentEngagementState) float64 {
		return score - 1.0
	}
	scoring := NewScoringService(defaultScoringConfig(), halve)
	state := stateWithAnswers(10, 8, 10000, 20000, 1000)

	score := scoring.Calculate(state)

	// 0.83 - 1.0 clamps to 0 and the alert cutoff wins the trend.
	require.InDelta(t, 0.0, score.Score, 1e-9)
	require.Equal(t, models.TrendCritical, score.Trend)
	require.True(t, score.AlertThresholdCrossed)
}

func TestCalculateCarriesWindowProvenance(t *testing.T) {
	scoring := NewScoringService(defaultScoringConfig())
	state := models.NewStudentEngagementState("student-9", "session-4", 120000, 180000)

	score := scoring.Calculate(state)

	require.Equal(t, "student-9", score.Envelope.StudentID)
	require.Equal(t, "session-4", score.Envelope.SessionID)
	require.Equal(t, int64(120000), score.WindowStart)
	require.Equal(t, int64(180000), score.WindowEnd)
	// Emit-time fields are left for the emitter.
	require.Empty(t, score.Envelope.ID)
	require.Zero(t, score.Envelope.Timestamp)
}
