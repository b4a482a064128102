package service

import (
	"github.com/EduPulseAI/engagement-service/internal/models"
	"github.com/EduPulseAI/engagement-service/pkg/config"
)

// Trend heuristics on top of the threshold cutoffs. A window only classifies
// as RISING when accuracy and score are comfortably high and the average
// answer time sits inside the healthy dwell band.
const (
	risingCorrectnessMin = 0.7
	risingScoreMin       = 0.8
)

// PenaltyFunc adjusts a composite score based on behavior detected in the
// aggregate. Penalties run after the weighted sum and before clamping.
type PenaltyFunc func(score float64, state *models.StudentEngagementState) float64

// ScoringService computes an engagement score from an aggregate snapshot.
// Calculate is pure and deterministic: the same snapshot always yields the
// same score, so it can be re-invoked on every aggregate update.
type ScoringService struct {
	weights    config.WeightConfig
	thresholds config.ThresholdConfig

	// Extension point for multiplicative pattern penalties. Currently no
	// penalty is registered; the slot passes the composite score through.
	penalties []PenaltyFunc
}

// NewScoringService constructs a scoring service with the configured weights
// and thresholds and an optional set of pattern penalties.
func NewScoringService(cfg config.ScoringConfig, penalties ...PenaltyFunc) *ScoringService {
	return &ScoringService{
		weights:    cfg.Weights,
		thresholds: cfg.Thresholds,
		penalties:  penalties,
	}
}

// Calculate scores an aggregate snapshot. The returned record carries the
// student identity and window provenance; the emitter stamps the remaining
// envelope fields (id, emit time, source) so that Calculate stays
// deterministic.
func (s *ScoringService) Calculate(state *models.StudentEngagementState) models.EngagementScore {
	accuracyScore := s.accuracyScore(state)
	dwellScore := s.dwellScore(state)
	pacingScore := s.pacingScore(state)

	components := models.ScoreComponents{
		AccuracyScore: accuracyScore,
		DwellScore:    dwellScore,
		PacingScore:   pacingScore,
		// Attention score is reserved; its weight defaults to 0.
		AttentionScore: nil,
	}

	compositeScore := s.compositeScore(accuracyScore, dwellScore, pacingScore)

	finalScore := s.applyPenalties(compositeScore, state)

	finalScore = clamp(finalScore)

	trend := s.determineTrend(finalScore, state)

	alertCrossed := finalScore < s.thresholds.Alert

	return models.EngagementScore{
		Envelope: models.Envelope{
			StudentID: state.StudentID,
			SessionID: state.SessionID,
			Type:      "engagement.scored",
		},
		Score:                 finalScore,
		ScoreComponents:       components,
		Trend:                 trend,
		AlertThresholdCrossed: alertCrossed,
		WindowStart:           state.WindowStart,
		WindowEnd:             state.WindowEnd,
	}
}

// accuracyScore is the correctness rate. A window with no answers scores 0.0:
// no quiz data is a penalty, not a neutral signal.
func (s *ScoringService) accuracyScore(state *models.StudentEngagementState) float64 {
	if state.TotalAnswers == 0 {
		return 0.0
	}
	return state.CorrectnessRate()
}

// dwellScore classifies the average time spent per answer. Neutral with no
// quiz data.
func (s *ScoringService) dwellScore(state *models.StudentEngagementState) float64 {
	if state.TotalAnswers == 0 {
		return 1.0
	}

	avgTimeSpent := state.AverageTimeSpent()

	// Too long (struggling)
	if avgTimeSpent > s.thresholds.StrugglingMs {
		return 0.3
	}

	// Too fast (rushing)
	if avgTimeSpent < s.thresholds.RushingMs {
		return 0.5
	}

	return 1.0
}

// pacingScore checks the answering rate against the tolerance band around the
// expected pace. Neutral with no quiz data.
func (s *ScoringService) pacingScore(state *models.StudentEngagementState) float64 {
	if state.TotalAnswers == 0 {
		return 1.0
	}

	questionsPerMinute := state.QuestionsPerMinute()
	idealPace := s.thresholds.ExpectedQuestionsPerMinute
	tolerance := s.thresholds.PacingTolerance

	lowerBound := idealPace * (1 - tolerance)
	upperBound := idealPace * (1 + tolerance)

	if questionsPerMinute >= lowerBound && questionsPerMinute <= upperBound {
		return 1.0
	}

	return 0.7
}

func (s *ScoringService) compositeScore(accuracyScore, dwellScore, pacingScore float64) float64 {
	return accuracyScore*s.weights.Accuracy +
		dwellScore*s.weights.Dwell +
		pacingScore*s.weights.Pacing
}

func (s *ScoringService) applyPenalties(score float64, state *models.StudentEngagementState) float64 {
	for _, penalty := range s.penalties {
		score = penalty(score, state)
	}
	return score
}

// determineTrend classifies the final score in strict priority order: the
// alert cutoff wins over every heuristic.
func (s *ScoringService) determineTrend(finalScore float64, state *models.StudentEngagementState) models.EngagementTrend {
	if finalScore < s.thresholds.Alert {
		return models.TrendCritical
	}
	if finalScore < s.thresholds.Yellow {
		return models.TrendDeclining
	}

	avgTimeSpent := state.AverageTimeSpent()
	if state.CorrectnessRate() > risingCorrectnessMin &&
		avgTimeSpent >= s.thresholds.RushingMs &&
		avgTimeSpent <= s.thresholds.StrugglingMs &&
		finalScore >= risingScoreMin {
		return models.TrendRising
	}

	return models.TrendStable
}

func clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
