package service

import (
	"github.com/EduPulseAI/engagement-service/internal/models"
	"github.com/EduPulseAI/engagement-service/pkg/config"
)

// Struggling classification bounds. These are deliberately wider than the
// dwell-score struggling threshold: a pattern log entry should fire only on
// sustained difficulty, not on a single slow window.
const (
	strugglingAvgTimeMs      = 20000.0
	strugglingCorrectnessMax = 0.5
)

// PatternDetector classifies notable behavior in an aggregate. Detection
// feeds logging and metrics only; scores are never adjusted by it.
type PatternDetector struct {
	thresholds config.ThresholdConfig
}

// NewPatternDetector constructs a detector with the configured cutoffs.
func NewPatternDetector(cfg config.ScoringConfig) *PatternDetector {
	return &PatternDetector{thresholds: cfg.Thresholds}
}

// Detect returns the dominant behavioral pattern for the aggregate, or
// PatternNormal when nothing stands out.
func (d *PatternDetector) Detect(state *models.StudentEngagementState) models.BehavioralPattern {
	if d.hasRapidIncorrectPattern(state) {
		return models.PatternRapidIncorrectSubmissions
	}
	if d.isStrugglingPattern(state) {
		return models.PatternStrugglingExtensively
	}
	return models.PatternNormal
}

func (d *PatternDetector) hasRapidIncorrectPattern(state *models.StudentEngagementState) bool {
	return state.ConsecutiveIncorrect >= d.thresholds.ConsecutiveIncorrectMin &&
		state.RapidSubmissions >= d.thresholds.RapidSubmissionsMin
}

func (d *PatternDetector) isStrugglingPattern(state *models.StudentEngagementState) bool {
	return state.AverageTimeSpent() > strugglingAvgTimeMs &&
		state.CorrectnessRate() < strugglingCorrectnessMax
}
