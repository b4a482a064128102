package models

// EngagementTrend is the qualitative classification of a score.
type EngagementTrend string

const (
	TrendRising    EngagementTrend = "RISING"
	TrendStable    EngagementTrend = "STABLE"
	TrendDeclining EngagementTrend = "DECLINING"
	TrendCritical  EngagementTrend = "CRITICAL"
)

// ScoreComponents breaks the composite score into its sub-scores. The
// attention score is reserved and never computed; it stays nil and its weight
// defaults to zero.
type ScoreComponents struct {
	AccuracyScore  float64  `json:"accuracyScore"`
	DwellScore     float64  `json:"dwellScore"`
	PacingScore    float64  `json:"pacingScore"`
	AttentionScore *float64 `json:"attentionScore,omitempty"`
}

// EngagementScore is the immutable output record emitted after every
// aggregate update. The output stream is keyed by StudentID; the window
// bounds ride along as provenance only.
type EngagementScore struct {
	Envelope              Envelope        `json:"envelope"`
	Score                 float64         `json:"score"`
	ScoreComponents       ScoreComponents `json:"scoreComponents"`
	Trend                 EngagementTrend `json:"trend"`
	AlertThresholdCrossed bool            `json:"alertThresholdCrossed"`
	WindowStart           int64           `json:"windowStart"`
	WindowEnd             int64           `json:"windowEnd"`
}
