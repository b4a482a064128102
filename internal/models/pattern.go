package models

// BehavioralPattern classifies notable behavior in a window. Patterns are
// detected for observability and never feed back into score computation.
type BehavioralPattern string

const (
	PatternNormal                    BehavioralPattern = "normal"
	PatternRapidIncorrectSubmissions BehavioralPattern = "rapid_incorrect_submissions"
	PatternStrugglingExtensively     BehavioralPattern = "struggling_extensively"
	PatternRushingThrough            BehavioralPattern = "rushing_through"
	PatternExcessiveHints            BehavioralPattern = "excessive_hints"
	PatternFrequentPauses            BehavioralPattern = "frequent_pauses"
	PatternMinimalEngagement         BehavioralPattern = "minimal_engagement"
)
