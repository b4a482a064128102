package models

// StudentEngagementState accumulates engagement signals for one student within
// one time window. It is the only mutable entity in the pipeline; each
// instance is owned by exactly one store shard for its lifetime and mutated
// once per incoming event.
type StudentEngagementState struct {
	// Identity
	StudentID   string
	SessionID   string
	WindowStart int64
	WindowEnd   int64

	// Quiz answer metrics
	TotalAnswers     int
	CorrectAnswers   int
	IncorrectAnswers int
	AnswerTimestamps []int64
	TimeSpentValues  []int64
	TotalTimeSpent   int64

	// Session activity metrics
	NavigationEvents int
	PauseEvents      int
	ResumeEvents     int
	TotalDwellTime   int64
	PagesVisited     map[string]struct{}

	// Pattern tracking
	ConsecutiveIncorrect int
	RapidSubmissions     int
	SkillTagAttempts     map[string]int

	// Temporal bounds by event-time value, independent of arrival order.
	FirstEventTimestamp *int64
	LastEventTimestamp  *int64

	TotalHintsUsed int
}

// NewStudentEngagementState returns an empty aggregate for a (student, window)
// pair.
func NewStudentEngagementState(studentID, sessionID string, windowStart, windowEnd int64) *StudentEngagementState {
	return &StudentEngagementState{
		StudentID:        studentID,
		SessionID:        sessionID,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		AnswerTimestamps: make([]int64, 0, 8),
		TimeSpentValues:  make([]int64, 0, 8),
		PagesVisited:     make(map[string]struct{}),
		SkillTagAttempts: make(map[string]int),
	}
}

// AddQuizAnswer folds a quiz-answer event into the aggregate. The rapid
// submission rule compares event times of consecutively arriving answers, so
// rapidIntervalMs must be the configured cutoff in milliseconds.
func (s *StudentEngagementState) AddQuizAnswer(event *EnrichedEvent, rapidIntervalMs int64) {
	s.TotalAnswers++

	if event.IsCorrect != nil && *event.IsCorrect {
		s.CorrectAnswers++
		s.ConsecutiveIncorrect = 0
	} else {
		s.IncorrectAnswers++
		s.ConsecutiveIncorrect++
	}

	if event.TimeSpentMs != nil {
		s.TimeSpentValues = append(s.TimeSpentValues, *event.TimeSpentMs)
		s.TotalTimeSpent += *event.TimeSpentMs
	}

	s.AnswerTimestamps = append(s.AnswerTimestamps, event.Timestamp)

	if n := len(s.AnswerTimestamps); n > 1 {
		if s.AnswerTimestamps[n-1]-s.AnswerTimestamps[n-2] < rapidIntervalMs {
			s.RapidSubmissions++
		}
	}

	if event.SkillTag != nil {
		s.SkillTagAttempts[*event.SkillTag]++
	}

	if event.HintsUsed != nil {
		s.TotalHintsUsed += *event.HintsUsed
	}

	s.updateTimestamps(event.Timestamp)
}

// AddSessionEvent folds a session activity event into the aggregate.
func (s *StudentEngagementState) AddSessionEvent(event *EnrichedEvent) {
	switch event.SessionEventType {
	case SessionNavigation:
		s.NavigationEvents++
		if event.PageID != nil {
			s.PagesVisited[*event.PageID] = struct{}{}
		}
	case SessionPaused:
		s.PauseEvents++
	case SessionResumed:
		s.ResumeEvents++
	case SessionDwell:
		if event.DwellTimeMs != nil {
			s.TotalDwellTime += *event.DwellTimeMs
		}
	}

	s.updateTimestamps(event.Timestamp)
}

func (s *StudentEngagementState) updateTimestamps(eventTimestamp int64) {
	if s.FirstEventTimestamp == nil || eventTimestamp < *s.FirstEventTimestamp {
		ts := eventTimestamp
		s.FirstEventTimestamp = &ts
	}
	if s.LastEventTimestamp == nil || eventTimestamp > *s.LastEventTimestamp {
		ts := eventTimestamp
		s.LastEventTimestamp = &ts
	}
}

// CorrectnessRate is correct answers over total answers, 0 with no answers.
func (s *StudentEngagementState) CorrectnessRate() float64 {
	if s.TotalAnswers == 0 {
		return 0.0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalAnswers)
}

// AverageTimeSpent is the mean of the recorded time-spent samples, 0 with none.
func (s *StudentEngagementState) AverageTimeSpent() float64 {
	if len(s.TimeSpentValues) == 0 {
		return 0.0
	}
	return float64(s.TotalTimeSpent) / float64(len(s.TimeSpentValues))
}

// QuestionsPerMinute is the answering rate over the active time span.
func (s *StudentEngagementState) QuestionsPerMinute() float64 {
	if s.FirstEventTimestamp == nil || s.LastEventTimestamp == nil {
		return 0.0
	}
	durationMs := *s.LastEventTimestamp - *s.FirstEventTimestamp
	if durationMs == 0 {
		return 0.0
	}
	return float64(s.TotalAnswers) / (float64(durationMs) / 60000.0)
}

// UniqueSkillsAttempted counts distinct skill tags seen in this window.
func (s *StudentEngagementState) UniqueSkillsAttempted() int {
	return len(s.SkillTagAttempts)
}

// ActiveTimeMs is the span between the first and last event time, 0 if unset.
func (s *StudentEngagementState) ActiveTimeMs() int64 {
	if s.FirstEventTimestamp == nil || s.LastEventTimestamp == nil {
		return 0
	}
	return *s.LastEventTimestamp - *s.FirstEventTimestamp
}
