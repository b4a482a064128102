package models

import "strings"

// Event type identifiers carried in the envelope of inbound records.
const (
	EventTypeQuizAnswered = "quiz.answered"
	sessionTypePrefix     = "session."
)

// SessionEventType enumerates the session activity sub-types.
type SessionEventType string

const (
	SessionStarted    SessionEventType = "STARTED"
	SessionNavigation SessionEventType = "NAVIGATION"
	SessionDwell      SessionEventType = "DWELL"
	SessionPaused     SessionEventType = "PAUSED"
	SessionResumed    SessionEventType = "RESUMED"
)

// Envelope is the common header carried by every inbound and outbound record.
// Timestamp is the source-supplied event time in epoch milliseconds, not the
// ingestion time.
type Envelope struct {
	ID        string `json:"id" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp" validate:"required,gt=0"`
	Type      string `json:"type" validate:"required"`
	Source    string `json:"source"`
}

// QuizAnswerEvent is the wire shape of a quiz-answer record.
type QuizAnswerEvent struct {
	Envelope        Envelope     `json:"envelope" validate:"required"`
	QuestionID      string       `json:"questionId"`
	IsCorrect       *bool        `json:"isCorrect,omitempty"`
	TimeSpentMs     *int64       `json:"timeSpentMs,omitempty"`
	SkillTag        *string      `json:"skillTag,omitempty"`
	DifficultyLevel *int         `json:"difficultyLevel,omitempty"`
	ContextualData  *QuizContext `json:"contextualData,omitempty"`
}

// QuizContext holds auxiliary quiz signals nested inside a quiz-answer record.
type QuizContext struct {
	HintsUsed *int `json:"hintsUsed,omitempty"`
}

// SessionActivityEvent is the wire shape of a learning-session record.
type SessionActivityEvent struct {
	Envelope    Envelope         `json:"envelope" validate:"required"`
	EventType   SessionEventType `json:"eventType" validate:"required"`
	PageID      *string          `json:"pageId,omitempty"`
	DwellTimeMs *int64           `json:"dwellTimeMs,omitempty"`
}

// EnrichedEvent is the canonical normalized form of any inbound event.
// Exactly one variant (quiz or session) is populated, selected by EventType.
// Optional fields stay nil when absent on the wire; absence is never coerced
// to a zero value. Instances are immutable once constructed.
type EnrichedEvent struct {
	EventID   string
	StudentID string
	SessionID string
	Timestamp int64
	EventType string
	Source    string

	// Quiz variant
	QuestionID      string
	IsCorrect       *bool
	TimeSpentMs     *int64
	HintsUsed       *int
	SkillTag        *string
	DifficultyLevel *int

	// Session variant
	SessionEventType SessionEventType
	PageID           *string
	DwellTimeMs      *int64
}

// IsQuizAnswer reports whether the event carries the quiz variant.
func (e *EnrichedEvent) IsQuizAnswer() bool {
	return e.EventType == EventTypeQuizAnswered
}

// IsSessionEvent reports whether the event carries the session variant.
func (e *EnrichedEvent) IsSessionEvent() bool {
	return strings.HasPrefix(e.EventType, sessionTypePrefix)
}
