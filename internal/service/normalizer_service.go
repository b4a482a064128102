package service

import (
	"github.com/EduPulseAI/engagement-service/internal/models"
)

// NormalizerService converts the two inbound event shapes into the canonical
// EnrichedEvent. Both mappings are pure and total: absent optional fields stay
// nil and are never defaulted, so downstream aggregation can distinguish "no
// hints used" from "hints field absent".
type NormalizerService struct{}

// NewNormalizerService constructs a normalizer.
func NewNormalizerService() *NormalizerService {
	return &NormalizerService{}
}

// FromQuizAnswer maps a quiz-answer record to its canonical form.
func (s *NormalizerService) FromQuizAnswer(event *models.QuizAnswerEvent) *models.EnrichedEvent {
	enriched := &models.EnrichedEvent{
		EventID:         event.Envelope.ID,
		StudentID:       event.Envelope.StudentID,
		SessionID:       event.Envelope.SessionID,
		Timestamp:       event.Envelope.Timestamp,
		EventType:       event.Envelope.Type,
		Source:          event.Envelope.Source,
		QuestionID:      event.QuestionID,
		IsCorrect:       event.IsCorrect,
		TimeSpentMs:     event.TimeSpentMs,
		SkillTag:        event.SkillTag,
		DifficultyLevel: event.DifficultyLevel,
	}
	if event.ContextualData != nil {
		enriched.HintsUsed = event.ContextualData.HintsUsed
	}
	return enriched
}

// FromSessionEvent maps a session activity record to its canonical form.
func (s *NormalizerService) FromSessionEvent(event *models.SessionActivityEvent) *models.EnrichedEvent {
	return &models.EnrichedEvent{
		EventID:          event.Envelope.ID,
		StudentID:        event.Envelope.StudentID,
		SessionID:        event.Envelope.SessionID,
		Timestamp:        event.Envelope.Timestamp,
		EventType:        event.Envelope.Type,
		Source:           event.Envelope.Source,
		SessionEventType: event.EventType,
		PageID:           event.PageID,
		DwellTimeMs:      event.DwellTimeMs,
	}
}
