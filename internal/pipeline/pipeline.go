// Package pipeline merges the two normalized event streams, feeds the sharded
// aggregate store, and emits a freshly computed engagement score after every
// update. Scores refine continuously while a window is open; downstream
// consumers always see the latest view per student.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EduPulseAI/engagement-service/internal/models"
	"github.com/EduPulseAI/engagement-service/internal/service"
	"github.com/EduPulseAI/engagement-service/internal/store"
	"github.com/EduPulseAI/engagement-service/pkg/config"
	apperrors "github.com/EduPulseAI/engagement-service/pkg/errors"
)

// Stream labels used in logs and metrics.
const (
	StreamQuizAnswers   = "quiz_answers"
	StreamSessionEvents = "session_events"
)

// ScorePublisher delivers scores to the outbound stream.
type ScorePublisher interface {
	PublishScore(ctx context.Context, score models.EngagementScore) error
}

// LatestScoreWriter keeps the most recent score per student for the ops API.
type LatestScoreWriter interface {
	SetLatest(ctx context.Context, score models.EngagementScore) error
}

// HistoryWriter appends emitted scores for offline analysis.
type HistoryWriter interface {
	Insert(ctx context.Context, score models.EngagementScore) error
}

// Driver wires normalization, windowed aggregation and scoring together.
// Publisher is required; cache and history sinks are optional and failures
// there never block score emission.
type Driver struct {
	normalizer  *service.NormalizerService
	scoring     *service.ScoringService
	patterns    *service.PatternDetector
	store       *store.Store
	validate    *validator.Validate
	publisher   ScorePublisher
	cache       LatestScoreWriter
	history     HistoryWriter
	metrics     *service.MetricsService
	logger      *zap.Logger
	serviceName string

	ctx context.Context
}

// Options carries the optional collaborators of the driver.
type Options struct {
	Cache   LatestScoreWriter
	History HistoryWriter
}

// NewDriver constructs the pipeline driver and its aggregate store.
func NewDriver(
	cfg *config.Config,
	normalizer *service.NormalizerService,
	scoring *service.ScoringService,
	patterns *service.PatternDetector,
	assigner *service.WindowAssigner,
	publisher ScorePublisher,
	metrics *service.MetricsService,
	logger *zap.Logger,
	opts Options,
) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Driver{
		normalizer:  normalizer,
		scoring:     scoring,
		patterns:    patterns,
		validate:    validator.New(),
		publisher:   publisher,
		cache:       opts.Cache,
		history:     opts.History,
		metrics:     metrics,
		logger:      logger,
		serviceName: cfg.ServiceName,
	}

	d.store = store.New(cfg.Pipeline, cfg.Scoring, assigner, d.handleUpdate, logger, metrics)

	return d
}

// Start launches the aggregation workers.
func (d *Driver) Start(ctx context.Context) {
	d.ctx = ctx
	d.store.Start(ctx)
}

// Stop drains in-flight events and stops the workers. Consumers must be
// stopped first so no new events arrive while draining.
func (d *Driver) Stop() {
	d.store.Stop()
}

// Ready reports whether the pipeline is accepting events.
func (d *Driver) Ready() bool {
	return d.store.Running()
}

// HandleQuizAnswer decodes, validates and applies one quiz-answer record.
// Malformed records are counted and skipped.
func (d *Driver) HandleQuizAnswer(ctx context.Context, value []byte) error {
	var event models.QuizAnswerEvent
	if err := json.Unmarshal(value, &event); err != nil {
		d.metrics.RecordMalformed(StreamQuizAnswers)
		return apperrors.Wrap(err, apperrors.ErrMalformedEvent.Code, apperrors.ErrMalformedEvent.Message)
	}
	if err := d.validate.Struct(&event); err != nil {
		d.metrics.RecordMalformed(StreamQuizAnswers)
		return apperrors.Wrap(err, apperrors.ErrInvalidEnvelope.Code, apperrors.ErrInvalidEnvelope.Message)
	}

	d.metrics.RecordConsumed(StreamQuizAnswers)
	d.logger.Debug("consumed quiz answer",
		zap.String("student_id", event.Envelope.StudentID),
		zap.String("question_id", event.QuestionID),
	)

	return d.store.Apply(d.normalizer.FromQuizAnswer(&event))
}

// HandleSessionEvent decodes, validates and applies one session record.
func (d *Driver) HandleSessionEvent(ctx context.Context, value []byte) error {
	var event models.SessionActivityEvent
	if err := json.Unmarshal(value, &event); err != nil {
		d.metrics.RecordMalformed(StreamSessionEvents)
		return apperrors.Wrap(err, apperrors.ErrMalformedEvent.Code, apperrors.ErrMalformedEvent.Message)
	}
	if err := d.validate.Struct(&event); err != nil {
		d.metrics.RecordMalformed(StreamSessionEvents)
		return apperrors.Wrap(err, apperrors.ErrInvalidEnvelope.Code, apperrors.ErrInvalidEnvelope.Message)
	}

	d.metrics.RecordConsumed(StreamSessionEvents)
	d.logger.Debug("consumed session event",
		zap.String("student_id", event.Envelope.StudentID),
		zap.String("event_type", string(event.EventType)),
	)

	return d.store.Apply(d.normalizer.FromSessionEvent(&event))
}

// handleUpdate runs on the shard goroutine after every apply: it recomputes
// the score from the updated aggregate and emits it keyed by student.
func (d *Driver) handleUpdate(state *models.StudentEngagementState) {
	score := d.scoring.Calculate(state)
	score.Envelope.ID = uuid.NewString()
	score.Envelope.Timestamp = time.Now().UnixMilli()
	score.Envelope.Source = d.serviceName

	if score.AlertThresholdCrossed {
		d.logger.Warn("low engagement alert",
			zap.String("student_id", score.Envelope.StudentID),
			zap.Float64("score", score.Score),
			zap.String("trend", string(score.Trend)),
		)
	}

	if pattern := d.patterns.Detect(state); pattern != models.PatternNormal {
		d.metrics.RecordPattern(pattern)
		d.logger.Info("behavioral pattern detected",
			zap.String("student_id", state.StudentID),
			zap.String("pattern", string(pattern)),
		)
	}

	d.emit(score)
}

func (d *Driver) emit(score models.EngagementScore) {
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	if err := d.publisher.PublishScore(ctx, score); err != nil {
		d.logger.Error("publish score failed",
			zap.String("student_id", score.Envelope.StudentID),
			zap.Error(err),
		)
	}

	if d.cache != nil {
		if err := d.cache.SetLatest(ctx, score); err != nil {
			d.logger.Warn("cache latest score failed",
				zap.String("student_id", score.Envelope.StudentID),
				zap.Error(err),
			)
		}
	}

	if d.history != nil {
		if err := d.history.Insert(ctx, score); err != nil {
			d.logger.Warn("persist score history failed",
				zap.String("student_id", score.Envelope.StudentID),
				zap.Error(err),
			)
		}
	}

	d.metrics.ObserveEmit(time.Since(start))
	d.metrics.RecordScoreEmitted(score.AlertThresholdCrossed)

	d.logger.Info("computed engagement score",
		zap.String("student_id", score.Envelope.StudentID),
		zap.Float64("score", score.Score),
		zap.String("trend", string(score.Trend)),
		zap.Bool("alert", score.AlertThresholdCrossed),
	)
}
