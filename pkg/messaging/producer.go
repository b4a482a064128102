package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/EduPulseAI/engagement-service/internal/models"
	"github.com/EduPulseAI/engagement-service/pkg/config"
)

// ScoreProducer publishes engagement scores keyed by student id so that all
// scores for one student land on the same partition.
type ScoreProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewScoreProducer constructs a producer for the outbound score topic.
func NewScoreProducer(cfg config.KafkaConfig, logger *zap.Logger) *ScoreProducer {
	if logger == nil {
		logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.ScoresTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}

	return &ScoreProducer{writer: writer, logger: logger}
}

// PublishScore writes one score record keyed by student id.
func (p *ScoreProducer) PublishScore(ctx context.Context, score models.EngagementScore) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("marshal engagement score: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(score.Envelope.StudentID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write engagement score: %w", err)
	}

	return nil
}

// Close flushes and releases the underlying writer.
func (p *ScoreProducer) Close() error {
	return p.writer.Close()
}
