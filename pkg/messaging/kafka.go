// Package messaging wraps the Kafka transport. Delivery guarantees are the
// broker's concern; this layer only moves bytes and leaves skip-and-continue
// decisions to the record handlers.
package messaging

import (
	"context"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/EduPulseAI/engagement-service/pkg/config"
)

// RecordHandler processes one raw record from a topic. A returned error is
// logged and the consumer moves on to the next record.
type RecordHandler func(ctx context.Context, value []byte) error

// NewReader builds a consumer-group reader for one topic.
func NewReader(cfg config.KafkaConfig, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
	})
}

// Consumer pumps records from one reader into a handler.
type Consumer struct {
	reader  *kafka.Reader
	handler RecordHandler
	stream  string
	logger  *zap.Logger
}

// NewConsumer constructs a consumer for one inbound stream.
func NewConsumer(reader *kafka.Reader, handler RecordHandler, stream string, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, handler: handler, stream: stream, logger: logger}
}

// Run consumes until the context is cancelled. Handler errors are logged and
// skipped; the pipeline never halts on a bad record.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Sugar().Infow("consumer started", "stream", c.stream, "topic", c.reader.Config().Topic)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Sugar().Infow("consumer stopped", "stream", c.stream)
				return nil
			}
			return err
		}

		if err := c.handler(ctx, msg.Value); err != nil {
			c.logger.Warn("record skipped",
				zap.String("stream", c.stream),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
