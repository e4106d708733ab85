// Package kafkastream reads bucket notifications from the Kafka topic a
// MinIO Kafka target publishes to.
package kafkastream

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Config selects the brokers, topic and consumer group.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer hands topic messages to a handler.
type Consumer struct {
	cfg       Config
	logger    *zap.Logger
	newReader func(Config) Reader
}

// New creates a consumer. When cfg.GroupID is empty the group is derived from
// the bucket passed to Consume.
func New(cfg Config, logger *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka brokers and topic are required")
	}
	return &Consumer{cfg: cfg, logger: logger, newReader: newKafkaReader}, nil
}

func newKafkaReader(cfg Config) Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6, // 1MB
	})
}

// Consume reads messages until ctx ends. Offsets are committed after the
// handler returns, whether or not it succeeded.
func (c *Consumer) Consume(ctx context.Context, bucket string, handle func(ctx context.Context, body []byte) error) error {
	cfg := c.cfg
	if cfg.GroupID == "" {
		cfg.GroupID = "eshop-" + bucket
	}
	r := c.newReader(cfg)
	defer r.Close()

	c.logger.Info("Kafka consumer started", zap.String("topic", cfg.Topic), zap.String("group", cfg.GroupID))
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		if err := handle(ctx, m.Value); err != nil {
			c.logger.Error("Failed to process message",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit offset: %w", err)
		}
	}
}

// Close is a no-op; Consume closes its reader on return.
func (c *Consumer) Close() error { return nil }
