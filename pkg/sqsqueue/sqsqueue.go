// Package sqsqueue reads bucket notifications that S3 or MinIO deliver to an
// SQS queue.
package sqsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// API is the part of the SQS client the consumer uses.
type API interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls one queue.
type Consumer struct {
	client   API
	queueURL string
	logger   *zap.Logger
}

// New creates a consumer for queueURL using the SDK configuration cfg.
func New(cfg aws.Config, queueURL string, logger *zap.Logger) (*Consumer, error) {
	if queueURL == "" {
		return nil, errors.New("SQS_QUEUE_URL is not set")
	}
	return NewWithClient(sqs.NewFromConfig(cfg), queueURL, logger), nil
}

func NewWithClient(client API, queueURL string, logger *zap.Logger) *Consumer {
	return &Consumer{client: client, queueURL: queueURL, logger: logger}
}

// snsEnvelope unwraps the SNS to SQS message wrapper
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// Consume polls until ctx ends. Messages are deleted after handle succeeds and
// left for redelivery otherwise. The bucket argument is unused; a queue
// carries the events of the buckets configured to notify it.
func (c *Consumer) Consume(ctx context.Context, bucket string, handle func(ctx context.Context, body []byte) error) error {
	c.logger.Info("SQS consumer started", zap.String("queue", c.queueURL))
	for {
		if ctx.Err() != nil {
			c.logger.Info("SQS consumer shutting down")
			return nil
		}
		if err := c.pollOnce(ctx, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Consumer) pollOnce(ctx context.Context, handle func(ctx context.Context, body []byte) error) error {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20, // Long polling
		VisibilityTimeout:   30,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range out.Messages {
		if msg.Body == nil {
			continue
		}
		if err := handle(ctx, unwrap(*msg.Body)); err != nil {
			c.logger.Error("Failed to process message", zap.Error(err))
			// Becomes visible again after the visibility timeout
			continue
		}
		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(c.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Error("Failed to delete message", zap.Error(err))
		}
	}
	return nil
}

// unwrap returns the inner message of an SNS notification, or body as is.
func unwrap(body string) []byte {
	var env snsEnvelope
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Type == "Notification" && env.Message != "" {
		return []byte(env.Message)
	}
	return []byte(body)
}

// Close is a no-op; the SQS client holds no connection.
func (c *Consumer) Close() error { return nil }
