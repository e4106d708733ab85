// Package rabbitmq carries bucket notifications over a RabbitMQ topic
// exchange: the API announces new mailbox objects and the notification
// workers consume them.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"eshop/pkg/events"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DefaultExchange is the exchange bucket notifications are published to.
const DefaultExchange = "mailbox"

// ErrChannelClosed is returned by Consume when the broker closes the delivery
// channel.
var ErrChannelClosed = errors.New("rabbitmq delivery channel closed")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	cfg      Config
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
	mu       sync.Mutex // guards the connection and channel publishes
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
}

// NewClient connects to RabbitMQ, opens a channel and declares the durable
// topic exchange.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	c := NewAnnouncer(cfg, logger)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewAnnouncer returns a client that connects on the first Announce and
// redials whenever the broker connection is lost.
func NewAnnouncer(cfg Config, logger *zap.Logger) *Client {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Client{cfg: cfg, exchange: exchange, logger: logger}
}

// connect dials the broker and declares the exchange. Callers hold mu or own
// the client exclusively.
func (c *Client) connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel creation fails
		return fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		c.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", c.exchange, err)
	}

	c.conn = conn
	c.channel = ch
	c.logger.Info("RabbitMQ client connected", zap.String("exchange", c.exchange))
	return nil
}

func (c *Client) connected() bool {
	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	c.channel, c.conn = nil, nil
	return errors.Join(errs...)
}

// Announce publishes an object-created notification for bucket/key, routed
// by the bucket name. A lost connection is redialed first; a failed publish
// drops the connection so the next call starts fresh.
func (c *Client) Announce(ctx context.Context, bucket, key string) error {
	body, err := json.Marshal(events.NewObjectCreated(bucket, key, 0, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected() {
		c.closeLocked()
		if err := c.connect(); err != nil {
			return err
		}
	}
	err = c.channel.Publish(
		c.exchange, // exchange
		bucket,     // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		c.closeLocked()
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	c.logger.Debug("Announced mailbox object", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

// QueueName is the durable queue a worker of bucket reads from.
func QueueName(bucket string) string {
	return bucket + ".events"
}

// Consume binds the bucket queue to the exchange and hands every delivery to
// handle until ctx ends. Deliveries are acked on success and nacked without
// requeue on failure. It returns ErrChannelClosed when the broker goes away.
func (c *Client) Consume(ctx context.Context, bucket string, handle func(ctx context.Context, body []byte) error) error {
	if c.channel == nil {
		return ErrChannelClosed
	}
	queue, err := c.channel.QueueDeclare(
		QueueName(bucket), // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue for consuming: %w", err)
	}
	if err := c.channel.QueueBind(queue.Name, bucket, c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue.Name, err)
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Waiting for bucket notifications", zap.String("queue", queue.Name))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}
			if err := handle(ctx, msg.Body); err != nil {
				c.logger.Error("Error processing message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
				// Dropped without requeue.
				if nackErr := msg.Nack(false, false); nackErr != nil {
					c.logger.Error("Error nacking message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.logger.Error("Error acking message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
			}
		}
	}
}
