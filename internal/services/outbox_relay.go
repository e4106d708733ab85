package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eshop/internal/models"
	"eshop/internal/repositories"
	"eshop/pkg/metrics"

	"go.uber.org/zap"
)

// relayBatchSize caps the events dispatched per relay tick.
const relayBatchSize = 50

// Mailbox stores notification payloads as objects.
type Mailbox interface {
	Put(ctx context.Context, bucket, key string, body []byte) error
}

// Announcer tells the notification workers that an object was written.
type Announcer interface {
	Announce(ctx context.Context, bucket, key string) error
}

// OutboxRelay moves outbox events into the mailbox.
type OutboxRelay struct {
	outbox    repositories.OutboxRepository
	mailbox   Mailbox
	announcer Announcer
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewOutboxRelay creates a relay writing to mailbox.
func NewOutboxRelay(outbox repositories.OutboxRepository, mailbox Mailbox, logger *zap.Logger) *OutboxRelay {
	return &OutboxRelay{
		outbox:  outbox,
		mailbox: mailbox,
		logger:  logger,
		now:     time.Now,
	}
}

// WithAnnouncer publishes an object-created event after every mailbox write.
func (r *OutboxRelay) WithAnnouncer(a Announcer) *OutboxRelay {
	r.announcer = a
	return r
}

func (r *OutboxRelay) WithMetrics(m *metrics.Metrics) *OutboxRelay {
	r.metrics = m
	return r
}

// Dispatch writes the event payload to its bucket, announces it when an
// announcer is set, and records the outcome on the event row. The event stays
// pending until both steps succeed; a retry rewrites the same object key.
func (r *OutboxRelay) Dispatch(ctx context.Context, event *models.OutboxEvent) error {
	err := r.deliver(ctx, event)
	r.metrics.OutboxDispatch(event.Kind, err)
	if err != nil {
		if markErr := r.outbox.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			r.logger.Error("Failed to record outbox failure", zap.String("event_id", event.ID), zap.Error(markErr))
		}
		return err
	}

	if err := r.outbox.MarkDispatched(ctx, event.ID, r.now()); err != nil {
		// The object is stored; a later run may write it again.
		r.logger.Error("Failed to mark outbox event dispatched", zap.String("event_id", event.ID), zap.Error(err))
	}
	r.logger.Info("Notification stored in mailbox",
		zap.String("kind", event.Kind),
		zap.String("bucket", event.Bucket),
		zap.String("key", event.ObjectKey))
	return nil
}

func (r *OutboxRelay) deliver(ctx context.Context, event *models.OutboxEvent) error {
	if err := r.mailbox.Put(ctx, event.Bucket, event.ObjectKey, event.Payload); err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", event.Bucket, event.ObjectKey, err)
	}
	if r.announcer == nil {
		return nil
	}
	if err := r.announcer.Announce(ctx, event.Bucket, event.ObjectKey); err != nil {
		return fmt.Errorf("failed to announce %s/%s: %w", event.Bucket, event.ObjectKey, err)
	}
	return nil
}

// Enqueue persists event and attempts an immediate dispatch. Dispatch errors
// are logged only; the relay loop retries the event.
func (r *OutboxRelay) Enqueue(ctx context.Context, event *models.OutboxEvent) error {
	if err := r.outbox.Create(ctx, event); err != nil {
		return err
	}
	if err := r.Dispatch(ctx, event); err != nil {
		r.logger.Warn("Notification left pending", zap.String("event_id", event.ID), zap.Error(err))
	}
	return nil
}

// NotifyRegistration queues the welcome notification for a new user.
func (r *OutboxRelay) NotifyRegistration(ctx context.Context, user *models.User) {
	event, err := NewWelcomeEvent(user, r.now())
	if err != nil {
		r.logger.Error("Failed to build welcome notification", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	if err := r.Enqueue(ctx, event); err != nil {
		r.logger.Error("Failed to queue welcome notification", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// DispatchPending sends up to one batch of pending events, oldest first, and
// returns how many reached the mailbox.
func (r *OutboxRelay) DispatchPending(ctx context.Context) (int, error) {
	events, err := r.outbox.ListPending(ctx, relayBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range events {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := r.Dispatch(ctx, &events[i]); err != nil {
			r.logger.Warn("Outbox dispatch failed",
				zap.String("event_id", events[i].ID),
				zap.Int("attempts", events[i].Attempts+1),
				zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// Run dispatches pending events every interval until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	r.logger.Info("Outbox relay started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := r.DispatchPending(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Outbox relay pass failed", zap.Error(err))
		} else if n > 0 {
			r.logger.Info("Outbox relay dispatched events", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// NewWelcomeEvent builds the user-registrations notification for user.
func NewWelcomeEvent(user *models.User, at time.Time) (*models.OutboxEvent, error) {
	payload, err := json.Marshal(models.WelcomeMessage{
		UserData: models.WelcomeData{
			UserID:           user.ID,
			Username:         user.Username,
			Email:            user.Email,
			RegistrationDate: at.UTC(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode welcome message: %w", err)
	}
	return &models.OutboxEvent{
		Kind:      models.EventWelcome,
		SubjectID: user.ID,
		Bucket:    models.BucketUserRegistrations,
		ObjectKey: fmt.Sprintf("user-%s-%d.json", user.ID, at.UnixMilli()),
		Payload:   payload,
	}, nil
}

// NewOrderConfirmationEvent builds the order-confirmations notification for
// an order placed by user.
func NewOrderConfirmationEvent(order *models.Order, user *models.User, at time.Time) (*models.OutboxEvent, error) {
	items := make([]models.NotificationItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, models.NotificationItem{
			ID:       it.ProductID,
			Name:     it.Title,
			Price:    models.FlexFloat(it.Price.InexactFloat64()),
			Quantity: models.FlexInt(it.Quantity),
		})
	}

	payload, err := json.Marshal(models.OrderConfirmationMessage{
		OrderData: models.OrderConfirmationData{
			OrderID:   order.ID,
			UserID:    user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Items:     items,
			Total:     models.FlexFloat(order.TotalAmount.InexactFloat64()),
			OrderDate: order.CreatedAt.UTC(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order confirmation: %w", err)
	}
	return &models.OutboxEvent{
		Kind:      models.EventOrderConfirmation,
		SubjectID: order.ID,
		Bucket:    models.BucketOrderConfirmations,
		ObjectKey: fmt.Sprintf("order-%s-%d.json", order.ID, at.UnixMilli()),
		Payload:   payload,
	}, nil
}
