package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"eshop/internal/models"
	"eshop/internal/repositories"
	"eshop/pkg/metrics"

	"go.uber.org/zap"
)

// Dispatcher delivers a committed outbox event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *models.OutboxEvent) error
}

// CheckoutRequest is one checkout attempt of an authenticated user.
type CheckoutRequest struct {
	UserID         string
	Payment        models.PaymentDetails
	IdempotencyKey string
}

// CheckoutResult describes the order a checkout produced.
type CheckoutResult struct {
	Order *models.Order
	// Replayed is set when the idempotency key matched an earlier order.
	Replayed bool
	// Notified is false when no confirmation could be queued for the order.
	Notified bool
}

// CheckoutService turns a cart into an order.
type CheckoutService struct {
	store      *repositories.Store
	dispatcher Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewCheckoutService creates a new CheckoutService. dispatcher may be nil, in
// which case confirmations are only picked up by the relay loop.
func NewCheckoutService(store *repositories.Store, dispatcher Dispatcher, logger *zap.Logger, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// Checkout snapshots the cart of req.UserID into an order. The order, its
// items, the confirmation outbox event and the cart deletion commit together.
// Delivery of the confirmation happens after the commit and never fails the
// checkout.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	var (
		result = &CheckoutResult{}
		event  *models.OutboxEvent
	)

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		cart, err := tx.Carts.LockByUserID(ctx, req.UserID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		if req.IdempotencyKey != "" {
			existing, err := tx.Orders.GetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
			if err == nil {
				notified, err := tx.Outbox.Exists(ctx, models.EventOrderConfirmation, existing.ID)
				if err != nil {
					return err
				}
				result.Order, result.Replayed, result.Notified = existing, true, notified
				return nil
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
		}

		if cart == nil || len(cart.Billable()) == 0 {
			return ErrCartEmpty
		}

		order := s.buildOrder(cart, req)
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		result.Order = order

		user, err := tx.Users.GetByID(ctx, req.UserID)
		switch {
		case err == nil:
			if event, err = NewOrderConfirmationEvent(order, user, s.now()); err != nil {
				return err
			}
			if err := tx.Outbox.Create(ctx, event); err != nil {
				return err
			}
			result.Notified = true
		case errors.Is(err, repositories.ErrNotFound):
			s.logger.Error("Order owner not found, confirmation skipped",
				zap.String("order_id", order.ID), zap.String("user_id", req.UserID))
		default:
			return err
		}

		return tx.Carts.Delete(ctx, cart.ID)
	})

	if err != nil {
		// A concurrent request with the same key won the insert.
		if errors.Is(err, repositories.ErrDuplicate) && req.IdempotencyKey != "" {
			return s.replay(ctx, req)
		}
		if errors.Is(err, ErrCartEmpty) {
			s.metrics.Checkout("empty")
		} else {
			s.metrics.Checkout("error")
		}
		return nil, err
	}

	if result.Replayed {
		s.metrics.Checkout("replayed")
		s.logger.Info("Checkout replayed", zap.String("order_id", result.Order.ID), zap.String("user_id", req.UserID))
		return result, nil
	}

	s.metrics.Checkout("placed")
	s.logger.Info("Order placed",
		zap.String("order_id", result.Order.ID),
		zap.String("user_id", req.UserID),
		zap.String("total", result.Order.TotalAmount.StringFixed(2)))

	if event != nil && s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, event); err != nil {
			s.logger.Warn("Order confirmation left pending", zap.String("order_id", result.Order.ID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *CheckoutService) replay(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	existing, err := s.store.Orders.GetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		s.metrics.Checkout("error")
		return nil, err
	}
	notified, err := s.store.Outbox.Exists(ctx, models.EventOrderConfirmation, existing.ID)
	if err != nil {
		s.metrics.Checkout("error")
		return nil, err
	}
	s.metrics.Checkout("replayed")
	return &CheckoutResult{Order: existing, Replayed: true, Notified: notified}, nil
}

func (s *CheckoutService) buildOrder(cart *models.Cart, req CheckoutRequest) *models.Order {
	lines := cart.Billable()
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			ProductID: l.ProductID,
			Title:     l.Title,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
	}

	order := &models.Order{
		UserID:       req.UserID,
		Items:        items,
		TotalAmount:  cart.Total(),
		Status:       models.OrderStatusPlaced,
		PaymentOwner: req.Payment.Owner,
		IBANLast4:    ibanLast4(req.Payment.IBAN),
		CreatedAt:    s.now(),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}
	return order
}

// ibanLast4 keeps the last four characters of the IBAN, ignoring spaces.
func ibanLast4(iban string) string {
	compact := strings.ReplaceAll(iban, " ", "")
	if len(compact) <= 4 {
		return compact
	}
	return compact[len(compact)-4:]
}
