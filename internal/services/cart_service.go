package services

import (
	"context"
	"errors"
	"fmt"

	"eshop/internal/models"
	"eshop/internal/repositories"
	"eshop/pkg/metrics"

	"go.uber.org/zap"
)

// CartService mutates the per-user cart. Every mutation is one transaction
// holding the row lock of the user's cart, so concurrent requests of the same
// user are applied one after another.
type CartService struct {
	store   *repositories.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCartService creates a new CartService.
func NewCartService(store *repositories.Store, logger *zap.Logger, m *metrics.Metrics) *CartService {
	return &CartService{store: store, logger: logger, metrics: m}
}

// Get returns the cart lines of the user, empty when there is no cart.
func (s *CartService) Get(ctx context.Context, userID string) ([]models.CartLine, error) {
	cart, err := s.store.Carts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return []models.CartLine{}, nil
		}
		return nil, err
	}
	return cart.Items, nil
}

// Add puts qty units of the product into the cart, creating the cart on the
// first add. Title and price are taken from the catalog at this moment.
func (s *CartService) Add(ctx context.Context, userID, productID string, qty int) (*models.Cart, error) {
	if qty <= 0 || qty > models.MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}

	var cart *models.Cart
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		product, err := tx.Products.GetByID(ctx, productID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
			}
			return err
		}
		if err := tx.Carts.EnsureForUser(ctx, userID); err != nil {
			return err
		}
		if cart, err = tx.Carts.LockByUserID(ctx, userID); err != nil {
			return err
		}
		cart.Add(product, qty)
		return tx.Carts.Save(ctx, cart)
	})
	s.metrics.CartMutation("add", err)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Product added to cart", zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("quantity", qty))
	return cart, nil
}

// Remove drops the product line. The cart row is deleted once no line is left.
// Removing a product that is not in the cart is not an error.
func (s *CartService) Remove(ctx context.Context, userID, productID string) (*models.Cart, error) {
	var cart *models.Cart
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		if cart, err = s.lock(ctx, tx, userID); err != nil {
			return err
		}
		removed := cart.Remove(productID)
		if len(cart.Items) == 0 {
			return tx.Carts.Delete(ctx, cart.ID)
		}
		if !removed {
			return nil
		}
		return tx.Carts.Save(ctx, cart)
	})
	s.metrics.CartMutation("remove", err)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AdjustQuantity adds delta to the line quantity, never going below zero.
// A line at zero stays in the cart.
func (s *CartService) AdjustQuantity(ctx context.Context, userID, productID string, delta int) (*models.Cart, error) {
	var cart *models.Cart
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		if cart, err = s.lock(ctx, tx, userID); err != nil {
			return err
		}
		if !cart.Adjust(productID, delta) {
			return fmt.Errorf("product %s: %w", productID, ErrLineNotFound)
		}
		return tx.Carts.Save(ctx, cart)
	})
	s.metrics.CartMutation("adjust", err)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear deletes the cart of the user. Clearing a missing cart succeeds.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	existed, err := s.store.Carts.DeleteByUserID(ctx, userID)
	s.metrics.CartMutation("clear", err)
	if err != nil {
		return err
	}
	s.logger.Debug("Cart cleared", zap.String("user_id", userID), zap.Bool("existed", existed))
	return nil
}

func (s *CartService) lock(ctx context.Context, tx *repositories.Store, userID string) (*models.Cart, error) {
	cart, err := tx.Carts.LockByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrCartNotFound)
		}
		return nil, err
	}
	return cart, nil
}
