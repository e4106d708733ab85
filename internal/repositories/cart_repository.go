package repositories

import (
	"context"

	"eshop/internal/models"
)

// CartRepository defines the interface for cart data access. Lock and Ensure
// are meant to be called inside a transaction.
type CartRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Cart, error)
	// LockByUserID reads the cart row and holds a row lock until the
	// surrounding transaction ends.
	LockByUserID(ctx context.Context, userID string) (*models.Cart, error)
	// EnsureForUser inserts an empty cart unless the user already has one.
	EnsureForUser(ctx context.Context, userID string) error
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, cartID uint) error
	DeleteByUserID(ctx context.Context, userID string) (bool, error)
}
