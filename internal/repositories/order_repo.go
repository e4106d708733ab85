package repositories

import (
	"context"

	"eshop/internal/models"
)

// OrderRepository defines the interface for order data access. Orders are
// insert-only.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
}
