package repositories

import (
	"context"
	"errors"
	"fmt"

	"eshop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// GetByUserID reads the user's cart without locking it.
func (r *GORMCartRepository) GetByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	return r.find(r.db.WithContext(ctx), userID)
}

// LockByUserID reads the user's cart with SELECT ... FOR UPDATE. SQLite has no
// row locks; its driver drops the clause and relies on the database write lock.
func (r *GORMCartRepository) LockByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *GORMCartRepository) find(db *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart of user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart of user %s: %w", userID, err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartLine{}
	}
	return &cart, nil
}

// EnsureForUser creates an empty cart row; an existing row is left untouched.
func (r *GORMCartRepository) EnsureForUser(ctx context.Context, userID string) error {
	cart := models.Cart{UserID: userID, Items: []models.CartLine{}}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error
	if err != nil {
		return fmt.Errorf("failed to create cart for user %s: %w", userID, err)
	}
	return nil
}

// Save writes the cart lines back.
func (r *GORMCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	res := r.db.WithContext(ctx).Model(cart).Select("items", "updated_at").Updates(cart)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart %d: %w", cart.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart %d: %w", cart.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a cart row by its ID.
func (r *GORMCartRepository) Delete(ctx context.Context, cartID uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Cart{}, cartID).Error; err != nil {
		return fmt.Errorf("failed to delete cart %d: %w", cartID, err)
	}
	return nil
}

// DeleteByUserID removes the user's cart and reports whether a row existed.
func (r *GORMCartRepository) DeleteByUserID(ctx context.Context, userID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Cart{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete cart of user %s: %w", userID, res.Error)
	}
	return res.RowsAffected > 0, nil
}
