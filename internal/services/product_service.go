package services

import (
	"context"
	"errors"
	"fmt"

	"eshop/internal/models"
	"eshop/internal/repositories"
)

// ProductService handles read access to the catalog.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetProducts returns the whole catalog, or only the products of category
// when it is not empty.
func (s *ProductService) GetProducts(ctx context.Context, category string) ([]models.Product, error) {
	if category == "" {
		return s.repo.GetAll(ctx)
	}
	return s.repo.GetByCategory(ctx, category)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrProductNotFound)
		}
		return nil, err
	}
	return product, nil
}
