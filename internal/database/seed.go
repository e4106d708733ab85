package database

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"eshop/internal/models"
	"eshop/internal/repositories"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Products []catalogEntry `yaml:"products"`
}

type catalogEntry struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`
	Image       string `yaml:"image"`
}

// LoadCatalog parses a YAML product list. An empty path selects the built-in
// catalog.
func LoadCatalog(path string) ([]models.Product, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	products := make([]models.Product, 0, len(file.Products))
	for _, e := range file.Products {
		if e.ID == "" || e.Title == "" {
			return nil, fmt.Errorf("catalog entry %q is missing id or title", e.Title)
		}
		price, err := decimal.NewFromString(e.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %s has invalid price %q: %w", e.ID, e.Price, err)
		}
		products = append(products, models.Product{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Price:       price,
			Category:    e.Category,
			Image:       e.Image,
		})
	}
	return products, nil
}

// SeedProducts upserts every product, so reseeding is safe.
func SeedProducts(ctx context.Context, repo repositories.ProductRepository, products []models.Product) error {
	for i := range products {
		if err := repo.Upsert(ctx, &products[i]); err != nil {
			return err
		}
	}
	return nil
}
