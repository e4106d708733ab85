package handlers

import (
	"errors"

	"eshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler serves the read-only catalog.
type ProductHandler struct {
	service *services.ProductService
	logger  *zap.Logger
}

func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{service: service, logger: logger}
}

func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleGetProducts)
	products.Get("/:id", h.HandleGetProduct)
}

// HandleGetProducts lists the catalog, optionally filtered by ?category=.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetProducts(c.UserContext(), c.Query("category"))
	if err != nil {
		h.logger.Error("Error fetching products", zap.Error(err))
		return serverError(c)
	}
	return c.JSON(products)
}

func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
		}
		h.logger.Error("Error fetching product", zap.String("product_id", c.Params("id")), zap.Error(err))
		return serverError(c)
	}
	return c.JSON(product)
}
