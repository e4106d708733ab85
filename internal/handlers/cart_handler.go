package handlers

import (
	"errors"

	"eshop/internal/middleware"
	"eshop/internal/models"
	"eshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler exposes the cart of the logged in user.
type CartHandler struct {
	service  *services.CartService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewCartHandler(service *services.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{service: service, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the cart routes. /cart/clear comes before
// /cart/:id so that it is not taken for a product ID.
func (h *CartHandler) RegisterRoutes(router fiber.Router, requireUser fiber.Handler) {
	cart := router.Group("/cart", requireUser)
	cart.Get("/", h.HandleGetCart)
	cart.Post("/", h.HandleAdd)
	cart.Delete("/clear", h.HandleClear)
	cart.Delete("/:id", h.HandleRemove)
	cart.Patch("/:id/quantity", h.HandleAdjust)
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	lines, err := h.service.Get(c.UserContext(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("Error fetching cart", zap.Error(err))
		return serverError(c)
	}
	return c.JSON(lines)
}

// AddToCartRequest is the body of POST /api/cart. Quantity defaults to one.
type AddToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1,max=10000"`
}

func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	var req AddToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "A product ID and a quantity between 1 and 10000 are required", err)
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	cart, err := h.service.Add(c.UserContext(), middleware.UserID(c), req.ProductID, qty)
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product added to cart",
		"items":   cart.Items,
	})
}

func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	cart, err := h.service.Remove(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.cartError(c, err)
	}
	if len(cart.Items) == 0 {
		return c.JSON(fiber.Map{
			"message": "Cart deleted as it became empty",
			"items":   []models.CartLine{},
		})
	}
	return c.JSON(fiber.Map{
		"message": "Product removed from cart",
		"items":   cart.Items,
	})
}

// AdjustQuantityRequest is the body of PATCH /api/cart/:id/quantity.
type AdjustQuantityRequest struct {
	Delta *int `json:"delta" validate:"required,min=-10000,max=10000"`
}

func (h *CartHandler) HandleAdjust(c *fiber.Ctx) error {
	var req AdjustQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "A quantity delta between -10000 and 10000 is required", err)
	}

	cart, err := h.service.AdjustQuantity(c.UserContext(), middleware.UserID(c), c.Params("id"), *req.Delta)
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Quantity updated successfully",
		"items":   cart.Items,
	})
}

func (h *CartHandler) HandleClear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), middleware.UserID(c)); err != nil {
		h.logger.Error("Error clearing cart", zap.Error(err))
		return serverError(c)
	}
	return c.JSON(fiber.Map{"message": "Cart cleared successfully"})
}

func (h *CartHandler) cartError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	case errors.Is(err, services.ErrCartNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Cart not found"})
	case errors.Is(err, services.ErrLineNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found in cart"})
	case errors.Is(err, services.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Quantity must be between 1 and 10000"})
	}
	h.logger.Error("Cart operation failed", zap.String("user_id", middleware.UserID(c)), zap.Error(err))
	return serverError(c)
}
