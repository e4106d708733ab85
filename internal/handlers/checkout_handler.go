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

// IdempotencyHeader lets a client retry a checkout without placing a second
// order.
const IdempotencyHeader = "Idempotency-Key"

// CheckoutHandler places orders and lists them.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	orders   *services.OrderService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewCheckoutHandler(checkout *services.CheckoutService, orders *services.OrderService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *CheckoutHandler) RegisterRoutes(router fiber.Router, requireUser fiber.Handler) {
	router.Post("/checkout", requireUser, h.HandleCheckout)
	router.Get("/orders", requireUser, h.HandleGetOrders)
}

// HandleCheckout turns the cart into an order. Payment details are required
// but never charged.
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	var payment models.PaymentDetails
	if err := c.BodyParser(&payment); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(payment); err != nil {
		return validationFailed(c, "Payment information is required", err)
	}

	result, err := h.checkout.Checkout(c.UserContext(), services.CheckoutRequest{
		UserID:         middleware.UserID(c),
		Payment:        payment,
		IdempotencyKey: c.Get(IdempotencyHeader),
	})
	if err != nil {
		if errors.Is(err, services.ErrCartEmpty) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cart is empty"})
		}
		h.logger.Error("Error during checkout", zap.String("user_id", middleware.UserID(c)), zap.Error(err))
		return serverError(c)
	}

	message := "Order placed successfully"
	if !result.Notified {
		message = "Order placed successfully, but confirmation email could not be sent"
	}
	status := fiber.StatusCreated
	if result.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"order":   result.Order,
	})
}

// HandleGetOrders lists the caller's orders, newest first.
func (h *CheckoutHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.orders.ListOrders(c.UserContext(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("Error fetching orders", zap.Error(err))
		return serverError(c)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(orders)
}
