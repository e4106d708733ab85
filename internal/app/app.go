// Package app assembles the storefront API from its repositories, services
// and handlers.
package app

import (
	"errors"
	"time"

	"eshop/internal/handlers"
	"eshop/internal/middleware"
	"eshop/internal/repositories"
	"eshop/internal/services"
	"eshop/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Options carries the dependencies of the API.
type Options struct {
	DB        *gorm.DB
	Mailbox   services.Mailbox
	Announcer services.Announcer // optional
	Sessions  fiber.Storage      // optional, in-memory sessions when nil
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	SecretKey string
	PublicDir string
	// LoginRate and LoginBurst throttle logins per client IP. A zero
	// LoginRate disables the limit.
	LoginRate  rate.Limit
	LoginBurst int
}

// App is the wired API.
type App struct {
	Fiber *fiber.App
	Store *repositories.Store
	Relay *services.OutboxRelay
}

// New builds the fiber app and the outbox relay that feeds the mailbox.
func New(opts Options) *App {
	logger := opts.Logger
	store := repositories.NewStore(opts.DB)

	relay := services.NewOutboxRelay(store.Outbox, opts.Mailbox, logger).WithMetrics(opts.Metrics)
	if opts.Announcer != nil {
		relay.WithAnnouncer(opts.Announcer)
	}

	authService := services.NewAuthService(store.Users, opts.SecretKey, logger)
	authService.SetNotifier(relay)
	productService := services.NewProductService(store.Products)
	cartService := services.NewCartService(store, logger, opts.Metrics)
	checkoutService := services.NewCheckoutService(store, relay, logger, opts.Metrics)
	orderService := services.NewOrderService(store.Orders)

	sessions := session.New(session.Config{
		Storage:        opts.Sessions,
		Expiration:     24 * time.Hour,
		CookieHTTPOnly: true,
	})
	requireUser := middleware.RequireUser(sessions, authService, logger)

	var limiter *middleware.RateLimiter
	if opts.LoginRate > 0 {
		limiter = middleware.NewRateLimiter(opts.LoginRate, opts.LoginBurst)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger, opts.Metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	api := app.Group("/api")
	handlers.NewAuthHandler(authService, sessions, limiter, logger).RegisterRoutes(api, requireUser)
	handlers.NewProductHandler(productService, logger).RegisterRoutes(api)
	handlers.NewCartHandler(cartService, logger).RegisterRoutes(api, requireUser)
	handlers.NewCheckoutHandler(checkoutService, orderService, logger).RegisterRoutes(api, requireUser)

	if opts.PublicDir != "" {
		handlers.NewPageHandler(opts.PublicDir).RegisterRoutes(app)
	}

	return &App{Fiber: app, Store: store, Relay: relay}
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Server error"
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		} else {
			logger.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}
