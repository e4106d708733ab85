package handlers

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// Categories that have a storefront page.
var pageCategories = map[string]bool{
	"cpu":     true,
	"ram":     true,
	"storage": true,
	"gpu":     true,
	"home":    true,
}

// PageHandler serves the static storefront out of a public directory.
type PageHandler struct {
	dir string
}

func NewPageHandler(dir string) *PageHandler {
	return &PageHandler{dir: dir}
}

// RegisterRoutes must run after the API routes; /:category matches any
// single path segment.
func (h *PageHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/", h.page("EshopPage.html"))
	app.Get("/cart", h.page("cart.html"))
	app.Get("/checkout", h.page("checkout.html"))
	app.Static("/", h.dir)
	app.Get("/:category", func(c *fiber.Ctx) error {
		if !pageCategories[c.Params("category")] {
			return c.Status(fiber.StatusNotFound).SendString("Page Not Found")
		}
		return c.SendFile(filepath.Join(h.dir, "EshopPage.html"))
	})
}

func (h *PageHandler) page(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(h.dir, name))
	}
}
