package http

import (
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/transport/http/handler"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
}

type RouterConfig struct {
	ImagesDir string
	// RequireAuth guards the session routes.
	RequireAuth fiber.Handler
}

func RegisterRoutes(app *fiber.App, h *Handlers, cfg RouterConfig) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	if cfg.ImagesDir != "" {
		app.Static("/images", cfg.ImagesDir)
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/forgot-password", h.Auth.ForgotPassword)
	authGroup.Post("/verify-email", h.Auth.VerifyEmail)
	authGroup.Get("/confirm", h.Auth.Confirm)
	authGroup.Post("/reset-password", h.Auth.ResetPassword)
	authGroup.Post("/reset-password/:token", h.Auth.ResetPassword)
	authGroup.Post("/resend-verification", h.Auth.ResendVerification)
	authGroup.Get("/me", cfg.RequireAuth, h.Auth.GetMe)
	authGroup.Post("/logout", cfg.RequireAuth, h.Auth.Logout)

	api.Get("/menu", h.Catalog.ListMenu)

	product := api.Group("/products")
	product.Get("", h.Catalog.ListProducts)
	product.Get("/:id", h.Catalog.FindByID)
}
