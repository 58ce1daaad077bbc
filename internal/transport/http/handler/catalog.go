package handler

import (
	"context"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/service"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	service service.CatalogService
	timeout time.Duration
	logger  *zap.Logger
}

func NewCatalogHandler(svc service.CatalogService, timeout time.Duration, logger *zap.Logger) *CatalogHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CatalogHandler{
		service: svc,
		timeout: timeout,
		logger:  logger,
	}
}

func (h *CatalogHandler) ListMenu(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	items, err := h.service.ListMenu(ctx)
	if err != nil {
		mylogger.Error(ctx, h.logger, "list menu failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch menu items"})
	}

	return c.JSON(items)
}

func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	products, err := h.service.ListProducts(ctx)
	if err != nil {
		mylogger.Error(ctx, h.logger, "list products failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch products"})
	}

	return c.JSON(products)
}

func (h *CatalogHandler) FindByID(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id := c.Params("id")

	product, err := h.service.GetProduct(ctx, id)
	if err != nil {
		status, _ := mapErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			mylogger.Error(ctx, h.logger, "find product failed", zap.String("product_id", id), zap.Error(err))
		}

		return writeError(c, err)
	}

	return c.JSON(product)
}
