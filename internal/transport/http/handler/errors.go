package handler

import (
	"errors"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/repository"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/service"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

const msgServerError = "Server error"

func mapErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrUserAlreadyExists):
		return fiber.StatusBadRequest, "User already exists"
	case errors.Is(err, repository.ErrUserNotFound):
		return fiber.StatusNotFound, "User not found"
	case errors.Is(err, repository.ErrProductNotFound):
		return fiber.StatusNotFound, "Product not found"
	case errors.Is(err, service.ErrEmailNotVerified):
		return fiber.StatusForbidden, "Please verify your email before logging in."
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrInvalidToken):
		return fiber.StatusBadRequest, "Invalid or expired token."
	case errors.Is(err, service.ErrAlreadyVerified):
		return fiber.StatusBadRequest, "Email is already verified."
	case errors.Is(err, validator.ErrPasswordTooShort), errors.Is(err, validator.ErrPasswordTooWeak),
		errors.Is(err, validator.ErrPasswordTooLong):
		return fiber.StatusBadRequest, err.Error()
	default:
		return fiber.StatusInternalServerError, msgServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status, message := mapErrorStatus(err)

	return c.Status(status).JSON(fiber.Map{"message": message})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot parse JSON"})
}
