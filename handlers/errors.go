package handlers

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/anjiri1684/matchchat/errors"
)

var validate = validator.New()

// ErrorHandler maps domain errors to HTTP statuses with a uniform body.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := err.Error()

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
		case errors.Is(err, apperrors.ErrValidation):
			code = fiber.StatusBadRequest
		case errors.Is(err, apperrors.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, apperrors.ErrUnauthorized):
			code = fiber.StatusForbidden
		case errors.Is(err, apperrors.ErrNotificationDispatch):
			code = fiber.StatusBadGateway
		case errors.Is(err, apperrors.ErrPersistence):
			message = apperrors.ErrPersistence.Error()
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("Request failed", "path", c.Path(), "method", c.Method(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"success": false, "error": message})
	}
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}
