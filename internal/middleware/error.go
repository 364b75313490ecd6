package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/models"
	"github.com/soltixdb/seasoncast/internal/services"
)

// ErrorHandler renders errors that escape the handlers as ErrorResponse.
// Handler-level service errors never reach it; this covers routing, body
// limits and panics recovered upstream.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("Request error", "path", c.Path(), "method", c.Method(), "status", status, "error", err)
		} else {
			logger.Debug("Request rejected", "path", c.Path(), "method", c.Method(), "status", status, "error", err)
		}

		return c.Status(status).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    codeForStatus(status),
				Message: message,
			},
		})
	}
}

func codeForStatus(status int) string {
	switch {
	case status == fiber.StatusNotFound:
		return "NOT_FOUND"
	case status == fiber.StatusUnauthorized:
		return CodeUnauthorized
	case status == fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case status >= fiber.StatusInternalServerError:
		return services.CodeInternal
	default:
		return services.CodeInvalidRequest
	}
}
