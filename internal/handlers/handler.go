package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/models"
	"github.com/soltixdb/seasoncast/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	service  *services.ForecastService
	defaults services.RunConfig
}

// New creates a new handler instance. defaults are applied to every request
// before its own overrides.
func New(logger *logging.Logger, service *services.ForecastService, defaults services.RunConfig) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		defaults: defaults,
	}
}

// statusFor maps a service error code to an HTTP status
func statusFor(code string) int {
	switch code {
	case services.CodeInvalidRequest, services.CodeInvalidConfig, services.CodeInvalidSeries, services.CodeInvalidKey:
		return http.StatusBadRequest
	case services.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

// errorResponse writes err as an ErrorResponse
func (h *Handler) errorResponse(c *fiber.Ctx, err error) error {
	detail := models.NewErrorDetail(err)
	status := statusFor(detail.Code)
	if status == http.StatusInternalServerError {
		logging.Ctx(c.UserContext()).Error("Forecast request failed",
			"path", c.Path(),
			"error", err)
		detail = models.ErrorDetail{Code: services.CodeInternal, Message: "Internal Server Error"}
	}

	return c.Status(status).JSON(models.ErrorResponse{Error: detail})
}
