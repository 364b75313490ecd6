package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/seasoncast/internal/models"
	"github.com/soltixdb/seasoncast/internal/utils"
)

// Health reports liveness plus the size of the fitted-model cache
func (h *Handler) Health(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: utils.Version,
	}
	if h.service != nil {
		resp.CachedModels = h.service.CachedModels()
	}
	return c.JSON(resp)
}

// NotFound answers unknown routes
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "no route for " + c.Method() + " " + c.Path(), Path: c.Path()},
	})
}
