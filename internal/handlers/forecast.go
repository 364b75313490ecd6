package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/seasoncast/internal/models"
	"github.com/soltixdb/seasoncast/internal/services"
	"github.com/soltixdb/seasoncast/internal/utils"
)

// Forecast handles POST /v1/forecast.
// Per-series failures are reported in the body next to the successful results;
// only a malformed request or run configuration fails the whole call.
func (h *Handler) Forecast(c *fiber.Ctx) error {
	var req models.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return h.errorResponse(c, services.NewServiceError(services.CodeInvalidRequest, "Invalid request body: "+err.Error()))
	}

	series, err := req.SeriesMap()
	if err != nil {
		return h.errorResponse(c, err)
	}

	cfg, err := req.RunConfig(h.defaults)
	if err != nil {
		return h.errorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), utils.DefaultRequestTimeout)
	defer cancel()

	result, err := h.service.Run(ctx, series, cfg)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(models.NewForecastResponse(result, cfg.Confidence))
}

// ForecastDefaults handles GET /v1/forecast/defaults
func (h *Handler) ForecastDefaults(c *fiber.Ctx) error {
	d := h.defaults
	resp := models.DefaultsResponse{
		Horizon:         d.Horizon,
		Confidence:      d.Confidence,
		Trials:          d.Trials,
		Seed:            d.Seed,
		SeasonalPeriod:  d.Smoothing.SeasonalPeriod,
		Trend:           string(d.Smoothing.Trend),
		Seasonal:        string(d.Smoothing.Seasonal),
		Optimize:        d.Smoothing.Optimize,
		ShockDetector:   d.ShockDetector,
		MetricOverrides: make(map[string]models.SmoothingOverride, len(d.MetricSmoothing)),
	}
	for metric, sc := range d.MetricSmoothing {
		resp.MetricOverrides[metric] = models.SmoothingOverride{
			Trend:    string(sc.Trend),
			Seasonal: string(sc.Seasonal),
		}
	}
	return c.JSON(resp)
}
