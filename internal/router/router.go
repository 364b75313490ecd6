package router

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/seasoncast/internal/config"
	"github.com/soltixdb/seasoncast/internal/handlers"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/metrics"
	"github.com/soltixdb/seasoncast/internal/middleware"
	"github.com/soltixdb/seasoncast/internal/services"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, service *services.ForecastService, m *metrics.Metrics, cfg config.Config) (*handlers.Handler, error) {
	defaults, err := services.RunConfigFromConfig(cfg.Forecast)
	if err != nil {
		return nil, fmt.Errorf("forecast defaults: %w", err)
	}
	h := handlers.New(logger, service, defaults)

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, healthPath, metricsPath))

	// No auth
	app.Get(healthPath, h.Health)
	if m != nil {
		app.Get(metricsPath, adaptor.HTTPHandler(m.Handler()))
	}

	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg.Auth))
	v1.Post("/forecast", h.Forecast)
	v1.Get("/forecast/defaults", h.ForecastDefaults)

	app.Use(h.NotFound)

	return h, nil
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, service *services.ForecastService, m *metrics.Metrics, cfg config.Config) (*fiber.App, error) {
	fcfg := fiber.Config{
		AppName:               "seasoncast",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	}
	if cfg.Server.BodyLimit > 0 {
		fcfg.BodyLimit = cfg.Server.BodyLimit
	}
	app := fiber.New(fcfg)

	if _, err := Setup(app, logger, service, m, cfg); err != nil {
		return nil, err
	}
	return app, nil
}
