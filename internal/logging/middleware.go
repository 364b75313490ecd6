package logging

import (
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in and out of the API.
const RequestIDHeader = "X-Request-ID"

// FiberMiddleware assigns a request id, stores it with the logger on the
// request context and logs one line per request. Paths in skip are served
// without a log line.
func FiberMiddleware(logger *Logger, skip ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)

		ctx := WithLogger(WithRequestID(c.UserContext(), requestID), logger)
		c.SetUserContext(ctx)

		if slices.Contains(skip, c.Path()) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)
		status := c.Response().StatusCode()

		kv := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", requestID,
		}

		switch {
		case err != nil:
			logger.Error("Request failed", append(kv, "error", err)...)
			return err
		case status >= 500:
			logger.Error("Server error", kv...)
		case status >= 400:
			logger.Warn("Client error", kv...)
		default:
			logger.Debug("Request completed", kv...)
		}
		return nil
	}
}
