package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/choreista/platform_be_chores/internal/metrics"
)

// Metrics records request counts and latency by route template.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		metrics.RequestStarted()
		err := c.Next()

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		metrics.RecordRequest(c.Method(), route, c.Response().StatusCode(), time.Since(start))
		return err
	}
}
