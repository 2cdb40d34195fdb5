package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	Env     string
	started time.Time
}

func NewHealthHandler(env string) *HealthHandler {
	return &HealthHandler{Env: env, started: time.Now()}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"healthcheck": fiber.Map{
			"uptime":      time.Since(h.started).Seconds(),
			"message":     "OK",
			"timestamp":   time.Now().UnixMilli(),
			"environment": h.Env,
		},
	})
}
