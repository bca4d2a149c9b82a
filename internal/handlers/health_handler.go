package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backing dependency answers.
type Pinger func(ctx context.Context) error

// RegisterHealthRoutes mounts the liveness and readiness endpoints.
func RegisterHealthRoutes(router fiber.Router, ping Pinger) {
	router.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"pong": true})
	})

	router.Get("/health", func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		if err := ping(c.UserContext()); err != nil {
			status, code = "degraded", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"time":   time.Now(),
		})
	})
}
