package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analyzer/internal/models"
)

// HandleHealth handles GET /health
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{Status: "ok"})
}
