package controllers

import (
	"studenttrack_go/middleware"
	"studenttrack_go/services"

	"github.com/gofiber/fiber/v2"
)

type SettingsController struct {
	settings *services.SettingsService
}

func NewSettingsController(settings *services.SettingsService) *SettingsController {
	return &SettingsController{settings: settings}
}

// GetSettings returns the center-wide settings
func (sc *SettingsController) GetSettings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"settings": sc.settings.Current()})
}

// UpdateSettings updates the center-wide settings
func (sc *SettingsController) UpdateSettings(c *fiber.Ctx) error {
	var req services.UpdateInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SweepHour != nil && (*req.SweepHour < 0 || *req.SweepHour > 23) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sweep_hour must be between 0 and 23",
		})
	}

	settings, err := sc.settings.Update(req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update settings",
		})
	}

	middleware.LogActivity(c, "UPDATE", "settings", settings.ID, nil)

	return c.JSON(fiber.Map{"settings": settings})
}
