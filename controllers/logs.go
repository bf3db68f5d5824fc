package controllers

import (
	"studenttrack_go/database"
	"studenttrack_go/models"

	"github.com/gofiber/fiber/v2"
)

type LogController struct{}

// GetActivityLogs returns the audit trail, newest first
func (lc *LogController) GetActivityLogs(c *fiber.Ctx) error {
	query := database.DB.Preload("User").Order("created_at DESC")

	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}

	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query = query.Limit(limit).Offset(c.QueryInt("offset", 0))

	var logs []models.ActivityLog
	if err := query.Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch activity logs",
		})
	}

	return c.JSON(fiber.Map{"logs": logs})
}
