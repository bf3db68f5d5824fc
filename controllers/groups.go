package controllers

import (
	"studenttrack_go/database"
	"studenttrack_go/middleware"
	"studenttrack_go/models"
	"studenttrack_go/utils"

	"github.com/gofiber/fiber/v2"
)

type GroupController struct{}

// GetGroups returns all study groups with their students
func (gc *GroupController) GetGroups(c *fiber.Ctx) error {
	query := database.DB.Order("grade_level ASC, name ASC")
	if c.Query("with_students") == "true" {
		query = query.Preload("Students")
	}

	var groups []models.Group
	if err := query.Find(&groups).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch groups",
		})
	}
	return c.JSON(fiber.Map{"groups": groups})
}

// GetGroup returns a single group with its students
func (gc *GroupController) GetGroup(c *fiber.Ctx) error {
	id := c.Params("id")

	var group models.Group
	if err := database.DB.Preload("Students").First(&group, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}
	return c.JSON(fiber.Map{"group": group})
}

// GroupRequest represents create/update group request body
type GroupRequest struct {
	Name       string `json:"name" validate:"required"`
	GradeLevel string `json:"grade_level" validate:"required"`
	Active     *bool  `json:"active"`
}

// CreateGroup creates a new study group
func (gc *GroupController) CreateGroup(c *fiber.Ctx) error {
	var req GroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	group := models.Group{
		Name:       utils.SanitizeString(req.Name),
		GradeLevel: req.GradeLevel,
		Active:     true,
	}
	if req.Active != nil {
		group.Active = *req.Active
	}

	if err := database.DB.Create(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create group",
		})
	}

	middleware.LogActivity(c, "CREATE", "groups", group.ID, fiber.Map{"name": group.Name})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"group": group})
}

// UpdateGroup updates a study group
func (gc *GroupController) UpdateGroup(c *fiber.Ctx) error {
	id := c.Params("id")

	var group models.Group
	if err := database.DB.First(&group, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	var req GroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name != "" {
		group.Name = utils.SanitizeString(req.Name)
	}
	if req.GradeLevel != "" {
		group.GradeLevel = req.GradeLevel
	}
	if req.Active != nil {
		group.Active = *req.Active
	}

	if err := database.DB.Save(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update group",
		})
	}

	middleware.LogActivity(c, "UPDATE", "groups", group.ID, nil)

	return c.JSON(fiber.Map{"group": group})
}

// DeleteGroup removes an empty study group
func (gc *GroupController) DeleteGroup(c *fiber.Ctx) error {
	id := c.Params("id")

	var group models.Group
	if err := database.DB.First(&group, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	var count int64
	database.DB.Model(&models.Student{}).Where("group_id = ?", group.ID).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Group still has students assigned",
		})
	}

	if err := database.DB.Delete(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete group",
		})
	}

	middleware.LogActivity(c, "DELETE", "groups", group.ID, fiber.Map{"name": group.Name})

	return c.JSON(fiber.Map{"message": "Group deleted successfully"})
}
