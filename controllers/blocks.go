package controllers

import (
	"strings"

	"studenttrack_go/database"
	"studenttrack_go/middleware"
	"studenttrack_go/models"
	"studenttrack_go/services"
	"studenttrack_go/utils"

	"github.com/gofiber/fiber/v2"
)

type BlockController struct {
	blocks *services.BlocksService
}

func NewBlockController(blocks *services.BlocksService) *BlockController {
	return &BlockController{blocks: blocks}
}

// GetActiveBlocks lists every student currently frozen
func (bc *BlockController) GetActiveBlocks(c *fiber.Ctx) error {
	var blocks []models.StudentBlock
	if err := database.DB.Preload("Student").Where("is_active = ?", true).
		Order("updated_at DESC").Find(&blocks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch blocks",
		})
	}

	dtos := make([]utils.BlockDTO, 0, len(blocks))
	for _, b := range blocks {
		dtos = append(dtos, utils.ToBlockDTO(b))
	}

	return c.JSON(fiber.Map{"blocks": dtos})
}

// FreezeRequest represents the freeze request body
type FreezeRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Freeze places a student under an active block. A second freeze
// updates the existing block's reason instead of stacking.
func (bc *BlockController) Freeze(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var student models.Student
	if err := database.DB.First(&student, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	var req FreezeRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A reason is required",
		})
	}

	block, err := bc.blocks.Freeze(student.ID, strings.TrimSpace(req.Reason), "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to freeze student",
		})
	}

	middleware.LogActivity(c, "CREATE", "student_blocks", student.ID, fiber.Map{"reason": req.Reason})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"block": block})
}

// Unfreeze lifts a student's active block. Lifting an unblocked student
// is a no-op.
func (bc *BlockController) Unfreeze(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	if err := bc.blocks.Unfreeze(uint(id)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to unfreeze student",
		})
	}

	middleware.LogActivity(c, "UPDATE", "student_blocks", uint(id), fiber.Map{"is_active": false})

	return c.JSON(fiber.Map{"message": "Block lifted"})
}

// StudentBlockStatus reports whether a student is blocked and why
func (bc *BlockController) StudentBlockStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	block, blocked := bc.blocks.ActiveBlock(uint(id))
	if !blocked {
		return c.JSON(fiber.Map{"blocked": false})
	}

	return c.JSON(fiber.Map{
		"blocked": true,
		"reason":  block.Reason,
		"block":   block,
	})
}

// StudentBlockHistory returns all blocks ever placed on a student
func (bc *BlockController) StudentBlockHistory(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	history, err := bc.blocks.History(uint(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch block history",
		})
	}

	return c.JSON(fiber.Map{"blocks": history})
}

// DeleteHistoricalBlock removes a lifted block row from the history
func (bc *BlockController) DeleteHistoricalBlock(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid block ID",
		})
	}

	if err := bc.blocks.DeleteHistorical(uint(id)); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	middleware.LogActivity(c, "DELETE", "student_blocks", uint(id), nil)

	return c.JSON(fiber.Map{"message": "Block removed from history"})
}
