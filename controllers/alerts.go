package controllers

import (
	"time"

	"studenttrack_go/database"
	"studenttrack_go/middleware"
	"studenttrack_go/models"
	"studenttrack_go/services/alerts"
	"studenttrack_go/utils"

	"github.com/gofiber/fiber/v2"
)

type AlertController struct {
	alerts *alerts.Service
}

func NewAlertController(alertSvc *alerts.Service) *AlertController {
	return &AlertController{alerts: alertSvc}
}

// GetEvents lists alert events, open ones by default
func (ac *AlertController) GetEvents(c *fiber.Ctx) error {
	status := c.Query("status", "open")

	query := database.DB.Preload("Student").Order("created_at DESC")
	if status != "all" {
		query = query.Where("status = ?", status)
	}
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if severity := c.Query("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var events []models.AlertEvent
	if err := query.Find(&events).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch alert events",
		})
	}

	dtos := make([]utils.AlertEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, utils.ToAlertEventDTO(e))
	}

	return c.JSON(fiber.Map{"events": dtos})
}

// ResolveEvent closes an open alert event exactly once
func (ac *AlertController) ResolveEvent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid event ID",
		})
	}

	event, err := ac.alerts.ResolveEvent(uint(id))
	if err != nil {
		if err == alerts.ErrEventNotOpen {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Event is not open",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve event",
		})
	}

	middleware.LogActivity(c, "UPDATE", "alert_events", event.ID, fiber.Map{"status": "resolved"})

	return c.JSON(fiber.Map{"event": event})
}

// EvaluateStudent runs the active rule set for one student right now
func (ac *AlertController) EvaluateStudent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	events, err := ac.alerts.EvaluateAndRecord(uint(id), time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Evaluation failed",
		})
	}

	return c.JSON(fiber.Map{"new_events": events})
}

// RunSweep evaluates the whole active roster on demand
func (ac *AlertController) RunSweep(c *fiber.Ctx) error {
	result := ac.alerts.Sweep(time.Now())

	middleware.LogActivity(c, "CREATE", "alert_sweeps", 0, fiber.Map{
		"students": result.Students,
		"events":   result.Events,
	})

	return c.JSON(fiber.Map{
		"students":   result.Students,
		"new_events": result.Events,
		"errors":     result.Errors,
	})
}

// GetRules lists the rule registry with activation state
func (ac *AlertController) GetRules(c *fiber.Ctx) error {
	var rules []models.AlertRule
	if err := database.DB.Order("code ASC").Find(&rules).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch rules",
		})
	}
	return c.JSON(fiber.Map{"rules": rules})
}

// ToggleRuleRequest represents the rule toggle body
type ToggleRuleRequest struct {
	Active bool `json:"active"`
}

// ToggleRule activates or deactivates a rule by code
func (ac *AlertController) ToggleRule(c *fiber.Ctx) error {
	code := c.Params("code")

	var req ToggleRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ac.alerts.ToggleRule(code, req.Active); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Rule not found",
		})
	}

	middleware.LogActivity(c, "UPDATE", "alert_rules", 0, fiber.Map{"code": code, "active": req.Active})

	return c.JSON(fiber.Map{"code": code, "active": req.Active})
}
