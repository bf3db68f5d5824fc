package utils

import (
	"time"

	"studenttrack_go/models"
)

// Compact representations used across APIs

type StudentShort struct {
	ID         uint   `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	GradeLevel string `json:"grade_level"`
}

func ToStudentShort(s models.Student) StudentShort {
	return StudentShort{
		ID:         s.ID,
		Code:       s.Code,
		Name:       s.Name,
		GradeLevel: s.GradeLevel,
	}
}

type AlertEventDTO struct {
	ID         uint         `json:"id"`
	RuleCode   string       `json:"rule_code"`
	Title      string       `json:"title"`
	Severity   string       `json:"severity"`
	Message    string       `json:"message"`
	Status     string       `json:"status"`
	Context    models.JSON  `json:"context,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	Student    StudentShort `json:"student"`
}

// ToAlertEventDTO maps an alert event to its API shape. The caller must
// preload Student.
func ToAlertEventDTO(e models.AlertEvent) AlertEventDTO {
	return AlertEventDTO{
		ID:         e.ID,
		RuleCode:   e.RuleCode,
		Title:      e.Title,
		Severity:   e.Severity,
		Message:    e.Message,
		Status:     e.Status,
		Context:    e.Context,
		CreatedAt:  e.CreatedAt,
		ResolvedAt: e.ResolvedAt,
		Student:    ToStudentShort(e.Student),
	}
}

type BlockDTO struct {
	ID              uint         `json:"id"`
	BlockType       string       `json:"block_type"`
	Reason          string       `json:"reason"`
	TriggeredByRule string       `json:"triggered_by_rule,omitempty"`
	IsActive        bool         `json:"is_active"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Student         StudentShort `json:"student"`
}

func ToBlockDTO(b models.StudentBlock) BlockDTO {
	return BlockDTO{
		ID:              b.ID,
		BlockType:       b.BlockType,
		Reason:          b.Reason,
		TriggeredByRule: b.TriggeredByRuleCode,
		IsActive:        b.IsActive,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		Student:         ToStudentShort(b.Student),
	}
}
