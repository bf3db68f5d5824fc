package utils

import (
	"testing"
	"time"

	"studenttrack_go/models"
)

func TestToAlertEventDTO(t *testing.T) {
	created := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	resolved := created.Add(2 * time.Hour)

	event := models.AlertEvent{
		BaseModel: models.BaseModel{ID: 7, CreatedAt: created},
		RuleCode:  "absent_2_consecutive",
		Title:     "Consecutive absences",
		Severity:  "critical",
		Message:   "Sara has been absent 2 sessions in a row",
		Status:    "resolved",
		ResolvedAt: &resolved,
		Student: models.Student{
			BaseModel:  models.BaseModel{ID: 3},
			Code:       "ST-A1B2C3D4",
			Name:       "Sara",
			GradeLevel: "grade 9",
		},
	}

	dto := ToAlertEventDTO(event)
	if dto.ID != 7 || dto.RuleCode != "absent_2_consecutive" || dto.Severity != "critical" {
		t.Errorf("unexpected DTO identity fields: %+v", dto)
	}
	if !dto.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", dto.CreatedAt, created)
	}
	if dto.ResolvedAt == nil || !dto.ResolvedAt.Equal(resolved) {
		t.Errorf("ResolvedAt = %v, want %v", dto.ResolvedAt, resolved)
	}
	if dto.Student.Code != "ST-A1B2C3D4" {
		t.Errorf("Student.Code = %q", dto.Student.Code)
	}
}

func TestToBlockDTO(t *testing.T) {
	created := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	updated := created.Add(30 * time.Minute)

	block := models.StudentBlock{
		BaseModel:           models.BaseModel{ID: 2, CreatedAt: created, UpdatedAt: updated},
		BlockType:           "freeze",
		Reason:              "unpaid month",
		TriggeredByRuleCode: "payment_1_5",
		IsActive:            true,
		Student: models.Student{
			BaseModel: models.BaseModel{ID: 9},
			Code:      "ST-FFEE0011",
			Name:      "Omar",
		},
	}

	dto := ToBlockDTO(block)
	if !dto.IsActive || dto.Reason != "unpaid month" || dto.TriggeredByRule != "payment_1_5" {
		t.Errorf("unexpected DTO fields: %+v", dto)
	}
	if !dto.CreatedAt.Equal(created) || !dto.UpdatedAt.Equal(updated) {
		t.Errorf("timestamps = %v / %v, want %v / %v", dto.CreatedAt, dto.UpdatedAt, created, updated)
	}
}
