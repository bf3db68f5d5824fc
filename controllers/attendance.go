package controllers

import (
	"time"

	"studenttrack_go/database"
	"studenttrack_go/middleware"
	"studenttrack_go/models"
	"studenttrack_go/services"
	"studenttrack_go/services/alerts"
	"studenttrack_go/services/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AttendanceController struct {
	attendance *services.AttendanceService
	alerts     *alerts.Service
	settings   *services.SettingsService
}

func NewAttendanceController(attendance *services.AttendanceService, alertSvc *alerts.Service, settings *services.SettingsService) *AttendanceController {
	return &AttendanceController{
		attendance: attendance,
		alerts:     alertSvc,
		settings:   settings,
	}
}

// MarkRequest represents the attendance marking request body
type MarkRequest struct {
	StudentID uint   `json:"student_id"`
	Code      string `json:"code"`
	Date      string `json:"date"`
	Present   bool   `json:"present"`
}

// Mark records attendance for a student, identified either by ID or by
// scanned code. Duplicate scans for the same day are reported, not
// double-counted.
func (ac *AttendanceController) Mark(c *fiber.Ctx) error {
	var req MarkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date, expected YYYY-MM-DD",
		})
	}

	var result services.MarkResult
	var student *models.Student
	var err error

	if req.Code != "" {
		result, student, err = ac.attendance.MarkByCode(c.Context(), req.Code, date, req.Present)
	} else if req.StudentID > 0 {
		result, err = ac.attendance.Mark(c.Context(), req.StudentID, date, req.Present)
	} else {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either student_id or code is required",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	studentID := req.StudentID
	if student != nil {
		studentID = student.ID
	}

	middleware.LogActivity(c, "CREATE", "attendance", studentID, fiber.Map{
		"date":    date,
		"present": req.Present,
		"status":  result.Status,
	})

	// An absence can immediately trip the consecutive or monthly rules.
	if !req.Present && result.Status != services.MarkQueued {
		go func(id uint) {
			if _, err := ac.alerts.EvaluateAndRecord(id, time.Now()); err != nil {
				logrus.WithError(err).WithField("student_id", id).Error("post-mark alert evaluation failed")
			}
		}(studentID)
	}

	resp := fiber.Map{
		"status": result.Status,
		"record": result.Record,
	}
	if student != nil {
		resp["student"] = student
	}

	code := fiber.StatusOK
	if result.Status == services.MarkInserted {
		code = fiber.StatusCreated
	} else if result.Status == services.MarkQueued {
		code = fiber.StatusAccepted
	}
	return c.Status(code).JSON(resp)
}

// DayRoster returns every attendance record for a date
func (ac *AttendanceController) DayRoster(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	records, err := ac.attendance.DayRoster(date)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch roster",
		})
	}

	return c.JSON(fiber.Map{"date": date, "records": records})
}

// StudentHistory returns a student's attendance history, newest first
func (ac *AttendanceController) StudentHistory(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	records, err := ac.attendance.History(uint(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch history",
		})
	}

	return c.JSON(fiber.Map{"records": records})
}

// AbsenceLink builds the WhatsApp deep link for notifying a parent about
// an absence and marks the record as notified.
func (ac *AttendanceController) AbsenceLink(c *fiber.Ctx) error {
	recordID, err := c.ParamsInt("id")
	if err != nil || recordID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid record ID",
		})
	}

	var record models.AttendanceRecord
	if err := database.DB.Preload("Student").First(&record, recordID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Attendance record not found",
		})
	}

	if record.Present {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Student was present on this date",
		})
	}

	settings := ac.settings.Current()
	text := notify.AbsenceMessage(settings, record.Student, record.Date)
	link, err := notify.BuildWhatsAppLink(record.Student.ParentPhone, settings.CountryCode, text)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Parent phone number is invalid",
		})
	}

	if err := ac.attendance.MarkNotified(record.ID); err != nil {
		logrus.WithError(err).WithField("record_id", record.ID).Warn("failed to flag absence as notified")
	}

	return c.JSON(fiber.Map{
		"whatsapp_link": link,
		"message":       text,
	})
}
