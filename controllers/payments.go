package controllers

import (
	"time"

	"studenttrack_go/database"
	"studenttrack_go/middleware"
	"studenttrack_go/models"
	"studenttrack_go/services"
	"studenttrack_go/services/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type PaymentController struct {
	payments *services.PaymentService
	settings *services.SettingsService
}

func NewPaymentController(payments *services.PaymentService, settings *services.SettingsService) *PaymentController {
	return &PaymentController{payments: payments, settings: settings}
}

func validMonth(month string) bool {
	_, err := time.Parse("2006-01", month)
	return err == nil
}

// RegisterPaymentRequest represents the payment registration body
type RegisterPaymentRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Month     string `json:"month" validate:"required"`
	Amount    int    `json:"amount"`
}

// RegisterPayment records a monthly fee payment. Blocked students are
// rejected with the block reason.
func (pc *PaymentController) RegisterPayment(c *fiber.Ctx) error {
	var req RegisterPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.StudentID == 0 || !validMonth(req.Month) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "student_id and month (YYYY-MM) are required",
		})
	}

	result, err := pc.payments.Register(c.Context(), req.StudentID, req.Month, req.Amount)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to register payment",
		})
	}

	switch result.Outcome {
	case services.PaymentBlocked:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"outcome":      result.Outcome,
			"block_reason": result.BlockReason,
		})
	case services.PaymentQueued:
		middleware.LogActivity(c, "CREATE", "payments", req.StudentID, fiber.Map{"month": req.Month, "queued": true})
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"outcome": result.Outcome,
			"message": "Payment queued for sync",
		})
	}

	middleware.LogActivity(c, "CREATE", "payments", req.StudentID, fiber.Map{"month": req.Month})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"outcome": result.Outcome,
		"payment": result.Payment,
	})
}

// RefundPayment reverses a recorded payment for a month
func (pc *PaymentController) RefundPayment(c *fiber.Ctx) error {
	var req RegisterPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.StudentID == 0 || !validMonth(req.Month) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "student_id and month (YYYY-MM) are required",
		})
	}

	result, err := pc.payments.Refund(c.Context(), req.StudentID, req.Month)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to refund payment",
		})
	}

	switch result.Outcome {
	case services.PaymentBlocked:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"outcome":      result.Outcome,
			"block_reason": result.BlockReason,
		})
	case services.PaymentNotPaid:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"outcome": result.Outcome,
			"error":   "No paid record for that month",
		})
	case services.PaymentQueued:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"outcome": result.Outcome,
			"message": "Refund queued for sync",
		})
	}

	middleware.LogActivity(c, "UPDATE", "payments", req.StudentID, fiber.Map{"month": req.Month, "refund": true})

	return c.JSON(fiber.Map{
		"outcome": result.Outcome,
		"payment": result.Payment,
	})
}

// MonthSummary lists each active student's payment status for a month
func (pc *PaymentController) MonthSummary(c *fiber.Ctx) error {
	month := c.Query("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	if !validMonth(month) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid month, expected YYYY-MM",
		})
	}

	summary, err := pc.payments.MonthSummary(month)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build summary",
		})
	}

	return c.JSON(fiber.Map{"month": month, "students": summary})
}

// StudentPayments returns the payment history for one student
func (pc *PaymentController) StudentPayments(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var payments []models.Payment
	if err := database.DB.Where("student_id = ?", id).Order("month DESC").Find(&payments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch payments",
		})
	}

	return c.JSON(fiber.Map{"payments": payments})
}

// ReminderLink builds the WhatsApp payment reminder deep link for a
// student who has not paid the given month.
func (pc *PaymentController) ReminderLink(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	month := c.Query("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	if !validMonth(month) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid month, expected YYYY-MM",
		})
	}

	var student models.Student
	if err := database.DB.First(&student, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	paid, err := pc.payments.IsMonthPaid(student.ID, month)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check payment status",
		})
	}
	if paid {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Month is already paid",
		})
	}

	settings := pc.settings.Current()
	text := notify.PaymentReminder(settings, student, month)
	link, err := notify.BuildWhatsAppLink(student.ParentPhone, settings.CountryCode, text)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Parent phone number is invalid",
		})
	}

	// Flag the pending payment row as reminded when one exists.
	var payment models.Payment
	if err := database.DB.Where("student_id = ? AND month = ?", student.ID, month).First(&payment).Error; err == nil {
		if err := pc.payments.MarkNotified(payment.ID); err != nil {
			logrus.WithError(err).WithField("payment_id", payment.ID).Warn("failed to flag payment as reminded")
		}
	}

	return c.JSON(fiber.Map{
		"whatsapp_link": link,
		"message":       text,
	})
}
