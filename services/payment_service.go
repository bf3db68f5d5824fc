package services

import (
	"context"
	"errors"
	"time"

	"studenttrack_go/database"
	"studenttrack_go/models"
	"studenttrack_go/services/offline"

	"gorm.io/gorm"
)

// PaymentOutcome classifies a payment mutation attempt.
type PaymentOutcome string

const (
	PaymentRecorded PaymentOutcome = "recorded"
	PaymentRefunded PaymentOutcome = "refunded"
	PaymentBlocked  PaymentOutcome = "blocked"
	PaymentQueued   PaymentOutcome = "queued"
	PaymentNotPaid  PaymentOutcome = "not_paid" // refund requested but nothing was paid
)

// PaymentResult carries the outcome; a blocked outcome includes the block
// reason verbatim so the caller can show it to the user.
type PaymentResult struct {
	Outcome     PaymentOutcome  `json:"outcome"`
	BlockReason string          `json:"block_reason,omitempty"`
	Queued      bool            `json:"queued"`
	Payment     *models.Payment `json:"payment,omitempty"`
}

// PaymentService owns the monthly fee write paths.
type PaymentService struct {
	db     *gorm.DB
	blocks *BlocksService
	writer *offline.Writer
}

func NewPaymentService(blocks *BlocksService, writer *offline.Writer) *PaymentService {
	return &PaymentService{db: database.GetDB(), blocks: blocks, writer: writer}
}

// Register marks the student's month as paid. Frozen students are rejected
// before anything is written.
func (s *PaymentService) Register(ctx context.Context, studentID uint, month string, amount int) (PaymentResult, error) {
	if block, ok := s.blocks.ActiveBlock(studentID); ok {
		return PaymentResult{Outcome: PaymentBlocked, BlockReason: block.Reason}, nil
	}

	if amount <= 0 {
		var student models.Student
		if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
			return PaymentResult{}, err
		}
		amount = student.MonthlyFee
	}

	now := time.Now().UTC()
	var existing models.Payment
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND month = ?", studentID, month).
		First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"amount":   amount,
			"paid":     true,
			"paid_at":  now,
			"notified": false,
		}
		if uerr := s.db.WithContext(ctx).Model(&models.Payment{}).
			Where("id = ?", existing.ID).Updates(updates).Error; uerr != nil {
			return s.queuePayment(ctx, studentID, month, amount, true, offline.KindUpdate)
		}
		existing.Amount = amount
		existing.Paid = true
		existing.PaidAt = &now
		return PaymentResult{Outcome: PaymentRecorded, Payment: &existing}, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		payment := models.Payment{
			StudentID: studentID,
			Month:     month,
			Amount:    amount,
			Paid:      true,
			PaidAt:    &now,
		}
		cerr := s.db.WithContext(ctx).Create(&payment).Error
		if cerr == nil {
			return PaymentResult{Outcome: PaymentRecorded, Payment: &payment}, nil
		}
		if errors.Is(cerr, gorm.ErrDuplicatedKey) {
			// Concurrent registration for the same month; the row is
			// there now, update it instead.
			return s.Register(ctx, studentID, month, amount)
		}
		return s.queuePayment(ctx, studentID, month, amount, true, offline.KindInsert)

	default:
		return s.queuePayment(ctx, studentID, month, amount, true, offline.KindInsert)
	}
}

// Refund reverts a paid month to unpaid. The row is kept with paid=false;
// query logic treats that the same as a missing row.
func (s *PaymentService) Refund(ctx context.Context, studentID uint, month string) (PaymentResult, error) {
	if block, ok := s.blocks.ActiveBlock(studentID); ok {
		return PaymentResult{Outcome: PaymentBlocked, BlockReason: block.Reason}, nil
	}

	var existing models.Payment
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND month = ?", studentID, month).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PaymentResult{Outcome: PaymentNotPaid}, nil
	}
	if err != nil {
		return PaymentResult{}, err
	}
	if !existing.Paid {
		return PaymentResult{Outcome: PaymentNotPaid, Payment: &existing}, nil
	}

	updates := map[string]interface{}{"paid": false, "paid_at": nil, "notified": false}
	if uerr := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", existing.ID).Updates(updates).Error; uerr != nil {
		payload := map[string]interface{}{
			"student_id": studentID,
			"month":      month,
			"paid":       false,
			"notified":   false,
		}
		res, qerr := s.writer.Update(ctx, offline.TablePayments, payload)
		if qerr != nil {
			return PaymentResult{}, qerr
		}
		return PaymentResult{Outcome: PaymentQueued, Queued: res.Queued}, nil
	}
	existing.Paid = false
	existing.PaidAt = nil
	return PaymentResult{Outcome: PaymentRefunded, Payment: &existing}, nil
}

func (s *PaymentService) queuePayment(ctx context.Context, studentID uint, month string, amount int, paid bool, kind offline.Kind) (PaymentResult, error) {
	payload := map[string]interface{}{
		"student_id": studentID,
		"month":      month,
		"amount":     amount,
		"paid":       paid,
		"notified":   false,
	}
	if paid {
		payload["paid_at"] = time.Now().UTC()
	}
	var (
		res offline.WriteResult
		err error
	)
	if kind == offline.KindUpdate {
		res, err = s.writer.Update(ctx, offline.TablePayments, payload)
	} else {
		res, err = s.writer.Insert(ctx, offline.TablePayments, payload)
	}
	if err != nil {
		return PaymentResult{}, err
	}
	return PaymentResult{Outcome: PaymentQueued, Queued: res.Queued}, nil
}

// IsMonthPaid reports whether the student's month is settled. A missing
// row and paid=false are both "not paid".
func (s *PaymentService) IsMonthPaid(studentID uint, month string) (bool, error) {
	var payment models.Payment
	err := s.db.Where("student_id = ? AND month = ?", studentID, month).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return payment.Paid, nil
}

// MonthStatus pairs a student with their payment state for one month.
type MonthStatus struct {
	Student models.Student  `json:"student"`
	Payment *models.Payment `json:"payment,omitempty"`
	Paid    bool            `json:"paid"`
}

// MonthSummary returns the payment state of every active student for the
// given month.
func (s *PaymentService) MonthSummary(month string) ([]MonthStatus, error) {
	var students []models.Student
	if err := s.db.Where("active = ?", true).Order("name ASC").Find(&students).Error; err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := s.db.Where("month = ?", month).Find(&payments).Error; err != nil {
		return nil, err
	}
	byStudent := make(map[uint]models.Payment, len(payments))
	for _, p := range payments {
		byStudent[p.StudentID] = p
	}

	out := make([]MonthStatus, 0, len(students))
	for _, student := range students {
		status := MonthStatus{Student: student}
		if p, ok := byStudent[student.ID]; ok {
			payment := p
			status.Payment = &payment
			status.Paid = p.Paid
		}
		out = append(out, status)
	}
	return out, nil
}

// MarkNotified flags a payment row after the reminder was sent.
func (s *PaymentService) MarkNotified(paymentID uint) error {
	return s.db.Model(&models.Payment{}).Where("id = ?", paymentID).Update("notified", true).Error
}
