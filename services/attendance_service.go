package services

import (
	"context"
	"errors"
	"time"

	"studenttrack_go/database"
	"studenttrack_go/models"
	"studenttrack_go/services/offline"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MarkStatus classifies the outcome of an attendance mark. Callers branch
// on the status, never on error types.
type MarkStatus string

const (
	MarkInserted       MarkStatus = "inserted"
	MarkUpdated        MarkStatus = "updated"
	MarkAlreadyPresent MarkStatus = "already_present" // duplicate QR scan, no write performed
	MarkAlreadyExists  MarkStatus = "already_exists"  // concurrent insert lost the race
	MarkQueued         MarkStatus = "queued"          // captured offline, will sync
)

// MarkResult is the outcome of one marking attempt.
type MarkResult struct {
	Status MarkStatus               `json:"status"`
	Queued bool                     `json:"queued"`
	Record *models.AttendanceRecord `json:"record,omitempty"`
}

type markAction int

const (
	actionInsert markAction = iota
	actionDuplicate
	actionUpdate
)

// decideMark is the state machine for one (student, date) pair:
// no-record -> insert; present requested while already present -> duplicate
// scan; anything else -> update in place.
func decideMark(existing *models.AttendanceRecord, present bool) markAction {
	if existing == nil {
		return actionInsert
	}
	if existing.Present && present {
		return actionDuplicate
	}
	return actionUpdate
}

// AttendanceService owns the marking write path.
type AttendanceService struct {
	db     *gorm.DB
	writer *offline.Writer
}

func NewAttendanceService(writer *offline.Writer) *AttendanceService {
	return &AttendanceService{db: database.GetDB(), writer: writer}
}

// MarkByCode resolves the scanned or typed student code first. The QR
// decoder is outside this service; it only ever hands us the code string.
func (s *AttendanceService) MarkByCode(ctx context.Context, code, date string, present bool) (MarkResult, *models.Student, error) {
	var student models.Student
	if err := s.db.Where("code = ?", code).First(&student).Error; err != nil {
		return MarkResult{}, nil, err
	}
	result, err := s.Mark(ctx, student.ID, date, present)
	return result, &student, err
}

// Mark records attendance for one student on one date.
func (s *AttendanceService) Mark(ctx context.Context, studentID uint, date string, present bool) (MarkResult, error) {
	var existing models.AttendanceRecord
	var existingPtr *models.AttendanceRecord

	err := s.db.WithContext(ctx).
		Where("student_id = ? AND date = ?", studentID, date).
		First(&existing).Error
	switch {
	case err == nil:
		existingPtr = &existing
	case errors.Is(err, gorm.ErrRecordNotFound):
		existingPtr = nil
	default:
		// Store unreachable: capture the mark and report it as queued.
		return s.queueMark(ctx, studentID, date, present, offline.KindInsert)
	}

	switch decideMark(existingPtr, present) {
	case actionDuplicate:
		return MarkResult{Status: MarkAlreadyPresent, Record: existingPtr}, nil

	case actionInsert:
		record := models.AttendanceRecord{
			StudentID: studentID,
			Date:      date,
			Present:   present,
		}
		if present {
			now := time.Now().UTC()
			record.CheckedInAt = &now
		}
		err := s.db.WithContext(ctx).Create(&record).Error
		if err == nil {
			return MarkResult{Status: MarkInserted, Record: &record}, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race against a concurrent insert for the same
			// (student, date). Re-fetch and classify instead of
			// surfacing the constraint violation.
			var current models.AttendanceRecord
			if ferr := s.db.WithContext(ctx).
				Where("student_id = ? AND date = ?", studentID, date).
				First(&current).Error; ferr != nil {
				return MarkResult{}, ferr
			}
			if current.Present && present {
				return MarkResult{Status: MarkAlreadyPresent, Record: &current}, nil
			}
			return MarkResult{Status: MarkAlreadyExists, Record: &current}, nil
		}
		return s.queueMark(ctx, studentID, date, present, offline.KindInsert)

	default: // actionUpdate
		updates := map[string]interface{}{
			"present": present,
			// A status change invalidates any notification already sent.
			"notified": false,
		}
		if present && !existingPtr.Present {
			updates["checked_in_at"] = time.Now().UTC()
		}
		err := s.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
			Where("student_id = ? AND date = ?", studentID, date).
			Updates(updates).Error
		if err != nil {
			return s.queueMark(ctx, studentID, date, present, offline.KindUpdate)
		}
		var updated models.AttendanceRecord
		if err := s.db.WithContext(ctx).
			Where("student_id = ? AND date = ?", studentID, date).
			First(&updated).Error; err == nil {
			return MarkResult{Status: MarkUpdated, Record: &updated}, nil
		}
		return MarkResult{Status: MarkUpdated}, nil
	}
}

func (s *AttendanceService) queueMark(ctx context.Context, studentID uint, date string, present bool, kind offline.Kind) (MarkResult, error) {
	payload := map[string]interface{}{
		"student_id": studentID,
		"date":       date,
		"present":    present,
		"notified":   false,
	}
	if present {
		payload["checked_in_at"] = time.Now().UTC()
	}
	var (
		res offline.WriteResult
		err error
	)
	if kind == offline.KindUpdate {
		res, err = s.writer.Update(ctx, offline.TableAttendance, payload)
	} else {
		res, err = s.writer.Insert(ctx, offline.TableAttendance, payload)
	}
	if err != nil {
		return MarkResult{}, err
	}
	logrus.WithFields(logrus.Fields{
		"student_id": studentID,
		"date":       date,
		"operation":  res.OperationID,
	}).Info("Attendance mark queued for sync")
	return MarkResult{Status: MarkQueued, Queued: true}, nil
}

// History returns a student's attendance records, newest first.
func (s *AttendanceService) History(studentID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := s.db.Where("student_id = ?", studentID).Order("date DESC").Find(&records).Error
	return records, err
}

// DayRoster returns all records for one date with students preloaded.
func (s *AttendanceService) DayRoster(date string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := s.db.Where("date = ?", date).Preload("Student").Find(&records).Error
	return records, err
}

// MarkNotified flags an absence record after the parent message was sent.
func (s *AttendanceService) MarkNotified(recordID uint) error {
	return s.db.Model(&models.AttendanceRecord{}).
		Where("id = ?", recordID).Update("notified", true).Error
}
