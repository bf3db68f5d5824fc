package alerts

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studenttrack_go/database"
	"studenttrack_go/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrEventNotOpen is returned when resolving an event that does not
	// exist or was already resolved. Events resolve exactly once.
	ErrEventNotOpen = errors.New("alert event is not open")
)

// Service evaluates the rule registry against live data and persists the
// resulting alert events.
type Service struct {
	db *gorm.DB
}

func NewService() *Service {
	return &Service{db: database.GetDB()}
}

// ActiveRuleCodes loads the is_active flags from the alert_rules table.
// The registry's evaluation loop checks this set itself, so toggling a
// rule in the database disables it without a deploy.
func (s *Service) ActiveRuleCodes() (map[string]bool, error) {
	var rules []models.AlertRule
	if err := s.db.Where("is_active = ?", true).Find(&rules).Error; err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(rules))
	for _, r := range rules {
		active[r.Code] = true
	}
	return active, nil
}

// GatherFacts assembles the evaluation snapshot for one student on one date.
func (s *Service) GatherFacts(student models.Student, date time.Time) (Facts, error) {
	facts := Facts{Student: student, Date: date, HomeworkStatus: models.HomeworkUnknown}

	if err := s.db.Where("student_id = ?", student.ID).
		Order("date DESC").Find(&facts.History).Error; err != nil {
		return facts, err
	}

	month := date.Format("2006-01")
	var payment models.Payment
	err := s.db.Where("student_id = ? AND month = ?", student.ID, month).First(&payment).Error
	switch {
	case err == nil:
		facts.CurrentMonthPaid = payment.Paid
	case errors.Is(err, gorm.ErrRecordNotFound):
		facts.CurrentMonthPaid = false
	default:
		return facts, err
	}

	if err := s.db.Where("grade_level = ?", student.GradeLevel).Find(&facts.Exams).Error; err != nil {
		return facts, err
	}

	// Homework status comes from the sheet of the latest lesson on or
	// before the evaluation date for the student's grade.
	var sheet models.LessonSheet
	err = s.db.Joins("JOIN lessons ON lessons.id = lesson_sheets.lesson_id").
		Where("lesson_sheets.student_id = ? AND lessons.grade_level = ? AND lessons.date <= ?",
			student.ID, student.GradeLevel, date.Format("2006-01-02")).
		Order("lessons.date DESC").First(&sheet).Error
	if err == nil {
		facts.HomeworkStatus = sheet.HomeworkStatus
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return facts, err
	}

	low, err := s.monthlyAverageBelowHalf(student.ID, month)
	if err != nil {
		return facts, err
	}
	facts.LowPerformance = low

	return facts, nil
}

// monthlyAverageBelowHalf reports whether the student's scored work in the
// month averaged below 50 percent. Students with no scored work are never
// flagged.
func (s *Service) monthlyAverageBelowHalf(studentID uint, month string) (bool, error) {
	type ratio struct {
		Score    int
		MaxScore int
	}
	var ratios []ratio

	var examResults []ratio
	if err := s.db.Model(&models.ExamResult{}).
		Select("exam_results.score AS score, exams.max_score AS max_score").
		Joins("JOIN exams ON exams.id = exam_results.exam_id").
		Where("exam_results.student_id = ? AND exams.date LIKE ?", studentID, month+"%").
		Scan(&examResults).Error; err != nil {
		return false, err
	}
	ratios = append(ratios, examResults...)

	var sheetResults []ratio
	if err := s.db.Model(&models.LessonSheet{}).
		Select("lesson_sheets.score AS score, lesson_sheets.max_score AS max_score").
		Joins("JOIN lessons ON lessons.id = lesson_sheets.lesson_id").
		Where("lesson_sheets.student_id = ? AND lesson_sheets.score IS NOT NULL AND lessons.date LIKE ?", studentID, month+"%").
		Scan(&sheetResults).Error; err != nil {
		return false, err
	}
	ratios = append(ratios, sheetResults...)

	var recResults []ratio
	if err := s.db.Model(&models.LessonRecitation{}).
		Select("lesson_recitations.score AS score, lesson_recitations.max_score AS max_score").
		Joins("JOIN lessons ON lessons.id = lesson_recitations.lesson_id").
		Where("lesson_recitations.student_id = ? AND lessons.date LIKE ?", studentID, month+"%").
		Scan(&recResults).Error; err != nil {
		return false, err
	}
	ratios = append(ratios, recResults...)

	if len(ratios) == 0 {
		return false, nil
	}
	var sum float64
	var n int
	for _, r := range ratios {
		if r.MaxScore <= 0 {
			continue
		}
		sum += float64(r.Score) / float64(r.MaxScore)
		n++
	}
	if n == 0 {
		return false, nil
	}
	return sum/float64(n) < 0.5, nil
}

// EvaluateStudent gathers facts and runs the active rules for one student.
// It does not persist anything.
func (s *Service) EvaluateStudent(studentID uint, date time.Time) ([]TriggeredAlert, error) {
	var student models.Student
	if err := s.db.First(&student, studentID).Error; err != nil {
		return nil, err
	}
	active, err := s.ActiveRuleCodes()
	if err != nil {
		return nil, err
	}
	facts, err := s.GatherFacts(student, date)
	if err != nil {
		return nil, err
	}
	return Evaluate(facts, active), nil
}

// RecordEvents persists triggered alerts as alert events. A rule that
// already has an open event for the student is not duplicated.
func (s *Service) RecordEvents(studentID uint, triggered []TriggeredAlert) ([]models.AlertEvent, error) {
	var created []models.AlertEvent
	for _, alert := range triggered {
		var count int64
		if err := s.db.Model(&models.AlertEvent{}).
			Where("student_id = ? AND rule_code = ? AND status = ?", studentID, alert.RuleCode, "open").
			Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}

		var ctxJSON models.JSON
		if alert.Context != nil {
			if b, err := json.Marshal(alert.Context); err == nil {
				ctxJSON = b
			}
		}
		event := models.AlertEvent{
			StudentID: studentID,
			RuleCode:  alert.RuleCode,
			Title:     alert.Title,
			Message:   alert.Message,
			Severity:  alert.Severity,
			Status:    "open",
			Context:   ctxJSON,
		}
		if err := s.db.Create(&event).Error; err != nil {
			return created, err
		}
		created = append(created, event)
	}
	return created, nil
}

// EvaluateAndRecord is the common entry point used by the attendance,
// payment and grading paths after a mutation.
func (s *Service) EvaluateAndRecord(studentID uint, date time.Time) ([]models.AlertEvent, error) {
	triggered, err := s.EvaluateStudent(studentID, date)
	if err != nil {
		return nil, err
	}
	return s.RecordEvents(studentID, triggered)
}

// ResolveEvent marks an open event resolved. The open -> resolved
// transition happens exactly once; resolving again returns ErrEventNotOpen.
func (s *Service) ResolveEvent(eventID uint) (*models.AlertEvent, error) {
	now := time.Now().UTC()
	res := s.db.Model(&models.AlertEvent{}).
		Where("id = ? AND status = ?", eventID, "open").
		Updates(map[string]interface{}{"status": "resolved", "resolved_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrEventNotOpen
	}
	var event models.AlertEvent
	if err := s.db.First(&event, eventID).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// SweepResult summarises one roster-wide evaluation pass.
type SweepResult struct {
	Students int `json:"students"`
	Events   int `json:"events"`
	Errors   int `json:"errors"`
}

// Sweep evaluates every active student for the given date and records the
// resulting events. The cron scheduler runs it every morning.
func (s *Service) Sweep(date time.Time) SweepResult {
	var result SweepResult
	var students []models.Student
	if err := s.db.Where("active = ?", true).Find(&students).Error; err != nil {
		logrus.WithError(err).Error("alert sweep: failed to load students")
		result.Errors++
		return result
	}

	active, err := s.ActiveRuleCodes()
	if err != nil {
		logrus.WithError(err).Error("alert sweep: failed to load rules")
		result.Errors++
		return result
	}

	for _, student := range students {
		result.Students++
		facts, err := s.GatherFacts(student, date)
		if err != nil {
			logrus.WithError(err).WithField("student_id", student.ID).Warn("alert sweep: facts")
			result.Errors++
			continue
		}
		events, err := s.RecordEvents(student.ID, Evaluate(facts, active))
		if err != nil {
			logrus.WithError(err).WithField("student_id", student.ID).Warn("alert sweep: record")
			result.Errors++
			continue
		}
		result.Events += len(events)
	}

	logrus.WithFields(logrus.Fields{
		"students": result.Students,
		"events":   result.Events,
		"errors":   result.Errors,
	}).Info("Alert sweep completed")
	return result
}

// ToggleRule flips a rule's is_active flag.
func (s *Service) ToggleRule(code string, active bool) error {
	res := s.db.Model(&models.AlertRule{}).Where("code = ?", code).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("unknown rule code %q", code)
	}
	return nil
}
