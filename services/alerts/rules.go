package alerts

import (
	"fmt"
	"sort"
	"time"

	"studenttrack_go/models"
)

// Rule codes
const (
	RuleAbsent2Consecutive = "absent_2_consecutive"
	RuleAbsent3Month       = "absent_3_month"
	RulePayment1To5        = "payment_1_5"
	RuleHomeworkRequired   = "homework_required"
	RulePerformanceBelow50 = "performance_below_50"
	RuleExamAbsence        = "exam_absence"
)

// Severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Facts is the snapshot evaluated for one student on one date. Evaluation
// never touches the database; callers assemble the snapshot first.
type Facts struct {
	Student          models.Student
	Date             time.Time
	History          []models.AttendanceRecord // full attendance history, any order
	CurrentMonthPaid bool
	Exams            []models.Exam // exams scheduled for the student's grade
	HomeworkStatus   string        // done, not_done, unknown
	LowPerformance   bool          // monthly average below 50%
}

// TriggeredAlert describes one rule violation requiring a human decision.
type TriggeredAlert struct {
	RuleCode string
	Title    string
	Message  string
	Severity string
	Context  map[string]interface{}
}

// Rule couples a rule's metadata with its predicate. Keeping both in one
// registry entry means the active/inactive flag and the predicate cannot
// drift apart.
type Rule struct {
	Code     string
	Title    string
	Severity string
	Fire     func(f Facts) (bool, string, map[string]interface{})
}

// Registry returns the full rule set in evaluation order.
func Registry() []Rule {
	return []Rule{
		{
			Code:     RuleAbsent2Consecutive,
			Title:    "Consecutive absences",
			Severity: SeverityCritical,
			Fire: func(f Facts) (bool, string, map[string]interface{}) {
				run := ConsecutiveAbsences(f.History, f.Date)
				if run < 2 {
					return false, "", nil
				}
				msg := fmt.Sprintf("%s has been absent %d sessions in a row", f.Student.Name, run)
				return true, msg, map[string]interface{}{"consecutive_count": run}
			},
		},
		{
			Code:     RuleAbsent3Month,
			Title:    "Monthly absence threshold",
			Severity: SeverityCritical,
			Fire: func(f Facts) (bool, string, map[string]interface{}) {
				month := f.Date.Format("2006-01")
				count := MonthlyAbsences(f.History, month)
				if count < 3 {
					return false, "", nil
				}
				msg := fmt.Sprintf("%s has %d absences in %s", f.Student.Name, count, month)
				return true, msg, map[string]interface{}{"month": month, "absence_count": count}
			},
		},
		{
			Code:     RulePayment1To5,
			Title:    "Payment window open",
			Severity: SeverityWarning,
			Fire: func(f Facts) (bool, string, map[string]interface{}) {
				day := f.Date.Day()
				if day < 1 || day > 5 || f.CurrentMonthPaid {
					return false, "", nil
				}
				msg := fmt.Sprintf("%s has not paid for %s yet", f.Student.Name, f.Date.Format("2006-01"))
				return true, msg, map[string]interface{}{"month": f.Date.Format("2006-01"), "day": day}
			},
		},
		{
			Code:     RuleHomeworkRequired,
			Title:    "Homework not done",
			Severity: SeverityWarning,
			Fire: func(f Facts) (bool, string, map[string]interface{}) {
				if f.HomeworkStatus != models.HomeworkNotDone {
					return false, "", nil
				}
				msg := fmt.Sprintf("%s did not complete the homework; class entry requires a decision", f.Student.Name)
				return true, msg, map[string]interface{}{"homework_status": f.HomeworkStatus}
			},
		},
		{
			Code:     RulePerformanceBelow50,
			Title:    "Performance below 50%",
			Severity: SeverityCritical,
			Fire: func(f Facts) (bool, string, map[string]interface{}) {
				if !f.LowPerformance {
					return false, "", nil
				}
				msg := fmt.Sprintf("%s averaged below 50%% this month", f.Student.Name)
				return true, msg, nil
			},
		},
		{
			Code:     RuleExamAbsence,
			Title:    "Exam scheduled today",
			Severity: SeverityWarning,
			Fire: func(f Facts) (bool, string, map[string]interface{}) {
				today := f.Date.Format("2006-01-02")
				for _, exam := range f.Exams {
					if exam.Date == today && exam.GradeLevel == f.Student.GradeLevel {
						msg := fmt.Sprintf("%s has exam %q scheduled today", f.Student.Name, exam.Name)
						return true, msg, map[string]interface{}{"exam_id": exam.ID, "exam_name": exam.Name}
					}
				}
				return false, "", nil
			},
		},
	}
}

// Evaluate runs every rule whose code appears in active against the facts.
// Rules fire independently; several alerts may be returned for one call.
func Evaluate(f Facts, active map[string]bool) []TriggeredAlert {
	var out []TriggeredAlert
	for _, rule := range Registry() {
		if !active[rule.Code] {
			continue
		}
		fired, msg, ctx := rule.Fire(f)
		if !fired {
			continue
		}
		out = append(out, TriggeredAlert{
			RuleCode: rule.Code,
			Title:    rule.Title,
			Message:  msg,
			Severity: rule.Severity,
			Context:  ctx,
		})
	}
	return out
}

// ConsecutiveAbsences counts the run of present=false records strictly
// before date, newest first, stopping at the first present=true.
func ConsecutiveAbsences(history []models.AttendanceRecord, date time.Time) int {
	cutoff := date.Format("2006-01-02")
	sorted := make([]models.AttendanceRecord, 0, len(history))
	for _, rec := range history {
		if rec.Date < cutoff {
			sorted = append(sorted, rec)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })

	run := 0
	for _, rec := range sorted {
		if rec.Present {
			break
		}
		run++
	}
	return run
}

// MonthlyAbsences counts present=false records whose date falls in the
// given YYYY-MM month.
func MonthlyAbsences(history []models.AttendanceRecord, month string) int {
	count := 0
	for _, rec := range history {
		if !rec.Present && len(rec.Date) >= 7 && rec.Date[:7] == month {
			count++
		}
	}
	return count
}
