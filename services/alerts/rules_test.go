package alerts

import (
	"testing"
	"time"

	"studenttrack_go/models"
)

func record(date string, present bool) models.AttendanceRecord {
	return models.AttendanceRecord{Date: date, Present: present}
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func allActive() map[string]bool {
	active := make(map[string]bool)
	for _, rule := range Registry() {
		active[rule.Code] = true
	}
	return active
}

func TestConsecutiveAbsences(t *testing.T) {
	tests := []struct {
		name    string
		history []models.AttendanceRecord
		date    string
		expect  int
	}{
		{
			name: "run stops at first present",
			history: []models.AttendanceRecord{
				record("2025-03-10", false),
				record("2025-03-09", false),
				record("2025-03-08", true),
				record("2025-03-07", false),
			},
			date:   "2025-03-11",
			expect: 2,
		},
		{
			name: "record on evaluation date excluded",
			history: []models.AttendanceRecord{
				record("2025-03-11", false),
				record("2025-03-10", false),
			},
			date:   "2025-03-11",
			expect: 1,
		},
		{
			name: "unsorted history is sorted before scanning",
			history: []models.AttendanceRecord{
				record("2025-03-08", false),
				record("2025-03-10", false),
				record("2025-03-09", false),
			},
			date:   "2025-03-11",
			expect: 3,
		},
		{
			name:    "empty history",
			history: nil,
			date:    "2025-03-11",
			expect:  0,
		},
		{
			name: "most recent present",
			history: []models.AttendanceRecord{
				record("2025-03-10", true),
				record("2025-03-09", false),
			},
			date:   "2025-03-11",
			expect: 0,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := ConsecutiveAbsences(tc.history, day(tc.date))
			if got != tc.expect {
				t.Fatalf("expected %d, got %d", tc.expect, got)
			}
		})
	}
}

func TestConsecutiveRuleFiresAtTwo(t *testing.T) {
	facts := Facts{
		Student: models.Student{Name: "Sara", GradeLevel: "grade-9"},
		Date:    day("2025-03-11"),
		History: []models.AttendanceRecord{
			record("2025-03-10", false),
			record("2025-03-09", false),
			record("2025-03-08", true),
			record("2025-03-07", false),
		},
		CurrentMonthPaid: true,
	}

	alerts := Evaluate(facts, allActive())
	var found *TriggeredAlert
	for i := range alerts {
		if alerts[i].RuleCode == RuleAbsent2Consecutive {
			found = &alerts[i]
		}
	}
	if found == nil {
		t.Fatal("expected absent_2_consecutive to fire")
	}
	if found.Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %s", found.Severity)
	}
	if count := found.Context["consecutive_count"]; count != 2 {
		t.Fatalf("expected consecutive_count 2, got %v", count)
	}
}

func TestMonthlyAbsenceThreshold(t *testing.T) {
	base := []models.AttendanceRecord{
		record("2025-03-03", false),
		record("2025-03-05", false),
		record("2025-02-28", false), // outside the month, never counted
	}

	tests := []struct {
		name       string
		extra      []models.AttendanceRecord
		shouldFire bool
	}{
		{name: "two absences does not fire", extra: nil, shouldFire: false},
		{name: "three absences fires", extra: []models.AttendanceRecord{record("2025-03-07", false)}, shouldFire: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			facts := Facts{
				Student:          models.Student{Name: "Omar"},
				Date:             day("2025-03-15"),
				History:          append(append([]models.AttendanceRecord{}, base...), tc.extra...),
				CurrentMonthPaid: true,
			}
			alerts := Evaluate(facts, allActive())
			fired := false
			for _, a := range alerts {
				if a.RuleCode == RuleAbsent3Month {
					fired = true
				}
			}
			if fired != tc.shouldFire {
				t.Fatalf("expected fired=%v, got %v", tc.shouldFire, fired)
			}
		})
	}
}

func TestPaymentWindowBoundary(t *testing.T) {
	tests := []struct {
		name       string
		date       string
		paid       bool
		shouldFire bool
	}{
		{name: "day 5 unpaid fires", date: "2025-03-05", paid: false, shouldFire: true},
		{name: "day 6 unpaid does not fire", date: "2025-03-06", paid: false, shouldFire: false},
		{name: "day 1 unpaid fires", date: "2025-03-01", paid: false, shouldFire: true},
		{name: "day 3 paid does not fire", date: "2025-03-03", paid: true, shouldFire: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			facts := Facts{
				Student:          models.Student{Name: "Nour"},
				Date:             day(tc.date),
				CurrentMonthPaid: tc.paid,
			}
			alerts := Evaluate(facts, allActive())
			fired := false
			for _, a := range alerts {
				if a.RuleCode == RulePayment1To5 {
					fired = true
					if a.Severity != SeverityWarning {
						t.Fatalf("expected warning severity, got %s", a.Severity)
					}
				}
			}
			if fired != tc.shouldFire {
				t.Fatalf("expected fired=%v, got %v", tc.shouldFire, fired)
			}
		})
	}
}

func TestHomeworkRule(t *testing.T) {
	tests := []struct {
		status     string
		shouldFire bool
	}{
		{status: models.HomeworkNotDone, shouldFire: true},
		{status: models.HomeworkDone, shouldFire: false},
		{status: models.HomeworkUnknown, shouldFire: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.status, func(t *testing.T) {
			facts := Facts{
				Student:          models.Student{Name: "Ali"},
				Date:             day("2025-03-10"),
				CurrentMonthPaid: true,
				HomeworkStatus:   tc.status,
			}
			alerts := Evaluate(facts, allActive())
			fired := false
			for _, a := range alerts {
				if a.RuleCode == RuleHomeworkRequired {
					fired = true
				}
			}
			if fired != tc.shouldFire {
				t.Fatalf("status %q: expected fired=%v, got %v", tc.status, tc.shouldFire, fired)
			}
		})
	}
}

func TestExamDayRuleMatchesGradeAndDate(t *testing.T) {
	facts := Facts{
		Student:          models.Student{Name: "Hana", GradeLevel: "grade-9"},
		Date:             day("2025-03-10"),
		CurrentMonthPaid: true,
		Exams: []models.Exam{
			{Name: "Algebra", GradeLevel: "grade-8", Date: "2025-03-10"},
			{Name: "Geometry", GradeLevel: "grade-9", Date: "2025-03-12"},
			{Name: "Physics", GradeLevel: "grade-9", Date: "2025-03-10"},
		},
	}

	alerts := Evaluate(facts, allActive())
	var found *TriggeredAlert
	for i := range alerts {
		if alerts[i].RuleCode == RuleExamAbsence {
			found = &alerts[i]
		}
	}
	if found == nil {
		t.Fatal("expected exam_absence to fire")
	}
	if found.Context["exam_name"] != "Physics" {
		t.Fatalf("expected Physics exam, got %v", found.Context["exam_name"])
	}
}

func TestInactiveRulesAreSkipped(t *testing.T) {
	facts := Facts{
		Student: models.Student{Name: "Sara"},
		Date:    day("2025-03-03"),
		History: []models.AttendanceRecord{
			record("2025-03-02", false),
			record("2025-03-01", false),
		},
		CurrentMonthPaid: false,
		LowPerformance:   true,
	}

	active := allActive()
	active[RulePayment1To5] = false
	active[RulePerformanceBelow50] = false

	alerts := Evaluate(facts, active)
	for _, a := range alerts {
		if a.RuleCode == RulePayment1To5 || a.RuleCode == RulePerformanceBelow50 {
			t.Fatalf("inactive rule %s fired", a.RuleCode)
		}
	}

	fired := false
	for _, a := range alerts {
		if a.RuleCode == RuleAbsent2Consecutive {
			fired = true
		}
	}
	if !fired {
		t.Fatal("expected absent_2_consecutive to still fire")
	}
}

func TestMultipleRulesFireIndependently(t *testing.T) {
	facts := Facts{
		Student: models.Student{Name: "Omar", GradeLevel: "grade-9"},
		Date:    day("2025-03-04"),
		History: []models.AttendanceRecord{
			record("2025-03-03", false),
			record("2025-03-02", false),
			record("2025-03-01", false),
		},
		CurrentMonthPaid: false,
		LowPerformance:   true,
	}

	alerts := Evaluate(facts, allActive())
	got := make(map[string]bool, len(alerts))
	for _, a := range alerts {
		got[a.RuleCode] = true
	}
	for _, code := range []string{RuleAbsent2Consecutive, RuleAbsent3Month, RulePayment1To5, RulePerformanceBelow50} {
		if !got[code] {
			t.Fatalf("expected %s to fire; got %v", code, got)
		}
	}
}

func TestRegistrySeverities(t *testing.T) {
	expect := map[string]string{
		RuleAbsent2Consecutive: SeverityCritical,
		RuleAbsent3Month:       SeverityCritical,
		RulePayment1To5:        SeverityWarning,
		RuleHomeworkRequired:   SeverityWarning,
		RulePerformanceBelow50: SeverityCritical,
		RuleExamAbsence:        SeverityWarning,
	}

	registry := Registry()
	if len(registry) != len(expect) {
		t.Fatalf("registry has %d rules, want %d", len(registry), len(expect))
	}
	for _, rule := range registry {
		want, ok := expect[rule.Code]
		if !ok {
			t.Errorf("unexpected rule %s", rule.Code)
			continue
		}
		if rule.Severity != want {
			t.Errorf("rule %s severity = %s, want %s", rule.Code, rule.Severity, want)
		}
	}
}
