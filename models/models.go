package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = append((*j)[0:0], v...)
	}
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User model for admin accounts
type User struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Name     string `json:"name" gorm:"size:200"`
	Phone    string `json:"phone" gorm:"size:20"`
	Role     string `json:"role" gorm:"size:50;not null;default:'assistant'"` // owner, admin, assistant
	Status   string `json:"status" gorm:"size:50;not null;default:'active'"`  // active, inactive, suspended
	Avatar   string `json:"avatar" gorm:"size:500"`
}

// Group model for study groups
type Group struct {
	BaseModel
	Name       string `json:"name" gorm:"size:100;not null"`
	GradeLevel string `json:"grade_level" gorm:"size:50;not null"`
	Active     bool   `json:"active" gorm:"default:true"`

	// Relationships
	Students []Student `json:"students,omitempty" gorm:"foreignKey:GroupID"`
}

// Student model
type Student struct {
	BaseModel
	Name         string    `json:"name" gorm:"size:200;not null"`
	Code         string    `json:"code" gorm:"size:20;not null;uniqueIndex"` // generated short code used for QR and manual lookup
	GradeLevel   string    `json:"grade_level" gorm:"size:50;not null"`
	GroupID      *uint     `json:"group_id"`
	ParentPhone  string    `json:"parent_phone" gorm:"size:20;not null"`
	StudentPhone string    `json:"student_phone" gorm:"size:20"`
	MonthlyFee   int       `json:"monthly_fee" gorm:"not null;default:0"`
	PhotoURL     string    `json:"photo_url" gorm:"size:500"`
	RegisteredAt time.Time `json:"registered_at"`
	Active       bool      `json:"active" gorm:"default:true"`

	// Relationships
	Group *Group `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}

// AttendanceRecord model; at most one record per (student, date)
type AttendanceRecord struct {
	BaseModel
	StudentID   uint       `json:"student_id" gorm:"not null;uniqueIndex:idx_attendance_student_date"`
	Date        string     `json:"date" gorm:"size:10;not null;uniqueIndex:idx_attendance_student_date"` // YYYY-MM-DD
	Present     bool       `json:"present" gorm:"not null"`
	Notified    bool       `json:"notified" gorm:"default:false"`
	CheckedInAt *time.Time `json:"checked_in_at"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Payment model; at most one record per (student, month)
type Payment struct {
	BaseModel
	StudentID uint       `json:"student_id" gorm:"not null;uniqueIndex:idx_payment_student_month"`
	Month     string     `json:"month" gorm:"size:7;not null;uniqueIndex:idx_payment_student_month"` // YYYY-MM
	Amount    int        `json:"amount" gorm:"not null"`
	Paid      bool       `json:"paid" gorm:"default:false"`
	PaidAt    *time.Time `json:"paid_at"`
	Notified  bool       `json:"notified" gorm:"default:false"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Exam model
type Exam struct {
	BaseModel
	Name       string `json:"name" gorm:"size:200;not null"`
	GradeLevel string `json:"grade_level" gorm:"size:50;not null;index"`
	Date       string `json:"date" gorm:"size:10;not null"` // YYYY-MM-DD
	MaxScore   int    `json:"max_score" gorm:"not null;default:100"`

	// Relationships
	Results []ExamResult `json:"results,omitempty" gorm:"foreignKey:ExamID"`
}

// ExamResult model; unique per (exam, student), upserted on resubmission
type ExamResult struct {
	BaseModel
	ExamID    uint   `json:"exam_id" gorm:"not null;uniqueIndex:idx_exam_result_exam_student"`
	StudentID uint   `json:"student_id" gorm:"not null;uniqueIndex:idx_exam_result_exam_student"`
	Score     int    `json:"score" gorm:"not null"`
	Note      string `json:"note" gorm:"size:500"`

	// Relationships
	Exam    Exam    `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Lesson model
type Lesson struct {
	BaseModel
	Name       string `json:"name" gorm:"size:200;not null"`
	GradeLevel string `json:"grade_level" gorm:"size:50;not null;index"`
	Date       string `json:"date" gorm:"size:10;not null"` // YYYY-MM-DD
}

// Homework status values stored on lesson sheets
const (
	HomeworkDone    = "done"
	HomeworkNotDone = "not_done"
	HomeworkUnknown = "unknown"
)

// LessonSheet model; unique per (lesson, student)
type LessonSheet struct {
	BaseModel
	LessonID       uint   `json:"lesson_id" gorm:"not null;uniqueIndex:idx_lesson_sheet_lesson_student"`
	StudentID      uint   `json:"student_id" gorm:"not null;uniqueIndex:idx_lesson_sheet_lesson_student"`
	HomeworkStatus string `json:"homework_status" gorm:"size:20;not null;default:'unknown'"` // done, not_done, unknown
	Score          *int   `json:"score"`
	MaxScore       int    `json:"max_score" gorm:"not null;default:100"`
	Note           string `json:"note" gorm:"size:500"`

	// Relationships
	Lesson  Lesson  `json:"lesson,omitempty" gorm:"foreignKey:LessonID"`
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// LessonRecitation model; unique per (lesson, student)
type LessonRecitation struct {
	BaseModel
	LessonID  uint   `json:"lesson_id" gorm:"not null;uniqueIndex:idx_lesson_recitation_lesson_student"`
	StudentID uint   `json:"student_id" gorm:"not null;uniqueIndex:idx_lesson_recitation_lesson_student"`
	Score     int    `json:"score" gorm:"not null"`
	MaxScore  int    `json:"max_score" gorm:"not null;default:100"`
	Note      string `json:"note" gorm:"size:500"`

	// Relationships
	Lesson  Lesson  `json:"lesson,omitempty" gorm:"foreignKey:LessonID"`
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// AlertRule model; rules are data, toggling is_active disables evaluation
type AlertRule struct {
	BaseModel
	Code        string `json:"code" gorm:"size:100;not null;uniqueIndex"`
	Title       string `json:"title" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Severity    string `json:"severity" gorm:"size:20;not null;default:'warning'"` // info, warning, critical
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}

// AlertEvent model; immutable once created, transitions open -> resolved exactly once
type AlertEvent struct {
	BaseModel
	StudentID  uint       `json:"student_id" gorm:"not null;index"`
	RuleCode   string     `json:"rule_code" gorm:"size:100;not null;index"`
	Title      string     `json:"title" gorm:"size:255;not null"`
	Message    string     `json:"message" gorm:"type:text;not null"`
	Severity   string     `json:"severity" gorm:"size:20;not null"`
	Status     string     `json:"status" gorm:"size:20;not null;default:'open'"` // open, resolved
	Context    JSON       `json:"context" gorm:"type:jsonb"`
	ResolvedAt *time.Time `json:"resolved_at"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// StudentBlock model; at most one active block per student, history retained
type StudentBlock struct {
	BaseModel
	StudentID           uint   `json:"student_id" gorm:"not null;index"`
	IsActive            bool   `json:"is_active" gorm:"default:true"`
	BlockType           string `json:"block_type" gorm:"size:50;not null;default:'freeze'"`
	Reason              string `json:"reason" gorm:"type:text;not null"`
	TriggeredByRuleCode string `json:"triggered_by_rule_code" gorm:"size:100"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Notification model for admin push notifications
type Notification struct {
	BaseModel
	UserID  uint       `json:"user_id" gorm:"not null;index"`
	Title   string     `json:"title" gorm:"size:255;not null"`
	Message string     `json:"message" gorm:"type:text;not null"`
	Type    string     `json:"type" gorm:"size:50;not null;default:'info'"` // info, warning, error, success
	Read    bool       `json:"read" gorm:"default:false"`
	ReadAt  *time.Time `json:"read_at"`
	Data    JSON       `json:"data,omitempty" gorm:"type:jsonb"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// ActivityLog model for admin audit trail
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:jsonb"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// AppSettings is a single-row table holding center-wide configuration,
// loaded once at startup and injected where needed.
type AppSettings struct {
	BaseModel
	CenterName     string `json:"center_name" gorm:"size:200;not null;default:'Student Track'"`
	CountryCode    string `json:"country_code" gorm:"size:5;not null;default:'20'"` // WhatsApp dialing prefix
	Timezone       string `json:"timezone" gorm:"size:100;not null;default:'Africa/Cairo'"`
	SweepHour      int    `json:"sweep_hour" gorm:"not null;default:8"` // daily alert sweep hour (local)
	AbsenceMessage string `json:"absence_message" gorm:"type:text"`
	PaymentMessage string `json:"payment_message" gorm:"type:text"`
}
