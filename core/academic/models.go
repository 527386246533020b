package academic

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/sadhanaschool/backend/core"
)

// Attendance statuses
const (
	Present = "PRESENT"
	Absent  = "ABSENT"
	Late    = "LATE"
)

// Announcement priorities
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Notification types
const (
	NotifyInfo    = "INFO"
	NotifyWarning = "WARNING"
	NotifySuccess = "SUCCESS"
	NotifyError   = "ERROR"
)

// AnnouncementLimit is how many announcements a user sees.
const AnnouncementLimit = 20

type Class struct {
	ID        string    `json:"class_id" db:"class_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewClass struct {
	Name string `json:"name" query:"name" validate:"required,notblank"`
}

type Section struct {
	ID        string    `json:"section_id" db:"section_id"`
	ClassID   string    `json:"class_id" db:"class_id"`
	Name      string    `json:"name" db:"name"`
	Capacity  int       `json:"capacity" db:"capacity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NewSection struct {
	ClassID  string `json:"class_id" query:"class_id" validate:"required"`
	Name     string `json:"name" query:"name" validate:"required,notblank"`
	Capacity int    `json:"capacity" query:"capacity" validate:"omitempty,gt=0"` // 0: school default
}

type SectionUpdate struct {
	Name     *string `json:"name" query:"name" validate:"omitempty,notblank"`
	Capacity *int    `json:"capacity" query:"capacity" validate:"omitempty,gt=0"`
}

type Attendance struct {
	ID        string    `json:"attendance_id" db:"attendance_id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Date      string    `json:"date" db:"date"` // YYYY-MM-DD
	Status    string    `json:"status" db:"status"`
	MarkedBy  string    `json:"marked_by" db:"marked_by"`
	Remarks   string    `json:"remarks,omitempty" db:"remarks"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewAttendance struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,oneof=PRESENT ABSENT LATE"`
	MarkedBy  string `json:"marked_by"`
	Remarks   string `json:"remarks"`
}

type BulkAttendance struct {
	Records []NewAttendance `json:"records" validate:"required,min=1,dive"`
}

type AttendanceSummary struct {
	Records     []Attendance `json:"records"`
	TotalDays   int          `json:"total_days"`
	PresentDays int          `json:"present_days"`
	Percentage  float64      `json:"percentage"`
}

type Marks struct {
	ID            string    `json:"marks_id" db:"marks_id"`
	StudentID     string    `json:"student_id" db:"student_id"`
	Subject       string    `json:"subject" db:"subject"`
	ExamName      string    `json:"exam_name" db:"exam_name"`
	MarksObtained float64   `json:"marks_obtained" db:"marks_obtained"`
	TotalMarks    float64   `json:"total_marks" db:"total_marks"`
	Grade         string    `json:"grade" db:"grade"`
	UploadedBy    string    `json:"uploaded_by" db:"uploaded_by"`
	ExamDate      string    `json:"exam_date" db:"exam_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type NewMarks struct {
	StudentID     string  `json:"student_id" validate:"required"`
	Subject       string  `json:"subject" validate:"required,notblank"`
	ExamName      string  `json:"exam_name" validate:"required,notblank"`
	MarksObtained float64 `json:"marks_obtained" validate:"gte=0,ltefield=TotalMarks"`
	TotalMarks    float64 `json:"total_marks" validate:"gt=0"`
	Grade         string  `json:"grade"`
	UploadedBy    string  `json:"uploaded_by"`
	ExamDate      string  `json:"exam_date" validate:"required,datetime=2006-01-02"`
}

// Grade maps a percentage to a letter grade.
func Grade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B+"
	case percentage >= 60:
		return "B"
	case percentage >= 50:
		return "C"
	case percentage >= 40:
		return "D"
	default:
		return "F"
	}
}

type Period struct {
	Period  int    `json:"period" validate:"gt=0"`
	Subject string `json:"subject" validate:"required,notblank"`
	Faculty string `json:"faculty"`
	Time    string `json:"time"`
}

// Periods is stored as a JSONB array.
type Periods []Period

func (p Periods) Value() (driver.Value, error) {
	if p == nil {
		return core.JSONValue([]Period{})
	}
	return core.JSONValue([]Period(p))
}

func (p *Periods) Scan(src interface{}) error {
	return core.ScanJSON(src, (*[]Period)(p))
}

type Timetable struct {
	ID        string    `json:"timetable_id" db:"timetable_id"`
	ClassName string    `json:"class_name" db:"class_name"`
	Section   string    `json:"section" db:"section"`
	Day       string    `json:"day" db:"day"`
	Periods   Periods   `json:"periods" db:"periods"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NewTimetable struct {
	ClassName string   `json:"class_name" validate:"required,schoolclass"`
	Section   string   `json:"section" validate:"required,section"`
	Day       string   `json:"day" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	Periods   []Period `json:"periods" validate:"required,min=1,dive"`
}

func (nt *NewTimetable) Clean() {
	nt.ClassName = core.CleanString(nt.ClassName)
	nt.Section = strings.ToUpper(core.CleanString(nt.Section))
	nt.Day = strings.ToUpper(core.CleanString(nt.Day))
}

type Announcement struct {
	ID          string          `json:"announcement_id" db:"announcement_id"`
	Title       string          `json:"title" db:"title"`
	Content     string          `json:"content" db:"content"`
	TargetRoles core.StringList `json:"target_roles" db:"target_roles"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	Priority    string          `json:"priority" db:"priority"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
}

// Targets reports whether the announcement is meant for role.
func (a Announcement) Targets(role string) bool {
	return core.Contains(a.TargetRoles, role)
}

// Expired reports whether the announcement expired before now.
func (a Announcement) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

type NewAnnouncement struct {
	Title       string     `json:"title" validate:"required,notblank"`
	Content     string     `json:"content" validate:"required,notblank"`
	TargetRoles []string   `json:"target_roles" validate:"required,min=1,dive,oneof=ADMIN FACULTY STUDENT PARENT"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type Notification struct {
	ID        string    `json:"notification_id" db:"notification_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Type      string    `json:"type" db:"type"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewNotification struct {
	UserID  string `json:"user_id" validate:"required"`
	Title   string `json:"title" validate:"required,notblank"`
	Message string `json:"message" validate:"required,notblank"`
	Type    string `json:"type" validate:"omitempty,oneof=INFO WARNING SUCCESS ERROR"`
}
