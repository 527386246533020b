package people

import (
	"time"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/fees"
)

// PendingStudentID is the unique ID of a student profile that did not complete its registration.
const PendingStudentID = "PENDING"

// DefaultSubject is the subject of a faculty profile created on approval.
const DefaultSubject = "General"

type Student struct {
	ID              string          `json:"student_id" db:"student_id"`
	UniqueStudentID string          `json:"unique_student_id" db:"unique_student_id"`
	UserID          string          `json:"user_id" db:"user_id"`
	Name            string          `json:"name" db:"name"`
	Email           string          `json:"email" db:"email"`
	ClassName       string          `json:"class_name" db:"class_name"`
	Section         string          `json:"section" db:"section"`
	RollNumber      int             `json:"roll_number" db:"roll_number"`
	ParentIDs       core.StringList `json:"parent_ids" db:"parent_ids"`
	AdmissionNumber string          `json:"admission_number" db:"admission_number"`
	AdmissionDate   time.Time       `json:"admission_date" db:"admission_date"`
	DateOfBirth     string          `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender          string          `json:"gender,omitempty" db:"gender"`
	BloodGroup      string          `json:"blood_group,omitempty" db:"blood_group"`
	AadhaarID       string          `json:"aadhaar_id,omitempty" db:"aadhaar_id"`
	PhotoURL        string          `json:"student_photo_url,omitempty" db:"student_photo_url"`
	Address         string          `json:"address,omitempty" db:"address"`
	AcademicYear    string          `json:"academic_year" db:"academic_year"`
	PreviousSchool  string          `json:"previous_school,omitempty" db:"previous_school"`
	PreviousClass   string          `json:"previous_class,omitempty" db:"previous_class"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// IsRegistered reports whether the student completed the registration and holds a unique ID.
func (s Student) IsRegistered() bool {
	return s.UniqueStudentID != "" && s.UniqueStudentID != PendingStudentID
}

// StudentWithFees is a student listed along with its fee summary.
type StudentWithFees struct {
	Student
	fees.Summary
}

type StudentRegistration struct {
	UserID          string   `json:"user_id" validate:"required"`
	ClassName       string   `json:"class_name"`
	Section         string   `json:"section"`
	AdmissionNumber string   `json:"admission_number"`
	AcademicYear    string   `json:"academic_year" validate:"omitempty,academicyear"`
	DateOfBirth     string   `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender          string   `json:"gender" validate:"omitempty,oneof=M F Other"`
	BloodGroup      string   `json:"blood_group" validate:"omitempty,max=5"`
	AadhaarID       string   `json:"aadhaar_id" validate:"omitempty,numeric,len=12"`
	PhotoURL        string   `json:"student_photo_url" validate:"omitempty,url"`
	Address         string   `json:"address"`
	PreviousSchool  string   `json:"previous_school"`
	PreviousClass   string   `json:"previous_class"`
	ParentIDs       []string `json:"parent_ids"`
}

func (sr *StudentRegistration) Clean() {
	sr.UserID = core.CleanString(sr.UserID)
	sr.ClassName = core.CleanString(sr.ClassName)
	sr.Section = core.CleanString(sr.Section)
	sr.AdmissionNumber = core.CleanString(sr.AdmissionNumber)
	sr.AcademicYear = core.CleanString(sr.AcademicYear)
	sr.DateOfBirth = core.CleanString(sr.DateOfBirth)
	sr.Gender = core.CleanString(sr.Gender)
	sr.BloodGroup = core.CleanString(sr.BloodGroup)
	sr.AadhaarID = core.CleanString(sr.AadhaarID)
	sr.PhotoURL = core.CleanString(sr.PhotoURL)
	sr.Address = core.CleanString(sr.Address)
	sr.PreviousSchool = core.CleanString(sr.PreviousSchool)
	sr.PreviousClass = core.CleanString(sr.PreviousClass)
}

type Faculty struct {
	ID              string    `json:"faculty_id" db:"faculty_id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Email           string    `json:"email" db:"email"`
	Subject         string    `json:"subject" db:"subject"`
	Qualification   string    `json:"qualification,omitempty" db:"qualification"`
	JoiningDate     time.Time `json:"joining_date" db:"joining_date"`
	Phone           string    `json:"phone,omitempty" db:"phone"`
	AssignedClass   string    `json:"assigned_class,omitempty" db:"assigned_class"`
	AssignedSection string    `json:"assigned_section,omitempty" db:"assigned_section"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// HasAssignment reports whether the faculty member teaches a class and section.
func (f Faculty) HasAssignment() bool {
	return f.AssignedClass != "" && f.AssignedSection != ""
}

type Assignment struct {
	ClassName string `json:"class_name" query:"class_name"`
	Section   string `json:"section" query:"section"`
}

// FacultyAssignment is the assignment view of a faculty member.
type FacultyAssignment struct {
	FacultyID       string `json:"faculty_id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Subject         string `json:"subject"`
	AssignedClass   string `json:"assigned_class"`
	AssignedSection string `json:"assigned_section"`
}

func (f Faculty) Assignment() FacultyAssignment {
	return FacultyAssignment{
		FacultyID:       f.ID,
		Name:            f.Name,
		Email:           f.Email,
		Subject:         f.Subject,
		AssignedClass:   f.AssignedClass,
		AssignedSection: f.AssignedSection,
	}
}

type Parent struct {
	ID          string          `json:"parent_id" db:"parent_id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Name        string          `json:"name" db:"name"`
	Email       string          `json:"email" db:"email"`
	Phone       string          `json:"phone,omitempty" db:"phone"`
	ChildrenIDs core.StringList `json:"children_ids" db:"children_ids"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Relationships of a parent mapping
const (
	Father   = "FATHER"
	Mother   = "MOTHER"
	Guardian = "GUARDIAN"
)

// Mapping links a parent's contact details to a student's unique ID.
type Mapping struct {
	ID               string    `json:"mapping_id" db:"mapping_id"`
	ParentID         string    `json:"parent_id" db:"parent_id"`
	StudentID        string    `json:"student_id" db:"student_id"`
	UniqueStudentID  string    `json:"unique_student_id" db:"unique_student_id"`
	Relationship     string    `json:"relationship" db:"relationship"`
	ParentName       string    `json:"parent_name" db:"parent_name"`
	ParentEmail      string    `json:"parent_email" db:"parent_email"`
	ParentPhone      string    `json:"parent_phone" db:"parent_phone"`
	ParentOccupation string    `json:"parent_occupation,omitempty" db:"parent_occupation"`
	ParentAddress    string    `json:"parent_address,omitempty" db:"parent_address"`
	ParentPinCode    string    `json:"parent_pin_code,omitempty" db:"parent_pin_code"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

type NewMapping struct {
	ParentID         string `json:"parent_id"`
	UniqueStudentID  string `json:"unique_student_id" validate:"required"`
	Relationship     string `json:"relationship" validate:"required,oneof=FATHER MOTHER GUARDIAN"`
	ParentName       string `json:"parent_name" validate:"required,notblank"`
	ParentEmail      string `json:"parent_email" validate:"required,email"`
	ParentPhone      string `json:"parent_phone" validate:"required,notblank"`
	ParentOccupation string `json:"parent_occupation"`
	ParentAddress    string `json:"parent_address"`
	ParentPinCode    string `json:"parent_pin_code" validate:"omitempty,numeric,len=6"`
}

// Counts of active profiles.
type Counts struct {
	Students int `json:"total_students"`
	Faculty  int `json:"total_faculty"`
	Parents  int `json:"total_parents"`
}

type (
	// StudentFilter selects one student by the first non-empty field.
	StudentFilter struct {
		ID              string
		UserID          string
		UniqueStudentID string
	}

	StudentQuery struct {
		ClassName      string
		Section        string
		IDs            []string
		RegisteredOnly bool
		OrderByRoll    bool
		Page           *core.Page
	}

	// ProfileFilter selects a faculty or parent profile by id or by user id.
	ProfileFilter struct {
		ID     string
		UserID string
	}
)
