// Package people holds the role profiles of the school: students, faculty and parents.
package people

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/user"
)

var (
	// errors
	ErrStudentNotFound      = core.NewNotFoundError("student", "Student not found")
	ErrStudentProfile       = core.NewNotFoundError("student", "Student profile not found")
	ErrUniqueIDNotFound     = core.NewNotFoundError("student", "Student not found with this Student ID")
	ErrFacultyNotFound      = core.NewNotFoundError("faculty", "Faculty not found")
	ErrFacultyProfile       = core.NewNotFoundError("faculty", "Faculty profile not found")
	ErrParentNotFound       = core.NewNotFoundError("parent", "Parent not found")
	ErrParentProfile        = core.NewNotFoundError("parent", "Parent profile not found")
	ErrUserAccountNotFound  = core.NewNotFoundError("user", "User account not found")
	ErrNoChildFees          = core.NewNotFoundError("fee tracking", "No fees found for this student")
	ErrAlreadyRegistered    = core.NewConflictError("Student is already registered")
	ErrNotLinked            = core.NewPermissionError("You do not have access to this student's information")
	ErrRollNumberTaken      = errors.New("roll number already taken")
	ErrNotAStudentAccount   = core.NewValidationError(errors.New("User account is not a student account"))
	errRegistrationConflict = core.NewConflictError("Could not allocate a roll number, please retry")
)

// registerAttempts bounds the retries when concurrent registrations race for a roll number.
const registerAttempts = 3

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, filter StudentFilter) (Student, error)
		QueryStudents(ctx context.Context, query StudentQuery) ([]Student, error)
		// CountRegistered counts the students holding a unique ID in a class section.
		CountRegistered(ctx context.Context, className, section string) (int, error)
		// MaxRollNumber returns the highest roll number held in a class section, 0 if none.
		MaxRollNumber(ctx context.Context, className, section string) (int, error)
		// UpdateStudent returns ErrRollNumberTaken if a registered student of the same section has the roll number.
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error

		CreateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		GetFaculty(ctx context.Context, filter ProfileFilter) (Faculty, error)
		QueryFaculty(ctx context.Context) ([]Faculty, error)
		UpdateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		DeleteFaculty(ctx context.Context, id string) error

		CreateParent(ctx context.Context, p Parent) (Parent, error)
		GetParent(ctx context.Context, filter ProfileFilter) (Parent, error)
		// QueryParents lists the parents having childID among their children.
		QueryParents(ctx context.Context, childID string) ([]Parent, error)
		UpdateParent(ctx context.Context, p Parent) (Parent, error)
		DeleteParent(ctx context.Context, id string) error
		// UnlinkChild removes the student from every parent's children.
		UnlinkChild(ctx context.Context, studentID string) error

		CreateMapping(ctx context.Context, m Mapping) (Mapping, error)
		QueryMappings(ctx context.Context, uniqueStudentID string) ([]Mapping, error)
		DeleteMappings(ctx context.Context, studentID string) error

		CountActive(ctx context.Context) (Counts, error)
	}

	// UserDirectory is the part of the account service profiles rely on.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		Remove(ctx context.Context, id string) error
	}

	// FeeLedger is the part of the fee service profiles rely on.
	FeeLedger interface {
		OpenTracking(ctx context.Context, nt fees.NewTracking) (fees.Tracking, error)
		Summary(ctx context.Context, studentID, uniqueStudentID string) (fees.Summary, error)
		TrackingForStudent(ctx context.Context, studentID string) (fees.Tracking, error)
		PurgeStudent(ctx context.Context, studentID string) error
	}

	// RecordKeeper is the part of the academic service profiles rely on.
	RecordKeeper interface {
		PurgeStudentRecords(ctx context.Context, studentID string) error
		Notify(ctx context.Context, nn academic.NewNotification) (academic.Notification, error)
	}

	Service struct {
		repo     Repository
		users    UserDirectory
		ledger   FeeLedger
		records  RecordKeeper
		validate *validator.Validate
		conf     *core.Config
		logger   core.Logger
	}
)

var _ fees.Notifier = (*Service)(nil)

func NewService(
	repo Repository,
	users UserDirectory,
	ledger FeeLedger,
	records RecordKeeper,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		ledger:   ledger,
		records:  records,
		validate: validate,
		conf:     conf,
		logger:   logger,
	}
}

// RegisterStudent completes the registration of a student account: it assigns the class, section,
// roll number and unique student ID, and opens the fee tracking of the student.
func (svc *Service) RegisterStudent(ctx context.Context, sr StudentRegistration) (Student, error) {
	sr.Clean()
	if err := svc.validate.Struct(sr); err != nil {
		return Student{}, err
	}

	usr, err := svc.users.GetByID(ctx, sr.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return Student{}, ErrUserAccountNotFound
		}
		return Student{}, err
	}
	if usr.Role != user.RoleStudent {
		return Student{}, ErrNotAStudentAccount
	}

	stu, err := svc.repo.GetStudent(ctx, StudentFilter{UserID: usr.ID})
	if errors.Cause(err) == ErrStudentNotFound {
		stu, err = svc.repo.CreateStudent(ctx, svc.placeholder(usr))
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "loading student profile")
	}
	if stu.IsRegistered() {
		return Student{}, ErrAlreadyRegistered
	}

	if err = svc.checkClassSection(sr.ClassName, sr.Section); err != nil {
		return Student{}, err
	}

	stu.ClassName = sr.ClassName
	stu.Section = sr.Section
	stu.AdmissionNumber = sr.AdmissionNumber
	stu.DateOfBirth = sr.DateOfBirth
	stu.Gender = sr.Gender
	stu.BloodGroup = sr.BloodGroup
	stu.AadhaarID = sr.AadhaarID
	stu.PhotoURL = sr.PhotoURL
	stu.Address = sr.Address
	stu.PreviousSchool = sr.PreviousSchool
	stu.PreviousClass = sr.PreviousClass
	if sr.AcademicYear != "" {
		stu.AcademicYear = sr.AcademicYear
	}
	for _, pid := range sr.ParentIDs {
		if pid = core.CleanString(pid); pid != "" {
			stu.ParentIDs.Add(pid)
		}
	}

	if stu, err = svc.allocateRoll(ctx, stu); err != nil {
		return Student{}, err
	}

	_, err = svc.ledger.OpenTracking(ctx, fees.NewTracking{
		StudentID:       stu.ID,
		UniqueStudentID: stu.UniqueStudentID,
		ClassName:       stu.ClassName,
		Section:         stu.Section,
		AcademicYear:    stu.AcademicYear,
	})
	if err != nil && errors.Cause(err) != fees.ErrNoFeeStructure {
		return Student{}, errors.Wrap(err, "opening fee tracking")
	}
	return stu, nil
}

// allocateRoll gives the student the next roll number of its section and saves it.
// Concurrent registrations into the same section are retried.
func (svc *Service) allocateRoll(ctx context.Context, stu Student) (Student, error) {
	capacity := svc.conf.School.SectionCapacity
	lastCount := -1
	for attempt := 0; attempt < registerAttempts; attempt++ {
		count, err := svc.repo.CountRegistered(ctx, stu.ClassName, stu.Section)
		if err != nil {
			return Student{}, errors.Wrap(err, "counting section students")
		}
		if count >= capacity {
			return Student{}, core.NewValidationError(errors.Errorf(
				"Section %s of class %s is full (max %d students)", stu.Section, stu.ClassName, capacity,
			))
		}

		roll := count + 1
		// an unchanged count after a collision means gaps left by deleted students
		if count == lastCount {
			last, err := svc.repo.MaxRollNumber(ctx, stu.ClassName, stu.Section)
			if err != nil {
				return Student{}, errors.Wrap(err, "finding the last roll number")
			}
			roll = last + 1
		}
		lastCount = count

		stu.RollNumber = roll
		stu.UniqueStudentID = svc.uniqueID(stu.ClassName, stu.Section, stu.RollNumber)
		stu.UpdatedAt = core.NowFunc()
		saved, err := svc.repo.UpdateStudent(ctx, stu)
		if err == nil {
			return saved, nil
		}
		if errors.Cause(err) != ErrRollNumberTaken {
			return Student{}, errors.Wrap(err, "saving student registration")
		}
	}
	return Student{}, errRegistrationConflict
}

// uniqueID formats a student ID such as SMS-2026-10A-001.
func (svc *Service) uniqueID(className, section string, roll int) string {
	return fmt.Sprintf("%s-%d-%s%s-%03d",
		svc.conf.School.StudentIDPrefix, core.NowFunc().Year(), className, section, roll)
}

func (svc *Service) checkClassSection(className, section string) error {
	classes := svc.conf.School.Classes
	if className == "" || !core.Contains(classes, className) {
		return core.NewValidationError(errors.Errorf("Invalid class. Must be %s", describe(classes)))
	}
	sections := svc.conf.School.Sections
	if section == "" || !core.Contains(sections, section) {
		return core.NewValidationError(errors.Errorf("Invalid section. Must be %s", describe(sections)))
	}
	return nil
}

// describe renders allowed values: "1-10" for a run of numbers, "A, B, or C" otherwise.
func describe(values []string) string {
	if len(values) > 2 {
		first, last := values[0], values[len(values)-1]
		if isNumberRun(values) {
			return first + "-" + last
		}
		return strings.Join(values[:len(values)-1], ", ") + ", or " + last
	}
	return strings.Join(values, " or ")
}

func isNumberRun(values []string) bool {
	prev := 0
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil || (i > 0 && n != prev+1) {
			return false
		}
		prev = n
	}
	return true
}

func (svc *Service) placeholder(usr user.User) Student {
	now := core.NowFunc()
	return Student{
		ID:              core.GenerateID("stu_"),
		UniqueStudentID: PendingStudentID,
		UserID:          usr.ID,
		Name:            usr.Name,
		Email:           usr.Email,
		ParentIDs:       core.StringList{},
		AdmissionDate:   now,
		AcademicYear:    svc.conf.School.AcademicYear,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ListStudents returns a page of students with their fee summaries.
func (svc *Service) ListStudents(ctx context.Context, page core.Page) ([]StudentWithFees, error) {
	page.Clean()
	students, err := svc.repo.QueryStudents(ctx, StudentQuery{Page: &page})
	if err != nil {
		return nil, err
	}
	return svc.withFees(ctx, students)
}

// StudentsInSection returns the students of a class section with their fee summaries.
func (svc *Service) StudentsInSection(ctx context.Context, className, section string) ([]StudentWithFees, error) {
	students, err := svc.repo.QueryStudents(ctx, StudentQuery{
		ClassName: core.CleanString(className),
		Section:   core.CleanString(section),
	})
	if err != nil {
		return nil, err
	}
	return svc.withFees(ctx, students)
}

func (svc *Service) withFees(ctx context.Context, students []Student) ([]StudentWithFees, error) {
	items := make([]StudentWithFees, len(students))
	for i, stu := range students {
		uid := ""
		if stu.IsRegistered() {
			uid = stu.UniqueStudentID
		}
		sum, err := svc.ledger.Summary(ctx, stu.ID, uid)
		if err != nil {
			return nil, errors.Wrapf(err, "loading fee summary of %s", stu.ID)
		}
		items[i] = StudentWithFees{Student: stu, Summary: sum}
	}
	return items, nil
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, StudentFilter{ID: id})
}

// StudentByUser returns the profile of a student account.
func (svc *Service) StudentByUser(ctx context.Context, userID string) (Student, error) {
	stu, err := svc.repo.GetStudent(ctx, StudentFilter{UserID: userID})
	if errors.Cause(err) == ErrStudentNotFound {
		return Student{}, ErrStudentProfile
	}
	return stu, err
}

func (svc *Service) StudentByUniqueID(ctx context.Context, uniqueStudentID string) (Student, error) {
	stu, err := svc.repo.GetStudent(ctx, StudentFilter{UniqueStudentID: core.CleanString(uniqueStudentID)})
	if errors.Cause(err) == ErrStudentNotFound {
		return Student{}, ErrUniqueIDNotFound
	}
	return stu, err
}

// DeleteStudent removes the student with its fee documents, attendance, marks,
// parent links and user account.
func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	stu, err := svc.repo.GetStudent(ctx, StudentFilter{ID: id})
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteStudent(ctx, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if err = svc.ledger.PurgeStudent(ctx, id); err != nil {
		return errors.Wrap(err, "deleting student fees")
	}
	if err = svc.records.PurgeStudentRecords(ctx, id); err != nil {
		return errors.Wrap(err, "deleting student records")
	}
	if err = svc.repo.UnlinkChild(ctx, id); err != nil {
		return errors.Wrap(err, "unlinking student from parents")
	}
	if err = svc.repo.DeleteMappings(ctx, id); err != nil {
		return errors.Wrap(err, "deleting parent mappings")
	}
	if stu.UserID != "" {
		if err = svc.users.Remove(ctx, stu.UserID); err != nil {
			return errors.Wrap(err, "deleting student account")
		}
	}
	return nil
}
