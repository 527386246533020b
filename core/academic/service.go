// Package academic manages the school structure (classes and sections) and the day to day
// academic records: attendance, marks, timetables, announcements and notifications.
package academic

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
)

var (
	// errors
	ErrClassNotFound        = core.NewNotFoundError("class", "Class not found")
	ErrClassExists          = core.NewValidationError(errors.New("Class with this name already exists"))
	ErrSectionNotFound      = core.NewNotFoundError("section", "Section not found")
	ErrSectionExists        = core.NewValidationError(errors.New("Section with this name already exists for the class"))
	ErrNotificationNotFound = core.NewNotFoundError("notification", "Notification not found")
	ErrNoUpdates            = core.NewValidationError(errors.New("No updates provided"))
)

type (
	Repository interface {
		// CreateClass returns ErrClassExists if the name is taken.
		CreateClass(ctx context.Context, c Class) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		GetClassByName(ctx context.Context, name string) (Class, error)
		QueryClasses(ctx context.Context, page core.Page) ([]Class, error)
		// DeleteClass removes the class and its sections.
		DeleteClass(ctx context.Context, id string) error

		// CreateSection and UpdateSection return ErrSectionExists if the class has a section with the same name.
		CreateSection(ctx context.Context, s Section) (Section, error)
		GetSection(ctx context.Context, id string) (Section, error)
		UpdateSection(ctx context.Context, s Section) (Section, error)
		DeleteSection(ctx context.Context, id string) error
		// QuerySections lists the sections of a class, or of every class when classID is empty.
		QuerySections(ctx context.Context, classID string, page core.Page) ([]Section, error)

		// UpsertAttendance stores one record per student and date, replacing earlier marks.
		UpsertAttendance(ctx context.Context, records []Attendance) error
		QueryAttendance(ctx context.Context, studentID string) ([]Attendance, error)
		CreateMarks(ctx context.Context, m Marks) (Marks, error)
		QueryMarks(ctx context.Context, studentID string) ([]Marks, error)
		// DeleteStudentRecords removes the attendance and marks of a student.
		DeleteStudentRecords(ctx context.Context, studentID string) error

		// SaveTimetable replaces the timetable of the same class, section and day.
		SaveTimetable(ctx context.Context, t Timetable) (Timetable, error)
		QueryTimetable(ctx context.Context, className, section string) ([]Timetable, error)

		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		// QueryAnnouncements returns the latest announcements for role that did not expire at now, newest first.
		QueryAnnouncements(ctx context.Context, role string, now time.Time, limit int) ([]Announcement, error)

		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		QueryNotifications(ctx context.Context, userID string) ([]Notification, error)
		// MarkNotificationRead returns ErrNotificationNotFound unless the notification belongs to userID.
		MarkNotificationRead(ctx context.Context, id, userID string) error
	}

	// StructurePurger drops the fee structures of a deleted class.
	StructurePurger interface {
		DeleteStructuresForClass(ctx context.Context, classID string) error
	}

	Service struct {
		repo     Repository
		purger   StructurePurger
		validate *validator.Validate
		conf     *core.Config
	}
)

func NewService(repo Repository, purger StructurePurger, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		purger:   purger,
		validate: validate,
		conf:     conf,
	}
}

// SetStructurePurger sets who drops the fee structures of deleted classes.
func (svc *Service) SetStructurePurger(purger StructurePurger) {
	svc.purger = purger
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	nc.Name = core.CleanString(nc.Name)
	if err := svc.validate.Struct(nc); err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, Class{
		ID:        core.GenerateID("class_"),
		Name:      nc.Name,
		CreatedAt: core.NowFunc(),
	})
}

func (svc *Service) ListClasses(ctx context.Context, page core.Page) ([]Class, error) {
	page.Clean()
	return svc.repo.QueryClasses(ctx, page)
}

// DeleteClass removes the class with its sections and fee structures.
func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	if _, err := svc.repo.GetClass(ctx, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteClass(ctx, id); err != nil {
		return err
	}
	if svc.purger != nil {
		return errors.Wrap(svc.purger.DeleteStructuresForClass(ctx, id), "deleting fee structures")
	}
	return nil
}

// ClassIDByName returns the id of the class named name.
func (svc *Service) ClassIDByName(ctx context.Context, name string) (string, error) {
	c, err := svc.repo.GetClassByName(ctx, core.CleanString(name))
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (svc *Service) ClassExists(ctx context.Context, id string) (bool, error) {
	_, err := svc.repo.GetClass(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Cause(err) == ErrClassNotFound {
		return false, nil
	}
	return false, err
}

func (svc *Service) CreateSection(ctx context.Context, ns NewSection) (Section, error) {
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.Name = core.CleanString(ns.Name)
	if err := svc.validate.Struct(ns); err != nil {
		return Section{}, err
	}
	if _, err := svc.repo.GetClass(ctx, ns.ClassID); err != nil {
		return Section{}, err
	}
	if ns.Capacity == 0 {
		ns.Capacity = svc.conf.School.SectionCapacity
	}

	now := core.NowFunc()
	return svc.repo.CreateSection(ctx, Section{
		ID:        core.GenerateID("sec_"),
		ClassID:   ns.ClassID,
		Name:      ns.Name,
		Capacity:  ns.Capacity,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) UpdateSection(ctx context.Context, id string, su SectionUpdate) (Section, error) {
	if su.Name == nil && su.Capacity == nil {
		return Section{}, ErrNoUpdates
	}
	if su.Name != nil {
		name := core.CleanString(*su.Name)
		su.Name = &name
	}
	if err := svc.validate.Struct(su); err != nil {
		return Section{}, err
	}
	s, err := svc.repo.GetSection(ctx, id)
	if err != nil {
		return Section{}, err
	}
	if su.Name != nil {
		s.Name = *su.Name
	}
	if su.Capacity != nil {
		s.Capacity = *su.Capacity
	}
	s.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateSection(ctx, s)
}

func (svc *Service) DeleteSection(ctx context.Context, id string) error {
	return svc.repo.DeleteSection(ctx, id)
}

func (svc *Service) ListSections(ctx context.Context, classID string, page core.Page) ([]Section, error) {
	page.Clean()
	return svc.repo.QuerySections(ctx, core.CleanString(classID), page)
}

// SeedClasses creates the configured classes, each with the configured sections. Existing ones are kept.
func (svc *Service) SeedClasses(ctx context.Context) error {
	for _, name := range svc.conf.School.Classes {
		c, err := svc.repo.GetClassByName(ctx, name)
		if errors.Cause(err) == ErrClassNotFound {
			c, err = svc.repo.CreateClass(ctx, Class{ID: core.GenerateID("class_"), Name: name, CreatedAt: core.NowFunc()})
		}
		if err != nil {
			return errors.Wrapf(err, "seeding class %s", name)
		}

		existing, err := svc.repo.QuerySections(ctx, c.ID, core.NewPage(core.MaxPageLimit, 0))
		if err != nil {
			return errors.Wrapf(err, "listing sections of class %s", name)
		}
		for _, secName := range svc.conf.School.Sections {
			if hasSection(existing, secName) {
				continue
			}
			now := core.NowFunc()
			_, err = svc.repo.CreateSection(ctx, Section{
				ID:        core.GenerateID("sec_"),
				ClassID:   c.ID,
				Name:      secName,
				Capacity:  svc.conf.School.SectionCapacity,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				return errors.Wrapf(err, "seeding section %s%s", name, secName)
			}
		}
	}
	return nil
}

func hasSection(sections []Section, name string) bool {
	for _, s := range sections {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}
