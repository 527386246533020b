package people

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
)

// FacultyByUser returns the profile of a faculty account.
func (svc *Service) FacultyByUser(ctx context.Context, userID string) (Faculty, error) {
	f, err := svc.repo.GetFaculty(ctx, ProfileFilter{UserID: userID})
	if errors.Cause(err) == ErrFacultyNotFound {
		return Faculty{}, ErrFacultyProfile
	}
	return f, err
}

func (svc *Service) GetFaculty(ctx context.Context, id string) (Faculty, error) {
	return svc.repo.GetFaculty(ctx, ProfileFilter{ID: id})
}

func (svc *Service) ListFaculty(ctx context.Context) ([]Faculty, error) {
	return svc.repo.QueryFaculty(ctx)
}

// ValidateAssignment checks the class and section against the school configuration.
func (svc *Service) ValidateAssignment(a Assignment) error {
	return svc.checkClassSection(core.CleanString(a.ClassName), core.CleanString(a.Section))
}

// AssignClass makes the faculty member the teacher of a class section.
func (svc *Service) AssignClass(ctx context.Context, facultyID string, a Assignment) (Faculty, error) {
	a.ClassName = core.CleanString(a.ClassName)
	a.Section = core.CleanString(a.Section)
	if err := svc.checkClassSection(a.ClassName, a.Section); err != nil {
		return Faculty{}, err
	}
	f, err := svc.repo.GetFaculty(ctx, ProfileFilter{ID: facultyID})
	if err != nil {
		return Faculty{}, err
	}
	f.AssignedClass = a.ClassName
	f.AssignedSection = a.Section
	f.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateFaculty(ctx, f)
}

func (svc *Service) Assignments(ctx context.Context) ([]FacultyAssignment, error) {
	faculty, err := svc.repo.QueryFaculty(ctx)
	if err != nil {
		return nil, err
	}
	assignments := make([]FacultyAssignment, len(faculty))
	for i, f := range faculty {
		assignments[i] = f.Assignment()
	}
	return assignments, nil
}

// ClassStudents returns the registered students of the section the faculty member teaches, by roll number.
// Members without an assignment get no students.
func (svc *Service) ClassStudents(ctx context.Context, userID string) (Faculty, []Student, error) {
	f, err := svc.FacultyByUser(ctx, userID)
	if err != nil {
		return Faculty{}, nil, err
	}
	if !f.HasAssignment() {
		return f, []Student{}, nil
	}
	students, err := svc.repo.QueryStudents(ctx, StudentQuery{
		ClassName:      f.AssignedClass,
		Section:        f.AssignedSection,
		RegisteredOnly: true,
		OrderByRoll:    true,
	})
	return f, students, err
}

// DeleteFaculty removes the faculty profile and its user account.
func (svc *Service) DeleteFaculty(ctx context.Context, id string) error {
	f, err := svc.repo.GetFaculty(ctx, ProfileFilter{ID: id})
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteFaculty(ctx, id); err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	if f.UserID != "" {
		return errors.Wrap(svc.users.Remove(ctx, f.UserID), "deleting faculty account")
	}
	return nil
}
