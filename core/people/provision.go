package people

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/user"
)

// Provision creates the role profile of an approved account, unless it exists already.
func (svc *Service) Provision(ctx context.Context, usr user.User) error {
	now := core.NowFunc()
	switch usr.Role {
	case user.RoleStudent:
		_, err := svc.repo.GetStudent(ctx, StudentFilter{UserID: usr.ID})
		if errors.Cause(err) == ErrStudentNotFound {
			_, err = svc.repo.CreateStudent(ctx, svc.placeholder(usr))
		}
		return errors.Wrap(err, "provisioning student profile")

	case user.RoleFaculty:
		_, err := svc.repo.GetFaculty(ctx, ProfileFilter{UserID: usr.ID})
		if errors.Cause(err) == ErrFacultyNotFound {
			_, err = svc.repo.CreateFaculty(ctx, Faculty{
				ID:          core.GenerateID("fac_"),
				UserID:      usr.ID,
				Name:        usr.Name,
				Email:       usr.Email,
				Subject:     DefaultSubject,
				JoiningDate: now,
				Phone:       usr.Phone,
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		return errors.Wrap(err, "provisioning faculty profile")

	case user.RoleParent:
		_, err := svc.repo.GetParent(ctx, ProfileFilter{UserID: usr.ID})
		if errors.Cause(err) == ErrParentNotFound {
			_, err = svc.repo.CreateParent(ctx, Parent{
				ID:          core.GenerateID("par_"),
				UserID:      usr.ID,
				Name:        usr.Name,
				Email:       usr.Email,
				Phone:       usr.Phone,
				ChildrenIDs: core.StringList{},
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		return errors.Wrap(err, "provisioning parent profile")
	}
	return nil
}

// RemoveProfile deletes the role profile of a rejected account, if any.
func (svc *Service) RemoveProfile(ctx context.Context, usr user.User) error {
	var err error
	switch usr.Role {
	case user.RoleStudent:
		var stu Student
		if stu, err = svc.repo.GetStudent(ctx, StudentFilter{UserID: usr.ID}); err == nil {
			err = svc.repo.DeleteStudent(ctx, stu.ID)
		}
	case user.RoleFaculty:
		var f Faculty
		if f, err = svc.repo.GetFaculty(ctx, ProfileFilter{UserID: usr.ID}); err == nil {
			err = svc.repo.DeleteFaculty(ctx, f.ID)
		}
	case user.RoleParent:
		var p Parent
		if p, err = svc.repo.GetParent(ctx, ProfileFilter{UserID: usr.ID}); err == nil {
			err = svc.repo.DeleteParent(ctx, p.ID)
		}
	}
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "removing role profile")
	}
	return nil
}

func (svc *Service) Stats(ctx context.Context) (Counts, error) {
	return svc.repo.CountActive(ctx)
}

// NotifyStudent sends an in-app warning to the account of a student.
func (svc *Service) NotifyStudent(ctx context.Context, studentID, title, message string) error {
	stu, err := svc.repo.GetStudent(ctx, StudentFilter{ID: studentID})
	if err != nil {
		return err
	}
	if stu.UserID == "" {
		return errors.Errorf("student %s has no user account", studentID)
	}
	_, err = svc.records.Notify(ctx, academic.NewNotification{
		UserID:  stu.UserID,
		Title:   title,
		Message: message,
		Type:    academic.NotifyWarning,
	})
	return err
}
