package people

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/fees"
)

// ParentByUser returns the profile of a parent account.
func (svc *Service) ParentByUser(ctx context.Context, userID string) (Parent, error) {
	p, err := svc.repo.GetParent(ctx, ProfileFilter{UserID: userID})
	if errors.Cause(err) == ErrParentNotFound {
		return Parent{}, ErrParentProfile
	}
	return p, err
}

func (svc *Service) GetParent(ctx context.Context, id string) (Parent, error) {
	return svc.repo.GetParent(ctx, ProfileFilter{ID: id})
}

// ParentsOfStudent lists the parents the student is linked to.
func (svc *Service) ParentsOfStudent(ctx context.Context, studentID string) ([]Parent, error) {
	return svc.repo.QueryParents(ctx, studentID)
}

// Children returns the students linked to a parent account.
func (svc *Service) Children(ctx context.Context, userID string) ([]Student, error) {
	p, err := svc.ParentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(p.ChildrenIDs) == 0 {
		return []Student{}, nil
	}
	return svc.repo.QueryStudents(ctx, StudentQuery{IDs: p.ChildrenIDs})
}

// LinkChild links a student to a parent account, in both profiles.
func (svc *Service) LinkChild(ctx context.Context, userID, studentID string) error {
	p, err := svc.ParentByUser(ctx, userID)
	if err != nil {
		return err
	}
	stu, err := svc.repo.GetStudent(ctx, StudentFilter{ID: studentID})
	if err != nil {
		return err
	}

	now := core.NowFunc()
	if p.ChildrenIDs.Add(stu.ID) {
		p.UpdatedAt = now
		if _, err = svc.repo.UpdateParent(ctx, p); err != nil {
			return errors.Wrap(err, "linking child to parent")
		}
	}
	if stu.ParentIDs.Add(p.ID) {
		stu.UpdatedAt = now
		if _, err = svc.repo.UpdateStudent(ctx, stu); err != nil {
			return errors.Wrap(err, "linking parent to student")
		}
	}
	return nil
}

// ChildFees returns the fee tracking of a student linked to the parent account.
func (svc *Service) ChildFees(ctx context.Context, userID, studentID string) (fees.Tracking, error) {
	p, err := svc.ParentByUser(ctx, userID)
	if err != nil {
		return fees.Tracking{}, err
	}
	if !core.Contains(p.ChildrenIDs, studentID) {
		return fees.Tracking{}, ErrNotLinked
	}
	t, err := svc.ledger.TrackingForStudent(ctx, studentID)
	if core.IsNotFound(err) {
		return fees.Tracking{}, ErrNoChildFees
	}
	return t, err
}

// RegisterMapping records a parent's details against a student's unique ID.
// When no parent id is given, the parent profile of actorID is used if there is one.
func (svc *Service) RegisterMapping(ctx context.Context, nm NewMapping, actorID string) (Mapping, error) {
	nm.ParentID = core.CleanString(nm.ParentID)
	nm.UniqueStudentID = core.CleanString(nm.UniqueStudentID)
	nm.Relationship = strings.ToUpper(core.CleanString(nm.Relationship))
	nm.ParentName = core.CleanString(nm.ParentName)
	nm.ParentEmail = core.CleanString(nm.ParentEmail, true /* lower */)
	nm.ParentPhone = core.CleanString(nm.ParentPhone)
	nm.ParentPinCode = core.CleanString(nm.ParentPinCode)
	if err := svc.validate.Struct(nm); err != nil {
		return Mapping{}, err
	}

	stu, err := svc.StudentByUniqueID(ctx, nm.UniqueStudentID)
	if err != nil {
		return Mapping{}, err
	}
	if nm.ParentID == "" {
		p, err := svc.repo.GetParent(ctx, ProfileFilter{UserID: actorID})
		switch {
		case err == nil:
			nm.ParentID = p.ID
		case errors.Cause(err) != ErrParentNotFound:
			return Mapping{}, err
		}
	}

	m, err := svc.repo.CreateMapping(ctx, Mapping{
		ID:               core.GenerateID("map_"),
		ParentID:         nm.ParentID,
		StudentID:        stu.ID,
		UniqueStudentID:  stu.UniqueStudentID,
		Relationship:     nm.Relationship,
		ParentName:       nm.ParentName,
		ParentEmail:      nm.ParentEmail,
		ParentPhone:      nm.ParentPhone,
		ParentOccupation: core.CleanString(nm.ParentOccupation),
		ParentAddress:    core.CleanString(nm.ParentAddress),
		ParentPinCode:    nm.ParentPinCode,
		CreatedAt:        core.NowFunc(),
	})
	if err != nil {
		return Mapping{}, err
	}

	if nm.ParentID != "" && stu.ParentIDs.Add(nm.ParentID) {
		stu.UpdatedAt = core.NowFunc()
		if _, err = svc.repo.UpdateStudent(ctx, stu); err != nil {
			return Mapping{}, errors.Wrap(err, "linking parent to student")
		}
	}
	return m, nil
}

// MappingsForStudent lists the parent mappings of a unique student ID. Unknown IDs have none.
func (svc *Service) MappingsForStudent(ctx context.Context, uniqueStudentID string) ([]Mapping, error) {
	mappings, err := svc.repo.QueryMappings(ctx, core.CleanString(uniqueStudentID))
	if err != nil {
		return nil, err
	}
	if mappings == nil {
		mappings = []Mapping{}
	}
	return mappings, nil
}
