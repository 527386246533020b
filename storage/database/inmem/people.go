package inmemdb

import (
	"context"
	"sort"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/people"
)

type peopleRepository struct {
	db *DB
}

var _ people.Repository = (*peopleRepository)(nil)

func NewPeopleRepository(db *DB) *peopleRepository {
	return &peopleRepository{db: db}
}

func matchStudent(s people.Student, filter people.StudentFilter) bool {
	switch {
	case filter.ID != "":
		return s.ID == filter.ID
	case filter.UserID != "":
		return s.UserID == filter.UserID
	case filter.UniqueStudentID != "":
		return s.UniqueStudentID == filter.UniqueStudentID
	}
	return false
}

func (repo *peopleRepository) CreateStudent(_ context.Context, s people.Student) (people.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.students = append(repo.db.students, cloneStudent(s))
	return s, nil
}

func (repo *peopleRepository) GetStudent(_ context.Context, filter people.StudentFilter) (people.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.students {
		if matchStudent(s, filter) {
			return cloneStudent(s), nil
		}
	}
	return people.Student{}, people.ErrStudentNotFound
}

func (repo *peopleRepository) QueryStudents(_ context.Context, query people.StudentQuery) ([]people.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]people.Student, 0)
	for _, s := range repo.db.students {
		if query.ClassName != "" && s.ClassName != query.ClassName {
			continue
		}
		if query.Section != "" && s.Section != query.Section {
			continue
		}
		if query.IDs != nil && !core.Contains(query.IDs, s.ID) {
			continue
		}
		if query.RegisteredOnly && !s.IsRegistered() {
			continue
		}
		students = append(students, cloneStudent(s))
	}
	if query.OrderByRoll {
		sort.SliceStable(students, func(i, j int) bool { return students[i].RollNumber < students[j].RollNumber })
	}
	if query.Page != nil {
		start, end := query.Page.Bounds(len(students))
		students = students[start:end]
	}
	return students, nil
}

func (repo *peopleRepository) CountRegistered(_ context.Context, className, section string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := 0
	for _, s := range repo.db.students {
		if s.ClassName == className && s.Section == section && s.IsRegistered() {
			n++
		}
	}
	return n, nil
}

func (repo *peopleRepository) MaxRollNumber(_ context.Context, className, section string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	last := 0
	for _, s := range repo.db.students {
		if s.ClassName == className && s.Section == section && s.IsRegistered() && s.RollNumber > last {
			last = s.RollNumber
		}
	}
	return last, nil
}

func (repo *peopleRepository) UpdateStudent(_ context.Context, s people.Student) (people.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	idx := -1
	for i, existing := range repo.db.students {
		if existing.ID == s.ID {
			idx = i
			continue
		}
		if s.IsRegistered() && existing.IsRegistered() && existing.ClassName == s.ClassName &&
			existing.Section == s.Section && existing.RollNumber == s.RollNumber {
			return people.Student{}, people.ErrRollNumberTaken
		}
	}
	if idx < 0 {
		return people.Student{}, people.ErrStudentNotFound
	}
	repo.db.students[idx] = cloneStudent(s)
	return s, nil
}

func (repo *peopleRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, s := range repo.db.students {
		if s.ID == id {
			repo.db.students = append(repo.db.students[:i], repo.db.students[i+1:]...)
			return nil
		}
	}
	return people.ErrStudentNotFound
}

func matchProfile(id, userID string, filter people.ProfileFilter) bool {
	if filter.ID != "" {
		return id == filter.ID
	}
	return filter.UserID != "" && userID == filter.UserID
}

func (repo *peopleRepository) CreateFaculty(_ context.Context, f people.Faculty) (people.Faculty, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.faculty = append(repo.db.faculty, f)
	return f, nil
}

func (repo *peopleRepository) GetFaculty(_ context.Context, filter people.ProfileFilter) (people.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, f := range repo.db.faculty {
		if matchProfile(f.ID, f.UserID, filter) {
			return f, nil
		}
	}
	return people.Faculty{}, people.ErrFacultyNotFound
}

func (repo *peopleRepository) QueryFaculty(_ context.Context) ([]people.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return pageOf(repo.db.faculty, 0, len(repo.db.faculty)), nil
}

func (repo *peopleRepository) UpdateFaculty(_ context.Context, f people.Faculty) (people.Faculty, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, existing := range repo.db.faculty {
		if existing.ID == f.ID {
			repo.db.faculty[i] = f
			return f, nil
		}
	}
	return people.Faculty{}, people.ErrFacultyNotFound
}

func (repo *peopleRepository) DeleteFaculty(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, f := range repo.db.faculty {
		if f.ID == id {
			repo.db.faculty = append(repo.db.faculty[:i], repo.db.faculty[i+1:]...)
			return nil
		}
	}
	return people.ErrFacultyNotFound
}

func (repo *peopleRepository) CreateParent(_ context.Context, p people.Parent) (people.Parent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.parents = append(repo.db.parents, cloneParent(p))
	return p, nil
}

func (repo *peopleRepository) GetParent(_ context.Context, filter people.ProfileFilter) (people.Parent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.parents {
		if matchProfile(p.ID, p.UserID, filter) {
			return cloneParent(p), nil
		}
	}
	return people.Parent{}, people.ErrParentNotFound
}

func (repo *peopleRepository) QueryParents(_ context.Context, childID string) ([]people.Parent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	parents := make([]people.Parent, 0)
	for _, p := range repo.db.parents {
		if core.Contains(p.ChildrenIDs, childID) {
			parents = append(parents, cloneParent(p))
		}
	}
	return parents, nil
}

func (repo *peopleRepository) UpdateParent(_ context.Context, p people.Parent) (people.Parent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, existing := range repo.db.parents {
		if existing.ID == p.ID {
			repo.db.parents[i] = cloneParent(p)
			return p, nil
		}
	}
	return people.Parent{}, people.ErrParentNotFound
}

func (repo *peopleRepository) DeleteParent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, p := range repo.db.parents {
		if p.ID == id {
			repo.db.parents = append(repo.db.parents[:i], repo.db.parents[i+1:]...)
			return nil
		}
	}
	return people.ErrParentNotFound
}

func (repo *peopleRepository) UnlinkChild(_ context.Context, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i := range repo.db.parents {
		repo.db.parents[i].ChildrenIDs.Remove(studentID)
	}
	return nil
}

func (repo *peopleRepository) CreateMapping(_ context.Context, m people.Mapping) (people.Mapping, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.mappings = append(repo.db.mappings, m)
	return m, nil
}

func (repo *peopleRepository) QueryMappings(_ context.Context, uniqueStudentID string) ([]people.Mapping, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mappings := make([]people.Mapping, 0)
	for _, m := range repo.db.mappings {
		if m.UniqueStudentID == uniqueStudentID {
			mappings = append(mappings, m)
		}
	}
	return mappings, nil
}

func (repo *peopleRepository) DeleteMappings(_ context.Context, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	kept := repo.db.mappings[:0]
	for _, m := range repo.db.mappings {
		if m.StudentID != studentID {
			kept = append(kept, m)
		}
	}
	repo.db.mappings = kept
	return nil
}

func (repo *peopleRepository) CountActive(_ context.Context) (people.Counts, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var counts people.Counts
	for _, s := range repo.db.students {
		if s.IsActive {
			counts.Students++
		}
	}
	for _, f := range repo.db.faculty {
		if f.IsActive {
			counts.Faculty++
		}
	}
	for _, p := range repo.db.parents {
		if p.IsActive {
			counts.Parents++
		}
	}
	return counts, nil
}
