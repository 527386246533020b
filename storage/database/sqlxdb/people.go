package sqlxdb

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core/people"
)

var (
	studentTable = table{
		name: "students",
		key:  "student_id",
		columns: []string{
			"student_id", "unique_student_id", "user_id", "name", "email", "class_name", "section",
			"roll_number", "parent_ids", "admission_number", "admission_date", "date_of_birth", "gender",
			"blood_group", "aadhaar_id", "student_photo_url", "address", "academic_year", "previous_school",
			"previous_class", "is_active", "created_at", "updated_at",
		},
	}

	facultyTable = table{
		name: "faculty",
		key:  "faculty_id",
		columns: []string{
			"faculty_id", "user_id", "name", "email", "subject", "qualification", "joining_date", "phone",
			"assigned_class", "assigned_section", "is_active", "created_at", "updated_at",
		},
	}

	parentTable = table{
		name: "parents",
		key:  "parent_id",
		columns: []string{
			"parent_id", "user_id", "name", "email", "phone", "children_ids", "is_active", "created_at", "updated_at",
		},
	}

	mappingTable = table{
		name: "parent_mappings",
		key:  "mapping_id",
		columns: []string{
			"mapping_id", "parent_id", "student_id", "unique_student_id", "relationship", "parent_name",
			"parent_email", "parent_phone", "parent_occupation", "parent_address", "parent_pin_code", "created_at",
		},
	}
)

const registeredCond = "unique_student_id <> '' AND unique_student_id <> '" + people.PendingStudentID + "'"

type peopleRepository struct {
	db *sqlx.DB
}

var _ people.Repository = (*peopleRepository)(nil)

func NewPeopleRepository(db *sqlx.DB) *peopleRepository {
	return &peopleRepository{db: db}
}

func (repo *peopleRepository) CreateStudent(ctx context.Context, s people.Student) (people.Student, error) {
	if _, err := repo.db.NamedExecContext(ctx, studentTable.insertQuery(), s); err != nil {
		if isUniqueViolation(err, "students_roll_number_key") {
			return people.Student{}, people.ErrRollNumberTaken
		}
		return people.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *peopleRepository) GetStudent(ctx context.Context, filter people.StudentFilter) (people.Student, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("student_id = ?", filter.ID)
	case filter.UserID != "":
		w.add("user_id = ?", filter.UserID)
	case filter.UniqueStudentID != "":
		w.add("unique_student_id = ?", filter.UniqueStudentID)
	default:
		return people.Student{}, people.ErrStudentNotFound
	}

	var s people.Student
	if err := repo.db.GetContext(ctx, &s, studentTable.selectQuery()+w.String()+" ORDER BY seq LIMIT 1", w.args...); err != nil {
		return s, trapNoRows(err, people.ErrStudentNotFound, "getting student")
	}
	return s, nil
}

func (repo *peopleRepository) QueryStudents(ctx context.Context, query people.StudentQuery) ([]people.Student, error) {
	var w where
	if query.ClassName != "" {
		w.add("class_name = ?", query.ClassName)
	}
	if query.Section != "" {
		w.add("section = ?", query.Section)
	}
	if query.IDs != nil {
		w.add("student_id = ANY(?)", pq.Array(query.IDs))
	}
	if query.RegisteredOnly {
		w.add(registeredCond)
	}

	q := studentTable.selectQuery() + w.String()
	if query.OrderByRoll {
		q += " ORDER BY roll_number, seq"
	} else {
		q += " ORDER BY seq"
	}
	if query.Page != nil {
		q += pageClause(*query.Page)
	}

	students := make([]people.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *peopleRepository) CountRegistered(ctx context.Context, className, section string) (int, error) {
	var n int
	q := "SELECT count(*) FROM students WHERE class_name = $1 AND section = $2 AND " + registeredCond
	if err := repo.db.GetContext(ctx, &n, q, className, section); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo *peopleRepository) MaxRollNumber(ctx context.Context, className, section string) (int, error) {
	var n int
	q := "SELECT COALESCE(MAX(roll_number), 0) FROM students WHERE class_name = $1 AND section = $2 AND " + registeredCond
	if err := repo.db.GetContext(ctx, &n, q, className, section); err != nil {
		return 0, errors.Wrap(err, "finding the last roll number")
	}
	return n, nil
}

func (repo *peopleRepository) UpdateStudent(ctx context.Context, s people.Student) (people.Student, error) {
	res, err := repo.db.NamedExecContext(ctx, studentTable.updateQuery(), s)
	if err != nil {
		if isUniqueViolation(err, "students_roll_number_key") {
			return people.Student{}, people.ErrRollNumberTaken
		}
		return people.Student{}, errors.Wrap(err, "updating student")
	}
	if err = mustAffect(res, people.ErrStudentNotFound); err != nil {
		return people.Student{}, err
	}
	return s, nil
}

func (repo *peopleRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, studentTable.deleteQuery(), id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return mustAffect(res, people.ErrStudentNotFound)
}

// profileWhere selects a faculty or parent profile by id, then by user id.
func profileWhere(keyCol string, filter people.ProfileFilter) (where, bool) {
	var w where
	switch {
	case filter.ID != "":
		w.add(keyCol+" = ?", filter.ID)
	case filter.UserID != "":
		w.add("user_id = ?", filter.UserID)
	default:
		return w, false
	}
	return w, true
}

func (repo *peopleRepository) CreateFaculty(ctx context.Context, f people.Faculty) (people.Faculty, error) {
	if _, err := repo.db.NamedExecContext(ctx, facultyTable.insertQuery(), f); err != nil {
		return people.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	return f, nil
}

func (repo *peopleRepository) GetFaculty(ctx context.Context, filter people.ProfileFilter) (people.Faculty, error) {
	var f people.Faculty
	w, ok := profileWhere("faculty_id", filter)
	if !ok {
		return f, people.ErrFacultyNotFound
	}
	if err := repo.db.GetContext(ctx, &f, facultyTable.selectQuery()+w.String()+" ORDER BY seq LIMIT 1", w.args...); err != nil {
		return f, trapNoRows(err, people.ErrFacultyNotFound, "getting faculty")
	}
	return f, nil
}

func (repo *peopleRepository) QueryFaculty(ctx context.Context) ([]people.Faculty, error) {
	faculty := make([]people.Faculty, 0)
	if err := repo.db.SelectContext(ctx, &faculty, facultyTable.selectQuery()+" ORDER BY seq"); err != nil {
		return nil, errors.Wrap(err, "querying faculty")
	}
	return faculty, nil
}

func (repo *peopleRepository) UpdateFaculty(ctx context.Context, f people.Faculty) (people.Faculty, error) {
	res, err := repo.db.NamedExecContext(ctx, facultyTable.updateQuery(), f)
	if err != nil {
		return people.Faculty{}, errors.Wrap(err, "updating faculty")
	}
	if err = mustAffect(res, people.ErrFacultyNotFound); err != nil {
		return people.Faculty{}, err
	}
	return f, nil
}

func (repo *peopleRepository) DeleteFaculty(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, facultyTable.deleteQuery(), id)
	if err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	return mustAffect(res, people.ErrFacultyNotFound)
}

func (repo *peopleRepository) CreateParent(ctx context.Context, p people.Parent) (people.Parent, error) {
	if _, err := repo.db.NamedExecContext(ctx, parentTable.insertQuery(), p); err != nil {
		return people.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return p, nil
}

func (repo *peopleRepository) GetParent(ctx context.Context, filter people.ProfileFilter) (people.Parent, error) {
	var p people.Parent
	w, ok := profileWhere("parent_id", filter)
	if !ok {
		return p, people.ErrParentNotFound
	}
	if err := repo.db.GetContext(ctx, &p, parentTable.selectQuery()+w.String()+" ORDER BY seq LIMIT 1", w.args...); err != nil {
		return p, trapNoRows(err, people.ErrParentNotFound, "getting parent")
	}
	return p, nil
}

func (repo *peopleRepository) QueryParents(ctx context.Context, childID string) ([]people.Parent, error) {
	parents := make([]people.Parent, 0)
	q := parentTable.selectQuery() + " WHERE children_ids @> jsonb_build_array($1::text) ORDER BY seq"
	if err := repo.db.SelectContext(ctx, &parents, q, childID); err != nil {
		return nil, errors.Wrap(err, "querying parents")
	}
	return parents, nil
}

func (repo *peopleRepository) UpdateParent(ctx context.Context, p people.Parent) (people.Parent, error) {
	res, err := repo.db.NamedExecContext(ctx, parentTable.updateQuery(), p)
	if err != nil {
		return people.Parent{}, errors.Wrap(err, "updating parent")
	}
	if err = mustAffect(res, people.ErrParentNotFound); err != nil {
		return people.Parent{}, err
	}
	return p, nil
}

func (repo *peopleRepository) DeleteParent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, parentTable.deleteQuery(), id)
	if err != nil {
		return errors.Wrap(err, "deleting parent")
	}
	return mustAffect(res, people.ErrParentNotFound)
}

func (repo *peopleRepository) UnlinkChild(ctx context.Context, studentID string) error {
	q := "UPDATE parents SET children_ids = children_ids - $1::text WHERE children_ids @> jsonb_build_array($1::text)"
	if _, err := repo.db.ExecContext(ctx, q, studentID); err != nil {
		return errors.Wrap(err, "unlinking child")
	}
	return nil
}

func (repo *peopleRepository) CreateMapping(ctx context.Context, m people.Mapping) (people.Mapping, error) {
	if _, err := repo.db.NamedExecContext(ctx, mappingTable.insertQuery(), m); err != nil {
		return people.Mapping{}, errors.Wrap(err, "inserting parent mapping")
	}
	return m, nil
}

func (repo *peopleRepository) QueryMappings(ctx context.Context, uniqueStudentID string) ([]people.Mapping, error) {
	mappings := make([]people.Mapping, 0)
	q := mappingTable.selectQuery() + " WHERE unique_student_id = $1 ORDER BY seq"
	if err := repo.db.SelectContext(ctx, &mappings, q, uniqueStudentID); err != nil {
		return nil, errors.Wrap(err, "querying parent mappings")
	}
	return mappings, nil
}

func (repo *peopleRepository) DeleteMappings(ctx context.Context, studentID string) error {
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM parent_mappings WHERE student_id = $1", studentID); err != nil {
		return errors.Wrap(err, "deleting parent mappings")
	}
	return nil
}

const countActiveQuery = `SELECT
	(SELECT count(*) FROM students WHERE is_active) AS students,
	(SELECT count(*) FROM faculty WHERE is_active) AS faculty,
	(SELECT count(*) FROM parents WHERE is_active) AS parents`

func (repo *peopleRepository) CountActive(ctx context.Context) (people.Counts, error) {
	var counts people.Counts
	if err := repo.db.GetContext(ctx, &counts, countActiveQuery); err != nil {
		return counts, errors.Wrap(err, "counting profiles")
	}
	return counts, nil
}
