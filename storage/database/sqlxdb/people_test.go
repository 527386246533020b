package sqlxdb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/people"
)

func TestPeopleRepository_QueryStudents(t *testing.T) {
	tests := []struct {
		name  string
		query people.StudentQuery
		sql   string
		args  []interface{}
	}{
		{
			name:  "all",
			query: people.StudentQuery{},
			sql:   " ORDER BY seq",
		},
		{
			name:  "section roll call",
			query: people.StudentQuery{ClassName: "5", Section: "A", RegisteredOnly: true, OrderByRoll: true},
			sql:   " WHERE class_name = $1 AND section = $2 AND " + registeredCond + " ORDER BY roll_number, seq",
			args:  []interface{}{"5", "A"},
		},
		{
			name:  "children page",
			query: people.StudentQuery{IDs: []string{"stu_1", "stu_2"}, Page: &core.Page{Limit: 10, Offset: 10}},
			sql:   " WHERE student_id = ANY($1) ORDER BY seq LIMIT 10 OFFSET 10",
			args:  []interface{}{pq.Array([]string{"stu_1", "stu_2"})},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewPeopleRepository(db)

			exp := mock.ExpectQuery(quote(studentTable.selectQuery()+tt.sql) + "$")
			if len(tt.args) > 0 {
				exp.WithArgs(args(len(tt.args))...)
			}
			exp.WillReturnRows(sqlmock.NewRows(studentTable.columns))

			students, err := repo.QueryStudents(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Empty(t, students)
		})
	}
}

func TestPeopleRepository_UpdateStudent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPeopleRepository(db)
	ctx := context.Background()

	stu := people.Student{ID: "stu_1", UniqueStudentID: "SMS-2025-5A-002", ClassName: "5", Section: "A", RollNumber: 2}

	mock.ExpectExec(quote("UPDATE students SET unique_student_id = $1")).WillReturnError(uniqueErr("students_roll_number_key"))
	_, err := repo.UpdateStudent(ctx, stu)
	assert.Equal(t, people.ErrRollNumberTaken, err)

	mock.ExpectExec(quote("UPDATE students SET unique_student_id = $1")).WillReturnResult(sqlmock.NewResult(0, 1))
	got, err := repo.UpdateStudent(ctx, stu)
	require.NoError(t, err)
	assert.Equal(t, stu, got)
}

func TestPeopleRepository_CountRegistered(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPeopleRepository(db)

	mock.ExpectQuery(quote("SELECT count(*) FROM students WHERE class_name = $1 AND section = $2 AND "+registeredCond)).
		WithArgs("3", "B").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountRegistered(context.Background(), "3", "B")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestPeopleRepository_MaxRollNumber(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPeopleRepository(db)

	mock.ExpectQuery(quote("SELECT COALESCE(MAX(roll_number), 0) FROM students WHERE class_name = $1 AND section = $2 AND "+registeredCond)).
		WithArgs("5", "A").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(6))

	n, err := repo.MaxRollNumber(context.Background(), "5", "A")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestPeopleRepository_Profiles(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPeopleRepository(db)
	ctx := context.Background()

	_, err := repo.GetFaculty(ctx, people.ProfileFilter{})
	assert.Equal(t, people.ErrFacultyNotFound, err)
	_, err = repo.GetParent(ctx, people.ProfileFilter{})
	assert.Equal(t, people.ErrParentNotFound, err)

	mock.ExpectQuery(quote(parentTable.selectQuery() + " WHERE user_id = $1 ORDER BY seq LIMIT 1")).
		WithArgs("user_9").
		WillReturnRows(sqlmock.NewRows([]string{"parent_id", "user_id", "name", "children_ids"}).
			AddRow("par_1", "user_9", "Ramesh", []byte(`["stu_1","stu_2"]`)))
	p, err := repo.GetParent(ctx, people.ProfileFilter{UserID: "user_9"})
	require.NoError(t, err)
	assert.Equal(t, core.StringList{"stu_1", "stu_2"}, p.ChildrenIDs)

	mock.ExpectExec(quote("UPDATE parents SET children_ids = children_ids - $1::text")).
		WithArgs("stu_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UnlinkChild(ctx, "stu_1"))
}

func TestPeopleRepository_CountActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPeopleRepository(db)

	mock.ExpectQuery(quote(countActiveQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"students", "faculty", "parents"}).AddRow(120, 14, 95))

	counts, err := repo.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, people.Counts{Students: 120, Faculty: 14, Parents: 95}, counts)
}
