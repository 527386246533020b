package people_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
	"github.com/sadhanaschool/backend/testutil"
)

var regDate = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newSchool(t *testing.T) *testutil.Stack {
	s := testutil.NewStack(t)
	testutil.FreezeTime(t, regDate)
	s.SeedSchool(t)
	return s
}

func TestService_RegisterStudent(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	usr, stu := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	assert.Equal(t, "SMS-2025-5A-001", stu.UniqueStudentID)
	assert.Equal(t, 1, stu.RollNumber)
	assert.Equal(t, usr.ID, stu.UserID)
	assert.Equal(t, "Asha", stu.Name)
	assert.Equal(t, "2025-2026", stu.AcademicYear)
	assert.True(t, stu.IsRegistered())

	_, second := s.RegisterStudent(t, "Ravi", "ravi@school.test", "5", "A")
	assert.Equal(t, "SMS-2025-5A-002", second.UniqueStudentID)
	_, other := s.RegisterStudent(t, "Mira", "mira@school.test", "10", "C")
	assert.Equal(t, "SMS-2025-10C-001", other.UniqueStudentID)

	tr, err := s.Fees.TrackingForStudent(ctx, stu.ID)
	require.NoError(t, err)
	assert.Equal(t, stu.UniqueStudentID, tr.UniqueStudentID)

	_, err = s.People.RegisterStudent(ctx, people.StudentRegistration{UserID: usr.ID, ClassName: "6", Section: "B"})
	assert.Equal(t, people.ErrAlreadyRegistered, errors.Cause(err))

	fac := testutil.CreateUser(t, s.UserRepo, "Teacher", "teacher@school.test", "", user.RoleFaculty, true)
	pending := testutil.CreateUser(t, s.UserRepo, "Nila", "nila@school.test", "", user.RoleStudent, true)

	tests := []struct {
		name    string
		reg     people.StudentRegistration
		wantErr string
	}{
		{"unknown user", people.StudentRegistration{UserID: "user_missing", ClassName: "5", Section: "A"}, "User account not found"},
		{"not a student", people.StudentRegistration{UserID: fac.ID, ClassName: "5", Section: "A"}, "User account is not a student account"},
		{"invalid class", people.StudentRegistration{UserID: pending.ID, ClassName: "11", Section: "A"}, "Invalid class. Must be 1-10"},
		{"missing class", people.StudentRegistration{UserID: pending.ID, Section: "A"}, "Invalid class. Must be 1-10"},
		{"invalid section", people.StudentRegistration{UserID: pending.ID, ClassName: "5", Section: "D"}, "Invalid section. Must be A, B, or C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.People.RegisterStudent(ctx, tt.reg)
			assert.EqualError(t, err, tt.wantErr)
		})
	}

	// failed attempts leave a pending profile behind
	placeholder, err := s.People.StudentByUser(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, people.PendingStudentID, placeholder.UniqueStudentID)
	assert.False(t, placeholder.IsRegistered())

	registered, err := s.People.RegisterStudent(ctx, people.StudentRegistration{
		UserID:       pending.ID,
		ClassName:    " 5 ",
		Section:      "A",
		AcademicYear: "2026-2027",
		Gender:       "F",
		ParentIDs:    []string{"par_1", " ", "par_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, placeholder.ID, registered.ID)
	assert.Equal(t, "SMS-2025-5A-003", registered.UniqueStudentID)
	assert.Equal(t, "2026-2027", registered.AcademicYear)
	assert.Equal(t, core.StringList{"par_1"}, registered.ParentIDs)
}

func TestService_RegisterStudent_Capacity(t *testing.T) {
	s := newSchool(t)
	s.Conf.School.SectionCapacity = 2

	s.RegisterStudent(t, "Asha", "asha@school.test", "3", "B")
	s.RegisterStudent(t, "Ravi", "ravi@school.test", "3", "B")

	usr := testutil.CreateUser(t, s.UserRepo, "Mira", "mira@school.test", "", user.RoleStudent, true)
	_, err := s.People.RegisterStudent(context.Background(), people.StudentRegistration{UserID: usr.ID, ClassName: "3", Section: "B"})
	assert.EqualError(t, err, "Section B of class 3 is full (max 2 students)")

	_, stu := s.RegisterStudent(t, "Nila", "nila@school.test", "3", "C")
	assert.Equal(t, 1, stu.RollNumber, "capacity is per section")
}

func TestService_RegisterStudent_RollGap(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	_, first := s.RegisterStudent(t, "Asha", "asha@school.test", "2", "A")
	s.RegisterStudent(t, "Ravi", "ravi@school.test", "2", "A")
	s.RegisterStudent(t, "Mira", "mira@school.test", "2", "A")
	require.NoError(t, s.People.DeleteStudent(ctx, first.ID))

	_, stu := s.RegisterStudent(t, "Nila", "nila@school.test", "2", "A")
	assert.Equal(t, 4, stu.RollNumber)
	assert.Equal(t, "SMS-2025-2A-004", stu.UniqueStudentID)
}

func TestService_RegisterStudent_SeveralRollGaps(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	var registered []people.Student
	for _, name := range []string{"asha", "ravi", "mira", "nila", "arun", "devi"} {
		_, stu := s.RegisterStudent(t, name, name+"@school.test", "5", "A")
		registered = append(registered, stu)
	}
	for _, stu := range registered[:3] {
		require.NoError(t, s.People.DeleteStudent(ctx, stu.ID))
	}

	_, stu := s.RegisterStudent(t, "Kiran", "kiran@school.test", "5", "A")
	assert.Equal(t, 7, stu.RollNumber)
	assert.Equal(t, "SMS-2025-5A-007", stu.UniqueStudentID)

	_, stu = s.RegisterStudent(t, "Lata", "lata@school.test", "5", "A")
	assert.Equal(t, 8, stu.RollNumber)
}

func TestService_RegisterStudent_NoFeeStructure(t *testing.T) {
	s := testutil.NewStack(t) // no classes nor structures seeded
	testutil.FreezeTime(t, regDate)
	ctx := context.Background()

	_, stu := s.RegisterStudent(t, "Asha", "asha@school.test", "1", "A")
	assert.Equal(t, "SMS-2025-1A-001", stu.UniqueStudentID)

	_, err := s.Fees.TrackingForStudent(ctx, stu.ID)
	assert.Equal(t, fees.ErrTrackingNotFound, errors.Cause(err))

	list, err := s.People.StudentsInSection(ctx, "1", "A")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fees.EmptySummary, list[0].Summary)
}

func TestService_ListStudents(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	_, asha := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	s.RegisterStudent(t, "Ravi", "ravi@school.test", "5", "B")
	s.RegisterStudent(t, "Mira", "mira@school.test", "4", "A")

	all, err := s.People.ListStudents(ctx, core.Page{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, asha.ID, all[0].Student.ID)
	assert.Equal(t, fees.StatusPending, all[0].PaymentStatus)
	assert.Equal(t, 25000.0, all[0].PendingAmount)
	assert.Equal(t, 20000.0, all[2].TotalFeeAmount)

	page, err := s.People.ListStudents(ctx, core.NewPage(2, 2))
	require.NoError(t, err)
	assert.Len(t, page, 1)

	section, err := s.People.StudentsInSection(ctx, "5", "B")
	require.NoError(t, err)
	require.Len(t, section, 1)
	assert.Equal(t, "Ravi", section[0].Name)

	got, err := s.People.StudentByUniqueID(ctx, " SMS-2025-5A-001 ")
	require.NoError(t, err)
	assert.Equal(t, asha.ID, got.ID)

	_, err = s.People.StudentByUniqueID(ctx, "SMS-2025-5A-099")
	assert.Equal(t, people.ErrUniqueIDNotFound, errors.Cause(err))

	_, err = s.People.StudentByUser(ctx, "user_missing")
	assert.Equal(t, people.ErrStudentProfile, errors.Cause(err))

	_, err = s.People.GetStudent(ctx, "stu_missing")
	assert.Equal(t, people.ErrStudentNotFound, errors.Cause(err))
}

func TestService_DeleteStudent(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	usr, stu := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	_, other := s.RegisterStudent(t, "Ravi", "ravi@school.test", "5", "A")
	parentUsr := testutil.CreateUser(t, s.UserRepo, "Meena", "meena@school.test", "", user.RoleParent, true)
	require.NoError(t, s.People.Provision(ctx, parentUsr))
	require.NoError(t, s.People.LinkChild(ctx, parentUsr.ID, stu.ID))
	require.NoError(t, s.People.LinkChild(ctx, parentUsr.ID, other.ID))
	_, err := s.People.RegisterMapping(ctx, people.NewMapping{
		UniqueStudentID: stu.UniqueStudentID,
		Relationship:    "mother",
		ParentName:      "Meena",
		ParentEmail:     "meena@school.test",
		ParentPhone:     "9876543210",
	}, parentUsr.ID)
	require.NoError(t, err)
	_, err = s.Academic.MarkAttendance(ctx, academic.BulkAttendance{Records: []academic.NewAttendance{
		{StudentID: stu.ID, Date: "2025-06-02", Status: academic.Present},
	}}, "user_fac")
	require.NoError(t, err)

	require.NoError(t, s.People.DeleteStudent(ctx, stu.ID))

	_, err = s.People.GetStudent(ctx, stu.ID)
	assert.Equal(t, people.ErrStudentNotFound, errors.Cause(err))
	_, err = s.Users.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = s.Fees.TrackingForStudent(ctx, stu.ID)
	assert.Equal(t, fees.ErrTrackingNotFound, errors.Cause(err))

	att, err := s.Academic.StudentAttendance(ctx, stu.ID)
	require.NoError(t, err)
	assert.Empty(t, att.Records)

	mappings, err := s.People.MappingsForStudent(ctx, stu.UniqueStudentID)
	require.NoError(t, err)
	assert.Empty(t, mappings)

	parent, err := s.People.ParentByUser(ctx, parentUsr.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StringList{other.ID}, parent.ChildrenIDs)

	assert.Equal(t, people.ErrStudentNotFound, errors.Cause(s.People.DeleteStudent(ctx, stu.ID)))
}

func TestService_Faculty(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	facUsr := testutil.CreateUser(t, s.UserRepo, "Ravi Kumar", "ravi@school.test", "", user.RoleFaculty, true)
	require.NoError(t, s.People.Provision(ctx, facUsr))
	require.NoError(t, s.People.Provision(ctx, facUsr), "provisioning is idempotent")

	list, err := s.People.ListFaculty(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	fac := list[0]
	assert.Equal(t, people.DefaultSubject, fac.Subject)
	assert.Equal(t, facUsr.ID, fac.UserID)
	assert.False(t, fac.HasAssignment())

	got, students, err := s.People.ClassStudents(ctx, facUsr.ID)
	require.NoError(t, err)
	assert.Equal(t, fac.ID, got.ID)
	assert.Empty(t, students)

	_, err = s.People.AssignClass(ctx, fac.ID, people.Assignment{ClassName: "12", Section: "A"})
	assert.EqualError(t, err, "Invalid class. Must be 1-10")
	assert.EqualError(t, s.People.ValidateAssignment(people.Assignment{ClassName: "5", Section: "E"}), "Invalid section. Must be A, B, or C")

	_, err = s.People.AssignClass(ctx, "fac_missing", people.Assignment{ClassName: "5", Section: "A"})
	assert.Equal(t, people.ErrFacultyNotFound, errors.Cause(err))

	fac, err = s.People.AssignClass(ctx, fac.ID, people.Assignment{ClassName: " 5 ", Section: "A"})
	require.NoError(t, err)
	assert.Equal(t, "5", fac.AssignedClass)
	assert.Equal(t, "A", fac.AssignedSection)

	assignments, err := s.People.Assignments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []people.FacultyAssignment{fac.Assignment()}, assignments)

	s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	s.RegisterStudent(t, "Mira", "mira@school.test", "5", "B")
	s.RegisterStudent(t, "Ravi", "ravi.s@school.test", "5", "A")
	pendingUsr := testutil.CreateUser(t, s.UserRepo, "Nila", "nila@school.test", "", user.RoleStudent, true)
	require.NoError(t, s.People.Provision(ctx, pendingUsr))

	_, students, err = s.People.ClassStudents(ctx, facUsr.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, []int{1, 2}, []int{students[0].RollNumber, students[1].RollNumber})
	assert.Equal(t, "Asha", students[0].Name)

	_, _, err = s.People.ClassStudents(ctx, "user_missing")
	assert.Equal(t, people.ErrFacultyProfile, errors.Cause(err))

	require.NoError(t, s.People.DeleteFaculty(ctx, fac.ID))
	_, err = s.People.GetFaculty(ctx, fac.ID)
	assert.Equal(t, people.ErrFacultyNotFound, errors.Cause(err))
	_, err = s.Users.GetByID(ctx, facUsr.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestService_Parents(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	_, asha := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	_, ravi := s.RegisterStudent(t, "Ravi", "ravi@school.test", "6", "B")
	parUsr := testutil.CreateUser(t, s.UserRepo, "Meena", "meena@school.test", "", user.RoleParent, true)

	_, err := s.People.Children(ctx, parUsr.ID)
	assert.Equal(t, people.ErrParentProfile, errors.Cause(err))

	require.NoError(t, s.People.Provision(ctx, parUsr))
	children, err := s.People.Children(ctx, parUsr.ID)
	require.NoError(t, err)
	assert.Empty(t, children)

	assert.Equal(t, people.ErrStudentNotFound, errors.Cause(s.People.LinkChild(ctx, parUsr.ID, "stu_missing")))
	require.NoError(t, s.People.LinkChild(ctx, parUsr.ID, asha.ID))
	require.NoError(t, s.People.LinkChild(ctx, parUsr.ID, asha.ID))

	parent, err := s.People.ParentByUser(ctx, parUsr.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StringList{asha.ID}, parent.ChildrenIDs)

	stu, err := s.People.GetStudent(ctx, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StringList{parent.ID}, stu.ParentIDs)

	children, err = s.People.Children(ctx, parUsr.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, asha.ID, children[0].ID)

	parents, err := s.People.ParentsOfStudent(ctx, asha.ID)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, parent.ID, parents[0].ID)

	got, err := s.People.GetParent(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parUsr.Email, got.Email)

	tr, err := s.People.ChildFees(ctx, parUsr.ID, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, asha.UniqueStudentID, tr.UniqueStudentID)

	_, err = s.People.ChildFees(ctx, parUsr.ID, ravi.ID)
	assert.Equal(t, people.ErrNotLinked, errors.Cause(err))

	require.NoError(t, s.Fees.PurgeStudent(ctx, asha.ID))
	_, err = s.People.ChildFees(ctx, parUsr.ID, asha.ID)
	assert.Equal(t, people.ErrNoChildFees, errors.Cause(err))
}

func TestService_Mappings(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	_, asha := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	parUsr := testutil.CreateUser(t, s.UserRepo, "Meena", "meena@school.test", "", user.RoleParent, true)
	require.NoError(t, s.People.Provision(ctx, parUsr))
	parent, err := s.People.ParentByUser(ctx, parUsr.ID)
	require.NoError(t, err)

	nm := people.NewMapping{
		UniqueStudentID: " " + asha.UniqueStudentID,
		Relationship:    "Mother",
		ParentName:      "Meena",
		ParentEmail:     "Meena@School.test",
		ParentPhone:     "9876543210",
		ParentPinCode:   "560001",
	}
	m, err := s.People.RegisterMapping(ctx, nm, parUsr.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, m.ParentID, "the parent profile of the caller is used")
	assert.Equal(t, asha.ID, m.StudentID)
	assert.Equal(t, people.Mother, m.Relationship)
	assert.Equal(t, "meena@school.test", m.ParentEmail)

	stu, err := s.People.GetStudent(ctx, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StringList{parent.ID}, stu.ParentIDs)

	// an admin registering a mapping without a parent id links no profile
	admin := testutil.CreateUser(t, s.UserRepo, "Boss", "boss@school.test", "", user.RoleAdmin, true)
	nm.Relationship = people.Father
	nm.ParentName = "Raj"
	m2, err := s.People.RegisterMapping(ctx, nm, admin.ID)
	require.NoError(t, err)
	assert.Empty(t, m2.ParentID)

	mappings, err := s.People.MappingsForStudent(ctx, asha.UniqueStudentID)
	require.NoError(t, err)
	assert.Len(t, mappings, 2)

	mappings, err = s.People.MappingsForStudent(ctx, "SMS-2025-9A-001")
	require.NoError(t, err)
	assert.NotNil(t, mappings)
	assert.Empty(t, mappings)

	nm.UniqueStudentID = "SMS-2025-9A-001"
	_, err = s.People.RegisterMapping(ctx, nm, admin.ID)
	assert.Equal(t, people.ErrUniqueIDNotFound, errors.Cause(err))

	nm.UniqueStudentID = asha.UniqueStudentID
	nm.Relationship = "UNCLE"
	nm.ParentPinCode = "12"
	_, err = s.People.RegisterMapping(ctx, nm, admin.ID)
	assert.Error(t, err)
}

func TestService_ProvisionAndStats(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	stuUsr := testutil.CreateUser(t, s.UserRepo, "Asha", "asha@school.test", "", user.RoleStudent, true)
	facUsr := testutil.CreateUser(t, s.UserRepo, "Ravi", "ravi@school.test", "", user.RoleFaculty, true)
	parUsr := testutil.CreateUser(t, s.UserRepo, "Meena", "meena@school.test", "", user.RoleParent, true)
	admin := testutil.CreateUser(t, s.UserRepo, "Boss", "boss@school.test", "", user.RoleAdmin, true)
	for _, usr := range []user.User{stuUsr, facUsr, parUsr, admin} {
		require.NoError(t, s.People.Provision(ctx, usr))
	}

	counts, err := s.People.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, people.Counts{Students: 1, Faculty: 1, Parents: 1}, counts)

	stu, err := s.People.StudentByUser(ctx, stuUsr.ID)
	require.NoError(t, err)
	assert.Equal(t, people.PendingStudentID, stu.UniqueStudentID)

	for _, usr := range []user.User{stuUsr, facUsr, parUsr, admin} {
		require.NoError(t, s.People.RemoveProfile(ctx, usr))
	}
	require.NoError(t, s.People.RemoveProfile(ctx, facUsr), "missing profiles are ignored")

	counts, err = s.People.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, people.Counts{}, counts)
}

func TestService_NotifyStudent(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	usr, stu := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	require.NoError(t, s.People.NotifyStudent(ctx, stu.ID, "Fee payment overdue", "Please pay"))

	list, err := s.Academic.Notifications(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, academic.NotifyWarning, list[0].Type)
	assert.Equal(t, "Fee payment overdue", list[0].Title)

	assert.Equal(t, people.ErrStudentNotFound, errors.Cause(s.People.NotifyStudent(ctx, "stu_missing", "t", "m")))
}
