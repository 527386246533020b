// Package inmemdb keeps every repository in memory. It backs the tests and the "memory" database engine.
package inmemdb

import (
	"slices"
	"sync"

	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

// DB holds the tables in insertion order behind a single lock.
type DB struct {
	sync.RWMutex

	users []user.User

	classes       []academic.Class
	sections      []academic.Section
	attendance    []academic.Attendance
	marks         []academic.Marks
	timetables    []academic.Timetable
	announcements []academic.Announcement
	notifications []academic.Notification

	structures []fees.Structure
	trackings  []fees.Tracking
	payments   []fees.Payment
	fees       []fees.Fee

	students []people.Student
	faculty  []people.Faculty
	parents  []people.Parent
	mappings []people.Mapping
}

func Open() *DB {
	return &DB{}
}

// Flush empties every table.
func (db *DB) Flush() {
	db.Lock()
	defer db.Unlock()

	db.users = nil
	db.classes, db.sections = nil, nil
	db.attendance, db.marks = nil, nil
	db.timetables, db.announcements, db.notifications = nil, nil, nil
	db.structures, db.trackings, db.payments, db.fees = nil, nil, nil, nil
	db.students, db.faculty, db.parents, db.mappings = nil, nil, nil, nil
}

// stored values never share slices with the values handed out

func cloneTracking(t fees.Tracking) fees.Tracking {
	t.PaymentHistory = slices.Clone(t.PaymentHistory)
	return t
}

func cloneStudent(s people.Student) people.Student {
	s.ParentIDs = slices.Clone(s.ParentIDs)
	return s
}

func cloneParent(p people.Parent) people.Parent {
	p.ChildrenIDs = slices.Clone(p.ChildrenIDs)
	return p
}

func cloneTimetable(t academic.Timetable) academic.Timetable {
	t.Periods = slices.Clone(t.Periods)
	return t
}

func cloneAnnouncement(a academic.Announcement) academic.Announcement {
	a.TargetRoles = slices.Clone(a.TargetRoles)
	return a
}

// pageOf returns the items of a page.
func pageOf[T any](items []T, start, end int) []T {
	res := make([]T, 0, end-start)
	return append(res, items[start:end]...)
}
