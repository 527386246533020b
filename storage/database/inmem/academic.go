package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
)

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *DB) *academicRepository {
	return &academicRepository{db: db}
}

func (repo *academicRepository) CreateClass(_ context.Context, c academic.Class) (academic.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.classes {
		if strings.EqualFold(existing.Name, c.Name) {
			return academic.Class{}, academic.ErrClassExists
		}
	}
	repo.db.classes = append(repo.db.classes, c)
	return c, nil
}

func (repo *academicRepository) GetClass(_ context.Context, id string) (academic.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.classes {
		if c.ID == id {
			return c, nil
		}
	}
	return academic.Class{}, academic.ErrClassNotFound
}

func (repo *academicRepository) GetClassByName(_ context.Context, name string) (academic.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.classes {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return academic.Class{}, academic.ErrClassNotFound
}

func (repo *academicRepository) QueryClasses(_ context.Context, page core.Page) ([]academic.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	start, end := page.Bounds(len(repo.db.classes))
	return pageOf(repo.db.classes, start, end), nil
}

func (repo *academicRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	found := false
	classes := repo.db.classes[:0]
	for _, c := range repo.db.classes {
		if c.ID == id {
			found = true
			continue
		}
		classes = append(classes, c)
	}
	if !found {
		return academic.ErrClassNotFound
	}
	repo.db.classes = classes

	sections := repo.db.sections[:0]
	for _, s := range repo.db.sections {
		if s.ClassID != id {
			sections = append(sections, s)
		}
	}
	repo.db.sections = sections
	return nil
}

func (repo *academicRepository) sectionTaken(s academic.Section) bool {
	for _, existing := range repo.db.sections {
		if existing.ID != s.ID && existing.ClassID == s.ClassID && strings.EqualFold(existing.Name, s.Name) {
			return true
		}
	}
	return false
}

func (repo *academicRepository) CreateSection(_ context.Context, s academic.Section) (academic.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.sectionTaken(s) {
		return academic.Section{}, academic.ErrSectionExists
	}
	repo.db.sections = append(repo.db.sections, s)
	return s, nil
}

func (repo *academicRepository) GetSection(_ context.Context, id string) (academic.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.sections {
		if s.ID == id {
			return s, nil
		}
	}
	return academic.Section{}, academic.ErrSectionNotFound
}

func (repo *academicRepository) UpdateSection(_ context.Context, s academic.Section) (academic.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.sectionTaken(s) {
		return academic.Section{}, academic.ErrSectionExists
	}
	for i, existing := range repo.db.sections {
		if existing.ID == s.ID {
			repo.db.sections[i] = s
			return s, nil
		}
	}
	return academic.Section{}, academic.ErrSectionNotFound
}

func (repo *academicRepository) DeleteSection(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, s := range repo.db.sections {
		if s.ID == id {
			repo.db.sections = append(repo.db.sections[:i], repo.db.sections[i+1:]...)
			return nil
		}
	}
	return academic.ErrSectionNotFound
}

func (repo *academicRepository) QuerySections(_ context.Context, classID string, page core.Page) ([]academic.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sections := make([]academic.Section, 0)
	for _, s := range repo.db.sections {
		if classID == "" || s.ClassID == classID {
			sections = append(sections, s)
		}
	}
	start, end := page.Bounds(len(sections))
	return sections[start:end], nil
}

func (repo *academicRepository) UpsertAttendance(_ context.Context, records []academic.Attendance) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, rec := range records {
		replaced := false
		for i, existing := range repo.db.attendance {
			if existing.StudentID == rec.StudentID && existing.Date == rec.Date {
				rec.ID = existing.ID
				repo.db.attendance[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			repo.db.attendance = append(repo.db.attendance, rec)
		}
	}
	return nil
}

func (repo *academicRepository) QueryAttendance(_ context.Context, studentID string) ([]academic.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]academic.Attendance, 0)
	for _, rec := range repo.db.attendance {
		if rec.StudentID == studentID {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return records, nil
}

func (repo *academicRepository) CreateMarks(_ context.Context, m academic.Marks) (academic.Marks, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.marks = append(repo.db.marks, m)
	return m, nil
}

func (repo *academicRepository) QueryMarks(_ context.Context, studentID string) ([]academic.Marks, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	marks := make([]academic.Marks, 0)
	for _, m := range repo.db.marks {
		if m.StudentID == studentID {
			marks = append(marks, m)
		}
	}
	return marks, nil
}

func (repo *academicRepository) DeleteStudentRecords(_ context.Context, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	attendance := repo.db.attendance[:0]
	for _, rec := range repo.db.attendance {
		if rec.StudentID != studentID {
			attendance = append(attendance, rec)
		}
	}
	repo.db.attendance = attendance

	marks := repo.db.marks[:0]
	for _, m := range repo.db.marks {
		if m.StudentID != studentID {
			marks = append(marks, m)
		}
	}
	repo.db.marks = marks
	return nil
}

func (repo *academicRepository) SaveTimetable(_ context.Context, t academic.Timetable) (academic.Timetable, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, existing := range repo.db.timetables {
		if existing.ClassName == t.ClassName && existing.Section == t.Section && existing.Day == t.Day {
			t.ID = existing.ID
			t.CreatedAt = existing.CreatedAt
			repo.db.timetables[i] = cloneTimetable(t)
			return t, nil
		}
	}
	repo.db.timetables = append(repo.db.timetables, cloneTimetable(t))
	return t, nil
}

func (repo *academicRepository) QueryTimetable(_ context.Context, className, section string) ([]academic.Timetable, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	timetables := make([]academic.Timetable, 0)
	for _, t := range repo.db.timetables {
		if t.ClassName == className && t.Section == section {
			timetables = append(timetables, cloneTimetable(t))
		}
	}
	return timetables, nil
}

func (repo *academicRepository) CreateAnnouncement(_ context.Context, a academic.Announcement) (academic.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.announcements = append(repo.db.announcements, cloneAnnouncement(a))
	return a, nil
}

func (repo *academicRepository) QueryAnnouncements(_ context.Context, role string, now time.Time, limit int) ([]academic.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	announcements := make([]academic.Announcement, 0)
	for _, a := range repo.db.announcements {
		if a.Targets(role) && !a.Expired(now) {
			announcements = append(announcements, cloneAnnouncement(a))
		}
	}
	sort.SliceStable(announcements, func(i, j int) bool {
		return announcements[i].CreatedAt.After(announcements[j].CreatedAt)
	})
	if len(announcements) > limit {
		announcements = announcements[:limit]
	}
	return announcements, nil
}

func (repo *academicRepository) CreateNotification(_ context.Context, n academic.Notification) (academic.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.notifications = append(repo.db.notifications, n)
	return n, nil
}

func (repo *academicRepository) QueryNotifications(_ context.Context, userID string) ([]academic.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notifications := make([]academic.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID == userID {
			notifications = append(notifications, n)
		}
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (repo *academicRepository) MarkNotificationRead(_ context.Context, id, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, n := range repo.db.notifications {
		if n.ID == id && n.UserID == userID {
			repo.db.notifications[i].IsRead = true
			return nil
		}
	}
	return academic.ErrNotificationNotFound
}
