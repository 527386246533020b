package sqlxdb

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
)

var (
	classTable = table{name: "classes", key: "class_id", columns: []string{"class_id", "name", "created_at"}}

	sectionTable = table{
		name:    "sections",
		key:     "section_id",
		columns: []string{"section_id", "class_id", "name", "capacity", "created_at", "updated_at"},
	}

	attendanceTable = table{
		name:    "attendance",
		key:     "attendance_id",
		columns: []string{"attendance_id", "student_id", "date", "status", "marked_by", "remarks", "created_at"},
	}

	marksTable = table{
		name: "marks",
		key:  "marks_id",
		columns: []string{
			"marks_id", "student_id", "subject", "exam_name", "marks_obtained", "total_marks",
			"grade", "uploaded_by", "exam_date", "created_at",
		},
	}

	timetableTable = table{
		name:    "timetables",
		key:     "timetable_id",
		columns: []string{"timetable_id", "class_name", "section", "day", "periods", "created_at", "updated_at"},
	}

	announcementTable = table{
		name: "announcements",
		key:  "announcement_id",
		columns: []string{
			"announcement_id", "title", "content", "target_roles", "created_by", "priority", "created_at", "expires_at",
		},
	}

	notificationTable = table{
		name:    "notifications",
		key:     "notification_id",
		columns: []string{"notification_id", "user_id", "title", "message", "type", "is_read", "created_at"},
	}
)

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *sqlx.DB) *academicRepository {
	return &academicRepository{db: db}
}

func (repo *academicRepository) CreateClass(ctx context.Context, c academic.Class) (academic.Class, error) {
	if _, err := repo.db.NamedExecContext(ctx, classTable.insertQuery(), c); err != nil {
		if isUniqueViolation(err, "classes_name_key") {
			return academic.Class{}, academic.ErrClassExists
		}
		return academic.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo *academicRepository) GetClass(ctx context.Context, id string) (academic.Class, error) {
	var c academic.Class
	if err := repo.db.GetContext(ctx, &c, classTable.selectQuery()+" WHERE class_id = $1", id); err != nil {
		return c, trapNoRows(err, academic.ErrClassNotFound, "getting class")
	}
	return c, nil
}

func (repo *academicRepository) GetClassByName(ctx context.Context, name string) (academic.Class, error) {
	var c academic.Class
	if err := repo.db.GetContext(ctx, &c, classTable.selectQuery()+" WHERE name = $1", name); err != nil {
		return c, trapNoRows(err, academic.ErrClassNotFound, "getting class")
	}
	return c, nil
}

func (repo *academicRepository) QueryClasses(ctx context.Context, page core.Page) ([]academic.Class, error) {
	classes := make([]academic.Class, 0)
	q := classTable.selectQuery() + " ORDER BY seq" + pageClause(page)
	if err := repo.db.SelectContext(ctx, &classes, q); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

// DeleteClass relies on ON DELETE CASCADE for the sections.
func (repo *academicRepository) DeleteClass(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, classTable.deleteQuery(), id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return mustAffect(res, academic.ErrClassNotFound)
}

func trapSectionTaken(err error, msg string) error {
	if isUniqueViolation(err, "sections_class_name_key") {
		return academic.ErrSectionExists
	}
	return errors.Wrap(err, msg)
}

func (repo *academicRepository) CreateSection(ctx context.Context, s academic.Section) (academic.Section, error) {
	if _, err := repo.db.NamedExecContext(ctx, sectionTable.insertQuery(), s); err != nil {
		return academic.Section{}, trapSectionTaken(err, "inserting section")
	}
	return s, nil
}

func (repo *academicRepository) GetSection(ctx context.Context, id string) (academic.Section, error) {
	var s academic.Section
	if err := repo.db.GetContext(ctx, &s, sectionTable.selectQuery()+" WHERE section_id = $1", id); err != nil {
		return s, trapNoRows(err, academic.ErrSectionNotFound, "getting section")
	}
	return s, nil
}

func (repo *academicRepository) UpdateSection(ctx context.Context, s academic.Section) (academic.Section, error) {
	res, err := repo.db.NamedExecContext(ctx, sectionTable.updateQuery(), s)
	if err != nil {
		return academic.Section{}, trapSectionTaken(err, "updating section")
	}
	if err = mustAffect(res, academic.ErrSectionNotFound); err != nil {
		return academic.Section{}, err
	}
	return s, nil
}

func (repo *academicRepository) DeleteSection(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, sectionTable.deleteQuery(), id)
	if err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return mustAffect(res, academic.ErrSectionNotFound)
}

func (repo *academicRepository) QuerySections(ctx context.Context, classID string, page core.Page) ([]academic.Section, error) {
	var w where
	if classID != "" {
		w.add("class_id = ?", classID)
	}
	sections := make([]academic.Section, 0)
	q := sectionTable.selectQuery() + w.String() + " ORDER BY seq" + pageClause(page)
	if err := repo.db.SelectContext(ctx, &sections, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	return sections, nil
}

const upsertAttendanceQuery = `INSERT INTO attendance (attendance_id, student_id, date, status, marked_by, remarks, created_at)
VALUES (:attendance_id, :student_id, :date, :status, :marked_by, :remarks, :created_at)
ON CONFLICT (student_id, date) DO UPDATE SET
	status = EXCLUDED.status,
	marked_by = EXCLUDED.marked_by,
	remarks = EXCLUDED.remarks,
	created_at = EXCLUDED.created_at`

func (repo *academicRepository) UpsertAttendance(ctx context.Context, records []academic.Attendance) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, rec := range records {
			if _, err := tx.NamedExecContext(ctx, upsertAttendanceQuery, rec); err != nil {
				return errors.Wrap(err, "upserting attendance")
			}
		}
		return nil
	})
}

func (repo *academicRepository) QueryAttendance(ctx context.Context, studentID string) ([]academic.Attendance, error) {
	records := make([]academic.Attendance, 0)
	q := attendanceTable.selectQuery() + " WHERE student_id = $1 ORDER BY date, seq"
	if err := repo.db.SelectContext(ctx, &records, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func (repo *academicRepository) CreateMarks(ctx context.Context, m academic.Marks) (academic.Marks, error) {
	if _, err := repo.db.NamedExecContext(ctx, marksTable.insertQuery(), m); err != nil {
		return academic.Marks{}, errors.Wrap(err, "inserting marks")
	}
	return m, nil
}

func (repo *academicRepository) QueryMarks(ctx context.Context, studentID string) ([]academic.Marks, error) {
	marks := make([]academic.Marks, 0)
	q := marksTable.selectQuery() + " WHERE student_id = $1 ORDER BY seq"
	if err := repo.db.SelectContext(ctx, &marks, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	return marks, nil
}

func (repo *academicRepository) DeleteStudentRecords(ctx context.Context, studentID string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE student_id = $1", studentID); err != nil {
			return errors.Wrap(err, "deleting attendance")
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM marks WHERE student_id = $1", studentID); err != nil {
			return errors.Wrap(err, "deleting marks")
		}
		return nil
	})
}

const saveTimetableQuery = `INSERT INTO timetables (timetable_id, class_name, section, day, periods, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (class_name, section, day) DO UPDATE SET
	periods = EXCLUDED.periods,
	updated_at = EXCLUDED.updated_at
RETURNING timetable_id, created_at`

func (repo *academicRepository) SaveTimetable(ctx context.Context, t academic.Timetable) (academic.Timetable, error) {
	row := repo.db.QueryRowxContext(ctx, saveTimetableQuery,
		t.ID, t.ClassName, t.Section, t.Day, t.Periods, t.CreatedAt, t.UpdatedAt)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return academic.Timetable{}, errors.Wrap(err, "saving timetable")
	}
	return t, nil
}

func (repo *academicRepository) QueryTimetable(ctx context.Context, className, section string) ([]academic.Timetable, error) {
	timetables := make([]academic.Timetable, 0)
	q := timetableTable.selectQuery() + " WHERE class_name = $1 AND section = $2 ORDER BY seq"
	if err := repo.db.SelectContext(ctx, &timetables, q, className, section); err != nil {
		return nil, errors.Wrap(err, "querying timetable")
	}
	return timetables, nil
}

func (repo *academicRepository) CreateAnnouncement(ctx context.Context, a academic.Announcement) (academic.Announcement, error) {
	if _, err := repo.db.NamedExecContext(ctx, announcementTable.insertQuery(), a); err != nil {
		return academic.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo *academicRepository) QueryAnnouncements(ctx context.Context, role string, now time.Time, limit int) ([]academic.Announcement, error) {
	announcements := make([]academic.Announcement, 0)
	q := announcementTable.selectQuery() +
		" WHERE target_roles @> jsonb_build_array($1::text) AND (expires_at IS NULL OR expires_at >= $2)" +
		" ORDER BY created_at DESC, seq LIMIT $3"
	if err := repo.db.SelectContext(ctx, &announcements, q, role, now, limit); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	return announcements, nil
}

func (repo *academicRepository) CreateNotification(ctx context.Context, n academic.Notification) (academic.Notification, error) {
	if _, err := repo.db.NamedExecContext(ctx, notificationTable.insertQuery(), n); err != nil {
		return academic.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo *academicRepository) QueryNotifications(ctx context.Context, userID string) ([]academic.Notification, error) {
	notifications := make([]academic.Notification, 0)
	q := notificationTable.selectQuery() + " WHERE user_id = $1 ORDER BY created_at DESC, seq"
	if err := repo.db.SelectContext(ctx, &notifications, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifications, nil
}

func (repo *academicRepository) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = true WHERE notification_id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return mustAffect(res, academic.ErrNotificationNotFound)
}
