package academic

import (
	"context"
	"strings"

	"github.com/sadhanaschool/backend/core"
)

// MarkAttendance stores the records of a bulk submission. Records without marked_by are attributed to markedBy.
func (svc *Service) MarkAttendance(ctx context.Context, bulk BulkAttendance, markedBy string) (int, error) {
	for i := range bulk.Records {
		rec := &bulk.Records[i]
		rec.StudentID = core.CleanString(rec.StudentID)
		rec.Date = core.CleanString(rec.Date)
		rec.Status = strings.ToUpper(core.CleanString(rec.Status))
		if rec.MarkedBy = core.CleanString(rec.MarkedBy); rec.MarkedBy == "" {
			rec.MarkedBy = markedBy
		}
	}
	if err := svc.validate.Struct(bulk); err != nil {
		return 0, err
	}

	now := core.NowFunc()
	records := make([]Attendance, len(bulk.Records))
	for i, rec := range bulk.Records {
		records[i] = Attendance{
			ID:        core.GenerateID("att_"),
			StudentID: rec.StudentID,
			Date:      rec.Date,
			Status:    rec.Status,
			MarkedBy:  rec.MarkedBy,
			Remarks:   core.CleanString(rec.Remarks),
			CreatedAt: now,
		}
	}
	if err := svc.repo.UpsertAttendance(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (svc *Service) StudentAttendance(ctx context.Context, studentID string) (AttendanceSummary, error) {
	records, err := svc.repo.QueryAttendance(ctx, studentID)
	if err != nil {
		return AttendanceSummary{}, err
	}
	sum := AttendanceSummary{Records: records, TotalDays: len(records)}
	for _, rec := range records {
		if rec.Status == Present {
			sum.PresentDays++
		}
	}
	sum.Percentage = core.Percentage(float64(sum.PresentDays), float64(sum.TotalDays))
	return sum, nil
}

// UploadMarks stores an exam result. The grade is derived from the percentage when not given.
func (svc *Service) UploadMarks(ctx context.Context, nm NewMarks, uploadedBy string) (Marks, error) {
	nm.StudentID = core.CleanString(nm.StudentID)
	nm.Subject = core.CleanString(nm.Subject)
	nm.ExamName = core.CleanString(nm.ExamName)
	nm.ExamDate = core.CleanString(nm.ExamDate)
	nm.Grade = strings.ToUpper(core.CleanString(nm.Grade))
	if err := svc.validate.Struct(nm); err != nil {
		return Marks{}, err
	}
	if nm.UploadedBy = core.CleanString(nm.UploadedBy); nm.UploadedBy == "" {
		nm.UploadedBy = uploadedBy
	}
	if nm.Grade == "" {
		nm.Grade = Grade(core.Percentage(nm.MarksObtained, nm.TotalMarks))
	}

	return svc.repo.CreateMarks(ctx, Marks{
		ID:            core.GenerateID("mrk_"),
		StudentID:     nm.StudentID,
		Subject:       nm.Subject,
		ExamName:      nm.ExamName,
		MarksObtained: nm.MarksObtained,
		TotalMarks:    nm.TotalMarks,
		Grade:         nm.Grade,
		UploadedBy:    nm.UploadedBy,
		ExamDate:      nm.ExamDate,
		CreatedAt:     core.NowFunc(),
	})
}

func (svc *Service) StudentMarks(ctx context.Context, studentID string) ([]Marks, error) {
	return svc.repo.QueryMarks(ctx, studentID)
}

// PurgeStudentRecords removes the attendance and marks of a deleted student.
func (svc *Service) PurgeStudentRecords(ctx context.Context, studentID string) error {
	return svc.repo.DeleteStudentRecords(ctx, studentID)
}
