package fees

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
)

// Notifier delivers in-app notifications to students.
type Notifier interface {
	NotifyStudent(ctx context.Context, studentID, title, message string) error
}

type SweepResult struct {
	OverdueFees int `json:"overdue_fees"`
	Reminders   int `json:"reminders"`
}

// SweepOverdue flags pending fees past their due date and reminds every student
// whose tracking is past due with a balance left.
func (svc *Service) SweepOverdue(ctx context.Context, notifier Notifier) (SweepResult, error) {
	var res SweepResult
	now := core.NowFunc()

	n, err := svc.repo.MarkOverdueFees(ctx, now.Format("2006-01-02"))
	if err != nil {
		return res, errors.Wrap(err, "marking overdue fees")
	}
	res.OverdueFees = n

	trackings, err := svc.repo.QueryTrackings(ctx, TrackingQuery{Unpaid: true, DueBefore: &now})
	if err != nil {
		return res, errors.Wrap(err, "querying overdue trackings")
	}
	for _, t := range trackings {
		if t.DueDate == nil {
			continue
		}
		msg := fmt.Sprintf(
			"Your fee payment of Rs. %.2f for %s was due on %s. Please pay at the earliest.",
			t.PendingAmount, t.AcademicYear, t.DueDate.Format("02 Jan 2006"),
		)
		if err = notifier.NotifyStudent(ctx, t.StudentID, "Fee payment overdue", msg); err != nil {
			svc.logger.Warn("failed to send fee reminder", err, map[string]interface{}{"student_id": t.StudentID})
			continue
		}
		res.Reminders++
	}
	return res, nil
}
