package academic

import (
	"context"

	"github.com/sadhanaschool/backend/core"
)

func (svc *Service) SaveTimetable(ctx context.Context, nt NewTimetable) (Timetable, error) {
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return Timetable{}, err
	}
	now := core.NowFunc()
	return svc.repo.SaveTimetable(ctx, Timetable{
		ID:        core.GenerateID("tt_"),
		ClassName: nt.ClassName,
		Section:   nt.Section,
		Day:       nt.Day,
		Periods:   nt.Periods,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Timetable(ctx context.Context, className, section string) ([]Timetable, error) {
	return svc.repo.QueryTimetable(ctx, core.CleanString(className), core.CleanString(section))
}

func (svc *Service) CreateAnnouncement(ctx context.Context, na NewAnnouncement, createdBy string) (Announcement, error) {
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
	if na.Priority = core.CleanString(na.Priority); na.Priority == "" {
		na.Priority = PriorityMedium
	}
	if err := svc.validate.Struct(na); err != nil {
		return Announcement{}, err
	}

	roles := make(core.StringList, 0, len(na.TargetRoles))
	for _, r := range na.TargetRoles {
		roles.Add(r)
	}
	return svc.repo.CreateAnnouncement(ctx, Announcement{
		ID:          core.GenerateID("ann_"),
		Title:       na.Title,
		Content:     na.Content,
		TargetRoles: roles,
		CreatedBy:   createdBy,
		Priority:    na.Priority,
		CreatedAt:   core.NowFunc(),
		ExpiresAt:   na.ExpiresAt,
	})
}

// Announcements returns the latest live announcements for role.
func (svc *Service) Announcements(ctx context.Context, role string) ([]Announcement, error) {
	return svc.repo.QueryAnnouncements(ctx, role, core.NowFunc(), AnnouncementLimit)
}

func (svc *Service) Notify(ctx context.Context, nn NewNotification) (Notification, error) {
	nn.UserID = core.CleanString(nn.UserID)
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	if nn.Type = core.CleanString(nn.Type); nn.Type == "" {
		nn.Type = NotifyInfo
	}
	if err := svc.validate.Struct(nn); err != nil {
		return Notification{}, err
	}
	return svc.repo.CreateNotification(ctx, Notification{
		ID:        core.GenerateID("notif_"),
		UserID:    nn.UserID,
		Title:     nn.Title,
		Message:   nn.Message,
		Type:      nn.Type,
		CreatedAt: core.NowFunc(),
	})
}

func (svc *Service) Notifications(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, userID)
}

func (svc *Service) MarkNotificationRead(ctx context.Context, id, userID string) error {
	return svc.repo.MarkNotificationRead(ctx, id, userID)
}
