package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/events"
	"nemt/internal/repositories"
	"nemt/internal/utils"
)

type NotificationInput struct {
	Type     models.NotificationType
	Title    string
	Message  string
	Metadata models.NotificationMetadata
}

// Notifier is what lifecycle services need from the dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, rc domain.RequestContext, in NotificationInput) (models.Notification, error)
}

// NotificationService writes the organization inbox and fans new rows out to
// the event bus. Bus failures are logged, never returned.
type NotificationService struct {
	Store     repositories.Store
	Publisher events.Publisher
	Now       func() time.Time
}

func (s NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func (s NotificationService) Dispatch(ctx context.Context, rc domain.RequestContext, in NotificationInput) (models.Notification, error) {
	switch in.Type {
	case models.NotificationDriverPending, models.NotificationTripReportSubmitted, models.NotificationIncidentReported,
		models.NotificationTripCancelled, models.NotificationTripNoShow:
	default:
		return models.Notification{}, domain.ValidationError{Field: "type", Msg: fmt.Sprintf("unknown notification type %q", in.Type)}
	}
	if strings.TrimSpace(in.Title) == "" {
		return models.Notification{}, domain.ValidationError{Field: "title", Msg: "required"}
	}

	n := models.Notification{
		OrganizationID: rc.OrganizationID,
		Type:           in.Type,
		Title:          strings.TrimSpace(in.Title),
		Message:        strings.TrimSpace(in.Message),
		Status:         models.NotificationUnread,
		Metadata:       in.Metadata,
		CreatedAt:      s.now(),
	}
	if err := s.Store.Repos().Notifications.Create(ctx, &n); err != nil {
		return models.Notification{}, err
	}
	utils.LogEvent(rc.RequestID, "notifications", "dispatch", fmt.Sprintf("org_id=%d type=%s id=%d", n.OrganizationID, n.Type, n.ID))

	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, events.NewNotificationEvent(n, n.CreatedAt)); err != nil {
			utils.LogWarn(rc.RequestID, "notifications", "publish", fmt.Sprintf("notification_id=%d", n.ID), err)
		}
	}
	return n, nil
}

func (s NotificationService) ListAll(ctx context.Context, rc domain.RequestContext) ([]models.Notification, error) {
	return s.Store.Repos().Notifications.List(ctx, rc.OrganizationID, false)
}

func (s NotificationService) ListUnread(ctx context.Context, rc domain.RequestContext) ([]models.Notification, error) {
	return s.Store.Repos().Notifications.List(ctx, rc.OrganizationID, true)
}

func (s NotificationService) UnreadCount(ctx context.Context, rc domain.RequestContext) (int64, error) {
	return s.Store.Repos().Notifications.CountUnread(ctx, rc.OrganizationID)
}

// MarkRead is idempotent. An archived notification stays archived.
func (s NotificationService) MarkRead(ctx context.Context, rc domain.RequestContext, id int64) (models.Notification, error) {
	return s.setStatus(ctx, rc, id, models.NotificationRead)
}

func (s NotificationService) Archive(ctx context.Context, rc domain.RequestContext, id int64) (models.Notification, error) {
	return s.setStatus(ctx, rc, id, models.NotificationArchived)
}

func (s NotificationService) setStatus(ctx context.Context, rc domain.RequestContext, id int64, status models.NotificationStatus) (models.Notification, error) {
	var out models.Notification
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		n, err := r.Notifications.GetByID(ctx, rc.OrganizationID, id)
		if err != nil {
			return err
		}
		if n.Status == status || n.Status == models.NotificationArchived {
			out = n
			return nil
		}
		at := s.now()
		if err := r.Notifications.UpdateStatus(ctx, rc.OrganizationID, id, status, &at); err != nil {
			return err
		}
		n.Status = status
		if n.ReadAt == nil {
			n.ReadAt = &at
		}
		out = n
		return nil
	})
	return out, err
}

func (s NotificationService) MarkAllRead(ctx context.Context, rc domain.RequestContext) (int64, error) {
	n, err := s.Store.Repos().Notifications.MarkAllRead(ctx, rc.OrganizationID, s.now())
	if err != nil {
		return 0, err
	}
	utils.LogEvent(rc.RequestID, "notifications", "mark_all_read", fmt.Sprintf("org_id=%d updated=%d", rc.OrganizationID, n))
	return n, nil
}
