// Package notifications creates per-recipient notifications and pushes them to the recipient's
// live connections.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"channel-service/internal/apperrors"
	"channel-service/internal/models"
	"channel-service/internal/registry"
	"channel-service/internal/repositories"
)

// Notifier stores a notification and delivers it live. Callers run it inside a detached task.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

type Service struct {
	repo        repositories.NotificationRepository
	broadcaster registry.Broadcaster
	log         *zap.Logger
}

func NewService(repo repositories.NotificationRepository, broadcaster registry.Broadcaster, log *zap.Logger) *Service {
	return &Service{repo: repo, broadcaster: broadcaster, log: log.Named("notifications")}
}

func (s *Service) Notify(ctx context.Context, n models.Notification) error {
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	stored, err := s.repo.Create(ctx, n)
	if err != nil {
		return fmt.Errorf("create notification %s for %d: %w", n.EventType, n.RecipientID, err)
	}
	s.broadcaster.ToUser(ctx, stored.RecipientID, models.NewEvent(models.EventNotification, stored))
	return nil
}

// Inbox is the caller-facing view of their notifications.
type Inbox struct {
	Items  []models.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

func (s *Service) List(ctx context.Context, p models.Principal, unreadOnly bool, limit int) (Inbox, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := s.repo.ListForUser(ctx, p.TenantID, p.UserID, unreadOnly, limit)
	if err != nil {
		return Inbox{}, apperrors.Internal("failed to list notifications", err)
	}
	unread, err := s.repo.UnreadCount(ctx, p.TenantID, p.UserID)
	if err != nil {
		return Inbox{}, apperrors.Internal("failed to count notifications", err)
	}
	return Inbox{Items: items, Unread: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, p models.Principal, notificationID int64) error {
	err := s.repo.MarkRead(ctx, p.TenantID, p.UserID, notificationID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return apperrors.NotFound("notification not found")
	}
	if err != nil {
		return apperrors.Internal("failed to update notification", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, p models.Principal) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, p.TenantID, p.UserID)
	if err != nil {
		return 0, apperrors.Internal("failed to update notifications", err)
	}
	return n, nil
}
