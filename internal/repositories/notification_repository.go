package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `id, tenant_id, recipient_id, event_type, payload, priority, is_read, read_at, created_at`

// NotificationRepository persists per-recipient notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListForUser(ctx context.Context, tenantID, userID int64, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, tenantID, userID int64) (int64, error)
	UnreadCount(ctx context.Context, tenantID, userID int64) (int, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	var out models.Notification
	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (tenant_id, recipient_id, event_type, payload, priority)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+notificationColumns,
		n.TenantID, n.RecipientID, n.EventType, n.Payload, n.Priority).StructScan(&out)
	return out, err
}

func (r *NotificationRepo) ListForUser(ctx context.Context, tenantID, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	items := []models.Notification{}
	err := r.db.SelectContext(ctx, &items, `SELECT `+notificationColumns+` FROM notifications
        WHERE tenant_id=$1 AND recipient_id=$2 AND ($3 = FALSE OR is_read = FALSE)
        ORDER BY id DESC LIMIT $4`, tenantID, userID, unreadOnly, limit)
	return items, err
}

// MarkRead flags one notification as read. Notifications of other recipients look missing.
func (r *NotificationRepo) MarkRead(ctx context.Context, tenantID, userID, notificationID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
        WHERE id=$1 AND tenant_id=$2 AND recipient_id=$3`, notificationID, tenantID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, tenantID, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE, read_at = NOW()
        WHERE tenant_id=$1 AND recipient_id=$2 AND is_read = FALSE`, tenantID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, tenantID, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE tenant_id=$1 AND recipient_id=$2 AND is_read = FALSE`, tenantID, userID)
	return count, err
}
