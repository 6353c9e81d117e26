package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

// NotificationRepository persists the notification log.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// AppendNotification inserts a log entry.
func (r *NotificationRepository) AppendNotification(ctx context.Context, notification *models.Notification) error {
	const query = `INSERT INTO notifications (id, type, law_id, law_name, message, created_at, is_read, link)
VALUES (:id, :type, :law_id, :law_name, :message, :created_at, :is_read, :link)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

// ListNotifications returns log entries newest first.
func (r *NotificationRepository) ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	query := `SELECT id, type, law_id, law_name, message, created_at, is_read, link FROM notifications`
	if filter.UnreadOnly {
		query += ` WHERE is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flags a log entry as read.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotificationAbsent, fmt.Sprintf("notification %s not found", id))
	}
	return nil
}

// CountUnreadNotifications counts unread log entries.
func (r *NotificationRepository) CountUnreadNotifications(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE is_read = FALSE`); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}
