package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lawmon-api/internal/models"
)

// NotificationSettingRepository persists per-law delivery preferences.
type NotificationSettingRepository struct {
	db *sqlx.DB
}

// NewNotificationSettingRepository constructs the repository.
func NewNotificationSettingRepository(db *sqlx.DB) *NotificationSettingRepository {
	return &NotificationSettingRepository{db: db}
}

// GetSetting returns the stored setting, or the default when the law has none.
func (r *NotificationSettingRepository) GetSetting(ctx context.Context, lawID string) (*models.NotificationSetting, error) {
	const query = `SELECT law_id, email_enabled, email_address, notify_on_approval, notify_on_status_change,
notify_before_due_date, days_before_due_date, updated_at
FROM notification_settings WHERE law_id = $1`
	var setting models.NotificationSetting
	if err := r.db.GetContext(ctx, &setting, query, lawID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultNotificationSetting(lawID), nil
		}
		return nil, fmt.Errorf("get notification setting: %w", err)
	}
	return &setting, nil
}

// UpsertSetting inserts or replaces the setting of a law.
func (r *NotificationSettingRepository) UpsertSetting(ctx context.Context, setting *models.NotificationSetting) error {
	const query = `INSERT INTO notification_settings (law_id, email_enabled, email_address, notify_on_approval,
notify_on_status_change, notify_before_due_date, days_before_due_date, updated_at)
VALUES (:law_id, :email_enabled, :email_address, :notify_on_approval, :notify_on_status_change,
        :notify_before_due_date, :days_before_due_date, :updated_at)
ON CONFLICT (law_id)
DO UPDATE SET email_enabled = EXCLUDED.email_enabled, email_address = EXCLUDED.email_address,
              notify_on_approval = EXCLUDED.notify_on_approval, notify_on_status_change = EXCLUDED.notify_on_status_change,
              notify_before_due_date = EXCLUDED.notify_before_due_date, days_before_due_date = EXCLUDED.days_before_due_date,
              updated_at = EXCLUDED.updated_at`
	setting.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return fmt.Errorf("upsert notification setting: %w", err)
	}
	return nil
}
