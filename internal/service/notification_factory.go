package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

// NotificationExtra carries event details that are not on the record itself.
type NotificationExtra struct {
	// DaysRemaining is required for DUE_DATE notifications.
	DaysRemaining int
}

// NotificationFactory turns lifecycle events into notification values. It has no side effects.
type NotificationFactory struct {
	now   func() time.Time
	newID func() string
}

// NewNotificationFactory constructs a factory using the given clock.
func NewNotificationFactory(now func() time.Time) *NotificationFactory {
	if now == nil {
		now = time.Now
	}
	return &NotificationFactory{now: now, newID: uuid.NewString}
}

// Build creates the notification for eventType about record.
func (f *NotificationFactory) Build(eventType models.NotificationType, record *models.AmendmentRecord, extra NotificationExtra) (*models.Notification, error) {
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrRecordNotFound, "amendment record is required")
	}
	message, err := notificationMessage(eventType, record, extra)
	if err != nil {
		return nil, err
	}
	return &models.Notification{
		ID:        f.newID(),
		Type:      eventType,
		LawID:     record.LawID,
		LawName:   record.LawName,
		Message:   message,
		CreatedAt: f.now().UTC(),
		IsRead:    false,
		Link:      "/laws/" + record.ID,
	}, nil
}

func notificationMessage(eventType models.NotificationType, record *models.AmendmentRecord, extra NotificationExtra) (string, error) {
	switch eventType {
	case models.NotificationTypeApprovalRequest:
		return fmt.Sprintf("%s 법령 개정안에 대한 결재가 요청되었습니다.", record.LawName), nil
	case models.NotificationTypeApprovalComplete:
		return fmt.Sprintf("%s 법령의 결재가 완료되었습니다.", record.LawName), nil
	case models.NotificationTypeStatusChange:
		return fmt.Sprintf("%s 법령의 상태가 %s(으)로 변경되었습니다.", record.LawName, record.Status.Label()), nil
	case models.NotificationTypeDueDate:
		if extra.DaysRemaining < 0 {
			return "", appErrors.Clone(appErrors.ErrValidation, "days remaining must not be negative")
		}
		if extra.DaysRemaining == 0 {
			return fmt.Sprintf("%s 법령 개정안이 오늘 시행됩니다.", record.LawName), nil
		}
		return fmt.Sprintf("%s 법령 개정안의 시행일이 %d일 남았습니다.", record.LawName, extra.DaysRemaining), nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown notification type %q", eventType))
	}
}
