package models

import "time"

// NotificationType identifies the lifecycle event behind a notification.
type NotificationType string

const (
	NotificationTypeApprovalRequest  NotificationType = "APPROVAL_REQUEST"
	NotificationTypeApprovalComplete NotificationType = "APPROVAL_COMPLETE"
	NotificationTypeDueDate          NotificationType = "DUE_DATE"
	NotificationTypeStatusChange     NotificationType = "STATUS_CHANGE"
)

// Valid reports whether the type is known.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeApprovalRequest, NotificationTypeApprovalComplete, NotificationTypeDueDate, NotificationTypeStatusChange:
		return true
	default:
		return false
	}
}

// Notification is an entry of the read-visible notification log.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	Type      NotificationType `db:"type" json:"type"`
	LawID     string           `db:"law_id" json:"lawId"`
	LawName   string           `db:"law_name" json:"lawName"`
	Message   string           `db:"message" json:"message"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	IsRead    bool             `db:"is_read" json:"isRead"`
	Link      string           `db:"link" json:"link"`
}

// NotificationFilter narrows notification log listings.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

// DefaultDaysBeforeDueDate applies when a law has no stored setting.
const DefaultDaysBeforeDueDate = 7

// NotificationSetting holds per-law delivery preferences.
type NotificationSetting struct {
	LawID                string    `db:"law_id" json:"lawId"`
	EmailEnabled         bool      `db:"email_enabled" json:"emailEnabled"`
	EmailAddress         string    `db:"email_address" json:"emailAddress"`
	NotifyOnApproval     bool      `db:"notify_on_approval" json:"notifyOnApproval"`
	NotifyOnStatusChange bool      `db:"notify_on_status_change" json:"notifyOnStatusChange"`
	NotifyBeforeDueDate  bool      `db:"notify_before_due_date" json:"notifyBeforeDueDate"`
	DaysBeforeDueDate    int       `db:"days_before_due_date" json:"daysBeforeDueDate"`
	UpdatedAt            time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultNotificationSetting returns the setting used when none is stored.
func DefaultNotificationSetting(lawID string) *NotificationSetting {
	return &NotificationSetting{LawID: lawID, DaysBeforeDueDate: DefaultDaysBeforeDueDate}
}

// OptsInto reports whether the setting requests email for the notification type.
func (s *NotificationSetting) OptsInto(t NotificationType) bool {
	if s == nil {
		return false
	}
	switch t {
	case NotificationTypeApprovalComplete:
		return s.NotifyOnApproval
	case NotificationTypeStatusChange:
		return s.NotifyOnStatusChange
	case NotificationTypeDueDate:
		return s.NotifyBeforeDueDate
	case NotificationTypeApprovalRequest:
		return true
	default:
		return false
	}
}
