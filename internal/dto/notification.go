package dto

import "github.com/noah-isme/lawmon-api/internal/models"

// NotificationSettingRequest upserts the delivery preferences of one law.
type NotificationSettingRequest struct {
	LawID                string `json:"lawId" validate:"required"`
	EmailEnabled         bool   `json:"emailEnabled"`
	EmailAddress         string `json:"emailAddress" validate:"omitempty,email"`
	NotifyOnApproval     bool   `json:"notifyOnApproval"`
	NotifyOnStatusChange bool   `json:"notifyOnStatusChange"`
	NotifyBeforeDueDate  bool   `json:"notifyBeforeDueDate"`
	DaysBeforeDueDate    int    `json:"daysBeforeDueDate" validate:"min=1,max=365"`
}

// MarkReadRequest flags a notification as read.
type MarkReadRequest struct {
	NotificationID string `json:"notificationId" validate:"required"`
}

// TestEmailRequest sends a probe email through the configured mailer.
type TestEmailRequest struct {
	EmailAddress string `json:"emailAddress" validate:"required,email"`
}

// NotificationListResponse wraps the log together with the unread counter.
type NotificationListResponse struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int                   `json:"unreadCount"`
}
