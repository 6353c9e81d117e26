package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

type notificationLog interface {
	ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	CountUnreadNotifications(ctx context.Context) (int, error)
}

type testEmailSender interface {
	SendTestEmail(ctx context.Context, address string) error
}

const maxNotificationPage = 200

// NotificationService serves the read side of the notification log.
type NotificationService struct {
	log       notificationLog
	sender    testEmailSender
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(log notificationLog, sender testEmailSender, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{log: log, sender: sender, validator: validate, logger: logger}
}

// List returns the log newest first together with the unread count.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) (*dto.NotificationListResponse, error) {
	if filter.Limit < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "limit must not be negative")
	}
	if filter.Limit == 0 || filter.Limit > maxNotificationPage {
		filter.Limit = maxNotificationPage
	}
	items, err := s.log.ListNotifications(ctx, filter)
	if err != nil {
		return nil, err
	}
	unread, err := s.log.CountUnreadNotifications(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &dto.NotificationListResponse{Items: items, UnreadCount: unread}, nil
}

// MarkRead flags a notification as read. Marking an already read notification succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, req dto.MarkReadRequest) error {
	req.NotificationID = strings.TrimSpace(req.NotificationID)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark-read payload")
	}
	return s.log.MarkNotificationRead(ctx, req.NotificationID)
}

// SendTestEmail verifies the mail transport against the given address.
func (s *NotificationService) SendTestEmail(ctx context.Context, req dto.TestEmailRequest) error {
	req.EmailAddress = strings.TrimSpace(req.EmailAddress)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid test email payload")
	}
	if s.sender == nil {
		return appErrors.Clone(appErrors.ErrEmailDelivery, "mailer not configured")
	}
	if err := s.sender.SendTestEmail(ctx, req.EmailAddress); err != nil {
		return err
	}
	s.logger.Info("test email sent", zap.String("to", req.EmailAddress))
	return nil
}
