package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

// RecordStore is the persistence contract shared by the memory and PostgreSQL stores.
type RecordStore interface {
	Get(ctx context.Context, id string) (*models.AmendmentRecord, error)
	ListAll(ctx context.Context) ([]models.AmendmentRecord, error)
	ApplyTransition(ctx context.Context, id string, params models.TransitionParams) (*models.AmendmentRecord, error)
	AssignApprover(ctx context.Context, id, approver string) (*models.AmendmentRecord, error)
	GetSetting(ctx context.Context, lawID string) (*models.NotificationSetting, error)
	UpsertSetting(ctx context.Context, setting *models.NotificationSetting) error
	AppendNotification(ctx context.Context, notification *models.Notification) error
	ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	CountUnreadNotifications(ctx context.Context) (int, error)
	ListDepartmentStats(ctx context.Context) ([]models.DepartmentStat, error)
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context, notification *models.Notification, setting *models.NotificationSetting, record *models.AmendmentRecord) DispatchResult
}

// AmendmentServiceParams groups constructor dependencies.
type AmendmentServiceParams struct {
	Store      RecordStore
	Factory    *NotificationFactory
	Dispatcher notificationDispatcher
	Cache      *SnapshotCache
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Location   *time.Location
	Now        func() time.Time
}

// AmendmentService orchestrates amendment lifecycle transitions and their notifications.
type AmendmentService struct {
	store      RecordStore
	factory    *NotificationFactory
	dispatcher notificationDispatcher
	cache      *SnapshotCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	location   *time.Location
	now        func() time.Time
}

// NewAmendmentService constructs the service.
func NewAmendmentService(params AmendmentServiceParams) *AmendmentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	location := params.Location
	if location == nil {
		location = time.UTC
	}
	factory := params.Factory
	if factory == nil {
		factory = NewNotificationFactory(now)
	}
	RegisterValidations(validate)
	return &AmendmentService{
		store:      params.Store,
		factory:    factory,
		dispatcher: params.Dispatcher,
		cache:      params.Cache,
		metrics:    params.Metrics,
		validator:  validate,
		logger:     logger,
		location:   location,
		now:        now,
	}
}

// RegisterValidations installs the domain validation tags.
func RegisterValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation("amendment_status", func(fl validator.FieldLevel) bool {
		return models.AmendmentStatus(fl.Field().String()).Valid()
	})
}

// List returns amendments matching the filter in store order.
func (s *AmendmentService) List(ctx context.Context, req dto.AmendmentListRequest) ([]models.AmendmentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(req.Query))
	out := make([]models.AmendmentRecord, 0, len(records))
	for _, rec := range records {
		if req.Status != "" && rec.Status != req.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(rec.LawName), query) && !strings.Contains(strings.ToLower(rec.Title), query) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns a record with its notification setting attached.
func (s *AmendmentService) Get(ctx context.Context, id string) (*models.AmendmentRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	setting, err := s.store.GetSetting(ctx, rec.LawID)
	if err != nil {
		return nil, err
	}
	rec.NotificationSetting = setting
	return rec, nil
}

// Transition moves the record forward, then records and dispatches the resulting notification.
// Only store errors are returned; notification failures are reported in the response.
func (s *AmendmentService) Transition(ctx context.Context, id string, req dto.TransitionRequest, actor string) (*dto.TransitionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}

	params := models.TransitionParams{
		Status:     req.Status,
		Approver:   strings.TrimSpace(req.Approver),
		Comment:    strings.TrimSpace(req.Comment),
		ReviewDate: req.ReviewDate,
	}
	if params.Approver == "" {
		params.Approver = actor
	}
	if params.ReviewDate == "" {
		params.ReviewDate = s.now().In(s.location).Format(models.DateLayout)
	}
	rec, err := s.store.ApplyTransition(ctx, id, params)
	if err != nil {
		s.metrics.RecordTransition(string(req.Status), appErrors.FromError(err).Code)
		return nil, err
	}
	s.metrics.RecordTransition(string(req.Status), "ok")
	s.logger.Info("amendment transitioned",
		zap.String("amendment_id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.String("actor", actor),
	)
	s.invalidateDashboard(ctx)

	eventType := models.NotificationTypeStatusChange
	if rec.Status == models.AmendmentStatusCompleted {
		eventType = models.NotificationTypeApprovalComplete
	}
	return s.notify(ctx, rec, eventType, NotificationExtra{}), nil
}

// RequestApproval records the requested approver and notifies about the pending approval.
func (s *AmendmentService) RequestApproval(ctx context.Context, id string, req dto.ApprovalRequest) (*dto.TransitionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval request")
	}
	rec, err := s.store.AssignApprover(ctx, id, strings.TrimSpace(req.Approver))
	if err != nil {
		return nil, err
	}
	s.logger.Info("approval requested", zap.String("amendment_id", rec.ID), zap.String("approver", req.Approver))
	s.invalidateDashboard(ctx)
	return s.notify(ctx, rec, models.NotificationTypeApprovalRequest, NotificationExtra{}), nil
}

// Notify builds, records and dispatches a notification about an already committed change.
func (s *AmendmentService) Notify(ctx context.Context, rec *models.AmendmentRecord, eventType models.NotificationType, extra NotificationExtra) *dto.TransitionResponse {
	return s.notify(ctx, rec, eventType, extra)
}

func (s *AmendmentService) notify(ctx context.Context, rec *models.AmendmentRecord, eventType models.NotificationType, extra NotificationExtra) *dto.TransitionResponse {
	resp := &dto.TransitionResponse{Record: rec}

	notification, err := s.factory.Build(eventType, rec, extra)
	if err != nil {
		s.logger.Error("build notification failed", zap.String("amendment_id", rec.ID), zap.String("type", string(eventType)), zap.Error(err))
		return resp
	}
	resp.Notification = notification

	if err := s.store.AppendNotification(ctx, notification); err != nil {
		s.logger.Error("append notification failed", zap.String("notification_id", notification.ID), zap.Error(err))
	}

	setting, err := s.store.GetSetting(ctx, rec.LawID)
	if err != nil {
		s.logger.Warn("load notification setting failed, email skipped", zap.String("law_id", rec.LawID), zap.Error(err))
		setting = nil
	}
	rec.NotificationSetting = setting

	if s.dispatcher != nil {
		result := s.dispatcher.Dispatch(ctx, notification, setting, rec)
		resp.Dispatch = result.Summary()
	}
	return resp
}

// GetSetting returns the stored or default setting for a law.
func (s *AmendmentService) GetSetting(ctx context.Context, lawID string) (*models.NotificationSetting, error) {
	if strings.TrimSpace(lawID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lawId is required")
	}
	return s.store.GetSetting(ctx, lawID)
}

// UpsertSetting validates and stores the delivery preferences for a law.
func (s *AmendmentService) UpsertSetting(ctx context.Context, req dto.NotificationSettingRequest) (*models.NotificationSetting, error) {
	req.EmailAddress = strings.TrimSpace(req.EmailAddress)
	if req.DaysBeforeDueDate == 0 {
		req.DaysBeforeDueDate = models.DefaultDaysBeforeDueDate
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification settings")
	}
	if req.EmailEnabled && req.EmailAddress == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "emailAddress is required when email is enabled")
	}

	setting := &models.NotificationSetting{
		LawID:                req.LawID,
		EmailEnabled:         req.EmailEnabled,
		EmailAddress:         req.EmailAddress,
		NotifyOnApproval:     req.NotifyOnApproval,
		NotifyOnStatusChange: req.NotifyOnStatusChange,
		NotifyBeforeDueDate:  req.NotifyBeforeDueDate,
		DaysBeforeDueDate:    req.DaysBeforeDueDate,
	}
	if err := s.store.UpsertSetting(ctx, setting); err != nil {
		return nil, err
	}
	s.logger.Info("notification settings updated", zap.String("law_id", setting.LawID), zap.Bool("email_enabled", setting.EmailEnabled))
	return setting, nil
}

func (s *AmendmentService) invalidateDashboard(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
