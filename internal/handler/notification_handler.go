package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
	"github.com/noah-isme/lawmon-api/pkg/realtime"
	"github.com/noah-isme/lawmon-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, filter models.NotificationFilter) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, req dto.MarkReadRequest) error
	SendTestEmail(ctx context.Context, req dto.TestEmailRequest) error
}

type settingService interface {
	GetSetting(ctx context.Context, lawID string) (*models.NotificationSetting, error)
	UpsertSetting(ctx context.Context, req dto.NotificationSettingRequest) (*models.NotificationSetting, error)
}

type streamSource interface {
	Subscribe() (*realtime.Subscription, error)
	Unsubscribe(id string)
}

const defaultHeartbeat = 25 * time.Second

// NotificationHandler exposes the notification log, settings and live stream.
type NotificationHandler struct {
	notifications notificationService
	settings      settingService
	stream        streamSource
	heartbeat     time.Duration
	logger        *zap.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(notifications notificationService, settings settingService, stream streamSource, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		notifications: notifications,
		settings:      settings,
		stream:        stream,
		heartbeat:     defaultHeartbeat,
		logger:        logger,
	}
}

// List godoc
// @Summary List notifications newest first
// @Tags Notifications
// @Produce json
// @Param unreadOnly query bool false "Only unread notifications"
// @Param limit query int false "Maximum items"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var filter models.NotificationFilter
	if raw := strings.TrimSpace(c.Query("unreadOnly")); raw != "" {
		unreadOnly, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unreadOnly must be a boolean"))
			return
		}
		filter.UnreadOnly = unreadOnly
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer"))
			return
		}
		filter.Limit = limit
	}
	result, err := h.notifications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.MarkReadRequest true "Notification"
// @Success 204
// @Router /notifications/mark-read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark-read payload"))
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpsertSetting godoc
// @Summary Create or replace the notification settings of a law
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.NotificationSettingRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Router /notification-settings [post]
func (h *NotificationHandler) UpsertSetting(c *gin.Context) {
	var req dto.NotificationSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	if lawID := c.Param("lawId"); lawID != "" {
		if req.LawID != "" && req.LawID != lawID {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lawId mismatch between path and body"))
			return
		}
		req.LawID = lawID
	}
	setting, err := h.settings.UpsertSetting(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting)
}

// GetSetting godoc
// @Summary Get the notification settings of a law
// @Tags Notifications
// @Produce json
// @Param lawId path string true "Law ID"
// @Success 200 {object} response.Envelope
// @Router /laws/{lawId}/notifications [get]
func (h *NotificationHandler) GetSetting(c *gin.Context) {
	setting, err := h.settings.GetSetting(c.Request.Context(), c.Param("lawId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting)
}

// SendTestEmail godoc
// @Summary Send a test email through the configured mailer
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.TestEmailRequest true "Recipient"
// @Success 202 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /notifications/test-email [post]
func (h *NotificationHandler) SendTestEmail(c *gin.Context) {
	var req dto.TestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid test email payload"))
		return
	}
	if err := h.notifications.SendTestEmail(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"sent": true})
}

// Stream godoc
// @Summary Stream notifications as server-sent events
// @Tags Notifications
// @Produce text/event-stream
// @Success 200
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.stream == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	sub, err := h.stream.Subscribe()
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrBroadcastFailed, err, "notification stream unavailable"))
		return
	}
	defer h.stream.Unsubscribe(sub.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	h.logger.Debug("notification stream opened", zap.String("subscription_id", sub.ID))
	c.SSEvent("connected", sub.ID)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, string(msg.Data))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
	h.logger.Debug("notification stream closed", zap.String("subscription_id", sub.ID))
}
