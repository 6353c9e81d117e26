package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

// Broadcaster pushes notifications to connected clients.
type Broadcaster interface {
	Publish(ctx context.Context, notification *models.Notification) error
}

// Mailer delivers a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DispatchOutcome is the result of one delivery channel.
type DispatchOutcome string

const (
	OutcomeSent    DispatchOutcome = "sent"
	OutcomeSkipped DispatchOutcome = "skipped"
	OutcomeFailed  DispatchOutcome = "failed"
)

const (
	channelBroadcast = "broadcast"
	channelEmail     = "email"
	channelOperator  = "operator"
)

// ChannelResult reports what happened on a single channel.
type ChannelResult struct {
	Outcome DispatchOutcome
	Reason  string
	Err     error
}

func sent() ChannelResult { return ChannelResult{Outcome: OutcomeSent} }

func skipped(reason string) ChannelResult {
	return ChannelResult{Outcome: OutcomeSkipped, Reason: reason}
}

func failed(err *appErrors.Error) ChannelResult {
	return ChannelResult{Outcome: OutcomeFailed, Reason: err.Error(), Err: err}
}

// DispatchResult aggregates per-channel outcomes. Operator is nil when no operator address is configured.
type DispatchResult struct {
	Broadcast ChannelResult
	Email     ChannelResult
	Operator  *ChannelResult
}

// Failed reports whether any channel failed.
func (r DispatchResult) Failed() bool {
	if r.Broadcast.Outcome == OutcomeFailed || r.Email.Outcome == OutcomeFailed {
		return true
	}
	return r.Operator != nil && r.Operator.Outcome == OutcomeFailed
}

// Summary converts the result to its wire form.
func (r DispatchResult) Summary() *dto.DispatchSummary {
	summary := &dto.DispatchSummary{
		Broadcast: channelSummary(r.Broadcast),
		Email:     channelSummary(r.Email),
	}
	if r.Operator != nil {
		op := channelSummary(*r.Operator)
		summary.Operator = &op
	}
	return summary
}

func channelSummary(c ChannelResult) dto.ChannelSummary {
	return dto.ChannelSummary{Outcome: string(c.Outcome), Reason: c.Reason}
}

// DispatcherConfig holds email content. SendTimeout is optional; when zero the
// caller's context and the mail transport decide how long a send may take.
type DispatcherConfig struct {
	EmailSubject    string
	OperatorEmail   string
	OperatorSubject string
	SendTimeout     time.Duration
}

// DispatcherParams groups constructor dependencies.
type DispatcherParams struct {
	Broadcaster Broadcaster
	Mailer      Mailer
	Metrics     *MetricsService
	Logger      *zap.Logger
	Config      DispatcherConfig
}

// Dispatcher fans a notification out to the broadcast and email channels.
type Dispatcher struct {
	broadcaster Broadcaster
	mailer      Mailer
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         DispatcherConfig
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(params DispatcherParams) *Dispatcher {
	cfg := params.Config
	if cfg.EmailSubject == "" {
		cfg.EmailSubject = "법령 모니터링 알림"
	}
	if cfg.OperatorSubject == "" {
		cfg.OperatorSubject = "[법령 모니터링] 결재 완료 알림"
	}
	if cfg.SendTimeout < 0 {
		cfg.SendTimeout = 0
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		broadcaster: params.Broadcaster,
		mailer:      params.Mailer,
		metrics:     params.Metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// Dispatch delivers the notification on every applicable channel concurrently and waits for all of them.
// record is optional and only enriches the operator email.
func (d *Dispatcher) Dispatch(ctx context.Context, notification *models.Notification, setting *models.NotificationSetting, record *models.AmendmentRecord) DispatchResult {
	ctx, cancel := d.sendContext(ctx)
	defer cancel()

	var (
		wg     sync.WaitGroup
		result DispatchResult
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Broadcast = d.broadcast(ctx, notification)
	}()
	go func() {
		defer wg.Done()
		result.Email = d.email(ctx, notification, setting)
	}()

	if d.cfg.OperatorEmail != "" && notification.Type == models.NotificationTypeApprovalComplete {
		operator := new(ChannelResult)
		result.Operator = operator
		wg.Add(1)
		go func() {
			defer wg.Done()
			*operator = d.operator(ctx, notification, record)
		}()
	}
	wg.Wait()

	d.record(notification, channelBroadcast, result.Broadcast)
	d.record(notification, channelEmail, result.Email)
	if result.Operator != nil {
		d.record(notification, channelOperator, *result.Operator)
	}
	return result
}

// SendTestEmail delivers a one-off message to verify mail settings.
func (d *Dispatcher) SendTestEmail(ctx context.Context, address string) error {
	if d.mailer == nil {
		return appErrors.Clone(appErrors.ErrEmailDelivery, "mailer not configured")
	}
	ctx, cancel := d.sendContext(ctx)
	defer cancel()
	body := "법령 모니터링 시스템의 테스트 이메일입니다."
	if err := d.mailer.Send(ctx, address, d.cfg.EmailSubject+" (테스트)", body); err != nil {
		d.logger.Warn("test email failed", zap.String("to", address), zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrEmailDelivery, err, "test email could not be delivered")
	}
	return nil
}

func (d *Dispatcher) sendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.SendTimeout == 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.cfg.SendTimeout)
}

func (d *Dispatcher) broadcast(ctx context.Context, notification *models.Notification) ChannelResult {
	if d.broadcaster == nil {
		return skipped("no broadcaster configured")
	}
	if err := d.broadcaster.Publish(ctx, notification); err != nil {
		return failed(appErrors.WrapAs(appErrors.ErrBroadcastFailed, err, ""))
	}
	return sent()
}

func (d *Dispatcher) email(ctx context.Context, notification *models.Notification, setting *models.NotificationSetting) ChannelResult {
	if setting == nil || !setting.EmailEnabled {
		return skipped("email disabled")
	}
	if strings.TrimSpace(setting.EmailAddress) == "" {
		return skipped("no email address")
	}
	if !setting.OptsInto(notification.Type) {
		return skipped(fmt.Sprintf("not subscribed to %s", notification.Type))
	}
	if d.mailer == nil {
		return skipped("mailer not configured")
	}
	if err := d.mailer.Send(ctx, setting.EmailAddress, d.cfg.EmailSubject, notification.Message); err != nil {
		return failed(appErrors.WrapAs(appErrors.ErrEmailDelivery, err, ""))
	}
	return sent()
}

func (d *Dispatcher) operator(ctx context.Context, notification *models.Notification, record *models.AmendmentRecord) ChannelResult {
	if d.mailer == nil {
		return skipped("mailer not configured")
	}
	if err := d.mailer.Send(ctx, d.cfg.OperatorEmail, d.cfg.OperatorSubject, operatorBody(notification, record)); err != nil {
		return failed(appErrors.WrapAs(appErrors.ErrEmailDelivery, err, ""))
	}
	return sent()
}

func operatorBody(notification *models.Notification, record *models.AmendmentRecord) string {
	lines := []string{"법령명: " + notification.LawName}
	if record != nil {
		lines = append(lines,
			"결재자: "+valueOrDash(record.Approver),
			"결재일: "+valueOrDash(record.DepartmentReviewDate),
			"결재 의견: "+valueOrDash(record.ApprovalComment),
		)
	}
	lines = append(lines, "", "결재가 완료되었습니다.")
	return strings.Join(lines, "\n")
}

func valueOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func (d *Dispatcher) record(notification *models.Notification, channel string, res ChannelResult) {
	d.metrics.RecordDispatch(channel, res.Outcome)
	fields := []zap.Field{
		zap.String("notification_id", notification.ID),
		zap.String("type", string(notification.Type)),
		zap.String("channel", channel),
		zap.String("outcome", string(res.Outcome)),
	}
	switch res.Outcome {
	case OutcomeFailed:
		d.logger.Warn("notification delivery failed", append(fields, zap.Error(res.Err))...)
	case OutcomeSkipped:
		d.logger.Debug("notification delivery skipped", append(fields, zap.String("reason", res.Reason))...)
	default:
		d.logger.Debug("notification delivered", fields...)
	}
}
