package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
	"github.com/noah-isme/lawmon-api/pkg/realtime"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (f *fakeMailer) messages() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	published []*models.Notification
	err       error
}

func (f *fakeBroadcaster) Publish(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, n)
	return nil
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func testNotification(typ models.NotificationType) *models.Notification {
	return &models.Notification{ID: "n-1", Type: typ, LawID: "law-1", LawName: "개인정보 보호법", Message: "개인정보 보호법 법령의 결재가 완료되었습니다."}
}

func enabledSetting() *models.NotificationSetting {
	return &models.NotificationSetting{
		LawID:                "law-1",
		EmailEnabled:         true,
		EmailAddress:         "reviewer@example.com",
		NotifyOnApproval:     true,
		NotifyOnStatusChange: false,
		NotifyBeforeDueDate:  true,
		DaysBeforeDueDate:    7,
	}
}

func TestDispatchSkipsEmailWhenDisabled(t *testing.T) {
	mailer := &fakeMailer{}
	broadcaster := &fakeBroadcaster{}
	d := NewDispatcher(DispatcherParams{Broadcaster: broadcaster, Mailer: mailer, Metrics: NewMetricsService()})

	res := d.Dispatch(context.Background(), testNotification(models.NotificationTypeApprovalComplete), models.DefaultNotificationSetting("law-1"), nil)

	assert.Equal(t, OutcomeSent, res.Broadcast.Outcome)
	assert.Equal(t, OutcomeSkipped, res.Email.Outcome)
	assert.Equal(t, "email disabled", res.Email.Reason)
	assert.Nil(t, res.Operator)
	assert.Empty(t, mailer.messages())
	assert.Equal(t, 1, broadcaster.count())
}

func TestDispatchSendsEmailWhenOptedIn(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(DispatcherParams{Broadcaster: &fakeBroadcaster{}, Mailer: mailer})

	res := d.Dispatch(context.Background(), testNotification(models.NotificationTypeApprovalComplete), enabledSetting(), nil)

	assert.Equal(t, OutcomeSent, res.Email.Outcome)
	msgs := mailer.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "reviewer@example.com", msgs[0].to)
	assert.Equal(t, "법령 모니터링 알림", msgs[0].subject)
	assert.Equal(t, "개인정보 보호법 법령의 결재가 완료되었습니다.", msgs[0].body)
}

func TestDispatchRespectsPerTypeOptIn(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(DispatcherParams{Broadcaster: &fakeBroadcaster{}, Mailer: mailer})

	res := d.Dispatch(context.Background(), testNotification(models.NotificationTypeStatusChange), enabledSetting(), nil)
	assert.Equal(t, OutcomeSkipped, res.Email.Outcome)

	setting := enabledSetting()
	setting.NotifyOnApproval = false
	setting.NotifyBeforeDueDate = false
	res = d.Dispatch(context.Background(), testNotification(models.NotificationTypeApprovalRequest), setting, nil)
	assert.Equal(t, OutcomeSent, res.Email.Outcome, "approval requests only need email enabled")

	setting.EmailAddress = "  "
	res = d.Dispatch(context.Background(), testNotification(models.NotificationTypeApprovalRequest), setting, nil)
	assert.Equal(t, OutcomeSkipped, res.Email.Outcome)
	assert.Equal(t, "no email address", res.Email.Reason)
	assert.Len(t, mailer.messages(), 1)
}

func TestDispatchEmailFailureDoesNotAffectBroadcast(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	d := NewDispatcher(DispatcherParams{Broadcaster: broadcaster, Mailer: &fakeMailer{err: errors.New("smtp down")}, Metrics: NewMetricsService()})

	res := d.Dispatch(context.Background(), testNotification(models.NotificationTypeApprovalComplete), enabledSetting(), nil)

	assert.Equal(t, OutcomeSent, res.Broadcast.Outcome)
	assert.Equal(t, OutcomeFailed, res.Email.Outcome)
	assert.ErrorIs(t, res.Email.Err, appErrors.ErrEmailDelivery)
	assert.Contains(t, res.Email.Reason, "smtp down")
	assert.True(t, res.Failed())
	assert.Equal(t, 1, broadcaster.count())
}

func TestDispatchBroadcastFailureIsReported(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(DispatcherParams{Broadcaster: &fakeBroadcaster{err: errors.New("hub closed")}, Mailer: mailer})

	res := d.Dispatch(context.Background(), testNotification(models.NotificationTypeApprovalComplete), enabledSetting(), nil)

	assert.Equal(t, OutcomeFailed, res.Broadcast.Outcome)
	assert.ErrorIs(t, res.Broadcast.Err, appErrors.ErrBroadcastFailed)
	assert.Equal(t, OutcomeSent, res.Email.Outcome)
	summary := res.Summary()
	assert.Equal(t, "failed", summary.Broadcast.Outcome)
	assert.Equal(t, "sent", summary.Email.Outcome)
	assert.Nil(t, summary.Operator)
}

func TestDispatchOperatorEmailOnApprovalComplete(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(DispatcherParams{
		Broadcaster: &fakeBroadcaster{},
		Mailer:      mailer,
		Config:      DispatcherConfig{OperatorEmail: "ops@example.com"},
	})
	approver, reviewDate, comment := "최부장", "2024-03-15", "ok"
	record := &models.AmendmentRecord{ID: "1", LawName: "개인정보 보호법", Approver: &approver, DepartmentReviewDate: &reviewDate, ApprovalComment: &comment}

	res := d.Dispatch(context.Background(), testNotification(models.NotificationTypeApprovalComplete), models.DefaultNotificationSetting("law-1"), record)

	require.NotNil(t, res.Operator)
	assert.Equal(t, OutcomeSent, res.Operator.Outcome)
	msgs := mailer.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ops@example.com", msgs[0].to)
	assert.Equal(t, "[법령 모니터링] 결재 완료 알림", msgs[0].subject)
	assert.Equal(t, "법령명: 개인정보 보호법\n결재자: 최부장\n결재일: 2024-03-15\n결재 의견: ok\n\n결재가 완료되었습니다.", msgs[0].body)

	res = d.Dispatch(context.Background(), testNotification(models.NotificationTypeStatusChange), models.DefaultNotificationSetting("law-1"), record)
	assert.Nil(t, res.Operator)
}

func TestDispatchWithoutBroadcasterSkips(t *testing.T) {
	res := NewDispatcher(DispatcherParams{}).Dispatch(context.Background(), testNotification(models.NotificationTypeDueDate), enabledSetting(), nil)
	assert.Equal(t, OutcomeSkipped, res.Broadcast.Outcome)
	assert.Equal(t, OutcomeSkipped, res.Email.Outcome)
	assert.False(t, res.Failed())
}

func TestSendTestEmail(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(DispatcherParams{Mailer: mailer})
	require.NoError(t, d.SendTestEmail(context.Background(), "someone@example.com"))
	require.Len(t, mailer.messages(), 1)

	failing := NewDispatcher(DispatcherParams{Mailer: &fakeMailer{err: errors.New("auth failed")}})
	assert.ErrorIs(t, failing.SendTestEmail(context.Background(), "someone@example.com"), appErrors.ErrEmailDelivery)
}

func TestRealtimeBroadcasterPublishesToHub(t *testing.T) {
	hub := realtime.NewHub(2, nil)
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	n := testNotification(models.NotificationTypeApprovalComplete)
	require.NoError(t, NewRealtimeBroadcaster(hub).Publish(context.Background(), n))

	msg := <-sub.C
	assert.Equal(t, NotificationEvent, msg.Event)
	assert.Equal(t, "n-1", msg.ID)
	var decoded models.Notification
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, n.Message, decoded.Message)
}

type deadlineMailer struct {
	mu          sync.Mutex
	hasDeadline []bool
}

func (m *deadlineMailer) Send(ctx context.Context, _, _, _ string) error {
	_, ok := ctx.Deadline()
	m.mu.Lock()
	m.hasDeadline = append(m.hasDeadline, ok)
	m.mu.Unlock()
	return nil
}

func TestDispatchLeavesTimeoutToTransportUnlessConfigured(t *testing.T) {
	notification := &models.Notification{ID: "n1", Type: models.NotificationTypeApprovalRequest, LawID: "law-1", Message: "m"}
	setting := &models.NotificationSetting{LawID: "law-1", EmailEnabled: true, EmailAddress: "team@example.com"}

	unbounded := &deadlineMailer{}
	d := NewDispatcher(DispatcherParams{Mailer: unbounded})
	res := d.Dispatch(context.Background(), notification, setting, nil)
	assert.Equal(t, OutcomeSent, res.Email.Outcome)
	require.NoError(t, d.SendTestEmail(context.Background(), "someone@example.com"))
	assert.Equal(t, []bool{false, false}, unbounded.hasDeadline)

	bounded := &deadlineMailer{}
	d = NewDispatcher(DispatcherParams{Mailer: bounded, Config: DispatcherConfig{SendTimeout: time.Minute}})
	d.Dispatch(context.Background(), notification, setting, nil)
	assert.Equal(t, []bool{true}, bounded.hasDeadline)
}
