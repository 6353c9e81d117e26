package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNotificationFactoryMessages(t *testing.T) {
	record := &models.AmendmentRecord{ID: "7", LawID: "law-7", LawName: "개인정보 보호법", Status: models.AmendmentStatusInProgress}
	factory := NewNotificationFactory(fixedClock(aggregatorRef))

	cases := []struct {
		name     string
		typ      models.NotificationType
		extra    NotificationExtra
		expected string
	}{
		{"approval request", models.NotificationTypeApprovalRequest, NotificationExtra{}, "개인정보 보호법 법령 개정안에 대한 결재가 요청되었습니다."},
		{"approval complete", models.NotificationTypeApprovalComplete, NotificationExtra{}, "개인정보 보호법 법령의 결재가 완료되었습니다."},
		{"status change", models.NotificationTypeStatusChange, NotificationExtra{}, "개인정보 보호법 법령의 상태가 진행중(으)로 변경되었습니다."},
		{"due date", models.NotificationTypeDueDate, NotificationExtra{DaysRemaining: 5}, "개인정보 보호법 법령 개정안의 시행일이 5일 남았습니다."},
		{"due today", models.NotificationTypeDueDate, NotificationExtra{DaysRemaining: 0}, "개인정보 보호법 법령 개정안이 오늘 시행됩니다."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := factory.Build(tc.typ, record, tc.extra)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, n.Message)
			assert.Equal(t, tc.typ, n.Type)
			assert.Equal(t, "law-7", n.LawID)
			assert.Equal(t, "개인정보 보호법", n.LawName)
			assert.Equal(t, "/laws/7", n.Link)
			assert.False(t, n.IsRead)
			assert.Equal(t, aggregatorRef, n.CreatedAt)
			assert.NotEmpty(t, n.ID)
		})
	}
}

func TestNotificationFactoryUniqueIDs(t *testing.T) {
	record := &models.AmendmentRecord{ID: "1", LawName: "x"}
	factory := NewNotificationFactory(nil)
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		n, err := factory.Build(models.NotificationTypeApprovalComplete, record, NotificationExtra{})
		require.NoError(t, err)
		_, dup := seen[n.ID]
		require.False(t, dup)
		seen[n.ID] = struct{}{}
	}
}

func TestNotificationFactoryRejectsMissingRecord(t *testing.T) {
	_, err := NewNotificationFactory(nil).Build(models.NotificationTypeApprovalComplete, nil, NotificationExtra{})
	assert.ErrorIs(t, err, appErrors.ErrRecordNotFound)
}

func TestNotificationFactoryRejectsUnknownType(t *testing.T) {
	record := &models.AmendmentRecord{ID: "1", LawName: "x"}
	_, err := NewNotificationFactory(nil).Build(models.NotificationType("ARCHIVED"), record, NotificationExtra{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = NewNotificationFactory(nil).Build(models.NotificationTypeDueDate, record, NotificationExtra{DaysRemaining: -1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
