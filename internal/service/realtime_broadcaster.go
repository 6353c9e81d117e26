package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/lawmon-api/internal/models"
	"github.com/noah-isme/lawmon-api/pkg/realtime"
)

// NotificationEvent is the event name clients listen for.
const NotificationEvent = "notification"

// RealtimeBroadcaster publishes notifications through a realtime publisher (local hub or Redis).
type RealtimeBroadcaster struct {
	publisher realtime.Publisher
}

// NewRealtimeBroadcaster constructs the broadcaster.
func NewRealtimeBroadcaster(publisher realtime.Publisher) *RealtimeBroadcaster {
	return &RealtimeBroadcaster{publisher: publisher}
}

// Publish encodes the notification and hands it to the publisher.
func (b *RealtimeBroadcaster) Publish(ctx context.Context, notification *models.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", notification.ID, err)
	}
	return b.publisher.Publish(ctx, realtime.Message{
		ID:    notification.ID,
		Event: NotificationEvent,
		Data:  payload,
	})
}
