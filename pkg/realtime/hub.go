package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrHubClosed is returned when publishing to a closed hub.
var ErrHubClosed = errors.New("realtime hub closed")

// Message is a single event pushed to live clients.
type Message struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  []byte `json:"data"`
}

// Publisher delivers messages to connected clients, locally or through a broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Subscription is a live client attached to the hub.
type Subscription struct {
	ID string
	C  <-chan Message

	ch chan Message
}

// Hub fans messages out to every subscriber of this process.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	buffer      int
	closed      bool
	logger      *zap.Logger
}

// NewHub constructs a hub whose subscribers buffer up to buffer messages.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[string]*Subscription),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe attaches a new client.
func (h *Hub) Subscribe() (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	ch := make(chan Message, h.buffer)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch}
	h.subscribers[sub.ID] = sub
	return sub, nil
}

// Unsubscribe detaches the client and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(sub.ch)
}

// Publish delivers msg to every subscriber. Slow subscribers whose buffer is full miss the message.
func (h *Hub) Publish(_ context.Context, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for id, sub := range h.subscribers {
		select {
		case sub.ch <- msg:
		default:
			h.logger.Warn("realtime subscriber buffer full", zap.String("subscriber_id", id), zap.String("message_id", msg.ID))
		}
	}
	return nil
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close detaches every subscriber and rejects further publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		close(sub.ch)
	}
}
