package dto

import "time"

// SystemMetrics summarises process counters for the metrics summary endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64           `json:"cacheHitRatio"`
	CacheHits                uint64            `json:"cacheHits"`
	CacheMisses              uint64            `json:"cacheMisses"`
	RequestsTotal            uint64            `json:"requestsTotal"`
	AverageRequestDurationMs float64           `json:"averageRequestDurationMs"`
	NotificationsDispatched  map[string]uint64 `json:"notificationsDispatched"`
	Transitions              map[string]uint64 `json:"transitions"`
	DueDateReminders         uint64            `json:"dueDateReminders"`
	RealtimeSubscribers      int               `json:"realtimeSubscribers"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generatedAt"`
}
