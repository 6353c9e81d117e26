package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lawmon-api/internal/dto"
)

const metricsNamespace = "lawmon"

// MetricsService owns the Prometheus registry of the API and keeps in-process
// counters for the JSON summary endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.HistogramVec
	cacheWrite      prometheus.Histogram
	dispatched      *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	jobAttempts     *prometheus.CounterVec
	reminders       prometheus.Counter

	cacheHitCount        atomic.Uint64
	cacheMissCount       atomic.Uint64
	requestCount         atomic.Uint64
	requestDurationTotal atomic.Uint64
	reminderCount        atomic.Uint64

	mu              sync.Mutex
	dispatchCounts  map[string]uint64
	transitionCount map[string]uint64
	subscribers     func() int
}

// NewMetricsService registers the API collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry:        prometheus.NewRegistry(),
		dispatchCounts:  make(map[string]uint64),
		transitionCount: make(map[string]uint64),
	}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.cacheLookups = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "dashboard_cache",
		Name:      "lookup_seconds",
		Help:      "Dashboard snapshot cache lookups by result",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"result"})

	m.cacheWrite = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "dashboard_cache",
		Name:      "write_seconds",
		Help:      "Dashboard snapshot cache write latency",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	m.dispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "notifications_dispatched_total",
		Help:      "Notification deliveries by channel and outcome",
	}, []string{"channel", "outcome"})

	m.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "amendment_transitions_total",
		Help:      "Amendment status transitions by target status and result",
	}, []string{"status", "result"})

	m.jobAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "background_job_attempts_total",
		Help:      "Background job attempts by queue and result",
	}, []string{"queue", "result"})

	m.reminders = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "due_date_reminders_total",
		Help:      "Due date reminders emitted by the scheduled scan",
	})

	subscribers := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "realtime_subscribers",
		Help:      "Connected notification stream clients",
	}, func() float64 { return float64(m.subscriberCount()) })

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLookups, m.cacheWrite,
		m.dispatched, m.transitions, m.jobAttempts, m.reminders, subscribers,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// TrackSubscribers sets the source of the realtime subscriber gauge.
func (m *MetricsService) TrackSubscribers(count func() int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.subscribers = count
	m.mu.Unlock()
}

func (m *MetricsService) subscriberCount() int {
	m.mu.Lock()
	count := m.subscribers
	m.mu.Unlock()
	if count == nil {
		return 0
	}
	return count()
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	m.requestCount.Add(1)
	m.requestDurationTotal.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a dashboard cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHitCount.Add(1)
	} else {
		m.cacheMissCount.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveCacheWrite tracks the duration of a dashboard cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordDispatch counts one channel outcome of a notification dispatch.
func (m *MetricsService) RecordDispatch(channel string, outcome DispatchOutcome) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(channel, string(outcome)).Inc()
	m.mu.Lock()
	m.dispatchCounts[channel+":"+string(outcome)]++
	m.mu.Unlock()
}

// RecordTransition counts a transition attempt; result is "ok" or the error code.
func (m *MetricsService) RecordTransition(status, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status, result).Inc()
	m.mu.Lock()
	m.transitionCount[result]++
	m.mu.Unlock()
}

// RecordReminders counts due date reminders emitted by one scan.
func (m *MetricsService) RecordReminders(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.reminders.Add(float64(count))
	m.reminderCount.Add(uint64(count))
}

// RecordJobAttempt counts a background job attempt.
func (m *MetricsService) RecordJobAttempt(queue string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobAttempts.WithLabelValues(queue, result).Inc()
}

// Snapshot returns aggregated metrics suitable for the metrics summary endpoint.
func (m *MetricsService) Snapshot() dto.SystemMetrics {
	if m == nil {
		return dto.SystemMetrics{}
	}
	hits := m.cacheHitCount.Load()
	misses := m.cacheMissCount.Load()
	requests := m.requestCount.Load()
	reqDuration := m.requestDurationTotal.Load()

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	m.mu.Lock()
	dispatched := copyCounts(m.dispatchCounts)
	transitions := copyCounts(m.transitionCount)
	m.mu.Unlock()

	return dto.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		NotificationsDispatched:  dispatched,
		Transitions:              transitions,
		DueDateReminders:         m.reminderCount.Load(),
		RealtimeSubscribers:      m.subscriberCount(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
