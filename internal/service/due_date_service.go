package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/models"
	"github.com/noah-isme/lawmon-api/pkg/jobs"
)

type dueDateSource interface {
	ListAll(ctx context.Context) ([]models.AmendmentRecord, error)
	GetSetting(ctx context.Context, lawID string) (*models.NotificationSetting, error)
}

type dueDateNotifier interface {
	Notify(ctx context.Context, rec *models.AmendmentRecord, eventType models.NotificationType, extra NotificationExtra) *dto.TransitionResponse
}

// DueDateService emits DUE_DATE reminders once per amendment and expected date.
type DueDateService struct {
	source   dueDateSource
	notifier dueDateNotifier
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time

	mu       sync.Mutex
	reminded map[string]struct{}
}

// DueDateServiceParams groups constructor dependencies.
type DueDateServiceParams struct {
	Source   dueDateSource
	Notifier dueDateNotifier
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
}

// NewDueDateService constructs the service.
func NewDueDateService(params DueDateServiceParams) *DueDateService {
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
	return &DueDateService{
		source:   params.Source,
		notifier: params.Notifier,
		logger:   logger,
		location: location,
		now:      now,
		reminded: make(map[string]struct{}),
	}
}

// Scan notifies every amendment whose expected date falls within its reminder window
// and returns how many reminders were emitted.
func (s *DueDateService) Scan(ctx context.Context) (int, error) {
	records, err := s.source.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list amendments: %w", err)
	}
	today := civilDate(s.now().In(s.location))

	emitted := 0
	for i := range records {
		if err := ctx.Err(); err != nil {
			return emitted, err
		}
		rec := records[i]
		due, err := models.ParseDate(rec.ExpectedDate)
		if err != nil {
			continue
		}
		days := daysBetween(today, due)
		if days < 0 {
			continue
		}

		setting, err := s.source.GetSetting(ctx, rec.LawID)
		if err != nil {
			return emitted, fmt.Errorf("load setting for law %s: %w", rec.LawID, err)
		}
		window := setting.DaysBeforeDueDate
		if window <= 0 {
			window = models.DefaultDaysBeforeDueDate
		}
		if days > window {
			continue
		}

		if !s.claim(rec.ID, rec.ExpectedDate) {
			continue
		}
		s.notifier.Notify(ctx, &rec, models.NotificationTypeDueDate, NotificationExtra{DaysRemaining: days})
		emitted++
		s.logger.Info("due date reminder emitted",
			zap.String("amendment_id", rec.ID),
			zap.String("expected_date", rec.ExpectedDate),
			zap.Int("days_remaining", days),
		)
	}
	return emitted, nil
}

func (s *DueDateService) claim(id, expectedDate string) bool {
	key := id + "|" + expectedDate
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.reminded[key]; done {
		return false
	}
	s.reminded[key] = struct{}{}
	return true
}

const (
	dueDateJobType = "due_date_scan"
	dueDateJobKey  = "due-date-scan"
)

// DueDateSchedulerConfig controls when scans run and how failures are retried.
type DueDateSchedulerConfig struct {
	Cron       string
	Location   *time.Location
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// DueDateScheduler triggers scans on a cron schedule through a worker queue.
type DueDateScheduler struct {
	cron   *cron.Cron
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewDueDateScheduler wires the scan into a cron schedule.
func NewDueDateScheduler(scanner *DueDateService, cfg DueDateSchedulerConfig, metrics *MetricsService, logger *zap.Logger) (*DueDateScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	queue := jobs.NewQueue("due-date", func(ctx context.Context, job jobs.Job) error {
		count, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}
		metrics.RecordReminders(count)
		logger.Info("due date scan finished", zap.String("job_id", job.ID), zap.Int("reminders", count))
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		Observer: func(queue string, _ jobs.Job, err error) {
			metrics.RecordJobAttempt(queue, err)
		},
	})

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(cfg.Location))
	s := &DueDateScheduler{cron: c, queue: queue, logger: logger}
	if _, err := c.AddFunc(cfg.Cron, func() {
		err := s.Trigger()
		switch {
		case errors.Is(err, jobs.ErrDuplicate):
			logger.Debug("due date scan already pending")
		case err != nil:
			logger.Warn("enqueue due date scan failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("parse due date schedule %q: %w", cfg.Cron, err)
	}
	return s, nil
}

// Start begins the worker queue and the cron schedule.
func (s *DueDateScheduler) Start(ctx context.Context) {
	s.queue.Start(ctx)
	s.cron.Start()
}

// Trigger enqueues an immediate scan. It returns jobs.ErrDuplicate while a scan is pending.
func (s *DueDateScheduler) Trigger() error {
	return s.queue.Enqueue(jobs.Job{Type: dueDateJobType, Key: dueDateJobKey})
}

// Stop halts the schedule, waits for a running trigger, then drains the queue workers.
func (s *DueDateScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.queue.Stop()
}
