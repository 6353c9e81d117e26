package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/models"
)

type dashboardSource interface {
	ListAll(ctx context.Context) ([]models.AmendmentRecord, error)
	ListDepartmentStats(ctx context.Context) ([]models.DepartmentStat, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	MonthlyWindow      int
	UpcomingWindowDays int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Source   dashboardSource
	Cache    *SnapshotCache
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
	Config   DashboardServiceConfig
}

// DashboardService serves aggregated statistics over every tracked amendment.
type DashboardService struct {
	source     dashboardSource
	aggregator *Aggregator
	cache      *SnapshotCache
	logger     *zap.Logger
	location   *time.Location
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
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
	return &DashboardService{
		source: params.Source,
		aggregator: NewAggregator(AggregatorConfig{
			MonthlyWindow:      cfg.MonthlyWindow,
			UpcomingWindowDays: cfg.UpcomingWindowDays,
		}),
		cache:    params.Cache,
		logger:   logger,
		location: location,
		now:      now,
		cfg:      cfg,
	}
}

// Snapshot returns the current dashboard statistics and whether they came from cache.
func (s *DashboardService) Snapshot(ctx context.Context) (*dto.DashboardSnapshot, bool, error) {
	ref := s.now().In(s.location)
	day := ref.Format(models.DateLayout)

	if cached, hit := s.cache.Load(ctx, day); hit {
		return cached, true, nil
	}
	generation, cacheable := s.cache.Generation(ctx)

	records, err := s.source.ListAll(ctx)
	if err != nil {
		return nil, false, err
	}
	departments, err := s.source.ListDepartmentStats(ctx)
	if err != nil {
		return nil, false, err
	}

	snapshot, err := s.aggregator.Aggregate(records, departments, ref)
	if err != nil {
		return nil, false, err
	}
	if cacheable {
		s.cache.Store(ctx, day, generation, snapshot)
	}
	s.logger.Debug("dashboard snapshot computed", zap.String("day", day), zap.Int("records", len(records)))
	return snapshot, false, nil
}
