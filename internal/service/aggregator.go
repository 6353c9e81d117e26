package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

const (
	defaultMonthlyWindow  = 6
	defaultUpcomingWindow = 30
	monthKeyLayout        = "2006-01"
)

// AggregatorConfig sizes the rollup windows.
type AggregatorConfig struct {
	MonthlyWindow      int
	UpcomingWindowDays int
}

// Aggregator computes dashboard snapshots. It holds no state beyond its configuration.
type Aggregator struct {
	cfg AggregatorConfig
}

// NewAggregator constructs an Aggregator with defaults for unset windows.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.MonthlyWindow <= 0 {
		cfg.MonthlyWindow = defaultMonthlyWindow
	}
	if cfg.UpcomingWindowDays <= 0 {
		cfg.UpcomingWindowDays = defaultUpcomingWindow
	}
	return &Aggregator{cfg: cfg}
}

// Aggregate builds the snapshot for records and departments as seen on the reference date.
func (a *Aggregator) Aggregate(records []models.AmendmentRecord, departments []models.DepartmentStat, ref time.Time) (*dto.DashboardSnapshot, error) {
	if err := ValidateDepartmentStats(departments); err != nil {
		return nil, err
	}

	today := civilDate(ref)
	snapshot := &dto.DashboardSnapshot{
		TotalLaws:         len(records),
		StatusCounts:      countStatuses(records),
		MonthlyAmendments: a.monthlyBuckets(records, today),
		DepartmentStats:   append([]models.DepartmentStat{}, departments...),
		UpcomingDueDates:  a.upcoming(records, today),
		GeneratedAt:       ref.UTC(),
	}
	return snapshot, nil
}

// ValidateDepartmentStats rejects rows whose breakdown exceeds their total.
func ValidateDepartmentStats(departments []models.DepartmentStat) error {
	for _, d := range departments {
		if d.TotalCount < 0 || d.CompletedCount < 0 || d.PendingCount < 0 || d.InProgressCount < 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("department %s has negative counts", d.Department))
		}
		if d.CompletedCount+d.PendingCount+d.InProgressCount > d.TotalCount {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("department %s breakdown exceeds total %d", d.Department, d.TotalCount))
		}
	}
	return nil
}

func countStatuses(records []models.AmendmentRecord) map[models.AmendmentStatus]int {
	counts := make(map[models.AmendmentStatus]int, len(models.AmendmentStatuses))
	for _, status := range models.AmendmentStatuses {
		counts[status] = 0
	}
	for _, rec := range records {
		counts[rec.Status]++
	}
	return counts
}

func (a *Aggregator) monthlyBuckets(records []models.AmendmentRecord, today time.Time) []dto.MonthlyAmendment {
	n := a.cfg.MonthlyWindow
	buckets := make([]dto.MonthlyAmendment, n)
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		month := time.Date(today.Year(), today.Month()-time.Month(n-1-i), 1, 0, 0, 0, 0, time.UTC)
		key := month.Format(monthKeyLayout)
		buckets[i] = dto.MonthlyAmendment{Month: key}
		index[key] = i
	}

	for _, rec := range records {
		if len(rec.AmendmentDate) < len(monthKeyLayout) {
			continue
		}
		i, ok := index[rec.AmendmentDate[:len(monthKeyLayout)]]
		if !ok {
			continue
		}
		buckets[i].Total++
		if rec.Status == models.AmendmentStatusCompleted {
			buckets[i].Completed++
		}
	}
	return buckets
}

func (a *Aggregator) upcoming(records []models.AmendmentRecord, today time.Time) []dto.UpcomingDueDate {
	horizon := today.AddDate(0, 0, a.cfg.UpcomingWindowDays)
	out := make([]dto.UpcomingDueDate, 0)
	for _, rec := range records {
		due, err := models.ParseDate(rec.ExpectedDate)
		if err != nil {
			continue
		}
		if due.Before(today) || due.After(horizon) {
			continue
		}
		out = append(out, dto.UpcomingDueDate{
			ID:            rec.ID,
			LawID:         rec.LawID,
			LawName:       rec.LawName,
			Title:         rec.Title,
			DueDate:       due.Format(models.DateLayout),
			DaysRemaining: daysBetween(today, due),
			Status:        rec.Status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DueDate == out[j].DueDate {
			return out[i].ID < out[j].ID
		}
		return out[i].DueDate < out[j].DueDate
	})
	return out
}

// civilDate returns the calendar date of t as UTC midnight.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
