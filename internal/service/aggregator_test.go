package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

var aggregatorRef = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func amendment(id string, status models.AmendmentStatus, amendmentDate, expectedDate string) models.AmendmentRecord {
	return models.AmendmentRecord{
		ID:            id,
		LawID:         "law-" + id,
		LawName:       "법령 " + id,
		Title:         "개정안 " + id,
		Status:        status,
		AmendmentDate: amendmentDate,
		ExpectedDate:  expectedDate,
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	snap, err := NewAggregator(AggregatorConfig{}).Aggregate(nil, nil, aggregatorRef)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.TotalLaws)
	assert.Equal(t, map[models.AmendmentStatus]int{
		models.AmendmentStatusReview:     0,
		models.AmendmentStatusInProgress: 0,
		models.AmendmentStatusCompleted:  0,
	}, snap.StatusCounts)
	require.Len(t, snap.MonthlyAmendments, 6)
	for _, bucket := range snap.MonthlyAmendments {
		assert.Zero(t, bucket.Total)
		assert.Zero(t, bucket.Completed)
	}
	assert.Empty(t, snap.UpcomingDueDates)
	assert.NotNil(t, snap.UpcomingDueDates)
}

func TestAggregateMonthlyBucketsOldestFirst(t *testing.T) {
	records := []models.AmendmentRecord{
		amendment("1", models.AmendmentStatusCompleted, "2024-03-01", "2025-01-01"),
		amendment("2", models.AmendmentStatusReview, "2024-03-20", "2025-01-01"),
		amendment("3", models.AmendmentStatusCompleted, "2023-10-31", "2025-01-01"),
		amendment("4", models.AmendmentStatusInProgress, "2023-09-30", "2025-01-01"),
		amendment("5", models.AmendmentStatusReview, "bad", "2025-01-01"),
	}

	snap, err := NewAggregator(AggregatorConfig{}).Aggregate(records, nil, aggregatorRef)
	require.NoError(t, err)

	months := make([]string, 0, len(snap.MonthlyAmendments))
	for _, b := range snap.MonthlyAmendments {
		months = append(months, b.Month)
	}
	assert.Equal(t, []string{"2023-10", "2023-11", "2023-12", "2024-01", "2024-02", "2024-03"}, months)

	assert.Equal(t, 1, snap.MonthlyAmendments[0].Total)
	assert.Equal(t, 1, snap.MonthlyAmendments[0].Completed)
	assert.Equal(t, 2, snap.MonthlyAmendments[5].Total)
	assert.Equal(t, 1, snap.MonthlyAmendments[5].Completed)

	bucketTotal := 0
	for _, b := range snap.MonthlyAmendments {
		bucketTotal += b.Total
	}
	assert.Equal(t, 3, bucketTotal, "record seven months back is excluded from the trend")
	assert.Equal(t, 5, snap.TotalLaws)

	statusTotal := 0
	for _, n := range snap.StatusCounts {
		statusTotal += n
	}
	assert.Equal(t, snap.TotalLaws, statusTotal)
}

func TestAggregateMonthlyBucketsAcrossYearBoundary(t *testing.T) {
	ref := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	snap, err := NewAggregator(AggregatorConfig{}).Aggregate(nil, nil, ref)
	require.NoError(t, err)
	assert.Equal(t, "2023-08", snap.MonthlyAmendments[0].Month)
	assert.Equal(t, "2024-01", snap.MonthlyAmendments[5].Month)
}

func TestAggregateUpcomingWindowBoundaries(t *testing.T) {
	records := []models.AmendmentRecord{
		amendment("yesterday", models.AmendmentStatusReview, "2024-03-01", "2024-03-14"),
		amendment("today", models.AmendmentStatusCompleted, "2024-03-01", "2024-03-15"),
		amendment("edge", models.AmendmentStatusInProgress, "2024-03-01", "2024-04-14"),
		amendment("beyond", models.AmendmentStatusReview, "2024-03-01", "2024-04-15"),
		amendment("unparseable", models.AmendmentStatusReview, "2024-03-01", "soon"),
	}

	snap, err := NewAggregator(AggregatorConfig{}).Aggregate(records, nil, aggregatorRef)
	require.NoError(t, err)

	require.Len(t, snap.UpcomingDueDates, 2)
	assert.Equal(t, "today", snap.UpcomingDueDates[0].ID)
	assert.Equal(t, 0, snap.UpcomingDueDates[0].DaysRemaining)
	assert.Equal(t, models.AmendmentStatusCompleted, snap.UpcomingDueDates[0].Status)
	assert.Equal(t, "edge", snap.UpcomingDueDates[1].ID)
	assert.Equal(t, 30, snap.UpcomingDueDates[1].DaysRemaining)
}

func TestAggregateUpcomingSortedWithIDTieBreak(t *testing.T) {
	records := []models.AmendmentRecord{
		amendment("b", models.AmendmentStatusReview, "2024-03-01", "2024-03-20"),
		amendment("c", models.AmendmentStatusReview, "2024-03-01", "2024-03-18"),
		amendment("a", models.AmendmentStatusReview, "2024-03-01", "2024-03-20"),
	}

	snap, err := NewAggregator(AggregatorConfig{}).Aggregate(records, nil, aggregatorRef)
	require.NoError(t, err)

	ids := []string{}
	for _, u := range snap.UpcomingDueDates {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
	assert.Equal(t, 3, snap.UpcomingDueDates[0].DaysRemaining)
}

func TestAggregateIsDeterministic(t *testing.T) {
	records := []models.AmendmentRecord{
		amendment("1", models.AmendmentStatusReview, "2024-02-01", "2024-03-20"),
		amendment("2", models.AmendmentStatusCompleted, "2024-03-01", "2024-03-16"),
	}
	agg := NewAggregator(AggregatorConfig{})

	first, err := agg.Aggregate(records, nil, aggregatorRef)
	require.NoError(t, err)
	second, err := agg.Aggregate(records, nil, aggregatorRef)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregateDepartmentsPassThrough(t *testing.T) {
	departments := []models.DepartmentStat{
		{Department: "법무팀", TotalCount: 10, CompletedCount: 4, PendingCount: 3, InProgressCount: 3},
	}
	snap, err := NewAggregator(AggregatorConfig{}).Aggregate(nil, departments, aggregatorRef)
	require.NoError(t, err)
	assert.Equal(t, departments, snap.DepartmentStats)
}

func TestAggregateRejectsInconsistentDepartments(t *testing.T) {
	departments := []models.DepartmentStat{
		{Department: "법무팀", TotalCount: 5, CompletedCount: 4, PendingCount: 3, InProgressCount: 0},
	}
	_, err := NewAggregator(AggregatorConfig{}).Aggregate(nil, departments, aggregatorRef)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = ValidateDepartmentStats([]models.DepartmentStat{{Department: "x", TotalCount: -1}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAggregateUsesReferenceCivilDate(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	ref := time.Date(2024, time.April, 1, 1, 0, 0, 0, seoul)
	records := []models.AmendmentRecord{
		amendment("1", models.AmendmentStatusReview, "2024-04-01", "2024-04-01"),
	}

	snap, err := NewAggregator(AggregatorConfig{}).Aggregate(records, nil, ref)
	require.NoError(t, err)
	assert.Equal(t, "2024-04", snap.MonthlyAmendments[5].Month)
	require.Len(t, snap.UpcomingDueDates, 1)
	assert.Equal(t, 0, snap.UpcomingDueDates[0].DaysRemaining)
}
