package dto

import (
	"time"

	"github.com/noah-isme/lawmon-api/internal/models"
)

// DashboardSnapshot captures the rollup statistics over every tracked amendment.
type DashboardSnapshot struct {
	TotalLaws         int                            `json:"totalLaws"`
	StatusCounts      map[models.AmendmentStatus]int `json:"statusCounts"`
	MonthlyAmendments []MonthlyAmendment             `json:"monthlyAmendments"`
	DepartmentStats   []models.DepartmentStat        `json:"departmentStats"`
	UpcomingDueDates  []UpcomingDueDate              `json:"upcomingDueDates"`
	GeneratedAt       time.Time                      `json:"generatedAt"`
}

// MonthlyAmendment is one bucket of the trailing monthly trend.
type MonthlyAmendment struct {
	Month     string `json:"month"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// UpcomingDueDate lists an amendment whose expected date falls inside the forward window.
type UpcomingDueDate struct {
	ID            string                 `json:"id"`
	LawID         string                 `json:"lawId"`
	LawName       string                 `json:"lawName"`
	Title         string                 `json:"title"`
	DueDate       string                 `json:"dueDate"`
	DaysRemaining int                    `json:"daysRemaining"`
	Status        models.AmendmentStatus `json:"status"`
}
