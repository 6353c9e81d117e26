package models

// DepartmentStat is an externally assigned per-department workload row.
type DepartmentStat struct {
	Department      string `db:"department" json:"department"`
	TotalCount      int    `db:"total_count" json:"totalCount"`
	CompletedCount  int    `db:"completed_count" json:"completedCount"`
	PendingCount    int    `db:"pending_count" json:"pendingCount"`
	InProgressCount int    `db:"in_progress_count" json:"inProgressCount"`
}
