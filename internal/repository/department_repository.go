package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lawmon-api/internal/models"
)

// DepartmentRepository reads the department workload rows maintained by the organisation directory.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// ListDepartmentStats returns department rows ordered by name.
func (r *DepartmentRepository) ListDepartmentStats(ctx context.Context) ([]models.DepartmentStat, error) {
	const query = `SELECT department, total_count, completed_count, pending_count, in_progress_count
FROM department_stats ORDER BY department ASC`
	var stats []models.DepartmentStat
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("list department stats: %w", err)
	}
	return stats, nil
}

// PostgresStore bundles the PostgreSQL repositories behind the record store contract.
type PostgresStore struct {
	*AmendmentRepository
	*NotificationSettingRepository
	*NotificationRepository
	*DepartmentRepository
}

// NewPostgresStore wires every repository on the same connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		AmendmentRepository:           NewAmendmentRepository(db),
		NotificationSettingRepository: NewNotificationSettingRepository(db),
		NotificationRepository:        NewNotificationRepository(db),
		DepartmentRepository:          NewDepartmentRepository(db),
	}
}
