package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

const amendmentColumns = `id, law_id, law_name, title, content, status,
to_char(amendment_date, 'YYYY-MM-DD') AS amendment_date,
to_char(expected_date, 'YYYY-MM-DD') AS expected_date,
to_char(department_review_date, 'YYYY-MM-DD') AS department_review_date,
reviewer, approver, approval_comment, is_applied, law_link`

// AmendmentRepository persists amendment records in PostgreSQL.
type AmendmentRepository struct {
	db *sqlx.DB
}

// NewAmendmentRepository constructs the repository.
func NewAmendmentRepository(db *sqlx.DB) *AmendmentRepository {
	return &AmendmentRepository{db: db}
}

// Get fetches a single amendment by id.
func (r *AmendmentRepository) Get(ctx context.Context, id string) (*models.AmendmentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM law_amendments WHERE id = $1`, amendmentColumns)
	var record models.AmendmentRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recordNotFound(id)
		}
		return nil, fmt.Errorf("get amendment: %w", err)
	}
	return &record, nil
}

// ListAll returns every amendment ordered by id.
func (r *AmendmentRepository) ListAll(ctx context.Context) ([]models.AmendmentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM law_amendments ORDER BY id ASC`, amendmentColumns)
	var records []models.AmendmentRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list amendments: %w", err)
	}
	return records, nil
}

// ApplyTransition locks the row, validates the move and writes it in one transaction.
func (r *AmendmentRepository) ApplyTransition(ctx context.Context, id string, params models.TransitionParams) (*models.AmendmentRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	record, err := r.lockForUpdate(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := record.CheckTransition(params); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	record.Apply(params)

	const update = `UPDATE law_amendments
SET status = $2, approver = $3, approval_comment = $4, department_review_date = $5, updated_at = NOW()
WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, record.ID, record.Status, record.Approver, record.ApprovalComment, record.DepartmentReviewDate); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("update amendment status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition tx: %w", err)
	}
	return record, nil
}

// AssignApprover stores the approver of a pending amendment.
func (r *AmendmentRepository) AssignApprover(ctx context.Context, id, approver string) (*models.AmendmentRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approver tx: %w", err)
	}
	record, err := r.lockForUpdate(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if record.Approved() || record.Status == models.AmendmentStatusCompleted {
		_ = tx.Rollback()
		return nil, appErrors.Clone(appErrors.ErrAlreadyApproved, fmt.Sprintf("amendment %s already approved", id))
	}
	if _, err := tx.ExecContext(ctx, `UPDATE law_amendments SET approver = $2, updated_at = NOW() WHERE id = $1`, id, approver); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("update amendment approver: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approver tx: %w", err)
	}
	record.Approver = &approver
	return record, nil
}

func (r *AmendmentRepository) lockForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.AmendmentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM law_amendments WHERE id = $1 FOR UPDATE`, amendmentColumns)
	var record models.AmendmentRecord
	if err := tx.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recordNotFound(id)
		}
		return nil, fmt.Errorf("lock amendment: %w", err)
	}
	return &record, nil
}
