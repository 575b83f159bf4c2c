package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

const pqUniqueViolation = "23505"

// SalaryRepository persists salary headers and their component lines.
type SalaryRepository struct {
	db *sqlx.DB
}

// NewSalaryRepository constructs the repository.
func NewSalaryRepository(db *sqlx.DB) *SalaryRepository {
	return &SalaryRepository{db: db}
}

const salaryHeaderColumns = `id, employee_id, period, version, days_worked, gross_salary, total_allowances,
       total_deductions, net_salary, negative_net, approval_status, current_level,
       next_approver_id, rejection_reason, approved_by, created_at`

// CreateWithDetails inserts a header and its lines in one transaction. A
// unique violation on (employee_id, period, version) means another writer
// won the race; it surfaces as a retryable concurrent-modification error.
func (r *SalaryRepository) CreateWithDetails(ctx context.Context, header *models.SalaryHeader) error {
	if header.ID == "" {
		header.ID = uuid.NewString()
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin salary tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const headerQuery = `INSERT INTO salary_headers
	(id, employee_id, period, version, days_worked, gross_salary, total_allowances, total_deductions,
	 net_salary, negative_net, approval_status, current_level, next_approver_id, rejection_reason, approved_by, created_at)
	VALUES (:id, :employee_id, :period, :version, :days_worked, :gross_salary, :total_allowances, :total_deductions,
	 :net_salary, :negative_net, :approval_status, :current_level, :next_approver_id, :rejection_reason, :approved_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, headerQuery, header); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return appErrors.Wrap(err, appErrors.ErrConcurrentModification.Code,
				appErrors.ErrConcurrentModification.Status, "salary header already created for period version")
		}
		return fmt.Errorf("create salary header: %w", err)
	}

	const detailQuery = `INSERT INTO salary_details (id, header_id, component_code, category, amount, installment_id)
	VALUES (:id, :header_id, :component_code, :category, :amount, :installment_id)`
	for i := range header.Details {
		detail := &header.Details[i]
		if detail.ID == "" {
			detail.ID = uuid.NewString()
		}
		detail.HeaderID = header.ID
		if _, err := tx.NamedExecContext(ctx, detailQuery, detail); err != nil {
			return fmt.Errorf("create salary detail %s: %w", detail.ComponentCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit salary tx: %w", err)
	}
	return nil
}

// GetByID fetches a header with its lines.
func (r *SalaryRepository) GetByID(ctx context.Context, id string) (*models.SalaryHeader, error) {
	query := fmt.Sprintf(`SELECT %s FROM salary_headers WHERE id = $1`, salaryHeaderColumns)
	var header models.SalaryHeader
	if err := r.db.GetContext(ctx, &header, query, id); err != nil {
		return nil, err
	}

	const detailQuery = `SELECT id, header_id, component_code, category, amount, installment_id
	FROM salary_details WHERE header_id = $1 ORDER BY category, component_code`
	if err := r.db.SelectContext(ctx, &header.Details, detailQuery, id); err != nil {
		return nil, fmt.Errorf("load salary details: %w", err)
	}
	return &header, nil
}

// GetLatest returns the highest-version header for an employee and period,
// or sql.ErrNoRows when none exists.
func (r *SalaryRepository) GetLatest(ctx context.Context, employeeID string, period models.PayPeriod) (*models.SalaryHeader, error) {
	query := fmt.Sprintf(`SELECT %s FROM salary_headers
	WHERE employee_id = $1 AND period = $2 ORDER BY version DESC LIMIT 1`, salaryHeaderColumns)
	var header models.SalaryHeader
	if err := r.db.GetContext(ctx, &header, query, employeeID, period); err != nil {
		return nil, err
	}
	return &header, nil
}

// ListByPeriod returns the latest version of every header in a period.
func (r *SalaryRepository) ListByPeriod(ctx context.Context, period models.PayPeriod) ([]models.SalaryHeader, error) {
	query := fmt.Sprintf(`SELECT %s FROM salary_headers h
	WHERE period = $1 AND version = (
		SELECT MAX(version) FROM salary_headers WHERE employee_id = h.employee_id AND period = h.period
	) ORDER BY employee_id`, salaryHeaderColumns)
	var headers []models.SalaryHeader
	if err := r.db.SelectContext(ctx, &headers, query, period); err != nil {
		return nil, fmt.Errorf("list salary headers for %s: %w", period, err)
	}
	return headers, nil
}

// ListPendingForApprover returns headers waiting on the given approver.
func (r *SalaryRepository) ListPendingForApprover(ctx context.Context, approverID string) ([]models.SalaryHeader, error) {
	query := fmt.Sprintf(`SELECT %s FROM salary_headers
	WHERE approval_status = $1 AND next_approver_id = $2 ORDER BY created_at`, salaryHeaderColumns)
	var headers []models.SalaryHeader
	if err := r.db.SelectContext(ctx, &headers, query, models.ApprovalStatusPending, approverID); err != nil {
		return nil, fmt.Errorf("list pending salary headers: %w", err)
	}
	return headers, nil
}

// UpdateApprovalState transitions a pending header, guarded by the level the
// caller observed. Zero rows affected means a concurrent transition won.
func (r *SalaryRepository) UpdateApprovalState(ctx context.Context, id string, expectedLevel int, state models.ApprovalState) error {
	const query = `UPDATE salary_headers SET
		approval_status = :approval_status,
		current_level = :current_level,
		next_approver_id = :next_approver_id,
		rejection_reason = :rejection_reason,
		approved_by = :approved_by
	WHERE id = :id AND approval_status = :expected_status AND current_level = :expected_level`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               id,
		"approval_status":  state.Status,
		"current_level":    state.CurrentLevel,
		"next_approver_id": state.NextApproverID,
		"rejection_reason": state.RejectionReason,
		"approved_by":      state.ApprovedBy,
		"expected_status":  models.ApprovalStatusPending,
		"expected_level":   expectedLevel,
	})
	if err != nil {
		return fmt.Errorf("update salary approval state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check salary approval update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
