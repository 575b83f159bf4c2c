package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/stratumhq/sitepay-api/internal/models"
)

// EmployeeRepository reads the employee directory. The directory is owned
// by an external subsystem; only lookups live here.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, full_name, monthly_salary, category, hire_date, termination_date, department_id, project_id, manager_id, status`

// GetByID fetches one employee profile.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*models.EmployeeProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE id = $1`, employeeColumns)
	var profile models.EmployeeProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProjectManager returns the manager user assigned to a project.
func (r *EmployeeRepository) GetProjectManager(ctx context.Context, projectID string) (string, error) {
	const query = `SELECT manager_id FROM projects WHERE id = $1`
	var managerID string
	if err := r.db.GetContext(ctx, &managerID, query, projectID); err != nil {
		return "", err
	}
	return managerID, nil
}

// ListActive returns every employee eligible for a payroll run.
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]models.EmployeeProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE status = $1 ORDER BY id`, employeeColumns)
	var profiles []models.EmployeeProfile
	if err := r.db.SelectContext(ctx, &profiles, query, models.EmploymentActive); err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return profiles, nil
}
