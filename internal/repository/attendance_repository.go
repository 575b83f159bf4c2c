package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/stratumhq/sitepay-api/internal/models"
)

// AttendanceRepository reads the closed monthly aggregates published by the
// attendance subsystem. Check-in geometry and validation are out of scope.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// GetSummary returns the aggregate for an employee and period. A missing
// row is a zero summary, not an error: months without incidents simply have
// no aggregate published.
func (r *AttendanceRepository) GetSummary(ctx context.Context, employeeID string, period models.PayPeriod) (*models.AttendanceSummary, error) {
	const query = `SELECT employee_id, period, overtime_amount, late_hours, early_departure_hours, shortfall_hours
	FROM attendance_summaries WHERE employee_id = $1 AND period = $2`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, employeeID, period); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AttendanceSummary{EmployeeID: employeeID, Period: period}, nil
		}
		return nil, err
	}
	return &summary, nil
}
