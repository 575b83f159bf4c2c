package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmploymentStatus is the directory-level lifecycle state of an employee.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "ACTIVE"
	EmploymentTerminated EmploymentStatus = "TERMINATED"
)

// EmployeeProfile is the directory view the engine consumes. The employee
// directory itself is an external collaborator; this is read-only here.
type EmployeeProfile struct {
	ID              string           `db:"id" json:"id"`
	FullName        string           `db:"full_name" json:"fullName"`
	MonthlySalary   decimal.Decimal  `db:"monthly_salary" json:"monthlySalary"`
	Category        string           `db:"category" json:"category"`
	HireDate        time.Time        `db:"hire_date" json:"hireDate"`
	TerminationDate *time.Time       `db:"termination_date" json:"terminationDate,omitempty"`
	DepartmentID    *string          `db:"department_id" json:"departmentId,omitempty"`
	ProjectID       *string          `db:"project_id" json:"projectId,omitempty"`
	ManagerID       *string          `db:"manager_id" json:"managerId,omitempty"`
	Status          EmploymentStatus `db:"status" json:"status"`
}

// Active reports whether payroll and loans may be processed for the employee.
func (e EmployeeProfile) Active() bool {
	return e.Status == EmploymentActive
}

// AttendanceSummary carries the closed, validated monthly aggregates the
// attendance subsystem publishes per employee and period.
type AttendanceSummary struct {
	EmployeeID          string          `db:"employee_id" json:"employeeId"`
	Period              PayPeriod       `db:"period" json:"period"`
	OvertimeAmount      decimal.Decimal `db:"overtime_amount" json:"overtimeAmount"`
	LateHours           decimal.Decimal `db:"late_hours" json:"lateHours"`
	EarlyDepartureHours decimal.Decimal `db:"early_departure_hours" json:"earlyDepartureHours"`
	ShortfallHours      decimal.Decimal `db:"shortfall_hours" json:"shortfallHours"`
}
