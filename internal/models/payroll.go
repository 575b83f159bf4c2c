package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DetailCategory splits salary lines into allowances and deductions.
type DetailCategory string

const (
	CategoryAllowance DetailCategory = "ALLOWANCE"
	CategoryDeduction DetailCategory = "DEDUCTION"
)

// Well-known salary component codes. Breakdown components come from
// configuration; the rest are produced by the calculation engine.
const (
	ComponentBasic           = "BASIC"
	ComponentOvertime        = "OVERTIME"
	ComponentLateArrival     = "LATE_ARRIVAL"
	ComponentEarlyDeparture  = "EARLY_DEPARTURE"
	ComponentHourShortfall   = "HOUR_SHORTFALL"
	ComponentLoanInstallment = "LOAN_INSTALLMENT"
)

// SalaryHeader is one versioned payroll result for an employee and period.
// Approved headers are immutable; recalculation creates the next version.
type SalaryHeader struct {
	ID              string          `db:"id" json:"id"`
	EmployeeID      string          `db:"employee_id" json:"employeeId"`
	Period          PayPeriod       `db:"period" json:"period"`
	Version         int             `db:"version" json:"version"`
	DaysWorked      int             `db:"days_worked" json:"daysWorked"`
	GrossSalary     decimal.Decimal `db:"gross_salary" json:"grossSalary"`
	TotalAllowances decimal.Decimal `db:"total_allowances" json:"totalAllowances"`
	TotalDeductions decimal.Decimal `db:"total_deductions" json:"totalDeductions"`
	NetSalary       decimal.Decimal `db:"net_salary" json:"netSalary"`
	NegativeNet     bool            `db:"negative_net" json:"negativeNet"`

	ApprovalState

	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Details []SalaryDetail `db:"-" json:"details,omitempty"`
}

// SalaryDetail is one component line owned by a salary header. Loan
// deduction lines carry the id of the installment they withhold; settlement
// on final approval targets exactly those installments.
type SalaryDetail struct {
	ID            string          `db:"id" json:"id"`
	HeaderID      string          `db:"header_id" json:"headerId"`
	ComponentCode string          `db:"component_code" json:"componentCode"`
	Category      DetailCategory  `db:"category" json:"category"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	InstallmentID *string         `db:"installment_id" json:"installmentId,omitempty"`
}

// ComponentRule is one configured percentage split for an employee category.
type ComponentRule struct {
	Category      string          `db:"category" json:"category"`
	ComponentCode string          `db:"component_code" json:"componentCode"`
	Percentage    decimal.Decimal `db:"percentage" json:"percentage"`
	SortOrder     int             `db:"sort_order" json:"sortOrder"`
}
