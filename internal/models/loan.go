package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus tracks repayment progress of a single installment.
type InstallmentStatus string

const (
	InstallmentUnpaid    InstallmentStatus = "UNPAID"
	InstallmentPaid      InstallmentStatus = "PAID"
	InstallmentPostponed InstallmentStatus = "POSTPONED"
)

// Loan is an employee loan. Installments are materialized only when the
// loan reaches final approval; Version backs optimistic locking.
type Loan struct {
	ID                   string          `db:"id" json:"id"`
	EmployeeID           string          `db:"employee_id" json:"employeeId"`
	Principal            decimal.Decimal `db:"principal" json:"principal"`
	InstallmentCount     int             `db:"installment_count" json:"installmentCount"`
	InstallmentAmount    decimal.Decimal `db:"installment_amount" json:"installmentAmount"`
	RemainingBalance     decimal.Decimal `db:"remaining_balance" json:"remainingBalance"`
	FirstInstallmentDate time.Time       `db:"first_installment_date" json:"firstInstallmentDate"`
	Active               bool            `db:"active" json:"active"`
	Version              int             `db:"version" json:"version"`

	ApprovalState

	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Installments []LoanInstallment `db:"-" json:"installments,omitempty"`
}

// LoanInstallment is one scheduled repayment unit, owned by exactly one loan.
// The amounts of a loan's installments always sum to its principal exactly.
type LoanInstallment struct {
	ID            string            `db:"id" json:"id"`
	LoanID        string            `db:"loan_id" json:"loanId"`
	SequenceNo    int               `db:"sequence_no" json:"sequenceNo"`
	DueDate       time.Time         `db:"due_date" json:"dueDate"`
	Amount        decimal.Decimal   `db:"amount" json:"amount"`
	PaymentStatus InstallmentStatus `db:"payment_status" json:"paymentStatus"`
}

// LoanPostponement asks to move one installment's due date. It carries its
// own approval state; on approval the installment is re-dated and marked
// Postponed.
type LoanPostponement struct {
	ID             string    `db:"id" json:"id"`
	LoanID         string    `db:"loan_id" json:"loanId"`
	InstallmentID  string    `db:"installment_id" json:"installmentId"`
	CurrentDueDate time.Time `db:"current_due_date" json:"currentDueDate"`
	NewDueDate     time.Time `db:"new_due_date" json:"newDueDate"`
	Reason         string    `db:"reason" json:"reason"`

	ApprovalState

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
