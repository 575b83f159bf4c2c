package dto

import "github.com/shopspring/decimal"

// SubmitLoanRequest creates a new loan pending approval.
type SubmitLoanRequest struct {
	EmployeeID           string          `json:"employeeId" validate:"required"`
	Principal            decimal.Decimal `json:"principal" validate:"required"`
	InstallmentCount     int             `json:"installmentCount" validate:"required,min=1"`
	FirstInstallmentDate string          `json:"firstInstallmentDate" validate:"required"`
}

// RecordPaymentRequest applies a repayment against a loan balance.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// PostponeInstallmentRequest moves one installment's due date, subject to
// its own approval chain.
type PostponeInstallmentRequest struct {
	InstallmentID string `json:"installmentId" validate:"required"`
	NewDueDate    string `json:"newDueDate" validate:"required"`
	Reason        string `json:"reason" validate:"required"`
}
