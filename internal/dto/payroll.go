package dto

// CalculatePayrollRequest asks for one employee's payroll for a period.
type CalculatePayrollRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Period     string `json:"period" validate:"required"`
}

// RunPayrollRequest kicks off the batch run for a whole period.
type RunPayrollRequest struct {
	Period string `json:"period" validate:"required"`
}

// ApprovalDecisionRequest carries an approve action on a pending entity.
type ApprovalDecisionRequest struct {
	Note string `json:"note"`
}

// RejectionRequest carries a reject action with its mandatory reason.
type RejectionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// PayrollRunSummary reports the outcome of a batch run kickoff.
type PayrollRunSummary struct {
	Period   string `json:"period"`
	Enqueued int    `json:"enqueued"`
	Skipped  int    `json:"skipped"`
}
