package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/stratumhq/sitepay-api/internal/models"
)

// LoanRepository persists loans, their installments and postponement
// requests. Installments are composition-owned by their loan.
type LoanRepository struct {
	db *sqlx.DB
}

// NewLoanRepository constructs the repository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `id, employee_id, principal, installment_count, installment_amount, remaining_balance,
       first_installment_date, active, version, approval_status, current_level,
       next_approver_id, rejection_reason, approved_by, created_at`

// Create inserts a submitted loan.
func (r *LoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	if loan.ID == "" {
		loan.ID = uuid.NewString()
	}
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = time.Now().UTC()
	}
	if loan.Version == 0 {
		loan.Version = 1
	}
	const query = `INSERT INTO loans
	(id, employee_id, principal, installment_count, installment_amount, remaining_balance,
	 first_installment_date, active, version, approval_status, current_level, next_approver_id,
	 rejection_reason, approved_by, created_at)
	VALUES (:id, :employee_id, :principal, :installment_count, :installment_amount, :remaining_balance,
	 :first_installment_date, :active, :version, :approval_status, :current_level, :next_approver_id,
	 :rejection_reason, :approved_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, loan); err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

// GetByID fetches a loan; installments are loaded separately.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*models.Loan, error) {
	query := fmt.Sprintf(`SELECT %s FROM loans WHERE id = $1`, loanColumns)
	var loan models.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, err
	}
	return &loan, nil
}

// HasOpenLoan reports whether the employee already has a loan that is
// either awaiting approval or approved and still active.
func (r *LoanRepository) HasOpenLoan(ctx context.Context, employeeID string) (bool, error) {
	const query = `SELECT COUNT(1) FROM loans
	WHERE employee_id = $1 AND (approval_status = $2 OR (approval_status = $3 AND active = TRUE))`
	var count int
	if err := r.db.GetContext(ctx, &count, query, employeeID,
		models.ApprovalStatusPending, models.ApprovalStatusApproved); err != nil {
		return false, fmt.Errorf("count open loans: %w", err)
	}
	return count > 0, nil
}

// UpdateApprovalState transitions a loan's approval state under optimistic
// locking. Zero affected rows means a concurrent writer bumped the version.
func (r *LoanRepository) UpdateApprovalState(ctx context.Context, id string, version int, state models.ApprovalState, active bool) error {
	const query = `UPDATE loans SET
		approval_status = :approval_status,
		current_level = :current_level,
		next_approver_id = :next_approver_id,
		rejection_reason = :rejection_reason,
		approved_by = :approved_by,
		active = :active,
		version = version + 1
	WHERE id = :id AND version = :version`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               id,
		"version":          version,
		"approval_status":  state.Status,
		"current_level":    state.CurrentLevel,
		"next_approver_id": state.NextApproverID,
		"rejection_reason": state.RejectionReason,
		"approved_by":      state.ApprovedBy,
		"active":           active,
	})
	if err != nil {
		return fmt.Errorf("update loan approval state: %w", err)
	}
	return rowsOrNoRows(result)
}

// UpdateBalance writes a new remaining balance under optimistic locking.
func (r *LoanRepository) UpdateBalance(ctx context.Context, id string, version int, balance decimal.Decimal, active bool) error {
	const query = `UPDATE loans SET remaining_balance = $1, active = $2, version = version + 1
	WHERE id = $3 AND version = $4`
	result, err := r.db.ExecContext(ctx, query, balance, active, id, version)
	if err != nil {
		return fmt.Errorf("update loan balance: %w", err)
	}
	return rowsOrNoRows(result)
}

// InsertInstallments materializes the schedule on final approval.
func (r *LoanRepository) InsertInstallments(ctx context.Context, loanID string, installments []models.LoanInstallment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin installments tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO loan_installments (id, loan_id, sequence_no, due_date, amount, payment_status)
	VALUES (:id, :loan_id, :sequence_no, :due_date, :amount, :payment_status)`
	for i := range installments {
		installment := &installments[i]
		if installment.ID == "" {
			installment.ID = uuid.NewString()
		}
		installment.LoanID = loanID
		if _, err := tx.NamedExecContext(ctx, query, installment); err != nil {
			return fmt.Errorf("insert installment %d: %w", installment.SequenceNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit installments tx: %w", err)
	}
	return nil
}

// ListInstallments returns a loan's schedule ordered by sequence.
func (r *LoanRepository) ListInstallments(ctx context.Context, loanID string) ([]models.LoanInstallment, error) {
	const query = `SELECT id, loan_id, sequence_no, due_date, amount, payment_status
	FROM loan_installments WHERE loan_id = $1 ORDER BY sequence_no`
	var installments []models.LoanInstallment
	if err := r.db.SelectContext(ctx, &installments, query, loanID); err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return installments, nil
}

// GetInstallment fetches one installment by id.
func (r *LoanRepository) GetInstallment(ctx context.Context, id string) (*models.LoanInstallment, error) {
	const query = `SELECT id, loan_id, sequence_no, due_date, amount, payment_status
	FROM loan_installments WHERE id = $1`
	var installment models.LoanInstallment
	if err := r.db.GetContext(ctx, &installment, query, id); err != nil {
		return nil, err
	}
	return &installment, nil
}

// ListUnpaidDueInPeriod returns unpaid installments of approved active loans
// whose due date falls in the pay period. Payroll turns these into
// deduction lines.
func (r *LoanRepository) ListUnpaidDueInPeriod(ctx context.Context, employeeID string, period models.PayPeriod) ([]models.LoanInstallment, error) {
	const query = `SELECT i.id, i.loan_id, i.sequence_no, i.due_date, i.amount, i.payment_status
	FROM loan_installments i
	JOIN loans l ON l.id = i.loan_id
	WHERE l.employee_id = $1 AND l.active = TRUE AND l.approval_status = $2
	  AND i.payment_status = $3 AND i.due_date >= $4 AND i.due_date <= $5
	ORDER BY i.due_date, i.sequence_no`
	var installments []models.LoanInstallment
	if err := r.db.SelectContext(ctx, &installments, query, employeeID,
		models.ApprovalStatusApproved, models.InstallmentUnpaid, period.Start(), period.End()); err != nil {
		return nil, fmt.Errorf("list unpaid installments for %s: %w", period, err)
	}
	return installments, nil
}

// SettleInstallments flips installments to Paid and applies their amounts to
// the owning loans in one transaction, once the covering payroll reaches
// final approval. A loan whose balance reaches zero is deactivated.
// Already-paid rows are left untouched.
func (r *LoanRepository) SettleInstallments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settle tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sumQuery, sumArgs, err := sqlx.In(`SELECT loan_id, SUM(amount) AS total FROM loan_installments
	WHERE id IN (?) AND payment_status <> ? GROUP BY loan_id`, ids, models.InstallmentPaid)
	if err != nil {
		return fmt.Errorf("build settle sum query: %w", err)
	}
	var totals []struct {
		LoanID string          `db:"loan_id"`
		Total  decimal.Decimal `db:"total"`
	}
	if err := tx.SelectContext(ctx, &totals, tx.Rebind(sumQuery), sumArgs...); err != nil {
		return fmt.Errorf("sum settled installments: %w", err)
	}
	if len(totals) == 0 {
		return tx.Commit()
	}

	paidQuery, paidArgs, err := sqlx.In(`UPDATE loan_installments SET payment_status = ?
	WHERE id IN (?) AND payment_status <> ?`, models.InstallmentPaid, ids, models.InstallmentPaid)
	if err != nil {
		return fmt.Errorf("build mark-paid query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(paidQuery), paidArgs...); err != nil {
		return fmt.Errorf("mark installments paid: %w", err)
	}

	const loanQuery = `UPDATE loans SET
		remaining_balance = GREATEST(remaining_balance - $1, 0),
		active = remaining_balance - $1 > 0,
		version = version + 1
	WHERE id = $2`
	for _, total := range totals {
		if _, err := tx.ExecContext(ctx, loanQuery, total.Total, total.LoanID); err != nil {
			return fmt.Errorf("apply settlement to loan %s: %w", total.LoanID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settle tx: %w", err)
	}
	return nil
}

// PostponeInstallment re-dates a pending installment and marks it Postponed.
func (r *LoanRepository) PostponeInstallment(ctx context.Context, id string, newDueDate time.Time) error {
	const query = `UPDATE loan_installments SET due_date = $1, payment_status = $2
	WHERE id = $3 AND payment_status = $4`
	result, err := r.db.ExecContext(ctx, query, newDueDate, models.InstallmentPostponed, id, models.InstallmentUnpaid)
	if err != nil {
		return fmt.Errorf("postpone installment: %w", err)
	}
	return rowsOrNoRows(result)
}

// CreatePostponement stores a postponement request.
func (r *LoanRepository) CreatePostponement(ctx context.Context, req *models.LoanPostponement) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO loan_postponements
	(id, loan_id, installment_id, current_due_date, new_due_date, reason,
	 approval_status, current_level, next_approver_id, rejection_reason, approved_by, created_at)
	VALUES (:id, :loan_id, :installment_id, :current_due_date, :new_due_date, :reason,
	 :approval_status, :current_level, :next_approver_id, :rejection_reason, :approved_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create postponement: %w", err)
	}
	return nil
}

// GetPostponement fetches one postponement request.
func (r *LoanRepository) GetPostponement(ctx context.Context, id string) (*models.LoanPostponement, error) {
	const query = `SELECT id, loan_id, installment_id, current_due_date, new_due_date, reason,
	       approval_status, current_level, next_approver_id, rejection_reason, approved_by, created_at
	FROM loan_postponements WHERE id = $1`
	var req models.LoanPostponement
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdatePostponementState transitions a pending postponement request.
func (r *LoanRepository) UpdatePostponementState(ctx context.Context, id string, expectedLevel int, state models.ApprovalState) error {
	const query = `UPDATE loan_postponements SET
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
		return fmt.Errorf("update postponement state: %w", err)
	}
	return rowsOrNoRows(result)
}

func rowsOrNoRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
