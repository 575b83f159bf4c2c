package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

type loanStore interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id string) (*models.Loan, error)
	HasOpenLoan(ctx context.Context, employeeID string) (bool, error)
	UpdateApprovalState(ctx context.Context, id string, version int, state models.ApprovalState, active bool) error
	UpdateBalance(ctx context.Context, id string, version int, balance decimal.Decimal, active bool) error
	InsertInstallments(ctx context.Context, loanID string, installments []models.LoanInstallment) error
	ListInstallments(ctx context.Context, loanID string) ([]models.LoanInstallment, error)
	GetInstallment(ctx context.Context, id string) (*models.LoanInstallment, error)
	PostponeInstallment(ctx context.Context, id string, newDueDate time.Time) error
	CreatePostponement(ctx context.Context, req *models.LoanPostponement) error
	GetPostponement(ctx context.Context, id string) (*models.LoanPostponement, error)
	UpdatePostponementState(ctx context.Context, id string, expectedLevel int, state models.ApprovalState) error
}

// LoanService orchestrates loan submission, approval, repayment and
// postponement. Approval transitions delegate to the shared engine;
// installments exist only once the loan is finally approved.
type LoanService struct {
	loans     loanStore
	employees employeeDirectory
	scheduler *InstallmentScheduler
	engine    *ApprovalEngine
	publisher EventPublisher
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewLoanService constructs the service.
func NewLoanService(
	loans loanStore,
	employees employeeDirectory,
	scheduler *InstallmentScheduler,
	engine *ApprovalEngine,
	publisher EventPublisher,
	metrics *MetricsService,
	logger *zap.Logger,
) *LoanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NopEventPublisher{}
	}
	return &LoanService{
		loans:     loans,
		employees: employees,
		scheduler: scheduler,
		engine:    engine,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Submit validates and stores a new loan pending approval.
func (s *LoanService) Submit(ctx context.Context, employeeID string, principal decimal.Decimal, installmentCount int, firstInstallmentDate time.Time) (*models.Loan, error) {
	if !principal.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity, "loan principal must be positive")
	}
	if installmentCount < 1 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "installment count must be at least 1")
	}
	if firstInstallmentDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "first installment date is required")
	}

	profile, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("employee %s not found", employeeID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if !profile.Active() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "loans require an active employee")
	}

	open, err := s.loans.HasOpenLoan(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open loans")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee already has an open loan")
	}

	state, err := s.engine.Initialize(ctx, models.RequestTypeLoan, employeeID, profile.DepartmentID, profile.ProjectID)
	if err != nil {
		return nil, err
	}

	loan := &models.Loan{
		EmployeeID:           employeeID,
		Principal:            principal,
		InstallmentCount:     installmentCount,
		InstallmentAmount:    principal.DivRound(decimal.NewFromInt(int64(installmentCount)), moneyPlaces),
		RemainingBalance:     principal,
		FirstInstallmentDate: dateOnly(firstInstallmentDate),
		Active:               false,
		ApprovalState:        state,
	}
	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create loan")
	}

	s.emit(ctx, models.DomainEvent{
		Type:       models.EventLoanSubmitted,
		EmployeeID: employeeID,
		EntityID:   loan.ID,
		Amount:     &loan.Principal,
		Recipients: recipients(loan.NextApproverID),
		Payload:    map[string]interface{}{"installments": installmentCount},
	})
	return loan, nil
}

// Approve records an approval step; on reaching the terminal state the
// repayment schedule is materialized and the loan activated.
func (s *LoanService) Approve(ctx context.Context, loanID, actingUserID string) (*models.Loan, error) {
	return s.decide(ctx, loanID, actingUserID, "", true)
}

// Reject terminates a pending loan with a reason.
func (s *LoanService) Reject(ctx context.Context, loanID, actingUserID, reason string) (*models.Loan, error) {
	return s.decide(ctx, loanID, actingUserID, reason, false)
}

func (s *LoanService) decide(ctx context.Context, loanID, actingUserID, reason string, approve bool) (*models.Loan, error) {
	loan, err := s.decideOnce(ctx, loanID, actingUserID, reason, approve)
	if err == nil {
		return loan, nil
	}
	if errors.Is(err, appErrors.ErrConcurrentModification) {
		s.logger.Warn("loan decision conflict, retrying", zap.String("loan_id", loanID))
		return s.decideOnce(ctx, loanID, actingUserID, reason, approve)
	}
	return nil, err
}

func (s *LoanService) decideOnce(ctx context.Context, loanID, actingUserID, reason string, approve bool) (*models.Loan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "loan already decided")
	}
	if loan.CurrentLevel == nil {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
			fmt.Sprintf("pending loan %s has no current level", loanID))
	}

	var next models.ApprovalState
	if approve {
		if !s.engine.CanApprove(loan.ApprovalState, *loan.CurrentLevel, actingUserID) {
			return nil, appErrors.Clone(appErrors.ErrNotAuthorized,
				fmt.Sprintf("user %s cannot approve loan %s", actingUserID, loanID))
		}
		profile, err := s.employees.GetByID(ctx, loan.EmployeeID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
		}
		next, err = s.engine.Advance(ctx, models.RequestTypeLoan, *loan.CurrentLevel,
			actingUserID, loan.EmployeeID, profile.DepartmentID, profile.ProjectID)
		if err != nil {
			return nil, err
		}
	} else {
		next, err = s.engine.Reject(loan.ApprovalState, actingUserID, reason)
		if err != nil {
			return nil, err
		}
	}

	approvedNow := next.Status == models.ApprovalStatusApproved
	if err := s.loans.UpdateApprovalState(ctx, loan.ID, loan.Version, next, approvedNow); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "loan transitioned concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist loan state")
	}
	loan.ApprovalState = next
	loan.Version++
	loan.Active = approvedNow

	if s.metrics != nil {
		s.metrics.RecordApprovalTransition(models.RequestTypeLoan, next.Status)
	}

	switch next.Status {
	case models.ApprovalStatusApproved:
		installments, err := s.scheduler.Schedule(loan.Principal, loan.InstallmentCount, loan.FirstInstallmentDate)
		if err != nil {
			return nil, err
		}
		if err := s.loans.InsertInstallments(ctx, loan.ID, installments); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to materialize installments")
		}
		loan.Installments = installments
		s.emit(ctx, models.DomainEvent{
			Type:       models.EventLoanApproved,
			EmployeeID: loan.EmployeeID,
			EntityID:   loan.ID,
			Amount:     &loan.Principal,
			Recipients: []string{loan.EmployeeID},
		})
	case models.ApprovalStatusRejected:
		s.emit(ctx, models.DomainEvent{
			Type:       models.EventLoanRejected,
			EmployeeID: loan.EmployeeID,
			EntityID:   loan.ID,
			Recipients: []string{loan.EmployeeID},
			Payload:    map[string]interface{}{"reason": reason},
		})
	}

	return loan, nil
}

// RecordPayment applies a repayment against the remaining balance. Paying
// the balance down to zero deactivates the loan.
func (s *LoanService) RecordPayment(ctx context.Context, loanID string, amount decimal.Decimal) (*models.Loan, error) {
	loan, err := s.recordPaymentOnce(ctx, loanID, amount)
	if err == nil {
		return loan, nil
	}
	if errors.Is(err, appErrors.ErrConcurrentModification) {
		s.logger.Warn("loan payment conflict, retrying", zap.String("loan_id", loanID))
		return s.recordPaymentOnce(ctx, loanID, amount)
	}
	return nil, err
}

func (s *LoanService) recordPaymentOnce(ctx context.Context, loanID string, amount decimal.Decimal) (*models.Loan, error) {
	if !amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "payment amount must be positive")
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != models.ApprovalStatusApproved || !loan.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payments require an approved active loan")
	}

	balance := loan.RemainingBalance.Sub(amount)
	if balance.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrOverpayment,
			fmt.Sprintf("payment %s exceeds remaining balance %s", amount, loan.RemainingBalance))
	}

	active := balance.IsPositive()
	if err := s.loans.UpdateBalance(ctx, loan.ID, loan.Version, balance, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "loan modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update balance")
	}
	loan.RemainingBalance = balance
	loan.Active = active
	loan.Version++

	if s.metrics != nil {
		s.metrics.RecordLoanPayment()
	}
	s.emit(ctx, models.DomainEvent{
		Type:       models.EventPaymentRecorded,
		EmployeeID: loan.EmployeeID,
		EntityID:   loan.ID,
		Amount:     &amount,
		Recipients: []string{loan.EmployeeID},
		Payload:    map[string]interface{}{"remainingBalance": balance.String()},
	})
	return loan, nil
}

// Postpone files a postponement request for one unpaid installment. The
// request runs its own approval chain; the installment is only re-dated
// once that chain approves.
func (s *LoanService) Postpone(ctx context.Context, loanID, installmentID string, newDueDate time.Time, reason string) (*models.LoanPostponement, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "postponement reason is required")
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != models.ApprovalStatusApproved || !loan.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "postponements require an approved active loan")
	}

	installment, err := s.loans.GetInstallment(ctx, installmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load installment")
	}
	if installment.LoanID != loan.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "installment does not belong to loan")
	}
	if installment.PaymentStatus != models.InstallmentUnpaid {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only unpaid installments can be postponed")
	}
	newDueDate = dateOnly(newDueDate)
	if !newDueDate.After(installment.DueDate) {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "new due date must be after the current due date")
	}

	profile, err := s.employees.GetByID(ctx, loan.EmployeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	state, err := s.engine.Initialize(ctx, models.RequestTypeLoanPostponement, loan.EmployeeID, profile.DepartmentID, profile.ProjectID)
	if err != nil {
		return nil, err
	}

	req := &models.LoanPostponement{
		LoanID:         loan.ID,
		InstallmentID:  installment.ID,
		CurrentDueDate: installment.DueDate,
		NewDueDate:     newDueDate,
		Reason:         reason,
		ApprovalState:  state,
	}
	if err := s.loans.CreatePostponement(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create postponement")
	}
	return req, nil
}

// DecidePostponement approves or rejects a pending postponement request.
// Approval re-dates the installment and marks it Postponed.
func (s *LoanService) DecidePostponement(ctx context.Context, requestID, actingUserID, reason string, approve bool) (*models.LoanPostponement, error) {
	req, err := s.loans.GetPostponement(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postponement")
	}
	if req.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "postponement already decided")
	}
	if req.CurrentLevel == nil {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity, "pending postponement has no current level")
	}

	loan, err := s.getLoan(ctx, req.LoanID)
	if err != nil {
		return nil, err
	}

	var next models.ApprovalState
	if approve {
		if !s.engine.CanApprove(req.ApprovalState, *req.CurrentLevel, actingUserID) {
			return nil, appErrors.Clone(appErrors.ErrNotAuthorized,
				fmt.Sprintf("user %s cannot approve postponement %s", actingUserID, requestID))
		}
		profile, err := s.employees.GetByID(ctx, loan.EmployeeID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
		}
		next, err = s.engine.Advance(ctx, models.RequestTypeLoanPostponement, *req.CurrentLevel,
			actingUserID, loan.EmployeeID, profile.DepartmentID, profile.ProjectID)
		if err != nil {
			return nil, err
		}
	} else {
		next, err = s.engine.Reject(req.ApprovalState, actingUserID, reason)
		if err != nil {
			return nil, err
		}
	}

	if err := s.loans.UpdatePostponementState(ctx, req.ID, *req.CurrentLevel, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "postponement transitioned concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist postponement state")
	}
	req.ApprovalState = next

	if next.Status == models.ApprovalStatusApproved {
		if err := s.loans.PostponeInstallment(ctx, req.InstallmentID, req.NewDueDate); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "installment is no longer unpaid")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to postpone installment")
		}
		s.emit(ctx, models.DomainEvent{
			Type:       models.EventLoanPostponed,
			EmployeeID: loan.EmployeeID,
			EntityID:   req.ID,
			Recipients: []string{loan.EmployeeID},
			Payload: map[string]interface{}{
				"installmentId": req.InstallmentID,
				"newDueDate":    req.NewDueDate.Format("2006-01-02"),
			},
		})
	}

	return req, nil
}

// Get returns a loan with its schedule.
func (s *LoanService) Get(ctx context.Context, loanID string) (*models.Loan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	installments, err := s.loans.ListInstallments(ctx, loanID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load installments")
	}
	loan.Installments = installments
	return loan, nil
}

func (s *LoanService) getLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loan")
	}
	return loan, nil
}

func (s *LoanService) emit(ctx context.Context, event models.DomainEvent) {
	event.OccurredAt = time.Now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish domain event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
