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

// salaryDaysDivisor is the fixed pro-ration divisor. Gross salary is always
// monthly salary * days worked / 30 regardless of the calendar month's
// actual length; long-standing business rule reproduced for compatibility
// with historical payslips.
const salaryDaysDivisor = 30

type employeeDirectory interface {
	GetByID(ctx context.Context, id string) (*models.EmployeeProfile, error)
	ListActive(ctx context.Context) ([]models.EmployeeProfile, error)
}

type attendanceProvider interface {
	GetSummary(ctx context.Context, employeeID string, period models.PayPeriod) (*models.AttendanceSummary, error)
}

type componentRuleStore interface {
	ListByCategory(ctx context.Context, category string) ([]models.ComponentRule, error)
}

type salaryStore interface {
	CreateWithDetails(ctx context.Context, header *models.SalaryHeader) error
	GetByID(ctx context.Context, id string) (*models.SalaryHeader, error)
	GetLatest(ctx context.Context, employeeID string, period models.PayPeriod) (*models.SalaryHeader, error)
	ListByPeriod(ctx context.Context, period models.PayPeriod) ([]models.SalaryHeader, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]models.SalaryHeader, error)
	UpdateApprovalState(ctx context.Context, id string, expectedLevel int, state models.ApprovalState) error
}

type installmentSource interface {
	ListUnpaidDueInPeriod(ctx context.Context, employeeID string, period models.PayPeriod) ([]models.LoanInstallment, error)
	SettleInstallments(ctx context.Context, ids []string) error
}

// PayrollService computes per-period salaries and drives their approval.
type PayrollService struct {
	employees  employeeDirectory
	attendance attendanceProvider
	rules      componentRuleStore
	salaries   salaryStore
	loans      installmentSource
	engine     *ApprovalEngine
	publisher  EventPublisher
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger

	allowNegativeNet     bool
	requiredMonthlyHours int
}

// PayrollServiceConfig carries the calculation tunables.
type PayrollServiceConfig struct {
	AllowNegativeNet     bool
	RequiredMonthlyHours int
}

// NewPayrollService constructs the service.
func NewPayrollService(
	employees employeeDirectory,
	attendance attendanceProvider,
	rules componentRuleStore,
	salaries salaryStore,
	loans installmentSource,
	engine *ApprovalEngine,
	publisher EventPublisher,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg PayrollServiceConfig,
) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NopEventPublisher{}
	}
	if cfg.RequiredMonthlyHours <= 0 {
		cfg.RequiredMonthlyHours = 240
	}
	return &PayrollService{
		employees:            employees,
		attendance:           attendance,
		rules:                rules,
		salaries:             salaries,
		loans:                loans,
		engine:               engine,
		publisher:            publisher,
		cache:                cache,
		metrics:              metrics,
		logger:               logger,
		allowNegativeNet:     cfg.AllowNegativeNet,
		requiredMonthlyHours: cfg.RequiredMonthlyHours,
	}
}

// Calculate computes the salary header for one employee and period and
// kicks off its approval. Re-running for a period that already has a header
// creates the next version; approved history is never mutated.
func (s *PayrollService) Calculate(ctx context.Context, employeeID string, period models.PayPeriod) (*models.SalaryHeader, error) {
	header, err := s.calculateOnce(ctx, employeeID, period)
	if err == nil {
		return header, nil
	}
	// A uniqueness conflict means a concurrent calculation claimed the same
	// version; re-read and retry the whole read-modify-write once.
	if errors.Is(err, appErrors.ErrConcurrentModification) {
		s.logger.Warn("payroll calculation version conflict, retrying",
			zap.String("employee_id", employeeID), zap.String("period", period.String()))
		return s.calculateOnce(ctx, employeeID, period)
	}
	return nil, err
}

func (s *PayrollService) calculateOnce(ctx context.Context, employeeID string, period models.PayPeriod) (*models.SalaryHeader, error) {
	profile, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("employee %s not found", employeeID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	version := 1
	if latest, err := s.salaries.GetLatest(ctx, employeeID, period); err == nil {
		version = latest.Version + 1
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prior salary header")
	}

	daysWorked, err := s.proratedDays(profile, period)
	if err != nil {
		return nil, err
	}
	gross := profile.MonthlySalary.
		Mul(decimal.NewFromInt(int64(daysWorked))).
		DivRound(decimal.NewFromInt(salaryDaysDivisor), moneyPlaces)

	details, err := s.breakdown(ctx, profile, gross)
	if err != nil {
		return nil, err
	}

	summary, err := s.attendance.GetSummary(ctx, employeeID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance summary")
	}
	details = append(details, s.attendanceLines(profile, summary)...)

	installments, err := s.loans.ListUnpaidDueInPeriod(ctx, employeeID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load due installments")
	}
	for i := range installments {
		details = append(details, models.SalaryDetail{
			ComponentCode: models.ComponentLoanInstallment,
			Category:      models.CategoryDeduction,
			Amount:        installments[i].Amount,
			InstallmentID: &installments[i].ID,
		})
	}

	totalAllowances := decimal.Zero
	totalDeductions := decimal.Zero
	for _, detail := range details {
		if detail.Category == models.CategoryAllowance {
			totalAllowances = totalAllowances.Add(detail.Amount)
		} else {
			totalDeductions = totalDeductions.Add(detail.Amount)
		}
	}
	net := totalAllowances.Sub(totalDeductions)

	negativeNet := net.IsNegative()
	if negativeNet {
		if !s.allowNegativeNet {
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
				fmt.Sprintf("net salary for employee %s in %s is negative", employeeID, period))
		}
		s.logger.Warn("negative net salary flagged",
			zap.String("employee_id", employeeID),
			zap.String("period", period.String()),
			zap.String("net", net.String()))
	}

	state, err := s.engine.Initialize(ctx, models.RequestTypePayroll, employeeID, profile.DepartmentID, profile.ProjectID)
	if err != nil {
		return nil, err
	}

	header := &models.SalaryHeader{
		EmployeeID:      employeeID,
		Period:          period,
		Version:         version,
		DaysWorked:      daysWorked,
		GrossSalary:     gross,
		TotalAllowances: totalAllowances,
		TotalDeductions: totalDeductions,
		NetSalary:       net,
		NegativeNet:     negativeNet,
		ApprovalState:   state,
		Details:         details,
	}
	if err := s.salaries.CreateWithDetails(ctx, header); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPayrollCalculation(negativeNet)
	}
	s.emit(ctx, models.DomainEvent{
		Type:       models.EventPayrollSubmitted,
		EmployeeID: employeeID,
		EntityID:   header.ID,
		Amount:     &header.NetSalary,
		Recipients: recipients(header.NextApproverID),
		Payload: map[string]interface{}{
			"period":      period.String(),
			"version":     version,
			"negativeNet": negativeNet,
		},
	})
	s.invalidateRegister(ctx, period)

	return header, nil
}

// proratedDays computes the days-worked figure for the period. Employment
// covering the whole period counts the full 30 divisor days, so the calendar
// length of the month never changes a full salary. Partial months count
// inclusive calendar days clipped to the employment window. Inverted windows
// (termination before hire, hire after the period) are rejected outright;
// silently returning zero or a negative gross salary hid real data
// corruption in the past.
func (s *PayrollService) proratedDays(profile *models.EmployeeProfile, period models.PayPeriod) (int, error) {
	start := dateOnly(profile.HireDate)
	periodStart := period.Start()
	fullFromStart := !start.After(periodStart)
	if start.Before(periodStart) {
		start = periodStart
	}

	end := period.End()
	fullToEnd := true
	if profile.TerminationDate != nil {
		if termination := dateOnly(*profile.TerminationDate); termination.Before(end) {
			end = termination
			fullToEnd = false
		}
	}

	if end.Before(start) {
		return 0, appErrors.Clone(appErrors.ErrDataIntegrity,
			fmt.Sprintf("employee %s has no working days in %s: effective end precedes effective start", profile.ID, period))
	}

	if fullFromStart && fullToEnd {
		return salaryDaysDivisor, nil
	}

	return int(end.Sub(start).Hours()/24) + 1, nil
}

// breakdown splits gross salary into the category's configured percentage
// components. Categories without configuration fall back to a single basic
// line for the full gross; this is an expected setup state, not an error.
func (s *PayrollService) breakdown(ctx context.Context, profile *models.EmployeeProfile, gross decimal.Decimal) ([]models.SalaryDetail, error) {
	rules, err := s.rules.ListByCategory(ctx, profile.Category)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component rules")
	}

	if len(rules) == 0 {
		s.logger.Info("no salary breakdown configured, using single basic component",
			zap.String("employee_id", profile.ID),
			zap.String("category", profile.Category))
		return []models.SalaryDetail{{
			ComponentCode: models.ComponentBasic,
			Category:      models.CategoryAllowance,
			Amount:        gross,
		}}, nil
	}

	details := make([]models.SalaryDetail, 0, len(rules))
	for _, rule := range rules {
		details = append(details, models.SalaryDetail{
			ComponentCode: rule.ComponentCode,
			Category:      models.CategoryAllowance,
			Amount:        gross.Mul(rule.Percentage).Round(moneyPlaces),
		})
	}
	return details, nil
}

// attendanceLines prices the period's attendance aggregates. Deductions are
// already aggregated monthly by the attendance subsystem, so each type
// yields at most one line and duplicate postings cannot occur.
func (s *PayrollService) attendanceLines(profile *models.EmployeeProfile, summary *models.AttendanceSummary) []models.SalaryDetail {
	var lines []models.SalaryDetail

	if summary.OvertimeAmount.IsPositive() {
		lines = append(lines, models.SalaryDetail{
			ComponentCode: models.ComponentOvertime,
			Category:      models.CategoryAllowance,
			Amount:        summary.OvertimeAmount.Round(moneyPlaces),
		})
	}

	hourlyRate := profile.MonthlySalary.DivRound(decimal.NewFromInt(int64(s.requiredMonthlyHours)), moneyPlaces)
	deductions := []struct {
		code  string
		hours decimal.Decimal
	}{
		{models.ComponentLateArrival, summary.LateHours},
		{models.ComponentEarlyDeparture, summary.EarlyDepartureHours},
		{models.ComponentHourShortfall, summary.ShortfallHours},
	}
	for _, d := range deductions {
		if !d.hours.IsPositive() {
			continue
		}
		lines = append(lines, models.SalaryDetail{
			ComponentCode: d.code,
			Category:      models.CategoryDeduction,
			Amount:        d.hours.Mul(hourlyRate).Round(moneyPlaces),
		})
	}
	return lines
}

// Approve records the acting user's approval, advancing the chain or
// finalizing the header. Loan installments deducted by this payroll are
// marked Paid only on the terminal approval; while payroll is pending the
// deduction is not considered collected.
func (s *PayrollService) Approve(ctx context.Context, headerID, actingUserID string) (*models.SalaryHeader, error) {
	return s.decide(ctx, headerID, actingUserID, "", true)
}

// RejectHeader terminates a pending header with a reason.
func (s *PayrollService) RejectHeader(ctx context.Context, headerID, actingUserID, reason string) (*models.SalaryHeader, error) {
	return s.decide(ctx, headerID, actingUserID, reason, false)
}

func (s *PayrollService) decide(ctx context.Context, headerID, actingUserID, reason string, approve bool) (*models.SalaryHeader, error) {
	header, err := s.decideOnce(ctx, headerID, actingUserID, reason, approve)
	if err == nil {
		return header, nil
	}
	if errors.Is(err, appErrors.ErrConcurrentModification) {
		s.logger.Warn("payroll approval conflict, retrying",
			zap.String("header_id", headerID), zap.String("acting_user", actingUserID))
		return s.decideOnce(ctx, headerID, actingUserID, reason, approve)
	}
	return nil, err
}

func (s *PayrollService) decideOnce(ctx context.Context, headerID, actingUserID, reason string, approve bool) (*models.SalaryHeader, error) {
	header, err := s.salaries.GetByID(ctx, headerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load salary header")
	}
	if header.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "salary header already decided")
	}
	if header.CurrentLevel == nil {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
			fmt.Sprintf("pending salary header %s has no current level", headerID))
	}

	var next models.ApprovalState
	if approve {
		if !s.engine.CanApprove(header.ApprovalState, *header.CurrentLevel, actingUserID) {
			return nil, appErrors.Clone(appErrors.ErrNotAuthorized,
				fmt.Sprintf("user %s cannot approve salary header %s", actingUserID, headerID))
		}
		profile, err := s.employees.GetByID(ctx, header.EmployeeID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
		}
		next, err = s.engine.Advance(ctx, models.RequestTypePayroll, *header.CurrentLevel,
			actingUserID, header.EmployeeID, profile.DepartmentID, profile.ProjectID)
		if err != nil {
			return nil, err
		}
	} else {
		next, err = s.engine.Reject(header.ApprovalState, actingUserID, reason)
		if err != nil {
			return nil, err
		}
	}

	if err := s.salaries.UpdateApprovalState(ctx, header.ID, *header.CurrentLevel, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "salary header transitioned concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist approval state")
	}
	header.ApprovalState = next

	if s.metrics != nil {
		s.metrics.RecordApprovalTransition(models.RequestTypePayroll, next.Status)
	}

	switch next.Status {
	case models.ApprovalStatusApproved:
		if err := s.collectLoanDeductions(ctx, header); err != nil {
			return nil, err
		}
		s.emit(ctx, models.DomainEvent{
			Type:       models.EventPayrollApproved,
			EmployeeID: header.EmployeeID,
			EntityID:   header.ID,
			Amount:     &header.NetSalary,
			Recipients: []string{header.EmployeeID},
			Payload:    map[string]interface{}{"period": header.Period.String(), "version": header.Version},
		})
	case models.ApprovalStatusRejected:
		s.emit(ctx, models.DomainEvent{
			Type:       models.EventPayrollRejected,
			EmployeeID: header.EmployeeID,
			EntityID:   header.ID,
			Recipients: []string{header.EmployeeID},
			Payload:    map[string]interface{}{"period": header.Period.String(), "reason": reason},
		})
	default:
		s.emit(ctx, models.DomainEvent{
			Type:       models.EventPayrollSubmitted,
			EmployeeID: header.EmployeeID,
			EntityID:   header.ID,
			Recipients: recipients(next.NextApproverID),
			Payload:    map[string]interface{}{"period": header.Period.String(), "level": *next.CurrentLevel},
		})
	}
	s.invalidateRegister(ctx, header.Period)

	return header, nil
}

// collectLoanDeductions settles exactly the installments this header
// withheld as deduction lines. Installments that became due after the header
// was calculated carry no line and are left for the next run; an installment
// postponed after calculation was still withheld, so it settles too.
func (s *PayrollService) collectLoanDeductions(ctx context.Context, header *models.SalaryHeader) error {
	var ids []string
	for _, detail := range header.Details {
		if detail.ComponentCode == models.ComponentLoanInstallment && detail.InstallmentID != nil {
			ids = append(ids, *detail.InstallmentID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.loans.SettleInstallments(ctx, ids); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle installments")
	}
	return nil
}

// Get returns one header with its lines.
func (s *PayrollService) Get(ctx context.Context, headerID string) (*models.SalaryHeader, error) {
	header, err := s.salaries.GetByID(ctx, headerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load salary header")
	}
	return header, nil
}

// Register returns the latest headers of a period, cached when possible.
func (s *PayrollService) Register(ctx context.Context, period models.PayPeriod) ([]models.SalaryHeader, error) {
	key := registerCacheKey(period)
	var cached []models.SalaryHeader
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	headers, err := s.salaries.ListByPeriod(ctx, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list salary headers")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, headers, 0); err != nil {
			s.logger.Warn("failed to cache payroll register", zap.Error(err))
		}
	}
	return headers, nil
}

// PendingForApprover lists headers awaiting the given user.
func (s *PayrollService) PendingForApprover(ctx context.Context, approverID string) ([]models.SalaryHeader, error) {
	headers, err := s.salaries.ListPendingForApprover(ctx, approverID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending headers")
	}
	return headers, nil
}

func (s *PayrollService) emit(ctx context.Context, event models.DomainEvent) {
	event.OccurredAt = time.Now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish domain event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (s *PayrollService) invalidateRegister(ctx context.Context, period models.PayPeriod) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, registerCacheKey(period)); err != nil {
		s.logger.Warn("failed to invalidate payroll register cache", zap.Error(err))
	}
}

func registerCacheKey(period models.PayPeriod) string {
	return fmt.Sprintf("payroll:register:%s", period)
}

func recipients(approverID *string) []string {
	if approverID == nil {
		return nil
	}
	return []string{*approverID}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
