package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stratumhq/sitepay-api/internal/dto"
	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
	"github.com/stratumhq/sitepay-api/pkg/jobs"
)

type activeEmployeeLister interface {
	ListActive(ctx context.Context) ([]models.EmployeeProfile, error)
}

type latestSalaryReader interface {
	GetLatest(ctx context.Context, employeeID string, period models.PayPeriod) (*models.SalaryHeader, error)
}

type payrollCalculator interface {
	Calculate(ctx context.Context, employeeID string, period models.PayPeriod) (*models.SalaryHeader, error)
}

type runQueue interface {
	Enqueue(job jobs.Job) error
}

// payrollRunPayload is the unit of work for one employee in a batch run.
type payrollRunPayload struct {
	EmployeeID string
	Period     models.PayPeriod
}

// PayrollRunService fans a monthly payroll run out across the worker queue,
// one calculation job per active employee. Employees whose salary for the
// period was already calculated are skipped so a rerun only fills gaps.
type PayrollRunService struct {
	employees activeEmployeeLister
	salaries  latestSalaryReader
	payroll   payrollCalculator
	queue     runQueue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewPayrollRunService constructs the service. Wire the returned HandleJob
// as the queue handler before starting the queue.
func NewPayrollRunService(
	employees activeEmployeeLister,
	salaries latestSalaryReader,
	payroll payrollCalculator,
	metrics *MetricsService,
	logger *zap.Logger,
) *PayrollRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollRunService{
		employees: employees,
		salaries:  salaries,
		payroll:   payroll,
		metrics:   metrics,
		logger:    logger,
	}
}

// BindQueue attaches the started queue the run enqueues into.
func (s *PayrollRunService) BindQueue(queue runQueue) {
	s.queue = queue
}

// Run enqueues a calculation job for every active employee without a salary
// header in the period and reports how many were enqueued versus skipped.
func (s *PayrollRunService) Run(ctx context.Context, period models.PayPeriod) (*dto.PayrollRunSummary, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "payroll run queue is not bound")
	}

	profiles, err := s.employees.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active employees")
	}

	summary := &dto.PayrollRunSummary{Period: period.String()}
	for _, profile := range profiles {
		if _, err := s.salaries.GetLatest(ctx, profile.ID, period); err == nil {
			summary.Skipped++
			if s.metrics != nil {
				s.metrics.RecordPayrollRunJob("skipped")
			}
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing salary")
		}

		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    "payroll.calculate",
			Key:     profile.ID,
			Payload: payrollRunPayload{EmployeeID: profile.ID, Period: period},
		}
		if err := s.queue.Enqueue(job); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue payroll job")
		}
		summary.Enqueued++
	}

	s.logger.Info("payroll run dispatched",
		zap.String("period", period.String()),
		zap.Int("enqueued", summary.Enqueued),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// HandleJob is the queue handler executing one calculation.
func (s *PayrollRunService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(payrollRunPayload)
	if !ok {
		return fmt.Errorf("payroll run job %s has unexpected payload %T", job.ID, job.Payload)
	}

	if _, err := s.payroll.Calculate(ctx, payload.EmployeeID, payload.Period); err != nil {
		// A concurrent header for the same version means someone else already
		// calculated this employee; the run treats that as done.
		if errors.Is(err, appErrors.ErrConcurrentModification) {
			if s.metrics != nil {
				s.metrics.RecordPayrollRunJob("skipped")
			}
			return nil
		}
		if s.metrics != nil {
			s.metrics.RecordPayrollRunJob("failed")
		}
		return fmt.Errorf("calculate %s for %s: %w", payload.EmployeeID, payload.Period, err)
	}

	if s.metrics != nil {
		s.metrics.RecordPayrollRunJob("ok")
	}
	return nil
}
