package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
	"github.com/stratumhq/sitepay-api/pkg/export"
)

type payslipSalaryReader interface {
	GetByID(ctx context.Context, id string) (*models.SalaryHeader, error)
	ListByPeriod(ctx context.Context, period models.PayPeriod) ([]models.SalaryHeader, error)
}

// PayslipService renders approved salary headers as payslip PDFs and the
// monthly register as CSV.
type PayslipService struct {
	salaries  payslipSalaryReader
	employees employeeDirectory
	pdf       *export.PayslipPDFExporter
	csv       *export.CSVExporter
	logger    *zap.Logger
}

// NewPayslipService constructs the service.
func NewPayslipService(salaries payslipSalaryReader, employees employeeDirectory, logger *zap.Logger) *PayslipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayslipService{
		salaries:  salaries,
		employees: employees,
		pdf:       export.NewPayslipPDFExporter(),
		csv:       export.NewCSVExporter(),
		logger:    logger,
	}
}

// RenderPayslip produces the PDF for one approved salary header. Pending and
// rejected headers have no payslip.
func (s *PayslipService) RenderPayslip(ctx context.Context, headerID string) ([]byte, error) {
	header, err := s.salaries.GetByID(ctx, headerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load salary header")
	}
	if header.Status != models.ApprovalStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payslips exist only for approved salaries")
	}

	profile, err := s.employees.GetByID(ctx, header.EmployeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	doc := export.PayslipDocument{
		EmployeeID:      header.EmployeeID,
		EmployeeName:    profile.FullName,
		Period:          header.Period.String(),
		TotalAllowances: header.TotalAllowances.StringFixed(2),
		TotalDeductions: header.TotalDeductions.StringFixed(2),
		NetSalary:       header.NetSalary.StringFixed(2),
	}
	for _, detail := range header.Details {
		doc.Lines = append(doc.Lines, export.PayslipLine{
			Component: detail.ComponentCode,
			Category:  string(detail.Category),
			Amount:    detail.Amount.StringFixed(2),
		})
	}

	data, err := s.pdf.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render payslip")
	}
	return data, nil
}

// RenderRegisterCSV exports the latest salary version per employee for the
// period as a CSV register.
func (s *PayslipService) RenderRegisterCSV(ctx context.Context, period models.PayPeriod) ([]byte, error) {
	headers, err := s.salaries.ListByPeriod(ctx, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load register")
	}

	dataset := export.Dataset{
		Headers: []string{"employee_id", "period", "version", "days_worked", "gross_salary", "total_allowances", "total_deductions", "net_salary", "status"},
	}
	for _, h := range headers {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"employee_id":      h.EmployeeID,
			"period":           h.Period.String(),
			"version":          strconv.Itoa(h.Version),
			"days_worked":      strconv.Itoa(h.DaysWorked),
			"gross_salary":     h.GrossSalary.StringFixed(2),
			"total_allowances": h.TotalAllowances.StringFixed(2),
			"total_deductions": h.TotalDeductions.StringFixed(2),
			"net_salary":       h.NetSalary.StringFixed(2),
			"status":           string(h.Status),
		})
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register")
	}
	return data, nil
}
