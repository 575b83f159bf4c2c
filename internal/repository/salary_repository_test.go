package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func salaryHeaderRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "employee_id", "period", "version", "days_worked", "gross_salary",
		"total_allowances", "total_deductions", "net_salary", "negative_net",
		"approval_status", "current_level", "next_approver_id", "rejection_reason", "approved_by", "created_at",
	})
}

func TestSalaryRepositoryCreateWithDetails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSalaryRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO salary_headers")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO salary_details")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO salary_details")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	level := 1
	approver := "mgr-1"
	header := &models.SalaryHeader{
		EmployeeID:      "emp-1",
		Period:          models.PayPeriod{Year: 2025, Month: time.April},
		Version:         1,
		DaysWorked:      30,
		GrossSalary:     decimal.NewFromInt(3000),
		TotalAllowances: decimal.NewFromInt(3000),
		TotalDeductions: decimal.Zero,
		NetSalary:       decimal.NewFromInt(3000),
		ApprovalState: models.ApprovalState{
			Status:         models.ApprovalStatusPending,
			CurrentLevel:   &level,
			NextApproverID: &approver,
		},
		Details: []models.SalaryDetail{
			{ComponentCode: models.ComponentBasic, Category: models.CategoryAllowance, Amount: decimal.NewFromInt(2400)},
			{ComponentCode: "HOUSING", Category: models.CategoryAllowance, Amount: decimal.NewFromInt(600)},
		},
	}
	require.NoError(t, repo.CreateWithDetails(context.Background(), header))
	require.NotEmpty(t, header.ID)
	require.Equal(t, header.ID, header.Details[0].HeaderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryRepositoryCreateDuplicateVersionConflicts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSalaryRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO salary_headers")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	header := &models.SalaryHeader{
		EmployeeID:  "emp-1",
		Period:      models.PayPeriod{Year: 2025, Month: time.April},
		Version:     1,
		GrossSalary: decimal.NewFromInt(3000),
		ApprovalState: models.ApprovalState{
			Status: models.ApprovalStatusPending,
		},
	}
	err := repo.CreateWithDetails(context.Background(), header)
	require.ErrorIs(t, err, appErrors.ErrConcurrentModification)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryRepositoryGetByIDLoadsDetails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSalaryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, employee_id, period")).
		WithArgs("hdr-1").
		WillReturnRows(salaryHeaderRows().
			AddRow("hdr-1", "emp-1", "2025-04", 1, 30, "3000", "3000", "0", "3000", false,
				"PENDING", 1, "mgr-1", nil, nil, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, header_id, component_code")).
		WithArgs("hdr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "header_id", "component_code", "category", "amount", "installment_id"}).
			AddRow("det-1", "hdr-1", "BASIC", "ALLOWANCE", "3000", nil))

	header, err := repo.GetByID(context.Background(), "hdr-1")
	require.NoError(t, err)
	require.Equal(t, "emp-1", header.EmployeeID)
	require.Equal(t, models.PayPeriod{Year: 2025, Month: time.April}, header.Period)
	require.Len(t, header.Details, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryRepositoryGetLatestNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSalaryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, employee_id, period")).
		WithArgs("emp-1", "2025-04").
		WillReturnRows(salaryHeaderRows())

	_, err := repo.GetLatest(context.Background(), "emp-1", models.PayPeriod{Year: 2025, Month: time.April})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryRepositoryUpdateApprovalStateGuards(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSalaryRepository(db)
	approved := "gm-1"
	state := models.ApprovalState{Status: models.ApprovalStatusApproved, ApprovedBy: &approved}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE salary_headers SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateApprovalState(context.Background(), "hdr-1", 3, state))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE salary_headers SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateApprovalState(context.Background(), "hdr-1", 3, state)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
