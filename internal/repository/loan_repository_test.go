package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoanRepositoryHasOpenLoan(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM loans")).
		WithArgs("emp-1", "PENDING", "APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	open, err := repo.HasOpenLoan(context.Background(), "emp-1")
	require.NoError(t, err)
	require.True(t, open)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryUpdateBalanceVersionGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)
	balance := decimal.RequireFromString("666.6667")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE loans SET remaining_balance")).
		WithArgs(balance, true, "loan-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateBalance(context.Background(), "loan-1", 2, balance, true))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE loans SET remaining_balance")).
		WithArgs(balance, true, "loan-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateBalance(context.Background(), "loan-1", 2, balance, true)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositorySettleInstallments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT loan_id, SUM(amount) AS total FROM loan_installments")).
		WithArgs("inst-1", "inst-2", "PAID").
		WillReturnRows(sqlmock.NewRows([]string{"loan_id", "total"}).AddRow("loan-1", "666.6666"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loan_installments SET payment_status")).
		WithArgs("PAID", "inst-1", "inst-2", "PAID").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loans SET")).
		WithArgs(decimal.RequireFromString("666.6666"), "loan-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SettleInstallments(context.Background(), []string{"inst-1", "inst-2"}))
	require.NoError(t, mock.ExpectationsWereMet())

	// No round trip for an empty id list.
	require.NoError(t, repo.SettleInstallments(context.Background(), nil))
}

func TestLoanRepositorySettleInstallmentsAllAlreadyPaid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT loan_id, SUM(amount) AS total FROM loan_installments")).
		WithArgs("inst-1", "PAID").
		WillReturnRows(sqlmock.NewRows([]string{"loan_id", "total"}))
	mock.ExpectCommit()

	require.NoError(t, repo.SettleInstallments(context.Background(), []string{"inst-1"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryPostponeInstallmentOnlyUnpaid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)
	newDue := time.Date(2025, time.September, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE loan_installments SET due_date")).
		WithArgs(newDue, "POSTPONED", "inst-1", "UNPAID").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.PostponeInstallment(context.Background(), "inst-1", newDue)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
