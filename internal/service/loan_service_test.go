package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

type mockLoanStore struct {
	loans         map[string]*models.Loan
	installments  map[string]*models.LoanInstallment
	postponements map[string]*models.LoanPostponement
	balanceErrs   []error
	seq           int
}

func newMockLoanStore() *mockLoanStore {
	return &mockLoanStore{
		loans:         make(map[string]*models.Loan),
		installments:  make(map[string]*models.LoanInstallment),
		postponements: make(map[string]*models.LoanPostponement),
	}
}

func (m *mockLoanStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockLoanStore) Create(_ context.Context, loan *models.Loan) error {
	loan.ID = m.nextID("loan")
	copied := *loan
	m.loans[loan.ID] = &copied
	return nil
}

func (m *mockLoanStore) GetByID(_ context.Context, id string) (*models.Loan, error) {
	loan, ok := m.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *loan
	return &copied, nil
}

func (m *mockLoanStore) HasOpenLoan(_ context.Context, employeeID string) (bool, error) {
	for _, loan := range m.loans {
		if loan.EmployeeID == employeeID && (loan.Pending() || loan.Active) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLoanStore) UpdateApprovalState(_ context.Context, id string, version int, state models.ApprovalState, active bool) error {
	loan, ok := m.loans[id]
	if !ok || loan.Version != version {
		return sql.ErrNoRows
	}
	loan.ApprovalState = state
	loan.Active = active
	loan.Version++
	return nil
}

func (m *mockLoanStore) UpdateBalance(_ context.Context, id string, version int, balance decimal.Decimal, active bool) error {
	if len(m.balanceErrs) > 0 {
		err := m.balanceErrs[0]
		m.balanceErrs = m.balanceErrs[1:]
		if err != nil {
			return err
		}
	}
	loan, ok := m.loans[id]
	if !ok || loan.Version != version {
		return sql.ErrNoRows
	}
	loan.RemainingBalance = balance
	loan.Active = active
	loan.Version++
	return nil
}

func (m *mockLoanStore) InsertInstallments(_ context.Context, loanID string, installments []models.LoanInstallment) error {
	for i := range installments {
		installments[i].ID = m.nextID("inst")
		installments[i].LoanID = loanID
		copied := installments[i]
		m.installments[copied.ID] = &copied
	}
	return nil
}

func (m *mockLoanStore) ListInstallments(_ context.Context, loanID string) ([]models.LoanInstallment, error) {
	var result []models.LoanInstallment
	for _, inst := range m.installments {
		if inst.LoanID == loanID {
			result = append(result, *inst)
		}
	}
	return result, nil
}

func (m *mockLoanStore) GetInstallment(_ context.Context, id string) (*models.LoanInstallment, error) {
	inst, ok := m.installments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *inst
	return &copied, nil
}

func (m *mockLoanStore) ListUnpaidDueInPeriod(_ context.Context, employeeID string, period models.PayPeriod) ([]models.LoanInstallment, error) {
	var result []models.LoanInstallment
	for _, inst := range m.installments {
		loan, ok := m.loans[inst.LoanID]
		if !ok || loan.EmployeeID != employeeID || !loan.Active || loan.Status != models.ApprovalStatusApproved {
			continue
		}
		if inst.PaymentStatus != models.InstallmentUnpaid {
			continue
		}
		if inst.DueDate.Before(period.Start()) || inst.DueDate.After(period.End()) {
			continue
		}
		result = append(result, *inst)
	}
	return result, nil
}

func (m *mockLoanStore) SettleInstallments(_ context.Context, ids []string) error {
	totals := make(map[string]decimal.Decimal)
	for _, id := range ids {
		inst, ok := m.installments[id]
		if !ok || inst.PaymentStatus == models.InstallmentPaid {
			continue
		}
		inst.PaymentStatus = models.InstallmentPaid
		totals[inst.LoanID] = totals[inst.LoanID].Add(inst.Amount)
	}
	for loanID, total := range totals {
		loan, ok := m.loans[loanID]
		if !ok {
			continue
		}
		loan.RemainingBalance = loan.RemainingBalance.Sub(total)
		if !loan.RemainingBalance.IsPositive() {
			loan.RemainingBalance = decimal.Zero
			loan.Active = false
		}
		loan.Version++
	}
	return nil
}

func (m *mockLoanStore) PostponeInstallment(_ context.Context, id string, newDueDate time.Time) error {
	inst, ok := m.installments[id]
	if !ok || inst.PaymentStatus != models.InstallmentUnpaid {
		return sql.ErrNoRows
	}
	inst.DueDate = newDueDate
	inst.PaymentStatus = models.InstallmentPostponed
	return nil
}

func (m *mockLoanStore) CreatePostponement(_ context.Context, req *models.LoanPostponement) error {
	req.ID = m.nextID("pp")
	copied := *req
	m.postponements[req.ID] = &copied
	return nil
}

func (m *mockLoanStore) GetPostponement(_ context.Context, id string) (*models.LoanPostponement, error) {
	req, ok := m.postponements[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (m *mockLoanStore) UpdatePostponementState(_ context.Context, id string, expectedLevel int, state models.ApprovalState) error {
	req, ok := m.postponements[id]
	if !ok || !req.Pending() || req.CurrentLevel == nil || *req.CurrentLevel != expectedLevel {
		return sql.ErrNoRows
	}
	req.ApprovalState = state
	return nil
}

type loanFixture struct {
	store     *mockLoanStore
	employees *mockEmployeeDir
	service   *LoanService
}

func loanChains() map[string][]models.ApprovalChainDefinition {
	return map[string][]models.ApprovalChainDefinition{
		chainKey(models.RequestTypeLoan, models.GlobalScope): {
			{RequestType: models.RequestTypeLoan, ScopeKind: models.ScopeGlobal, LevelNo: 1, ApproverKind: models.ApproverDirectManager, ClosesChain: true, Active: true},
		},
		chainKey(models.RequestTypeLoanPostponement, models.GlobalScope): {
			{RequestType: models.RequestTypeLoanPostponement, ScopeKind: models.ScopeGlobal, LevelNo: 1, ApproverKind: models.ApproverHRManager, ClosesChain: true, Active: true},
		},
	}
}

func newLoanFixture(t *testing.T) *loanFixture {
	t.Helper()
	f := &loanFixture{
		store:     newMockLoanStore(),
		employees: &mockEmployeeDir{profiles: make(map[string]*models.EmployeeProfile)},
	}
	f.employees.profiles["emp-1"] = activeEmployee("emp-1", 3000)
	engine := newTestEngine(t, &mockChainStore{chains: loanChains()})
	f.service = NewLoanService(f.store, f.employees, NewInstallmentScheduler(), engine, NopEventPublisher{}, nil, nil)
	return f
}

func (f *loanFixture) approvedLoan(t *testing.T) *models.Loan {
	t.Helper()
	loan, err := f.service.Submit(context.Background(), "emp-1", decimal.NewFromInt(1000), 3, date(2025, time.May, 31))
	require.NoError(t, err)
	loan, err = f.service.Approve(context.Background(), loan.ID, "mgr-1")
	require.NoError(t, err)
	return loan
}

func TestSubmitRejectsNonPositivePrincipal(t *testing.T) {
	f := newLoanFixture(t)

	_, err := f.service.Submit(context.Background(), "emp-1", decimal.Zero, 3, date(2025, time.May, 31))
	assert.ErrorIs(t, err, appErrors.ErrDataIntegrity)

	_, err = f.service.Submit(context.Background(), "emp-1", decimal.NewFromInt(-100), 3, date(2025, time.May, 31))
	assert.ErrorIs(t, err, appErrors.ErrDataIntegrity)
}

func TestSubmitRejectsInvalidInstallmentCount(t *testing.T) {
	f := newLoanFixture(t)

	_, err := f.service.Submit(context.Background(), "emp-1", decimal.NewFromInt(100), 0, date(2025, time.May, 31))
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)
}

func TestSubmitRequiresActiveEmployee(t *testing.T) {
	f := newLoanFixture(t)
	terminated := activeEmployee("emp-2", 3000)
	terminated.Status = models.EmploymentTerminated
	f.employees.profiles["emp-2"] = terminated

	_, err := f.service.Submit(context.Background(), "emp-2", decimal.NewFromInt(100), 2, date(2025, time.May, 31))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSubmitConflictsWithOpenLoan(t *testing.T) {
	f := newLoanFixture(t)
	f.approvedLoan(t)

	_, err := f.service.Submit(context.Background(), "emp-1", decimal.NewFromInt(500), 2, date(2025, time.June, 30))
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestSubmitStartsPendingWithoutInstallments(t *testing.T) {
	f := newLoanFixture(t)

	loan, err := f.service.Submit(context.Background(), "emp-1", decimal.NewFromInt(1000), 3, date(2025, time.May, 31))
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusPending, loan.Status)
	assert.False(t, loan.Active)
	assert.Equal(t, "333.3333", loan.InstallmentAmount.String())
	assert.True(t, loan.RemainingBalance.Equal(loan.Principal))
	require.NotNil(t, loan.NextApproverID)
	assert.Equal(t, "mgr-1", *loan.NextApproverID)
	assert.Empty(t, f.store.installments)
}

func TestApproveMaterializesScheduleAndActivates(t *testing.T) {
	f := newLoanFixture(t)

	loan := f.approvedLoan(t)

	assert.Equal(t, models.ApprovalStatusApproved, loan.Status)
	assert.True(t, loan.Active)
	require.Len(t, loan.Installments, 3)

	sum := decimal.Zero
	for _, inst := range loan.Installments {
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, sum.Equal(loan.Principal))
	assert.Len(t, f.store.installments, 3)
}

func TestApproveByWrongUser(t *testing.T) {
	f := newLoanFixture(t)
	loan, err := f.service.Submit(context.Background(), "emp-1", decimal.NewFromInt(1000), 3, date(2025, time.May, 31))
	require.NoError(t, err)

	_, err = f.service.Approve(context.Background(), loan.ID, "intruder")
	assert.ErrorIs(t, err, appErrors.ErrNotAuthorized)
}

func TestRejectLeavesLoanInactive(t *testing.T) {
	f := newLoanFixture(t)
	loan, err := f.service.Submit(context.Background(), "emp-1", decimal.NewFromInt(1000), 3, date(2025, time.May, 31))
	require.NoError(t, err)

	rejected, err := f.service.Reject(context.Background(), loan.ID, "mgr-1", "too large")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusRejected, rejected.Status)
	assert.False(t, rejected.Active)
	assert.Empty(t, f.store.installments)

	_, err = f.service.Approve(context.Background(), loan.ID, "mgr-1")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestRecordPaymentReducesBalance(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)

	paid, err := f.service.RecordPayment(context.Background(), loan.ID, decimal.RequireFromString("333.3333"))
	require.NoError(t, err)

	assert.Equal(t, "666.6667", paid.RemainingBalance.String())
	assert.True(t, paid.Active)
}

func TestRecordPaymentToZeroDeactivates(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)

	paid, err := f.service.RecordPayment(context.Background(), loan.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)

	assert.True(t, paid.RemainingBalance.IsZero())
	assert.False(t, paid.Active)
}

func TestRecordPaymentOverpaymentRejected(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)

	_, err := f.service.RecordPayment(context.Background(), loan.ID, decimal.RequireFromString("1000.0001"))
	assert.ErrorIs(t, err, appErrors.ErrOverpayment)

	stored, err := f.service.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.RemainingBalance.Equal(decimal.NewFromInt(1000)))
}

func TestRecordPaymentOnPendingLoan(t *testing.T) {
	f := newLoanFixture(t)
	loan, err := f.service.Submit(context.Background(), "emp-1", decimal.NewFromInt(1000), 3, date(2025, time.May, 31))
	require.NoError(t, err)

	_, err = f.service.RecordPayment(context.Background(), loan.ID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRecordPaymentRetriesOnceOnConflict(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)
	f.store.balanceErrs = []error{sql.ErrNoRows}

	paid, err := f.service.RecordPayment(context.Background(), loan.ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "900", paid.RemainingBalance.String())
}

func TestPostponeRequiresReason(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)

	_, err := f.service.Postpone(context.Background(), loan.ID, loan.Installments[0].ID, date(2025, time.August, 31), "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)
}

func TestPostponeRejectsEarlierDueDate(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)
	target := loan.Installments[0]

	_, err := f.service.Postpone(context.Background(), loan.ID, target.ID, target.DueDate, "cash flow")
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)
}

func TestPostponeRejectsForeignInstallment(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)
	stray := &models.LoanInstallment{
		ID:            "inst-stray",
		LoanID:        "some-other-loan",
		SequenceNo:    1,
		DueDate:       date(2025, time.May, 31),
		Amount:        decimal.NewFromInt(10),
		PaymentStatus: models.InstallmentUnpaid,
	}
	f.store.installments[stray.ID] = stray

	_, err := f.service.Postpone(context.Background(), loan.ID, stray.ID, date(2025, time.August, 31), "cash flow")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPostponementApprovalRedatesInstallment(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)
	target := loan.Installments[0]
	newDue := date(2025, time.September, 30)

	req, err := f.service.Postpone(context.Background(), loan.ID, target.ID, newDue, "cash flow")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, req.Status)
	require.NotNil(t, req.NextApproverID)
	assert.Equal(t, "hr-1", *req.NextApproverID)

	decided, err := f.service.DecidePostponement(context.Background(), req.ID, "hr-1", "", true)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, decided.Status)

	moved, err := f.store.GetInstallment(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, newDue, moved.DueDate)
	assert.Equal(t, models.InstallmentPostponed, moved.PaymentStatus)
}

func TestPostponementRejectionLeavesInstallmentUntouched(t *testing.T) {
	f := newLoanFixture(t)
	loan := f.approvedLoan(t)
	target := loan.Installments[0]

	req, err := f.service.Postpone(context.Background(), loan.ID, target.ID, date(2025, time.September, 30), "cash flow")
	require.NoError(t, err)

	decided, err := f.service.DecidePostponement(context.Background(), req.ID, "hr-1", "not justified", false)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, decided.Status)

	untouched, err := f.store.GetInstallment(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.DueDate, untouched.DueDate)
	assert.Equal(t, models.InstallmentUnpaid, untouched.PaymentStatus)
}
