package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stratumhq/sitepay-api/internal/models"
	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

// moneyPlaces is the fixed-point precision used across payroll and loans.
const moneyPlaces = 4

// InstallmentScheduler splits a loan principal into equal monthly
// installments with exact-sum rounding.
type InstallmentScheduler struct{}

// NewInstallmentScheduler constructs the scheduler.
func NewInstallmentScheduler() *InstallmentScheduler {
	return &InstallmentScheduler{}
}

// Schedule produces count installments starting at firstDue. The first
// count-1 amounts are principal/count rounded half-up to 4 fractional
// digits; the last absorbs the rounding remainder so the amounts always sum
// to the principal exactly. Due dates advance by whole months from firstDue
// with end-of-month clamping, never drifting off the anchor day.
func (s *InstallmentScheduler) Schedule(principal decimal.Decimal, count int, firstDue time.Time) ([]models.LoanInstallment, error) {
	if count < 1 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "installment count must be at least 1")
	}
	if !principal.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "principal must be positive")
	}

	base := principal.DivRound(decimal.NewFromInt(int64(count)), moneyPlaces)

	installments := make([]models.LoanInstallment, 0, count)
	allocated := decimal.Zero
	for seq := 1; seq <= count; seq++ {
		amount := base
		if seq == count {
			amount = principal.Sub(allocated)
		}
		allocated = allocated.Add(amount)

		installments = append(installments, models.LoanInstallment{
			SequenceNo:    seq,
			DueDate:       addMonthsClamped(firstDue, seq-1),
			Amount:        amount,
			PaymentStatus: models.InstallmentUnpaid,
		})
	}

	return installments, nil
}

// addMonthsClamped advances by whole months keeping the anchor day-of-month,
// clamping to the target month's last day when it is shorter (a schedule
// anchored on the 31st lands on Feb 28/29, then returns to the 31st).
func addMonthsClamped(anchor time.Time, months int) time.Time {
	year, month, day := anchor.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, anchor.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, anchor.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
