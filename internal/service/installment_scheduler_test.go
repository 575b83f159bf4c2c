package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/stratumhq/sitepay-api/pkg/errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScheduleRemainderGoesToLastInstallment(t *testing.T) {
	scheduler := NewInstallmentScheduler()

	installments, err := scheduler.Schedule(decimal.NewFromInt(1000), 3, date(2025, time.May, 15))
	require.NoError(t, err)
	require.Len(t, installments, 3)

	assert.Equal(t, "333.3333", installments[0].Amount.String())
	assert.Equal(t, "333.3333", installments[1].Amount.String())
	assert.Equal(t, "333.3334", installments[2].Amount.String())
}

func TestScheduleAmountsAlwaysSumToPrincipal(t *testing.T) {
	scheduler := NewInstallmentScheduler()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		principal := decimal.NewFromInt(rng.Int63n(5_000_000) + 1).Div(decimal.NewFromInt(100))
		count := rng.Intn(48) + 1

		installments, err := scheduler.Schedule(principal, count, date(2025, time.January, 31))
		require.NoError(t, err)
		require.Len(t, installments, count)

		sum := decimal.Zero
		for _, inst := range installments {
			sum = sum.Add(inst.Amount)
		}
		require.True(t, sum.Equal(principal), "sum %s != principal %s (count %d)", sum, principal, count)
	}
}

func TestScheduleDueDatesClampToShortMonths(t *testing.T) {
	scheduler := NewInstallmentScheduler()

	installments, err := scheduler.Schedule(decimal.NewFromInt(600), 4, date(2025, time.January, 31))
	require.NoError(t, err)

	assert.Equal(t, date(2025, time.January, 31), installments[0].DueDate)
	assert.Equal(t, date(2025, time.February, 28), installments[1].DueDate)
	assert.Equal(t, date(2025, time.March, 31), installments[2].DueDate)
	assert.Equal(t, date(2025, time.April, 30), installments[3].DueDate)
}

func TestScheduleLeapFebruary(t *testing.T) {
	scheduler := NewInstallmentScheduler()

	installments, err := scheduler.Schedule(decimal.NewFromInt(200), 2, date(2024, time.January, 30))
	require.NoError(t, err)

	assert.Equal(t, date(2024, time.February, 29), installments[1].DueDate)
}

func TestScheduleSequenceNumbersAndStatus(t *testing.T) {
	scheduler := NewInstallmentScheduler()

	installments, err := scheduler.Schedule(decimal.NewFromInt(90), 3, date(2025, time.June, 1))
	require.NoError(t, err)

	for i, inst := range installments {
		assert.Equal(t, i+1, inst.SequenceNo)
		assert.Equal(t, "UNPAID", string(inst.PaymentStatus))
	}
}

func TestScheduleRejectsInvalidArguments(t *testing.T) {
	scheduler := NewInstallmentScheduler()

	_, err := scheduler.Schedule(decimal.NewFromInt(100), 0, date(2025, time.June, 1))
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)

	_, err = scheduler.Schedule(decimal.Zero, 3, date(2025, time.June, 1))
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)

	_, err = scheduler.Schedule(decimal.NewFromInt(-50), 3, date(2025, time.June, 1))
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)
}

func TestScheduleSingleInstallmentCarriesFullPrincipal(t *testing.T) {
	scheduler := NewInstallmentScheduler()

	installments, err := scheduler.Schedule(decimal.RequireFromString("1234.5678"), 1, date(2025, time.March, 10))
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.True(t, installments[0].Amount.Equal(decimal.RequireFromString("1234.5678")))
}
