package core_test

import (
	"math/rand"
	"testing"

	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remainingLine builds a line whose remaining balance is remaining.
func remainingLine(productID int, remaining string) core.CreditLine {
	l := line(productID, "1000.00")
	l.Subtotal = money("1000.00")
	l.PaidToDate = money("1000.00").Sub(money(remaining))
	return l
}

func TestValidateAllocation(t *testing.T) {
	thirds := []core.CreditLine{
		{ProductID: 1, Subtotal: money("33.33")},
		{ProductID: 2, Subtotal: money("33.33")},
		{ProductID: 3, Subtotal: money("33.33")},
	}
	assert.NoError(t, core.ValidateAllocation(thirds, money("99.99")))
	assert.NoError(t, core.ValidateAllocation(thirds, money("100.00")))
	assert.NoError(t, core.ValidateAllocation(thirds, money("100.02")))
	assert.ErrorIs(t, core.ValidateAllocation(thirds, money("100.03")), core.ErrAllocationMismatch)

	single := []core.CreditLine{{ProductID: 1, Subtotal: money("50.00")}}
	assert.NoError(t, core.ValidateAllocation(single, money("50.01")))
	assert.ErrorIs(t, core.ValidateAllocation(single, money("50.02")), core.ErrAllocationMismatch)

	assert.ErrorIs(t, core.ValidateAllocation(nil, money("1.00")), core.ErrAllocationMismatch)
}

func TestDistributePayment_Proportional(t *testing.T) {
	lines := []core.CreditLine{remainingLine(1, "30.00"), remainingLine(2, "70.00")}

	got, err := core.DistributePayment(lines, money("50.00"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ProductID)
	assertMoney(t, "15.00", got[0].Amount)
	assert.Equal(t, 2, got[1].ProductID)
	assertMoney(t, "35.00", got[1].Amount)
}

func TestDistributePayment_LastLineAbsorbsResidual(t *testing.T) {
	lines := []core.CreditLine{remainingLine(1, "10.00"), remainingLine(2, "10.00"), remainingLine(3, "10.00")}

	got, err := core.DistributePayment(lines, money("10.00"))
	require.NoError(t, err)
	assertMoney(t, "3.33", got[0].Amount)
	assertMoney(t, "3.33", got[1].Amount)
	assertMoney(t, "3.34", got[2].Amount)
}

func TestDistributePayment_SkipsSettledLines(t *testing.T) {
	lines := []core.CreditLine{remainingLine(1, "40.00"), remainingLine(2, "60.00"), remainingLine(3, "0.00")}

	got, err := core.DistributePayment(lines, money("10.00"))
	require.NoError(t, err)
	assertMoney(t, "4.00", got[0].Amount)
	assertMoney(t, "6.00", got[1].Amount)
	assertMoney(t, "0.00", got[2].Amount)
}

func TestDistributePayment_FullSettlement(t *testing.T) {
	lines := []core.CreditLine{remainingLine(1, "12.34"), remainingLine(2, "0.01"), remainingLine(3, "987.65")}

	got, err := core.DistributePayment(lines, money("1000.00"))
	require.NoError(t, err)
	for i, d := range got {
		assert.True(t, d.Amount.Equal(lines[i].Remaining()), "line %d", i+1)
	}
}

func TestDistributePayment_Errors(t *testing.T) {
	lines := []core.CreditLine{remainingLine(1, "30.00"), remainingLine(2, "70.00")}

	_, err := core.DistributePayment(lines, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = core.DistributePayment(lines, money("-1"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = core.DistributePayment(lines, money("0.005"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = core.DistributePayment(lines, money("100.01"))
	assert.ErrorIs(t, err, core.ErrOverpaymentRejected)

	settled := []core.CreditLine{remainingLine(1, "0"), remainingLine(2, "0")}
	_, err = core.DistributePayment(settled, money("1.00"))
	assert.ErrorIs(t, err, core.ErrNothingToDistribute)
}

func TestDistributePayment_Conservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 2000; iter++ {
		n := 1 + rng.Intn(6)
		lines := make([]core.CreditLine, n)
		total := int64(0)
		for i := range lines {
			cents := int64(0)
			if rng.Intn(4) > 0 {
				cents = rng.Int63n(50000)
			}
			if i == n-1 && total == 0 && cents == 0 {
				cents = 1
			}
			total += cents
			lines[i] = remainingLine(i+1, decimal.New(cents, -2).String())
		}
		amount := decimal.New(1+rng.Int63n(total), -2)

		got, err := core.DistributePayment(lines, amount)
		require.NoError(t, err, "iteration %d", iter)
		require.Len(t, got, n)

		sum := decimal.Zero
		for i, d := range got {
			remaining := lines[i].Remaining()
			assert.False(t, d.Amount.IsNegative(), "iteration %d line %d negative share", iter, i)
			assert.True(t, d.Amount.LessThanOrEqual(remaining), "iteration %d line %d share %s > remaining %s", iter, i, d.Amount, remaining)
			if remaining.IsZero() {
				assert.True(t, d.Amount.IsZero(), "iteration %d line %d settled line got a share", iter, i)
			}
			sum = sum.Add(d.Amount)
		}
		assert.True(t, sum.Equal(amount), "iteration %d: shares sum %s, amount %s", iter, sum, amount)
	}
}
