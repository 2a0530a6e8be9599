package core_test

import (
	"fmt"
	"testing"

	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanInstallments_MonthlySchedule(t *testing.T) {
	plan, err := core.PlanInstallments(money("1000.00"), 4, core.Monthly, day(2024, 1, 15))
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-02-15", "2024-03-15", "2024-04-15", "2024-05-15"}, isoDates(plan.DueDates))
	assertMoney(t, "250.00", plan.NominalInstallment)
	assert.Equal(t, "2024-05-15", plan.MaturityDate.Format("2006-01-02"))
}

func TestPlanInstallments_NominalRounding(t *testing.T) {
	tests := []struct {
		principal string
		count     int
		want      string
	}{
		{"1000.00", 3, "333.33"},
		{"100.00", 6, "16.67"},
		{"0.05", 2, "0.03"},
		{"99.99", 1, "99.99"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.principal, tt.count), func(t *testing.T) {
			plan, err := core.PlanInstallments(money(tt.principal), tt.count, core.Weekly, day(2024, 1, 1))
			require.NoError(t, err)
			assertMoney(t, tt.want, plan.NominalInstallment)
		})
	}
}

func TestPlanInstallments_Invalid(t *testing.T) {
	start := day(2024, 1, 1)

	_, err := core.PlanInstallments(money("100"), 0, core.Monthly, start)
	assert.ErrorIs(t, err, core.ErrInvalidInstallmentPlan)

	_, err = core.PlanInstallments(decimal.Zero, 3, core.Monthly, start)
	assert.ErrorIs(t, err, core.ErrInvalidInstallmentPlan)

	_, err = core.PlanInstallments(money("-5"), 3, core.Monthly, start)
	assert.ErrorIs(t, err, core.ErrInvalidInstallmentPlan)

	_, err = core.PlanInstallments(money("100"), 3, core.EveryNDays(0), start)
	assert.ErrorIs(t, err, core.ErrInvalidInstallmentPlan)
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)
}

func TestPlanInstallments_StrictlyIncreasing(t *testing.T) {
	// Jan 31 start exercises month-end clamping on every monthly step.
	start := day(2024, 1, 31)
	for _, freq := range []core.Frequency{core.Weekly, core.Biweekly, core.Monthly} {
		for count := 1; count <= 60; count++ {
			plan, err := core.PlanInstallments(money("1234.56"), count, freq, start)
			require.NoError(t, err)
			require.Len(t, plan.DueDates, count)
			assert.True(t, plan.DueDates[0].After(start), "%s/%d first due date", freq, count)
			for i := 1; i < count; i++ {
				assert.True(t, plan.DueDates[i].After(plan.DueDates[i-1]), "%s/%d index %d", freq, count, i)
			}
			assert.Equal(t, plan.DueDates[count-1], plan.MaturityDate)
		}
	}
}

func TestResolveInstallmentAmount(t *testing.T) {
	plan, err := core.PlanInstallments(money("1000.00"), 3, core.Monthly, day(2024, 1, 15))
	require.NoError(t, err)

	assertMoney(t, "333.33", core.ResolveInstallmentAmount(plan, decimal.Zero))
	// Overrides are accepted as given, however far from the suggestion.
	assertMoney(t, "50.00", core.ResolveInstallmentAmount(plan, money("50")))
	assertMoney(t, "333.33", core.ResolveInstallmentAmount(plan, money("-1")))
}

func TestBuildSchedule(t *testing.T) {
	c, _, err := core.OpenCredit(core.CreditTerms{
		Lines:             []core.CreditLine{line(1, "100.00")},
		InstallmentCount:  4,
		Frequency:         core.Monthly,
		StartDate:         day(2024, 1, 15),
		InstallmentAmount: money("30.00"),
	})
	require.NoError(t, err)

	c, _, err = core.ApplyPayment(c, pay("45.00"))
	require.NoError(t, err)

	rows, err := core.BuildSchedule(c, day(2024, 3, 20))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	want := []struct {
		due, amount, covered string
		state                core.InstallmentState
	}{
		{"2024-02-15", "30.00", "30.00", core.InstallmentPaid},
		{"2024-03-15", "30.00", "15.00", core.InstallmentOverdue},
		{"2024-04-15", "30.00", "0.00", core.InstallmentPending},
		{"2024-05-15", "10.00", "0.00", core.InstallmentPending},
	}
	total := decimal.Zero
	for i, w := range want {
		assert.Equal(t, i+1, rows[i].Number)
		assert.Equal(t, w.due, rows[i].DueDate.Format("2006-01-02"))
		assertMoney(t, w.amount, rows[i].Amount, "row %d amount", i+1)
		assertMoney(t, w.covered, rows[i].Covered, "row %d covered", i+1)
		assert.Equal(t, w.state, rows[i].State, "row %d state", i+1)
		total = total.Add(rows[i].Amount)
	}
	assertMoney(t, "100.00", total)
}

func TestBuildSchedule_PartialBeforeDue(t *testing.T) {
	c := openCredit(t, 2, line(1, "100.00"))
	c, _, err := core.ApplyPayment(c, pay("20.00"))
	require.NoError(t, err)

	rows, err := core.BuildSchedule(c, day(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, core.InstallmentPartial, rows[0].State)
	assert.Equal(t, core.InstallmentPending, rows[1].State)
}
