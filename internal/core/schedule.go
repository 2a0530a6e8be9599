package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentPlan is the suggested repayment schedule for a credit.
type InstallmentPlan struct {
	NominalInstallment decimal.Decimal `json:"nominal_installment"`
	DueDates           []time.Time     `json:"due_dates"`
	MaturityDate       time.Time       `json:"maturity_date"`
}

// PlanInstallments derives the nominal installment and due-date schedule.
// The nominal amount is advisory; see ResolveInstallmentAmount.
func PlanInstallments(principal decimal.Decimal, count int, freq Frequency, start time.Time) (*InstallmentPlan, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: installment count must be at least 1, got %d", ErrInvalidInstallmentPlan, count)
	}
	if !principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidInstallmentPlan, principal.String())
	}
	if err := freq.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInstallmentPlan, err)
	}

	dueDates := make([]time.Time, count)
	for i := range dueDates {
		d, err := Advance(start, freq, i+1)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInstallmentPlan, err)
		}
		dueDates[i] = d
	}

	return &InstallmentPlan{
		NominalInstallment: RoundMoney(principal.Div(decimal.NewFromInt(int64(count)))),
		DueDates:           dueDates,
		MaturityDate:       dueDates[count-1],
	}, nil
}

// ResolveInstallmentAmount returns override when it is positive and the plan's
// nominal installment otherwise. An override is taken as-is and never checked
// against the suggestion.
func ResolveInstallmentAmount(plan *InstallmentPlan, override decimal.Decimal) decimal.Decimal {
	if override.IsPositive() {
		return override
	}
	return plan.NominalInstallment
}

// InstallmentState is the coverage of one scheduled installment by payments to date.
type InstallmentState string

const (
	InstallmentPaid    InstallmentState = "PAID"
	InstallmentPartial InstallmentState = "PARTIAL"
	InstallmentPending InstallmentState = "PENDING"
	InstallmentOverdue InstallmentState = "OVERDUE"
)

// ScheduledInstallment is one row of a credit's repayment schedule.
type ScheduledInstallment struct {
	Number  int              `json:"number"`
	DueDate time.Time        `json:"due_date"`
	Amount  decimal.Decimal  `json:"amount"`
	Covered decimal.Decimal  `json:"covered"`
	State   InstallmentState `json:"state"`
}

// BuildSchedule lays the credit's installment amount over its due dates and
// fills the rows in order with the aggregate amount paid. The last row takes
// whatever principal the earlier rows leave, so the rows always sum to the principal.
func BuildSchedule(c Credit, today time.Time) ([]ScheduledInstallment, error) {
	if c.InstallmentCount < 1 {
		return nil, fmt.Errorf("%w: credit %s has no installments", ErrInvalidInstallmentPlan, c.CreditNumber)
	}
	today = DateOf(today)
	paid := c.Collected()

	rows := make([]ScheduledInstallment, c.InstallmentCount)
	scheduled := decimal.Zero
	for i := range rows {
		due, err := Advance(c.StartDate, c.Frequency, i+1)
		if err != nil {
			return nil, err
		}

		amount := c.InstallmentAmount
		if i == c.InstallmentCount-1 || scheduled.Add(amount).GreaterThan(c.Principal) {
			amount = c.Principal.Sub(scheduled)
		}
		if amount.IsNegative() {
			amount = decimal.Zero
		}

		covered := decimal.Min(decimal.Max(paid.Sub(scheduled), decimal.Zero), amount)
		scheduled = scheduled.Add(amount)

		state := InstallmentPending
		switch {
		case covered.Equal(amount):
			state = InstallmentPaid
		case today.After(due):
			state = InstallmentOverdue
		case covered.IsPositive():
			state = InstallmentPartial
		}

		rows[i] = ScheduledInstallment{Number: i + 1, DueDate: due, Amount: amount, Covered: covered, State: state}
	}
	return rows, nil
}
