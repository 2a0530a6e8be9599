package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CreditTerms are the caller's inputs for opening a credit.
type CreditTerms struct {
	Lines            []CreditLine
	Principal        decimal.Decimal // zero means the sum of line subtotals
	InstallmentCount int
	Frequency        Frequency
	StartDate        time.Time
	// InstallmentAmount overrides the planner's suggestion when positive.
	InstallmentAmount decimal.Decimal
}

// OpenCredit validates terms and returns a new ACTIVE credit along with the
// plan the schedule was derived from. Line subtotals are quantity × unit price
// rounded to minor units.
func OpenCredit(terms CreditTerms) (Credit, *InstallmentPlan, error) {
	if len(terms.Lines) == 0 {
		return Credit{}, nil, fmt.Errorf("%w: a credit needs at least one line", ErrInvalidCreditLine)
	}

	seen := make(map[int]bool, len(terms.Lines))
	lines := make([]CreditLine, len(terms.Lines))
	subtotal := decimal.Zero
	for i, l := range terms.Lines {
		if !l.Quantity.IsPositive() {
			return Credit{}, nil, fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidCreditLine, i+1)
		}
		if !l.UnitPrice.IsPositive() {
			return Credit{}, nil, fmt.Errorf("%w: line %d unit price must be positive", ErrInvalidCreditLine, i+1)
		}
		if seen[l.ProductID] {
			return Credit{}, nil, fmt.Errorf("%w: product %d appears on more than one line", ErrInvalidCreditLine, l.ProductID)
		}
		seen[l.ProductID] = true

		l.LineNumber = i + 1
		l.Subtotal = RoundMoney(l.Quantity.Mul(l.UnitPrice))
		l.PaidToDate = decimal.Zero
		lines[i] = l
		subtotal = subtotal.Add(l.Subtotal)
	}

	principal := terms.Principal
	if principal.IsZero() {
		principal = subtotal
	}
	if err := ValidateAllocation(lines, principal); err != nil {
		return Credit{}, nil, err
	}

	plan, err := PlanInstallments(principal, terms.InstallmentCount, terms.Frequency, terms.StartDate)
	if err != nil {
		return Credit{}, nil, err
	}

	installment := ResolveInstallmentAmount(plan, terms.InstallmentAmount)
	if installment.LessThan(MinorUnit) {
		return Credit{}, nil, fmt.Errorf("%w: installment %s for principal %s over %d installments is below %s",
			ErrInvalidInstallmentPlan, installment.String(), principal.StringFixed(moneyPlaces), terms.InstallmentCount, MinorUnit.String())
	}

	c := Credit{
		Principal:         principal,
		InstallmentAmount: installment,
		Frequency:         terms.Frequency,
		InstallmentCount:  terms.InstallmentCount,
		StartDate:         DateOf(terms.StartDate),
		DueDate:           plan.MaturityDate,
		Status:            CreditStatusActive,
		RemainingBalance:  principal,
		Lines:             lines,
	}
	return c, plan, nil
}

// PaymentRequest describes a payment to apply to a credit.
type PaymentRequest struct {
	Amount     decimal.Decimal
	Method     PaymentMethod
	PaidAt     time.Time
	Detail     []PaymentDetail // optional product attribution
	Notes      string
	RecordedBy string
}

// ApplyPayment validates req against credit and returns the updated credit and
// the appended payment. The input credit is never modified, and nothing is
// applied unless every check passes.
//
// Without Detail only the aggregate balance moves; line balances are left as they are.
func ApplyPayment(credit Credit, req PaymentRequest) (Credit, Payment, error) {
	if credit.Status.IsClosed() {
		return credit, Payment{}, fmt.Errorf("%w: %s is %s", ErrCreditClosed, creditRef(credit), credit.Status)
	}
	amount := req.Amount
	if !amount.IsPositive() || !IsMoney(amount) {
		return credit, Payment{}, fmt.Errorf("%w: payment amount %s", ErrInvalidAmount, amount.String())
	}
	if amount.GreaterThan(credit.RemainingBalance) {
		return credit, Payment{}, fmt.Errorf("%w: amount %s, remaining %s",
			ErrOverpaymentRejected, amount.StringFixed(moneyPlaces), credit.RemainingBalance.StringFixed(moneyPlaces))
	}

	updated := credit.Clone()
	if updated.Status == CreditStatusOverdue {
		// OVERDUE is a read-side classification and is never persisted.
		updated.Status = CreditStatusActive
	}
	if len(req.Detail) > 0 {
		if err := applyDetail(&updated, amount, req.Detail); err != nil {
			return credit, Payment{}, err
		}
	}

	method := req.Method
	if method == "" {
		method = PaymentMethodCash
	}
	payment := Payment{
		CreditID:   credit.ID,
		Amount:     amount,
		Method:     method,
		PaidAt:     req.PaidAt,
		Detail:     append([]PaymentDetail(nil), req.Detail...),
		Notes:      req.Notes,
		RecordedBy: req.RecordedBy,
	}
	updated.Payments = append(updated.Payments, payment)
	updated.RemainingBalance = updated.Principal.Sub(updated.TotalPaid())

	if updated.RemainingBalance.IsZero() {
		paidAt := req.PaidAt
		updated.Status = CreditStatusPaid
		updated.PaidAt = &paidAt
	}
	return updated, payment, nil
}

// applyDetail checks the detail against the line balances as they stood before
// this payment and then moves each line's paid-to-date. The detail must sum to
// amount exactly.
func applyDetail(c *Credit, amount decimal.Decimal, detail []PaymentDetail) error {
	sum := decimal.Zero
	for _, d := range detail {
		sum = sum.Add(d.Amount)
	}
	if !sum.Equal(amount) {
		return fmt.Errorf("%w: detail sums to %s, payment is %s",
			ErrDetailSumMismatch, sum.StringFixed(moneyPlaces), amount.StringFixed(moneyPlaces))
	}

	attributed := make(map[int]decimal.Decimal, len(detail))
	for _, d := range detail {
		if d.Amount.IsNegative() || !IsMoney(d.Amount) {
			return fmt.Errorf("%w: detail amount %s for product %d", ErrInvalidAmount, d.Amount.String(), d.ProductID)
		}
		i := c.lineIndex(d.ProductID)
		if i < 0 {
			return fmt.Errorf("%w: product %d on %s", ErrUnknownLine, d.ProductID, creditRef(*c))
		}
		attributed[d.ProductID] = attributed[d.ProductID].Add(d.Amount)
		if remaining := c.Lines[i].Remaining(); attributed[d.ProductID].GreaterThan(remaining) {
			return fmt.Errorf("%w: product %s gets %s, remaining %s", ErrLineOverpayment,
				lineRef(c.Lines[i]), attributed[d.ProductID].StringFixed(moneyPlaces), remaining.StringFixed(moneyPlaces))
		}
	}

	for _, d := range detail {
		i := c.lineIndex(d.ProductID)
		c.Lines[i].PaidToDate = c.Lines[i].PaidToDate.Add(d.Amount)
	}
	return nil
}

// CancelCredit moves an open credit to CANCELLED. Closed credits fail with ErrCreditClosed.
func CancelCredit(credit Credit, at time.Time) (Credit, error) {
	if credit.Status.IsClosed() {
		return credit, fmt.Errorf("%w: %s is %s", ErrCreditClosed, creditRef(credit), credit.Status)
	}
	updated := credit.Clone()
	updated.Status = CreditStatusCancelled
	updated.CancelledAt = &at
	return updated, nil
}

func creditRef(c Credit) string {
	if c.CreditNumber != "" {
		return "credit " + c.CreditNumber
	}
	return fmt.Sprintf("credit %d", c.ID)
}

func lineRef(l CreditLine) string {
	if l.ProductCode != "" {
		return l.ProductCode
	}
	return fmt.Sprintf("%d", l.ProductID)
}
