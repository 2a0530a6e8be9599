package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineProgress is the read-side progress of one product line.
type LineProgress struct {
	ProductID              int             `json:"product_id"`
	ProductCode            string          `json:"product_code"`
	LineInstallment        decimal.Decimal `json:"line_installment"`
	PaidToDate             decimal.Decimal `json:"paid_to_date"`
	Remaining              decimal.Decimal `json:"remaining"`
	EquivalentInstallments decimal.Decimal `json:"equivalent_installments"`
	NextInstallmentIndex   int             `json:"next_installment_index"`
	NextDueDate            time.Time       `json:"next_due_date"`
}

// CreditProgress is the aggregate progress of a credit plus its lines.
type CreditProgress struct {
	CreditID               int             `json:"credit_id"`
	CreditNumber           string          `json:"credit_number"`
	Status                 CreditStatus    `json:"status"`
	TotalPaid              decimal.Decimal `json:"total_paid"`
	RemainingBalance       decimal.Decimal `json:"remaining_balance"`
	EquivalentInstallments decimal.Decimal `json:"equivalent_installments"`
	NextInstallmentIndex   int             `json:"next_installment_index"`
	NextDueDate            time.Time       `json:"next_due_date"`
	DaysOverdue            int             `json:"days_overdue"`
	Lines                  []LineProgress  `json:"lines"`
}

// equivalentProgress converts paid into installments of size installment and
// resolves the next unmet schedule index, clamped to the last installment.
func equivalentProgress(paid, installment decimal.Decimal, c Credit) (decimal.Decimal, int, time.Time, error) {
	equivalent := decimal.Zero
	if installment.IsPositive() {
		equivalent = paid.Div(installment)
	}

	index := int(equivalent.Floor().IntPart())
	if index > c.InstallmentCount-1 {
		index = c.InstallmentCount - 1
	}
	if index < 0 {
		index = 0
	}

	next, err := Advance(c.StartDate, c.Frequency, index+1)
	if err != nil {
		return decimal.Zero, 0, time.Time{}, err
	}
	return equivalent.Round(4), index, next, nil
}

// EstimateProgress projects how many installments a line's payments amount to
// and when its next installment falls due. It is a pure function of the line
// and the credit's schedule terms.
func EstimateProgress(line CreditLine, credit Credit) (LineProgress, error) {
	lineInstallment := decimal.Zero
	if credit.InstallmentCount > 0 {
		lineInstallment = line.Subtotal.Div(decimal.NewFromInt(int64(credit.InstallmentCount)))
	}

	equivalent, index, next, err := equivalentProgress(line.PaidToDate, lineInstallment, credit)
	if err != nil {
		return LineProgress{}, err
	}
	return LineProgress{
		ProductID:              line.ProductID,
		ProductCode:            line.ProductCode,
		LineInstallment:        RoundMoney(lineInstallment),
		PaidToDate:             line.PaidToDate,
		Remaining:              line.Remaining(),
		EquivalentInstallments: equivalent,
		NextInstallmentIndex:   index,
		NextDueDate:            next,
	}, nil
}

// EstimateCreditProgress applies the line formula at the aggregate level using
// the credit's installment amount and total paid, and classifies the credit
// against today.
func EstimateCreditProgress(credit Credit, today time.Time) (CreditProgress, error) {
	paid := credit.Collected()
	equivalent, index, next, err := equivalentProgress(paid, credit.InstallmentAmount, credit)
	if err != nil {
		return CreditProgress{}, err
	}

	p := CreditProgress{
		CreditID:               credit.ID,
		CreditNumber:           credit.CreditNumber,
		Status:                 classify(credit, next, today),
		TotalPaid:              paid,
		RemainingBalance:       credit.RemainingBalance,
		EquivalentInstallments: equivalent,
		NextInstallmentIndex:   index,
		NextDueDate:            next,
	}
	if p.Status == CreditStatusOverdue {
		p.DaysOverdue = int(DateOf(today).Sub(next).Hours() / 24)
	}

	p.Lines = make([]LineProgress, 0, len(credit.Lines))
	for _, l := range credit.Lines {
		lp, err := EstimateProgress(l, credit)
		if err != nil {
			return CreditProgress{}, err
		}
		p.Lines = append(p.Lines, lp)
	}
	return p, nil
}

// ClassifyStatus returns OVERDUE for an open credit whose next unmet
// installment fell due before today, and the stored status otherwise.
func ClassifyStatus(credit Credit, today time.Time) (CreditStatus, error) {
	_, _, next, err := equivalentProgress(credit.Collected(), credit.InstallmentAmount, credit)
	if err != nil {
		return "", err
	}
	return classify(credit, next, today), nil
}

// classify relies on nextDue being clamped to maturity, so a credit that
// still owes money after its last due date is OVERDUE however many
// installments its payments amount to.
func classify(credit Credit, nextDue, today time.Time) CreditStatus {
	if credit.Status.IsClosed() {
		return credit.Status
	}
	if !credit.RemainingBalance.IsPositive() {
		return CreditStatusActive
	}
	if DateOf(today).After(nextDue) {
		return CreditStatusOverdue
	}
	return CreditStatusActive
}
