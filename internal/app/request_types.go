package app

import (
	"time"

	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
)

// PlanRequest is the input for an installment plan preview.
type PlanRequest struct {
	Principal         decimal.Decimal
	InstallmentCount  int
	Frequency         string // WEEKLY, BIWEEKLY, MONTHLY or EVERY_N_DAYS(n)
	StartDate         string // YYYY-MM-DD; empty means today
	InstallmentAmount decimal.Decimal
}

// CreateCreditRequest is the input for opening a credit.
type CreateCreditRequest struct {
	CompanyCode       string
	CustomerCode      string
	SalespersonCode   string
	StartDate         string // YYYY-MM-DD; empty means today
	Frequency         string
	InstallmentCount  int
	InstallmentAmount decimal.Decimal // zero accepts the planner's suggestion
	Notes             string
	Lines             []CreditLineRequest
}

// CreditLineRequest is a single line within a CreateCreditRequest.
type CreditLineRequest struct {
	ProductCode string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal // zero means "use product default"
}

// RecordPaymentRequest is the input for applying a payment to a credit.
type RecordPaymentRequest struct {
	CompanyCode    string
	CreditRef      string
	Amount         string // decimal string with at most two places
	Method         string // CASH when empty
	PaidAt         time.Time
	Notes          string
	RecordedBy     string
	AutoDistribute bool
	Detail         []PaymentDetailRequest
}

// PaymentDetailRequest attributes part of a payment to the line for ProductCode.
type PaymentDetailRequest struct {
	ProductCode string
	Amount      string
}

// toCore resolves product codes against the credit's lines.
func (r RecordPaymentRequest) toCore(c *core.Credit) (core.PaymentRequest, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return core.PaymentRequest{}, err
	}
	method, err := core.ParsePaymentMethod(r.Method)
	if err != nil {
		return core.PaymentRequest{}, err
	}

	req := core.PaymentRequest{
		Amount:     amount,
		Method:     method,
		PaidAt:     r.PaidAt,
		Notes:      r.Notes,
		RecordedBy: r.RecordedBy,
	}
	for _, d := range r.Detail {
		productID, ok := productIDFor(c, d.ProductCode)
		if !ok {
			return core.PaymentRequest{}, wrapf(core.ErrUnknownLine, "%s on %s", d.ProductCode, c.CreditNumber)
		}
		amt, err := parseAmount(d.Amount)
		if err != nil {
			return core.PaymentRequest{}, err
		}
		req.Detail = append(req.Detail, core.PaymentDetail{ProductID: productID, Amount: amt})
	}
	return req, nil
}

func productIDFor(c *core.Credit, productCode string) (int, bool) {
	for _, l := range c.Lines {
		if l.ProductCode == productCode {
			return l.ProductID, true
		}
	}
	return 0, false
}
