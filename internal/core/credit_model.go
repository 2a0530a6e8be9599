package core

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CreditStatus is the lifecycle state of a credit. ACTIVE, PAID and CANCELLED
// are stored; OVERDUE is only ever produced by ClassifyStatus on read.
//
//	ACTIVE → PAID        (remaining balance reaches zero)
//	ACTIVE → CANCELLED   (explicit cancellation)
//	ACTIVE ⇄ OVERDUE     (read-side classification against the clock)
type CreditStatus string

const (
	CreditStatusActive    CreditStatus = "ACTIVE"
	CreditStatusOverdue   CreditStatus = "OVERDUE"
	CreditStatusPaid      CreditStatus = "PAID"
	CreditStatusCancelled CreditStatus = "CANCELLED"
)

// IsClosed reports whether the status is terminal. No payment may be applied to a closed credit.
func (s CreditStatus) IsClosed() bool {
	switch s {
	case CreditStatusPaid, CreditStatusCancelled:
		return true
	case CreditStatusActive, CreditStatusOverdue:
		return false
	}
	return false
}

// ParseCreditStatus accepts any of the four statuses, case-insensitively.
func ParseCreditStatus(s string) (CreditStatus, error) {
	switch st := CreditStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case CreditStatusActive, CreditStatusOverdue, CreditStatusPaid, CreditStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown credit status %q", s)
}

// PaymentMethod is an opaque tag recorded with each payment.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodCheck    PaymentMethod = "CHECK"
)

// ParsePaymentMethod defaults an empty string to CASH.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if strings.TrimSpace(s) == "" {
		return PaymentMethodCash, nil
	}
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard, PaymentMethodCheck:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// CreditLine is one product's share of a credit.
type CreditLine struct {
	ID          int             `json:"id,omitempty"`
	LineNumber  int             `json:"line_number"`
	ProductID   int             `json:"product_id"`
	ProductCode string          `json:"product_code"` // joined from products
	ProductName string          `json:"product_name"` // joined from products
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	PaidToDate  decimal.Decimal `json:"paid_to_date"`
}

// Remaining is max(subtotal − paidToDate, 0).
func (l CreditLine) Remaining() decimal.Decimal {
	r := l.Subtotal.Sub(l.PaidToDate)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// PaymentDetail attributes part of a payment to one product line.
type PaymentDetail struct {
	ProductID int             `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Payment is an immutable ledger entry against a credit.
type Payment struct {
	ID            int             `json:"id,omitempty"`
	CreditID      int             `json:"credit_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	PaidAt        time.Time       `json:"paid_at"`
	Detail        []PaymentDetail `json:"detail,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	RecordedBy    string          `json:"recorded_by,omitempty"`
}

// Credit is an installment sale. It owns its lines and its payment ledger.
type Credit struct {
	ID                int             `json:"id"`
	CompanyID         int             `json:"company_id"`
	CreditNumber      string          `json:"credit_number"`
	CustomerID        int             `json:"customer_id"`
	CustomerCode      string          `json:"customer_code"` // joined from customers
	CustomerName      string          `json:"customer_name"` // joined from customers
	SalespersonID     *int            `json:"salesperson_id,omitempty"`
	SalespersonCode   string          `json:"salesperson_code,omitempty"` // joined from salespeople
	Principal         decimal.Decimal `json:"principal"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	Frequency         Frequency       `json:"frequency"`
	InstallmentCount  int             `json:"installment_count"`
	StartDate         time.Time       `json:"start_date"`
	DueDate           time.Time       `json:"due_date"`
	Status            CreditStatus    `json:"status"`
	RemainingBalance  decimal.Decimal `json:"remaining_balance"`
	Notes             string          `json:"notes,omitempty"`
	Lines             []CreditLine    `json:"lines"`
	Payments          []Payment       `json:"payments"`
	CreatedAt         time.Time       `json:"created_at"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
}

// TotalPaid sums every payment on the ledger.
func (c Credit) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Collected is principal minus remaining balance. It equals TotalPaid whenever
// the payment ledger is loaded, and stays correct for header-only reads.
func (c Credit) Collected() decimal.Decimal {
	return c.Principal.Sub(c.RemainingBalance)
}

// LinesRemaining sums the per-product remaining balances. It only matches
// RemainingBalance when every payment carried product detail.
func (c Credit) LinesRemaining() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Remaining())
	}
	return total
}

// Line returns the line for productID.
func (c Credit) Line(productID int) (CreditLine, bool) {
	if i := c.lineIndex(productID); i >= 0 {
		return c.Lines[i], true
	}
	return CreditLine{}, false
}

func (c Credit) lineIndex(productID int) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy; the original shares no slices with the result.
func (c Credit) Clone() Credit {
	out := c
	out.Lines = slices.Clone(c.Lines)
	out.Payments = slices.Clone(c.Payments)
	for i := range out.Payments {
		out.Payments[i].Detail = slices.Clone(c.Payments[i].Detail)
	}
	if c.SalespersonID != nil {
		id := *c.SalespersonID
		out.SalespersonID = &id
	}
	if c.PaidAt != nil {
		t := *c.PaidAt
		out.PaidAt = &t
	}
	if c.CancelledAt != nil {
		t := *c.CancelledAt
		out.CancelledAt = &t
	}
	return out
}
