package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
)

// PaymentProposal is the model's structured reading of a collector's note.
// Either IsClarification is set with a question for the collector, or the
// payment fields are filled in. Amount stays a string so the model never
// hands back a float.
type PaymentProposal struct {
	IsClarification      bool    `json:"is_clarification" jsonschema_description:"True when the note is ambiguous and a question must be asked instead of proposing a payment"`
	ClarificationMessage string  `json:"clarification_message" jsonschema_description:"The question for the collector; empty unless is_clarification"`
	CreditNumber         string  `json:"credit_number" jsonschema_description:"Credit number exactly as listed, e.g. CR-GLOBAL-00012"`
	CustomerName         string  `json:"customer_name" jsonschema_description:"Customer name as written in the note"`
	Amount               string  `json:"amount" jsonschema_description:"Amount paid with two decimals, e.g. 150.00"`
	Method               string  `json:"method" jsonschema:"enum=CASH,enum=TRANSFER,enum=CARD,enum=CHECK"`
	PaidOn               string  `json:"paid_on" jsonschema_description:"Payment date YYYY-MM-DD; empty when the note does not say"`
	Notes                string  `json:"notes" jsonschema_description:"Anything else worth recording with the payment"`
	Confidence           float64 `json:"confidence" jsonschema_description:"0.0 to 1.0"`
	Reasoning            string  `json:"reasoning"`
}

var errEmptyProposal = errors.New("proposal has no payment and no clarification")

// Normalize trims fields and upper-cases the credit number and method.
func (p *PaymentProposal) Normalize() {
	p.ClarificationMessage = strings.TrimSpace(p.ClarificationMessage)
	p.CreditNumber = strings.ToUpper(strings.TrimSpace(p.CreditNumber))
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.Amount = strings.TrimSpace(p.Amount)
	p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
	p.PaidOn = strings.TrimSpace(p.PaidOn)
	p.Notes = strings.TrimSpace(p.Notes)
	if p.Confidence < 0 {
		p.Confidence = 0
	}
	if p.Confidence > 1 {
		p.Confidence = 1
	}
}

// Validate checks the proposal can be turned into a payment request.
func (p *PaymentProposal) Validate() error {
	if p.IsClarification {
		if p.ClarificationMessage == "" {
			return fmt.Errorf("clarification requested without a message")
		}
		return nil
	}
	if p.CreditNumber == "" && p.Amount == "" {
		return errEmptyProposal
	}
	if p.CreditNumber == "" {
		return fmt.Errorf("credit number is required")
	}
	_, err := p.ToRequest(time.Time{})
	return err
}

// ToRequest converts the proposal into a PaymentRequest. A missing PaidOn
// leaves PaidAt as fallback.
func (p *PaymentProposal) ToRequest(fallback time.Time) (core.PaymentRequest, error) {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return core.PaymentRequest{}, fmt.Errorf("%w: amount %q", core.ErrInvalidAmount, p.Amount)
	}
	if !amount.IsPositive() || !core.IsMoney(amount) {
		return core.PaymentRequest{}, fmt.Errorf("%w: amount %s", core.ErrInvalidAmount, amount)
	}
	method, err := core.ParsePaymentMethod(p.Method)
	if err != nil {
		return core.PaymentRequest{}, err
	}

	paidAt := fallback
	if p.PaidOn != "" {
		d, err := core.ParseDate(p.PaidOn)
		if err != nil {
			return core.PaymentRequest{}, fmt.Errorf("paid_on: %w", err)
		}
		paidAt = d
	}

	return core.PaymentRequest{
		Amount: amount,
		Method: method,
		PaidAt: paidAt,
		Notes:  p.Notes,
	}, nil
}
