package core

import "errors"

// Credit domain errors. All are caller-facing validation failures; callers
// match them with errors.Is after any wrapping.
var (
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrInvalidInstallmentPlan = errors.New("invalid installment plan")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAllocationMismatch     = errors.New("line subtotals do not reconcile with principal")
	ErrDetailSumMismatch      = errors.New("payment detail does not sum to payment amount")
	ErrOverpaymentRejected    = errors.New("payment exceeds remaining balance")
	ErrLineOverpayment        = errors.New("payment detail exceeds line remaining balance")
	ErrCreditClosed           = errors.New("credit is closed")
	ErrNothingToDistribute    = errors.New("nothing to distribute")
	ErrUnknownLine            = errors.New("product is not a line of this credit")
	ErrInvalidCreditLine      = errors.New("invalid credit line")
	ErrCreditNotFound         = errors.New("credit not found")
)

// Errors raised by the persistence services around the credit core.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
)
