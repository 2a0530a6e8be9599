package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentLedger applies payments and cancellations to stored credits, one
// credit at a time, through the store's atomic Mutate.
type PaymentLedger struct {
	store CreditStore
	clock Clock
}

func NewPaymentLedger(store CreditStore, clock Clock) *PaymentLedger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PaymentLedger{store: store, clock: clock}
}

// ApplyPayment records req against the credit. A zero PaidAt is stamped with
// the ledger's clock. With autoDistribute set and no explicit detail, the
// amount is split across the lines in proportion to their remaining balances
// before it is applied.
func (l *PaymentLedger) ApplyPayment(ctx context.Context, creditID int, req PaymentRequest, autoDistribute bool) (*Credit, *Payment, error) {
	if req.PaidAt.IsZero() {
		req.PaidAt = l.clock.Now()
	}

	updated, err := l.store.Mutate(ctx, creditID, func(c Credit) (Credit, error) {
		if autoDistribute && len(req.Detail) == 0 && !c.Status.IsClosed() {
			detail, err := DistributePayment(c.Lines, req.Amount)
			if err != nil {
				return c, err
			}
			req.Detail = detail
		}
		next, _, err := ApplyPayment(c, req)
		return next, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply payment to credit %d: %w", creditID, err)
	}

	// Mutate fills in the receipt number, so take the payment from the stored credit.
	payment := updated.Payments[len(updated.Payments)-1]
	return updated, &payment, nil
}

// PreviewDistribution computes the proportional split of amount for the
// credit without recording anything.
func (l *PaymentLedger) PreviewDistribution(ctx context.Context, creditID int, amount decimal.Decimal) ([]PaymentDetail, error) {
	c, err := l.store.Load(ctx, creditID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsClosed() {
		return nil, fmt.Errorf("%w: %s is %s", ErrCreditClosed, creditRef(*c), c.Status)
	}
	return DistributePayment(c.Lines, amount)
}

// Cancel closes an open credit.
func (l *PaymentLedger) Cancel(ctx context.Context, creditID int) (*Credit, error) {
	at := l.clock.Now()
	updated, err := l.store.Mutate(ctx, creditID, func(c Credit) (Credit, error) {
		return CancelCredit(c, at)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel credit %d: %w", creditID, err)
	}
	return updated, nil
}

// Progress projects the credit's progress as of the ledger's clock.
func (l *PaymentLedger) Progress(ctx context.Context, creditID int) (*CreditProgress, error) {
	c, err := l.store.Load(ctx, creditID)
	if err != nil {
		return nil, err
	}
	p, err := EstimateCreditProgress(*c, l.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to estimate progress for credit %d: %w", creditID, err)
	}
	return &p, nil
}
