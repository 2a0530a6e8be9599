package core_test

import (
	"context"
	"testing"
	"time"

	"credit-sales/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, now time.Time, lines ...core.CreditLine) (*core.PaymentLedger, int) {
	t.Helper()
	store := core.NewMemoryCreditStore()
	c := openCredit(t, 4, lines...)
	c.ID = 0
	c.CreditNumber = ""
	stored := store.Add(c)
	return core.NewPaymentLedger(store, core.FixedClock{At: now}), stored.ID
}

func TestPaymentLedger_AutoDistribute(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 2, 3, 10, 30, 0, 0, time.UTC)
	ledger, id := newLedger(t, now, line(1, "30.00"), line(2, "70.00"))

	credit, payment, err := ledger.ApplyPayment(ctx, id, core.PaymentRequest{Amount: money("50.00")}, true)
	require.NoError(t, err)

	assert.Equal(t, now, payment.PaidAt)
	assert.Equal(t, "RC-MEM-00001", payment.ReceiptNumber)
	assert.NotZero(t, payment.ID)
	require.Len(t, payment.Detail, 2)
	assertMoney(t, "15.00", payment.Detail[0].Amount)
	assertMoney(t, "35.00", payment.Detail[1].Amount)
	assertMoney(t, "15.00", credit.Lines[0].PaidToDate)
	assertMoney(t, "35.00", credit.Lines[1].PaidToDate)
	assertMoney(t, "50.00", credit.RemainingBalance)
	assert.True(t, credit.LinesRemaining().Equal(credit.RemainingBalance))
}

func TestPaymentLedger_ExplicitDetailWins(t *testing.T) {
	ctx := context.Background()
	ledger, id := newLedger(t, day(2024, 2, 3), line(1, "30.00"), line(2, "70.00"))

	credit, payment, err := ledger.ApplyPayment(ctx, id, pay("10.00", detail(2, "10.00")), true)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 1), payment.PaidAt)
	assertMoney(t, "0.00", credit.Lines[0].PaidToDate)
	assertMoney(t, "10.00", credit.Lines[1].PaidToDate)
}

func TestPaymentLedger_RejectionsLeaveCreditUnchanged(t *testing.T) {
	ctx := context.Background()
	ledger, id := newLedger(t, day(2024, 2, 3), line(1, "30.00"), line(2, "70.00"))

	_, _, err := ledger.ApplyPayment(ctx, id, pay("100.01"), true)
	assert.ErrorIs(t, err, core.ErrOverpaymentRejected)

	_, _, err = ledger.ApplyPayment(ctx, id, pay("40.00", detail(1, "15.00"), detail(2, "24.99")), false)
	assert.ErrorIs(t, err, core.ErrDetailSumMismatch)

	progress, err := ledger.Progress(ctx, id)
	require.NoError(t, err)
	assertMoney(t, "0.00", progress.TotalPaid)
	assertMoney(t, "100.00", progress.RemainingBalance)
}

func TestPaymentLedger_PreviewDistribution(t *testing.T) {
	ctx := context.Background()
	ledger, id := newLedger(t, day(2024, 2, 3), line(1, "30.00"), line(2, "70.00"))

	preview, err := ledger.PreviewDistribution(ctx, id, money("50.00"))
	require.NoError(t, err)
	assertMoney(t, "15.00", preview[0].Amount)
	assertMoney(t, "35.00", preview[1].Amount)

	// Previewing records nothing.
	progress, err := ledger.Progress(ctx, id)
	require.NoError(t, err)
	assertMoney(t, "0.00", progress.TotalPaid)

	_, err = ledger.Cancel(ctx, id)
	require.NoError(t, err)
	_, err = ledger.PreviewDistribution(ctx, id, money("50.00"))
	assert.ErrorIs(t, err, core.ErrCreditClosed)
}

func TestPaymentLedger_Cancel(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 2, 3)
	ledger, id := newLedger(t, now, line(1, "100.00"))

	credit, err := ledger.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.CreditStatusCancelled, credit.Status)
	require.NotNil(t, credit.CancelledAt)
	assert.Equal(t, now, *credit.CancelledAt)

	_, err = ledger.Cancel(ctx, id)
	assert.ErrorIs(t, err, core.ErrCreditClosed)

	_, _, err = ledger.ApplyPayment(ctx, id, pay("10.00"), true)
	assert.ErrorIs(t, err, core.ErrCreditClosed)
}

func TestPaymentLedger_ProgressUsesClock(t *testing.T) {
	ctx := context.Background()
	ledger, id := newLedger(t, day(2024, 2, 20), line(1, "100.00"))

	p, err := ledger.Progress(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.CreditStatusOverdue, p.Status)
	assert.Equal(t, 5, p.DaysOverdue)
}
