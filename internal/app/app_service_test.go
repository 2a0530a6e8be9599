package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"credit-sales/internal/ai"
	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeCompanies struct{ core.CompanyService }

func (fakeCompanies) GetCompany(_ context.Context, code string) (*core.Company, error) {
	switch code {
	case "1000":
		return &core.Company{ID: 1, CompanyCode: "1000"}, nil
	case "2000":
		return &core.Company{ID: 2, CompanyCode: "2000"}, nil
	}
	return nil, fmt.Errorf("company %s: %w", code, core.ErrNotFound)
}

// fakeCredits keeps credits in a MemoryCreditStore and indexes them by number.
type fakeCredits struct {
	core.CreditService
	store    *core.MemoryCreditStore
	byNumber map[string]int
	order    []int
}

func newFakeCredits() *fakeCredits {
	return &fakeCredits{store: core.NewMemoryCreditStore(), byNumber: map[string]int{}}
}

func (f *fakeCredits) add(c core.Credit) core.Credit {
	c = f.store.Add(c)
	f.byNumber[c.CreditNumber] = c.ID
	f.order = append(f.order, c.ID)
	return c
}

func (f *fakeCredits) GetCredit(ctx context.Context, id int) (*core.Credit, error) {
	return f.store.Load(ctx, id)
}

func (f *fakeCredits) GetCreditByNumber(ctx context.Context, _ string, number string) (*core.Credit, error) {
	id, ok := f.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrCreditNotFound, number)
	}
	return f.store.Load(ctx, id)
}

func (f *fakeCredits) GetCredits(ctx context.Context, _ string, filter core.CreditFilter) ([]core.Credit, error) {
	var out []core.Credit
	for _, id := range f.order {
		c, err := f.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if filter.Status == core.CreditStatusActive && c.Status != core.CreditStatusActive {
			continue
		}
		c.Lines, c.Payments = nil, nil
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCredits) CreateCredit(_ context.Context, _ string, in core.CreditInput) (*core.Credit, error) {
	lines := make([]core.CreditLine, len(in.Lines))
	for i, l := range in.Lines {
		lines[i] = core.CreditLine{ProductID: i + 1, ProductCode: l.ProductCode, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	c, _, err := core.OpenCredit(core.CreditTerms{
		Lines: lines, InstallmentCount: in.InstallmentCount, Frequency: in.Frequency,
		StartDate: in.StartDate, InstallmentAmount: in.InstallmentAmount,
	})
	if err != nil {
		return nil, err
	}
	c.CompanyID = 1
	c.CustomerCode = in.CustomerCode
	c = f.add(c)
	return &c, nil
}

func (f *fakeCredits) CancelCredit(ctx context.Context, id int, at time.Time) (*core.Credit, error) {
	return f.store.Mutate(ctx, id, func(c core.Credit) (core.Credit, error) {
		return core.CancelCredit(c, at)
	})
}

type fakeReports struct {
	core.ReportingService
	from, to time.Time
}

func (r *fakeReports) GetCollections(_ context.Context, _ string, from, to time.Time) ([]core.DailyCollection, error) {
	r.from, r.to = from, to
	return nil, nil
}

type fakeInterpreter struct {
	proposal *ai.PaymentProposal
	hints    []ai.CreditHint
}

func (f *fakeInterpreter) InterpretPayment(_ context.Context, _ string, hints []ai.CreditHint, _ time.Time) (*ai.PaymentProposal, error) {
	f.hints = hints
	return f.proposal, nil
}

type countingMetrics struct {
	applied, opened, cancelled int
	rejected                   map[string]int
}

func (m *countingMetrics) RecordPayment(err error, reasons map[error]string) {
	if err == nil {
		m.applied++
		return
	}
	for target, reason := range reasons {
		if errors.Is(err, target) {
			m.rejected[reason]++
			return
		}
	}
	m.rejected["other"]++
}
func (m *countingMetrics) CreditOpened()    { m.opened++ }
func (m *countingMetrics) CreditCancelled() { m.cancelled++ }

// ── fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	svc     ApplicationService
	credits *fakeCredits
	reports *fakeReports
	ai      *fakeInterpreter
	metrics *countingMetrics
	credit  core.Credit
}

// newFixture opens a MONTHLY 4-installment credit on 2024-01-15 for
// P001 300.00 and P002 200.00, seen from 2024-03-01.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, _, err := core.OpenCredit(core.CreditTerms{
		Lines: []core.CreditLine{
			{ProductID: 11, ProductCode: "P001", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("300")},
			{ProductID: 12, ProductCode: "P002", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("200")},
		},
		InstallmentCount: 4,
		Frequency:        core.Monthly,
		StartDate:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	c.CompanyID = 1
	c.CustomerName = "Maria Lopez"
	c.CreditNumber = "CR-GLOBAL-00001"

	f := &fixture{
		credits: newFakeCredits(),
		reports: &fakeReports{},
		ai:      &fakeInterpreter{},
		metrics: &countingMetrics{rejected: map[string]int{}},
	}
	f.credit = f.credits.add(c)
	clock := core.FixedClock{At: testToday}
	f.svc = NewAppService(Deps{
		Companies:   fakeCompanies{},
		Credits:     f.credits,
		Ledger:      core.NewPaymentLedger(f.credits.store, clock),
		Reports:     f.reports,
		Interpreter: f.ai,
		Clock:       clock,
		Metrics:     f.metrics,
	})
	return f
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestGetCredit_ResolvesIDAndNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, ref := range []string{"1", "CR-GLOBAL-00001", " cr-global-00001 "} {
		res, err := f.svc.GetCredit(ctx, "1000", ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "CR-GLOBAL-00001", res.Credit.CreditNumber)
	}

	res, err := f.svc.GetCredit(ctx, "1000", "1")
	require.NoError(t, err)
	assert.Equal(t, core.CreditStatusOverdue, res.Credit.Status)
	assert.Len(t, res.Schedule, 4)
	assert.Equal(t, 15, res.Progress.DaysOverdue)
}

func TestGetCredit_OtherCompanyIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetCredit(context.Background(), "2000", "1")
	assert.ErrorIs(t, err, core.ErrCreditNotFound)

	_, err = f.svc.GetCredit(context.Background(), "1000", "CR-GLOBAL-09999")
	assert.ErrorIs(t, err, core.ErrCreditNotFound)
}

func TestRecordPayment_AutoDistribute(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.RecordPayment(context.Background(), RecordPaymentRequest{
		CompanyCode: "1000", CreditRef: "CR-GLOBAL-00001", Amount: "100.00", AutoDistribute: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "400.00", res.Credit.RemainingBalance.StringFixed(2))
	assert.Equal(t, core.PaymentMethodCash, res.Payment.Method)
	assert.Equal(t, testToday, res.Payment.PaidAt)
	require.Len(t, res.Payment.Detail, 2)
	assert.Equal(t, "60.00", res.Credit.Lines[0].PaidToDate.StringFixed(2))
	assert.Equal(t, "40.00", res.Credit.Lines[1].PaidToDate.StringFixed(2))
	assert.Equal(t, 1, f.metrics.applied)
}

func TestRecordPayment_ExplicitDetailByProductCode(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.RecordPayment(context.Background(), RecordPaymentRequest{
		CompanyCode: "1000", CreditRef: "1", Amount: "50.00", Method: "transfer",
		Detail: []PaymentDetailRequest{{ProductCode: "P002", Amount: "50.00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentMethodTransfer, res.Payment.Method)
	assert.Equal(t, "0.00", res.Credit.Lines[0].PaidToDate.StringFixed(2))
	assert.Equal(t, "50.00", res.Credit.Lines[1].PaidToDate.StringFixed(2))
}

func TestRecordPayment_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		req    RecordPaymentRequest
		target error
		reason string
	}{
		{"overpayment", RecordPaymentRequest{Amount: "500.01"}, core.ErrOverpaymentRejected, "overpayment"},
		{"sub-cent amount", RecordPaymentRequest{Amount: "10.005"}, core.ErrInvalidAmount, "invalid_amount"},
		{"not a number", RecordPaymentRequest{Amount: "ten"}, core.ErrInvalidAmount, "invalid_amount"},
		{"unknown product", RecordPaymentRequest{Amount: "10.00",
			Detail: []PaymentDetailRequest{{ProductCode: "P999", Amount: "10.00"}}}, core.ErrUnknownLine, "unknown_line"},
		{"detail mismatch", RecordPaymentRequest{Amount: "10.00",
			Detail: []PaymentDetailRequest{{ProductCode: "P001", Amount: "9.00"}}}, core.ErrDetailSumMismatch, "detail_mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.req.CompanyCode, tt.req.CreditRef = "1000", "1"
			_, err := f.svc.RecordPayment(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, 1, f.metrics.rejected[tt.reason])

			c, err := f.credits.store.Load(context.Background(), 1)
			require.NoError(t, err)
			assert.Empty(t, c.Payments, "a rejected payment leaves no trace")
		})
	}
}

func TestRecordPayment_PaysOffThenClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.RecordPayment(ctx, RecordPaymentRequest{CompanyCode: "1000", CreditRef: "1", Amount: "500.00"})
	require.NoError(t, err)
	assert.Equal(t, core.CreditStatusPaid, res.Credit.Status)

	_, err = f.svc.RecordPayment(ctx, RecordPaymentRequest{CompanyCode: "1000", CreditRef: "1", Amount: "1.00"})
	assert.ErrorIs(t, err, core.ErrCreditClosed)
	assert.Equal(t, 1, f.metrics.rejected["credit_closed"])
}

func TestPreviewDistribution(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.PreviewDistribution(context.Background(), "1000", "1", "125.00")
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, "P001", res.Lines[0].ProductCode)
	assert.Equal(t, "75.00", res.Lines[0].Amount.StringFixed(2))
	assert.Equal(t, "50.00", res.Lines[1].Amount.StringFixed(2))

	c, err := f.credits.store.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, c.Payments)
}

func TestGetProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.RecordPayment(ctx, RecordPaymentRequest{CompanyCode: "1000", CreditRef: "1", Amount: "250.00", AutoDistribute: true})
	require.NoError(t, err)

	p, err := f.svc.GetProgress(ctx, "1000", "CR-GLOBAL-00001")
	require.NoError(t, err)
	assert.Equal(t, core.CreditStatusActive, p.Status)
	assert.Equal(t, "2", p.EquivalentInstallments.String())
	assert.Equal(t, "2024-04-15", p.NextDueDate.Format(time.DateOnly))
}

func TestCreateAndCancelCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateCredit(ctx, CreateCreditRequest{
		CompanyCode: "1000", CustomerCode: "C001", Frequency: "weekly", InstallmentCount: 3,
		Lines: []CreditLineRequest{{ProductCode: "P001", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("50")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.Credit.Principal.StringFixed(2))
	assert.Equal(t, "2024-03-01", res.Credit.StartDate.Format(time.DateOnly), "start defaults to today")
	assert.Equal(t, "2024-03-22", res.Credit.DueDate.Format(time.DateOnly))
	assert.Equal(t, 1, f.metrics.opened)

	cancelled, err := f.svc.CancelCredit(ctx, "1000", res.Credit.CreditNumber)
	require.NoError(t, err)
	assert.Equal(t, core.CreditStatusCancelled, cancelled.Credit.Status)
	assert.Equal(t, 1, f.metrics.cancelled)

	_, err = f.svc.CreateCredit(ctx, CreateCreditRequest{CompanyCode: "1000", Frequency: "fortnightly", InstallmentCount: 3})
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)
}

func TestListCredits_ClassifiesOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.svc.ListCredits(ctx, "1000", "", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, core.CreditStatusOverdue, all[0].Status)

	active, err := f.svc.ListCredits(ctx, "1000", core.CreditStatusActive, "")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPlanCredit(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.PlanCredit(context.Background(), PlanRequest{
		Principal: decimal.RequireFromString("1000"), InstallmentCount: 3,
		Frequency: "EVERY_N_DAYS(10)", StartDate: "2024-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "333.33", res.InstallmentAmount.StringFixed(2))
	assert.Equal(t, "2024-03-01", res.Plan.MaturityDate.Format(time.DateOnly))

	_, err = f.svc.PlanCredit(context.Background(), PlanRequest{
		Principal: decimal.RequireFromString("1000"), InstallmentCount: 0, Frequency: "MONTHLY",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInstallmentPlan)
}

func TestGetCollections_DefaultsToMonthToDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetCollections(context.Background(), "1000", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", f.reports.from.Format(time.DateOnly))
	assert.Equal(t, "2024-03-01", f.reports.to.Format(time.DateOnly))

	_, err = f.svc.GetCollections(context.Background(), "1000",
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestInterpretPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ai.proposal = &ai.PaymentProposal{
		CreditNumber: "CR-GLOBAL-00001", Amount: "125.00", Method: "CASH", PaidOn: "2024-02-29",
	}

	res, err := f.svc.InterpretPayment(ctx, "1000", "Maria paid 125 yesterday")
	require.NoError(t, err)
	require.False(t, res.IsClarification)
	require.Len(t, f.ai.hints, 1)
	assert.Equal(t, "500.00", f.ai.hints[0].RemainingBalance)

	require.NotNil(t, res.Request)
	assert.Equal(t, "CR-GLOBAL-00001", res.Request.CreditRef)
	assert.Equal(t, "125.00", res.Request.Amount)
	assert.Equal(t, "2024-02-29", res.Request.PaidAt.Format(time.DateOnly))

	// Confirming is an ordinary RecordPayment.
	paid, err := f.svc.RecordPayment(ctx, *res.Request)
	require.NoError(t, err)
	assert.Equal(t, "375.00", paid.Credit.RemainingBalance.StringFixed(2))
}

func TestInterpretPayment_UnknownCreditAsksBack(t *testing.T) {
	f := newFixture(t)
	f.ai.proposal = &ai.PaymentProposal{CreditNumber: "CR-GLOBAL-00077", Amount: "10.00"}

	res, err := f.svc.InterpretPayment(context.Background(), "1000", "someone paid 10")
	require.NoError(t, err)
	assert.True(t, res.IsClarification)
	assert.Contains(t, res.ClarificationMessage, "CR-GLOBAL-00077")
}

func TestInterpretPayment_Clarification(t *testing.T) {
	f := newFixture(t)
	f.ai.proposal = &ai.PaymentProposal{IsClarification: true, ClarificationMessage: "How much?"}

	res, err := f.svc.InterpretPayment(context.Background(), "1000", "Maria paid")
	require.NoError(t, err)
	assert.True(t, res.IsClarification)
	assert.Equal(t, "How much?", res.ClarificationMessage)
}

func TestInterpretPayment_Unavailable(t *testing.T) {
	svc := NewAppService(Deps{})
	_, err := svc.InterpretPayment(context.Background(), "1000", "x")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
}
