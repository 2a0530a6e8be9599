package repl

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"credit-sales/internal/ai"
	"credit-sales/internal/app"
	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	app.ApplicationService
	notes    []string
	results  []*app.AssistantResult
	payments []app.RecordPaymentRequest
	created  []app.CreateCreditRequest
}

func (f *fakeService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	return &core.Company{ID: 1, CompanyCode: "1000", Name: "Global", BaseCurrency: "USD"}, nil
}

func (f *fakeService) InterpretPayment(ctx context.Context, companyCode, note string) (*app.AssistantResult, error) {
	f.notes = append(f.notes, note)
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func (f *fakeService) RecordPayment(ctx context.Context, req app.RecordPaymentRequest) (*app.PaymentResult, error) {
	f.payments = append(f.payments, req)
	return &app.PaymentResult{
		Payment: &core.Payment{ReceiptNumber: "RC-2024-00003"},
		Credit:  &core.Credit{CreditNumber: "CR-GLOBAL-00001", RemainingBalance: decimal.RequireFromString("250")},
	}, nil
}

func (f *fakeService) CreateCredit(ctx context.Context, req app.CreateCreditRequest) (*app.CreditResult, error) {
	f.created = append(f.created, req)
	return nil, core.ErrCreditLimitExceeded
}

func proposal() *app.AssistantResult {
	return &app.AssistantResult{
		Proposal: &ai.PaymentProposal{CreditNumber: "CR-GLOBAL-00001", CustomerName: "Maria", Amount: "50.00", Method: "CASH", Confidence: 0.9},
		Credit:   &core.Credit{CreditNumber: "CR-GLOBAL-00001", RemainingBalance: decimal.RequireFromString("300")},
		Request:  &app.RecordPaymentRequest{CompanyCode: "1000", CreditRef: "CR-GLOBAL-00001", Amount: "50.00", AutoDistribute: true},
	}
}

func runSession(t *testing.T, svc *fakeService, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, bufio.NewReader(strings.NewReader(input)), &out))
	return out.String()
}

func TestAssist_ClarifyThenRecord(t *testing.T) {
	svc := &fakeService{results: []*app.AssistantResult{
		{IsClarification: true, ClarificationMessage: "Which Maria?"},
		proposal(),
	}}
	out := runSession(t, svc, "Maria paid 50\nMaria Lopez\ny\n/exit\n")

	require.Len(t, svc.notes, 2)
	assert.Contains(t, svc.notes[1], "Collector answered: Maria Lopez")
	require.Len(t, svc.payments, 1)
	assert.Equal(t, "repl", svc.payments[0].RecordedBy)
	assert.True(t, svc.payments[0].AutoDistribute)
	assert.Contains(t, out, "Payment RC-2024-00003 RECORDED")
	assert.Contains(t, out, "Goodbye!")
}

func TestAssist_Declined(t *testing.T) {
	svc := &fakeService{results: []*app.AssistantResult{proposal()}}
	out := runSession(t, svc, "Maria paid 50\nn\n")
	assert.Empty(t, svc.payments)
	assert.Contains(t, out, "Payment not recorded.")
}

func TestAssist_GivesUpAfterClarifications(t *testing.T) {
	ask := &app.AssistantResult{IsClarification: true, ClarificationMessage: "How much?"}
	svc := &fakeService{results: []*app.AssistantResult{ask, ask, ask}}
	out := runSession(t, svc, "Maria paid\nsome\nstill some\nmore\n")
	assert.Len(t, svc.notes, 3)
	assert.Contains(t, out, "Could not produce a proposal.")
}

func TestNewCreditWizard(t *testing.T) {
	svc := &fakeService{}
	out := runSession(t, svc, "/new-credit c001\nP001 2 150.00\nbad\nP002 1\ndone\nWEEKLY\n8\n\nS01\n2024-03-01\nfridge\n")

	require.Len(t, svc.created, 1)
	req := svc.created[0]
	assert.Equal(t, "C001", req.CustomerCode)
	assert.Equal(t, "S01", req.SalespersonCode)
	assert.Equal(t, "2024-03-01", req.StartDate)
	assert.Equal(t, "WEEKLY", req.Frequency)
	assert.Equal(t, 8, req.InstallmentCount)
	assert.True(t, req.InstallmentAmount.IsZero())
	require.Len(t, req.Lines, 2)
	assert.Equal(t, "150", req.Lines[0].UnitPrice.String())
	assert.Contains(t, out, "invalid format")
	assert.Contains(t, out, "Error creating credit")
}
