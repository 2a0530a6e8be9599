package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"credit-sales/internal/ai"
	"credit-sales/internal/app"
	"credit-sales/internal/core"
	"credit-sales/internal/observability"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// fakeService implements only what the routes under test call.
type fakeService struct {
	app.ApplicationService

	paymentErr error
	payments   []app.RecordPaymentRequest
	assistant  *app.AssistantResult
}

func (f *fakeService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	return &core.Company{ID: 1, CompanyCode: "1000"}, nil
}

func (f *fakeService) AuthenticateUser(ctx context.Context, username, password string) (*app.UserSession, error) {
	if password != "secret" {
		return nil, core.ErrInvalidCredentials
	}
	return &app.UserSession{UserID: 7, Username: username, Role: core.RoleCollector, CompanyID: 1, CompanyCode: "1000"}, nil
}

func (f *fakeService) RecordPayment(ctx context.Context, req app.RecordPaymentRequest) (*app.PaymentResult, error) {
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	f.payments = append(f.payments, req)
	return &app.PaymentResult{
		Payment: &core.Payment{ID: len(f.payments), Amount: decimal.RequireFromString(req.Amount)},
		Credit:  &core.Credit{CreditNumber: "CR-GLOBAL-00001"},
	}, nil
}

func (f *fakeService) GetOverdueCredits(ctx context.Context, companyCode string) ([]core.OverdueCredit, error) {
	return nil, nil
}

func (f *fakeService) InterpretPayment(ctx context.Context, companyCode, note string) (*app.AssistantResult, error) {
	return f.assistant, nil
}

func newTestHandler(svc app.ApplicationService, m *observability.Metrics) *Handler {
	return NewHandler(svc, Options{JWTSecret: testSecret, Metrics: m, InsecureCookies: true})
}

func authed(t *testing.T, h *Handler, req *http.Request, role, company string) *http.Request {
	t.Helper()
	tok, err := h.signToken(AuthClaims{UserID: 7, Username: "ana", CompanyID: 1, CompanyCode: company, Role: role}, time.Now())
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: authCookie, Value: tok})
	return req
}

func do(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&fakeService{}, nil)
	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","company":"1000"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestLogin(t *testing.T) {
	h := newTestHandler(&fakeService{}, nil)

	rec := do(h, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"ana","password":"secret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	claims, err := h.parseToken(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "1000", claims.CompanyCode)
	assert.Equal(t, core.RoleCollector, claims.Role)

	rec = do(h, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"ana","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccessControl(t *testing.T) {
	h := newTestHandler(&fakeService{}, nil)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/companies/1000/reports/overdue", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/companies/1000/reports/overdue", nil)
	req.AddCookie(&http.Cookie{Name: authCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, do(h, req).Code)

	req = authed(t, h, httptest.NewRequest(http.MethodGet, "/api/companies/2000/reports/overdue", nil), core.RoleManager, "1000")
	rec = do(h, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	req = authed(t, h, httptest.NewRequest(http.MethodPost, "/api/companies/1000/reports/refresh", nil), core.RoleCollector, "1000")
	assert.Equal(t, http.StatusForbidden, do(h, req).Code)

	req = authed(t, h, httptest.NewRequest(http.MethodGet, "/api/companies/1000/reports/overdue", nil), core.RoleCollector, "1000")
	rec = do(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecordPayment(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(svc, nil)

	req := authed(t, h, httptest.NewRequest(http.MethodPost, "/api/companies/1000/credits/CR-GLOBAL-00001/payments",
		strings.NewReader(`{"amount":"125.00","method":"CASH","paid_on":"2024-03-01","auto_distribute":true}`)),
		core.RoleCollector, "1000")
	rec := do(h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, svc.payments, 1)
	got := svc.payments[0]
	assert.Equal(t, "1000", got.CompanyCode)
	assert.Equal(t, "CR-GLOBAL-00001", got.CreditRef)
	assert.Equal(t, "ana", got.RecordedBy)
	assert.True(t, got.AutoDistribute)
	assert.Equal(t, "2024-03-01", got.PaidAt.Format("2006-01-02"))
}

func TestRecordPayment_BadRequests(t *testing.T) {
	h := newTestHandler(&fakeService{}, nil)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"amount":`},
		{"unknown field", `{"amount":"1.00","tip":"2.00"}`},
		{"bad date", `{"amount":"1.00","paid_on":"01/03/2024"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authed(t, h, httptest.NewRequest(http.MethodPost, "/api/companies/1000/credits/1/payments",
				strings.NewReader(tt.body)), core.RoleCollector, "1000")
			rec := do(h, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "BAD_REQUEST", errorCode(t, rec))
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("credit 9: %w", core.ErrCreditNotFound), http.StatusNotFound, "CREDIT_NOT_FOUND"},
		{core.ErrCreditClosed, http.StatusConflict, "CREDIT_CLOSED"},
		{fmt.Errorf("pay 500.00 of 300.00: %w", core.ErrOverpaymentRejected), http.StatusUnprocessableEntity, "OVERPAYMENT_REJECTED"},
		{core.ErrDetailSumMismatch, http.StatusUnprocessableEntity, "DETAIL_SUM_MISMATCH"},
		{core.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := newTestHandler(&fakeService{paymentErr: tt.err}, nil)
			req := authed(t, h, httptest.NewRequest(http.MethodPost, "/api/companies/1000/credits/1/payments",
				strings.NewReader(`{"amount":"500.00"}`)), core.RoleCollector, "1000")
			rec := do(h, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestAssistantFlow(t *testing.T) {
	svc := &fakeService{assistant: &app.AssistantResult{
		Proposal: &ai.PaymentProposal{CreditNumber: "CR-GLOBAL-00001", Amount: "50.00", Method: "CASH"},
		Credit:   &core.Credit{CreditNumber: "CR-GLOBAL-00001", CustomerName: "Maria", RemainingBalance: decimal.RequireFromString("300")},
		Request:  &app.RecordPaymentRequest{CompanyCode: "1000", CreditRef: "CR-GLOBAL-00001", Amount: "50.00", AutoDistribute: true},
	}}
	h := newTestHandler(svc, nil)

	req := authed(t, h, httptest.NewRequest(http.MethodPost, "/api/companies/1000/assistant/payment",
		strings.NewReader(`{"note":"Maria paid 50"}`)), core.RoleCollector, "1000")
	rec := do(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var proposed assistantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proposed))
	require.NotEmpty(t, proposed.Token)
	assert.Equal(t, "300.00", proposed.RemainingBalance)
	assert.Empty(t, svc.payments)

	confirm := func() *httptest.ResponseRecorder {
		req := authed(t, h, httptest.NewRequest(http.MethodPost, "/api/companies/1000/assistant/confirm",
			strings.NewReader(`{"token":"`+proposed.Token+`"}`)), core.RoleCollector, "1000")
		return do(h, req)
	}
	require.Equal(t, http.StatusCreated, confirm().Code)
	require.Len(t, svc.payments, 1)
	assert.Equal(t, "ana", svc.payments[0].RecordedBy)

	rec = confirm()
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PROPOSAL_EXPIRED", errorCode(t, rec))
}

func TestAssistantClarification(t *testing.T) {
	svc := &fakeService{assistant: &app.AssistantResult{IsClarification: true, ClarificationMessage: "Which credit?"}}
	h := newTestHandler(svc, nil)

	req := authed(t, h, httptest.NewRequest(http.MethodPost, "/api/companies/1000/assistant/payment",
		strings.NewReader(`{"note":"Maria paid"}`)), core.RoleCollector, "1000")
	rec := do(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_clarification":true,"clarification_message":"Which credit?"}`, rec.Body.String())
}

func TestPendingStoreExpiry(t *testing.T) {
	s := newPendingStore()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.put("old", pendingPayment{CreatedAt: now.Add(-pendingTTL - time.Second)})
	s.put("fresh", pendingPayment{CreatedAt: now})
	s.purge()

	_, ok := s.take("old", 0, "")
	assert.False(t, ok)
	_, ok = s.take("fresh", 0, "")
	assert.True(t, ok)
	_, ok = s.take("fresh", 0, "")
	assert.False(t, ok)
}

func TestAssistantConfirm_OtherUserKeepsProposal(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(svc, nil)
	h.pending.put("owned", pendingPayment{
		Request:   app.RecordPaymentRequest{CompanyCode: "1000", CreditRef: "CR-GLOBAL-00001", Amount: "50.00"},
		UserID:    99,
		CreatedAt: h.pending.now(),
	})

	req := authed(t, h, httptest.NewRequest(http.MethodPost, "/api/companies/1000/assistant/confirm",
		strings.NewReader(`{"token":"owned"}`)), core.RoleCollector, "1000")
	rec := do(h, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PROPOSAL_EXPIRED", errorCode(t, rec))
	assert.Empty(t, svc.payments)

	_, ok := h.pending.take("owned", 99, "2000")
	assert.False(t, ok)
	got, ok := h.pending.take("owned", 99, "1000")
	require.True(t, ok)
	assert.Equal(t, "CR-GLOBAL-00001", got.Request.CreditRef)
}

func TestMetricsRoutePattern(t *testing.T) {
	m := observability.NewMetrics()
	h := newTestHandler(&fakeService{}, m)

	req := authed(t, h, httptest.NewRequest(http.MethodGet, "/api/companies/1000/reports/overdue", nil), core.RoleCollector, "1000")
	require.Equal(t, http.StatusOK, do(h, req).Code)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/companies/{code}/reports/overdue"`)
}
