package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"credit-sales/internal/app"
	"credit-sales/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ── Planner ───────────────────────────────────────────────────────────────────

type planRequest struct {
	Principal         decimal.Decimal `json:"principal"`
	InstallmentCount  int             `json:"installment_count"`
	Frequency         string          `json:"frequency"`
	StartDate         string          `json:"start_date"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
}

// apiPlan handles POST /api/plan.
func (h *Handler) apiPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.PlanCredit(r.Context(), app.PlanRequest{
		Principal:         req.Principal,
		InstallmentCount:  req.InstallmentCount,
		Frequency:         req.Frequency,
		StartDate:         req.StartDate,
		InstallmentAmount: req.InstallmentAmount,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// ── Credits ───────────────────────────────────────────────────────────────────

// apiListCredits handles GET /api/companies/{code}/credits?status=&customer=.
func (h *Handler) apiListCredits(w http.ResponseWriter, r *http.Request) {
	var status core.CreditStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s, err := core.ParseCreditStatus(v)
		if err != nil {
			writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		status = s
	}

	credits, err := h.svc.ListCredits(r.Context(), companyCode(r), status, r.URL.Query().Get("customer"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if credits == nil {
		credits = []core.Credit{}
	}
	writeJSON(w, credits)
}

// apiGetCredit handles GET /api/companies/{code}/credits/{ref}.
func (h *Handler) apiGetCredit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetCredit(r.Context(), companyCode(r), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

type createCreditRequest struct {
	CustomerCode      string              `json:"customer_code"`
	SalespersonCode   string              `json:"salesperson_code"`
	StartDate         string              `json:"start_date"`
	Frequency         string              `json:"frequency"`
	InstallmentCount  int                 `json:"installment_count"`
	InstallmentAmount decimal.Decimal     `json:"installment_amount"`
	Notes             string              `json:"notes"`
	Lines             []creditLineRequest `json:"lines"`
}

type creditLineRequest struct {
	ProductCode string          `json:"product_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// apiCreateCredit handles POST /api/companies/{code}/credits.
func (h *Handler) apiCreateCredit(w http.ResponseWriter, r *http.Request) {
	var req createCreditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.CustomerCode) == "" {
		writeError(w, r, "customer_code is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, r, "at least one line is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	lines := make([]app.CreditLineRequest, len(req.Lines))
	for i, l := range req.Lines {
		if l.ProductCode == "" {
			writeError(w, r, fmt.Sprintf("line %d: product_code is required", i+1), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		lines[i] = app.CreditLineRequest{ProductCode: l.ProductCode, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}

	res, err := h.svc.CreateCredit(r.Context(), app.CreateCreditRequest{
		CompanyCode:       companyCode(r),
		CustomerCode:      req.CustomerCode,
		SalespersonCode:   req.SalespersonCode,
		StartDate:         req.StartDate,
		Frequency:         req.Frequency,
		InstallmentCount:  req.InstallmentCount,
		InstallmentAmount: req.InstallmentAmount,
		Notes:             req.Notes,
		Lines:             lines,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, res)
}

// apiCancelCredit handles POST /api/companies/{code}/credits/{ref}/cancel.
func (h *Handler) apiCancelCredit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CancelCredit(r.Context(), companyCode(r), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiCreditProgress handles GET /api/companies/{code}/credits/{ref}/progress.
func (h *Handler) apiCreditProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProgress(r.Context(), companyCode(r), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// ── Payments ──────────────────────────────────────────────────────────────────

type paymentRequest struct {
	Amount         string                 `json:"amount"`
	Method         string                 `json:"method"`
	PaidOn         string                 `json:"paid_on"`
	Notes          string                 `json:"notes"`
	AutoDistribute bool                   `json:"auto_distribute"`
	Detail         []paymentDetailRequest `json:"detail"`
}

type paymentDetailRequest struct {
	ProductCode string `json:"product_code"`
	Amount      string `json:"amount"`
}

// apiRecordPayment handles POST /api/companies/{code}/credits/{ref}/payments.
// Amounts travel as decimal strings, e.g. "125.50".
func (h *Handler) apiRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var paidAt time.Time
	if req.PaidOn != "" {
		d, err := core.ParseDate(req.PaidOn)
		if err != nil {
			writeError(w, r, "paid_on: expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		paidAt = d
	}

	detail := make([]app.PaymentDetailRequest, len(req.Detail))
	for i, d := range req.Detail {
		detail[i] = app.PaymentDetailRequest{ProductCode: d.ProductCode, Amount: d.Amount}
	}

	res, err := h.svc.RecordPayment(r.Context(), app.RecordPaymentRequest{
		CompanyCode:    companyCode(r),
		CreditRef:      chi.URLParam(r, "ref"),
		Amount:         req.Amount,
		Method:         req.Method,
		PaidAt:         paidAt,
		Notes:          req.Notes,
		RecordedBy:     authFromContext(r.Context()).Username,
		AutoDistribute: req.AutoDistribute,
		Detail:         detail,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, res)
}

// apiPreviewDistribution handles POST /api/companies/{code}/credits/{ref}/distribute.
func (h *Handler) apiPreviewDistribution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.PreviewDistribution(r.Context(), companyCode(r), chi.URLParam(r, "ref"), req.Amount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
