package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"credit-sales/internal/app"
	"credit-sales/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// serviceErrors maps service sentinels to responses; the first match wins.
var serviceErrors = []errorMapping{
	{core.ErrCreditNotFound, http.StatusNotFound, "CREDIT_NOT_FOUND"},
	{core.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{core.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
	{core.ErrCreditClosed, http.StatusConflict, "CREDIT_CLOSED"},
	{core.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{core.ErrCreditLimitExceeded, http.StatusConflict, "CREDIT_LIMIT_EXCEEDED"},
	{core.ErrOverpaymentRejected, http.StatusUnprocessableEntity, "OVERPAYMENT_REJECTED"},
	{core.ErrLineOverpayment, http.StatusUnprocessableEntity, "LINE_OVERPAYMENT"},
	{core.ErrDetailSumMismatch, http.StatusUnprocessableEntity, "DETAIL_SUM_MISMATCH"},
	{core.ErrAllocationMismatch, http.StatusUnprocessableEntity, "ALLOCATION_MISMATCH"},
	{core.ErrNothingToDistribute, http.StatusUnprocessableEntity, "NOTHING_TO_DISTRIBUTE"},
	{core.ErrUnknownLine, http.StatusUnprocessableEntity, "UNKNOWN_LINE"},
	{core.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{core.ErrInvalidFrequency, http.StatusBadRequest, "INVALID_FREQUENCY"},
	{core.ErrInvalidInstallmentPlan, http.StatusBadRequest, "INVALID_PLAN"},
	{core.ErrInvalidCreditLine, http.StatusBadRequest, "INVALID_CREDIT_LINE"},
	{core.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
	{app.ErrAssistantUnavailable, http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE"},
}

// writeServiceError maps a service error to its status and code. Unmapped
// errors are logged and reported as 500 without their message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			writeError(w, r, err.Error(), m.code, m.status)
			return
		}
	}
	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestIDFromContext(r.Context())),
		zap.Error(err))
	writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
}
