package web

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"credit-sales/internal/ai"
	"credit-sales/internal/app"

	"github.com/google/uuid"
)

const pendingTTL = 15 * time.Minute

// pendingPayment is an assistant proposal waiting for the collector's confirmation.
type pendingPayment struct {
	Request   app.RecordPaymentRequest
	UserID    int
	CreatedAt time.Time
}

// pendingStore is a thread-safe in-memory store with TTL expiry.
type pendingStore struct {
	mu      sync.Mutex
	actions map[string]pendingPayment
	now     func() time.Time
}

func newPendingStore() *pendingStore {
	return &pendingStore{actions: make(map[string]pendingPayment), now: time.Now}
}

func (s *pendingStore) put(token string, a pendingPayment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[token] = a
}

// take removes and returns the entry owned by userID within companyCode. An
// expired entry is dropped and not returned; an entry owned by someone else is
// left in place.
func (s *pendingStore) take(token string, userID int, companyCode string) (pendingPayment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[token]
	if !ok {
		return pendingPayment{}, false
	}
	if s.now().Sub(a.CreatedAt) > pendingTTL {
		delete(s.actions, token)
		return pendingPayment{}, false
	}
	if a.UserID != userID || a.Request.CompanyCode != companyCode {
		return pendingPayment{}, false
	}
	delete(s.actions, token)
	return a, true
}

// purge evicts expired entries.
func (s *pendingStore) purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, a := range s.actions {
		if s.now().Sub(a.CreatedAt) > pendingTTL {
			delete(s.actions, token)
		}
	}
}

// StartPurge evicts expired proposals every five minutes until ctx ends.
func (h *Handler) StartPurge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.pending.purge()
			}
		}
	}()
}

type assistantResponse struct {
	IsClarification      bool                `json:"is_clarification"`
	ClarificationMessage string              `json:"clarification_message,omitempty"`
	Token                string              `json:"token,omitempty"`
	Proposal             *ai.PaymentProposal `json:"proposal,omitempty"`
	CreditNumber         string              `json:"credit_number,omitempty"`
	CustomerName         string              `json:"customer_name,omitempty"`
	RemainingBalance     string              `json:"remaining_balance,omitempty"`
}

// apiAssistantPayment handles POST .../assistant/payment. The proposal is held
// under a one-time token until the same user confirms it.
func (h *Handler) apiAssistantPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Note) == "" {
		writeError(w, r, "note is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	res, err := h.svc.InterpretPayment(r.Context(), companyCode(r), req.Note)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if res.IsClarification {
		writeJSON(w, assistantResponse{IsClarification: true, ClarificationMessage: res.ClarificationMessage})
		return
	}

	claims := authFromContext(r.Context())
	pay := *res.Request
	pay.RecordedBy = claims.Username
	token := uuid.NewString()
	h.pending.put(token, pendingPayment{Request: pay, UserID: claims.UserID, CreatedAt: h.pending.now()})

	writeJSON(w, assistantResponse{
		Token:            token,
		Proposal:         res.Proposal,
		CreditNumber:     res.Credit.CreditNumber,
		CustomerName:     res.Credit.CustomerName,
		RemainingBalance: res.Credit.RemainingBalance.StringFixed(2),
	})
}

// apiAssistantConfirm handles POST .../assistant/confirm with {"token": ...}.
func (h *Handler) apiAssistantConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	claims := authFromContext(r.Context())
	pending, ok := h.pending.take(req.Token, claims.UserID, companyCode(r))
	if !ok {
		writeError(w, r, "proposal not found or expired", "PROPOSAL_EXPIRED", http.StatusNotFound)
		return
	}

	res, err := h.svc.RecordPayment(r.Context(), pending.Request)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, res)
}
