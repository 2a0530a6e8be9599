package web

import (
	"context"
	"net/http"
	"time"

	"credit-sales/internal/core"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) apiPortfolio(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.GetPortfolio(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sum)
}

// apiCollections handles GET .../reports/collections?from=&to=. Both bounds
// are optional and default to the current month to date.
func (h *Handler) apiCollections(w http.ResponseWriter, r *http.Request) {
	from, to, ok := period(w, r)
	if !ok {
		return
	}
	days, err := h.svc.GetCollections(r.Context(), companyCode(r), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if days == nil {
		days = []core.DailyCollection{}
	}
	writeJSON(w, days)
}

func (h *Handler) apiCollectionsByRoute(w http.ResponseWriter, r *http.Request) {
	h.groupedCollections(w, r, h.svc.GetCollectionsByRoute)
}

func (h *Handler) apiCollectionsBySalesperson(w http.ResponseWriter, r *http.Request) {
	h.groupedCollections(w, r, h.svc.GetCollectionsBySalesperson)
}

type groupedFunc func(ctx context.Context, companyCode string, from, to time.Time) ([]core.GroupCollection, error)

func (h *Handler) groupedCollections(w http.ResponseWriter, r *http.Request, fetch groupedFunc) {
	from, to, ok := period(w, r)
	if !ok {
		return
	}
	groups, err := fetch(r.Context(), companyCode(r), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.GroupCollection{}
	}
	writeJSON(w, groups)
}

func (h *Handler) apiOverdue(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetOverdueCredits(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []core.OverdueCredit{}
	}
	writeJSON(w, list)
}

// apiCustomerStatement handles GET .../customers/{customerCode}/statement.
func (h *Handler) apiCustomerStatement(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetCustomerStatement(r.Context(), companyCode(r), chi.URLParam(r, "customerCode"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, st)
}

func (h *Handler) apiRefreshViews(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RefreshViews(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func period(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return from, from, false
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return from, to, false
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		writeError(w, r, "from is after to", "BAD_REQUEST", http.StatusBadRequest)
		return from, to, false
	}
	return from, to, true
}
