package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"credit-sales/internal/app"
	"credit-sales/internal/core"
	"credit-sales/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Options configures NewHandler. Metrics may be nil.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	// InsecureCookies drops the Secure flag from the auth cookie for plain-HTTP development.
	InsecureCookies bool
}

// Handler holds the ApplicationService, the chi router, and the pending assistant proposals.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	pending   *pendingStore
	jwtSecret string
	logger    *zap.Logger
	secure    bool
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:       svc,
		pending:   newPendingStore(),
		jwtSecret: opts.JWTSecret,
		logger:    logger,
		secure:    !opts.InsecureCookies,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	if opts.Metrics != nil {
		r.Use(Instrument(opts.Metrics))
	}
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.With(RequestBodyLimit(1<<16)).Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)
		r.Post("/api/plan", h.apiPlan)

		r.Route("/api/companies/{code}", func(r chi.Router) {
			r.Use(RequireCompany)

			// ── Master data ──────────────────────────────────────────────────
			r.Get("/routes", h.apiListRoutes)
			r.Get("/customers", h.apiListCustomers)
			r.Get("/customers/{customerCode}/statement", h.apiCustomerStatement)
			r.Get("/salespeople", h.apiListSalespeople)
			r.Get("/products", h.apiListProducts)

			// ── Inventory ────────────────────────────────────────────────────
			r.Get("/stock", h.apiStockLevels)
			r.Get("/stock/movements", h.apiStockMovements)

			// ── Credits ──────────────────────────────────────────────────────
			r.Get("/credits", h.apiListCredits)
			r.Get("/credits/{ref}", h.apiGetCredit)
			r.Get("/credits/{ref}/progress", h.apiCreditProgress)
			r.Post("/credits/{ref}/payments", h.apiRecordPayment)
			r.Post("/credits/{ref}/distribute", h.apiPreviewDistribution)

			// ── Reports ──────────────────────────────────────────────────────
			r.Get("/reports/portfolio", h.apiPortfolio)
			r.Get("/reports/collections", h.apiCollections)
			r.Get("/reports/collections/by-route", h.apiCollectionsByRoute)
			r.Get("/reports/collections/by-salesperson", h.apiCollectionsBySalesperson)
			r.Get("/reports/overdue", h.apiOverdue)

			// ── Assistant ────────────────────────────────────────────────────
			r.Post("/assistant/payment", h.apiAssistantPayment)
			r.Post("/assistant/confirm", h.apiAssistantConfirm)

			// ── Manager-only writes ──────────────────────────────────────────
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(core.RoleAdmin, core.RoleManager))
				r.Post("/routes", h.apiCreateRoute)
				r.Post("/customers", h.apiCreateCustomer)
				r.Post("/salespeople", h.apiCreateSalesperson)
				r.Post("/products", h.apiCreateProduct)
				r.Post("/stock/receive", h.apiReceiveStock)
				r.Post("/credits", h.apiCreateCredit)
				r.Post("/credits/{ref}/cancel", h.apiCancelCredit)
				r.Post("/reports/refresh", h.apiRefreshViews)
			})
		})
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// health returns service status and the loaded company code.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.LoadDefaultCompany(r.Context())
	companyCode := ""
	if err == nil && company != nil {
		companyCode = company.CompanyCode
	}

	type response struct {
		Status  string `json:"status"`
		Company string `json:"company"`
	}

	writeJSON(w, response{Status: "ok", Company: companyCode})
}

// companyCode extracts the {code} URL parameter.
func companyCode(r *http.Request) string {
	return chi.URLParam(r, "code")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return time.Time{}, errors.New(name + ": expected YYYY-MM-DD")
	}
	return d, nil
}

func queryInt(r *http.Request, name string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return n
	}
	return def
}
