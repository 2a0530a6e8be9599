package web

import (
	"net/http"
	"strings"

	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
)

// ── Routes ────────────────────────────────────────────────────────────────────

func (h *Handler) apiListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.svc.ListRoutes(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if routes == nil {
		routes = []core.Route{}
	}
	writeJSON(w, routes)
}

func (h *Handler) apiCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, r, "code", req.Code, "name", req.Name) {
		return
	}
	route, err := h.svc.CreateRoute(r.Context(), companyCode(r), core.RouteInput{
		Code: req.Code, Name: req.Name, Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, route)
}

// ── Customers ─────────────────────────────────────────────────────────────────

// apiListCustomers handles GET /api/companies/{code}/customers?route=.
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.ListCustomers(r.Context(), companyCode(r), r.URL.Query().Get("route"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if customers == nil {
		customers = []core.Customer{}
	}
	writeJSON(w, customers)
}

func (h *Handler) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code            string          `json:"code"`
		Name            string          `json:"name"`
		Phone           string          `json:"phone"`
		Email           string          `json:"email"`
		Address         string          `json:"address"`
		RouteCode       string          `json:"route_code"`
		SalespersonCode string          `json:"salesperson_code"`
		CreditLimit     decimal.Decimal `json:"credit_limit"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, r, "code", req.Code, "name", req.Name) {
		return
	}
	customer, err := h.svc.CreateCustomer(r.Context(), companyCode(r), core.CustomerInput{
		Code: req.Code, Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address,
		RouteCode: req.RouteCode, SalespersonCode: req.SalespersonCode, CreditLimit: req.CreditLimit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, customer)
}

// ── Salespeople ───────────────────────────────────────────────────────────────

func (h *Handler) apiListSalespeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.svc.ListSalespeople(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if people == nil {
		people = []core.Salesperson{}
	}
	writeJSON(w, people)
}

func (h *Handler) apiCreateSalesperson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code           string          `json:"code"`
		Name           string          `json:"name"`
		Phone          string          `json:"phone"`
		Email          string          `json:"email"`
		CommissionRate decimal.Decimal `json:"commission_rate"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, r, "code", req.Code, "name", req.Name) {
		return
	}
	sp, err := h.svc.CreateSalesperson(r.Context(), companyCode(r), core.SalespersonInput{
		Code: req.Code, Name: req.Name, Phone: req.Phone, Email: req.Email, CommissionRate: req.CommissionRate,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, sp)
}

// ── Products ──────────────────────────────────────────────────────────────────

func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []core.Product{}
	}
	writeJSON(w, products)
}

func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string          `json:"code"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		UnitPrice   decimal.Decimal `json:"unit_price"`
		Unit        string          `json:"unit"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, r, "code", req.Code, "name", req.Name) {
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), companyCode(r), core.ProductInput{
		Code: req.Code, Name: req.Name, Description: req.Description, UnitPrice: req.UnitPrice, Unit: req.Unit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, product)
}

// ── Inventory ─────────────────────────────────────────────────────────────────

func (h *Handler) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.svc.GetStockLevels(r.Context(), companyCode(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if levels == nil {
		levels = []core.StockLevel{}
	}
	writeJSON(w, levels)
}

// apiStockMovements handles GET /api/companies/{code}/stock/movements?product=&limit=.
func (h *Handler) apiStockMovements(w http.ResponseWriter, r *http.Request) {
	moves, err := h.svc.ListMovements(r.Context(), companyCode(r), r.URL.Query().Get("product"), queryInt(r, "limit", 100))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if moves == nil {
		moves = []core.StockMovement{}
	}
	writeJSON(w, moves)
}

func (h *Handler) apiReceiveStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WarehouseCode string          `json:"warehouse_code"`
		ProductCode   string          `json:"product_code"`
		Quantity      decimal.Decimal `json:"quantity"`
		UnitCost      decimal.Decimal `json:"unit_cost"`
		MovementDate  string          `json:"movement_date"`
		Notes         string          `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireFields(w, r, "product_code", req.ProductCode) {
		return
	}
	if !req.Quantity.IsPositive() || req.UnitCost.IsNegative() {
		writeError(w, r, "quantity must be positive and unit_cost non-negative", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	receipt := core.StockReceipt{
		WarehouseCode: req.WarehouseCode,
		ProductCode:   req.ProductCode,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		Notes:         req.Notes,
	}
	if req.MovementDate != "" {
		d, err := core.ParseDate(req.MovementDate)
		if err != nil {
			writeError(w, r, "movement_date: expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		receipt.MovementDate = d
	}

	if err := h.svc.ReceiveStock(r.Context(), companyCode(r), receipt); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireFields takes name, value pairs and writes a 400 naming the first blank one.
func requireFields(w http.ResponseWriter, r *http.Request, pairs ...string) bool {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			writeError(w, r, pairs[i]+" is required", "BAD_REQUEST", http.StatusBadRequest)
			return false
		}
	}
	return true
}
