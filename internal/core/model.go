package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID           int    `json:"id"`
	CompanyCode  string `json:"company_code"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
}

// Route is a collection route: a named group of customers visited together.
type Route struct {
	ID          int       `json:"id"`
	CompanyID   int       `json:"company_id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Customer is a credit customer, optionally assigned to a collection route
// and a default salesperson.
type Customer struct {
	ID              int             `json:"id"`
	CompanyID       int             `json:"company_id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email"`
	Address         string          `json:"address"`
	RouteID         *int            `json:"route_id,omitempty"`
	RouteCode       string          `json:"route_code,omitempty"`
	SalespersonID   *int            `json:"salesperson_id,omitempty"`
	SalespersonCode string          `json:"salesperson_code,omitempty"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Product is a catalog item that can be sold on credit.
type Product struct {
	ID          int             `json:"id"`
	CompanyID   int             `json:"company_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Unit        string          `json:"unit"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

type RouteInput struct {
	Code        string
	Name        string
	Description string
}

// CustomerInput holds the fields required to create a customer. RouteCode and
// SalespersonCode are optional.
type CustomerInput struct {
	Code            string
	Name            string
	Phone           string
	Email           string
	Address         string
	RouteCode       string
	SalespersonCode string
	CreditLimit     decimal.Decimal
}

type ProductInput struct {
	Code        string
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Unit        string
}
