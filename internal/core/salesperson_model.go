package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Salesperson sells on credit and is credited with the collections on the
// credits they open.
type Salesperson struct {
	ID             int             `json:"id"`
	CompanyID      int             `json:"company_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Phone          *string         `json:"phone,omitempty"`
	Email          *string         `json:"email,omitempty"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SalespersonInput holds the fields required to create a new salesperson.
type SalespersonInput struct {
	Code           string
	Name           string
	Phone          string
	Email          string
	CommissionRate decimal.Decimal
}

// SalespersonService provides salesperson master data operations.
type SalespersonService interface {
	// CreateSalesperson creates a new salesperson for the given company.
	CreateSalesperson(ctx context.Context, companyID int, input SalespersonInput) (*Salesperson, error)

	// GetSalespeople returns all active salespeople for a company.
	GetSalespeople(ctx context.Context, companyID int) ([]Salesperson, error)

	// GetSalespersonByCode returns a specific salesperson by code, scoped to the company.
	GetSalespersonByCode(ctx context.Context, companyID int, code string) (*Salesperson, error)
}
