package app

import (
	"context"
	"time"

	"credit-sales/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations contain no
// display logic of any kind.
//
// Credit references (ref) are either the numeric credit ID or the credit
// number, e.g. "17" or "CR-GLOBAL-00017". A credit belonging to another
// company is reported as not found.
type ApplicationService interface {
	// LoadDefaultCompany loads the configured company, or the only company in
	// the database when none is configured.
	LoadDefaultCompany(ctx context.Context) (*core.Company, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns a user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// PlanCredit previews the installment plan for the given terms. Nothing is stored.
	PlanCredit(ctx context.Context, req PlanRequest) (*PlanResult, error)

	// ── Master data ──────────────────────────────────────────────────────────

	ListRoutes(ctx context.Context, companyCode string) ([]core.Route, error)
	CreateRoute(ctx context.Context, companyCode string, input core.RouteInput) (*core.Route, error)
	// ListCustomers returns active customers, on one route when routeCode is set.
	ListCustomers(ctx context.Context, companyCode, routeCode string) ([]core.Customer, error)
	CreateCustomer(ctx context.Context, companyCode string, input core.CustomerInput) (*core.Customer, error)
	ListSalespeople(ctx context.Context, companyCode string) ([]core.Salesperson, error)
	CreateSalesperson(ctx context.Context, companyCode string, input core.SalespersonInput) (*core.Salesperson, error)
	ListProducts(ctx context.Context, companyCode string) ([]core.Product, error)
	CreateProduct(ctx context.Context, companyCode string, input core.ProductInput) (*core.Product, error)

	// ── Inventory ────────────────────────────────────────────────────────────

	GetStockLevels(ctx context.Context, companyCode string) ([]core.StockLevel, error)
	// ReceiveStock records a goods receipt; an empty warehouse means the default one.
	ReceiveStock(ctx context.Context, companyCode string, receipt core.StockReceipt) error
	ListMovements(ctx context.Context, companyCode, productCode string, limit int) ([]core.StockMovement, error)

	// ── Credits ──────────────────────────────────────────────────────────────

	// ListCredits returns credit headers with their status classified as of today.
	ListCredits(ctx context.Context, companyCode string, status core.CreditStatus, customerCode string) ([]core.Credit, error)
	GetCredit(ctx context.Context, companyCode, ref string) (*CreditResult, error)
	CreateCredit(ctx context.Context, req CreateCreditRequest) (*CreditResult, error)
	CancelCredit(ctx context.Context, companyCode, ref string) (*CreditResult, error)

	// RecordPayment applies a payment. Without explicit detail and with
	// AutoDistribute set, the amount is split across the lines pro rata.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error)

	// PreviewDistribution shows how an amount would be split across the
	// credit's lines without recording anything.
	PreviewDistribution(ctx context.Context, companyCode, ref string, amount string) (*DistributionResult, error)

	// GetProgress estimates installment progress as of today.
	GetProgress(ctx context.Context, companyCode, ref string) (*core.CreditProgress, error)

	// ── Reports ──────────────────────────────────────────────────────────────

	GetPortfolio(ctx context.Context, companyCode string) (*core.PortfolioSummary, error)
	GetCollections(ctx context.Context, companyCode string, from, to time.Time) ([]core.DailyCollection, error)
	GetCollectionsByRoute(ctx context.Context, companyCode string, from, to time.Time) ([]core.GroupCollection, error)
	GetCollectionsBySalesperson(ctx context.Context, companyCode string, from, to time.Time) ([]core.GroupCollection, error)
	GetOverdueCredits(ctx context.Context, companyCode string) ([]core.OverdueCredit, error)
	GetCustomerStatement(ctx context.Context, companyCode, customerCode string) (*core.CustomerStatement, error)
	RefreshViews(ctx context.Context) error

	// ── Assistant ────────────────────────────────────────────────────────────

	// InterpretPayment reads a collector's free-text note and proposes a
	// payment against one of the company's open credits. Nothing is recorded;
	// the caller confirms through RecordPayment.
	InterpretPayment(ctx context.Context, companyCode, note string) (*AssistantResult, error)
}
