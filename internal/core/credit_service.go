package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CreditLineInput names a product to sell on credit. A zero UnitPrice uses the catalog price.
type CreditLineInput struct {
	ProductCode string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreditInput holds everything needed to open a credit. An empty
// SalespersonCode falls back to the customer's assigned salesperson, and a
// zero InstallmentAmount accepts the planner's suggestion.
type CreditInput struct {
	CustomerCode      string
	SalespersonCode   string
	StartDate         time.Time
	Frequency         Frequency
	InstallmentCount  int
	InstallmentAmount decimal.Decimal
	Lines             []CreditLineInput
	Notes             string
}

// CreditFilter narrows GetCredits. Filtering on OVERDUE classifies ACTIVE
// credits against Today.
type CreditFilter struct {
	Status       CreditStatus
	CustomerCode string
	Today        time.Time
}

// CreditService opens, cancels and looks up credits. Payments go through
// PaymentLedger over the same CreditStore.
type CreditService interface {
	CreateCredit(ctx context.Context, companyCode string, input CreditInput) (*Credit, error)
	// CancelCredit closes an open credit and returns its stock in one transaction.
	CancelCredit(ctx context.Context, creditID int, at time.Time) (*Credit, error)

	GetCredit(ctx context.Context, creditID int) (*Credit, error)
	GetCreditByNumber(ctx context.Context, companyCode, creditNumber string) (*Credit, error)
	// GetCredits returns headers only: Lines and Payments are not loaded.
	GetCredits(ctx context.Context, companyCode string, filter CreditFilter) ([]Credit, error)
}

type creditService struct {
	pool  *pgxpool.Pool
	docs  DocumentService
	inv   InventoryService
	store *PostgresCreditStore
}

func NewCreditService(pool *pgxpool.Pool, docs DocumentService, inv InventoryService, store *PostgresCreditStore) CreditService {
	return &creditService{pool: pool, docs: docs, inv: inv, store: store}
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *creditService) CreateCredit(ctx context.Context, companyCode string, input CreditInput) (*Credit, error) {
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("%w: a credit needs at least one line", ErrInvalidCreditLine)
	}
	if input.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidInstallmentPlan)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompanyID(ctx, tx, companyCode)
	if err != nil {
		return nil, err
	}

	var customerID int
	var customerSalespersonID *int
	var creditLimit decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT id, salesperson_id, credit_limit
		FROM customers
		WHERE company_id = $1 AND code = $2 AND is_active = true
		FOR UPDATE
	`, companyID, input.CustomerCode).Scan(&customerID, &customerSalespersonID, &creditLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", input.CustomerCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}

	salespersonID := customerSalespersonID
	if input.SalespersonCode != "" {
		var id int
		err = tx.QueryRow(ctx,
			"SELECT id FROM salespeople WHERE company_id = $1 AND code = $2 AND is_active = true",
			companyID, input.SalespersonCode,
		).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("salesperson %s: %w", input.SalespersonCode, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to resolve salesperson: %w", err)
		}
		salespersonID = &id
	}

	lines := make([]CreditLine, 0, len(input.Lines))
	for i, in := range input.Lines {
		var prod Product
		err = tx.QueryRow(ctx,
			"SELECT id, code, name, unit_price FROM products WHERE company_id = $1 AND code = $2 AND is_active = true",
			companyID, in.ProductCode,
		).Scan(&prod.ID, &prod.Code, &prod.Name, &prod.UnitPrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line %d: product %s: %w", i+1, in.ProductCode, ErrNotFound)
			}
			return nil, fmt.Errorf("line %d: failed to resolve product: %w", i+1, err)
		}

		price := prod.UnitPrice
		if !in.UnitPrice.IsZero() {
			price = in.UnitPrice
		}
		lines = append(lines, CreditLine{
			ProductID:   prod.ID,
			ProductCode: prod.Code,
			ProductName: prod.Name,
			Quantity:    in.Quantity,
			UnitPrice:   price,
		})
	}

	credit, _, err := OpenCredit(CreditTerms{
		Lines:             lines,
		InstallmentCount:  input.InstallmentCount,
		Frequency:         input.Frequency,
		StartDate:         input.StartDate,
		InstallmentAmount: input.InstallmentAmount,
	})
	if err != nil {
		return nil, err
	}

	if creditLimit.IsPositive() {
		var outstanding decimal.Decimal
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(remaining_balance), 0)
			FROM credits
			WHERE customer_id = $1 AND status = $2
		`, customerID, string(CreditStatusActive)).Scan(&outstanding)
		if err != nil {
			return nil, fmt.Errorf("failed to compute customer exposure: %w", err)
		}
		if exposure := outstanding.Add(credit.Principal); exposure.GreaterThan(creditLimit) {
			return nil, fmt.Errorf("%w: customer %s would owe %s against a limit of %s", ErrCreditLimitExceeded,
				input.CustomerCode, exposure.StringFixed(moneyPlaces), creditLimit.StringFixed(moneyPlaces))
		}
	}

	number, err := s.docs.IssueNumberTx(ctx, tx, companyID, DocTypeCredit, input.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to issue credit number: %w", err)
	}

	credit.CompanyID = companyID
	credit.CreditNumber = number
	credit.CustomerID = customerID
	credit.SalespersonID = salespersonID
	credit.Notes = input.Notes

	if err := insertCreditTx(ctx, tx, &credit); err != nil {
		return nil, err
	}
	if s.inv != nil {
		if err := s.inv.IssueStockTx(ctx, tx, companyID, credit.ID, credit.Lines, input.StartDate); err != nil {
			return nil, fmt.Errorf("failed to issue stock for %s: %w", number, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit credit creation: %w", err)
	}

	return s.GetCredit(ctx, credit.ID)
}

// insertCreditTx writes the header and lines of a newly opened credit and sets their IDs.
func insertCreditTx(ctx context.Context, tx pgx.Tx, c *Credit) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO credits (company_id, credit_number, customer_id, salesperson_id, principal,
		                     installment_amount, frequency, installment_count, start_date, due_date,
		                     status, remaining_balance, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`, c.CompanyID, c.CreditNumber, c.CustomerID, c.SalespersonID, c.Principal,
		c.InstallmentAmount, c.Frequency.String(), c.InstallmentCount, c.StartDate, c.DueDate,
		string(c.Status), c.RemainingBalance, c.Notes,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert credit %s: %w", c.CreditNumber, err)
	}

	for i := range c.Lines {
		l := &c.Lines[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO credit_lines (credit_id, line_number, product_id, quantity, unit_price, subtotal, paid_to_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, c.ID, l.LineNumber, l.ProductID, l.Quantity, l.UnitPrice, l.Subtotal, l.PaidToDate).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("failed to insert credit line %d: %w", l.LineNumber, err)
		}
	}
	return nil
}

func (s *creditService) CancelCredit(ctx context.Context, creditID int, at time.Time) (*Credit, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cancelled, err := s.store.MutateTx(ctx, tx, creditID, func(c Credit) (Credit, error) {
		return CancelCredit(c, at)
	})
	if err != nil {
		return nil, err
	}
	if s.inv != nil {
		if err := s.inv.ReturnStockTx(ctx, tx, cancelled.CompanyID, creditID, at); err != nil {
			return nil, fmt.Errorf("failed to return stock for %s: %w", cancelled.CreditNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit credit cancellation: %w", err)
	}
	return cancelled, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *creditService) GetCredit(ctx context.Context, creditID int) (*Credit, error) {
	return s.store.Load(ctx, creditID)
}

func (s *creditService) GetCreditByNumber(ctx context.Context, companyCode, creditNumber string) (*Credit, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	var creditID int
	err = s.pool.QueryRow(ctx,
		"SELECT id FROM credits WHERE company_id = $1 AND credit_number = $2",
		companyID, creditNumber,
	).Scan(&creditID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCreditNotFound, creditNumber)
		}
		return nil, fmt.Errorf("failed to lookup credit by number: %w", err)
	}

	return s.GetCredit(ctx, creditID)
}

func (s *creditService) GetCredits(ctx context.Context, companyCode string, filter CreditFilter) ([]Credit, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	query := "SELECT" + creditHeaderColumns + creditHeaderJoins + " WHERE cr.company_id = $1"
	args := []any{companyID}

	overdueOnly := filter.Status == CreditStatusOverdue
	switch filter.Status {
	case "":
	case CreditStatusOverdue:
		args = append(args, string(CreditStatusActive))
		query += fmt.Sprintf(" AND cr.status = $%d", len(args))
	default:
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND cr.status = $%d", len(args))
	}
	if filter.CustomerCode != "" {
		args = append(args, filter.CustomerCode)
		query += fmt.Sprintf(" AND c.code = $%d", len(args))
	}
	query += " ORDER BY cr.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits: %w", err)
	}
	defer rows.Close()

	today := filter.Today
	if today.IsZero() {
		today = time.Now()
	}

	var credits []Credit
	for rows.Next() {
		var c Credit
		if err := scanCreditHeader(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		if overdueOnly {
			status, err := ClassifyStatus(c, today)
			if err != nil {
				return nil, err
			}
			if status != CreditStatusOverdue {
				continue
			}
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}
