package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService manages the sales master data a credit refers to:
// collection routes, customers and the product catalog.
type CustomerService interface {
	CreateRoute(ctx context.Context, companyCode string, input RouteInput) (*Route, error)
	GetRoutes(ctx context.Context, companyCode string) ([]Route, error)

	CreateCustomer(ctx context.Context, companyCode string, input CustomerInput) (*Customer, error)
	// GetCustomers lists active customers, restricted to one route when routeCode is set.
	GetCustomers(ctx context.Context, companyCode, routeCode string) ([]Customer, error)
	GetCustomerByCode(ctx context.Context, companyCode, code string) (*Customer, error)

	CreateProduct(ctx context.Context, companyCode string, input ProductInput) (*Product, error)
	GetProducts(ctx context.Context, companyCode string) ([]Product, error)
}

type customerService struct {
	pool *pgxpool.Pool
}

func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// resolveCompanyID looks up the internal company ID from a company code.
func resolveCompanyID(ctx context.Context, q pgxQuerier, companyCode string) (int, error) {
	var id int
	err := q.QueryRow(ctx, "SELECT id FROM companies WHERE company_code = $1", companyCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("company code %s: %w", companyCode, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to resolve company %s: %w", companyCode, err)
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ── Routes ───────────────────────────────────────────────────────────────────

func (s *customerService) CreateRoute(ctx context.Context, companyCode string, input RouteInput) (*Route, error) {
	if input.Code == "" || input.Name == "" {
		return nil, fmt.Errorf("route code and name are required")
	}
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	var rt Route
	err = s.pool.QueryRow(ctx, `
		INSERT INTO routes (company_id, code, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company_id, code, name, description, is_active, created_at
	`, companyID, input.Code, input.Name, input.Description).Scan(
		&rt.ID, &rt.CompanyID, &rt.Code, &rt.Name, &rt.Description, &rt.IsActive, &rt.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("route %s: %w", input.Code, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create route: %w", err)
	}
	return &rt, nil
}

func (s *customerService) GetRoutes(ctx context.Context, companyCode string) ([]Route, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, description, is_active, created_at
		FROM routes
		WHERE company_id = $1 AND is_active = true
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		var rt Route
		if err := rows.Scan(&rt.ID, &rt.CompanyID, &rt.Code, &rt.Name, &rt.Description, &rt.IsActive, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}

// ── Customers ────────────────────────────────────────────────────────────────

const customerColumns = `
	c.id, c.company_id, c.code, c.name, c.phone, c.email, c.address,
	c.route_id, COALESCE(r.code, ''), c.salesperson_id, COALESCE(sp.code, ''),
	c.credit_limit, c.is_active, c.created_at`

const customerJoins = `
	FROM customers c
	LEFT JOIN routes r       ON r.id = c.route_id
	LEFT JOIN salespeople sp ON sp.id = c.salesperson_id`

func scanCustomer(row pgx.Row, c *Customer) error {
	return row.Scan(
		&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.Phone, &c.Email, &c.Address,
		&c.RouteID, &c.RouteCode, &c.SalespersonID, &c.SalespersonCode,
		&c.CreditLimit, &c.IsActive, &c.CreatedAt,
	)
}

func (s *customerService) CreateCustomer(ctx context.Context, companyCode string, input CustomerInput) (*Customer, error) {
	if input.Code == "" || input.Name == "" {
		return nil, fmt.Errorf("customer code and name are required")
	}
	if input.CreditLimit.IsNegative() {
		return nil, fmt.Errorf("credit limit cannot be negative, got %s", input.CreditLimit)
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

	var routeID, salespersonID *int
	if input.RouteCode != "" {
		var id int
		if err := tx.QueryRow(ctx,
			"SELECT id FROM routes WHERE company_id = $1 AND code = $2 AND is_active = true",
			companyID, input.RouteCode,
		).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("route %s: %w", input.RouteCode, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to resolve route: %w", err)
		}
		routeID = &id
	}
	if input.SalespersonCode != "" {
		var id int
		if err := tx.QueryRow(ctx,
			"SELECT id FROM salespeople WHERE company_id = $1 AND code = $2 AND is_active = true",
			companyID, input.SalespersonCode,
		).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("salesperson %s: %w", input.SalespersonCode, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to resolve salesperson: %w", err)
		}
		salespersonID = &id
	}

	var customerID int
	err = tx.QueryRow(ctx, `
		INSERT INTO customers (company_id, code, name, phone, email, address, route_id, salesperson_id, credit_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, companyID, input.Code, input.Name, input.Phone, input.Email, input.Address,
		routeID, salespersonID, input.CreditLimit).Scan(&customerID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("customer %s: %w", input.Code, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	var c Customer
	if err := scanCustomer(tx.QueryRow(ctx, "SELECT"+customerColumns+customerJoins+" WHERE c.id = $1", customerID), &c); err != nil {
		return nil, fmt.Errorf("failed to read back customer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit customer creation: %w", err)
	}
	return &c, nil
}

func (s *customerService) GetCustomers(ctx context.Context, companyCode, routeCode string) ([]Customer, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	query := "SELECT" + customerColumns + customerJoins + " WHERE c.company_id = $1 AND c.is_active = true"
	args := []any{companyID}
	if routeCode != "" {
		query += " AND r.code = $2"
		args = append(args, routeCode)
	}
	query += " ORDER BY c.code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *customerService) GetCustomerByCode(ctx context.Context, companyCode, code string) (*Customer, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	var c Customer
	err = scanCustomer(s.pool.QueryRow(ctx,
		"SELECT"+customerColumns+customerJoins+" WHERE c.company_id = $1 AND c.code = $2",
		companyID, code,
	), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch customer %s: %w", code, err)
	}
	return &c, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

func (s *customerService) CreateProduct(ctx context.Context, companyCode string, input ProductInput) (*Product, error) {
	if input.Code == "" || input.Name == "" {
		return nil, fmt.Errorf("product code and name are required")
	}
	if !input.UnitPrice.IsPositive() || !IsMoney(input.UnitPrice) {
		return nil, fmt.Errorf("%w: unit price %s", ErrInvalidAmount, input.UnitPrice)
	}
	unit := input.Unit
	if unit == "" {
		unit = "unit"
	}

	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	var p Product
	err = s.pool.QueryRow(ctx, `
		INSERT INTO products (company_id, code, name, description, unit_price, unit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, company_id, code, name, description, unit_price, unit, is_active, created_at
	`, companyID, input.Code, input.Name, input.Description, input.UnitPrice, unit).Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Description,
		&p.UnitPrice, &p.Unit, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("product %s: %w", input.Code, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

func (s *customerService) GetProducts(ctx context.Context, companyCode string) ([]Product, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, description, unit_price, unit, is_active, created_at
		FROM products
		WHERE company_id = $1 AND is_active = true
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Description,
			&p.UnitPrice, &p.Unit, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
