package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanyService looks up the companies credits are booked under.
type CompanyService interface {
	GetCompany(ctx context.Context, companyCode string) (*Company, error)
	GetCompanyByID(ctx context.Context, companyID int) (*Company, error)
	// GetDefaultCompany returns preferredCode when set; otherwise the database
	// must hold exactly one company.
	GetDefaultCompany(ctx context.Context, preferredCode string) (*Company, error)
	CreateCompany(ctx context.Context, code, name, currency string) (*Company, error)
}

type companyService struct {
	pool *pgxpool.Pool
}

func NewCompanyService(pool *pgxpool.Pool) CompanyService {
	return &companyService{pool: pool}
}

const companyColumns = " id, company_code, name, base_currency FROM companies"

func (s *companyService) GetCompany(ctx context.Context, companyCode string) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx, "SELECT"+companyColumns+" WHERE company_code = $1", companyCode).
		Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("company %s: %w", companyCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch company %s: %w", companyCode, err)
	}
	return c, nil
}

func (s *companyService) GetCompanyByID(ctx context.Context, companyID int) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx, "SELECT"+companyColumns+" WHERE id = $1", companyID).
		Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("company %d: %w", companyID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch company %d: %w", companyID, err)
	}
	return c, nil
}

func (s *companyService) GetDefaultCompany(ctx context.Context, preferredCode string) (*Company, error) {
	if preferredCode != "" {
		return s.GetCompany(ctx, preferredCode)
	}

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM companies").Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple companies found; set COMPANY_CODE (e.g. COMPANY_CODE=1000)")
	}

	c := &Company{}
	if err := s.pool.QueryRow(ctx, "SELECT"+companyColumns+" ORDER BY id LIMIT 1").
		Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no company found, have migrations run?: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load default company: %w", err)
	}
	return c, nil
}

func (s *companyService) CreateCompany(ctx context.Context, code, name, currency string) (*Company, error) {
	if code == "" || name == "" || len(currency) != 3 {
		return nil, fmt.Errorf("company code, name and a 3-letter currency are required")
	}
	c := &Company{}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO companies (company_code, name, base_currency) VALUES ($1, $2, $3) RETURNING"+
			" id, company_code, name, base_currency",
		code, name, currency,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("company %s: %w", code, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create company %s: %w", code, err)
	}
	return c, nil
}
