package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type salespersonService struct {
	pool *pgxpool.Pool
}

// NewSalespersonService constructs a SalespersonService backed by PostgreSQL.
func NewSalespersonService(pool *pgxpool.Pool) SalespersonService {
	return &salespersonService{pool: pool}
}

// CreateSalesperson inserts a new salesperson for the given company.
func (s *salespersonService) CreateSalesperson(ctx context.Context, companyID int, input SalespersonInput) (*Salesperson, error) {
	if input.Code == "" || input.Name == "" {
		return nil, fmt.Errorf("salesperson code and name are required")
	}
	rate := input.CommissionRate
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate must be between 0 and 1, got %s", rate)
	}

	toPtr := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}

	sp := &Salesperson{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO salespeople (company_id, code, name, phone, email, commission_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, company_id, code, name, phone, email, commission_rate, is_active, created_at`,
		companyID, input.Code, input.Name, toPtr(input.Phone), toPtr(input.Email), rate,
	).Scan(
		&sp.ID, &sp.CompanyID, &sp.Code, &sp.Name, &sp.Phone, &sp.Email,
		&sp.CommissionRate, &sp.IsActive, &sp.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("salesperson %q: %w", input.Code, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create salesperson %q: %w", input.Code, err)
	}
	return sp, nil
}

// GetSalespeople returns all active salespeople for a company, ordered by code.
func (s *salespersonService) GetSalespeople(ctx context.Context, companyID int) ([]Salesperson, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, phone, email, commission_rate, is_active, created_at
		FROM salespeople
		WHERE company_id = $1 AND is_active = true
		ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("get salespeople: %w", err)
	}
	defer rows.Close()

	var people []Salesperson
	for rows.Next() {
		var sp Salesperson
		if err := rows.Scan(
			&sp.ID, &sp.CompanyID, &sp.Code, &sp.Name, &sp.Phone, &sp.Email,
			&sp.CommissionRate, &sp.IsActive, &sp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan salesperson: %w", err)
		}
		people = append(people, sp)
	}
	return people, rows.Err()
}

// GetSalespersonByCode returns a salesperson by code, scoped to the company.
func (s *salespersonService) GetSalespersonByCode(ctx context.Context, companyID int, code string) (*Salesperson, error) {
	sp := &Salesperson{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, code, name, phone, email, commission_rate, is_active, created_at
		FROM salespeople
		WHERE company_id = $1 AND code = $2`,
		companyID, code,
	).Scan(
		&sp.ID, &sp.CompanyID, &sp.Code, &sp.Name, &sp.Phone, &sp.Email,
		&sp.CommissionRate, &sp.IsActive, &sp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("salesperson %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("get salesperson %q: %w", code, err)
	}
	return sp, nil
}
