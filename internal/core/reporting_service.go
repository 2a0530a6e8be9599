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

// ReportingService provides read-only reporting queries over credits and the
// payment ledger. Nothing here writes to the ledger.
type ReportingService interface {
	// GetPortfolio summarises every credit of the company, classified as of today.
	GetPortfolio(ctx context.Context, companyCode string, today time.Time) (*PortfolioSummary, error)

	// GetCollections returns daily collection totals between from and to
	// inclusive, read from mv_daily_collections. Payments recorded since the
	// last RefreshViews are not included.
	GetCollections(ctx context.Context, companyCode string, from, to time.Time) ([]DailyCollection, error)

	// GetCollectionsByRoute and GetCollectionsBySalesperson total payments
	// between from and to inclusive, grouped by the customer's route or the
	// credit's salesperson. These read the ledger directly.
	GetCollectionsByRoute(ctx context.Context, companyCode string, from, to time.Time) ([]GroupCollection, error)
	GetCollectionsBySalesperson(ctx context.Context, companyCode string, from, to time.Time) ([]GroupCollection, error)

	// GetOverdueCredits lists open credits whose next installment fell due before today.
	GetOverdueCredits(ctx context.Context, companyCode string, today time.Time) ([]OverdueCredit, error)

	// GetCustomerStatement returns a customer's credits with their payments, newest credit first.
	GetCustomerStatement(ctx context.Context, companyCode, customerCode string) (*CustomerStatement, error)

	// RefreshViews refreshes the materialized reporting views.
	RefreshViews(ctx context.Context) error
}

type reportingService struct {
	pool *pgxpool.Pool
}

// NewReportingService constructs a ReportingService backed by the given pool.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

// ── Portfolio ─────────────────────────────────────────────────────────────────

func (s *reportingService) GetPortfolio(ctx context.Context, companyCode string, today time.Time) (*PortfolioSummary, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		"SELECT"+creditHeaderColumns+creditHeaderJoins+" WHERE cr.company_id = $1 ORDER BY cr.id",
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}
	defer rows.Close()

	var credits []Credit
	for rows.Next() {
		var c Credit
		if err := scanCreditHeader(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		credits = append(credits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("portfolio row iteration error: %w", err)
	}

	summary, err := SummarizePortfolio(credits, today)
	if err != nil {
		return nil, err
	}
	summary.CompanyCode = companyCode
	return &summary, nil
}

// ── Collections ───────────────────────────────────────────────────────────────

func (s *reportingService) GetCollections(ctx context.Context, companyCode string, from, to time.Time) ([]DailyCollection, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT collection_date, payment_count, total_collected
		FROM mv_daily_collections
		WHERE company_id = $1
		  AND collection_date BETWEEN $2::date AND $3::date
		ORDER BY collection_date
	`, companyID, DateOf(from), DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily collections: %w", err)
	}
	defer rows.Close()

	var days []DailyCollection
	for rows.Next() {
		var d DailyCollection
		if err := rows.Scan(&d.Date, &d.PaymentCount, &d.Total); err != nil {
			return nil, fmt.Errorf("failed to scan daily collection: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *reportingService) GetCollectionsByRoute(ctx context.Context, companyCode string, from, to time.Time) ([]GroupCollection, error) {
	return s.collectionsGroupedBy(ctx, companyCode, from, to, `
		SELECT COALESCE(r.code, ''), COALESCE(r.name, 'Unassigned'), COUNT(p.id), SUM(p.amount)
		FROM payments p
		JOIN credits cr     ON cr.id = p.credit_id
		JOIN customers c    ON c.id = cr.customer_id
		LEFT JOIN routes r  ON r.id = c.route_id
		WHERE p.company_id = $1
		  AND (p.paid_at AT TIME ZONE 'UTC')::date BETWEEN $2::date AND $3::date
		GROUP BY r.code, r.name
		ORDER BY SUM(p.amount) DESC, COALESCE(r.code, '')
	`)
}

func (s *reportingService) GetCollectionsBySalesperson(ctx context.Context, companyCode string, from, to time.Time) ([]GroupCollection, error) {
	return s.collectionsGroupedBy(ctx, companyCode, from, to, `
		SELECT COALESCE(sp.code, ''), COALESCE(sp.name, 'Unassigned'), COUNT(p.id), SUM(p.amount)
		FROM payments p
		JOIN credits cr          ON cr.id = p.credit_id
		LEFT JOIN salespeople sp ON sp.id = cr.salesperson_id
		WHERE p.company_id = $1
		  AND (p.paid_at AT TIME ZONE 'UTC')::date BETWEEN $2::date AND $3::date
		GROUP BY sp.code, sp.name
		ORDER BY SUM(p.amount) DESC, COALESCE(sp.code, '')
	`)
}

func (s *reportingService) collectionsGroupedBy(ctx context.Context, companyCode string, from, to time.Time, query string) ([]GroupCollection, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, companyID, DateOf(from), DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query grouped collections: %w", err)
	}
	defer rows.Close()

	var groups []GroupCollection
	for rows.Next() {
		var g GroupCollection
		if err := rows.Scan(&g.Code, &g.Name, &g.PaymentCount, &g.Total); err != nil {
			return nil, fmt.Errorf("failed to scan grouped collection: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ── Overdue ───────────────────────────────────────────────────────────────────

func (s *reportingService) GetOverdueCredits(ctx context.Context, companyCode string, today time.Time) ([]OverdueCredit, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT"+creditHeaderColumns+`, c.phone, COALESCE(r.code, '')`+creditHeaderJoins+`
		LEFT JOIN routes r ON r.id = c.route_id
		WHERE cr.company_id = $1 AND cr.status = $2
		ORDER BY cr.id
	`, companyID, string(CreditStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query open credits: %w", err)
	}
	defer rows.Close()

	type contact struct{ phone, route string }
	contacts := make(map[int]contact)
	var credits []Credit
	for rows.Next() {
		var c Credit
		var ct contact
		if err := scanCreditHeader(rows, &c, &ct.phone, &ct.route); err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		contacts[c.ID] = ct
		credits = append(credits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("open credit row iteration error: %w", err)
	}

	overdue, err := BuildOverdueList(credits, today)
	if err != nil {
		return nil, err
	}
	for i := range overdue {
		ct := contacts[overdue[i].CreditID]
		overdue[i].CustomerPhone = ct.phone
		overdue[i].RouteCode = ct.route
	}
	return overdue, nil
}

// ── Customer statement ────────────────────────────────────────────────────────

func (s *reportingService) GetCustomerStatement(ctx context.Context, companyCode, customerCode string) (*CustomerStatement, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	st := &CustomerStatement{Financed: decimal.Zero, Collected: decimal.Zero, Outstanding: decimal.Zero}
	err = scanCustomer(s.pool.QueryRow(ctx,
		"SELECT"+customerColumns+customerJoins+" WHERE c.company_id = $1 AND c.code = $2",
		companyID, customerCode,
	), &st.Customer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", customerCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch customer %s: %w", customerCode, err)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT id FROM credits WHERE customer_id = $1 ORDER BY id DESC",
		st.Customer.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer credits: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to read customer credits: %w", err)
	}

	for _, id := range ids {
		c, err := loadCreditQ(ctx, s.pool, id)
		if err != nil {
			return nil, err
		}
		st.Collected = st.Collected.Add(c.TotalPaid())
		if c.Status != CreditStatusCancelled {
			st.Financed = st.Financed.Add(c.Principal)
			if !c.Status.IsClosed() {
				st.Outstanding = st.Outstanding.Add(c.RemainingBalance)
			}
		}
		st.Credits = append(st.Credits, *c)
	}
	return st, nil
}

// ── RefreshViews ──────────────────────────────────────────────────────────────

// RefreshViews refreshes the reporting views concurrently, which needs the
// unique index on mv_daily_collections.
func (s *reportingService) RefreshViews(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		"REFRESH MATERIALIZED VIEW CONCURRENTLY mv_daily_collections",
	); err != nil {
		return fmt.Errorf("refresh mv_daily_collections: %w", err)
	}
	return nil
}
