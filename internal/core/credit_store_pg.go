package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCreditStore is the CreditStore backed by the credits, credit_lines,
// payments and payment_details tables. Mutate holds a row lock on the credit
// for the length of its transaction.
type PostgresCreditStore struct {
	pool *pgxpool.Pool
	docs DocumentService
}

func NewPostgresCreditStore(pool *pgxpool.Pool, docs DocumentService) *PostgresCreditStore {
	return &PostgresCreditStore{pool: pool, docs: docs}
}

// pgxReader runs both single-row and multi-row queries; *pgxpool.Pool and pgx.Tx satisfy it.
type pgxReader interface {
	pgxQuerier
	pgxRowQuerier
}

func (s *PostgresCreditStore) Load(ctx context.Context, creditID int) (*Credit, error) {
	return loadCreditQ(ctx, s.pool, creditID)
}

func (s *PostgresCreditStore) Mutate(ctx context.Context, creditID int, fn CreditMutation) (*Credit, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updated, err := s.MutateTx(ctx, tx, creditID, fn)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit credit %d: %w", creditID, err)
	}
	return updated, nil
}

// MutateTx is Mutate inside the caller's transaction, so other writes (stock
// returns on cancellation) commit or roll back together with the credit.
func (s *PostgresCreditStore) MutateTx(ctx context.Context, tx pgx.Tx, creditID int, fn CreditMutation) (*Credit, error) {
	var lockedID int
	err := tx.QueryRow(ctx, "SELECT id FROM credits WHERE id = $1 FOR UPDATE", creditID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrCreditNotFound, creditID)
		}
		return nil, fmt.Errorf("failed to lock credit %d: %w", creditID, err)
	}

	current, err := loadCreditQ(ctx, tx, creditID)
	if err != nil {
		return nil, err
	}
	known := len(current.Payments)

	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next.ID != creditID {
		return nil, fmt.Errorf("credit mutation changed id %d to %d", creditID, next.ID)
	}
	if len(next.Payments) < known {
		return nil, fmt.Errorf("credit %d: payments are append-only", creditID)
	}

	status := next.Status
	if status == CreditStatusOverdue {
		status = CreditStatusActive
	}
	next.Status = status

	_, err = tx.Exec(ctx, `
		UPDATE credits
		SET status = $1, remaining_balance = $2, paid_at = $3, cancelled_at = $4
		WHERE id = $5
	`, string(status), next.RemainingBalance, next.PaidAt, next.CancelledAt, creditID)
	if err != nil {
		return nil, fmt.Errorf("failed to update credit %d: %w", creditID, err)
	}

	for i, l := range next.Lines {
		if i < len(current.Lines) && current.Lines[i].PaidToDate.Equal(l.PaidToDate) {
			continue
		}
		if _, err := tx.Exec(ctx,
			"UPDATE credit_lines SET paid_to_date = $1 WHERE id = $2 AND credit_id = $3",
			l.PaidToDate, l.ID, creditID,
		); err != nil {
			return nil, fmt.Errorf("failed to update line %d of credit %d: %w", l.LineNumber, creditID, err)
		}
	}

	for i := known; i < len(next.Payments); i++ {
		if err := s.insertPaymentTx(ctx, tx, next.CompanyID, creditID, &next.Payments[i]); err != nil {
			return nil, err
		}
	}
	return &next, nil
}

func (s *PostgresCreditStore) insertPaymentTx(ctx context.Context, tx pgx.Tx, companyID, creditID int, p *Payment) error {
	if p.ReceiptNumber == "" {
		number, err := s.docs.IssueNumberTx(ctx, tx, companyID, DocTypeReceipt, p.PaidAt)
		if err != nil {
			return fmt.Errorf("failed to issue receipt number: %w", err)
		}
		p.ReceiptNumber = number
	}
	p.CreditID = creditID

	err := tx.QueryRow(ctx, `
		INSERT INTO payments (company_id, credit_id, receipt_number, amount, method, paid_at, notes, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, companyID, creditID, p.ReceiptNumber, p.Amount, string(p.Method), p.PaidAt, p.Notes, p.RecordedBy).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert payment %s: %w", p.ReceiptNumber, err)
	}

	for _, d := range p.Detail {
		if _, err := tx.Exec(ctx,
			"INSERT INTO payment_details (payment_id, product_id, amount) VALUES ($1, $2, $3)",
			p.ID, d.ProductID, d.Amount,
		); err != nil {
			return fmt.Errorf("failed to insert payment detail for product %d: %w", d.ProductID, err)
		}
	}
	return nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

const creditHeaderColumns = `
	cr.id, cr.company_id, cr.credit_number, cr.customer_id, c.code, c.name,
	cr.salesperson_id, COALESCE(sp.code, ''), cr.principal, cr.installment_amount,
	cr.frequency, cr.installment_count, cr.start_date, cr.due_date, cr.status,
	cr.remaining_balance, cr.notes, cr.created_at, cr.paid_at, cr.cancelled_at`

const creditHeaderJoins = `
	FROM credits cr
	JOIN customers c         ON c.id = cr.customer_id
	LEFT JOIN salespeople sp ON sp.id = cr.salesperson_id`

// scanCreditHeader scans creditHeaderColumns followed by any extra columns
// selected after them. Lines and payments are left empty.
func scanCreditHeader(row pgx.Row, c *Credit, extra ...any) error {
	var freq, status string
	dest := []any{
		&c.ID, &c.CompanyID, &c.CreditNumber, &c.CustomerID, &c.CustomerCode, &c.CustomerName,
		&c.SalespersonID, &c.SalespersonCode, &c.Principal, &c.InstallmentAmount,
		&freq, &c.InstallmentCount, &c.StartDate, &c.DueDate, &status,
		&c.RemainingBalance, &c.Notes, &c.CreatedAt, &c.PaidAt, &c.CancelledAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	f, err := ParseFrequency(freq)
	if err != nil {
		return fmt.Errorf("credit %s: %w", c.CreditNumber, err)
	}
	st, err := ParseCreditStatus(status)
	if err != nil {
		return fmt.Errorf("credit %s: %w", c.CreditNumber, err)
	}
	c.Frequency = f
	c.Status = st
	return nil
}

// loadCreditQ reads the full aggregate: header, lines, and the payment ledger with detail.
func loadCreditQ(ctx context.Context, q pgxReader, creditID int) (*Credit, error) {
	var c Credit
	err := scanCreditHeader(q.QueryRow(ctx, "SELECT"+creditHeaderColumns+creditHeaderJoins+" WHERE cr.id = $1", creditID), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrCreditNotFound, creditID)
		}
		return nil, fmt.Errorf("failed to fetch credit %d: %w", creditID, err)
	}

	if c.Lines, err = fetchCreditLinesQ(ctx, q, creditID); err != nil {
		return nil, err
	}
	if c.Payments, err = fetchPaymentsQ(ctx, q, creditID); err != nil {
		return nil, err
	}
	return &c, nil
}

func fetchCreditLinesQ(ctx context.Context, q pgxRowQuerier, creditID int) ([]CreditLine, error) {
	rows, err := q.Query(ctx, `
		SELECT cl.id, cl.line_number, cl.product_id, p.code, p.name,
		       cl.quantity, cl.unit_price, cl.subtotal, cl.paid_to_date
		FROM credit_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.credit_id = $1
		ORDER BY cl.line_number
	`, creditID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit lines: %w", err)
	}
	defer rows.Close()

	var lines []CreditLine
	for rows.Next() {
		var l CreditLine
		if err := rows.Scan(
			&l.ID, &l.LineNumber, &l.ProductID, &l.ProductCode, &l.ProductName,
			&l.Quantity, &l.UnitPrice, &l.Subtotal, &l.PaidToDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan credit line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func fetchPaymentsQ(ctx context.Context, q pgxRowQuerier, creditID int) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, credit_id, receipt_number, amount, method, paid_at, notes, recorded_by
		FROM payments
		WHERE credit_id = $1
		ORDER BY id
	`, creditID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}

	var payments []Payment
	index := make(map[int]int)
	for rows.Next() {
		var p Payment
		var method string
		if err := rows.Scan(&p.ID, &p.CreditID, &p.ReceiptNumber, &p.Amount, &method, &p.PaidAt, &p.Notes, &p.RecordedBy); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Method = PaymentMethod(method)
		index[p.ID] = len(payments)
		payments = append(payments, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	if len(payments) == 0 {
		return nil, nil
	}

	detailRows, err := q.Query(ctx, `
		SELECT pd.payment_id, pd.product_id, pd.amount
		FROM payment_details pd
		JOIN payments p ON p.id = pd.payment_id
		WHERE p.credit_id = $1
		ORDER BY pd.id
	`, creditID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment details: %w", err)
	}
	defer detailRows.Close()

	for detailRows.Next() {
		var paymentID int
		var d PaymentDetail
		if err := detailRows.Scan(&paymentID, &d.ProductID, &d.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan payment detail: %w", err)
		}
		if i, ok := index[paymentID]; ok {
			payments[i].Detail = append(payments[i].Detail, d)
		}
	}
	return payments, detailRows.Err()
}
