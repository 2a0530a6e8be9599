package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document type codes issued by the credit workflow.
const (
	DocTypeCredit  = "CR"
	DocTypeReceipt = "RC"
)

type DocumentStatus string

const (
	DocumentStatusDraft  DocumentStatus = "DRAFT"
	DocumentStatusPosted DocumentStatus = "POSTED"
)

// DocumentService assigns gapless, per-company document numbers such as
// CR-GLOBAL-00001 for credits and RC-GLOBAL-00001 for payment receipts.
type DocumentService interface {
	// IssueNumber creates and posts a document in its own transaction.
	IssueNumber(ctx context.Context, companyID int, typeCode string, at time.Time) (string, error)
	// IssueNumberTx creates and posts a document inside the caller's transaction,
	// so a rolled-back credit or payment never consumes a number.
	IssueNumberTx(ctx context.Context, tx pgx.Tx, companyID int, typeCode string, at time.Time) (string, error)
}

type documentService struct {
	pool *pgxpool.Pool
}

func NewDocumentService(pool *pgxpool.Pool) DocumentService {
	return &documentService{pool: pool}
}

func (s *documentService) IssueNumber(ctx context.Context, companyID int, typeCode string, at time.Time) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := s.IssueNumberTx(ctx, tx, companyID, typeCode, at)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return number, nil
}

func (s *documentService) IssueNumberTx(ctx context.Context, tx pgx.Tx, companyID int, typeCode string, at time.Time) (string, error) {
	var strategy string
	err := tx.QueryRow(ctx,
		"SELECT numbering_strategy FROM document_types WHERE code = $1", typeCode,
	).Scan(&strategy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("document type %s: %w", typeCode, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get document type strategy: %w", err)
	}

	var financialYear *int
	if strategy == "per_fy" {
		y := at.Year()
		financialYear = &y
	}

	var documentID int
	err = tx.QueryRow(ctx, `
		INSERT INTO documents (company_id, type_code, status, financial_year)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, companyID, typeCode, string(DocumentStatusDraft), financialYear).Scan(&documentID)
	if err != nil {
		return "", fmt.Errorf("failed to create %s document: %w", typeCode, err)
	}

	return postDocumentWithTx(ctx, tx, documentID)
}

// postDocumentWithTx draws the next sequence number for a DRAFT document and
// marks it POSTED. The sequence upsert holds a row lock until the caller's
// transaction ends, which keeps numbering gapless under concurrency.
func postDocumentWithTx(ctx context.Context, tx pgx.Tx, documentID int) (string, error) {
	var companyID int
	var typeCode string
	var status DocumentStatus
	var financialYear *int
	err := tx.QueryRow(ctx, `
		SELECT company_id, type_code, status, financial_year
		FROM documents
		WHERE id = $1
		FOR UPDATE
	`, documentID).Scan(&companyID, &typeCode, &status, &financialYear)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("document %d: %w", documentID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read document for update: %w", err)
	}
	if status != DocumentStatusDraft {
		return "", fmt.Errorf("document must be in DRAFT status to be posted, current status: %s", status)
	}

	var lastNumber int64
	err = tx.QueryRow(ctx, `
		INSERT INTO document_sequences (company_id, type_code, financial_year, last_number)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (company_id, type_code, (COALESCE(financial_year, -1)))
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, companyID, typeCode, financialYear).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}

	number := FormatDocumentNumber(typeCode, financialYear, lastNumber)

	_, err = tx.Exec(ctx, `
		UPDATE documents
		SET status = $1, document_number = $2, posted_at = NOW()
		WHERE id = $3
	`, string(DocumentStatusPosted), number, documentID)
	if err != nil {
		return "", fmt.Errorf("failed to update document status and number: %w", err)
	}
	return number, nil
}

// FormatDocumentNumber renders TYPE-SCOPE-NNNNN where SCOPE is the financial
// year or GLOBAL.
func FormatDocumentNumber(typeCode string, financialYear *int, n int64) string {
	scope := "GLOBAL"
	if financialYear != nil {
		scope = fmt.Sprintf("%d", *financialYear)
	}
	return fmt.Sprintf("%s-%s-%05d", typeCode, scope, n)
}
