package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// StatusSummary counts the credits in one classified status.
type StatusSummary struct {
	Status      CreditStatus    `json:"status"`
	Count       int             `json:"count"`
	Principal   decimal.Decimal `json:"principal"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// PortfolioSummary is the dashboard view of every credit in a company.
// Financed excludes cancelled credits; Collected includes whatever was paid
// on a credit before it was cancelled.
type PortfolioSummary struct {
	CompanyCode    string          `json:"company_code"`
	AsOf           time.Time       `json:"as_of"`
	CreditCount    int             `json:"credit_count"`
	Financed       decimal.Decimal `json:"financed"`
	Collected      decimal.Decimal `json:"collected"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	OverdueBalance decimal.Decimal `json:"overdue_balance"`
	CollectionRate decimal.Decimal `json:"collection_rate"` // Collected / Financed, 4 places
	ByStatus       []StatusSummary `json:"by_status"`
}

// DailyCollection is one row of mv_daily_collections.
type DailyCollection struct {
	Date         time.Time       `json:"date"`
	PaymentCount int             `json:"payment_count"`
	Total        decimal.Decimal `json:"total"`
}

// GroupCollection totals the payments collected for one route or salesperson.
// Code is empty for credits with no route or salesperson assigned.
type GroupCollection struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	PaymentCount int             `json:"payment_count"`
	Total        decimal.Decimal `json:"total"`
}

// OverdueCredit is one entry of the collections worklist.
type OverdueCredit struct {
	CreditID          int             `json:"credit_id"`
	CreditNumber      string          `json:"credit_number"`
	CustomerCode      string          `json:"customer_code"`
	CustomerName      string          `json:"customer_name"`
	CustomerPhone     string          `json:"customer_phone,omitempty"`
	RouteCode         string          `json:"route_code,omitempty"`
	SalespersonCode   string          `json:"salesperson_code,omitempty"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	RemainingBalance  decimal.Decimal `json:"remaining_balance"`
	NextDueDate       time.Time       `json:"next_due_date"`
	DaysOverdue       int             `json:"days_overdue"`
}

// CustomerStatement lists a customer's credits with their full payment ledgers.
type CustomerStatement struct {
	Customer    Customer        `json:"customer"`
	Credits     []Credit        `json:"credits"`
	Financed    decimal.Decimal `json:"financed"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// ── Aggregations ──────────────────────────────────────────────────────────────

var portfolioStatuses = []CreditStatus{
	CreditStatusActive, CreditStatusOverdue, CreditStatusPaid, CreditStatusCancelled,
}

// SummarizePortfolio aggregates credit headers into a PortfolioSummary,
// classifying each open credit against today.
func SummarizePortfolio(credits []Credit, today time.Time) (PortfolioSummary, error) {
	sum := PortfolioSummary{
		AsOf:           DateOf(today),
		CreditCount:    len(credits),
		Financed:       decimal.Zero,
		Collected:      decimal.Zero,
		Outstanding:    decimal.Zero,
		OverdueBalance: decimal.Zero,
		CollectionRate: decimal.Zero,
	}
	byStatus := make(map[CreditStatus]*StatusSummary, len(portfolioStatuses))
	for _, st := range portfolioStatuses {
		byStatus[st] = &StatusSummary{Status: st, Principal: decimal.Zero, Outstanding: decimal.Zero}
	}

	for _, c := range credits {
		status, err := ClassifyStatus(c, today)
		if err != nil {
			return PortfolioSummary{}, err
		}
		bucket := byStatus[status]
		bucket.Count++
		bucket.Principal = bucket.Principal.Add(c.Principal)

		sum.Collected = sum.Collected.Add(c.Collected())
		if status == CreditStatusCancelled {
			continue
		}
		sum.Financed = sum.Financed.Add(c.Principal)
		if !status.IsClosed() {
			bucket.Outstanding = bucket.Outstanding.Add(c.RemainingBalance)
			sum.Outstanding = sum.Outstanding.Add(c.RemainingBalance)
		}
		if status == CreditStatusOverdue {
			sum.OverdueBalance = sum.OverdueBalance.Add(c.RemainingBalance)
		}
	}

	if sum.Financed.IsPositive() {
		sum.CollectionRate = sum.Collected.DivRound(sum.Financed, 4)
	}
	for _, st := range portfolioStatuses {
		sum.ByStatus = append(sum.ByStatus, *byStatus[st])
	}
	return sum, nil
}

// BuildOverdueList keeps the credits that are overdue as of today, most
// overdue first. Ties are ordered by credit number.
func BuildOverdueList(credits []Credit, today time.Time) ([]OverdueCredit, error) {
	var out []OverdueCredit
	for _, c := range credits {
		p, err := EstimateCreditProgress(c, today)
		if err != nil {
			return nil, err
		}
		if p.Status != CreditStatusOverdue {
			continue
		}
		out = append(out, OverdueCredit{
			CreditID:          c.ID,
			CreditNumber:      c.CreditNumber,
			CustomerCode:      c.CustomerCode,
			CustomerName:      c.CustomerName,
			SalespersonCode:   c.SalespersonCode,
			InstallmentAmount: c.InstallmentAmount,
			RemainingBalance:  c.RemainingBalance,
			NextDueDate:       p.NextDueDate,
			DaysOverdue:       p.DaysOverdue,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysOverdue != out[j].DaysOverdue {
			return out[i].DaysOverdue > out[j].DaysOverdue
		}
		return out[i].CreditNumber < out[j].CreditNumber
	})
	return out, nil
}
