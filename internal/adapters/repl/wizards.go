package repl

import (
	"fmt"
	"strconv"
	"strings"

	"credit-sales/internal/adapters/cli"
	"credit-sales/internal/app"

	"github.com/shopspring/decimal"
)

// newCredit runs an interactive credit opening session.
func (s *session) newCredit(customerCode string) {
	fmt.Fprintf(s.out, "Opening credit for customer: %s\n", customerCode)
	fmt.Fprintln(s.out, "Enter credit lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(s.out, "Format per line: <product-code> <quantity> [unit-price]")
	fmt.Fprintln(s.out, "  Example: P001 1")
	fmt.Fprintln(s.out, "  Example: P001 2 450.00   (overrides product default price)")

	var lines []app.CreditLineRequest
	for {
		raw := s.readLine(fmt.Sprintf("  Line %d: ", len(lines)+1))
		if strings.EqualFold(raw, "cancel") {
			fmt.Fprintln(s.out, "Credit creation cancelled.")
			return
		}
		if strings.EqualFold(raw, "done") {
			break
		}
		if raw == "" {
			if s.eof {
				return
			}
			continue
		}
		line, err := parseCreditLine(raw)
		if err != nil {
			fmt.Fprintf(s.out, "  %v\n", err)
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "No lines entered. Credit not created.")
		return
	}

	freq := s.readLine("Frequency (WEEKLY, BIWEEKLY, MONTHLY, EVERY_N_DAYS(n)) [MONTHLY]: ")
	if freq == "" {
		freq = "MONTHLY"
	}
	count, err := strconv.Atoi(s.readLine("Number of installments: "))
	if err != nil || count < 1 {
		fmt.Fprintln(s.out, "Invalid installment count. Credit not created.")
		return
	}
	var installment decimal.Decimal
	if raw := s.readLine("Installment amount (blank for the suggested amount): "); raw != "" {
		if installment, err = decimal.NewFromString(raw); err != nil {
			fmt.Fprintln(s.out, "Invalid amount. Credit not created.")
			return
		}
	}

	salesperson := strings.ToUpper(s.readLine("Salesperson code (optional): "))
	start := s.readLine("Start date (YYYY-MM-DD, leave blank for today): ")
	notes := s.readLine("Notes (optional): ")

	result, err := s.svc.CreateCredit(s.ctx, app.CreateCreditRequest{
		CompanyCode:       s.companyCode,
		CustomerCode:      customerCode,
		SalespersonCode:   salesperson,
		StartDate:         start,
		Frequency:         freq,
		InstallmentCount:  count,
		InstallmentAmount: installment,
		Notes:             notes,
		Lines:             lines,
	})
	if err != nil {
		fmt.Fprintf(s.out, "Error creating credit: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "\nCredit %s opened.\n", result.Credit.CreditNumber)
	if err := cli.Exec(s.ctx, s.svc, s.companyCode, []string{"credit", result.Credit.CreditNumber}, s.out); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func parseCreditLine(raw string) (app.CreditLineRequest, error) {
	parts := strings.Fields(raw)
	if len(parts) < 2 {
		return app.CreditLineRequest{}, fmt.Errorf("invalid format, use: <product-code> <quantity> [unit-price]")
	}
	qty, err := decimal.NewFromString(parts[1])
	if err != nil || !qty.IsPositive() {
		return app.CreditLineRequest{}, fmt.Errorf("invalid quantity %q", parts[1])
	}
	var price decimal.Decimal
	if len(parts) >= 3 {
		price, err = decimal.NewFromString(parts[2])
		if err != nil || price.IsNegative() {
			return app.CreditLineRequest{}, fmt.Errorf("invalid price %q", parts[2])
		}
	}
	return app.CreditLineRequest{ProductCode: strings.ToUpper(parts[0]), Quantity: qty, UnitPrice: price}, nil
}
