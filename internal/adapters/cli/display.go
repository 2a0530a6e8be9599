package cli

import (
	"fmt"
	"io"
	"strings"

	"credit-sales/internal/app"
	"credit-sales/internal/core"
)

const dateFmt = "2006-01-02"

func rule(w io.Writer, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, 72))
}

func banner(w io.Writer, title string) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  %s\n", title)
	rule(w, "=")
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  plan <principal> <count> <frequency> [start] [installment]  preview a plan")
	fmt.Fprintln(w, "  credits [status] [customer]                                   list credits")
	fmt.Fprintln(w, "  credit <ref>                                                  credit with schedule")
	fmt.Fprintln(w, "  pay <ref> <amount> [method] [auto | PRODUCT=AMOUNT ...]       record a payment")
	fmt.Fprintln(w, "  distribute <ref> <amount>                                     preview a pro-rata split")
	fmt.Fprintln(w, "  progress <ref>                                                installment progress")
	fmt.Fprintln(w, "  portfolio | overdue | collections [from] [to]                 reports")
	fmt.Fprintln(w, "  statement <customer>                                          customer statement")
	fmt.Fprintln(w, `  assist "<note>"                                               propose a payment from a note`)
	fmt.Fprintln(w, "  refresh                                                       refresh reporting views")
}

func printPlan(w io.Writer, p *app.PlanResult) {
	banner(w, fmt.Sprintf("PLAN  %s over %d x %s", p.Principal.StringFixed(2), p.InstallmentCount, p.Frequency))
	fmt.Fprintf(w, "  Suggested installment : %s\n", p.Plan.NominalInstallment.StringFixed(2))
	fmt.Fprintf(w, "  Installment used      : %s\n", p.InstallmentAmount.StringFixed(2))
	fmt.Fprintf(w, "  Maturity              : %s\n", p.Plan.MaturityDate.Format(dateFmt))
	rule(w, "-")
	for i, d := range p.Plan.DueDates {
		fmt.Fprintf(w, "  %3d  %s\n", i+1, d.Format(dateFmt))
	}
	rule(w, "=")
}

func printCredits(w io.Writer, credits []core.Credit) {
	banner(w, "CREDITS")
	if len(credits) == 0 {
		fmt.Fprintln(w, "  No credits found.")
		rule(w, "=")
		return
	}
	fmt.Fprintf(w, "  %-16s %-20s %-9s %12s %12s\n", "NUMBER", "CUSTOMER", "STATUS", "PRINCIPAL", "REMAINING")
	rule(w, "-")
	for _, c := range credits {
		fmt.Fprintf(w, "  %-16s %-20s %-9s %12s %12s\n",
			c.CreditNumber, truncate(c.CustomerName, 20), c.Status,
			c.Principal.StringFixed(2), c.RemainingBalance.StringFixed(2))
	}
	rule(w, "=")
}

func printCredit(w io.Writer, r *app.CreditResult) {
	c := r.Credit
	banner(w, fmt.Sprintf("CREDIT %s  [%s]", c.CreditNumber, c.Status))
	fmt.Fprintf(w, "  Customer    : %s (%s)\n", c.CustomerName, c.CustomerCode)
	fmt.Fprintf(w, "  Terms       : %d x %s %s from %s\n",
		c.InstallmentCount, c.InstallmentAmount.StringFixed(2), c.Frequency, c.StartDate.Format(dateFmt))
	fmt.Fprintf(w, "  Principal   : %s\n", c.Principal.StringFixed(2))
	fmt.Fprintf(w, "  Remaining   : %s\n", c.RemainingBalance.StringFixed(2))
	rule(w, "-")
	fmt.Fprintf(w, "  %-8s %-28s %12s %12s\n", "PRODUCT", "NAME", "SUBTOTAL", "PAID")
	for _, l := range c.Lines {
		fmt.Fprintf(w, "  %-8s %-28s %12s %12s\n",
			l.ProductCode, truncate(l.ProductName, 28), l.Subtotal.StringFixed(2), l.PaidToDate.StringFixed(2))
	}
	rule(w, "-")
	fmt.Fprintf(w, "  %-4s %-12s %12s %12s  %s\n", "#", "DUE", "AMOUNT", "COVERED", "STATE")
	for _, s := range r.Schedule {
		fmt.Fprintf(w, "  %-4d %-12s %12s %12s  %s\n",
			s.Number, s.DueDate.Format(dateFmt), s.Amount.StringFixed(2), s.Covered.StringFixed(2), s.State)
	}
	if len(c.Payments) > 0 {
		rule(w, "-")
		for _, p := range c.Payments {
			fmt.Fprintf(w, "  %-16s %s %12s  %s\n",
				p.ReceiptNumber, p.PaidAt.Format(dateFmt), p.Amount.StringFixed(2), p.Method)
		}
	}
	rule(w, "=")
}

func printPayment(w io.Writer, r *app.PaymentResult) {
	fmt.Fprintf(w, "Payment %s of %s recorded on %s. Remaining: %s. Status: %s.\n",
		r.Payment.ReceiptNumber, r.Payment.Amount.StringFixed(2), r.Credit.CreditNumber,
		r.Credit.RemainingBalance.StringFixed(2), r.Credit.Status)
	for _, d := range r.Payment.Detail {
		code := fmt.Sprintf("#%d", d.ProductID)
		if l, ok := r.Credit.Line(d.ProductID); ok {
			code = l.ProductCode
		}
		fmt.Fprintf(w, "  %-8s %12s\n", code, d.Amount.StringFixed(2))
	}
}

func printDistribution(w io.Writer, r *app.DistributionResult) {
	banner(w, fmt.Sprintf("DISTRIBUTION  %s on %s", r.Amount.StringFixed(2), r.CreditNumber))
	fmt.Fprintf(w, "  %-8s %-28s %12s %12s\n", "PRODUCT", "NAME", "REMAINING", "SHARE")
	rule(w, "-")
	for _, l := range r.Lines {
		fmt.Fprintf(w, "  %-8s %-28s %12s %12s\n",
			l.ProductCode, truncate(l.ProductName, 28), l.Remaining.StringFixed(2), l.Amount.StringFixed(2))
	}
	rule(w, "=")
}

func printProgress(w io.Writer, p *core.CreditProgress) {
	banner(w, fmt.Sprintf("PROGRESS %s  [%s]", p.CreditNumber, p.Status))
	fmt.Fprintf(w, "  Paid        : %s\n", p.TotalPaid.StringFixed(2))
	fmt.Fprintf(w, "  Remaining   : %s\n", p.RemainingBalance.StringFixed(2))
	fmt.Fprintf(w, "  Installments: %s paid, next #%d due %s\n",
		p.EquivalentInstallments.String(), p.NextInstallmentIndex, p.NextDueDate.Format(dateFmt))
	if p.DaysOverdue > 0 {
		fmt.Fprintf(w, "  OVERDUE by %d day(s)\n", p.DaysOverdue)
	}
	if len(p.Lines) > 0 {
		rule(w, "-")
		fmt.Fprintf(w, "  %-8s %12s %12s %8s  %s\n", "PRODUCT", "PAID", "REMAINING", "EQUIV", "NEXT DUE")
		for _, l := range p.Lines {
			fmt.Fprintf(w, "  %-8s %12s %12s %8s  %s\n",
				l.ProductCode, l.PaidToDate.StringFixed(2), l.Remaining.StringFixed(2),
				l.EquivalentInstallments.String(), l.NextDueDate.Format(dateFmt))
		}
	}
	rule(w, "=")
}

func printPortfolio(w io.Writer, s *core.PortfolioSummary) {
	banner(w, fmt.Sprintf("PORTFOLIO  Company %s as of %s", s.CompanyCode, s.AsOf.Format(dateFmt)))
	fmt.Fprintf(w, "  Credits         : %d\n", s.CreditCount)
	fmt.Fprintf(w, "  Financed        : %s\n", s.Financed.StringFixed(2))
	fmt.Fprintf(w, "  Collected       : %s\n", s.Collected.StringFixed(2))
	fmt.Fprintf(w, "  Outstanding     : %s\n", s.Outstanding.StringFixed(2))
	fmt.Fprintf(w, "  Overdue balance : %s\n", s.OverdueBalance.StringFixed(2))
	fmt.Fprintf(w, "  Collection rate : %s%%\n", s.CollectionRate.Shift(2).StringFixed(2))
	rule(w, "-")
	fmt.Fprintf(w, "  %-10s %6s %14s %14s\n", "STATUS", "COUNT", "PRINCIPAL", "OUTSTANDING")
	for _, b := range s.ByStatus {
		fmt.Fprintf(w, "  %-10s %6d %14s %14s\n", b.Status, b.Count, b.Principal.StringFixed(2), b.Outstanding.StringFixed(2))
	}
	rule(w, "=")
}

func printOverdue(w io.Writer, list []core.OverdueCredit) {
	banner(w, "OVERDUE CREDITS")
	if len(list) == 0 {
		fmt.Fprintln(w, "  Nothing overdue.")
		rule(w, "=")
		return
	}
	fmt.Fprintf(w, "  %-16s %-20s %-12s %5s %12s\n", "NUMBER", "CUSTOMER", "DUE", "DAYS", "REMAINING")
	rule(w, "-")
	for _, o := range list {
		fmt.Fprintf(w, "  %-16s %-20s %-12s %5d %12s\n",
			o.CreditNumber, truncate(o.CustomerName, 20), o.NextDueDate.Format(dateFmt),
			o.DaysOverdue, o.RemainingBalance.StringFixed(2))
	}
	rule(w, "=")
}

func printCollections(w io.Writer, days []core.DailyCollection) {
	banner(w, "DAILY COLLECTIONS")
	if len(days) == 0 {
		fmt.Fprintln(w, "  No collections in range.")
		rule(w, "=")
		return
	}
	for _, d := range days {
		fmt.Fprintf(w, "  %s %6d %14s\n", d.Date.Format(dateFmt), d.PaymentCount, d.Total.StringFixed(2))
	}
	rule(w, "=")
}

func printStatement(w io.Writer, st *core.CustomerStatement) {
	banner(w, fmt.Sprintf("STATEMENT  %s (%s)", st.Customer.Name, st.Customer.Code))
	for _, c := range st.Credits {
		fmt.Fprintf(w, "  %-16s %-9s %12s %12s\n",
			c.CreditNumber, c.Status, c.Principal.StringFixed(2), c.RemainingBalance.StringFixed(2))
		for _, p := range c.Payments {
			fmt.Fprintf(w, "      %-16s %s %12s\n", p.ReceiptNumber, p.PaidAt.Format(dateFmt), p.Amount.StringFixed(2))
		}
	}
	rule(w, "-")
	fmt.Fprintf(w, "  Financed %s  Collected %s  Outstanding %s\n",
		st.Financed.StringFixed(2), st.Collected.StringFixed(2), st.Outstanding.StringFixed(2))
	rule(w, "=")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
