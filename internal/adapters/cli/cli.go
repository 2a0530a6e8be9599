package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"credit-sales/internal/app"
	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
)

// ErrUsage marks a malformed command line. The message carries the usage text.
var ErrUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", ErrUsage, text)
}

// Run loads the default company and executes a one-shot command.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	company, err := svc.LoadDefaultCompany(ctx)
	if err != nil {
		return fmt.Errorf("failed to load company: %w", err)
	}
	return Exec(ctx, svc, company.CompanyCode, args, out)
}

// Exec runs one command against companyCode. The REPL dispatches its slash
// commands through here as well.
func Exec(ctx context.Context, svc app.ApplicationService, companyCode string, args []string, out io.Writer) error {
	if len(args) == 0 {
		printHelp(out)
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "plan":
		if len(args) < 3 {
			return usage("plan <principal> <count> <WEEKLY|BIWEEKLY|MONTHLY|EVERY_N_DAYS(n)> [start YYYY-MM-DD] [installment]")
		}
		principal, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid principal %q: %w", args[0], core.ErrInvalidAmount)
		}
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid installment count %q", args[1])
		}
		req := app.PlanRequest{Principal: principal, InstallmentCount: count, Frequency: args[2]}
		if len(args) > 3 {
			req.StartDate = args[3]
		}
		if len(args) > 4 {
			if req.InstallmentAmount, err = decimal.NewFromString(args[4]); err != nil {
				return fmt.Errorf("invalid installment %q: %w", args[4], core.ErrInvalidAmount)
			}
		}
		result, err := svc.PlanCredit(ctx, req)
		if err != nil {
			return err
		}
		printPlan(out, result)

	case "credits", "ls":
		var status core.CreditStatus
		var customer string
		if len(args) > 0 {
			s, err := core.ParseCreditStatus(args[0])
			if err != nil {
				return err
			}
			status = s
		}
		if len(args) > 1 {
			customer = strings.ToUpper(args[1])
		}
		credits, err := svc.ListCredits(ctx, companyCode, status, customer)
		if err != nil {
			return err
		}
		printCredits(out, credits)

	case "credit", "show":
		if len(args) < 1 {
			return usage("credit <ref>")
		}
		result, err := svc.GetCredit(ctx, companyCode, args[0])
		if err != nil {
			return err
		}
		printCredit(out, result)

	case "pay":
		if len(args) < 2 {
			return usage("pay <ref> <amount> [CASH|TRANSFER|CARD|CHECK] [auto | PRODUCT=AMOUNT ...] [date=YYYY-MM-DD]")
		}
		req, err := paymentRequest(companyCode, args)
		if err != nil {
			return err
		}
		result, err := svc.RecordPayment(ctx, req)
		if err != nil {
			return err
		}
		printPayment(out, result)

	case "distribute", "dist":
		if len(args) < 2 {
			return usage("distribute <ref> <amount>")
		}
		result, err := svc.PreviewDistribution(ctx, companyCode, args[0], args[1])
		if err != nil {
			return err
		}
		printDistribution(out, result)

	case "progress":
		if len(args) < 1 {
			return usage("progress <ref>")
		}
		result, err := svc.GetProgress(ctx, companyCode, args[0])
		if err != nil {
			return err
		}
		printProgress(out, result)

	case "portfolio":
		result, err := svc.GetPortfolio(ctx, companyCode)
		if err != nil {
			return err
		}
		printPortfolio(out, result)

	case "overdue":
		result, err := svc.GetOverdueCredits(ctx, companyCode)
		if err != nil {
			return err
		}
		printOverdue(out, result)

	case "collections":
		var from, to time.Time
		var err error
		if len(args) > 0 {
			if from, err = core.ParseDate(args[0]); err != nil {
				return err
			}
		}
		if len(args) > 1 {
			if to, err = core.ParseDate(args[1]); err != nil {
				return err
			}
		}
		result, err := svc.GetCollections(ctx, companyCode, from, to)
		if err != nil {
			return err
		}
		printCollections(out, result)

	case "statement":
		if len(args) < 1 {
			return usage("statement <customer-code>")
		}
		result, err := svc.GetCustomerStatement(ctx, companyCode, strings.ToUpper(args[0]))
		if err != nil {
			return err
		}
		printStatement(out, result)

	case "assist":
		if len(args) < 1 {
			return usage(`assist "<collection note>"`)
		}
		result, err := svc.InterpretPayment(ctx, companyCode, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if result.IsClarification {
			fmt.Fprintln(out, "Assistant needs clarification:", result.ClarificationMessage)
			return nil
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Proposal)

	case "refresh":
		if err := svc.RefreshViews(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Reporting views refreshed.")

	case "help", "h":
		printHelp(out)

	default:
		return usage(fmt.Sprintf("unknown command %q; run help for the list", cmd))
	}
	return nil
}

// paymentRequest parses "<ref> <amount> [options...]". Options are a payment
// method, the word auto, date=YYYY-MM-DD, or PRODUCT=AMOUNT detail pairs.
func paymentRequest(companyCode string, args []string) (app.RecordPaymentRequest, error) {
	req := app.RecordPaymentRequest{
		CompanyCode: companyCode,
		CreditRef:   args[0],
		Amount:      args[1],
		RecordedBy:  "cli",
	}
	for _, opt := range args[2:] {
		key, value, isPair := strings.Cut(opt, "=")
		switch {
		case strings.EqualFold(opt, "auto"):
			req.AutoDistribute = true
		case isPair && strings.EqualFold(key, "date"):
			d, err := core.ParseDate(value)
			if err != nil {
				return req, err
			}
			req.PaidAt = d
		case isPair:
			req.Detail = append(req.Detail, app.PaymentDetailRequest{ProductCode: strings.ToUpper(key), Amount: value})
		default:
			req.Method = opt
		}
	}
	if req.AutoDistribute && len(req.Detail) > 0 {
		return req, usage("pay takes either auto or PRODUCT=AMOUNT detail, not both")
	}
	return req, nil
}
