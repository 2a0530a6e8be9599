package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"credit-sales/internal/adapters/cli"
	"credit-sales/internal/ai"
	"credit-sales/internal/app"
)

const (
	maxClarifications = 3
	lowConfidence     = 0.6
	recordedBy        = "repl"
)

var errExit = errors.New("exit")

// Run starts the interactive collector session. Slash commands go to the CLI
// dispatcher; anything else is read as a collection note for the assistant.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer) error {
	company, err := svc.LoadDefaultCompany(ctx)
	if err != nil {
		return fmt.Errorf("failed to load company: %w", err)
	}

	fmt.Fprintln(out, "Credit Sales")
	fmt.Fprintf(out, "Company: %s %s (%s)\n", company.CompanyCode, company.Name, company.BaseCurrency)
	fmt.Fprintln(out, "Type a collection note to record a payment, or /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	s := &session{ctx: ctx, svc: svc, reader: reader, out: out, companyCode: company.CompanyCode}
	for {
		fmt.Fprint(out, "\n> ")
		input, readErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if err := s.handle(input); errors.Is(err, errExit) {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}

type session struct {
	ctx         context.Context
	svc         app.ApplicationService
	reader      *bufio.Reader
	out         io.Writer
	companyCode string
	eof         bool
}

func (s *session) readLine(prompt string) string {
	fmt.Fprint(s.out, prompt)
	line, err := s.reader.ReadString('\n')
	if err != nil {
		s.eof = true
	}
	return strings.TrimSpace(line)
}

// handle runs one input line. Only errExit is returned; other errors are printed.
func (s *session) handle(input string) error {
	if strings.HasPrefix(input, "/") {
		return s.dispatchSlash(input)
	}
	return s.assist(input)
}

func (s *session) dispatchSlash(input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	switch strings.ToLower(tokens[0]) {
	case "exit", "quit", "e", "q":
		return errExit
	case "new-credit":
		if len(tokens) < 2 {
			fmt.Fprintln(s.out, "Usage: /new-credit <customer-code>")
			return nil
		}
		s.newCredit(strings.ToUpper(tokens[1]))
		return nil
	case "help", "h":
		fmt.Fprintln(s.out, "Slash commands run the CLI commands, e.g. /credits, /credit <ref>, /pay <ref> <amount> auto.")
		fmt.Fprintln(s.out, "  /new-credit <customer>   open a credit interactively")
		fmt.Fprintln(s.out, "  /exit                    leave")
	}
	if err := cli.Exec(s.ctx, s.svc, s.companyCode, tokens, s.out); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return nil
}

// assist sends a note to the assistant, asking the collector to clarify up to
// maxClarifications times, then asks for approval before recording.
func (s *session) assist(note string) error {
	fmt.Fprintln(s.out, "[AI] Processing...")
	accumulated := note

	for round := 1; ; round++ {
		if round > maxClarifications {
			fmt.Fprintln(s.out, "Could not produce a proposal. Try /pay instead.")
			return nil
		}

		result, err := s.svc.InterpretPayment(s.ctx, s.companyCode, accumulated)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return nil
		}

		if result.IsClarification {
			fmt.Fprintf(s.out, "\n[AI]: %s\n", result.ClarificationMessage)
			followUp := s.readLine("> ")
			if strings.HasPrefix(followUp, "/") {
				fmt.Fprintln(s.out, "(assistant cancelled)")
				return s.dispatchSlash(followUp)
			}
			if followUp == "" || strings.EqualFold(followUp, "cancel") {
				fmt.Fprintln(s.out, "Cancelled.")
				return nil
			}
			accumulated = fmt.Sprintf("Original note: %s\nQuestion asked: %s\nCollector answered: %s",
				accumulated, result.ClarificationMessage, followUp)
			continue
		}

		printProposal(s.out, result.Proposal, result.Credit.RemainingBalance.StringFixed(2))
		if result.Proposal.Confidence < lowConfidence {
			fmt.Fprintln(s.out, "\nWARNING: Low confidence proposal.")
		}

		choice := strings.ToLower(s.readLine("\nRecord this payment? (y/n): "))
		if choice != "y" && choice != "yes" {
			fmt.Fprintln(s.out, "Payment not recorded.")
			return nil
		}
		req := *result.Request
		req.RecordedBy = recordedBy
		paid, err := s.svc.RecordPayment(s.ctx, req)
		if err != nil {
			fmt.Fprintf(s.out, "Payment FAILED: %v\n", err)
			return nil
		}
		fmt.Fprintf(s.out, "Payment %s RECORDED. %s remaining %s.\n",
			paid.Payment.ReceiptNumber, paid.Credit.CreditNumber, paid.Credit.RemainingBalance.StringFixed(2))
		return nil
	}
}

func printProposal(w io.Writer, p *ai.PaymentProposal, remaining string) {
	fmt.Fprintf(w, "\nCREDIT:     %s (%s)\n", p.CreditNumber, p.CustomerName)
	fmt.Fprintf(w, "AMOUNT:     %s %s\n", p.Amount, p.Method)
	if p.PaidOn != "" {
		fmt.Fprintf(w, "PAID ON:    %s\n", p.PaidOn)
	}
	fmt.Fprintf(w, "REMAINING:  %s before this payment\n", remaining)
	if p.Notes != "" {
		fmt.Fprintf(w, "NOTES:      %s\n", p.Notes)
	}
	fmt.Fprintf(w, "REASONING:  %s\n", p.Reasoning)
	fmt.Fprintf(w, "CONFIDENCE: %.2f\n", p.Confidence)
}
