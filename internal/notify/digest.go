// Package notify emails the daily overdue-credit digest to the collections team.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"
	"text/tabwriter"
	"time"

	"credit-sales/internal/core"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer delivers a prepared message.
type Mailer interface {
	Send(e *email.Email) error
}

type smtpMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer sends through the configured server with PLAIN auth when a
// username is set.
func NewSMTPMailer(cfg SMTPConfig) Mailer {
	return &smtpMailer{cfg: cfg}
}

func (m *smtpMailer) Send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return e.Send(addr, auth)
}

// DigestSender builds and mails the overdue digest.
type DigestSender struct {
	mailer Mailer
	from   string
	to     []string
	logger *zap.Logger
}

func NewDigestSender(mailer Mailer, from string, to []string, logger *zap.Logger) *DigestSender {
	return &DigestSender{mailer: mailer, from: from, to: to, logger: logger}
}

// SendOverdueDigest mails the list. An empty list sends nothing.
func (s *DigestSender) SendOverdueDigest(companyCode string, today time.Time, overdue []core.OverdueCredit) error {
	if len(overdue) == 0 {
		s.logger.Info("no overdue credits, digest skipped", zap.String("company", companyCode))
		return nil
	}

	e := email.NewEmail()
	e.From = s.from
	e.To = s.to
	e.Subject = DigestSubject(companyCode, today, len(overdue))
	e.Text = []byte(BuildDigestBody(today, overdue))

	if err := s.mailer.Send(e); err != nil {
		s.logger.Error("failed to send overdue digest",
			zap.String("company", companyCode), zap.Strings("to", s.to), zap.Error(err))
		return fmt.Errorf("failed to send overdue digest: %w", err)
	}

	s.logger.Info("overdue digest sent",
		zap.String("company", companyCode), zap.Int("credits", len(overdue)))
	return nil
}

func DigestSubject(companyCode string, today time.Time, count int) string {
	return fmt.Sprintf("[%s] %d overdue credit(s) as of %s", companyCode, count, today.Format("2006-01-02"))
}

// BuildDigestBody renders one aligned row per overdue credit plus a total of
// the remaining balances.
func BuildDigestBody(today time.Time, overdue []core.OverdueCredit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overdue credits as of %s\n\n", today.Format("2006-01-02"))

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREDIT\tCUSTOMER\tPHONE\tROUTE\tDUE\tDAYS\tINSTALLMENT\tREMAINING")
	total := decimal.Zero
	for _, o := range overdue {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			o.CreditNumber, o.CustomerName, o.CustomerPhone, o.RouteCode,
			o.NextDueDate.Format("2006-01-02"), o.DaysOverdue,
			o.InstallmentAmount.StringFixed(2), o.RemainingBalance.StringFixed(2))
		total = total.Add(o.RemainingBalance)
	}
	_ = w.Flush()

	fmt.Fprintf(&b, "\nTotal remaining on overdue credits: %s\n", total.StringFixed(2))
	return b.String()
}
