package core_test

import (
	"testing"
	"time"

	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msgAndArgs...)
}

func isoDates(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(time.DateOnly)
	}
	return out
}

// line builds a one-unit credit line priced at subtotal.
func line(productID int, subtotal string) core.CreditLine {
	return core.CreditLine{
		ProductID:   productID,
		ProductCode: "P" + decimal.NewFromInt(int64(productID)).String(),
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   money(subtotal),
	}
}

// openCredit opens a MONTHLY credit starting 2024-01-15 over the given lines.
func openCredit(t *testing.T, count int, lines ...core.CreditLine) core.Credit {
	t.Helper()
	c, _, err := core.OpenCredit(core.CreditTerms{
		Lines:            lines,
		InstallmentCount: count,
		Frequency:        core.Monthly,
		StartDate:        day(2024, 1, 15),
	})
	require.NoError(t, err)
	c.ID = 1
	c.CreditNumber = "CR-TEST-00001"
	return c
}

func pay(amount string, detail ...core.PaymentDetail) core.PaymentRequest {
	return core.PaymentRequest{
		Amount: money(amount),
		Method: core.PaymentMethodCash,
		PaidAt: day(2024, 2, 1),
		Detail: detail,
	}
}

func detail(productID int, amount string) core.PaymentDetail {
	return core.PaymentDetail{ProductID: productID, Amount: money(amount)}
}
