package core_test

import (
	"testing"

	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// portfolioFixture builds four 4×100.00 monthly credits starting 2024-01-15:
// one on schedule, one overdue, one paid off and one cancelled.
func portfolioFixture(t *testing.T) []core.Credit {
	t.Helper()
	onTime := openCredit(t, 4, line(1, "400.00"))
	onTime, _, err := core.ApplyPayment(onTime, pay("200.00"))
	require.NoError(t, err)

	late := openCredit(t, 4, line(1, "400.00"))
	late.ID, late.CreditNumber = 2, "CR-TEST-00002"
	late, _, err = core.ApplyPayment(late, pay("50.00"))
	require.NoError(t, err)

	paid := openCredit(t, 4, line(1, "400.00"))
	paid.ID, paid.CreditNumber = 3, "CR-TEST-00003"
	paid, _, err = core.ApplyPayment(paid, pay("400.00"))
	require.NoError(t, err)

	cancelled := openCredit(t, 4, line(1, "400.00"))
	cancelled.ID, cancelled.CreditNumber = 4, "CR-TEST-00004"
	cancelled, _, err = core.ApplyPayment(cancelled, pay("30.00"))
	require.NoError(t, err)
	cancelled, err = core.CancelCredit(cancelled, day(2024, 2, 5))
	require.NoError(t, err)

	return []core.Credit{onTime, late, paid, cancelled}
}

func TestSummarizePortfolio(t *testing.T) {
	sum, err := core.SummarizePortfolio(portfolioFixture(t), day(2024, 3, 1))
	require.NoError(t, err)

	assert.Equal(t, 4, sum.CreditCount)
	assertMoney(t, "1200.00", sum.Financed)
	assertMoney(t, "680.00", sum.Collected)
	assertMoney(t, "550.00", sum.Outstanding)
	assertMoney(t, "350.00", sum.OverdueBalance)
	assert.Equal(t, "0.5667", sum.CollectionRate.StringFixed(4))

	counts := map[core.CreditStatus]int{}
	for _, s := range sum.ByStatus {
		counts[s.Status] = s.Count
	}
	assert.Equal(t, map[core.CreditStatus]int{
		core.CreditStatusActive:    1,
		core.CreditStatusOverdue:   1,
		core.CreditStatusPaid:      1,
		core.CreditStatusCancelled: 1,
	}, counts)
	assert.Equal(t, core.CreditStatusActive, sum.ByStatus[0].Status)
}

func TestSummarizePortfolio_Empty(t *testing.T) {
	sum, err := core.SummarizePortfolio(nil, day(2024, 3, 1))
	require.NoError(t, err)
	assert.Zero(t, sum.CreditCount)
	assert.True(t, sum.CollectionRate.IsZero())
	assert.Len(t, sum.ByStatus, 4)
}

func TestBuildOverdueList(t *testing.T) {
	credits := portfolioFixture(t)
	veryLate := openCredit(t, 4, line(1, "400.00"))
	veryLate.ID, veryLate.CreditNumber = 5, "CR-TEST-00005"
	credits = append(credits, veryLate)

	list, err := core.BuildOverdueList(credits, day(2024, 3, 1))
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Both missed 2024-02-15, so they tie on days and sort by number.
	assert.Equal(t, "CR-TEST-00002", list[0].CreditNumber)
	assert.Equal(t, "CR-TEST-00005", list[1].CreditNumber)
	assert.Equal(t, 15, list[0].DaysOverdue)
	assert.Equal(t, "2024-02-15", list[0].NextDueDate.Format("2006-01-02"))

	none, err := core.BuildOverdueList(credits, day(2024, 2, 15))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWeightedAverageCost(t *testing.T) {
	tests := []struct {
		name                           string
		oldQty, oldCost, qty, unitCost string
		want                           string
	}{
		{"first receipt", "0", "0", "10", "5.00", "5"},
		{"same cost", "10", "5", "10", "5", "5"},
		{"blend", "10", "4", "30", "8", "7"},
		{"repeating", "1", "1", "2", "2", "1.666667"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.WeightedAverageCost(
				decimal.RequireFromString(tt.oldQty), decimal.RequireFromString(tt.oldCost),
				decimal.RequireFromString(tt.qty), decimal.RequireFromString(tt.unitCost),
			)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFormatDocumentNumber(t *testing.T) {
	year := 2024
	assert.Equal(t, "CR-GLOBAL-00001", core.FormatDocumentNumber(core.DocTypeCredit, nil, 1))
	assert.Equal(t, "RC-2024-00042", core.FormatDocumentNumber(core.DocTypeReceipt, &year, 42))
	assert.Equal(t, "RC-GLOBAL-123456", core.FormatDocumentNumber(core.DocTypeReceipt, nil, 123456))
}
