package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateAllocation checks that the line subtotals add up to the principal,
// allowing one minor unit of rounding per line.
func ValidateAllocation(lines []CreditLine, principal decimal.Decimal) error {
	subtotals := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		subtotals[i] = l.Subtotal
	}
	total := sumMoney(subtotals)
	if !MoneyEqualWithin(total, principal, len(lines)) {
		return fmt.Errorf("%w: lines total %s, principal %s",
			ErrAllocationMismatch, total.StringFixed(moneyPlaces), principal.StringFixed(moneyPlaces))
	}
	return nil
}

// DistributePayment splits amount across lines in proportion to each line's
// remaining balance. Lines with nothing remaining take no part and get a zero
// share. The last eligible line absorbs the rounding residual, so the shares
// always sum to amount exactly and none exceeds its line's remaining balance.
// One detail is returned per line, in line order.
func DistributePayment(lines []CreditLine, amount decimal.Decimal) ([]PaymentDetail, error) {
	if !amount.IsPositive() || !IsMoney(amount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}

	remaining := make([]decimal.Decimal, len(lines))
	var eligible []int
	for i, l := range lines {
		remaining[i] = l.Remaining()
		if remaining[i].IsPositive() {
			eligible = append(eligible, i)
		}
	}
	totalRemaining := sumMoney(remaining)
	if !totalRemaining.IsPositive() {
		return nil, ErrNothingToDistribute
	}
	if amount.GreaterThan(totalRemaining) {
		return nil, fmt.Errorf("%w: amount %s, lines remaining %s",
			ErrOverpaymentRejected, amount.StringFixed(moneyPlaces), totalRemaining.StringFixed(moneyPlaces))
	}

	shares := make([]decimal.Decimal, len(lines))
	for i := range shares {
		shares[i] = decimal.Zero
	}

	assigned := decimal.Zero
	last := eligible[len(eligible)-1]
	for _, i := range eligible[:len(eligible)-1] {
		share := RoundMoney(amount.Mul(remaining[i]).Div(totalRemaining))
		shares[i] = decimal.Min(share, remaining[i])
		assigned = assigned.Add(shares[i])
	}
	shares[last] = amount.Sub(assigned)

	settleResidual(shares, remaining, eligible)

	details := make([]PaymentDetail, len(lines))
	for i, l := range lines {
		details[i] = PaymentDetail{ProductID: l.ProductID, Amount: shares[i]}
	}
	return details, nil
}

// settleResidual keeps the total unchanged while pulling the last eligible
// share back into [0, remaining]. Rounding half up on earlier lines can leave
// the residual a few minor units outside that range when the last line's
// exact share is close to either bound.
func settleResidual(shares, remaining []decimal.Decimal, eligible []int) {
	last := eligible[len(eligible)-1]

	if excess := shares[last].Sub(remaining[last]); excess.IsPositive() {
		shares[last] = remaining[last]
		for j := len(eligible) - 2; j >= 0 && excess.IsPositive(); j-- {
			i := eligible[j]
			move := decimal.Min(remaining[i].Sub(shares[i]), excess)
			shares[i] = shares[i].Add(move)
			excess = excess.Sub(move)
		}
	}

	if deficit := shares[last].Neg(); deficit.IsPositive() {
		shares[last] = decimal.Zero
		for j := len(eligible) - 2; j >= 0 && deficit.IsPositive(); j-- {
			i := eligible[j]
			move := decimal.Min(shares[i], deficit)
			shares[i] = shares[i].Sub(move)
			deficit = deficit.Sub(move)
		}
	}
}
