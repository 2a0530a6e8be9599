package core

import (
	"github.com/shopspring/decimal"
)

// moneyPlaces is the number of minor-unit digits carried by every currency amount.
const moneyPlaces = 2

// MinorUnit is the smallest representable currency amount (0.01).
var MinorUnit = decimal.New(1, -moneyPlaces)

// RoundMoney rounds d to minor units, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// IsMoney reports whether d is already expressed in whole minor units.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(RoundMoney(d))
}

// MoneyEqualWithin reports whether a and b differ by at most units minor units.
func MoneyEqualWithin(a, b decimal.Decimal, units int) bool {
	if units < 0 {
		units = 0
	}
	tolerance := MinorUnit.Mul(decimal.NewFromInt(int64(units)))
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// MoneyEqual reports whether a and b are equal within one minor unit.
func MoneyEqual(a, b decimal.Decimal) bool {
	return MoneyEqualWithin(a, b, 1)
}

func sumMoney(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
