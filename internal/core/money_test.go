package core_test

import (
	"testing"

	"credit-sales/internal/core"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney_HalfUp(t *testing.T) {
	assertMoney(t, "0.03", core.RoundMoney(money("0.025")))
	assertMoney(t, "16.67", core.RoundMoney(money("16.665")))
	assertMoney(t, "16.66", core.RoundMoney(money("16.6649")))
	assertMoney(t, "-0.03", core.RoundMoney(money("-0.025")))
}

func TestMoneyEqualWithin(t *testing.T) {
	assert.True(t, core.MoneyEqual(money("10.00"), money("10.01")))
	assert.False(t, core.MoneyEqual(money("10.00"), money("10.02")))
	assert.True(t, core.MoneyEqualWithin(money("100.00"), money("99.97"), 3))
	assert.False(t, core.MoneyEqualWithin(money("100.00"), money("99.96"), 3))
	assert.False(t, core.MoneyEqualWithin(money("1.00"), money("1.01"), 0))
}

func TestIsMoney(t *testing.T) {
	assert.True(t, core.IsMoney(money("12.30")))
	assert.True(t, core.IsMoney(money("7")))
	assert.False(t, core.IsMoney(money("0.001")))
}
