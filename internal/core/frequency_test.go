package core_test

import (
	"encoding/json"
	"testing"
	"time"

	"credit-sales/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		freq  core.Frequency
		steps int
		want  string
	}{
		{"weekly", day(2024, 1, 1), core.Weekly, 2, "2024-01-15"},
		{"biweekly", day(2024, 1, 1), core.Biweekly, 1, "2024-01-15"},
		{"every 10 days", day(2024, 1, 1), core.EveryNDays(10), 3, "2024-01-31"},
		{"zero steps", day(2024, 3, 9), core.Monthly, 0, "2024-03-09"},
		{"monthly keeps day", day(2024, 1, 15), core.Monthly, 1, "2024-02-15"},
		{"monthly clamps to leap february", day(2024, 1, 31), core.Monthly, 1, "2024-02-29"},
		{"monthly clamps to february", day(2023, 1, 31), core.Monthly, 1, "2023-02-28"},
		{"monthly restores day after short month", day(2024, 1, 31), core.Monthly, 2, "2024-03-31"},
		{"monthly clamps to thirty days", day(2024, 1, 31), core.Monthly, 3, "2024-04-30"},
		{"monthly rolls year", day(2024, 12, 15), core.Monthly, 1, "2025-01-15"},
		{"time of day dropped", time.Date(2024, 1, 1, 18, 45, 0, 0, time.UTC), core.Weekly, 1, "2024-01-08"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.Advance(tt.start, tt.freq, tt.steps)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(time.DateOnly))
			assert.Zero(t, got.Hour())
		})
	}
}

func TestAdvance_Invalid(t *testing.T) {
	_, err := core.Advance(day(2024, 1, 1), core.Weekly, -1)
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)

	_, err = core.Advance(day(2024, 1, 1), core.EveryNDays(0), 1)
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)

	_, err = core.Advance(day(2024, 1, 1), core.Frequency{Kind: "DAILY"}, 1)
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Frequency
		wantErr bool
	}{
		{in: "WEEKLY", want: core.Weekly},
		{in: "biweekly", want: core.Biweekly},
		{in: " Monthly ", want: core.Monthly},
		{in: "EVERY_N_DAYS(10)", want: core.EveryNDays(10)},
		{in: "every_n_days( 5 )", want: core.EveryNDays(5)},
		{in: "EVERY_N_DAYS(0)", wantErr: true},
		{in: "EVERY_N_DAYS(x)", wantErr: true},
		{in: "DAILY", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := core.ParseFrequency(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidFrequency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) core.Frequency {
	t.Helper()
	f, err := core.ParseFrequency(s)
	require.NoError(t, err)
	return f
}

func TestFrequency_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Frequency core.Frequency `json:"frequency"`
	}{core.EveryNDays(14)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"frequency":"EVERY_N_DAYS(14)"}`, string(b))

	var decoded struct {
		Frequency core.Frequency `json:"frequency"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"frequency":"biweekly"}`), &decoded))
	assert.Equal(t, core.Biweekly, decoded.Frequency)

	assert.Error(t, json.Unmarshal([]byte(`{"frequency":"fortnightly"}`), &decoded))
}
