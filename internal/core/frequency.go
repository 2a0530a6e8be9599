package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FrequencyKind tags how often installments fall due.
type FrequencyKind string

const (
	FrequencyWeekly     FrequencyKind = "WEEKLY"
	FrequencyBiweekly   FrequencyKind = "BIWEEKLY"
	FrequencyMonthly    FrequencyKind = "MONTHLY"
	FrequencyEveryNDays FrequencyKind = "EVERY_N_DAYS"
)

// Frequency is a payment cadence. Days is only meaningful for EVERY_N_DAYS.
type Frequency struct {
	Kind FrequencyKind
	Days int
}

var (
	Weekly   = Frequency{Kind: FrequencyWeekly}
	Biweekly = Frequency{Kind: FrequencyBiweekly}
	Monthly  = Frequency{Kind: FrequencyMonthly}
)

// EveryNDays returns a custom cadence of n days.
func EveryNDays(n int) Frequency {
	return Frequency{Kind: FrequencyEveryNDays, Days: n}
}

// Validate fails with ErrInvalidFrequency for unknown kinds or a custom cadence below one day.
func (f Frequency) Validate() error {
	switch f.Kind {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return nil
	case FrequencyEveryNDays:
		if f.Days < 1 {
			return fmt.Errorf("%w: EVERY_N_DAYS requires n >= 1, got %d", ErrInvalidFrequency, f.Days)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidFrequency, f.Kind)
	}
}

// String renders the cadence in the form accepted by ParseFrequency, e.g. "EVERY_N_DAYS(10)".
func (f Frequency) String() string {
	if f.Kind == FrequencyEveryNDays {
		return fmt.Sprintf("%s(%d)", f.Kind, f.Days)
	}
	return string(f.Kind)
}

// ParseFrequency parses WEEKLY, BIWEEKLY, MONTHLY or EVERY_N_DAYS(n), case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case string(FrequencyWeekly):
		return Weekly, nil
	case string(FrequencyBiweekly):
		return Biweekly, nil
	case string(FrequencyMonthly):
		return Monthly, nil
	}

	prefix := string(FrequencyEveryNDays) + "("
	if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, ")") {
		n, err := strconv.Atoi(strings.TrimSpace(s[len(prefix) : len(s)-1]))
		if err != nil {
			return Frequency{}, fmt.Errorf("%w: bad day count in %q", ErrInvalidFrequency, s)
		}
		f := EveryNDays(n)
		if err := f.Validate(); err != nil {
			return Frequency{}, err
		}
		return f, nil
	}
	return Frequency{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// MarshalText encodes the frequency as its string form so JSON carries "MONTHLY" or "EVERY_N_DAYS(10)".
func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (f *Frequency) UnmarshalText(b []byte) error {
	parsed, err := ParseFrequency(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Advance returns date moved forward by steps periods of freq. The time of day
// is dropped; due dates are calendar dates at midnight UTC. MONTHLY keeps the
// day of month and clamps it to the last day of a shorter target month
// (Jan 31 + 1 → Feb 28/29).
func Advance(date time.Time, freq Frequency, steps int) (time.Time, error) {
	if steps < 0 {
		return time.Time{}, fmt.Errorf("%w: negative step count %d", ErrInvalidFrequency, steps)
	}
	if err := freq.Validate(); err != nil {
		return time.Time{}, err
	}

	d := DateOf(date)
	switch freq.Kind {
	case FrequencyWeekly:
		return d.AddDate(0, 0, 7*steps), nil
	case FrequencyBiweekly:
		return d.AddDate(0, 0, 14*steps), nil
	case FrequencyEveryNDays:
		return d.AddDate(0, 0, freq.Days*steps), nil
	case FrequencyMonthly:
		return addMonthsClamped(d, steps), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidFrequency, freq.Kind)
}

func addMonthsClamped(d time.Time, months int) time.Time {
	// Day 1 of the target month never overflows, so normalisation only rolls the year.
	first := time.Date(d.Year(), d.Month()+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	day := d.Day()
	if last := daysIn(first.Year(), first.Month(), d.Location()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, d.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// DateOf returns t's calendar day (in t's own location) as midnight UTC, so
// dates from the database and from the clock compare by day alone.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
