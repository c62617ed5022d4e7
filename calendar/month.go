/*
Package calendar provides calendar-month and week arithmetic for the
compliance engine.

PURPOSE:
  Every regulatory determination in this system is keyed by calendar
  month: hours are aggregated per month, coverage is offered per month,
  IRS codes are assigned per month. This package gives the rest of the
  engine a single, validated Month value type plus inclusive range
  operations, so no component ever does raw time.Time day arithmetic
  for monthly concepts.

KEY CONCEPTS IN THIS FILE (month.go):
  - Month: a (year, month) pair; always valid once constructed
  - MonthRange: an inclusive [start, end] span of months

DESIGN PRINCIPLES:
  1. Validity by construction: a Month cannot represent a mid-month date
  2. Inclusive ranges: [start, end] matches how the IRS forms are read
  3. UTC everywhere: dates are civil dates, never local timestamps

SEE ALSO:
  - range.go: DateRange and week arithmetic
*/
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// MONTH - A validated (year, month) pair
// =============================================================================

// Month identifies a calendar month. The zero value is invalid; use the
// constructors.
type Month struct {
	year  int
	month time.Month
}

// ErrInvalidMonth is returned when a date is not a valid first-of-month
// anchor (e.g. an hours record keyed to 2025-03-15).
var ErrInvalidMonth = errors.New("invalid month: not a first-of-month date")

// NewMonth builds a Month from a year and month.
func NewMonth(year int, month time.Month) Month {
	// Normalize out-of-range months (e.g. month 13) via time.Date.
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{year: t.Year(), month: t.Month()}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{year: t.Year(), month: t.Month()}
}

// MonthFromDate builds a Month from a first-of-month date.
// Returns ErrInvalidMonth if the date is not the first of a month.
func MonthFromDate(t time.Time) (Month, error) {
	if t.Day() != 1 {
		return Month{}, fmt.Errorf("%w: %s", ErrInvalidMonth, t.Format("2006-01-02"))
	}
	return MonthOf(t), nil
}

// ParseMonth parses "2006-01" or a first-of-month "2006-01-02" date.
func ParseMonth(s string) (Month, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return MonthOf(t), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthFromDate(t)
}

// Properties
func (m Month) Year() int         { return m.year }
func (m Month) Month() time.Month { return m.month }
func (m Month) IsZero() bool      { return m.year == 0 && m.month == 0 }

// First returns the first day of the month as a UTC date.
func (m Month) First() time.Time {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the last day of the month as a UTC date.
func (m Month) Last() time.Time {
	return time.Date(m.year, m.month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// Days returns the number of days in the month.
func (m Month) Days() int { return m.Last().Day() }

// Arithmetic
func (m Month) Add(n int) Month { return MonthOf(m.First().AddDate(0, n, 0)) }
func (m Month) Next() Month     { return m.Add(1) }
func (m Month) Prev() Month     { return m.Add(-1) }

// Comparison
func (m Month) Before(other Month) bool { return m.Compare(other) < 0 }
func (m Month) After(other Month) bool  { return m.Compare(other) > 0 }
func (m Month) Equal(other Month) bool  { return m.Compare(other) == 0 }

// Compare returns -1, 0 or +1 ordering m against other.
func (m Month) Compare(other Month) int {
	a := m.year*12 + int(m.month)
	b := other.year*12 + int(other.month)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// MonthsBetween returns the inclusive month count from from to to.
// Returns 0 if to is before from.
func MonthsBetween(from, to Month) int {
	n := (to.year*12 + int(to.month)) - (from.year*12 + int(from.month)) + 1
	if n < 0 {
		return 0
	}
	return n
}

func (m Month) String() string { return m.First().Format("2006-01") }

// MarshalText implements encoding.TextMarshaler ("2006-01").
func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// =============================================================================
// MONTH RANGE - Inclusive [Start, End]
// =============================================================================

// MonthRange is an inclusive span of months.
type MonthRange struct {
	Start Month
	End   Month
}

// ErrInvalidRange is returned for ranges whose end precedes their start.
var ErrInvalidRange = errors.New("invalid range: end before start")

// NewMonthRange builds a validated range.
func NewMonthRange(start, end Month) (MonthRange, error) {
	if end.Before(start) {
		return MonthRange{}, fmt.Errorf("%w: [%s, %s]", ErrInvalidRange, start, end)
	}
	return MonthRange{Start: start, End: end}, nil
}

// Contains reports whether m falls inside the range.
func (r MonthRange) Contains(m Month) bool {
	return !m.Before(r.Start) && !m.After(r.End)
}

// Count returns the number of months in the range.
func (r MonthRange) Count() int { return MonthsBetween(r.Start, r.End) }

// Months returns every month in the range, in order.
func (r MonthRange) Months() []Month {
	months := make([]Month, 0, r.Count())
	for m := r.Start; !m.After(r.End); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// TaxYear returns the January-December range for a tax year.
func TaxYear(year int) MonthRange {
	return MonthRange{
		Start: NewMonth(year, time.January),
		End:   NewMonth(year, time.December),
	}
}

func (r MonthRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
