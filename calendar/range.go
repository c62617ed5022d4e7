package calendar

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE RANGE - Inclusive civil-date span
// =============================================================================

// DateRange is an inclusive [Start, End] span of civil dates.
// Measurement periods use date (not month) boundaries because the
// administrative phase is specified in days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a validated date range with normalized UTC dates.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{Start: start, End: end}, nil
}

// DateOnly strips the time-of-day component, keeping a UTC civil date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t (as a date) falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether two ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Days returns the inclusive day count.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Months returns the months the range touches, in order.
func (r DateRange) Months() []Month {
	var months []Month
	for m := MonthOf(r.Start); !m.After(MonthOf(r.End)); m = m.Next() {
		months = append(months, m)
	}
	return months
}

func (r DateRange) String() string {
	return "[" + r.Start.Format("2006-01-02") + ", " + r.End.Format("2006-01-02") + "]"
}

// =============================================================================
// WEEK ARITHMETIC
// =============================================================================

// WeeksPerMonth is the IRS averaging factor between weekly and monthly
// hours (52 weeks / 12 months). 30 hours/week and 130 hours/month are
// the two statements of the same full-time threshold.
var WeeksPerMonth = decimal.NewFromInt(52).Div(decimal.NewFromInt(12))

// MonthlyToWeekly converts a monthly hours figure to its weekly average.
func MonthlyToWeekly(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Div(WeeksPerMonth)
}

// WeeklyToMonthly converts a weekly hours figure to its monthly equivalent.
func WeeklyToMonthly(weekly decimal.Decimal) decimal.Decimal {
	return weekly.Mul(WeeksPerMonth)
}

// ISOWeek returns the ISO 8601 year and week number for a date.
func ISOWeek(t time.Time) (year, week int) { return t.ISOWeek() }

// ISOWeeksBetween returns the number of distinct ISO weeks touched by
// the inclusive date range.
func ISOWeeksBetween(start, end time.Time) int {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0
	}
	// Walk Mondays: count the week of start, then every week boundary crossed.
	count := 1
	y0, w0 := start.ISOWeek()
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		y, w := d.ISOWeek()
		if y != y0 || w != w0 {
			count++
			y0, w0 = y, w
		}
	}
	return count
}
