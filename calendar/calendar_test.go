package calendar_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/aca-engine/calendar"
)

func TestMonthFromDate_RejectsMidMonth(t *testing.T) {
	// GIVEN: A date that is not the first of a month
	// WHEN: Building a Month from it
	// THEN: ErrInvalidMonth

	_, err := calendar.MonthFromDate(time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error for mid-month date")
	}

	m, err := calendar.MonthFromDate(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "2025-03" {
		t.Errorf("expected 2025-03, got %s", m)
	}
}

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-01", "2025-01", false},
		{"2025-01-01", "2025-01", false},
		{"2025-01-02", "", true},
		{"garbage", "", true},
	}
	for _, c := range cases {
		m, err := calendar.ParseMonth(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseMonth(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMonth(%q): %v", c.in, err)
			continue
		}
		if m.String() != c.want {
			t.Errorf("ParseMonth(%q) = %s, want %s", c.in, m, c.want)
		}
	}
}

func TestMonthArithmetic_CrossesYearBoundary(t *testing.T) {
	dec := calendar.NewMonth(2024, time.December)
	jan := dec.Next()

	if jan.Year() != 2025 || jan.Month() != time.January {
		t.Errorf("expected 2025-01, got %s", jan)
	}
	if !dec.Before(jan) || !jan.After(dec) {
		t.Error("ordering broken across year boundary")
	}
	if got := calendar.MonthsBetween(dec, jan); got != 2 {
		t.Errorf("inclusive months between Dec and Jan = %d, want 2", got)
	}
}

func TestMonthRange_Months(t *testing.T) {
	r := calendar.TaxYear(2025)
	months := r.Months()
	if len(months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(months))
	}
	if months[0].String() != "2025-01" || months[11].String() != "2025-12" {
		t.Errorf("unexpected bounds: %s..%s", months[0], months[11])
	}
	if !r.Contains(calendar.NewMonth(2025, time.June)) {
		t.Error("range should contain 2025-06")
	}
	if r.Contains(calendar.NewMonth(2026, time.January)) {
		t.Error("range should not contain 2026-01")
	}
}

func TestNewMonthRange_RejectsInverted(t *testing.T) {
	_, err := calendar.NewMonthRange(calendar.NewMonth(2025, time.June), calendar.NewMonth(2025, time.January))
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestDateRange_OverlapsAndDays(t *testing.T) {
	a, _ := calendar.NewDateRange(
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
	)
	b, _ := calendar.NewDateRange(
		time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
	)
	c, _ := calendar.NewDateRange(
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
	)

	if !a.Overlaps(b) {
		t.Error("ranges sharing a boundary day should overlap")
	}
	if a.Overlaps(c) {
		t.Error("adjacent but disjoint ranges should not overlap")
	}
	if got := a.Days(); got != 90 {
		t.Errorf("Jan 1 - Mar 31 2025 = %d days, want 90", got)
	}
	if got := len(a.Months()); got != 3 {
		t.Errorf("expected 3 months touched, got %d", got)
	}
}

func TestWeekConversion_ThresholdEquivalence(t *testing.T) {
	// 30 hrs/week and 130 hrs/month describe the same threshold:
	// 30 * 52/12 = 130.
	monthly := calendar.WeeklyToMonthly(decimal.NewFromInt(30))
	if !monthly.Equal(decimal.NewFromInt(130)) {
		t.Errorf("30 hrs/week = %s hrs/month, want 130", monthly)
	}
	weekly := calendar.MonthlyToWeekly(decimal.NewFromInt(130))
	if !weekly.Equal(decimal.NewFromInt(30)) {
		t.Errorf("130 hrs/month = %s hrs/week, want 30", weekly)
	}
}

func TestISOWeeksBetween(t *testing.T) {
	// 2025-01-06 is a Monday; one full week.
	start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	if got := calendar.ISOWeeksBetween(start, start.AddDate(0, 0, 6)); got != 1 {
		t.Errorf("single week = %d, want 1", got)
	}
	if got := calendar.ISOWeeksBetween(start, start.AddDate(0, 0, 7)); got != 2 {
		t.Errorf("week + 1 day = %d, want 2", got)
	}
	if got := calendar.ISOWeeksBetween(start.AddDate(0, 0, 7), start); got != 0 {
		t.Errorf("inverted range = %d, want 0", got)
	}
}
