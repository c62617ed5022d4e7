/*
Package penalty computes monthly §4980H(a)/(b) exposure per employer.

PURPOSE:
  The (a) penalty punishes not offering coverage broadly enough: it
  applies to the whole employer-month when fewer than 95% of full-time
  employees were offered coverage, and is sized on the entire full-time
  population minus the 30-employee allowance. The (b) penalty punishes
  offers that were made but inadequate or unaffordable, sized per
  affected employee.

MUTUAL EXCLUSION:
  Exactly one of {4980H-A, 4980H-B, none} is assigned per
  employer-month. If the 95% test fails, only (a) applies even when
  individual offers would have triggered (b).

ZERO IS A RESULT:
  Months with no exposure produce an explicit "none" assessment with
  zero amounts, not an absent record. The dashboard renders the
  difference between "computed: no exposure" and "not computed".
*/
package penalty

import (
	"github.com/shopspring/decimal"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// TYPES
// =============================================================================

type ExposureType string

const (
	ExposureA    ExposureType = "4980H-A"
	ExposureB    ExposureType = "4980H-B"
	ExposureNone ExposureType = "none"
)

// Assessment is the derived per-employer-month exposure record.
type Assessment struct {
	EmployerID    workforce.EmployerID `json:"employerId"`
	Month         calendar.Month       `json:"month"`
	ExposureType  ExposureType         `json:"exposureType"`
	AffectedCount int                  `json:"affectedEmployeeCount"`
	Amount        decimal.Decimal      `json:"estimatedAmount"`

	// Aggregates behind the determination, for audit and display.
	FullTimeCount int             `json:"fullTimeCount"`
	OfferedCount  int             `json:"offeredFullTimeCount"`
	OfferRate     decimal.Decimal `json:"offerRate"`
}

// Rates are the annually published penalty amounts, annualized; the
// monthly exposure is rate/12.
type Rates struct {
	AAnnual decimal.Decimal
	BAnnual decimal.Decimal
}

// EmployeeMonth is the per-employee input to the reduction: the
// eligibility outcome plus the offer and line flags for the month.
type EmployeeMonth struct {
	EmployeeID workforce.EmployeeID
	FullTime   bool
	Offered    bool
	// Flagged marks a warning/error FormLine: the engine's proxy for an
	// employee who could claim a subsidized marketplace plan.
	Flagged bool
}

// offerThreshold is the §4980H(a) 95% offer test.
var (
	offerThreshold     = decimal.NewFromFloat(0.95)
	allowanceEmployees = 30
	monthsPerYear      = decimal.NewFromInt(12)
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Assess reduces one employer-month. It runs only after every
// employee-level result for the month is complete (the batch runner's
// join barrier guarantees this).
func Assess(employer workforce.EmployerID, month calendar.Month, employees []EmployeeMonth, rates Rates) Assessment {
	out := Assessment{
		EmployerID:   employer,
		Month:        month,
		ExposureType: ExposureNone,
		Amount:       decimal.Zero,
		OfferRate:    decimal.Zero,
	}

	var flaggedFT int
	for _, em := range employees {
		if !em.FullTime {
			continue
		}
		out.FullTimeCount++
		if em.Offered {
			out.OfferedCount++
		}
		if em.Flagged {
			flaggedFT++
		}
	}
	if out.FullTimeCount == 0 {
		return out
	}

	out.OfferRate = decimal.NewFromInt(int64(out.OfferedCount)).
		Div(decimal.NewFromInt(int64(out.FullTimeCount)))

	aAffected := out.FullTimeCount - allowanceEmployees
	if aAffected < 0 {
		aAffected = 0
	}
	aMonthly := rates.AAnnual.Div(monthsPerYear)
	aAmount := aMonthly.Mul(decimal.NewFromInt(int64(aAffected)))

	if out.OfferRate.LessThan(offerThreshold) {
		// (a) swallows the month: individual failures are irrelevant.
		out.ExposureType = ExposureA
		out.AffectedCount = aAffected
		out.Amount = aAmount
		return out
	}

	if flaggedFT == 0 {
		return out
	}

	bMonthly := rates.BAnnual.Div(monthsPerYear)
	bAmount := bMonthly.Mul(decimal.NewFromInt(int64(flaggedFT)))
	// (b) is capped at what (a) would have been for the month.
	if bAmount.GreaterThan(aAmount) {
		bAmount = aAmount
	}
	out.ExposureType = ExposureB
	out.AffectedCount = flaggedFT
	out.Amount = bAmount
	return out
}
