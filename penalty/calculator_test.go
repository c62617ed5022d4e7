package penalty_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/penalty"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// rates2025 uses the 2025 published amounts: $2,900 (a), $4,350 (b).
func rates2025() penalty.Rates {
	return penalty.Rates{
		AAnnual: decimal.RequireFromString("2900"),
		BAnnual: decimal.RequireFromString("4350"),
	}
}

var june = calendar.NewMonth(2025, time.June)

// census builds fullTime employees of which offered got offers and
// flagged carry warning/error lines, plus partTime part-timers.
func census(fullTime, offered, flagged, partTime int) []penalty.EmployeeMonth {
	var out []penalty.EmployeeMonth
	for i := 0; i < fullTime; i++ {
		out = append(out, penalty.EmployeeMonth{
			EmployeeID: workforce.EmployeeID(fmt.Sprintf("ft-%d", i)),
			FullTime:   true,
			Offered:    i < offered,
			Flagged:    i < flagged,
		})
	}
	for i := 0; i < partTime; i++ {
		out = append(out, penalty.EmployeeMonth{
			EmployeeID: workforce.EmployeeID(fmt.Sprintf("pt-%d", i)),
		})
	}
	return out
}

// =============================================================================
// 4980H(a) TESTS
// =============================================================================

func TestAssess_OfferRateBelow95_ExposureA(t *testing.T) {
	// GIVEN: 96 full-time employees, 90 offered coverage (93.75%)
	// WHEN: Assessing the month
	// THEN: 4980H(a) on the whole population minus the 30-employee
	//       allowance: 66 affected, 66 x $2,900/12 = $15,950

	a := penalty.Assess("acme", june, census(96, 90, 0, 10), rates2025())

	assert.Equal(t, penalty.ExposureA, a.ExposureType)
	assert.Equal(t, 96, a.FullTimeCount)
	assert.Equal(t, 90, a.OfferedCount)
	assert.Equal(t, 66, a.AffectedCount)
	wantAmount := rates2025().AAnnual.Div(decimal.NewFromInt(12)).Mul(decimal.NewFromInt(66))
	assert.True(t, a.Amount.Equal(wantAmount), "got %s want %s", a.Amount, wantAmount)
	assert.True(t, a.OfferRate.LessThan(decimal.RequireFromString("0.95")))
}

func TestAssess_ExposureA_SwallowsIndividualFailures(t *testing.T) {
	// GIVEN: The 95% test fails AND individual flagged employees exist
	// WHEN: Assessing
	// THEN: Only (a) applies; exactly one exposure type per month

	a := penalty.Assess("acme", june, census(96, 90, 40, 0), rates2025())
	assert.Equal(t, penalty.ExposureA, a.ExposureType)
	assert.Equal(t, 66, a.AffectedCount, "affected count is FT minus allowance, not the flagged count")
}

func TestAssess_AllowanceClampsAtZero(t *testing.T) {
	// Small employers below the 30-employee allowance still record the
	// (a) exposure type, with a zero amount.

	a := penalty.Assess("acme", june, census(10, 5, 0, 0), rates2025())
	assert.Equal(t, penalty.ExposureA, a.ExposureType)
	assert.Equal(t, 0, a.AffectedCount)
	assert.True(t, a.Amount.IsZero())
}

// =============================================================================
// 4980H(b) TESTS
// =============================================================================

func TestAssess_OfferRateMet_FlaggedEmployees_ExposureB(t *testing.T) {
	// GIVEN: 40 full-time, all offered (100%), 3 with flagged lines
	// WHEN: Assessing
	// THEN: 4980H(b) sized per affected employee: 3 x $4,350/12 = $1,087.50

	a := penalty.Assess("acme", june, census(40, 40, 3, 5), rates2025())

	assert.Equal(t, penalty.ExposureB, a.ExposureType)
	assert.Equal(t, 3, a.AffectedCount)
	assert.True(t, a.Amount.Equal(decimal.RequireFromString("1087.5")), "got %s", a.Amount)
}

func TestAssess_ExposureB_CappedAtHypotheticalA(t *testing.T) {
	// GIVEN: 40 full-time, all offered, 38 flagged
	// WHEN: Assessing
	// THEN: (b) would be 38 x $362.50 = $13,775, but is capped at the
	//       hypothetical (a): (40-30) x $241.67 = $2,416.67

	a := penalty.Assess("acme", june, census(40, 40, 38, 0), rates2025())

	require.Equal(t, penalty.ExposureB, a.ExposureType)
	assert.Equal(t, 38, a.AffectedCount)

	hypotheticalA := rates2025().AAnnual.Div(decimal.NewFromInt(12)).Mul(decimal.NewFromInt(10))
	assert.True(t, a.Amount.Equal(hypotheticalA), "got %s want %s", a.Amount, hypotheticalA)
}

// =============================================================================
// NO-EXPOSURE TESTS
// =============================================================================

func TestAssess_NoExposure_ExplicitNone(t *testing.T) {
	// GIVEN: Everyone offered, nobody flagged
	// WHEN: Assessing
	// THEN: An explicit "none" assessment with zero amount; computed
	//       no-exposure is distinct from not computed

	a := penalty.Assess("acme", june, census(40, 40, 0, 10), rates2025())

	assert.Equal(t, penalty.ExposureNone, a.ExposureType)
	assert.Equal(t, 0, a.AffectedCount)
	assert.True(t, a.Amount.IsZero())
	assert.Equal(t, 40, a.FullTimeCount)
	assert.True(t, a.OfferRate.Equal(decimal.NewFromInt(1)))
}

func TestAssess_NoFullTimeEmployees(t *testing.T) {
	// A month with no full-time employees has no 95% test to fail.

	a := penalty.Assess("acme", june, census(0, 0, 0, 25), rates2025())

	assert.Equal(t, penalty.ExposureNone, a.ExposureType)
	assert.True(t, a.Amount.IsZero())
	assert.True(t, a.OfferRate.IsZero())
}

func TestAssess_PartTimersDoNotCount(t *testing.T) {
	// Part-time flags and offers are irrelevant to both tests.

	emps := census(40, 40, 0, 0)
	emps = append(emps, penalty.EmployeeMonth{EmployeeID: "pt-x", Flagged: true})

	a := penalty.Assess("acme", june, emps, rates2025())
	assert.Equal(t, penalty.ExposureNone, a.ExposureType)
	assert.Equal(t, 40, a.FullTimeCount)
}

func TestAssess_Exactly95Percent_Passes(t *testing.T) {
	// The (a) test is strict less-than: exactly 95% offered passes.

	a := penalty.Assess("acme", june, census(40, 38, 0, 0), rates2025())
	assert.Equal(t, penalty.ExposureNone, a.ExposureType)
}
