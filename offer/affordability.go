/*
Package offer derives IRS line 14/15/16 codes from coverage offer,
affordability and enrollment facts.

PURPOSE:
  Given what the employer offered an employee for a month (tier,
  employee share, minimum value), what the employee earns, and how the
  month was classified, produce the 1095-C monthly row codes. The three
  safe-harbor affordability tests (W-2 wages, federal poverty line,
  rate of pay) stand in for household income, which employers cannot
  know.

SAFE-HARBOR SELECTION:
  When no method is declared, every method with an available income
  basis is evaluated. Among the passing methods the one with the most
  headroom (highest threshold) wins; ties break by the fixed precedence
  W-2 > FPL > Rate of Pay.

SEE ALSO:
  - assigner.go: the decision table producing FormLines
  - form: code constants and issue variants
*/
package offer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/form"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// OFFER FACTS
// =============================================================================

// SafeHarborMethod names an affordability test.
type SafeHarborMethod string

const (
	MethodNone      SafeHarborMethod = "none" // engine picks among available methods
	MethodW2        SafeHarborMethod = "W2"
	MethodFPL       SafeHarborMethod = "FPL"
	MethodRateOfPay SafeHarborMethod = "RateOfPay"
)

// Tier is the coverage tier offered.
type Tier string

const (
	TierNone       Tier = "none"
	TierSelfOnly   Tier = "self-only"
	TierSelfSpouse Tier = "self-spouse"
	TierSelfDeps   Tier = "self-dependents"
	TierSelfFamily Tier = "self-family"
)

// CoverageOffer captures the offer facts for one employee-month.
type CoverageOffer struct {
	EmployeeID    workforce.EmployeeID `json:"employeeId"`
	Month         calendar.Month       `json:"month"`
	Offered       bool                 `json:"offered"`
	Tier          Tier                 `json:"tier,omitempty"`
	EmployeeShare decimal.Decimal      `json:"premiumEmployeeShare"`
	MinimumValue  bool                 `json:"planMinimumValue"`
	Enrolled      bool                 `json:"enrolled"`
	SafeHarbor    SafeHarborMethod     `json:"safeHarborMethod"`
}

// Compensation supplies the income bases the safe-harbor tests need.
// Nil fields mean the employer did not provide that figure.
type Compensation struct {
	EmployeeID   workforce.EmployeeID `json:"employeeId"`
	MonthlyWages *decimal.Decimal     `json:"monthlyW2Wages,omitempty"`
	HourlyRate   *decimal.Decimal     `json:"hourlyRate,omitempty"`
}

// Store persists offer and compensation facts, keyed per employee-month
// and per employee respectively. Months without an offer record are
// treated as not offered.
type Store interface {
	PutOffer(ctx context.Context, o CoverageOffer) error
	OfferFor(ctx context.Context, id workforce.EmployeeID, m calendar.Month) (CoverageOffer, error)
	PutCompensation(ctx context.Context, c Compensation) error
	CompensationFor(ctx context.Context, id workforce.EmployeeID) (Compensation, error)
}

// ErrOfferNotFound is returned for months with no offer record.
var ErrOfferNotFound = errors.New("coverage offer not found")

// =============================================================================
// AFFORDABILITY
// =============================================================================

// Params are the annually published affordability inputs, threaded from
// configuration.
type Params struct {
	// AffordabilityPercent is the IRS percentage for the tax year as a
	// fraction (2025: 0.0902).
	AffordabilityPercent decimal.Decimal

	// FPLAnnual is the applicable federal poverty line, annualized.
	FPLAnnual decimal.Decimal
}

// ErrMissingIncomeBasis is returned when the declared safe-harbor
// method lacks the income figure its test needs (spec class DataError).
var ErrMissingIncomeBasis = errors.New("missing income basis for safe harbor method")

// MissingIncomeBasisError names the method that could not be tested.
type MissingIncomeBasisError struct {
	EmployeeID workforce.EmployeeID
	Method     SafeHarborMethod
}

func (e *MissingIncomeBasisError) Error() string {
	return fmt.Sprintf("missing income basis for %s safe harbor (employee %s)", e.Method, e.EmployeeID)
}

func (e *MissingIncomeBasisError) Unwrap() error { return ErrMissingIncomeBasis }

// MethodResult is the outcome of one safe-harbor test.
type MethodResult struct {
	Method     SafeHarborMethod
	Basis      decimal.Decimal // monthly income basis
	Threshold  decimal.Decimal // basis * affordability percent
	Affordable bool
}

var monthsPerYear = decimal.NewFromInt(12)

// fullTimeMonthlyHours is the 130-hour factor the rate-of-pay safe
// harbor uses as its monthly income basis.
var fullTimeMonthlyHours = decimal.NewFromInt(130)

// basisFor returns the monthly income basis for a method, or false when
// the figure is unavailable.
func (p Params) basisFor(method SafeHarborMethod, comp Compensation) (decimal.Decimal, bool) {
	switch method {
	case MethodW2:
		if comp.MonthlyWages == nil {
			return decimal.Zero, false
		}
		return *comp.MonthlyWages, true
	case MethodFPL:
		return p.FPLAnnual.Div(monthsPerYear), true
	case MethodRateOfPay:
		if comp.HourlyRate == nil {
			return decimal.Zero, false
		}
		return comp.HourlyRate.Mul(fullTimeMonthlyHours), true
	default:
		return decimal.Zero, false
	}
}

// test runs one affordability test: share / basis <= percent,
// stated as share <= basis * percent to stay in exact decimal math.
func (p Params) test(method SafeHarborMethod, share decimal.Decimal, comp Compensation) (MethodResult, bool) {
	basis, ok := p.basisFor(method, comp)
	if !ok {
		return MethodResult{}, false
	}
	threshold := basis.Mul(p.AffordabilityPercent)
	return MethodResult{
		Method:     method,
		Basis:      basis,
		Threshold:  threshold,
		Affordable: share.LessThanOrEqual(threshold),
	}, true
}

// methodPrecedence is the tie-break order: W-2 > FPL > Rate of Pay.
var methodPrecedence = []SafeHarborMethod{MethodW2, MethodFPL, MethodRateOfPay}

// SelectSafeHarbor evaluates affordability and picks the safe harbor.
//
// Declared method: only that test runs; a missing basis is a
// MissingIncomeBasisError. No declared method: all available tests run
// and the passing method with the highest threshold wins, precedence
// breaking ties. Returns (result, false, nil) when no method passes.
func (p Params) SelectSafeHarbor(id workforce.EmployeeID, declared SafeHarborMethod, share decimal.Decimal, comp Compensation) (MethodResult, bool, error) {
	if declared != MethodNone && declared != "" {
		res, ok := p.test(declared, share, comp)
		if !ok {
			return MethodResult{}, false, &MissingIncomeBasisError{EmployeeID: id, Method: declared}
		}
		return res, res.Affordable, nil
	}

	var best MethodResult
	found := false
	for _, method := range methodPrecedence {
		res, ok := p.test(method, share, comp)
		if !ok || !res.Affordable {
			continue
		}
		if !found || res.Threshold.GreaterThan(best.Threshold) {
			best = res
			found = true
		}
	}
	return best, found, nil
}

// HarborCode maps a safe-harbor method to its line 16 code.
func HarborCode(method SafeHarborMethod) form.Line16Code {
	switch method {
	case MethodW2:
		return form.Line16SafeHarborW2
	case MethodFPL:
		return form.Line16SafeHarborFPL
	case MethodRateOfPay:
		return form.Line16SafeHarborRate
	default:
		return form.Line16None
	}
}
