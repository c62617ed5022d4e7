package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/eligibility"
	"github.com/warp/aca-engine/form"
	"github.com/warp/aca-engine/measure"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// ASSIGNER - The line 14/15/16 decision table
// =============================================================================

// Assigner derives FormLine codes from offer facts and eligibility
// results. Structural validation is out of its hands: the batch report
// builder finalizes validation status later.
type Assigner struct {
	tracker *measure.Tracker
	params  Params
	clock   func() time.Time
}

func NewAssigner(tracker *measure.Tracker, params Params) *Assigner {
	return &Assigner{tracker: tracker, params: params, clock: time.Now}
}

// AssignCodes produces the partial FormLine for one employee-month.
//
// Line 14 reflects the offer; line 15 carries the employee share where
// line 14 requires it; line 16 applies the first matching relief in
// IRS precedence order: not employed (2A), not full-time (2B),
// enrolled (2C), limited non-assessment period (2D), then the chosen
// affordability safe harbor (2F/2G/2H).
func (a *Assigner) AssignCodes(ctx context.Context, emp workforce.Employee, month calendar.Month, off CoverageOffer, elig eligibility.Result, comp Compensation) (form.FormLine, error) {
	line := form.FormLine{
		EmployeeID: emp.ID,
		EmployerID: emp.EmployerID,
		Month:      month,
		FullTime:   elig.IsFullTime(),
		Offered:    off.Offered,
		Version:    1,
		CreatedAt:  a.clock(),
	}

	for _, flag := range elig.Flags {
		if flag == eligibility.FlagOverlappingPeriods {
			line = line.WithIssue(form.Issue{
				Severity: form.SeverityWarning,
				Code:     form.IssueOverlappingPeriods,
				Message:  fmt.Sprintf("%s evaluated under overlapping initial and standard periods", month),
			})
		}
	}

	// Months with no employment at all: 1H/2A and nothing else applies.
	if !emp.EmployedDuring(month) {
		line.Line14 = form.Line14NoOffer
		line.Line16 = form.Line16NotEmployed
		return line, nil
	}

	line.Line14 = a.line14(off)
	if line15Required(line.Line14) {
		share := off.EmployeeShare
		line.Line15 = &share
	}

	line16, line, err := a.line16(ctx, emp, month, off, elig, comp, line)
	if err != nil {
		return form.FormLine{}, err
	}
	line.Line16 = line16

	if !off.Offered && elig.IsFullTime() {
		line = line.WithIssue(form.Issue{
			Severity: form.SeverityWarning,
			Code:     form.IssueNoOfferFullTime,
			Message:  fmt.Sprintf("no coverage offered to full-time employee for %s", month),
		})
	}
	return line, nil
}

func (a *Assigner) line14(off CoverageOffer) form.Line14Code {
	if !off.Offered {
		return form.Line14NoOffer
	}
	if !off.MinimumValue {
		return form.Line14NonMV
	}
	switch off.Tier {
	case TierSelfOnly:
		return form.Line14MVSelfOnly
	case TierSelfSpouse:
		return form.Line14MVSelfSpouse
	case TierSelfDeps:
		return form.Line14MVSelfDeps
	case TierSelfFamily:
		// Qualifying offer: family MV coverage whose employee share is
		// within the FPL safe-harbor threshold.
		if res, ok := a.params.test(MethodFPL, off.EmployeeShare, Compensation{}); ok && res.Affordable {
			return form.Line14QualifyingOffer
		}
		return form.Line14MVFamily
	default:
		return form.Line14MVSelfOnly
	}
}

func (a *Assigner) line16(ctx context.Context, emp workforce.Employee, month calendar.Month, off CoverageOffer, elig eligibility.Result, comp Compensation, line form.FormLine) (form.Line16Code, form.FormLine, error) {
	if !elig.IsFullTime() {
		return form.Line16NotFullTime, line, nil
	}
	if off.Offered && off.Enrolled {
		return form.Line16Enrolled, line, nil
	}

	// Limited non-assessment period: the employee is still being
	// measured (lookback or administrative phase of the initial track).
	phase, period, err := a.tracker.CurrentPhase(ctx, emp.ID, month.First())
	if err != nil {
		return form.Line16None, line, err
	}
	if period != nil && period.Origin == measure.OriginInitial &&
		(phase == measure.PhaseLookback || phase == measure.PhaseAdministrative) {
		return form.Line16NonAssessment, line, nil
	}

	if !off.Offered {
		return form.Line16None, line, nil
	}

	res, passed, err := a.params.SelectSafeHarbor(emp.ID, off.SafeHarbor, off.EmployeeShare, comp)
	if err != nil {
		var missing *MissingIncomeBasisError
		if errors.As(err, &missing) {
			line = line.WithIssue(form.Issue{
				Severity: form.SeverityError,
				Code:     form.IssueMissingIncomeBasis,
				Message:  missing.Error(),
			})
			return form.Line16None, line, nil
		}
		return form.Line16None, line, err
	}
	if !passed {
		// Offered but unaffordable under every testable method: codes
		// stand, the month is flagged for potential 4980H(b) exposure.
		line = line.WithIssue(form.Issue{
			Severity: form.SeverityWarning,
			Code:     form.IssueUnaffordableOffer,
			Message:  fmt.Sprintf("offer for %s fails every affordability safe harbor", month),
		})
		return form.Line16None, line, nil
	}
	return HarborCode(res.Method), line, nil
}

// line15Required: the employee share is reported only for offer codes
// that are not qualifying offers and not no-offer rows.
func line15Required(code form.Line14Code) bool {
	switch code {
	case form.Line14MVSelfOnly, form.Line14MVSelfDeps, form.Line14MVSelfSpouse, form.Line14MVFamily:
		return true
	}
	return false
}
