/*
Package form defines the 1095-C monthly row and its validation variants.

PURPOSE:
  A FormLine is one employee-month row of Form 1095-C: the line 14 offer
  code, the line 15 employee-share amount, and the line 16 relief code,
  plus the three-state validation outcome the dashboard renders.

DESIGN:
  Validation status is a tagged variant with an explicit ordered issue
  list, not a boolean plus free text. Severity drives the state:
  any error-severity issue makes the line "error" (blocks submission),
  otherwise any warning-severity issue makes it "warning" (submission
  with sign-off), otherwise "valid".

IMMUTABILITY:
  FormLines are immutable once emitted into a batch. Corrections create
  a new Version, never an edit.
*/
package form

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// LINE 14 / LINE 16 CODES
// =============================================================================

// Line14Code is the IRS offer-of-coverage code series.
type Line14Code string

const (
	Line14QualifyingOffer Line14Code = "1A" // MV, self + family, share within FPL threshold
	Line14MVSelfOnly      Line14Code = "1B"
	Line14MVSelfDeps      Line14Code = "1C"
	Line14MVSelfSpouse    Line14Code = "1D"
	Line14MVFamily        Line14Code = "1E"
	Line14NonMV           Line14Code = "1F"
	Line14NoOffer         Line14Code = "1H"
)

// Line16Code is the IRS §4980H relief code series.
type Line16Code string

const (
	Line16NotEmployed      Line16Code = "2A"
	Line16NotFullTime      Line16Code = "2B"
	Line16Enrolled         Line16Code = "2C"
	Line16NonAssessment    Line16Code = "2D" // limited non-assessment period
	Line16SafeHarborW2     Line16Code = "2F"
	Line16SafeHarborFPL    Line16Code = "2G"
	Line16SafeHarborRate   Line16Code = "2H"
	Line16None             Line16Code = ""   // no relief applies
)

// =============================================================================
// VALIDATION VARIANTS
// =============================================================================

type ValidationStatus string

const (
	StatusValid   ValidationStatus = "valid"
	StatusWarning ValidationStatus = "warning"
	StatusError   ValidationStatus = "error"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one validation or regulatory finding on a line. The Code is
// stable for programmatic dispatch; the Message is for humans.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Issue codes emitted by the engine.
const (
	IssueMissingHours       = "missing_hours"
	IssueInsufficientData   = "insufficient_hours_data"
	IssueMissingIncomeBasis = "missing_income_basis"
	IssueUnaffordableOffer  = "unaffordable_offer"
	IssueNoOfferFullTime    = "no_offer_full_time"
	IssueOverlappingPeriods = "overlapping_measurement_periods"
	IssueConsistency        = "consistency_failure"
	IssueInvalidSSN         = "invalid_ssn"
	IssueMissingAddress     = "missing_address_field"
	IssueNonMonotonicMonths = "non_monotonic_months"
	IssueCoverageGap        = "coverage_gap"
)

// =============================================================================
// FORM LINE
// =============================================================================

// FormLine is one 1095-C monthly row.
type FormLine struct {
	EmployeeID workforce.EmployeeID `json:"employeeId"`
	EmployerID workforce.EmployerID `json:"employerId"`
	Month      calendar.Month       `json:"month"`

	Line14 Line14Code       `json:"line14Code"`
	Line15 *decimal.Decimal `json:"line15Amount,omitempty"` // only when required by line 14
	Line16 Line16Code       `json:"line16Code,omitempty"`

	// FullTime and Offered feed the penalty aggregation without
	// re-deriving them from codes.
	FullTime bool `json:"fullTime"`
	Offered  bool `json:"offered"`

	ValidationStatus ValidationStatus `json:"validationStatus"`
	Issues           []Issue          `json:"issues,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// WithIssue returns a copy with the issue appended; ordering is
// preserved (issues are an ordered list).
func (l FormLine) WithIssue(issue Issue) FormLine {
	issues := make([]Issue, 0, len(l.Issues)+1)
	issues = append(issues, l.Issues...)
	issues = append(issues, issue)
	l.Issues = issues
	return l
}

// Finalize derives ValidationStatus from the issue list.
func (l FormLine) Finalize() FormLine {
	l.ValidationStatus = StatusValid
	for _, issue := range l.Issues {
		switch issue.Severity {
		case SeverityError:
			l.ValidationStatus = StatusError
			return l
		case SeverityWarning:
			l.ValidationStatus = StatusWarning
		}
	}
	return l
}

// HasError reports whether any error-severity issue is present.
func (l FormLine) HasError() bool {
	for _, issue := range l.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarning reports whether any warning-severity issue is present.
func (l FormLine) HasWarning() bool {
	for _, issue := range l.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}
