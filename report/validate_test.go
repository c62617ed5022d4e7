package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/form"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func validEmployee() workforce.Employee {
	return workforce.Employee{
		ID:         "emp-1",
		EmployerID: "acme",
		Name:       "Riley Nolan",
		SSN:        "123-45-6789",
		Address: workforce.Address{
			Line1: "12 Harbor St",
			City:  "Portland",
			State: "ME",
			Zip:   "04101",
		},
		HireDate:       time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		Classification: workforce.ClassOngoing,
	}
}

func lineFor(m calendar.Month) form.FormLine {
	return form.FormLine{
		EmployeeID: "emp-1",
		EmployerID: "acme",
		Month:      m,
		Line14:     form.Line14MVSelfOnly,
		Line16:     form.Line16NotFullTime,
		Version:    1,
	}
}

// =============================================================================
// RECIPIENT IDENTITY TESTS
// =============================================================================

func TestRecipientIssues_Valid(t *testing.T) {
	assert.Empty(t, recipientIssues(validEmployee()))
}

func TestRecipientIssues_MalformedSSN(t *testing.T) {
	emp := validEmployee()
	emp.SSN = "123456789X"

	issues := recipientIssues(emp)
	require.Len(t, issues, 1)
	assert.Equal(t, form.IssueInvalidSSN, issues[0].Code)
	assert.Equal(t, form.SeverityError, issues[0].Severity)
}

func TestRecipientIssues_MissingAddressFields(t *testing.T) {
	emp := validEmployee()
	emp.Address = workforce.Address{Line1: "12 Harbor St"}

	issues := recipientIssues(emp)
	require.NotEmpty(t, issues)
	for _, issue := range issues {
		assert.Equal(t, form.IssueMissingAddress, issue.Code)
		assert.Equal(t, form.SeverityError, issue.Severity)
	}
}

func TestRecipientIssues_IdentityAppliedToEveryLine(t *testing.T) {
	// GIVEN: A recipient with a malformed SSN and two monthly lines
	// WHEN: Validating the employee's lines
	// THEN: Both lines carry the identity error and finalize as errors

	emp := validEmployee()
	emp.SSN = "nope"

	lines := validateEmployeeLines(emp, []form.FormLine{
		lineFor(calendar.NewMonth(2025, time.January)),
		lineFor(calendar.NewMonth(2025, time.February)),
	})
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, form.StatusError, line.ValidationStatus)
		require.NotEmpty(t, line.Issues)
		assert.Equal(t, form.IssueInvalidSSN, line.Issues[0].Code)
	}
}

// =============================================================================
// STRUCTURAL RULE TESTS
// =============================================================================

func TestValidateEmployeeLines_MonotonicMonths(t *testing.T) {
	// Months must strictly increase; duplicates and reversals are
	// consistency errors on the offending line.

	lines := validateEmployeeLines(validEmployee(), []form.FormLine{
		lineFor(calendar.NewMonth(2025, time.February)),
		lineFor(calendar.NewMonth(2025, time.January)),
		lineFor(calendar.NewMonth(2025, time.January)),
	})
	require.Len(t, lines, 3)

	assert.Equal(t, form.StatusValid, lines[0].ValidationStatus)
	assert.Equal(t, form.StatusError, lines[1].ValidationStatus)
	assert.Equal(t, form.IssueNonMonotonicMonths, lines[1].Issues[0].Code)
	assert.Equal(t, form.StatusError, lines[2].ValidationStatus)
}

func TestValidateEmployeeLines_CoverageGap(t *testing.T) {
	// GIVEN: A line with no offer code and no not-employed waiver
	// WHEN: Validating
	// THEN: coverage_gap error

	gap := form.FormLine{
		EmployeeID: "emp-1", EmployerID: "acme",
		Month: calendar.NewMonth(2025, time.March), Version: 1,
	}
	lines := validateEmployeeLines(validEmployee(), []form.FormLine{gap})
	require.Len(t, lines, 1)
	assert.Equal(t, form.StatusError, lines[0].ValidationStatus)
	assert.Equal(t, form.IssueCoverageGap, lines[0].Issues[0].Code)
}

func TestValidateEmployeeLines_NotEmployedWaiverIsNotAGap(t *testing.T) {
	waived := form.FormLine{
		EmployeeID: "emp-1", EmployerID: "acme",
		Month:  calendar.NewMonth(2025, time.March),
		Line14: form.Line14NoOffer, Line16: form.Line16NotEmployed,
		Version: 1,
	}
	lines := validateEmployeeLines(validEmployee(), []form.FormLine{waived})
	require.Len(t, lines, 1)
	assert.Equal(t, form.StatusValid, lines[0].ValidationStatus)
}

func TestValidateEmployeeLines_DataIssueLinesSkipGapRule(t *testing.T) {
	// A line that already failed on missing hours legitimately has no
	// line 14 code; it must not be double-flagged as a coverage gap.

	failed := form.FormLine{
		EmployeeID: "emp-1", EmployerID: "acme",
		Month: calendar.NewMonth(2025, time.March), Version: 1,
	}.WithIssue(form.Issue{Severity: form.SeverityError, Code: form.IssueMissingHours})

	lines := validateEmployeeLines(validEmployee(), []form.FormLine{failed})
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Issues, 1)
	assert.Equal(t, form.IssueMissingHours, lines[0].Issues[0].Code)
}

func TestValidateEmployeeLines_FinalizesStatus(t *testing.T) {
	lines := validateEmployeeLines(validEmployee(), []form.FormLine{
		lineFor(calendar.NewMonth(2025, time.January)),
	})
	require.Len(t, lines, 1)
	assert.Equal(t, form.StatusValid, lines[0].ValidationStatus)
}

// =============================================================================
// ISSUE COUNTING
// =============================================================================

func TestCountIssues(t *testing.T) {
	lines := []form.FormLine{
		{ValidationStatus: form.StatusValid},
		{ValidationStatus: form.StatusWarning},
		{ValidationStatus: form.StatusWarning},
		{ValidationStatus: form.StatusError},
	}
	errs, warns := countIssues(lines)
	assert.Equal(t, 1, errs)
	assert.Equal(t, 2, warns)
}
