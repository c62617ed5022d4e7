package form_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/aca-engine/form"
)

// =============================================================================
// VALIDATION VARIANT TESTS
// =============================================================================

func TestFormLine_Finalize_NoIssues_Valid(t *testing.T) {
	line := form.FormLine{Line14: form.Line14MVSelfOnly}.Finalize()
	assert.Equal(t, form.StatusValid, line.ValidationStatus)
}

func TestFormLine_Finalize_WarningOnly(t *testing.T) {
	line := form.FormLine{}.
		WithIssue(form.Issue{Severity: form.SeverityWarning, Code: form.IssueUnaffordableOffer}).
		Finalize()
	assert.Equal(t, form.StatusWarning, line.ValidationStatus)
}

func TestFormLine_Finalize_ErrorDominatesWarning(t *testing.T) {
	// Any error-severity issue makes the line an error, regardless of
	// ordering among the issues.

	line := form.FormLine{}.
		WithIssue(form.Issue{Severity: form.SeverityWarning, Code: form.IssueUnaffordableOffer}).
		WithIssue(form.Issue{Severity: form.SeverityError, Code: form.IssueMissingHours}).
		Finalize()
	assert.Equal(t, form.StatusError, line.ValidationStatus)

	reversed := form.FormLine{}.
		WithIssue(form.Issue{Severity: form.SeverityError, Code: form.IssueMissingHours}).
		WithIssue(form.Issue{Severity: form.SeverityWarning, Code: form.IssueUnaffordableOffer}).
		Finalize()
	assert.Equal(t, form.StatusError, reversed.ValidationStatus)
}

func TestFormLine_WithIssue_PreservesOrderAndOriginal(t *testing.T) {
	// WithIssue is copy-on-write: the receiver is untouched and issue
	// order is the append order.

	base := form.FormLine{}.WithIssue(form.Issue{Severity: form.SeverityWarning, Code: "first"})
	extended := base.WithIssue(form.Issue{Severity: form.SeverityWarning, Code: "second"})

	assert.Len(t, base.Issues, 1)
	assert.Len(t, extended.Issues, 2)
	assert.Equal(t, "first", extended.Issues[0].Code)
	assert.Equal(t, "second", extended.Issues[1].Code)
}

func TestFormLine_HasErrorHasWarning(t *testing.T) {
	line := form.FormLine{}.
		WithIssue(form.Issue{Severity: form.SeverityWarning, Code: form.IssueNoOfferFullTime})
	assert.True(t, line.HasWarning())
	assert.False(t, line.HasError())

	line = line.WithIssue(form.Issue{Severity: form.SeverityError, Code: form.IssueInvalidSSN})
	assert.True(t, line.HasError())
}
