package report

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/warp/aca-engine/form"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// STRUCTURAL VALIDATION - The rules a filing transmitter would reject on
// =============================================================================

var validate = validator.New()

// Recipient is the 1095-C Part I identity block extracted for
// validation. SSN uses the transmitter format NNN-NN-NNNN.
type Recipient struct {
	Name    string            `validate:"required"`
	SSN     string            `validate:"required,ssn"`
	Address workforce.Address `validate:"required"`
}

// recipientIssues validates the identity block and maps field failures
// to stable issue codes.
func recipientIssues(emp workforce.Employee) []form.Issue {
	rec := Recipient{Name: emp.Name, SSN: emp.SSN, Address: emp.Address}
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []form.Issue{{
			Severity: form.SeverityError,
			Code:     form.IssueMissingAddress,
			Message:  err.Error(),
		}}
	}

	issues := make([]form.Issue, 0, len(verrs))
	for _, fe := range verrs {
		code := form.IssueMissingAddress
		msg := fmt.Sprintf("recipient field %s failed %s validation", fe.Namespace(), fe.Tag())
		if strings.Contains(fe.Namespace(), "SSN") {
			code = form.IssueInvalidSSN
			msg = fmt.Sprintf("SSN for employee %s is missing or malformed", emp.ID)
		}
		issues = append(issues, form.Issue{
			Severity: form.SeverityError,
			Code:     code,
			Message:  msg,
		})
	}
	return issues
}

// hasDataIssue reports whether a line already carries a data-quality
// issue. Such lines legitimately have no line 14 code, so the coverage
// gap rule skips them.
func hasDataIssue(l form.FormLine) bool {
	for _, issue := range l.Issues {
		switch issue.Code {
		case form.IssueMissingHours, form.IssueInsufficientData, form.IssueConsistency:
			return true
		}
	}
	return false
}

// validateEmployeeLines applies the structural rules to one employee's
// ordered monthly lines and finalizes their validation status:
//
//  1. recipient identity (name, SSN, address) is complete and well-formed
//  2. months are strictly increasing with no duplicates
//  3. every month carries an offer code, or the 2A not-employed waiver
func validateEmployeeLines(emp workforce.Employee, lines []form.FormLine) []form.FormLine {
	identity := recipientIssues(emp)

	out := make([]form.FormLine, 0, len(lines))
	for i, line := range lines {
		for _, issue := range identity {
			line = line.WithIssue(issue)
		}

		if i > 0 && !lines[i-1].Month.Before(line.Month) {
			line = line.WithIssue(form.Issue{
				Severity: form.SeverityError,
				Code:     form.IssueNonMonotonicMonths,
				Message:  fmt.Sprintf("month %s does not follow %s", line.Month, lines[i-1].Month),
			})
		}

		if line.Line14 == "" && line.Line16 != form.Line16NotEmployed && !hasDataIssue(line) {
			line = line.WithIssue(form.Issue{
				Severity: form.SeverityError,
				Code:     form.IssueCoverageGap,
				Message:  fmt.Sprintf("no offer code and no waiver for %s", line.Month),
			})
		}

		out = append(out, line.Finalize())
	}
	return out
}
