/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Responses reuse the
  domain types directly (they carry stable json tags); request bodies get
  their own types so ingestion can validate and normalize before touching
  the domain.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - ErrorResponse: Uniform error envelope

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateEmployeeRequest ingests one employee identity record.
type CreateEmployeeRequest struct {
	ID             string `json:"id" validate:"required"`
	EmployerID     string `json:"employerId" validate:"required"`
	Name           string `json:"name" validate:"required"`
	SSN            string `json:"ssn"`
	Line1          string `json:"line1"`
	City           string `json:"city"`
	State          string `json:"state"`
	Zip            string `json:"zip"`
	HireDate       string `json:"hireDate" validate:"required"` // YYYY-MM-DD
	Classification string `json:"classification" validate:"required"`
}

// TerminateRequest records a termination date.
type TerminateRequest struct {
	Date string `json:"date" validate:"required"` // YYYY-MM-DD
}

// RecordHoursRequest ingests one monthly hours value.
type RecordHoursRequest struct {
	EmployeeID string          `json:"employeeId" validate:"required"`
	Month      string          `json:"month" validate:"required"` // YYYY-MM or YYYY-MM-01
	Hours      decimal.Decimal `json:"hours"`
	Source     string          `json:"source"`
}

// OfferRequest ingests coverage offer facts for one employee-month.
type OfferRequest struct {
	EmployeeID    string          `json:"employeeId" validate:"required"`
	Month         string          `json:"month" validate:"required"`
	Offered       bool            `json:"offered"`
	Tier          string          `json:"tier"`
	EmployeeShare decimal.Decimal `json:"premiumEmployeeShare"`
	MinimumValue  bool            `json:"planMinimumValue"`
	Enrolled      bool            `json:"enrolled"`
	SafeHarbor    string          `json:"safeHarborMethod"`
}

// CompensationRequest ingests safe-harbor income bases.
type CompensationRequest struct {
	EmployeeID   string           `json:"employeeId" validate:"required"`
	MonthlyWages *decimal.Decimal `json:"monthlyW2Wages,omitempty"`
	HourlyRate   *decimal.Decimal `json:"hourlyRate,omitempty"`
}

// RunBatchRequest starts a batch report run.
type RunBatchRequest struct {
	EmployerID string `json:"employerId" validate:"required"`
	TaxYear    int    `json:"taxYear" validate:"required"`
}

// LoadScenarioRequest loads a named demo scenario.
type LoadScenarioRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
