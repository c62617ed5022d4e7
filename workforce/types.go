/*
Package workforce holds employee identity and the roster store.

PURPOSE:
  Employees are the unit of evaluation for the whole engine: hours,
  measurement periods, eligibility, codes and penalties are all keyed by
  EmployeeID. This package owns the Employee record and the append-only
  Roster that downstream stages read.

CRITICAL INVARIANTS:
  1. Employee identity (ID, hire date) is immutable after ingest
  2. Termination sets TerminationDate via a new record version;
     terminated employees are retained, never deleted
  3. Downstream stages treat Employee as a read-only input

SEE ALSO:
  - hours: per-employee monthly hours ledger
  - measure: per-employee measurement period tracking
*/
package workforce

import (
	"context"
	"errors"
	"time"

	"github.com/warp/aca-engine/calendar"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type EmployerID string

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classification drives which measurement period track applies.
type Classification string

const (
	// ClassOngoing: employed for at least one full standard measurement
	// period; evaluated under the standard track only.
	ClassOngoing Classification = "ongoing"

	// ClassNewVariableHour: hours cannot be reasonably determined at
	// hire; gets an initial measurement period anchored to hire date.
	ClassNewVariableHour Classification = "new-variable-hour"

	// ClassNewFullTime: reasonably expected to average 30+ hrs/week at
	// hire; full-time from the start, no look-back needed.
	ClassNewFullTime Classification = "new-full-time"

	// ClassSeasonal: seasonal workers follow the variable-hour tracks.
	ClassSeasonal Classification = "seasonal"
)

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	switch c {
	case ClassOngoing, ClassNewVariableHour, ClassNewFullTime, ClassSeasonal:
		return true
	}
	return false
}

// UsesInitialPeriod reports whether this classification gets a
// hire-anchored initial measurement period.
func (c Classification) UsesInitialPeriod() bool {
	return c == ClassNewVariableHour || c == ClassSeasonal
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Address is the mailing address reported on Form 1095-C.
type Address struct {
	Line1 string `json:"line1" validate:"required"`
	City  string `json:"city" validate:"required"`
	State string `json:"state" validate:"required,len=2"`
	Zip   string `json:"zip" validate:"required"`
}

// Employee is the immutable identity record created on hire-data ingest.
type Employee struct {
	ID             EmployeeID     `json:"id"`
	EmployerID     EmployerID     `json:"employerId"`
	Name           string         `json:"name"`
	SSN            string         `json:"ssn"`
	Address        Address        `json:"address"`
	HireDate       time.Time      `json:"hireDate"`
	Termination    *time.Time     `json:"terminationDate,omitempty"`
	Classification Classification `json:"classification"`
}

// EmployedDuring reports whether the employee was employed for at least
// one day of the month.
func (e Employee) EmployedDuring(m calendar.Month) bool {
	if calendar.DateOnly(e.HireDate).After(m.Last()) {
		return false
	}
	if e.Termination != nil && calendar.DateOnly(*e.Termination).Before(m.First()) {
		return false
	}
	return true
}

// EmployedAllOf reports whether the employee was employed every day of
// the month (line 16 code 2A applies only to months with zero days of
// employment; 2B covers partial months).
func (e Employee) EmployedAllOf(m calendar.Month) bool {
	if calendar.DateOnly(e.HireDate).After(m.First()) {
		return false
	}
	if e.Termination != nil && calendar.DateOnly(*e.Termination).Before(m.Last()) {
		return false
	}
	return true
}

// =============================================================================
// ROSTER - Append-only employee store
// =============================================================================

var (
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrInvalidClassification = errors.New("invalid employee classification")
	ErrAlreadyTerminated     = errors.New("employee already terminated")
)

// Roster stores employee records. Terminations write a new version of
// the record; nothing is ever deleted.
type Roster interface {
	// Put ingests a new employee record. Re-ingesting an existing ID
	// replaces the visible record but retains prior versions.
	Put(ctx context.Context, e Employee) error

	// Get returns the latest version of an employee record.
	Get(ctx context.Context, id EmployeeID) (Employee, error)

	// ByEmployer returns the latest version of every employee of an
	// employer, ordered by ID.
	ByEmployer(ctx context.Context, employer EmployerID) ([]Employee, error)

	// Terminate records a termination date as a new version.
	Terminate(ctx context.Context, id EmployeeID, on time.Time) error
}
