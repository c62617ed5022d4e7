/*
Package hours implements the per-employee, per-month hours ledger.

PURPOSE:
  Aggregated monthly hours are the raw input to every eligibility
  determination. The ledger stores exactly one visible value per
  (employee, month), sourced from normalized HRIS/timesheet imports.

CRITICAL INVARIANTS:
  1. VERSIONED: A later import for the same (employee, month) replaces
     the visible value but never merges and never destroys the prior
     version.
  2. AUDITED: Every overwrite emits a distinct audit event recording
     the prior and new value. Silent replacement is a compliance bug.
  3. AVERAGING IS STRICT: averaging over a window with missing months
     silently understates hours, so AverageOverWindow fails with
     ErrInsufficientData unless the configured data fraction is met.

WHY LAST-WRITE-WINS?
  HRIS re-imports are corrections, not increments. "March was 120 hours,
  actually it was 140" must end at 140, not 260. The version chain plus
  the audit event preserves the story of how the number moved.

SEE ALSO:
  - store/memory, store/sqlite: Store and AuditLog implementations
  - eligibility: the main consumer of AverageOverWindow
*/
package hours

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNegativeHours is returned when an import reports hours < 0.
	ErrNegativeHours = errors.New("negative hours")

	// ErrNotFound is returned when no record exists for (employee, month).
	ErrNotFound = errors.New("hours record not found")

	// ErrInsufficientData is returned when a window has too few months
	// with data to produce a trustworthy average.
	ErrInsufficientData = errors.New("insufficient hours data for window")
)

// InsufficientDataError carries the coverage details of a failed average.
type InsufficientDataError struct {
	EmployeeID workforce.EmployeeID
	Window     calendar.MonthRange
	Present    int
	Required   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient hours data for %s over %s: %d of %d required months present",
		e.EmployeeID, e.Window, e.Present, e.Required)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// =============================================================================
// RECORD - One version of an (employee, month) hours value
// =============================================================================

// Record is a single version of an hours value. Version starts at 1 and
// increments on each overwrite; reads always see the highest version.
type Record struct {
	EmployeeID workforce.EmployeeID `json:"employeeId"`
	Month      calendar.Month       `json:"month"`
	Hours      decimal.Decimal      `json:"hours"`
	Version    int                  `json:"version"`
	Source     string               `json:"source,omitempty"`
	RecordedAt time.Time            `json:"recordedAt"`
}

// AuditEvent records an overwrite of a prior hours value.
type AuditEvent struct {
	ID         string               `json:"id"`
	EmployeeID workforce.EmployeeID `json:"employeeId"`
	Month      calendar.Month       `json:"month"`
	PriorHours decimal.Decimal      `json:"priorHours"`
	NewHours   decimal.Decimal      `json:"newHours"`
	Version    int                  `json:"version"`
	OccurredAt time.Time            `json:"occurredAt"`
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Store persists versioned hours records. Append-only: versions are
// added, never updated or deleted.
type Store interface {
	// AppendVersion writes a new version. The record's Version must be
	// exactly one greater than the latest stored version (or 1).
	AppendVersion(ctx context.Context, rec Record) error

	// Latest returns the highest version for (employee, month).
	Latest(ctx context.Context, id workforce.EmployeeID, m calendar.Month) (Record, error)

	// LatestRange returns the latest version of every month in the
	// inclusive window that has data, ordered by month.
	LatestRange(ctx context.Context, id workforce.EmployeeID, window calendar.MonthRange) ([]Record, error)

	// LastChanged returns the most recent RecordedAt across all records
	// for the employer's employees, for batch staleness checks.
	LastChanged(ctx context.Context, ids []workforce.EmployeeID) (time.Time, error)
}

// AuditLog persists overwrite events. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, ev AuditEvent) error
	AuditFor(ctx context.Context, id workforce.EmployeeID, m calendar.Month) ([]AuditEvent, error)
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger wraps a Store with the domain rules: month validity, negative
// hours rejection, overwrite auditing, and strict window averaging.
type Ledger struct {
	store Store
	audit AuditLog
	log   *zap.Logger

	// minDataFraction is the minimum fraction of window months that
	// must have data for AverageOverWindow. 1.0 = every month required.
	minDataFraction float64

	clock func() time.Time
}

// NewLedger builds a ledger. minDataFraction outside (0, 1] falls back
// to 1.0 (all months required).
func NewLedger(store Store, audit AuditLog, log *zap.Logger, minDataFraction float64) *Ledger {
	if minDataFraction <= 0 || minDataFraction > 1 {
		minDataFraction = 1.0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store:           store,
		audit:           audit,
		log:             log,
		minDataFraction: minDataFraction,
		clock:           time.Now,
	}
}

// RecordHours ingests an hours value for a month given as a
// first-of-month date. Overwrites append a new version and an audit
// event; they never merge.
func (l *Ledger) RecordHours(ctx context.Context, id workforce.EmployeeID, monthDate time.Time, hrs decimal.Decimal, source string) error {
	month, err := calendar.MonthFromDate(monthDate)
	if err != nil {
		return err
	}
	if hrs.IsNegative() {
		return fmt.Errorf("%w: %s for %s %s", ErrNegativeHours, hrs, id, month)
	}

	now := l.clock()
	rec := Record{
		EmployeeID: id,
		Month:      month,
		Hours:      hrs,
		Version:    1,
		Source:     source,
		RecordedAt: now,
	}

	prior, err := l.store.Latest(ctx, id, month)
	switch {
	case err == nil:
		rec.Version = prior.Version + 1
	case errors.Is(err, ErrNotFound):
		// First version.
	default:
		return err
	}

	if err := l.store.AppendVersion(ctx, rec); err != nil {
		return err
	}

	if rec.Version > 1 {
		ev := AuditEvent{
			ID:         uuid.NewString(),
			EmployeeID: id,
			Month:      month,
			PriorHours: prior.Hours,
			NewHours:   hrs,
			Version:    rec.Version,
			OccurredAt: now,
		}
		if l.audit != nil {
			if err := l.audit.AppendAudit(ctx, ev); err != nil {
				return err
			}
		}
		l.log.Warn("hours record overwritten",
			zap.String("employee", string(id)),
			zap.String("month", month.String()),
			zap.String("prior", prior.Hours.String()),
			zap.String("new", hrs.String()),
			zap.Int("version", rec.Version),
		)
	}
	return nil
}

// HoursFor returns the visible (latest) hours value for a month.
func (l *Ledger) HoursFor(ctx context.Context, id workforce.EmployeeID, month calendar.Month) (decimal.Decimal, error) {
	rec, err := l.store.Latest(ctx, id, month)
	if err != nil {
		return decimal.Zero, err
	}
	return rec.Hours, nil
}

// AverageOverWindow returns the arithmetic mean of monthly hours over
// the months of the window that have data. Fails with
// InsufficientDataError when fewer than minDataFraction of the window's
// months are present.
func (l *Ledger) AverageOverWindow(ctx context.Context, id workforce.EmployeeID, window calendar.MonthRange) (decimal.Decimal, error) {
	recs, err := l.store.LatestRange(ctx, id, window)
	if err != nil {
		return decimal.Zero, err
	}

	total := window.Count()
	required := requiredMonths(total, l.minDataFraction)
	if len(recs) < required {
		return decimal.Zero, &InsufficientDataError{
			EmployeeID: id,
			Window:     window,
			Present:    len(recs),
			Required:   required,
		}
	}

	sum := decimal.Zero
	for _, rec := range recs {
		sum = sum.Add(rec.Hours)
	}
	return sum.Div(decimal.NewFromInt(int64(len(recs)))), nil
}

// LastChanged reports the newest RecordedAt among the given employees.
func (l *Ledger) LastChanged(ctx context.Context, ids []workforce.EmployeeID) (time.Time, error) {
	return l.store.LastChanged(ctx, ids)
}

func requiredMonths(total int, fraction float64) int {
	required := int(float64(total)*fraction + 0.9999999)
	if required > total {
		required = total
	}
	if required < 1 {
		required = 1
	}
	return required
}
