/*
Package eligibility classifies employees as full-time, part-time or
ineligible per coverage month.

PURPOSE:
  Applies the 30 hrs/week (130 hrs/month) threshold against the hours
  ledger and the measurement period tracker. The evaluator is a pure
  function of those two inputs plus the frozen determinations store.

THE LOCK INVARIANT:
  Once full-time status is decided at the end of a look-back window, it
  holds for every month of the corresponding stability period, even if
  hours later drop to zero. This is enforced by construction: months
  inside a stability window are classified from the stored
  Determination (decided at lookback end), never from live hours.
  An attempt to flip a determination while its stability period is
  active is a ConsistencyError (ErrStabilityLocked).

FALLBACK:
  Months not covered by any stability window use the monthly
  measurement method: that single month's hours >= 130 classifies
  full-time for that month only. No averaging.

OVERLAP:
  A month covered by both the initial and the standard stability window
  is resolved by the configured OverlapPolicy and always flagged for
  human review - regulatory ambiguity is never silently resolved.

SEE ALSO:
  - measure: period generation, overlap policy
  - hours: AverageOverWindow, strict data requirements
*/
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/hours"
	"github.com/warp/aca-engine/measure"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// STATUS & RESULT
// =============================================================================

type Status string

const (
	StatusFullTime   Status = "FT"
	StatusPartTime   Status = "PT"
	StatusIneligible Status = "ineligible"
)

// Method records how a month was classified.
type Method string

const (
	MethodLookback    Method = "lookback"    // stability period, frozen determination
	MethodMonthly     Method = "monthly"     // single-month fallback
	MethodDesignation Method = "designation" // new-full-time by hire designation
	MethodNone        Method = "none"        // ineligible months
)

// FullTimeMonthlyHours is the inclusive monthly threshold (130 hours,
// the monthly statement of 30 hours/week).
var FullTimeMonthlyHours = decimal.NewFromInt(130)

// FlagOverlappingPeriods marks months evaluated while both the initial
// and standard stability windows were live.
const FlagOverlappingPeriods = "overlapping-measurement-periods"

// Result is the derived classification for one employee-month.
// Results are never mutated: recomputation appends a new version and
// the superseded record is retained for audit.
type Result struct {
	EmployeeID     workforce.EmployeeID `json:"employeeId"`
	EmployerID     workforce.EmployerID `json:"employerId"`
	Month          calendar.Month       `json:"month"`
	Status         Status               `json:"status"`
	AverageHours   decimal.Decimal      `json:"averageHours"`
	SourcePeriodID string               `json:"sourcePeriodId,omitempty"`
	Method         Method               `json:"method"`
	Flags          []string             `json:"flags,omitempty"`
	Version        int                  `json:"version"`
	ComputedAt     time.Time            `json:"computedAt"`
}

// IsFullTime is a convenience for downstream aggregation.
func (r Result) IsFullTime() bool { return r.Status == StatusFullTime }

// ResultStore retains every computed result version.
type ResultStore interface {
	// AppendResult stores r as a new version (assigned by the store)
	// and returns the stored record.
	AppendResult(ctx context.Context, r Result) (Result, error)

	// LatestByEmployer returns the latest version of every result for
	// the employer in the tax year, ordered by employee then month.
	LatestByEmployer(ctx context.Context, employer workforce.EmployerID, taxYear int) ([]Result, error)
}

// =============================================================================
// DETERMINATION - The frozen lookback-end decision
// =============================================================================

// Determination is the classification decided at look-back end that
// governs a whole stability period.
type Determination struct {
	EmployeeID     workforce.EmployeeID `json:"employeeId"`
	PeriodID       string               `json:"periodId"` // stability period
	Status         Status               `json:"status"`
	AverageHours   decimal.Decimal      `json:"averageHours"`
	LookbackWindow calendar.MonthRange  `json:"lookbackWindow"`
	DecidedAt      time.Time            `json:"decidedAt"` // lookback end
	Version        int                  `json:"version"`
}

// DeterminationStore is append-only: revisions add versions.
type DeterminationStore interface {
	AppendDetermination(ctx context.Context, d Determination) (Determination, error)
	LatestDetermination(ctx context.Context, id workforce.EmployeeID, periodID string) (Determination, error)
}

// ErrDeterminationNotFound is returned when no determination exists yet.
var ErrDeterminationNotFound = errors.New("determination not found")

// ErrStabilityLocked is the ConsistencyError sentinel for an attempted
// status change inside an active stability period.
var ErrStabilityLocked = errors.New("stability period status is locked")

// StabilityLockError carries the conflicting statuses.
type StabilityLockError struct {
	EmployeeID workforce.EmployeeID
	PeriodID   string
	Locked     Status
	Attempted  Status
}

func (e *StabilityLockError) Error() string {
	return fmt.Sprintf("stability period %s for %s is locked at %s; recomputation yielded %s",
		e.PeriodID, e.EmployeeID, e.Locked, e.Attempted)
}

func (e *StabilityLockError) Unwrap() error { return ErrStabilityLocked }

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator classifies employee-months. It holds no mutable state of
// its own; all state lives in the ledger, tracker and stores.
type Evaluator struct {
	ledger         *hours.Ledger
	tracker        *measure.Tracker
	roster         workforce.Roster
	determinations DeterminationStore
	clock          func() time.Time
}

func NewEvaluator(ledger *hours.Ledger, tracker *measure.Tracker, roster workforce.Roster, determinations DeterminationStore) *Evaluator {
	return &Evaluator{
		ledger:         ledger,
		tracker:        tracker,
		roster:         roster,
		determinations: determinations,
		clock:          time.Now,
	}
}

// Evaluate classifies one employee-month.
//
// Data problems (missing hours, sparse lookback windows) are returned
// as errors wrapping the hours package sentinels; callers surface them
// as per-line validation issues rather than aborting batches.
func (ev *Evaluator) Evaluate(ctx context.Context, id workforce.EmployeeID, month calendar.Month) (Result, error) {
	emp, err := ev.roster.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}

	base := Result{
		EmployeeID: id,
		EmployerID: emp.EmployerID,
		Month:      month,
		ComputedAt: ev.clock(),
	}

	if !emp.EmployedDuring(month) {
		base.Status = StatusIneligible
		base.Method = MethodNone
		return base, nil
	}

	periods, err := ev.tracker.PeriodsFor(ctx, id, month.Last())
	if err != nil {
		return Result{}, err
	}

	covering := measure.StabilityCovering(periods, month)
	if len(covering) == 0 {
		return ev.monthlyMethod(ctx, emp, base)
	}
	if len(covering) > 1 {
		base.Flags = append(base.Flags, FlagOverlappingPeriods)
	}

	policy := ev.tracker.Config().Overlap
	switch policy {
	case measure.OverlapConservativeFT:
		return ev.conservative(ctx, periods, covering, base)
	default: // initial-governs
		det, err := ev.determinationFor(ctx, periods, covering[0])
		if err != nil {
			return Result{}, err
		}
		return resultFromDetermination(base, det), nil
	}
}

// monthlyMethod classifies from the single month's hours. Used for
// months outside any stability window, including new-full-time hires
// before their first determination (who are full-time by designation).
func (ev *Evaluator) monthlyMethod(ctx context.Context, emp workforce.Employee, base Result) (Result, error) {
	if emp.Classification == workforce.ClassNewFullTime {
		base.Status = StatusFullTime
		base.Method = MethodDesignation
		return base, nil
	}

	hrs, err := ev.ledger.HoursFor(ctx, emp.ID, base.Month)
	if err != nil {
		return Result{}, fmt.Errorf("monthly method for %s %s: %w", emp.ID, base.Month, err)
	}
	base.AverageHours = hrs
	base.Method = MethodMonthly
	if hrs.GreaterThanOrEqual(FullTimeMonthlyHours) {
		base.Status = StatusFullTime
	} else {
		base.Status = StatusPartTime
	}
	return base, nil
}

// conservative evaluates every covering stability window and takes
// full-time if any window says full-time.
func (ev *Evaluator) conservative(ctx context.Context, periods []measure.Period, covering []measure.Period, base Result) (Result, error) {
	var chosen *Determination
	for _, stability := range covering {
		det, err := ev.determinationFor(ctx, periods, stability)
		if err != nil {
			return Result{}, err
		}
		if chosen == nil || (chosen.Status != StatusFullTime && det.Status == StatusFullTime) {
			d := det
			chosen = &d
		}
	}
	return resultFromDetermination(base, *chosen), nil
}

// determinationFor returns the frozen decision for a stability period,
// computing and persisting it on first use.
func (ev *Evaluator) determinationFor(ctx context.Context, periods []measure.Period, stability measure.Period) (Determination, error) {
	det, err := ev.determinations.LatestDetermination(ctx, stability.EmployeeID, stability.ID)
	if err == nil {
		return det, nil
	}
	if !errors.Is(err, ErrDeterminationNotFound) {
		return Determination{}, err
	}

	computed, err := ev.computeDetermination(ctx, periods, stability)
	if err != nil {
		return Determination{}, err
	}
	return ev.determinations.AppendDetermination(ctx, computed)
}

// Redetermine recomputes a stability determination from current ledger
// data, for use when lookback-window hours were corrected. If the
// stability period is active as of asOf and the recomputation would
// change status, the change is rejected with a StabilityLockError.
func (ev *Evaluator) Redetermine(ctx context.Context, id workforce.EmployeeID, stabilityPeriodID string, asOf time.Time) (Determination, error) {
	periods, err := ev.tracker.PeriodsFor(ctx, id, asOf)
	if err != nil {
		return Determination{}, err
	}
	var stability *measure.Period
	for i := range periods {
		if periods[i].ID == stabilityPeriodID {
			stability = &periods[i]
			break
		}
	}
	if stability == nil {
		return Determination{}, fmt.Errorf("stability period %s not found for %s", stabilityPeriodID, id)
	}

	computed, err := ev.computeDetermination(ctx, periods, *stability)
	if err != nil {
		return Determination{}, err
	}

	existing, err := ev.determinations.LatestDetermination(ctx, id, stabilityPeriodID)
	if err != nil && !errors.Is(err, ErrDeterminationNotFound) {
		return Determination{}, err
	}
	if err == nil && existing.Status != computed.Status && stability.Contains(asOf) {
		return Determination{}, &StabilityLockError{
			EmployeeID: id,
			PeriodID:   stabilityPeriodID,
			Locked:     existing.Status,
			Attempted:  computed.Status,
		}
	}
	return ev.determinations.AppendDetermination(ctx, computed)
}

func (ev *Evaluator) computeDetermination(ctx context.Context, periods []measure.Period, stability measure.Period) (Determination, error) {
	lookback, ok := measure.FeedingLookback(periods, stability)
	if !ok {
		return Determination{}, fmt.Errorf("no lookback period feeds stability %s", stability.ID)
	}
	window, err := lookback.LookbackWindow()
	if err != nil {
		return Determination{}, err
	}

	avg, err := ev.ledger.AverageOverWindow(ctx, stability.EmployeeID, window)
	if err != nil {
		return Determination{}, fmt.Errorf("determining %s: %w", stability.ID, err)
	}

	status := StatusPartTime
	// Ties at exactly 130 count as full-time (inclusive threshold).
	if avg.GreaterThanOrEqual(FullTimeMonthlyHours) {
		status = StatusFullTime
	}
	return Determination{
		EmployeeID:     stability.EmployeeID,
		PeriodID:       stability.ID,
		Status:         status,
		AverageHours:   avg,
		LookbackWindow: window,
		DecidedAt:      lookback.End,
	}, nil
}

func resultFromDetermination(base Result, det Determination) Result {
	base.Status = det.Status
	base.AverageHours = det.AverageHours
	base.SourcePeriodID = det.PeriodID
	base.Method = MethodLookback
	return base
}
