package measure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// PERIOD
// =============================================================================

// Kind is the phase a period window represents.
type Kind string

const (
	KindLookback       Kind = "lookback"
	KindAdministrative Kind = "administrative"
	KindStability      Kind = "stability"
)

// Phase is the answer to "where is this employee right now?". It is the
// period kind plus the explicit none state before any period begins.
type Phase string

const (
	PhaseNone           Phase = "none"
	PhaseLookback       Phase = Phase(KindLookback)
	PhaseAdministrative Phase = Phase(KindAdministrative)
	PhaseStability      Phase = Phase(KindStability)
)

// Origin distinguishes the calendar-anchored standard track from the
// hire-anchored initial track.
type Origin string

const (
	OriginStandard Origin = "standard"
	OriginInitial  Origin = "initial"
)

// Period is one phase window. Windows are half-open [Start, End):
// the contiguity invariant is that each phase starts exactly where the
// previous one ends.
type Period struct {
	ID         string               `json:"id"`
	EmployeeID workforce.EmployeeID `json:"employeeId"`
	Origin     Origin               `json:"origin"`
	Cycle      int                  `json:"cycle"`
	Kind       Kind                 `json:"kind"`
	Start      time.Time            `json:"startDate"`
	End        time.Time            `json:"endDate"`
}

// Contains reports whether the date falls in [Start, End).
func (p Period) Contains(d time.Time) bool {
	d = calendar.DateOnly(d)
	return !d.Before(p.Start) && d.Before(p.End)
}

// Empty reports a zero-length window (an administrative period when the
// configured administrative length is zero days).
func (p Period) Empty() bool { return !p.Start.Before(p.End) }

// LookbackWindow returns the whole calendar months covered by a
// lookback period, which is the averaging window fed to the hours
// ledger. Partial boundary months of the hire-anchored initial track
// are excluded: only full months of data are averaged.
func (p Period) LookbackWindow() (calendar.MonthRange, error) {
	if p.Kind != KindLookback {
		return calendar.MonthRange{}, fmt.Errorf("period %s is %s, not lookback", p.ID, p.Kind)
	}
	start := calendar.MonthOf(p.Start)
	if p.Start.Day() != 1 {
		start = start.Next()
	}
	// End is exclusive; the last full month is the one ending strictly
	// before End.
	end := calendar.MonthOf(p.End.AddDate(0, 0, -1))
	if p.End.AddDate(0, 0, -1).Day() != end.Last().Day() {
		end = end.Prev()
	}
	return calendar.NewMonthRange(start, end)
}

func periodID(id workforce.EmployeeID, origin Origin, cycle int, kind Kind) string {
	return fmt.Sprintf("%s/%s-%d/%s", id, origin, cycle, kind)
}

// =============================================================================
// CONSISTENCY
// =============================================================================

// ErrOverlappingPeriods is the ConsistencyError sentinel for a broken
// track: overlap within a single track means the generated history is
// unusable for the affected employee.
var ErrOverlappingPeriods = errors.New("overlapping measurement periods")

// ValidateTrack verifies the contiguity invariant of one track's
// periods (already ordered): each period starts exactly where the
// previous one ends.
func ValidateTrack(periods []Period) error {
	for i := 1; i < len(periods); i++ {
		prev, cur := periods[i-1], periods[i]
		if !cur.Start.Equal(prev.End) {
			return fmt.Errorf("%w: %s [%s) does not start at end of %s [%s)",
				ErrOverlappingPeriods, cur.ID, cur.Start.Format("2006-01-02"), prev.ID, prev.End.Format("2006-01-02"))
		}
	}
	return nil
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker generates measurement periods for employees from the roster
// and the employer's configuration. Generation is deterministic: the
// same inputs always produce the same period records.
type Tracker struct {
	cfg    Config
	roster workforce.Roster
}

// NewTracker builds a tracker. The config must already be validated.
func NewTracker(cfg Config, roster workforce.Roster) *Tracker {
	return &Tracker{cfg: cfg.Normalized(), roster: roster}
}

// Config returns the normalized configuration the tracker runs under.
func (t *Tracker) Config() Config { return t.cfg }

// PeriodsFor returns the ordered list of measurement periods covering
// the employee's history through asOf. Standard-track cycles are
// generated while their look-back has started by asOf, so the stability
// window covering asOf is always present. The initial track (variable
// hour and seasonal hires) contributes one hire-anchored cycle.
func (t *Tracker) PeriodsFor(ctx context.Context, id workforce.EmployeeID, asOf time.Time) ([]Period, error) {
	emp, err := t.roster.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	asOf = calendar.DateOnly(asOf)

	standard := t.standardTrack(emp, asOf)
	if err := ValidateTrack(standard); err != nil {
		return nil, err
	}

	var initial []Period
	if emp.Classification.UsesInitialPeriod() {
		initial = t.initialTrack(emp)
		if err := ValidateTrack(initial); err != nil {
			return nil, err
		}
	}

	periods := make([]Period, 0, len(standard)+len(initial))
	periods = append(periods, initial...)
	periods = append(periods, standard...)
	sortPeriods(periods)
	return periods, nil
}

// CurrentPhase returns the employee's phase on the given date, with the
// governing period. Months before any period began are PhaseNone.
// While the initial track is live it answers the query (the employee is
// being measured under it); otherwise the standard track does.
func (t *Tracker) CurrentPhase(ctx context.Context, id workforce.EmployeeID, at time.Time) (Phase, *Period, error) {
	periods, err := t.PeriodsFor(ctx, id, at)
	if err != nil {
		return PhaseNone, nil, err
	}
	var standardHit *Period
	for i := range periods {
		p := periods[i]
		if !p.Contains(at) {
			continue
		}
		if p.Origin == OriginInitial {
			return Phase(p.Kind), &periods[i], nil
		}
		if standardHit == nil {
			standardHit = &periods[i]
		}
	}
	if standardHit != nil {
		return Phase(standardHit.Kind), standardHit, nil
	}
	return PhaseNone, nil, nil
}

// StabilityCovering returns the stability periods (either track) whose
// window contains the first day of the month, initial track first.
func StabilityCovering(periods []Period, m calendar.Month) []Period {
	var hits []Period
	for _, p := range periods {
		if p.Kind == KindStability && p.Contains(m.First()) {
			hits = append(hits, p)
		}
	}
	// Initial track first; sortPeriods already interleaves by start, so
	// re-order explicitly.
	for i := range hits {
		if hits[i].Origin == OriginInitial && i != 0 {
			hits[0], hits[i] = hits[i], hits[0]
		}
	}
	return hits
}

// FeedingLookback returns the lookback period whose evaluation feeds
// the given stability period: same track, same cycle.
func FeedingLookback(periods []Period, stability Period) (Period, bool) {
	for _, p := range periods {
		if p.Kind == KindLookback && p.Origin == stability.Origin && p.Cycle == stability.Cycle {
			return p, true
		}
	}
	return Period{}, false
}

// =============================================================================
// TRACK GENERATION
// =============================================================================

func (t *Tracker) standardTrack(emp workforce.Employee, asOf time.Time) []Period {
	anchor := t.firstStandardAnchor(emp.HireDate)
	var periods []Period

	cycleStart := anchor
	for cycle := 0; !cycleStart.After(asOf); cycle++ {
		cyclePeriods, next := t.buildCycle(emp.ID, OriginStandard, cycle, cycleStart, t.cfg.LookbackMonths)
		periods = append(periods, cyclePeriods...)
		cycleStart = next
	}
	return periods
}

func (t *Tracker) initialTrack(emp workforce.Employee) []Period {
	hire := calendar.DateOnly(emp.HireDate)
	periods, _ := t.buildCycle(emp.ID, OriginInitial, 0, hire, t.cfg.InitialLookbackMonths)
	return periods
}

// buildCycle emits lookback -> administrative -> stability starting at
// start, returning the periods and the next cycle's start (the
// stability end, where the following lookback begins).
func (t *Tracker) buildCycle(id workforce.EmployeeID, origin Origin, cycle int, start time.Time, lookbackMonths int) ([]Period, time.Time) {
	lookbackEnd := start.AddDate(0, lookbackMonths, 0)
	adminEnd := lookbackEnd.AddDate(0, 0, t.cfg.AdministrativeDays)
	stabilityEnd := adminEnd.AddDate(0, t.cfg.StabilityMonths, 0)

	periods := []Period{
		{
			ID: periodID(id, origin, cycle, KindLookback), EmployeeID: id,
			Origin: origin, Cycle: cycle, Kind: KindLookback,
			Start: start, End: lookbackEnd,
		},
		{
			ID: periodID(id, origin, cycle, KindAdministrative), EmployeeID: id,
			Origin: origin, Cycle: cycle, Kind: KindAdministrative,
			Start: lookbackEnd, End: adminEnd,
		},
		{
			ID: periodID(id, origin, cycle, KindStability), EmployeeID: id,
			Origin: origin, Cycle: cycle, Kind: KindStability,
			Start: adminEnd, End: stabilityEnd,
		},
	}
	return periods, stabilityEnd
}

// firstStandardAnchor returns the first day of the configured anchor
// month on or after the hire date.
func (t *Tracker) firstStandardAnchor(hire time.Time) time.Time {
	hire = calendar.DateOnly(hire)
	anchor := time.Date(hire.Year(), t.cfg.StandardAnchorMonth, 1, 0, 0, 0, 0, time.UTC)
	if anchor.Before(hire) {
		anchor = anchor.AddDate(1, 0, 0)
	}
	return anchor
}

func sortPeriods(periods []Period) {
	// Insertion sort: track lists are short and mostly ordered.
	for i := 1; i < len(periods); i++ {
		for j := i; j > 0 && periodLess(periods[j], periods[j-1]); j-- {
			periods[j], periods[j-1] = periods[j-1], periods[j]
		}
	}
}

func periodLess(a, b Period) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if a.Origin != b.Origin {
		return a.Origin == OriginInitial
	}
	return kindOrder(a.Kind) < kindOrder(b.Kind)
}

func kindOrder(k Kind) int {
	switch k {
	case KindLookback:
		return 0
	case KindAdministrative:
		return 1
	default:
		return 2
	}
}
