// Package memory provides in-memory store implementations (for
// testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/eligibility"
	"github.com/warp/aca-engine/hours"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/report"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store implements every persistence interface of the engine behind a
// single RWMutex. Hours, determinations and results are versioned
// slices, appended and never rewritten.
type Store struct {
	mu sync.RWMutex

	employees map[workforce.EmployeeID][]workforce.Employee

	hoursRecs map[hoursKey][]hours.Record
	audits    map[hoursKey][]hours.AuditEvent

	offers        map[hoursKey]offer.CoverageOffer
	compensations map[workforce.EmployeeID]offer.Compensation

	determinations map[detKey][]eligibility.Determination
	results        map[resultKey][]eligibility.Result

	batches map[string]report.Batch
}

type hoursKey struct {
	EmployeeID workforce.EmployeeID
	Month      calendar.Month
}

type detKey struct {
	EmployeeID workforce.EmployeeID
	PeriodID   string
}

type resultKey struct {
	EmployeeID workforce.EmployeeID
	Month      calendar.Month
}

func New() *Store {
	return &Store{
		employees:      make(map[workforce.EmployeeID][]workforce.Employee),
		hoursRecs:      make(map[hoursKey][]hours.Record),
		audits:         make(map[hoursKey][]hours.AuditEvent),
		offers:         make(map[hoursKey]offer.CoverageOffer),
		compensations:  make(map[workforce.EmployeeID]offer.Compensation),
		determinations: make(map[detKey][]eligibility.Determination),
		results:        make(map[resultKey][]eligibility.Result),
		batches:        make(map[string]report.Batch),
	}
}

// =============================================================================
// ROSTER
// =============================================================================

func (s *Store) Put(_ context.Context, e workforce.Employee) error {
	if !e.Classification.Valid() {
		return fmt.Errorf("%w: %q", workforce.ErrInvalidClassification, e.Classification)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = append(s.employees[e.ID], e)
	return nil
}

func (s *Store) Get(_ context.Context, id workforce.EmployeeID) (workforce.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestEmployeeLocked(id)
}

func (s *Store) latestEmployeeLocked(id workforce.EmployeeID) (workforce.Employee, error) {
	versions := s.employees[id]
	if len(versions) == 0 {
		return workforce.Employee{}, fmt.Errorf("%w: %s", workforce.ErrEmployeeNotFound, id)
	}
	return versions[len(versions)-1], nil
}

func (s *Store) ByEmployer(_ context.Context, employer workforce.EmployerID) ([]workforce.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []workforce.Employee
	for id := range s.employees {
		emp, err := s.latestEmployeeLocked(id)
		if err != nil {
			continue
		}
		if emp.EmployerID == employer {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Terminate(_ context.Context, id workforce.EmployeeID, on time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, err := s.latestEmployeeLocked(id)
	if err != nil {
		return err
	}
	if emp.Termination != nil {
		return fmt.Errorf("%w: %s", workforce.ErrAlreadyTerminated, id)
	}
	emp.Termination = &on
	s.employees[id] = append(s.employees[id], emp)
	return nil
}

// =============================================================================
// HOURS
// =============================================================================

func (s *Store) AppendVersion(_ context.Context, rec hours.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := hoursKey{EmployeeID: rec.EmployeeID, Month: rec.Month}
	existing := s.hoursRecs[k]
	if rec.Version != len(existing)+1 {
		return fmt.Errorf("hours version conflict for %s %s: got %d, want %d",
			rec.EmployeeID, rec.Month, rec.Version, len(existing)+1)
	}
	s.hoursRecs[k] = append(existing, rec)
	return nil
}

func (s *Store) Latest(_ context.Context, id workforce.EmployeeID, m calendar.Month) (hours.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.hoursRecs[hoursKey{EmployeeID: id, Month: m}]
	if len(versions) == 0 {
		return hours.Record{}, fmt.Errorf("%w: %s %s", hours.ErrNotFound, id, m)
	}
	return versions[len(versions)-1], nil
}

func (s *Store) LatestRange(_ context.Context, id workforce.EmployeeID, window calendar.MonthRange) ([]hours.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []hours.Record
	for _, m := range window.Months() {
		versions := s.hoursRecs[hoursKey{EmployeeID: id, Month: m}]
		if len(versions) == 0 {
			continue
		}
		out = append(out, versions[len(versions)-1])
	}
	return out, nil
}

func (s *Store) LastChanged(_ context.Context, ids []workforce.EmployeeID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[workforce.EmployeeID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	var last time.Time
	for k, versions := range s.hoursRecs {
		if _, ok := want[k.EmployeeID]; !ok {
			continue
		}
		for _, rec := range versions {
			if rec.RecordedAt.After(last) {
				last = rec.RecordedAt
			}
		}
	}
	return last, nil
}

func (s *Store) AppendAudit(_ context.Context, ev hours.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := hoursKey{EmployeeID: ev.EmployeeID, Month: ev.Month}
	s.audits[k] = append(s.audits[k], ev)
	return nil
}

func (s *Store) AuditFor(_ context.Context, id workforce.EmployeeID, m calendar.Month) ([]hours.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.audits[hoursKey{EmployeeID: id, Month: m}]
	out := make([]hours.AuditEvent, len(evs))
	copy(out, evs)
	return out, nil
}

// =============================================================================
// OFFERS & COMPENSATION
// =============================================================================

func (s *Store) PutOffer(_ context.Context, o offer.CoverageOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[hoursKey{EmployeeID: o.EmployeeID, Month: o.Month}] = o
	return nil
}

func (s *Store) OfferFor(_ context.Context, id workforce.EmployeeID, m calendar.Month) (offer.CoverageOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offers[hoursKey{EmployeeID: id, Month: m}]
	if !ok {
		return offer.CoverageOffer{}, fmt.Errorf("%w: %s %s", offer.ErrOfferNotFound, id, m)
	}
	return o, nil
}

func (s *Store) PutCompensation(_ context.Context, c offer.Compensation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compensations[c.EmployeeID] = c
	return nil
}

func (s *Store) CompensationFor(_ context.Context, id workforce.EmployeeID) (offer.Compensation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.compensations[id]
	if !ok {
		return offer.Compensation{}, fmt.Errorf("%w: no compensation for %s", offer.ErrOfferNotFound, id)
	}
	return c, nil
}

// =============================================================================
// DETERMINATIONS & RESULTS
// =============================================================================

func (s *Store) AppendDetermination(_ context.Context, d eligibility.Determination) (eligibility.Determination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := detKey{EmployeeID: d.EmployeeID, PeriodID: d.PeriodID}
	d.Version = len(s.determinations[k]) + 1
	s.determinations[k] = append(s.determinations[k], d)
	return d, nil
}

func (s *Store) LatestDetermination(_ context.Context, id workforce.EmployeeID, periodID string) (eligibility.Determination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.determinations[detKey{EmployeeID: id, PeriodID: periodID}]
	if len(versions) == 0 {
		return eligibility.Determination{}, fmt.Errorf("%w: %s %s", eligibility.ErrDeterminationNotFound, id, periodID)
	}
	return versions[len(versions)-1], nil
}

func (s *Store) AppendResult(_ context.Context, r eligibility.Result) (eligibility.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := resultKey{EmployeeID: r.EmployeeID, Month: r.Month}
	r.Version = len(s.results[k]) + 1
	s.results[k] = append(s.results[k], r)
	return r, nil
}

func (s *Store) LatestByEmployer(_ context.Context, employer workforce.EmployerID, taxYear int) ([]eligibility.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	year := calendar.TaxYear(taxYear)
	var out []eligibility.Result
	for k, versions := range s.results {
		if len(versions) == 0 {
			continue
		}
		latest := versions[len(versions)-1]
		if latest.EmployerID != employer || !year.Contains(k.Month) {
			continue
		}
		out = append(out, latest)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Month.Before(out[j].Month)
	})
	return out, nil
}

// =============================================================================
// BATCHES
// =============================================================================

func (s *Store) SaveBatch(_ context.Context, b report.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
	return nil
}

func (s *Store) GetBatch(_ context.Context, id string) (report.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return report.Batch{}, fmt.Errorf("%w: %s", report.ErrBatchNotFound, id)
	}
	return b, nil
}

func (s *Store) ListBatches(_ context.Context, employer workforce.EmployerID, taxYear int) ([]report.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []report.Batch
	for _, b := range s.batches {
		if b.EmployerID == employer && b.TaxYear == taxYear {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
