package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/eligibility"
	"github.com/warp/aca-engine/form"
	"github.com/warp/aca-engine/hours"
	"github.com/warp/aca-engine/measure"
	"github.com/warp/aca-engine/metrics"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/penalty"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// RUNNER - Batch fan-out, join barrier, aggregation
// =============================================================================

const defaultWorkers = 4

// Runner builds batch reports. Employee evaluation fans out across a
// worker pool; the employer-month penalty reduction runs only after
// every worker has finished (the join barrier), because §4980H(a)
// needs the complete full-time census for the month.
type Runner struct {
	roster    workforce.Roster
	ledger    *hours.Ledger
	evaluator *eligibility.Evaluator
	assigner  *offer.Assigner
	offers    offer.Store
	results   eligibility.ResultStore
	batches   BatchStore

	rates   penalty.Rates
	workers int

	log   *zap.Logger
	stats *metrics.Set
	clock func() time.Time
}

func NewRunner(
	roster workforce.Roster,
	ledger *hours.Ledger,
	evaluator *eligibility.Evaluator,
	assigner *offer.Assigner,
	offers offer.Store,
	results eligibility.ResultStore,
	batches BatchStore,
	rates penalty.Rates,
	workers int,
	log *zap.Logger,
	stats *metrics.Set,
) *Runner {
	if workers < 1 {
		workers = defaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		roster:    roster,
		ledger:    ledger,
		evaluator: evaluator,
		assigner:  assigner,
		offers:    offers,
		results:   results,
		batches:   batches,
		rates:     rates,
		workers:   workers,
		log:       log,
		stats:     stats,
		clock:     time.Now,
	}
}

// employeeOutput is one worker's result for one employee: the twelve
// monthly lines, or a fatal error that aborts the whole batch.
type employeeOutput struct {
	employee workforce.Employee
	lines    []form.FormLine
	err      error
}

// RunBatch evaluates every employee of the employer for the tax year
// and persists an immutable batch snapshot.
func (r *Runner) RunBatch(ctx context.Context, employer workforce.EmployerID, taxYear int) (Batch, error) {
	started := r.clock()

	employees, err := r.roster.ByEmployer(ctx, employer)
	if err != nil {
		r.stats.ObserveBatch("failed", time.Since(started).Seconds(), 0)
		return Batch{}, err
	}

	months := calendar.TaxYear(taxYear).Months()
	inputsAsOf := started

	jobs := make(chan workforce.Employee)
	outputs := make(chan employeeOutput)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for emp := range jobs {
				lines, err := r.buildEmployee(ctx, emp, months)
				outputs <- employeeOutput{employee: emp, lines: lines, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, emp := range employees {
			select {
			case jobs <- emp:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		// Join barrier: outputs closes only when every worker is done,
		// so the aggregation below never sees a partial census.
		wg.Wait()
		close(outputs)
	}()

	byEmployee := make(map[workforce.EmployeeID]employeeOutput, len(employees))
	var fatal error
	for out := range outputs {
		if out.err != nil && fatal == nil {
			fatal = fmt.Errorf("employee %s: %w", out.employee.ID, out.err)
		}
		byEmployee[out.employee.ID] = out
	}
	if fatal != nil {
		r.stats.ObserveBatch("failed", time.Since(started).Seconds(), 0)
		return Batch{}, fatal
	}

	ids := make([]workforce.EmployeeID, 0, len(byEmployee))
	for id := range byEmployee {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var lines []form.FormLine
	for _, id := range ids {
		out := byEmployee[id]
		lines = append(lines, validateEmployeeLines(out.employee, out.lines)...)
	}

	assessments := r.assess(employer, months, lines)

	errs, warns := countIssues(lines)
	batch := Batch{
		ID:           uuid.NewString(),
		EmployerID:   employer,
		TaxYear:      taxYear,
		State:        BatchComplete,
		CreatedAt:    r.clock(),
		InputsAsOf:   inputsAsOf,
		Lines:        lines,
		Assessments:  assessments,
		Transmittal:  transmittal(employees, months, assessments),
		ErrorCount:   errs,
		WarningCount: warns,
	}
	if err := r.batches.SaveBatch(ctx, batch); err != nil {
		r.stats.ObserveBatch("failed", time.Since(started).Seconds(), len(lines))
		return Batch{}, err
	}

	r.stats.ObserveBatch("complete", time.Since(started).Seconds(), len(lines))
	r.log.Info("batch report complete",
		zap.String("batch", batch.ID),
		zap.String("employer", string(employer)),
		zap.Int("taxYear", taxYear),
		zap.Int("employees", len(employees)),
		zap.Int("lines", len(lines)),
		zap.Int("errors", errs),
		zap.Int("warnings", warns),
	)
	return batch, nil
}

// buildEmployee produces the twelve monthly lines for one employee.
// Data and consistency problems become per-line issues; anything else
// is fatal for the batch.
func (r *Runner) buildEmployee(ctx context.Context, emp workforce.Employee, months []calendar.Month) ([]form.FormLine, error) {
	lines := make([]form.FormLine, 0, len(months))
	for _, month := range months {
		off, err := r.offerFor(ctx, emp.ID, month)
		if err != nil {
			return nil, err
		}
		comp, err := r.compensationFor(ctx, emp.ID)
		if err != nil {
			return nil, err
		}

		res, err := r.evaluator.Evaluate(ctx, emp.ID, month)
		if err != nil {
			issue, ok := classify(err)
			if !ok {
				return nil, err
			}
			r.log.Warn("employee-month flagged",
				zap.String("employee", string(emp.ID)),
				zap.String("month", month.String()),
				zap.String("issue", issue.Code),
				zap.Error(err),
			)
			line := form.FormLine{
				EmployeeID: emp.ID,
				EmployerID: emp.EmployerID,
				Month:      month,
				Offered:    off.Offered,
				Version:    1,
				CreatedAt:  r.clock(),
			}
			lines = append(lines, line.WithIssue(issue))
			continue
		}

		if _, err := r.results.AppendResult(ctx, res); err != nil {
			return nil, err
		}

		line, err := r.assigner.AssignCodes(ctx, emp, month, off, res, comp)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// classify maps evaluation errors to line issues. Data problems are
// per-line errors; consistency failures flag the employee-month for
// review; everything else (configuration, store failures) aborts the
// batch.
func classify(err error) (form.Issue, bool) {
	switch {
	case errors.Is(err, hours.ErrNotFound):
		return form.Issue{
			Severity: form.SeverityError,
			Code:     form.IssueMissingHours,
			Message:  err.Error(),
		}, true
	case errors.Is(err, hours.ErrInsufficientData):
		return form.Issue{
			Severity: form.SeverityError,
			Code:     form.IssueInsufficientData,
			Message:  err.Error(),
		}, true
	case errors.Is(err, measure.ErrOverlappingPeriods), errors.Is(err, eligibility.ErrStabilityLocked):
		return form.Issue{
			Severity: form.SeverityError,
			Code:     form.IssueConsistency,
			Message:  err.Error(),
		}, true
	}
	return form.Issue{}, false
}

func (r *Runner) offerFor(ctx context.Context, id workforce.EmployeeID, month calendar.Month) (offer.CoverageOffer, error) {
	off, err := r.offers.OfferFor(ctx, id, month)
	if errors.Is(err, offer.ErrOfferNotFound) {
		// No offer record means no offer was made.
		return offer.CoverageOffer{EmployeeID: id, Month: month}, nil
	}
	return off, err
}

func (r *Runner) compensationFor(ctx context.Context, id workforce.EmployeeID) (offer.Compensation, error) {
	comp, err := r.offers.CompensationFor(ctx, id)
	if errors.Is(err, offer.ErrOfferNotFound) {
		return offer.Compensation{EmployeeID: id}, nil
	}
	return comp, err
}

// assess runs the per-month §4980H reduction over the finished lines.
func (r *Runner) assess(employer workforce.EmployerID, months []calendar.Month, lines []form.FormLine) []penalty.Assessment {
	byMonth := make(map[calendar.Month][]penalty.EmployeeMonth, len(months))
	for _, line := range lines {
		byMonth[line.Month] = append(byMonth[line.Month], penalty.EmployeeMonth{
			EmployeeID: line.EmployeeID,
			FullTime:   line.FullTime,
			Offered:    line.Offered,
			Flagged:    line.HasError() || line.HasWarning(),
		})
	}

	assessments := make([]penalty.Assessment, 0, len(months))
	for _, month := range months {
		assessments = append(assessments, penalty.Assess(employer, month, byMonth[month], r.rates))
	}
	return assessments
}

// transmittal builds the 1094-C monthly grid from the assessments plus
// the roster's per-month headcount.
func transmittal(employees []workforce.Employee, months []calendar.Month, assessments []penalty.Assessment) Transmittal {
	byMonth := make(map[calendar.Month]penalty.Assessment, len(assessments))
	for _, a := range assessments {
		byMonth[a.Month] = a
	}

	t := Transmittal{TotalForms: len(employees)}
	mec95 := decimal.NewFromFloat(0.95)
	for _, month := range months {
		total := 0
		for _, emp := range employees {
			if emp.EmployedDuring(month) {
				total++
			}
		}
		a := byMonth[month]
		t.Months = append(t.Months, MonthSummary{
			Month:         month,
			FullTimeCount: a.FullTimeCount,
			TotalCount:    total,
			OfferRate:     a.OfferRate,
			MECOffered:    a.FullTimeCount == 0 || a.OfferRate.GreaterThanOrEqual(mec95),
		})
	}
	return t
}

// =============================================================================
// STATUS
// =============================================================================

// BatchStatus reports the batch state plus staleness: the batch is
// stale when any hours record for its employees was written after
// InputsAsOf.
func (r *Runner) BatchStatus(ctx context.Context, batchID string) (Status, error) {
	b, err := r.batches.GetBatch(ctx, batchID)
	if err != nil {
		return Status{}, err
	}

	seen := make(map[workforce.EmployeeID]struct{})
	var ids []workforce.EmployeeID
	for _, line := range b.Lines {
		if _, ok := seen[line.EmployeeID]; ok {
			continue
		}
		seen[line.EmployeeID] = struct{}{}
		ids = append(ids, line.EmployeeID)
	}

	stale := false
	if len(ids) > 0 {
		last, err := r.ledger.LastChanged(ctx, ids)
		if err != nil {
			return Status{}, err
		}
		stale = last.After(b.InputsAsOf)
	}

	return Status{
		BatchID:      b.ID,
		State:        b.State,
		ErrorCount:   b.ErrorCount,
		WarningCount: b.WarningCount,
		Stale:        stale,
	}, nil
}
