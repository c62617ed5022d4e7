/*
Package report assembles validated per-employee monthly records into
1095-C/1094-C-ready batch datasets.

PURPOSE:
  The batch is the unit the employer actually files. It snapshots every
  FormLine for an employer/tax-year, the per-month penalty assessments,
  and the 1094-C transmittal summary, under a single immutable batch id.

IMMUTABILITY:
  Batches are never mutated. Re-running after inputs change produces a
  new batch id; the prior batch remains as the audit record of what was
  (or would have been) filed. A batch is stamped with InputsAsOf; the
  status query reports it stale when any underlying hours record is
  newer.

VALIDATION MODEL:
  error   - a structural rule failed; blocks submission
  warning - regulatory ambiguity flagged; submission with sign-off
  valid   - neither

SEE ALSO:
  - runner.go: worker-pool fan-out, join barrier, aggregation
  - validate.go: structural rules (SSN, address, month ordering, gaps)
*/
package report

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/form"
	"github.com/warp/aca-engine/penalty"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// BATCH
// =============================================================================

type BatchState string

const (
	BatchPending  BatchState = "pending"
	BatchComplete BatchState = "complete"
)

// MonthSummary is one column of the 1094-C Part III monthly grid.
type MonthSummary struct {
	Month         calendar.Month  `json:"month"`
	FullTimeCount int             `json:"fullTimeCount"`
	TotalCount    int             `json:"totalEmployeeCount"`
	OfferRate     decimal.Decimal `json:"offerRate"`
	// MECOffered is the >= 95% minimum essential coverage offer
	// indicator for the month.
	MECOffered bool `json:"mecOffered"`
}

// Transmittal is the 1094-C-ready employer summary for the batch.
type Transmittal struct {
	TotalForms int            `json:"totalForms"`
	Months     []MonthSummary `json:"months"`
}

// Batch is an immutable snapshot of a completed run.
type Batch struct {
	ID         string               `json:"id"`
	EmployerID workforce.EmployerID `json:"employerId"`
	TaxYear    int                  `json:"taxYear"`
	State      BatchState           `json:"state"`
	CreatedAt  time.Time            `json:"createdAt"`

	// InputsAsOf is the input-freshness watermark: any hours record
	// recorded after this instant makes the batch stale.
	InputsAsOf time.Time `json:"inputsAsOf"`

	Lines       []form.FormLine      `json:"lines"`
	Assessments []penalty.Assessment `json:"assessments"`
	Transmittal Transmittal          `json:"transmittal"`

	ErrorCount   int `json:"errorCount"`
	WarningCount int `json:"warningCount"`
}

// Status is the three-state view the dashboard polls.
type Status struct {
	BatchID      string     `json:"batchId"`
	State        BatchState `json:"state"`
	ErrorCount   int        `json:"errorCount"`
	WarningCount int        `json:"warningCount"`
	Stale        bool       `json:"stale"`
}

// ErrBatchNotFound is returned for unknown batch ids.
var ErrBatchNotFound = errors.New("batch not found")

// BatchStore persists immutable batches. Saving is the only serialized
// write path in the engine; implementations guard it with a single
// mutex.
type BatchStore interface {
	SaveBatch(ctx context.Context, b Batch) error
	GetBatch(ctx context.Context, id string) (Batch, error)
	ListBatches(ctx context.Context, employer workforce.EmployerID, taxYear int) ([]Batch, error)
}

// countIssues tallies line statuses for the batch header.
func countIssues(lines []form.FormLine) (errs, warns int) {
	for _, l := range lines {
		switch l.ValidationStatus {
		case form.StatusError:
			errs++
		case form.StatusWarning:
			warns++
		}
	}
	return errs, warns
}
