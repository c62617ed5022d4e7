package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aca-engine/api"
	"github.com/warp/aca-engine/eligibility"
	"github.com/warp/aca-engine/hours"
	"github.com/warp/aca-engine/measure"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/penalty"
	"github.com/warp/aca-engine/report"
	"github.com/warp/aca-engine/store/memory"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// SCHEDULER TESTS
// =============================================================================

type schedulerHarness struct {
	store     *memory.Store
	ledger    *hours.Ledger
	runner    *report.Runner
	scheduler *api.Scheduler
}

func newSchedulerHarness(t *testing.T, interval time.Duration) *schedulerHarness {
	t.Helper()

	store := memory.New()
	ledger := hours.NewLedger(store, store, nil, 1.0)
	tracker := measure.NewTracker(measure.Config{
		LookbackMonths:     12,
		AdministrativeDays: 0,
		StabilityMonths:    12,
	}, store)
	evaluator := eligibility.NewEvaluator(ledger, tracker, store, store)
	assigner := offer.NewAssigner(tracker, offer.Params{
		AffordabilityPercent: decimal.RequireFromString("0.0902"),
		FPLAnnual:            decimal.RequireFromString("15060"),
	})
	runner := report.NewRunner(store, ledger, evaluator, assigner,
		store, store, store,
		penalty.Rates{
			AAnnual: decimal.RequireFromString("2900"),
			BAnnual: decimal.RequireFromString("4350"),
		}, 2, nil, nil)

	return &schedulerHarness{
		store:     store,
		ledger:    ledger,
		runner:    runner,
		scheduler: api.NewScheduler(runner, store, interval, nil),
	}
}

func (h *schedulerHarness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.scheduler.Start(ctx)
}

func (h *schedulerHarness) batchCount(t *testing.T) int {
	t.Helper()
	batches, err := h.store.ListBatches(context.Background(), "acme", 2025)
	require.NoError(t, err)
	return len(batches)
}

func TestScheduler_RunsMissingTarget(t *testing.T) {
	// GIVEN a registered employer/year with no batch yet
	h := newSchedulerHarness(t, 5*time.Millisecond)
	h.scheduler.Register(api.Target{EmployerID: "acme", TaxYear: 2025})

	// WHEN the refresh loop runs
	h.start(t)

	// THEN a batch appears, and a fresh batch is not re-run
	require.Eventually(t, func() bool { return h.batchCount(t) == 1 },
		time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.batchCount(t), "fresh batch should not be re-run")
}

func TestScheduler_RerunsStaleBatch(t *testing.T) {
	h := newSchedulerHarness(t, 5*time.Millisecond)
	require.NoError(t, h.store.Put(context.Background(), workforce.Employee{
		ID:         "emp-1",
		EmployerID: "acme",
		Name:       "Riley Nolan",
		SSN:        "123-45-6789",
		Address: workforce.Address{
			Line1: "12 Harbor St", City: "Portland", State: "ME", Zip: "04101",
		},
		HireDate:       time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		Classification: workforce.ClassOngoing,
	}))

	h.scheduler.Register(api.Target{EmployerID: "acme", TaxYear: 2025})
	h.start(t)
	require.Eventually(t, func() bool { return h.batchCount(t) == 1 },
		time.Second, 5*time.Millisecond)

	// A later hours import for a rostered employee moves the staleness
	// watermark past the batch's InputsAsOf stamp.
	err := h.ledger.RecordHours(context.Background(), "emp-1",
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(140), "hris")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.batchCount(t) == 2 },
		time.Second, 5*time.Millisecond)
}
