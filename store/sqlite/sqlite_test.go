package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/eligibility"
	"github.com/warp/aca-engine/form"
	"github.com/warp/aca-engine/hours"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/report"
	"github.com/warp/aca-engine/store/sqlite"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEmployee(id string) workforce.Employee {
	return workforce.Employee{
		ID:         workforce.EmployeeID(id),
		EmployerID: "acme",
		Name:       "Riley Nolan",
		SSN:        "123-45-6789",
		Address: workforce.Address{
			Line1: "12 Harbor St",
			City:  "Portland",
			State: "ME",
			Zip:   "04101",
		},
		HireDate:       time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		Classification: workforce.ClassOngoing,
	}
}

var march = calendar.NewMonth(2025, time.March)

// =============================================================================
// ROSTER TESTS
// =============================================================================

func TestSQLite_Roster_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	emp := testEmployee("emp-1")
	require.NoError(t, store.Put(ctx, emp))

	got, err := store.Get(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, emp.Name, got.Name)
	assert.Equal(t, emp.SSN, got.SSN)
	assert.Equal(t, emp.Address, got.Address)
	assert.True(t, emp.HireDate.Equal(got.HireDate))
	assert.Equal(t, emp.Classification, got.Classification)
	assert.Nil(t, got.Termination)
}

func TestSQLite_Roster_ReingestReplacesVisibleRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	emp := testEmployee("emp-1")
	require.NoError(t, store.Put(ctx, emp))

	emp.Name = "Riley A. Nolan"
	require.NoError(t, store.Put(ctx, emp))

	got, err := store.Get(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Riley A. Nolan", got.Name)
}

func TestSQLite_Roster_InvalidClassificationRejected(t *testing.T) {
	store := newTestStore(t)

	emp := testEmployee("emp-1")
	emp.Classification = "contractor"
	err := store.Put(context.Background(), emp)
	assert.ErrorIs(t, err, workforce.ErrInvalidClassification)
}

func TestSQLite_Roster_Terminate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testEmployee("emp-1")))

	on := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Terminate(ctx, "emp-1", on))

	got, err := store.Get(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got.Termination)
	assert.True(t, on.Equal(*got.Termination))

	err = store.Terminate(ctx, "emp-1", on)
	assert.ErrorIs(t, err, workforce.ErrAlreadyTerminated)
}

func TestSQLite_Roster_ByEmployer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testEmployee("emp-a")
	b := testEmployee("emp-b")
	other := testEmployee("emp-c")
	other.EmployerID = "globex"
	require.NoError(t, store.Put(ctx, b))
	require.NoError(t, store.Put(ctx, a))
	require.NoError(t, store.Put(ctx, other))

	got, err := store.ByEmployer(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, workforce.EmployeeID("emp-a"), got[0].ID, "ordered by id")
	assert.Equal(t, workforce.EmployeeID("emp-b"), got[1].ID)
}

func TestSQLite_Roster_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, workforce.ErrEmployeeNotFound)
}

// =============================================================================
// HOURS TESTS
// =============================================================================

func hoursRecord(id string, m calendar.Month, version int, hrs int64) hours.Record {
	return hours.Record{
		EmployeeID: workforce.EmployeeID(id),
		Month:      m,
		Hours:      decimal.NewFromInt(hrs),
		Version:    version,
		Source:     "test",
		RecordedAt: time.Now().UTC(),
	}
}

func TestSQLite_Hours_LatestWinsAcrossVersions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendVersion(ctx, hoursRecord("emp-1", march, 1, 120)))
	require.NoError(t, store.AppendVersion(ctx, hoursRecord("emp-1", march, 2, 140)))

	got, err := store.Latest(ctx, "emp-1", march)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.True(t, got.Hours.Equal(decimal.NewFromInt(140)))
}

func TestSQLite_Hours_DuplicateVersionRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendVersion(ctx, hoursRecord("emp-1", march, 1, 120)))
	err := store.AppendVersion(ctx, hoursRecord("emp-1", march, 1, 140))
	assert.Error(t, err, "append-only: a version is written once")
}

func TestSQLite_Hours_LatestRange(t *testing.T) {
	// The range read returns the latest version per month, ordered, and
	// skips months with no data.

	store := newTestStore(t)
	ctx := context.Background()

	jan := calendar.NewMonth(2025, time.January)
	require.NoError(t, store.AppendVersion(ctx, hoursRecord("emp-1", jan, 1, 100)))
	require.NoError(t, store.AppendVersion(ctx, hoursRecord("emp-1", jan, 2, 110)))
	require.NoError(t, store.AppendVersion(ctx, hoursRecord("emp-1", march, 1, 130)))

	window := calendar.MonthRange{Start: jan, End: calendar.NewMonth(2025, time.April)}
	got, err := store.LatestRange(ctx, "emp-1", window)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, jan, got[0].Month)
	assert.True(t, got[0].Hours.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, march, got[1].Month)
}

func TestSQLite_Hours_RangeSpansYearBoundary(t *testing.T) {
	// Month keys are "2006-01" strings; the BETWEEN read must hold
	// across December-January.

	store := newTestStore(t)
	ctx := context.Background()

	dec24 := calendar.NewMonth(2024, time.December)
	jan25 := calendar.NewMonth(2025, time.January)
	require.NoError(t, store.AppendVersion(ctx, hoursRecord("emp-1", dec24, 1, 120)))
	require.NoError(t, store.AppendVersion(ctx, hoursRecord("emp-1", jan25, 1, 130)))

	window := calendar.MonthRange{Start: dec24, End: jan25}
	got, err := store.LatestRange(ctx, "emp-1", window)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, dec24, got[0].Month)
	assert.Equal(t, jan25, got[1].Month)
}

func TestSQLite_Hours_LastChanged(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	early := hoursRecord("emp-1", march, 1, 120)
	early.RecordedAt = time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC)
	late := hoursRecord("emp-2", march, 1, 80)
	late.RecordedAt = time.Date(2026, time.January, 12, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.AppendVersion(ctx, early))
	require.NoError(t, store.AppendVersion(ctx, late))

	got, err := store.LastChanged(ctx, []workforce.EmployeeID{"emp-1", "emp-2"})
	require.NoError(t, err)
	assert.True(t, got.Equal(late.RecordedAt))

	onlyFirst, err := store.LastChanged(ctx, []workforce.EmployeeID{"emp-1"})
	require.NoError(t, err)
	assert.True(t, onlyFirst.Equal(early.RecordedAt))
}

func TestSQLite_HoursAudit_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := hours.AuditEvent{
		ID:         "audit-1",
		EmployeeID: "emp-1",
		Month:      march,
		PriorHours: decimal.NewFromInt(120),
		NewHours:   decimal.NewFromInt(140),
		Version:    2,
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, store.AppendAudit(ctx, ev))

	got, err := store.AuditFor(ctx, "emp-1", march)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
	assert.True(t, got[0].PriorHours.Equal(ev.PriorHours))
	assert.True(t, got[0].NewHours.Equal(ev.NewHours))
	assert.Equal(t, 2, got[0].Version)
}

// =============================================================================
// OFFER TESTS
// =============================================================================

func TestSQLite_Offers_UpsertAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	off := offer.CoverageOffer{
		EmployeeID:    "emp-1",
		Month:         march,
		Offered:       true,
		Tier:          offer.TierSelfOnly,
		EmployeeShare: decimal.RequireFromString("150.25"),
		MinimumValue:  true,
	}
	require.NoError(t, store.PutOffer(ctx, off))

	// Offers are facts, not versions: a re-put replaces.
	off.EmployeeShare = decimal.RequireFromString("175.50")
	off.Enrolled = true
	require.NoError(t, store.PutOffer(ctx, off))

	got, err := store.OfferFor(ctx, "emp-1", march)
	require.NoError(t, err)
	assert.True(t, got.EmployeeShare.Equal(decimal.RequireFromString("175.50")))
	assert.True(t, got.Enrolled)
	assert.Equal(t, offer.TierSelfOnly, got.Tier)
}

func TestSQLite_Offers_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.OfferFor(context.Background(), "emp-1", march)
	assert.ErrorIs(t, err, offer.ErrOfferNotFound)
}

func TestSQLite_Compensation_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	wages := decimal.RequireFromString("3000")
	rate := decimal.RequireFromString("21.50")
	require.NoError(t, store.PutCompensation(ctx, offer.Compensation{
		EmployeeID:   "emp-1",
		MonthlyWages: &wages,
		HourlyRate:   &rate,
	}))

	got, err := store.CompensationFor(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got.MonthlyWages)
	require.NotNil(t, got.HourlyRate)
	assert.True(t, got.MonthlyWages.Equal(wages))
	assert.True(t, got.HourlyRate.Equal(rate))
}

// =============================================================================
// DETERMINATION & RESULT TESTS
// =============================================================================

func TestSQLite_Determinations_VersionedAppend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	det := eligibility.Determination{
		EmployeeID:   "emp-1",
		PeriodID:     "emp-1/standard-0/stability",
		Status:       eligibility.StatusFullTime,
		AverageHours: decimal.NewFromInt(140),
		LookbackWindow: calendar.MonthRange{
			Start: calendar.NewMonth(2024, time.January),
			End:   calendar.NewMonth(2024, time.December),
		},
		DecidedAt: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}

	first, err := store.AppendDetermination(ctx, det)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	det.Status = eligibility.StatusPartTime
	second, err := store.AppendDetermination(ctx, det)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	latest, err := store.LatestDetermination(ctx, "emp-1", det.PeriodID)
	require.NoError(t, err)
	assert.Equal(t, eligibility.StatusPartTime, latest.Status)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, det.LookbackWindow, latest.LookbackWindow)
}

func TestSQLite_Determinations_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LatestDetermination(context.Background(), "emp-1", "nope")
	assert.ErrorIs(t, err, eligibility.ErrDeterminationNotFound)
}

func TestSQLite_Results_LatestByEmployer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res := eligibility.Result{
		EmployeeID:   "emp-1",
		EmployerID:   "acme",
		Month:        march,
		Status:       eligibility.StatusFullTime,
		AverageHours: decimal.NewFromInt(140),
		Method:       eligibility.MethodLookback,
		ComputedAt:   time.Now().UTC(),
	}
	first, err := store.AppendResult(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	res.Status = eligibility.StatusPartTime
	_, err = store.AppendResult(ctx, res)
	require.NoError(t, err)

	got, err := store.LatestByEmployer(ctx, "acme", 2025)
	require.NoError(t, err)
	require.Len(t, got, 1, "only the latest version per employee-month")
	assert.Equal(t, eligibility.StatusPartTime, got[0].Status)
	assert.Equal(t, 2, got[0].Version)
}

// =============================================================================
// BATCH TESTS
// =============================================================================

func TestSQLite_Batches_SnapshotRoundTrip(t *testing.T) {
	// The whole batch payload (lines, assessments, transmittal) must
	// survive the JSON column round trip.

	store := newTestStore(t)
	ctx := context.Background()

	share := decimal.RequireFromString("150")
	batch := report.Batch{
		ID:         "batch-1",
		EmployerID: "acme",
		TaxYear:    2025,
		State:      report.BatchComplete,
		CreatedAt:  time.Now().UTC(),
		InputsAsOf: time.Now().UTC(),
		Lines: []form.FormLine{{
			EmployeeID:       "emp-1",
			EmployerID:       "acme",
			Month:            march,
			Line14:           form.Line14MVSelfOnly,
			Line15:           &share,
			Line16:           form.Line16Enrolled,
			FullTime:         true,
			Offered:          true,
			ValidationStatus: form.StatusValid,
			Version:          1,
			CreatedAt:        time.Now().UTC(),
		}},
		Transmittal:  report.Transmittal{TotalForms: 1},
		WarningCount: 0,
	}
	require.NoError(t, store.SaveBatch(ctx, batch))

	got, err := store.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, batch.TaxYear, got.TaxYear)
	assert.Equal(t, report.BatchComplete, got.State)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, form.Line14MVSelfOnly, got.Lines[0].Line14)
	assert.Equal(t, march, got.Lines[0].Month)
	require.NotNil(t, got.Lines[0].Line15)
	assert.True(t, got.Lines[0].Line15.Equal(share))
}

func TestSQLite_Batches_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetBatch(context.Background(), "ghost")
	assert.ErrorIs(t, err, report.ErrBatchNotFound)
}

func TestSQLite_Batches_ListByEmployerYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, b := range []report.Batch{
		{ID: "b1", EmployerID: "acme", TaxYear: 2025, State: report.BatchComplete, CreatedAt: time.Now().UTC()},
		{ID: "b2", EmployerID: "acme", TaxYear: 2025, State: report.BatchComplete, CreatedAt: time.Now().UTC().Add(time.Second)},
		{ID: "b3", EmployerID: "acme", TaxYear: 2024, State: report.BatchComplete, CreatedAt: time.Now().UTC()},
		{ID: "b4", EmployerID: "globex", TaxYear: 2025, State: report.BatchComplete, CreatedAt: time.Now().UTC()},
	} {
		require.NoError(t, store.SaveBatch(ctx, b))
	}

	got, err := store.ListBatches(ctx, "acme", 2025)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID, "oldest first")
	assert.Equal(t, "b2", got[1].ID)
}
