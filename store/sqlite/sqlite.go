/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements all persistence interfaces (workforce.Roster, hours.Store,
  hours.AuditLog, offer.Store, eligibility.DeterminationStore,
  eligibility.ResultStore, report.BatchStore) using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  Hours records, determinations and eligibility results are versioned
  rows; there are no UPDATE or DELETE statements on those tables.
  Corrections add a new version. Batches are write-once by id.

KEY TABLES:
  employees:      Versioned identity records (termination = new version)
  hours_records:  Versioned monthly hours (the ledger)
  hours_audit:    Overwrite audit events
  offers:         Coverage offer facts per employee-month
  compensations:  Income bases for safe-harbor tests
  determinations: Frozen lookback-end decisions
  results:        Versioned per-month eligibility results
  batches:        Immutable batch report snapshots (JSON payload)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/eligibility"
	"github.com/warp/aca-engine/hours"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/report"
	"github.com/warp/aca-engine/workforce"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Employees (versioned identity records)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT NOT NULL,
		version INTEGER NOT NULL,
		employer_id TEXT NOT NULL,
		name TEXT NOT NULL,
		ssn TEXT NOT NULL,
		address_json TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		termination_date TEXT,
		classification TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (id, version)
	);

	CREATE INDEX IF NOT EXISTS idx_employees_employer
		ON employees(employer_id);

	-- Hours (append-only versioned ledger)
	CREATE TABLE IF NOT EXISTS hours_records (
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		version INTEGER NOT NULL,
		hours TEXT NOT NULL,
		source TEXT,
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, month, version)
	);

	CREATE INDEX IF NOT EXISTS idx_hours_employee_month
		ON hours_records(employee_id, month);
	CREATE INDEX IF NOT EXISTS idx_hours_recorded_at
		ON hours_records(recorded_at);

	CREATE TABLE IF NOT EXISTS hours_audit (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		prior_hours TEXT NOT NULL,
		new_hours TEXT NOT NULL,
		version INTEGER NOT NULL,
		occurred_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_hours_audit_employee
		ON hours_audit(employee_id, month);

	-- Coverage offers and compensation
	CREATE TABLE IF NOT EXISTS offers (
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		offer_json TEXT NOT NULL,
		PRIMARY KEY (employee_id, month)
	);

	CREATE TABLE IF NOT EXISTS compensations (
		employee_id TEXT PRIMARY KEY,
		comp_json TEXT NOT NULL
	);

	-- Frozen lookback-end determinations (versioned)
	CREATE TABLE IF NOT EXISTS determinations (
		employee_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		det_json TEXT NOT NULL,
		PRIMARY KEY (employee_id, period_id, version)
	);

	-- Eligibility results (versioned)
	CREATE TABLE IF NOT EXISTS results (
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		version INTEGER NOT NULL,
		employer_id TEXT NOT NULL,
		result_json TEXT NOT NULL,
		PRIMARY KEY (employee_id, month, version)
	);

	CREATE INDEX IF NOT EXISTS idx_results_employer
		ON results(employer_id, month);

	-- Batch report snapshots (immutable)
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		tax_year INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		batch_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_employer_year
		ON batches(employer_id, tax_year);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROSTER (workforce.Roster interface)
// =============================================================================

func (s *Store) Put(ctx context.Context, e workforce.Employee) error {
	if !e.Classification.Valid() {
		return fmt.Errorf("%w: %q", workforce.ErrInvalidClassification, e.Classification)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putEmployeeLocked(ctx, e)
}

func (s *Store) putEmployeeLocked(ctx context.Context, e workforce.Employee) error {
	var version int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM employees WHERE id = ?",
		string(e.ID),
	).Scan(&version)
	if err != nil {
		return err
	}

	addressJSON, _ := json.Marshal(e.Address)
	var termination *string
	if e.Termination != nil {
		t := e.Termination.Format(time.RFC3339)
		termination = &t
	}

	query := `
		INSERT INTO employees
		(id, version, employer_id, name, ssn, address_json, hire_date, termination_date, classification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		string(e.ID), version+1, string(e.EmployerID), e.Name, e.SSN,
		string(addressJSON),
		e.HireDate.Format(time.RFC3339),
		termination,
		string(e.Classification),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) Get(ctx context.Context, id workforce.EmployeeID) (workforce.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employer_id, name, ssn, address_json, hire_date, termination_date, classification
		FROM employees
		WHERE id = ?
		ORDER BY version DESC
		LIMIT 1
	`
	emp, err := scanEmployee(s.db.QueryRowContext(ctx, query, string(id)))
	if err == sql.ErrNoRows {
		return workforce.Employee{}, fmt.Errorf("%w: %s", workforce.ErrEmployeeNotFound, id)
	}
	return emp, err
}

func (s *Store) ByEmployer(ctx context.Context, employer workforce.EmployerID) ([]workforce.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Latest version per id via the max-version correlated filter.
	query := `
		SELECT e.id, e.employer_id, e.name, e.ssn, e.address_json, e.hire_date, e.termination_date, e.classification
		FROM employees e
		WHERE e.employer_id = ?
		  AND e.version = (SELECT MAX(version) FROM employees WHERE id = e.id)
		ORDER BY e.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(employer))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []workforce.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) Terminate(ctx context.Context, id workforce.EmployeeID, on time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, employer_id, name, ssn, address_json, hire_date, termination_date, classification
		FROM employees
		WHERE id = ?
		ORDER BY version DESC
		LIMIT 1
	`
	emp, err := scanEmployee(s.db.QueryRowContext(ctx, query, string(id)))
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", workforce.ErrEmployeeNotFound, id)
	}
	if err != nil {
		return err
	}
	if emp.Termination != nil {
		return fmt.Errorf("%w: %s", workforce.ErrAlreadyTerminated, id)
	}

	emp.Termination = &on
	return s.putEmployeeLocked(ctx, emp)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (workforce.Employee, error) {
	var (
		emp            workforce.Employee
		id, employerID string
		addressJSON    string
		hireDate       string
		termination    sql.NullString
		classification string
	)
	err := row.Scan(&id, &employerID, &emp.Name, &emp.SSN, &addressJSON, &hireDate, &termination, &classification)
	if err != nil {
		return emp, err
	}

	emp.ID = workforce.EmployeeID(id)
	emp.EmployerID = workforce.EmployerID(employerID)
	emp.Classification = workforce.Classification(classification)
	emp.HireDate, _ = time.Parse(time.RFC3339, hireDate)
	if termination.Valid {
		t, _ := time.Parse(time.RFC3339, termination.String)
		emp.Termination = &t
	}
	json.Unmarshal([]byte(addressJSON), &emp.Address)
	return emp, nil
}

// =============================================================================
// HOURS (hours.Store and hours.AuditLog interfaces)
// =============================================================================

func (s *Store) AppendVersion(ctx context.Context, rec hours.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO hours_records (employee_id, month, version, hours, source, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(rec.EmployeeID), rec.Month.String(), rec.Version,
		rec.Hours.String(), rec.Source,
		rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("hours version conflict for %s %s: version %d exists",
			rec.EmployeeID, rec.Month, rec.Version)
	}
	return err
}

func (s *Store) Latest(ctx context.Context, id workforce.EmployeeID, m calendar.Month) (hours.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, month, version, hours, source, recorded_at
		FROM hours_records
		WHERE employee_id = ? AND month = ?
		ORDER BY version DESC
		LIMIT 1
	`
	rec, err := scanHours(s.db.QueryRowContext(ctx, query, string(id), m.String()))
	if err == sql.ErrNoRows {
		return hours.Record{}, fmt.Errorf("%w: %s %s", hours.ErrNotFound, id, m)
	}
	return rec, err
}

func (s *Store) LatestRange(ctx context.Context, id workforce.EmployeeID, window calendar.MonthRange) ([]hours.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// "2006-01" strings sort chronologically, so BETWEEN works.
	query := `
		SELECT h.employee_id, h.month, h.version, h.hours, h.source, h.recorded_at
		FROM hours_records h
		WHERE h.employee_id = ?
		  AND h.month BETWEEN ? AND ?
		  AND h.version = (
			SELECT MAX(version) FROM hours_records
			WHERE employee_id = h.employee_id AND month = h.month
		  )
		ORDER BY h.month ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(id), window.Start.String(), window.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hours.Record
	for rows.Next() {
		rec, err := scanHours(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) LastChanged(ctx context.Context, ids []workforce.EmployeeID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(ids) == 0 {
		return time.Time{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}

	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(recorded_at) FROM hours_records WHERE employee_id IN ("+placeholders+")",
		args...,
	).Scan(&raw)
	if err != nil || !raw.Valid {
		return time.Time{}, err
	}

	last, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return time.Time{}, err
	}
	return last, nil
}

func scanHours(row rowScanner) (hours.Record, error) {
	var (
		rec        hours.Record
		id         string
		month      string
		hrs        string
		source     sql.NullString
		recordedAt string
	)
	err := row.Scan(&id, &month, &rec.Version, &hrs, &source, &recordedAt)
	if err != nil {
		return rec, err
	}

	rec.EmployeeID = workforce.EmployeeID(id)
	rec.Month, err = calendar.ParseMonth(month)
	if err != nil {
		return rec, err
	}
	rec.Hours, err = decimal.NewFromString(hrs)
	if err != nil {
		return rec, err
	}
	rec.Source = source.String
	rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
	return rec, nil
}

func (s *Store) AppendAudit(ctx context.Context, ev hours.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO hours_audit (id, employee_id, month, prior_hours, new_hours, version, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		ev.ID, string(ev.EmployeeID), ev.Month.String(),
		ev.PriorHours.String(), ev.NewHours.String(), ev.Version,
		ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) AuditFor(ctx context.Context, id workforce.EmployeeID, m calendar.Month) ([]hours.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, month, prior_hours, new_hours, version, occurred_at
		FROM hours_audit
		WHERE employee_id = ? AND month = ?
		ORDER BY version ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(id), m.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hours.AuditEvent
	for rows.Next() {
		var (
			ev           hours.AuditEvent
			empID        string
			month        string
			prior, fresh string
			occurredAt   string
		)
		if err := rows.Scan(&ev.ID, &empID, &month, &prior, &fresh, &ev.Version, &occurredAt); err != nil {
			return nil, err
		}
		ev.EmployeeID = workforce.EmployeeID(empID)
		ev.Month, _ = calendar.ParseMonth(month)
		ev.PriorHours, _ = decimal.NewFromString(prior)
		ev.NewHours, _ = decimal.NewFromString(fresh)
		ev.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// =============================================================================
// OFFERS & COMPENSATION (offer.Store interface)
// =============================================================================

func (s *Store) PutOffer(ctx context.Context, o offer.CoverageOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO offers (employee_id, month, offer_json)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id, month) DO UPDATE SET
			offer_json = excluded.offer_json
	`
	_, err = s.db.ExecContext(ctx, query, string(o.EmployeeID), o.Month.String(), string(payload))
	return err
}

func (s *Store) OfferFor(ctx context.Context, id workforce.EmployeeID, m calendar.Month) (offer.CoverageOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT offer_json FROM offers WHERE employee_id = ? AND month = ?",
		string(id), m.String(),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return offer.CoverageOffer{}, fmt.Errorf("%w: %s %s", offer.ErrOfferNotFound, id, m)
	}
	if err != nil {
		return offer.CoverageOffer{}, err
	}

	var o offer.CoverageOffer
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return offer.CoverageOffer{}, err
	}
	return o, nil
}

func (s *Store) PutCompensation(ctx context.Context, c offer.Compensation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO compensations (employee_id, comp_json)
		VALUES (?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			comp_json = excluded.comp_json
	`
	_, err = s.db.ExecContext(ctx, query, string(c.EmployeeID), string(payload))
	return err
}

func (s *Store) CompensationFor(ctx context.Context, id workforce.EmployeeID) (offer.Compensation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT comp_json FROM compensations WHERE employee_id = ?",
		string(id),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return offer.Compensation{}, fmt.Errorf("%w: no compensation for %s", offer.ErrOfferNotFound, id)
	}
	if err != nil {
		return offer.Compensation{}, err
	}

	var c offer.Compensation
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return offer.Compensation{}, err
	}
	return c, nil
}

// =============================================================================
// DETERMINATIONS & RESULTS (eligibility store interfaces)
// =============================================================================

func (s *Store) AppendDetermination(ctx context.Context, d eligibility.Determination) (eligibility.Determination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM determinations WHERE employee_id = ? AND period_id = ?",
		string(d.EmployeeID), d.PeriodID,
	).Scan(&version)
	if err != nil {
		return eligibility.Determination{}, err
	}
	d.Version = version + 1

	payload, err := json.Marshal(d)
	if err != nil {
		return eligibility.Determination{}, err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO determinations (employee_id, period_id, version, det_json) VALUES (?, ?, ?, ?)",
		string(d.EmployeeID), d.PeriodID, d.Version, string(payload),
	)
	if err != nil {
		return eligibility.Determination{}, err
	}
	return d, nil
}

func (s *Store) LatestDetermination(ctx context.Context, id workforce.EmployeeID, periodID string) (eligibility.Determination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT det_json FROM determinations
		 WHERE employee_id = ? AND period_id = ?
		 ORDER BY version DESC LIMIT 1`,
		string(id), periodID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return eligibility.Determination{}, fmt.Errorf("%w: %s %s", eligibility.ErrDeterminationNotFound, id, periodID)
	}
	if err != nil {
		return eligibility.Determination{}, err
	}

	var d eligibility.Determination
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return eligibility.Determination{}, err
	}
	return d, nil
}

func (s *Store) AppendResult(ctx context.Context, r eligibility.Result) (eligibility.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM results WHERE employee_id = ? AND month = ?",
		string(r.EmployeeID), r.Month.String(),
	).Scan(&version)
	if err != nil {
		return eligibility.Result{}, err
	}
	r.Version = version + 1

	payload, err := json.Marshal(r)
	if err != nil {
		return eligibility.Result{}, err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO results (employee_id, month, version, employer_id, result_json) VALUES (?, ?, ?, ?, ?)",
		string(r.EmployeeID), r.Month.String(), r.Version, string(r.EmployerID), string(payload),
	)
	if err != nil {
		return eligibility.Result{}, err
	}
	return r, nil
}

func (s *Store) LatestByEmployer(ctx context.Context, employer workforce.EmployerID, taxYear int) ([]eligibility.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	year := calendar.TaxYear(taxYear)
	query := `
		SELECT r.result_json
		FROM results r
		WHERE r.employer_id = ?
		  AND r.month BETWEEN ? AND ?
		  AND r.version = (
			SELECT MAX(version) FROM results
			WHERE employee_id = r.employee_id AND month = r.month
		  )
		ORDER BY r.employee_id ASC, r.month ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(employer), year.Start.String(), year.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []eligibility.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r eligibility.Result
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// BATCHES (report.BatchStore interface)
// =============================================================================

func (s *Store) SaveBatch(ctx context.Context, b report.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO batches (id, employer_id, tax_year, created_at, batch_json) VALUES (?, ?, ?, ?, ?)",
		b.ID, string(b.EmployerID), b.TaxYear,
		b.CreatedAt.UTC().Format(time.RFC3339Nano), string(payload),
	)
	return err
}

func (s *Store) GetBatch(ctx context.Context, id string) (report.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT batch_json FROM batches WHERE id = ?", id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return report.Batch{}, fmt.Errorf("%w: %s", report.ErrBatchNotFound, id)
	}
	if err != nil {
		return report.Batch{}, err
	}

	var b report.Batch
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return report.Batch{}, err
	}
	return b, nil
}

func (s *Store) ListBatches(ctx context.Context, employer workforce.EmployerID, taxYear int) ([]report.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT batch_json FROM batches WHERE employer_id = ? AND tax_year = ? ORDER BY created_at ASC",
		string(employer), taxYear,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.Batch
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var b report.Batch
		if err := json.Unmarshal([]byte(payload), &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
