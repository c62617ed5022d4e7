/*
handlers.go - HTTP API handlers for the eligibility & reporting engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees?employer=X        List employer's employees
    POST   /api/employees                   Ingest employee record
    GET    /api/employees/{id}              Get employee details
    POST   /api/employees/{id}/terminate    Record termination

  Hours:
    POST   /api/hours                            Ingest monthly hours
    GET    /api/employees/{id}/hours/{month}       Visible hours value
    GET    /api/employees/{id}/hours/{month}/audit Overwrite audit trail

  Offers:
    POST   /api/offers                      Ingest coverage offer facts
    POST   /api/compensation                Ingest income bases

  Eligibility:
    GET    /api/employees/{id}/eligibility/{month}  Classify one month
    GET    /api/employers/{employer}/results        Latest stored results

  Batches:
    POST   /api/batches                     Run a batch report
    GET    /api/batches/{id}                Full batch snapshot
    GET    /api/batches/{id}/status         State + staleness
    GET    /api/batches/{id}/lines          Form lines only
    GET    /api/batches/{id}/assessments    Penalty assessments only
    GET    /api/employers/{employer}/batches List batches for a year

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (already terminated, stability lock)
  - 422: Data problems (missing hours, insufficient window data)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/eligibility"
	"github.com/warp/aca-engine/hours"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/report"
	"github.com/warp/aca-engine/workforce"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Roster    workforce.Roster
	Ledger    *hours.Ledger
	Audit     hours.AuditLog
	Offers    offer.Store
	Evaluator *eligibility.Evaluator
	Results   eligibility.ResultStore
	Batches   report.BatchStore
	Runner    *report.Runner

	Log      *zap.Logger
	validate *validator.Validate

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over the engine's components.
func NewHandler(
	roster workforce.Roster,
	ledger *hours.Ledger,
	audit hours.AuditLog,
	offers offer.Store,
	evaluator *eligibility.Evaluator,
	results eligibility.ResultStore,
	batches report.BatchStore,
	runner *report.Runner,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Roster:    roster,
		Ledger:    ledger,
		Audit:     audit,
		Offers:    offers,
		Evaluator: evaluator,
		Results:   results,
		Batches:   batches,
		Runner:    runner,
		Log:       log,
		validate:  validator.New(),
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employer := r.URL.Query().Get("employer")
	if employer == "" {
		writeError(w, http.StatusBadRequest, "employer query parameter is required", nil)
		return
	}

	employees, err := h.Roster.ByEmployer(r.Context(), workforce.EmployerID(employer))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list employees", err)
		return
	}
	if employees == nil {
		employees = []workforce.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields", err)
		return
	}

	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hire date", err)
		return
	}
	classification := workforce.Classification(req.Classification)
	if !classification.Valid() {
		writeError(w, http.StatusBadRequest, "invalid classification", workforce.ErrInvalidClassification)
		return
	}

	emp := workforce.Employee{
		ID:         workforce.EmployeeID(req.ID),
		EmployerID: workforce.EmployerID(req.EmployerID),
		Name:       req.Name,
		SSN:        req.SSN,
		Address: workforce.Address{
			Line1: req.Line1,
			City:  req.City,
			State: req.State,
			Zip:   req.Zip,
		},
		HireDate:       hireDate,
		Classification: classification,
	}
	if err := h.Roster.Put(r.Context(), emp); err != nil {
		writeError(w, http.StatusBadRequest, "failed to ingest employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := workforce.EmployeeID(chi.URLParam(r, "id"))
	emp, err := h.Roster.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (h *Handler) TerminateEmployee(w http.ResponseWriter, r *http.Request) {
	id := workforce.EmployeeID(chi.URLParam(r, "id"))

	var req TerminateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	on, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid termination date", err)
		return
	}

	if err := h.Roster.Terminate(r.Context(), id, on); err != nil {
		writeDomainError(w, err)
		return
	}
	emp, err := h.Roster.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// =============================================================================
// HOURS
// =============================================================================

func (h *Handler) RecordHours(w http.ResponseWriter, r *http.Request) {
	var req RecordHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields", err)
		return
	}

	month, err := calendar.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return
	}

	err = h.Ledger.RecordHours(r.Context(), workforce.EmployeeID(req.EmployeeID), month.First(), req.Hours, req.Source)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	id := workforce.EmployeeID(chi.URLParam(r, "id"))
	month, err := calendar.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return
	}

	hrs, err := h.Ledger.HoursFor(r.Context(), id, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employeeId": id,
		"month":      month,
		"hours":      hrs,
	})
}

func (h *Handler) GetHoursAudit(w http.ResponseWriter, r *http.Request) {
	id := workforce.EmployeeID(chi.URLParam(r, "id"))
	month, err := calendar.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return
	}

	events, err := h.Audit.AuditFor(r.Context(), id, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load audit trail", err)
		return
	}
	if events == nil {
		events = []hours.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// =============================================================================
// OFFERS & COMPENSATION
// =============================================================================

func (h *Handler) PutOffer(w http.ResponseWriter, r *http.Request) {
	var req OfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields", err)
		return
	}

	month, err := calendar.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return
	}

	o := offer.CoverageOffer{
		EmployeeID:    workforce.EmployeeID(req.EmployeeID),
		Month:         month,
		Offered:       req.Offered,
		Tier:          offer.Tier(req.Tier),
		EmployeeShare: req.EmployeeShare,
		MinimumValue:  req.MinimumValue,
		Enrolled:      req.Enrolled,
		SafeHarbor:    offer.SafeHarborMethod(req.SafeHarbor),
	}
	if err := h.Offers.PutOffer(r.Context(), o); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store offer", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) PutCompensation(w http.ResponseWriter, r *http.Request) {
	var req CompensationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields", err)
		return
	}

	c := offer.Compensation{
		EmployeeID:   workforce.EmployeeID(req.EmployeeID),
		MonthlyWages: req.MonthlyWages,
		HourlyRate:   req.HourlyRate,
	}
	if err := h.Offers.PutCompensation(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store compensation", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

func (h *Handler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	id := workforce.EmployeeID(chi.URLParam(r, "id"))
	month, err := calendar.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return
	}

	res, err := h.Evaluator.Evaluate(r.Context(), id, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	employer := workforce.EmployerID(chi.URLParam(r, "employer"))
	taxYear, err := strconv.Atoi(r.URL.Query().Get("taxYear"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "taxYear query parameter is required", err)
		return
	}

	results, err := h.Results.LatestByEmployer(r.Context(), employer, taxYear)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list results", err)
		return
	}
	if results == nil {
		results = []eligibility.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

// =============================================================================
// BATCHES
// =============================================================================

func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req RunBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields", err)
		return
	}

	batch, err := h.Runner.RunBatch(r.Context(), workforce.EmployerID(req.EmployerID), req.TaxYear)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, batch)
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Batches.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (h *Handler) GetBatchStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Runner.BatchStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) GetBatchLines(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Batches.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch.Lines)
}

func (h *Handler) GetBatchAssessments(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Batches.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch.Assessments)
}

func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	employer := workforce.EmployerID(chi.URLParam(r, "employer"))
	taxYear, err := strconv.Atoi(r.URL.Query().Get("taxYear"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "taxYear query parameter is required", err)
		return
	}

	batches, err := h.Batches.ListBatches(r.Context(), employer, taxYear)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list batches", err)
		return
	}
	if batches == nil {
		batches = []report.Batch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workforce.ErrEmployeeNotFound),
		errors.Is(err, hours.ErrNotFound),
		errors.Is(err, offer.ErrOfferNotFound),
		errors.Is(err, report.ErrBatchNotFound),
		errors.Is(err, eligibility.ErrDeterminationNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, workforce.ErrAlreadyTerminated),
		errors.Is(err, eligibility.ErrStabilityLocked):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, hours.ErrNegativeHours),
		errors.Is(err, calendar.ErrInvalidMonth),
		errors.Is(err, workforce.ErrInvalidClassification):
		writeError(w, http.StatusBadRequest, "invalid input", err)
	case errors.Is(err, hours.ErrInsufficientData),
		errors.Is(err, offer.ErrMissingIncomeBasis):
		writeError(w, http.StatusUnprocessableEntity, "insufficient data", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
