/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the stores with small, self-contained datasets so the dashboard
  has something to show without an HRIS import. Each scenario is a named
  loader over the same ingest paths the API exposes.

SCENARIOS:
  variable-hour-hire:  One variable-hour employee hired 2025-03-01 with
                       a seeded initial measurement window of hours.
  small-employer:      A handful of ongoing employees with offers,
                       wages and a full year of hours.

SEE ALSO:
  - handlers.go: Handler definition and helpers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/aca-engine/calendar"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/workforce"
)

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarioList = []ScenarioDTO{
	{
		Name:        "variable-hour-hire",
		Description: "Variable-hour employee hired 2025-03-01 with seeded initial measurement hours",
	},
	{
		Name:        "small-employer",
		Description: "Five ongoing employees with offers, wages and a full 2025 of hours",
	},
}

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarioList)
}

func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"current": h.currentScenario})
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var err error
	switch req.Name {
	case "variable-hour-hire":
		err = h.loadVariableHourHire(r.Context())
	case "small-employer":
		err = h.loadSmallEmployer(r.Context())
	default:
		writeError(w, http.StatusNotFound, "unknown scenario", fmt.Errorf("no scenario named %q", req.Name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}

	h.currentScenario = req.Name
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.Name})
}

// loadVariableHourHire seeds the canonical new-hire walkthrough: hired
// mid-tax-year, hours land above the full-time threshold on average.
func (h *Handler) loadVariableHourHire(ctx context.Context) error {
	emp := workforce.Employee{
		ID:         "emp-vh-1",
		EmployerID: "acme",
		Name:       "Riley Nolan",
		SSN:        "123-45-6789",
		Address: workforce.Address{
			Line1: "12 Harbor St",
			City:  "Portland",
			State: "ME",
			Zip:   "04101",
		},
		HireDate:       time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		Classification: workforce.ClassNewVariableHour,
	}
	if err := h.Roster.Put(ctx, emp); err != nil {
		return err
	}

	seed := []struct {
		month string
		hours int64
	}{
		{"2025-03", 142}, {"2025-04", 118}, {"2025-05", 150},
		{"2025-06", 133}, {"2025-07", 125}, {"2025-08", 140},
		{"2025-09", 131}, {"2025-10", 138}, {"2025-11", 122},
		{"2025-12", 144},
	}
	for _, rec := range seed {
		m, err := calendar.ParseMonth(rec.month)
		if err != nil {
			return err
		}
		if err := h.Ledger.RecordHours(ctx, emp.ID, m.First(), decimal.NewFromInt(rec.hours), "scenario"); err != nil {
			return err
		}
	}

	wages := decimal.NewFromInt(3000)
	return h.Offers.PutCompensation(ctx, offer.Compensation{
		EmployeeID:   emp.ID,
		MonthlyWages: &wages,
	})
}

// loadSmallEmployer seeds five ongoing employees with a full year of
// hours, self-only MV offers and W-2 wages.
func (h *Handler) loadSmallEmployer(ctx context.Context) error {
	// Hours cover 2024 as well so the 2025 stability determinations
	// have a complete look-back window to average.
	hoursMonths := append(calendar.TaxYear(2024).Months(), calendar.TaxYear(2025).Months()...)
	year := calendar.TaxYear(2025)
	wages := decimal.NewFromInt(3000)
	share := decimal.RequireFromString("150")

	for i := 1; i <= 5; i++ {
		emp := workforce.Employee{
			ID:         workforce.EmployeeID(fmt.Sprintf("emp-se-%d", i)),
			EmployerID: "acme",
			Name:       fmt.Sprintf("Employee %d", i),
			SSN:        fmt.Sprintf("900-01-%04d", i),
			Address: workforce.Address{
				Line1: fmt.Sprintf("%d Main St", i),
				City:  "Portland",
				State: "ME",
				Zip:   "04101",
			},
			HireDate:       time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
			Classification: workforce.ClassOngoing,
		}
		if err := h.Roster.Put(ctx, emp); err != nil {
			return err
		}
		if err := h.Offers.PutCompensation(ctx, offer.Compensation{
			EmployeeID:   emp.ID,
			MonthlyWages: &wages,
		}); err != nil {
			return err
		}

		for _, m := range hoursMonths {
			hrs := decimal.NewFromInt(160)
			if i == 5 {
				// One part-timer to keep the census interesting.
				hrs = decimal.NewFromInt(80)
			}
			if err := h.Ledger.RecordHours(ctx, emp.ID, m.First(), hrs, "scenario"); err != nil {
				return err
			}
		}

		for _, m := range year.Months() {
			if err := h.Offers.PutOffer(ctx, offer.CoverageOffer{
				EmployeeID:    emp.ID,
				Month:         m,
				Offered:       i != 5,
				Tier:          offer.TierSelfOnly,
				EmployeeShare: share,
				MinimumValue:  true,
				Enrolled:      i%2 == 0,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
