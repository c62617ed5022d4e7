/*
Package measure computes look-back, administrative and stability period
windows and tracks an employee's position within them.

PURPOSE:
  The measurement-period method is the heart of the employer mandate:
  hours averaged over a look-back window decide full-time status for a
  later stability window, with an administrative gap between them for
  enrollment paperwork. This package generates those windows per
  employee and answers "which phase is this employee in on this date?".

KEY CONCEPTS:
  - Period: one phase window (lookback | administrative | stability)
  - Track: a chain of contiguous periods. Every employee has a standard
    track anchored to the employer's calendar; new variable-hour and
    seasonal hires additionally get a one-cycle initial track anchored
    to their hire date.
  - Half-open windows: a period covers [Start, End). Contiguity is the
    literal invariant stability.Start == administrative.End and
    administrative.Start == lookback.End.

PHASE TRANSITIONS (per track):
  lookback -> administrative   on lookback.End
  administrative -> stability  on administrative.End
  stability -> lookback        on stability.End (next cycle, new records)

OVERLAP:
  While an initial track runs, its periods may overlap the standard
  track's. That is expected and is resolved by OverlapPolicy at
  evaluation time (see the eligibility package); overlap WITHIN a single
  track is a ConsistencyError.

SEE ALSO:
  - tracker.go: period generation and phase queries
  - eligibility: consumes PeriodsFor to classify coverage months
*/
package measure

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CONFIG
// =============================================================================

// OverlapPolicy decides how a month covered by both an initial and a
// standard stability period is classified. The source domain leaves
// this unresolved, so it is explicit configuration, never a silent
// default buried in the evaluator.
type OverlapPolicy string

const (
	// OverlapInitialGoverns: the initial period governs exclusively
	// until its stability period ends, then the standard period takes
	// over.
	OverlapInitialGoverns OverlapPolicy = "initial-governs"

	// OverlapConservativeFT: whichever period yields full-time status
	// wins. Conservative for the employer (more coverage offered).
	OverlapConservativeFT OverlapPolicy = "conservative-ft"
)

// Config holds the employer's measurement period parameters for a tax
// year. It is immutable and threaded explicitly through every call.
type Config struct {
	// LookbackMonths is the standard look-back length (3-12 months).
	LookbackMonths int

	// AdministrativeDays is the administrative period length (0-90 days).
	AdministrativeDays int

	// StabilityMonths must be at least LookbackMonths (IRS rule).
	StabilityMonths int

	// StandardAnchorMonth is the calendar month whose first day starts
	// each standard look-back cycle. Default: January.
	StandardAnchorMonth time.Month

	// InitialLookbackMonths is the stub look-back length for the
	// hire-anchored initial period. 0 means "same as LookbackMonths".
	InitialLookbackMonths int

	// Overlap picks the policy for months covered by both tracks.
	Overlap OverlapPolicy
}

// ErrInvalidConfig is the sentinel for all configuration failures.
// Configuration errors are fatal: they block batch start (spec class
// ConfigurationError).
var ErrInvalidConfig = errors.New("invalid measurement period configuration")

// ConfigError aggregates every problem found during validation.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid measurement period configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Normalized returns the config with defaults applied.
func (c Config) Normalized() Config {
	if c.StandardAnchorMonth == 0 {
		c.StandardAnchorMonth = time.January
	}
	if c.InitialLookbackMonths == 0 {
		c.InitialLookbackMonths = c.LookbackMonths
	}
	if c.Overlap == "" {
		c.Overlap = OverlapInitialGoverns
	}
	return c
}

// Validate checks the IRS bounds on period lengths. Returns a
// *ConfigError listing every violation, or nil.
func (c Config) Validate() error {
	c = c.Normalized()
	var problems []string

	if c.LookbackMonths < 3 || c.LookbackMonths > 12 {
		problems = append(problems, fmt.Sprintf("lookback must be 3-12 months, got %d", c.LookbackMonths))
	}
	if c.AdministrativeDays < 0 || c.AdministrativeDays > 90 {
		problems = append(problems, fmt.Sprintf("administrative period must be 0-90 days, got %d", c.AdministrativeDays))
	}
	if c.StabilityMonths < c.LookbackMonths {
		problems = append(problems, fmt.Sprintf("stability (%d months) must be at least lookback length (%d months)", c.StabilityMonths, c.LookbackMonths))
	}
	if c.InitialLookbackMonths < 3 || c.InitialLookbackMonths > 12 {
		problems = append(problems, fmt.Sprintf("initial lookback must be 3-12 months, got %d", c.InitialLookbackMonths))
	}
	if c.Overlap != OverlapInitialGoverns && c.Overlap != OverlapConservativeFT {
		problems = append(problems, fmt.Sprintf("unknown overlap policy %q", c.Overlap))
	}

	// Lookback + administrative must not extend past 13 months plus one
	// month from the lookback start. Checked against a concrete anchor
	// because month lengths vary.
	if c.LookbackMonths >= 3 && c.LookbackMonths <= 12 && c.AdministrativeDays >= 0 {
		anchor := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
		adminEnd := anchor.AddDate(0, c.LookbackMonths, 0).AddDate(0, 0, c.AdministrativeDays)
		limit := anchor.AddDate(0, 14, 0)
		if adminEnd.After(limit) {
			problems = append(problems, fmt.Sprintf("lookback (%d months) plus administrative (%d days) exceeds the 13-months-plus-one limit", c.LookbackMonths, c.AdministrativeDays))
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
