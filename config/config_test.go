package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/aca-engine/config"
	"github.com/warp/aca-engine/measure"
)

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "aca.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, 12, cfg.Engine.LookbackMonths)
	assert.Equal(t, 30, cfg.Engine.AdministrativeDays)
	assert.Equal(t, 12, cfg.Engine.StabilityMonths)
	assert.Equal(t, time.January, cfg.Engine.StandardAnchorMonth)
	assert.True(t, cfg.Engine.AffordabilityPercent.Equal(decimal.RequireFromString("0.0902")))
	assert.True(t, cfg.Engine.FPLAnnual.Equal(decimal.RequireFromString("15060")))
	assert.Equal(t, 1.0, cfg.Engine.MinDataFraction)
	assert.Equal(t, 4, cfg.Engine.Workers)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MEASURE_LOOKBACK_MONTHS", "6")
	t.Setenv("MEASURE_STABILITY_MONTHS", "6")
	t.Setenv("MEASURE_ADMIN_DAYS", "0")
	t.Setenv("AFFORDABILITY_PERCENT", "0.0839")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 6, cfg.Engine.LookbackMonths)
	assert.True(t, cfg.Engine.AffordabilityPercent.Equal(decimal.RequireFromString("0.0839")))
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_InvalidMeasureConfigRejected(t *testing.T) {
	t.Setenv("MEASURE_LOOKBACK_MONTHS", "2")

	_, err := config.Load()
	assert.ErrorIs(t, err, measure.ErrInvalidConfig)
}

func TestLoad_InvalidAffordabilityRejected(t *testing.T) {
	t.Setenv("AFFORDABILITY_PERCENT", "9.02")

	_, err := config.Load()
	assert.ErrorIs(t, err, measure.ErrInvalidConfig)
}

// =============================================================================
// MAPPER TESTS
// =============================================================================

func TestEngineConfig_Measure_Normalizes(t *testing.T) {
	e := config.EngineConfig{
		LookbackMonths:     12,
		AdministrativeDays: 30,
		StabilityMonths:    12,
	}
	m := e.Measure()
	assert.Equal(t, time.January, m.StandardAnchorMonth)
	assert.Equal(t, 12, m.InitialLookbackMonths)
	assert.Equal(t, measure.OverlapInitialGoverns, m.Overlap)
}

func TestEngineConfig_OfferParamsAndRates(t *testing.T) {
	e := config.EngineConfig{
		AffordabilityPercent: decimal.RequireFromString("0.0902"),
		FPLAnnual:            decimal.RequireFromString("15060"),
		PenaltyAAnnual:       decimal.RequireFromString("2900"),
		PenaltyBAnnual:       decimal.RequireFromString("4350"),
	}

	params := e.OfferParams()
	assert.True(t, params.AffordabilityPercent.Equal(decimal.RequireFromString("0.0902")))
	assert.True(t, params.FPLAnnual.Equal(decimal.RequireFromString("15060")))

	rates := e.PenaltyRates()
	assert.True(t, rates.AAnnual.Equal(decimal.RequireFromString("2900")))
	assert.True(t, rates.BAnnual.Equal(decimal.RequireFromString("4350")))
}
