// Package config loads engine configuration from the environment and
// .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/warp/aca-engine/measure"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/penalty"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	DatabasePath string

	CORS   CORSConfig
	Log    LogConfig
	Engine EngineConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig carries the regulatory knobs that change per tax year.
type EngineConfig struct {
	LookbackMonths        int
	AdministrativeDays    int
	StabilityMonths       int
	StandardAnchorMonth   time.Month
	InitialLookbackMonths int
	OverlapPolicy         string

	// AffordabilityPercent is a fraction (2025: 0.0902), FPLAnnual the
	// applicable federal poverty line in dollars per year.
	AffordabilityPercent decimal.Decimal
	FPLAnnual            decimal.Decimal

	// Annualized §4980H penalty rates for the tax year.
	PenaltyAAnnual decimal.Decimal
	PenaltyBAnnual decimal.Decimal

	// MinDataFraction is the fraction of look-back window months that
	// must have hours data before averaging is trusted.
	MinDataFraction float64

	Workers int
}

// Measure maps the engine knobs onto a normalized measurement config.
func (e EngineConfig) Measure() measure.Config {
	return measure.Config{
		LookbackMonths:        e.LookbackMonths,
		AdministrativeDays:    e.AdministrativeDays,
		StabilityMonths:       e.StabilityMonths,
		StandardAnchorMonth:   e.StandardAnchorMonth,
		InitialLookbackMonths: e.InitialLookbackMonths,
		Overlap:               measure.OverlapPolicy(e.OverlapPolicy),
	}.Normalized()
}

// OfferParams returns the affordability inputs for the tax year.
func (e EngineConfig) OfferParams() offer.Params {
	return offer.Params{
		AffordabilityPercent: e.AffordabilityPercent,
		FPLAnnual:            e.FPLAnnual,
	}
}

// PenaltyRates returns the §4980H rates for the tax year.
func (e EngineConfig) PenaltyRates() penalty.Rates {
	return penalty.Rates{AAnnual: e.PenaltyAAnnual, BAnnual: e.PenaltyBAnnual}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// A missing .env is fine; the environment and defaults cover it.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.DatabasePath = v.GetString("DB_PATH")

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		LookbackMonths:        v.GetInt("MEASURE_LOOKBACK_MONTHS"),
		AdministrativeDays:    v.GetInt("MEASURE_ADMIN_DAYS"),
		StabilityMonths:       v.GetInt("MEASURE_STABILITY_MONTHS"),
		StandardAnchorMonth:   time.Month(v.GetInt("MEASURE_ANCHOR_MONTH")),
		InitialLookbackMonths: v.GetInt("MEASURE_INITIAL_LOOKBACK_MONTHS"),
		OverlapPolicy:         v.GetString("MEASURE_OVERLAP_POLICY"),
		AffordabilityPercent:  parseDecimal(v.GetString("AFFORDABILITY_PERCENT"), "0.0902"),
		FPLAnnual:             parseDecimal(v.GetString("FPL_ANNUAL"), "15060"),
		PenaltyAAnnual:        parseDecimal(v.GetString("PENALTY_A_ANNUAL"), "2900"),
		PenaltyBAnnual:        parseDecimal(v.GetString("PENALTY_B_ANNUAL"), "4350"),
		MinDataFraction:       v.GetFloat64("HOURS_MIN_DATA_FRACTION"),
		Workers:               v.GetInt("BATCH_WORKERS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects startup configurations the engine cannot run under.
// Measurement-period problems surface the aggregate measure.ConfigError.
func (c *Config) Validate() error {
	if err := c.Engine.Measure().Validate(); err != nil {
		return err
	}
	if !c.Engine.AffordabilityPercent.IsPositive() || c.Engine.AffordabilityPercent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: affordability percent %s must be a fraction in (0, 1)",
			measure.ErrInvalidConfig, c.Engine.AffordabilityPercent)
	}
	if !c.Engine.FPLAnnual.IsPositive() {
		return fmt.Errorf("%w: FPL annual %s must be positive", measure.ErrInvalidConfig, c.Engine.FPLAnnual)
	}
	if c.Engine.PenaltyAAnnual.IsNegative() || c.Engine.PenaltyBAnnual.IsNegative() {
		return fmt.Errorf("%w: penalty rates must not be negative", measure.ErrInvalidConfig)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "aca.db")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MEASURE_LOOKBACK_MONTHS", 12)
	v.SetDefault("MEASURE_ADMIN_DAYS", 30)
	v.SetDefault("MEASURE_STABILITY_MONTHS", 12)
	v.SetDefault("MEASURE_ANCHOR_MONTH", int(time.January))
	v.SetDefault("MEASURE_INITIAL_LOOKBACK_MONTHS", 0) // 0 = same as standard
	v.SetDefault("MEASURE_OVERLAP_POLICY", string(measure.OverlapInitialGoverns))

	v.SetDefault("AFFORDABILITY_PERCENT", "0.0902")
	v.SetDefault("FPL_ANNUAL", "15060")
	v.SetDefault("PENALTY_A_ANNUAL", "2900")
	v.SetDefault("PENALTY_B_ANNUAL", "4350")
	v.SetDefault("HOURS_MIN_DATA_FRACTION", 1.0)
	v.SetDefault("BATCH_WORKERS", 4)
}

func parseDecimal(raw, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.RequireFromString(fallback)
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
