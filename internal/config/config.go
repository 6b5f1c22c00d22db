// Package config centralizes all configuration for the engine: the tax-year
// and precision knobs spec.md §6 names as the "Environment / config surface",
// plus the ambient paths (audit database, log level) the host needs to run it.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// RoundingMode mirrors spec.md §6's rounding_mode enum.
type RoundingMode string

const (
	RoundHalfUp   RoundingMode = "RoundHalfUp"
	RoundHalfEven RoundingMode = "RoundHalfEven"
)

// EngineConfig holds every knob spec.md §6 lists under "Environment / config
// surface", plus the ambient settings (log level, audit database path) that
// are not part of the core's contract but every run still needs.
type EngineConfig struct {
	TaxYear                 int          `mapstructure:"tax_year"`
	InternalPrecision       int32        `mapstructure:"internal_precision"`
	RoundingMode            RoundingMode `mapstructure:"rounding_mode"`
	OutputPrecisionAmount   int32        `mapstructure:"output_precision_amount"`
	OutputPrecisionPerShare int32        `mapstructure:"output_precision_per_share"`
	MaxFxFallbackDays       int          `mapstructure:"max_fx_fallback_days"`
	EOYQuantityTolerance    decimal.Decimal

	LogLevel     string `mapstructure:"log_level"`
	DatabasePath string `mapstructure:"database_path"`
}

// Load reads configuration from a best-effort .env file (as RumoClaro's
// config.LoadConfig does) and then from the process environment, binding
// the fields above via viper. No config file is read.
func Load() (*EngineConfig, error) {
	if err := godotenv.Load(); err != nil {
		// Absence of a .env file is expected in production; anything else
		// is surfaced by the caller via the logger once it is initialized.
		_ = err
	}

	v := viper.New()
	v.SetEnvPrefix("STEUERKERN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("tax_year", 0)
	v.SetDefault("internal_precision", 34)
	v.SetDefault("rounding_mode", string(RoundHalfUp))
	v.SetDefault("output_precision_amount", 2)
	v.SetDefault("output_precision_per_share", 6)
	v.SetDefault("max_fx_fallback_days", 7)
	v.SetDefault("log_level", "info")
	v.SetDefault("database_path", "./steuerkern.db")

	for _, key := range []string{
		"tax_year", "internal_precision", "rounding_mode",
		"output_precision_amount", "output_precision_per_share",
		"max_fx_fallback_days", "log_level", "database_path",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: bind env %q: %w", key, err)
		}
	}

	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.InternalPrecision < 28 {
		return nil, fmt.Errorf("config: internal_precision must be >= 28, got %d", cfg.InternalPrecision)
	}
	if cfg.RoundingMode != RoundHalfUp && cfg.RoundingMode != RoundHalfEven {
		return nil, fmt.Errorf("config: invalid rounding_mode %q", cfg.RoundingMode)
	}

	cfg.EOYQuantityTolerance = decimal.New(1, -6)
	if tol := v.GetString("eoy_quantity_tolerance"); tol != "" {
		parsed, err := decimal.NewFromString(tol)
		if err != nil {
			return nil, fmt.Errorf("config: invalid eoy_quantity_tolerance %q: %w", tol, err)
		}
		cfg.EOYQuantityTolerance = parsed
	}

	return &cfg, nil
}
