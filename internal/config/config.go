// Package config centralizes the pipeline configuration: the valid country
// set, currency mappings and conversion rates, and the feature-engineering
// thresholds. A Config is built once at startup and passed into each stage;
// there is no process-wide mutable state.
package config

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. NORDIC_CHURN_DAYS=60.
const EnvPrefix = "nordic"

// Config holds every knob the pipeline stages consume.
type Config struct {
	// ValidCountries is the set of accepted customer country codes.
	ValidCountries map[string]bool

	// CountryCurrency maps a country code to the currency inferred for
	// transactions that arrive without one.
	CountryCurrency map[string]string

	// ConversionRates maps a currency code to its EUR rate. EUR is the
	// base at 1.0. Rates are static; a production deployment would refresh
	// them from a rates feed.
	ConversionRates map[string]float64

	// InferMissingCurrency controls whether unknown currencies are filled
	// in from the customer's country before conversion.
	InferMissingCurrency bool

	// HighValuePercentile is the total-spend quantile at and above which a
	// customer is flagged high-value.
	HighValuePercentile float64

	// ChurnDays is the fixed inactivity threshold for the churn flag.
	ChurnDays int

	// ChurnZScoreThreshold is the number of standard deviations above a
	// customer's mean interevent time for the personalized churn flag.
	ChurnZScoreThreshold float64

	// ReferenceDate overrides the recency anchor. When nil, the maximum
	// transaction timestamp across the whole run is used.
	ReferenceDate *civil.Date
}

// Default returns the standard configuration for the Nordic market.
func Default() Config {
	return Config{
		ValidCountries: map[string]bool{
			"DK": true,
			"FI": true,
			"SE": true,
			"NO": true,
		},
		CountryCurrency: map[string]string{
			"DK": "DKK",
			"SE": "SEK",
			"NO": "NOK",
			"FI": "EUR",
		},
		ConversionRates: map[string]float64{
			"EUR": 1.0,
			"DKK": 0.134,
			"SEK": 0.094,
			"NOK": 0.087,
		},
		InferMissingCurrency: true,
		HighValuePercentile:  0.80,
		ChurnDays:            50,
		ChurnZScoreThreshold: 2,
	}
}

// envOverrides mirrors the threshold knobs that make sense to tune per
// environment. Pointer fields are applied only when the variable is set.
type envOverrides struct {
	InferMissingCurrency *bool    `envconfig:"INFER_MISSING_CURRENCY"`
	HighValuePercentile  *float64 `envconfig:"HIGH_VALUE_PERCENTILE"`
	ChurnDays            *int     `envconfig:"CHURN_DAYS"`
	ChurnZScoreThreshold *float64 `envconfig:"CHURN_Z_SCORE_THRESHOLD"`
	ReferenceDate        string   `envconfig:"REFERENCE_DATE"`
}

// FromEnv returns the default configuration with any NORDIC_* environment
// overrides applied.
func FromEnv() (Config, error) {
	cfg := Default()

	var o envOverrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return cfg, fmt.Errorf("config.FromEnv: processing environment: %w", err)
	}

	if o.InferMissingCurrency != nil {
		cfg.InferMissingCurrency = *o.InferMissingCurrency
	}
	if o.HighValuePercentile != nil {
		cfg.HighValuePercentile = *o.HighValuePercentile
	}
	if o.ChurnDays != nil {
		cfg.ChurnDays = *o.ChurnDays
	}
	if o.ChurnZScoreThreshold != nil {
		cfg.ChurnZScoreThreshold = *o.ChurnZScoreThreshold
	}
	if o.ReferenceDate != "" {
		d, err := civil.ParseDate(o.ReferenceDate)
		if err != nil {
			return cfg, fmt.Errorf("config.FromEnv: invalid reference date %q: %w", o.ReferenceDate, err)
		}
		cfg.ReferenceDate = &d
	}

	return cfg, cfg.Validate()
}

// Validate rejects threshold values that would make the flag computations
// meaningless.
func (c Config) Validate() error {
	if c.HighValuePercentile < 0 || c.HighValuePercentile > 1 {
		return fmt.Errorf("config: high value percentile %v outside [0, 1]", c.HighValuePercentile)
	}
	if c.ChurnDays < 0 {
		return fmt.Errorf("config: churn days %d is negative", c.ChurnDays)
	}
	if c.ChurnZScoreThreshold < 0 {
		return fmt.Errorf("config: churn z-score threshold %v is negative", c.ChurnZScoreThreshold)
	}
	if rate, ok := c.ConversionRates["EUR"]; !ok || rate != 1.0 {
		return fmt.Errorf("config: EUR must be the base currency with rate 1.0")
	}
	return nil
}
