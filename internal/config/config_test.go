package config

import (
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() produced invalid config: %v", err)
	}

	for _, country := range []string{"DK", "FI", "SE", "NO"} {
		if !cfg.ValidCountries[country] {
			t.Errorf("Expected %s in valid countries", country)
		}
	}

	tests := []struct {
		country  string
		currency string
	}{
		{"DK", "DKK"},
		{"SE", "SEK"},
		{"NO", "NOK"},
		{"FI", "EUR"},
	}
	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			if got := cfg.CountryCurrency[tt.country]; got != tt.currency {
				t.Errorf("CountryCurrency[%s] = %s, want %s", tt.country, got, tt.currency)
			}
		})
	}

	if cfg.ConversionRates["EUR"] != 1.0 {
		t.Errorf("EUR rate = %v, want 1.0", cfg.ConversionRates["EUR"])
	}
	if cfg.HighValuePercentile != 0.80 {
		t.Errorf("HighValuePercentile = %v, want 0.80", cfg.HighValuePercentile)
	}
	if cfg.ChurnDays != 50 {
		t.Errorf("ChurnDays = %d, want 50", cfg.ChurnDays)
	}
	if cfg.ChurnZScoreThreshold != 2 {
		t.Errorf("ChurnZScoreThreshold = %v, want 2", cfg.ChurnZScoreThreshold)
	}
	if !cfg.InferMissingCurrency {
		t.Error("InferMissingCurrency should default to true")
	}
	if cfg.ReferenceDate != nil {
		t.Error("ReferenceDate should default to nil (max transaction date)")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NORDIC_CHURN_DAYS", "75")
	t.Setenv("NORDIC_HIGH_VALUE_PERCENTILE", "0.9")
	t.Setenv("NORDIC_INFER_MISSING_CURRENCY", "false")
	t.Setenv("NORDIC_REFERENCE_DATE", "2025-03-01")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error: %v", err)
	}

	if cfg.ChurnDays != 75 {
		t.Errorf("ChurnDays = %d, want 75", cfg.ChurnDays)
	}
	if cfg.HighValuePercentile != 0.9 {
		t.Errorf("HighValuePercentile = %v, want 0.9", cfg.HighValuePercentile)
	}
	if cfg.InferMissingCurrency {
		t.Error("InferMissingCurrency should be overridden to false")
	}
	if cfg.ReferenceDate == nil || cfg.ReferenceDate.String() != "2025-03-01" {
		t.Errorf("ReferenceDate = %v, want 2025-03-01", cfg.ReferenceDate)
	}
}

func TestFromEnvInvalidReferenceDate(t *testing.T) {
	t.Setenv("NORDIC_REFERENCE_DATE", "01/03/2025")

	if _, err := FromEnv(); err == nil {
		t.Error("Expected error for malformed reference date")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"percentile above one", func(c *Config) { c.HighValuePercentile = 1.2 }, true},
		{"negative churn days", func(c *Config) { c.ChurnDays = -1 }, true},
		{"negative z-score", func(c *Config) { c.ChurnZScoreThreshold = -0.5 }, true},
		{"missing EUR base", func(c *Config) { delete(c.ConversionRates, "EUR") }, true},
		{"EUR not at par", func(c *Config) { c.ConversionRates["EUR"] = 0.9 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
