package application

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	settlement "clinic-register/internal/settlement/domain"
)

// Config defines settlement behavior loaded from yaml or env.
type Config struct {
	ClinicName string
	Currency   string
	// Tolerance is the counted/expected threshold in currency units.
	Tolerance  decimal.Decimal
	WebhookURL string
}

type fileConfig struct {
	ClinicName string `yaml:"clinic_name"`
	Currency   string `yaml:"currency"`
	Tolerance  string `yaml:"tolerance"`
	WebhookURL string `yaml:"webhook_url"`
}

// LoadConfig loads settlement config. SETTLEMENT_CONFIG points at an
// optional yaml file; env vars fill the gaps.
func LoadConfig() (Config, error) {
	cfg := Config{
		ClinicName: getenvDefault("CLINIC_NAME", "Clinic"),
		Currency:   getenvDefault("CURRENCY", "GTQ"),
		Tolerance:  settlement.DefaultTolerance,
		WebhookURL: os.Getenv("SETTLEMENT_WEBHOOK_URL"),
	}

	if path := os.Getenv("SETTLEMENT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return cfg, err
		}
		if file.ClinicName != "" {
			cfg.ClinicName = file.ClinicName
		}
		if file.Currency != "" {
			cfg.Currency = file.Currency
		}
		if file.WebhookURL != "" {
			cfg.WebhookURL = file.WebhookURL
		}
		if file.Tolerance != "" {
			tolerance, err := decimal.NewFromString(file.Tolerance)
			if err != nil {
				return cfg, fmt.Errorf("settlement config: bad tolerance: %w", err)
			}
			cfg.Tolerance = tolerance
		}
	}

	if !cfg.Tolerance.IsPositive() {
		cfg.Tolerance = settlement.DefaultTolerance
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
