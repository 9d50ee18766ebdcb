package application

import (
	"os"
	"path/filepath"
	"testing"

	settlement "clinic-register/internal/settlement/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SETTLEMENT_CONFIG", "")
	t.Setenv("CLINIC_NAME", "")
	t.Setenv("CURRENCY", "")
	t.Setenv("SETTLEMENT_WEBHOOK_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ClinicName != "Clinic" || cfg.Currency != "GTQ" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Tolerance.Equal(settlement.DefaultTolerance) {
		t.Fatalf("expected default tolerance, got %s", cfg.Tolerance)
	}
	if cfg.WebhookURL != "" {
		t.Fatalf("expected empty webhook url, got %q", cfg.WebhookURL)
	}
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settlement.yaml")
	body := "clinic_name: Clinica Central\ncurrency: USD\ntolerance: \"0.50\"\nwebhook_url: https://hooks.example.com/settlements\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SETTLEMENT_CONFIG", path)
	t.Setenv("CLINIC_NAME", "Ignored")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ClinicName != "Clinica Central" {
		t.Fatalf("file must win over env, got %q", cfg.ClinicName)
	}
	if cfg.Currency != "USD" {
		t.Fatalf("expected USD, got %q", cfg.Currency)
	}
	if cfg.Tolerance.String() != "0.5" {
		t.Fatalf("expected tolerance 0.5, got %s", cfg.Tolerance)
	}
	if cfg.WebhookURL != "https://hooks.example.com/settlements" {
		t.Fatalf("unexpected webhook url %q", cfg.WebhookURL)
	}
}

func TestLoadConfig_BadTolerance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settlement.yaml")
	if err := os.WriteFile(path, []byte("tolerance: \"a lot\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SETTLEMENT_CONFIG", path)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected an error for a non-numeric tolerance")
	}
}
