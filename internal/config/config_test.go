package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.SQLitePath != "data/ledger_sentinel.db" {
		t.Errorf("default sqlite path = %q", cfg.Database.SQLitePath)
	}
	if cfg.Upload.Dir != "uploaded_excels" {
		t.Errorf("default upload dir = %q", cfg.Upload.Dir)
	}
	if cfg.Ingest.PreviewRows != 5 || cfg.Ingest.SampleLimit != 50 {
		t.Errorf("default ingest = %+v", cfg.Ingest)
	}
	if cfg.Thresholds.SalesZScore != 3.0 {
		t.Errorf("default z-score threshold = %v", cfg.Thresholds.SalesZScore)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
database:
  sqlite_path: /tmp/wh.db
thresholds:
  sales_zscore: 2.5
  treasury_low_total: 300000
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TREASURY_LOW_TOTAL", "750000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.SQLitePath != "/tmp/wh.db" {
		t.Errorf("sqlite path = %q", cfg.Database.SQLitePath)
	}
	if cfg.Thresholds.SalesZScore != 2.5 {
		t.Errorf("sales_zscore = %v", cfg.Thresholds.SalesZScore)
	}
	// env beats file
	if cfg.Thresholds.TreasuryLowTotal != 750000 {
		t.Errorf("treasury_low_total = %v", cfg.Thresholds.TreasuryLowTotal)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := &Config{Thresholds: DefaultThresholds()}
	cfg.Database.SQLitePath = "wh.db"
	cfg.Upload.Dir = "uploads"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	bad := *cfg
	bad.Thresholds.SalesZScore = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero z-score")
	}

	bad = *cfg
	bad.Thresholds.ReconcileCritical = 10
	bad.Thresholds.ReconcileTolerance = 100
	if err := bad.Validate(); err == nil {
		t.Error("expected error for inverted reconcile thresholds")
	}
}
