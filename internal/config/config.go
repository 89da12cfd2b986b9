package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Upload struct {
		Dir string `yaml:"dir"`
	} `yaml:"upload"`
	Schedule struct {
		// Cron expression for the optional watch mode (load + analyze the
		// current period). Empty disables scheduling.
		AnalysisCron string `yaml:"analysis_cron"`
	} `yaml:"schedule"`
	Ingest struct {
		PreviewRows int `yaml:"preview_rows"`
		SampleLimit int `yaml:"sample_limit"`
	} `yaml:"ingest"`
	Thresholds Thresholds `yaml:"thresholds"`
}

// Thresholds are the rule-engine constants, loaded once at startup and passed
// explicitly into the rule functions.
type Thresholds struct {
	SalesZScore    float64 `yaml:"sales_zscore"`
	SalesDayChange float64 `yaml:"sales_day_change"`
	SalesMinObs    int     `yaml:"sales_min_obs"`

	ExpenseSpikeFloor    float64 `yaml:"expense_spike_floor"`
	ExpenseSpikeRatio    float64 `yaml:"expense_spike_ratio"`
	ExpenseCriticalRatio float64 `yaml:"expense_critical_ratio"`
	ExpenseHistoryMonths int     `yaml:"expense_history_months"`

	StockTolerancePct float64 `yaml:"stock_tolerance_pct"`
	StockToleranceMin float64 `yaml:"stock_tolerance_min"`

	MarginLowPct        float64 `yaml:"margin_low_pct"`
	MarginDropPts       float64 `yaml:"margin_drop_pts"`
	MarginHistoryMonths int     `yaml:"margin_history_months"`

	ReconcileTolerance float64 `yaml:"reconcile_tolerance"`
	ReconcileCritical  float64 `yaml:"reconcile_critical"`

	RestockCoverageDays float64 `yaml:"restock_coverage_days"`
	RestockCriticalDays float64 `yaml:"restock_critical_days"`

	OverheatRatio         float64 `yaml:"overheat_ratio"`
	OverheatHistoryMonths int     `yaml:"overheat_history_months"`

	TreasuryLowTotal float64 `yaml:"treasury_low_total"`
}

// DefaultThresholds returns the standard rule constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SalesZScore:    3.0,
		SalesDayChange: 0.4,
		SalesMinObs:    3,

		ExpenseSpikeFloor:    100000,
		ExpenseSpikeRatio:    1.6,
		ExpenseCriticalRatio: 2.5,
		ExpenseHistoryMonths: 12,

		StockTolerancePct: 0.01,
		StockToleranceMin: 1.0,

		MarginLowPct:        8.0,
		MarginDropPts:       5.0,
		MarginHistoryMonths: 6,

		ReconcileTolerance: 1000,
		ReconcileCritical:  10000,

		RestockCoverageDays: 5.0,
		RestockCriticalDays: 2.0,

		OverheatRatio:         1.5,
		OverheatHistoryMonths: 3,

		TreasuryLowTotal: 500000,
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{Thresholds: DefaultThresholds()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Upload.Dir = v
	}
	if v := os.Getenv("CRON_ANALYSIS"); v != "" {
		cfg.Schedule.AnalysisCron = v
	}
	if v := os.Getenv("EXPENSE_SPIKE_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.ExpenseSpikeFloor = f
		}
	}
	if v := os.Getenv("TREASURY_LOW_TOTAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.TreasuryLowTotal = f
		}
	}

	// Defaults
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/ledger_sentinel.db"
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = "uploaded_excels"
	}
	if cfg.Ingest.PreviewRows == 0 {
		cfg.Ingest.PreviewRows = 5
	}
	if cfg.Ingest.SampleLimit == 0 {
		cfg.Ingest.SampleLimit = 50
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("upload.dir is required")
	}
	t := c.Thresholds
	if t.SalesZScore <= 0 {
		return fmt.Errorf("thresholds.sales_zscore must be positive")
	}
	if t.ReconcileCritical < t.ReconcileTolerance {
		return fmt.Errorf("thresholds.reconcile_critical must be >= reconcile_tolerance")
	}
	if t.RestockCriticalDays > t.RestockCoverageDays {
		return fmt.Errorf("thresholds.restock_critical_days must be <= restock_coverage_days")
	}
	return nil
}
