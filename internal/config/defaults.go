package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills in any unspecified configuration fields with the
// documented defaults.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyCatalogDefaults(&cfg.Catalog)
	applyPoolDefaults(&cfg.Pool)
	applyUploadDefaults(&cfg.Upload)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 10
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
}

func applyCatalogDefaults(cfg *CatalogConfig) {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
}

func applyPoolDefaults(cfg *PoolConfig) {
	if cfg.NProcesses == 0 {
		cfg.NProcesses = 4
	}
	if cfg.DBSWaitTime == 0 {
		cfg.DBSWaitTime = 2 * time.Second
	}
	if cfg.DBSNTries == 0 {
		cfg.DBSNTries = 300
	}
	if cfg.CycleInterval == 0 {
		cfg.CycleInterval = 5 * time.Minute
	}
}

func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.PhysicsGroup == "" {
		cfg.PhysicsGroup = "NoGroup"
	}
	if cfg.DatasetType == "" {
		cfg.DatasetType = "PRODUCTION"
	}
	if cfg.PrimaryDatasetType == "" {
		cfg.PrimaryDatasetType = "mc"
	}
	if cfg.BlockMaxFiles == 0 {
		cfg.BlockMaxFiles = 500
	}
	if cfg.BlockMaxAge == 0 {
		cfg.BlockMaxAge = 24 * time.Hour
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":9090"
	}
}
