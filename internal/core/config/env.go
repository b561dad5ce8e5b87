package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PHPMODEL_[SECTION]_[KEY] (e.g., PHPMODEL_ANALYSIS_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvInt(&cfg.Analysis.Workers, "PHPMODEL_ANALYSIS_WORKERS")
	setEnvBool(&cfg.Analysis.Strict, "PHPMODEL_ANALYSIS_STRICT")

	setEnvString(&cfg.Output.IndexDB, "PHPMODEL_OUTPUT_INDEX_DB")
	setEnvString(&cfg.Output.MetricsFile, "PHPMODEL_OUTPUT_METRICS_FILE")
	setEnvString(&cfg.Output.Format, "PHPMODEL_OUTPUT_FORMAT")

	setEnvDuration(&cfg.Watch.Debounce, "PHPMODEL_WATCH_DEBOUNCE")

	setEnvString(&cfg.Tracing.Endpoint, "PHPMODEL_TRACING_ENDPOINT")
	setEnvString(&cfg.Log.Level, "PHPMODEL_LOG_LEVEL")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
