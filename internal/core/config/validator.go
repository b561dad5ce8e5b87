package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

var validators = []func(*Config) error{
	validateVersion,
	validatePaths,
	validateExclude,
	validateAnalysis,
	validateOutput,
	validateWatch,
	validateLog,
}

// Validate runs every check and returns all problems found.
func Validate(cfg *Config) []error {
	var errs []error
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validatePaths(cfg *Config) error {
	if len(cfg.Paths) == 0 {
		return fmt.Errorf("paths must not be empty")
	}
	for i, p := range cfg.Paths {
		if p == "" {
			return fmt.Errorf("paths[%d] must not be empty", i)
		}
	}
	if len(cfg.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	for i, ext := range cfg.Extensions {
		if ext == "" || ext == "." {
			return fmt.Errorf("extensions[%d] must not be empty", i)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be >= 1, got %d", cfg.Analysis.Workers)
	}
	if cfg.Analysis.MaxFileBytes < 0 {
		return fmt.Errorf("analysis.max_file_bytes must be >= 0, got %d", cfg.Analysis.MaxFileBytes)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("output.format must be one of: text, json, yaml, got %q", cfg.Output.Format)
	}
	db, metrics := cfg.Output.IndexDB, cfg.Output.MetricsFile
	if db != "" && metrics != "" && filepath.Clean(db) == filepath.Clean(metrics) {
		return fmt.Errorf("output conflict: output.index_db and output.metrics_file share the same path %q", db)
	}
	if metrics != "" && !strings.HasSuffix(metrics, ".prom") {
		return fmt.Errorf("output.metrics_file must end in .prom, got %q", metrics)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.MaxRunsPerSecond <= 0 {
		return fmt.Errorf("watch.max_runs_per_second must be > 0, got %g", cfg.Watch.MaxRunsPerSecond)
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log.level must be one of: debug, info, warn, error, got %q", cfg.Log.Level)
}
