package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvedPaths are the configured locations made absolute against the
// directory holding the config file.
type ResolvedPaths struct {
	Root        string
	Sources     []string
	IndexDB     string
	MetricsFile string
}

func ResolvePaths(cfg *Config, base string) (ResolvedPaths, error) {
	if strings.TrimSpace(base) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}
	root, err := filepath.Abs(base)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve %s: %w", base, err)
	}

	resolved := ResolvedPaths{Root: filepath.Clean(root)}
	for _, p := range cfg.Paths {
		resolved.Sources = append(resolved.Sources, ResolveRelative(root, p))
	}
	if cfg.Output.IndexDB != "" {
		resolved.IndexDB = ResolveRelative(root, cfg.Output.IndexDB)
	}
	if cfg.Output.MetricsFile != "" {
		resolved.MetricsFile = ResolveRelative(root, cfg.Output.MetricsFile)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
