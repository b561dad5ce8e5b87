package config

import (
	"time"
)

// DefaultFile is the config file looked up in the working directory when
// no --config flag is given.
const DefaultFile = "phpmodel.toml"

type Config struct {
	Version    int      `toml:"version"`
	Paths      []string `toml:"paths"`
	Extensions []string `toml:"extensions"`
	Exclude    Exclude  `toml:"exclude"`
	Analysis   Analysis `toml:"analysis"`
	Output     Output   `toml:"output"`
	Watch      Watch    `toml:"watch"`
	Tracing    Tracing  `toml:"tracing"`
	Log        Log      `toml:"log"`
}

// Exclude holds glob patterns. Dirs match directory base names, Files match
// file base names.
type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Analysis struct {
	Workers      int   `toml:"workers"`
	Strict       bool  `toml:"strict"`
	SyntaxCheck  *bool `toml:"syntax_check"`
	MaxFileBytes int64 `toml:"max_file_bytes"`
}

// SyntaxCheckEnabled reports whether files go through the tree-sitter
// pre-check before tokenizing.
func (a Analysis) SyntaxCheckEnabled() bool {
	return a.SyntaxCheck == nil || *a.SyntaxCheck
}

type Output struct {
	IndexDB     string `toml:"index_db"`
	MetricsFile string `toml:"metrics_file"`
	Format      string `toml:"format"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	MaxRunsPerSecond float64       `toml:"max_runs_per_second"`
}

type Tracing struct {
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
	Insecure    bool   `toml:"insecure"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}
