package app

import (
	"fmt"
	"log/slog"

	"phpmodel/internal/core/config"
	"phpmodel/internal/engine/syntax"
)

// SyntaxChecker rejects malformed sources before they reach the element
// parsers.
type SyntaxChecker interface {
	Check(path string, src []byte) error
}

type Dependencies struct {
	// SyntaxChecker is optional. New installs the tree-sitter checker when
	// analysis.syntax_check is enabled.
	SyntaxChecker SyntaxChecker
	Logger        *slog.Logger
}

// Analyzer runs batch analyses over a configured set of source roots. Each
// run builds a fresh registry.
type Analyzer struct {
	Config *config.Config

	checker SyntaxChecker
	logger  *slog.Logger
}

func New(cfg *config.Config) (*Analyzer, error) {
	deps := Dependencies{}
	if cfg != nil && cfg.Analysis.SyntaxCheckEnabled() {
		deps.SyntaxChecker = syntax.NewChecker()
	}
	return NewWithDependencies(cfg, deps)
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*Analyzer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("analyzer requires a configuration")
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errs[0])
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		Config:  cfg,
		checker: deps.SyntaxChecker,
		logger:  logger,
	}, nil
}
