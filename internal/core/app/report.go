package app

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/reflection"
)

// Problem categories.
const (
	CategoryConflict    = "conflict"
	CategoryInvalid     = "invalid"
	CategoryComposition = "composition"
)

// Problem is a registry-level defect found after every file was
// registered.
type Problem struct {
	Category string   `json:"category" yaml:"category"`
	Kind     string   `json:"kind" yaml:"kind"`
	Symbol   string   `json:"symbol" yaml:"symbol"`
	File     string   `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
	Messages []string `json:"messages" yaml:"messages"`
}

// Err reports the problem as a VALIDATION_ERROR.
func (p Problem) Err() error {
	err := errors.NewRuntime(errors.CodeValidationError, p.Symbol, p.Kind+" "+p.Category+": "+strings.Join(p.Messages, "; "))
	if p.File == "" {
		return err
	}
	return errors.AddContext(err, errors.CtxPath, p.File)
}

// FileError is one file that could not be read, checked, parsed or
// registered. Nothing from the file is in the registry.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e FileError) Unwrap() error { return e.Err }

// Line is the source line of a ParseError, or 0.
func (e FileError) Line() int {
	var pe *errors.ParseError
	if stderrors.As(e.Err, &pe) {
		return pe.Line
	}
	return 0
}

// Code is the domain error code, or INTERNAL_ERROR for uncoded failures.
func (e FileError) Code() errors.ErrorCode {
	if code, ok := errors.CodeOf(e.Err); ok {
		return code
	}
	return errors.CodeInternal
}

// BatchError is returned for a run that failed validation.
type BatchError struct {
	RunID    string
	Failures []FileError
	Problems []Problem
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, 2)
	if n := len(e.Failures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d file(s) failed", n))
	}
	if n := len(e.Problems); n > 0 {
		parts = append(parts, fmt.Sprintf("%d problem(s)", n))
	}
	return fmt.Sprintf("run %s: %s", e.RunID, strings.Join(parts, ", "))
}

func (e *BatchError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures)+len(e.Problems))
	for _, f := range e.Failures {
		out = append(out, f)
	}
	for _, p := range e.Problems {
		out = append(out, p.Err())
	}
	return out
}

type Report struct {
	RunID      string
	Started    time.Time
	Duration   time.Duration
	Roots      []string
	Files      []string
	Skipped    []string
	Failures   []FileError
	Problems   []Problem
	Unresolved []string
	Registry   *reflection.Registry
}

// Err returns a *BatchError when any file failed, or in strict mode when
// the registry has problems. It returns nil otherwise.
func (r *Report) Err(strict bool) error {
	if len(r.Failures) == 0 && (!strict || len(r.Problems) == 0) {
		return nil
	}
	be := &BatchError{RunID: r.RunID, Failures: r.Failures}
	if strict {
		be.Problems = r.Problems
	}
	return be
}

type FailureSummary struct {
	Path    string `json:"path" yaml:"path"`
	Code    string `json:"code" yaml:"code"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Summary is the serializable view of a report.
type Summary struct {
	RunID      string           `json:"run_id" yaml:"run_id"`
	Started    time.Time        `json:"started" yaml:"started"`
	DurationMS int64            `json:"duration_ms" yaml:"duration_ms"`
	Files      int              `json:"files" yaml:"files"`
	Skipped    int              `json:"skipped" yaml:"skipped"`
	Classes    int              `json:"classes" yaml:"classes"`
	Functions  int              `json:"functions" yaml:"functions"`
	Constants  int              `json:"constants" yaml:"constants"`
	Namespaces []string         `json:"namespaces" yaml:"namespaces"`
	Failures   []FailureSummary `json:"failures,omitempty" yaml:"failures,omitempty"`
	Problems   []Problem        `json:"problems,omitempty" yaml:"problems,omitempty"`
	Unresolved []string         `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

func (r *Report) Summary() Summary {
	s := Summary{
		RunID:      r.RunID,
		Started:    r.Started,
		DurationMS: r.Duration.Milliseconds(),
		Files:      len(r.Files),
		Skipped:    len(r.Skipped),
		Problems:   r.Problems,
		Unresolved: append([]string(nil), r.Unresolved...),
	}
	if r.Registry != nil {
		s.Classes = len(r.Registry.Classes())
		s.Functions = len(r.Registry.Functions())
		s.Constants = len(r.Registry.Constants())
		for _, ns := range r.Registry.Namespaces() {
			name := ns.Name()
			if name == "" {
				name = "(global)"
			}
			s.Namespaces = append(s.Namespaces, name)
		}
	}
	for _, f := range r.Failures {
		s.Failures = append(s.Failures, FailureSummary{
			Path:    f.Path,
			Code:    string(f.Code()),
			Line:    f.Line(),
			Message: f.Err.Error(),
		})
	}
	sort.Strings(s.Unresolved)
	return s
}
