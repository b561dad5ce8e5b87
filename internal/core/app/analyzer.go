package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/reflection"
	"phpmodel/internal/shared/observability"
)

type parseResult struct {
	file    *reflection.File
	err     error
	skipped bool
}

// Run discovers the sources under roots, parses them in parallel and
// registers the results one file at a time in discovery order. Per-file
// failures are collected in the report; only discovery problems and
// cancellation abort the run.
func (a *Analyzer) Run(ctx context.Context, roots []string) (*Report, error) {
	ctx, span := observability.Tracer().Start(ctx, "analyze")
	defer span.End()

	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
		Roots:   append([]string(nil), roots...),
	}
	span.SetAttributes(attribute.String("run.id", report.RunID))

	files, err := a.Discover(roots)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return nil, err
	}
	a.logger.Debug("discovered sources", "count", len(files), "run", report.RunID)

	results := make([]parseResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Config.Analysis.Workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.parseFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	registry := reflection.NewRegistry()
	for i, res := range results {
		path := files[i]
		switch {
		case res.skipped:
			report.Skipped = append(report.Skipped, path)
			observability.FilesProcessedTotal.WithLabelValues(observability.OutcomeSkipped).Inc()
			continue
		case res.err == nil:
			res.err = registry.AddFile(res.file)
		}
		if res.err != nil {
			res.err = errors.AddContext(res.err, errors.CtxPath, path)
			a.logger.Warn("failed to process file", "path", path, "error", res.err)
			report.Failures = append(report.Failures, FileError{Path: path, Err: res.err})
			observability.FilesProcessedTotal.WithLabelValues(observability.OutcomeFailed).Inc()
			continue
		}
		report.Files = append(report.Files, path)
		observability.FilesProcessedTotal.WithLabelValues(observability.OutcomeParsed).Inc()
	}

	report.Registry = registry
	report.Problems = inspect(registry)
	for _, p := range registry.Unresolved() {
		report.Unresolved = append(report.Unresolved, p.Kind().String()+" "+p.Name())
	}
	report.Duration = time.Since(report.Started)

	recordRegistry(registry)
	observability.RunDuration.WithLabelValues("batch").Observe(report.Duration.Seconds())
	observability.RecordHeap()

	span.SetAttributes(
		attribute.Int("files.parsed", len(report.Files)),
		attribute.Int("files.failed", len(report.Failures)),
		attribute.Int("problems", len(report.Problems)),
	)
	if len(report.Failures) > 0 {
		span.SetStatus(codes.Error, "some files failed")
	}
	return report, nil
}

func (a *Analyzer) parseFile(ctx context.Context, path string) parseResult {
	_, span := observability.Tracer().Start(ctx, "parse_file")
	span.SetAttributes(attribute.String("path", path))
	defer span.End()

	info, err := os.Stat(path)
	if err != nil {
		return parseResult{err: errors.Wrap(err, errors.CodeInternal, "cannot stat source")}
	}
	if limit := a.Config.Analysis.MaxFileBytes; limit > 0 && info.Size() > limit {
		a.logger.Debug("skipping oversized file", "path", path, "bytes", info.Size())
		return parseResult{skipped: true}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return parseResult{err: errors.Wrap(err, errors.CodeInternal, "cannot read source")}
	}

	if a.checker != nil {
		start := time.Now()
		err := a.checker.Check(path, content)
		observability.ParsingDuration.WithLabelValues("syntax").Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			return parseResult{err: err}
		}
	}

	start := time.Now()
	file, err := reflection.ParseBytes(path, content)
	observability.ParsingDuration.WithLabelValues("elements").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return parseResult{err: err}
	}
	return parseResult{file: file}
}

// inspect walks every registered symbol and collects what strict
// validation rejects: names defined more than once, class-likes whose
// ancestry is broken and classes whose trait composition fails.
func inspect(reg *reflection.Registry) []Problem {
	var problems []Problem
	for _, p := range reg.Conflicts() {
		problems = append(problems, conflictProblem(p))
	}
	for _, c := range reg.Classes() {
		class, ok := c.(*reflection.Class)
		if !ok {
			continue
		}
		if !class.IsValid() {
			problems = append(problems, Problem{
				Category: CategoryInvalid,
				Kind:     reflection.SymbolClass.String(),
				Symbol:   class.Name(),
				File:     class.FileName(),
				Line:     class.StartLine(),
				Messages: []string{"ancestry contains a conflicting name, a wrong kind or a cycle"},
			})
			continue
		}
		if _, err := class.Methods(); err != nil {
			problems = append(problems, Problem{
				Category: CategoryComposition,
				Kind:     reflection.SymbolClass.String(),
				Symbol:   class.Name(),
				File:     class.FileName(),
				Line:     class.StartLine(),
				Messages: []string{err.Error()},
			})
		}
	}
	return problems
}

func conflictProblem(p *reflection.Placeholder) Problem {
	reasons := p.Reasons()
	messages := make([]string, 0, len(reasons))
	for _, r := range reasons {
		messages = append(messages, r.Error())
	}
	return Problem{
		Category: CategoryConflict,
		Kind:     p.Kind().String(),
		Symbol:   p.Name(),
		File:     p.FirstFile(),
		Messages: messages,
	}
}

func recordRegistry(reg *reflection.Registry) {
	live := map[reflection.SymbolKind]int{}
	conflict := map[reflection.SymbolKind]int{}
	for _, c := range reg.Classes() {
		if _, ok := c.(*reflection.Placeholder); ok {
			conflict[reflection.SymbolClass]++
		} else {
			live[reflection.SymbolClass]++
		}
	}
	for _, f := range reg.Functions() {
		if _, ok := f.(*reflection.Placeholder); ok {
			conflict[reflection.SymbolFunction]++
		} else {
			live[reflection.SymbolFunction]++
		}
	}
	for _, c := range reg.Constants() {
		if _, ok := c.(*reflection.Placeholder); ok {
			conflict[reflection.SymbolConstant]++
		} else {
			live[reflection.SymbolConstant]++
		}
	}
	unresolved := map[reflection.SymbolKind]int{}
	for _, p := range reg.Unresolved() {
		unresolved[p.Kind()]++
	}
	for _, kind := range []reflection.SymbolKind{reflection.SymbolClass, reflection.SymbolFunction, reflection.SymbolConstant} {
		observability.Symbols.WithLabelValues(kind.String(), "live").Set(float64(live[kind]))
		observability.Symbols.WithLabelValues(kind.String(), "conflict").Set(float64(conflict[kind]))
		observability.Symbols.WithLabelValues(kind.String(), "unresolved").Set(float64(unresolved[kind]))
	}
}
