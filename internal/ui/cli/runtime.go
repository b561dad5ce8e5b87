package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"phpmodel/internal/core/app"
	"phpmodel/internal/core/config"
	"phpmodel/internal/data/index"
	"phpmodel/internal/shared/observability"
)

func defaultConfigName() string { return config.DefaultFile }

// runtime is the resolved state shared by every command.
type runtime struct {
	cfg        *config.Config
	configPath string
	paths      config.ResolvedPaths
	logger     *slog.Logger
	stdout     io.Writer
}

func loadRuntime(opts *cliOptions, stdout, stderr io.Writer) (*runtime, error) {
	path := opts.configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultFile
	}
	cfg, err := config.LoadOrDefault(path, explicit)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnvOverrides(cfg)
	applyOptions(opts, cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	base := "."
	configPath := ""
	if _, err := os.Stat(path); err == nil {
		configPath = path
		base = filepath.Dir(path)
	}
	paths, err := config.ResolvePaths(cfg, base)
	if err != nil {
		return nil, err
	}
	if len(opts.args) > 0 {
		paths.Sources = paths.Sources[:0]
		for _, arg := range opts.args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", arg, err)
			}
			paths.Sources = append(paths.Sources, abs)
		}
	}

	logger := newLogger(stderr, cfg.Log.Level, opts.verbose)
	slog.SetDefault(logger)

	return &runtime{
		cfg:        cfg,
		configPath: configPath,
		paths:      paths,
		logger:     logger,
		stdout:     stdout,
	}, nil
}

// applyOptions layers command-line flags over the file and environment
// configuration.
func applyOptions(opts *cliOptions, cfg *config.Config) {
	if opts.format != "" {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(opts.format))
	}
	if opts.workers > 0 {
		cfg.Analysis.Workers = opts.workers
	}
	if opts.strict {
		cfg.Analysis.Strict = true
	}
	if opts.indexDB != "" {
		cfg.Output.IndexDB = opts.indexDB
	}
	if opts.metricsFile != "" {
		cfg.Output.MetricsFile = opts.metricsFile
	}
}

func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// analyze runs one batch analysis and persists its outputs.
func (rt *runtime) analyze(ctx context.Context) (*app.Report, error) {
	shutdown, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:    rt.cfg.Tracing.Endpoint,
		ServiceName: rt.cfg.Tracing.ServiceName,
		Version:     versionString,
		Insecure:    rt.cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			rt.logger.Warn("failed to flush traces", "error", err)
		}
	}()

	analyzer, err := app.New(rt.cfg)
	if err != nil {
		return nil, err
	}
	report, err := analyzer.Run(ctx, rt.paths.Sources)
	if err != nil {
		return nil, err
	}

	if rt.paths.IndexDB != "" {
		if err := rt.saveIndex(ctx, report); err != nil {
			return report, err
		}
	}
	if rt.paths.MetricsFile != "" {
		if err := observability.WriteToTextfile(rt.paths.MetricsFile); err != nil {
			return report, fmt.Errorf("write metrics: %w", err)
		}
		rt.logger.Debug("wrote metrics", "path", rt.paths.MetricsFile)
	}
	return report, nil
}

func (rt *runtime) saveIndex(ctx context.Context, report *app.Report) error {
	store, err := index.Open(rt.paths.IndexDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveRun(ctx, indexRun(report), report.Registry); err != nil {
		return fmt.Errorf("save run %s: %w", report.RunID, err)
	}
	rt.logger.Info("indexed run", "run", report.RunID, "db", store.Path())
	return nil
}

func indexRun(report *app.Report) index.Run {
	run := index.Run{
		ID:       report.RunID,
		Started:  report.Started,
		Duration: report.Duration,
		Problems: len(report.Problems),
	}
	for _, path := range report.Files {
		run.Files = append(run.Files, index.FileRecord{Path: path, Status: index.StatusParsed})
	}
	for _, path := range report.Skipped {
		run.Files = append(run.Files, index.FileRecord{Path: path, Status: index.StatusSkipped})
	}
	for _, f := range report.Failures {
		run.Files = append(run.Files, index.FileRecord{
			Path:    f.Path,
			Status:  index.StatusFailed,
			Code:    string(f.Code()),
			Line:    f.Line(),
			Message: f.Err.Error(),
		})
	}
	return run
}
