package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"phpmodel/internal/core/config"
	"phpmodel/internal/core/watcher"
)

func newIndexCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Analyze sources and store the symbol table in SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.args = args
			rt, err := loadRuntime(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if rt.paths.IndexDB == "" {
				return fmt.Errorf("index requires --db or output.index_db")
			}
			report, err := rt.analyze(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderReport(rt.stdout, rt.cfg.Output.Format, report); err != nil {
				return err
			}
			return report.Err(false)
		},
	}
	cmd.Flags().StringVar(&opts.indexDB, "db", "", "SQLite index path (overrides output.index_db)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this .prom path")
	return cmd
}

func newValidateCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Analyze sources and report parse failures and registry problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.args = args
			rt, err := loadRuntime(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := rt.analyze(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderReport(rt.stdout, rt.cfg.Output.Format, report); err != nil {
				return err
			}
			return report.Err(rt.cfg.Analysis.Strict)
		},
	}
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on conflicts, invalid ancestry and composition errors")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this .prom path")
	return cmd
}

func newInspectCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <symbol> [paths...]",
		Short: "Print the reflection fields of a class, member, function or constant",
		Long: `Symbols use PHP notation:

  App\Model\User            class, interface or trait
  App\Model\User::save()    method
  App\Model\User::$name     property
  App\Model\User::LIMIT     class constant
  App\helper()              function
  App\VERSION               constant`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.args = args[1:]
			rt, err := loadRuntime(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := rt.analyze(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range report.Failures {
				rt.logger.Warn("file not in model", "path", f.Path, "error", f.Err)
			}
			element, err := resolveElement(report.Registry, args[0])
			if err != nil {
				return err
			}
			fields, err := inspectFields(element, opts.field)
			if err != nil {
				return err
			}
			return renderFields(rt.stdout, rt.cfg.Output.Format, args[0], fields)
		},
	}
	cmd.Flags().StringVar(&opts.field, "field", "", "Print a single field, e.g. short_name or methods")
	return cmd
}

func newWatchCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-run validation whenever a source file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.args = args
			rt, err := loadRuntime(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return rt.watch(cmd.Context(), opts)
		},
	}
}

// watch runs one analysis up front and another for every debounced batch
// of changes. Edits to the config file apply to the next run.
func (rt *runtime) watch(ctx context.Context, opts *cliOptions) error {
	var mu sync.Mutex
	runOnce := func(reason string, changed int) {
		mu.Lock()
		defer mu.Unlock()
		rt.logger.Info("analyzing", "reason", reason, "changed", changed)
		report, err := rt.analyze(ctx)
		if err != nil {
			rt.logger.Error("analysis failed", "error", err)
			return
		}
		if err := renderReport(rt.stdout, rt.cfg.Output.Format, report); err != nil {
			rt.logger.Error("failed to render report", "error", err)
		}
	}

	runOnce("startup", 0)

	w, err := watcher.NewWatcher(watcher.Options{
		Debounce:         rt.cfg.Watch.Debounce,
		ExcludeDirs:      rt.cfg.Exclude.Dirs,
		ExcludeFiles:     rt.cfg.Exclude.Files,
		Extensions:       rt.cfg.Extensions,
		MaxRunsPerSecond: rt.cfg.Watch.MaxRunsPerSecond,
		Logger:           rt.logger,
	}, func(paths []string) {
		runOnce("change", len(paths))
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Watch(rt.paths.Sources); err != nil {
		return fmt.Errorf("watch sources: %w", err)
	}

	if rt.configPath != "" {
		cw := config.NewWatcher(rt.configPath, func(cfg *config.Config) {
			mu.Lock()
			defer mu.Unlock()
			applyOptions(opts, cfg)
			if errs := config.Validate(cfg); len(errs) > 0 {
				rt.logger.Warn("ignoring reloaded configuration", "error", errs[0])
				return
			}
			paths, err := config.ResolvePaths(cfg, rt.paths.Root)
			if err != nil {
				rt.logger.Warn("ignoring reloaded configuration", "error", err)
				return
			}
			rt.cfg = cfg
			rt.paths.IndexDB = paths.IndexDB
			rt.paths.MetricsFile = paths.MetricsFile
		})
		if err := cw.Start(ctx); err != nil {
			rt.logger.Warn("config watcher unavailable", "error", err)
		} else {
			defer cw.Stop()
		}
	}

	rt.logger.Info("watching for changes", "roots", len(rt.paths.Sources))
	<-ctx.Done()
	return nil
}
