// Package cli wires the phpmodel commands: batch indexing, validation,
// element inspection and watch mode.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"phpmodel/internal/core/app"
)

const versionString = "0.3.0"

type cliOptions struct {
	configPath  string
	verbose     bool
	format      string
	workers     int
	indexDB     string
	metricsFile string
	strict      bool
	field       string
	args        []string
}

// Run executes the command line and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// exitCode is 1 for runs that completed with failures and 2 for anything
// that stopped a run from completing.
func exitCode(err error) int {
	var be *app.BatchError
	if errors.As(err, &be) {
		return 1
	}
	return 2
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "phpmodel",
		Short:         "Static reflection model for PHP sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default ./"+defaultConfigName()+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&opts.format, "format", "", "Output format: text, json or yaml")
	flags.IntVar(&opts.workers, "workers", 0, "Parallel parse workers (overrides analysis.workers)")

	root.AddCommand(
		newIndexCommand(opts),
		newValidateCommand(opts),
		newInspectCommand(opts),
		newWatchCommand(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "phpmodel v%s\n", versionString)
			},
		},
	)
	return root
}
