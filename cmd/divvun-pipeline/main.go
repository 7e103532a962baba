// Command divvun-pipeline runs a .zpipe bundle: a declarative pipeline
// graph plus its bundled resources, read against input on stdin.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/divvun/divvun-pipeline/internal/allocator"
	"github.com/divvun/divvun-pipeline/internal/audit"
	"github.com/divvun/divvun-pipeline/internal/config"
	"github.com/divvun/divvun-pipeline/internal/diag"
	"github.com/divvun/divvun-pipeline/internal/runner"
)

var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	modulePaths []string
	configPath  string
	allocator   string
	maxParallel int
	format      string
	auditPath   string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:     "divvun-pipeline [pipeline.zpipe]",
		Short:   "Asynchronous parallel pipeline runner for text processing",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.modulePaths, "modules", "m", nil, "module search path (repeatable, most-specific first)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a host YAML config file")
	cmd.Flags().StringVar(&opts.allocator, "allocator", "", "allocator backing: anonymous or file-backed")
	cmd.Flags().IntVar(&opts.maxParallel, "max-parallel", 0, "cap concurrent branches of a parallel node (0 = unbounded)")
	cmd.Flags().StringVar(&opts.format, "format", "human", "diagnostic event format: human or ndjson")
	cmd.Flags().StringVar(&opts.auditPath, "audit", "", "optional path to a SQLite audit ledger")

	return cmd
}

func runPipeline(cmd *cobra.Command, bundlePath string, opts rootOptions) error {
	fileCfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	override := config.HostConfig{
		ModuleSearchPaths: opts.modulePaths,
		AllocatorBacking:  opts.allocator,
		MaxParallel:       opts.maxParallel,
	}
	hostCfg := config.Merge(fileCfg, override)

	strategy := allocator.AnonymousMemory
	if hostCfg.AllocatorBacking == "file-backed" {
		strategy = allocator.FileBacked
	}

	var sink diag.Sink
	if opts.format == "ndjson" {
		sink = diag.NewNDJSONSink(cmd.ErrOrStderr())
	} else {
		sink = diag.NewHumanSink(cmd.ErrOrStderr())
	}

	var ledger *audit.Ledger
	if opts.auditPath != "" {
		ledger, err = audit.Open(opts.auditPath)
		if err != nil {
			return err
		}
		defer ledger.Close()
	}

	runnerCfg := runner.Config{
		ModuleSearchPaths: hostCfg.ModuleSearchPaths,
		AllocatorBacking:  strategy,
		MaxParallel:       hostCfg.MaxParallel,
		Sink:              sink,
		Ledger:            ledger,
	}

	return runner.Run(context.Background(), runnerCfg, bundlePath, cmd.InOrStdin(), cmd.OutOrStdout())
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
