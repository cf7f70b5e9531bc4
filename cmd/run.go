package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoperf/internal/app"

	"github.com/spf13/cobra"
)

type runOptions struct {
	all           bool
	kinds         map[string]*bool
	relationships bool

	resultsDir string
	baseURL    string
	attach     bool
	timeout    time.Duration

	verbose bool
	debug   bool
	quiet   bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{kinds: make(map[string]*bool)}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the performance sweeps",
		Long: `Run starts the Todo Manager server (or attaches to a running one), sweeps the
selected entity kinds and writes <kind>_results.json files plus a manifest to
the results directory.

Without a selection every kind and the relationship benchmark are run.
The relationship benchmark only runs when asked for with --relationships or --all.

Example usage:
  todoperf run                               # Everything
  todoperf run --todos --projects            # Two sweeps only
  todoperf run --relationships --attach      # Against an already running server
  todoperf run --config perf.yaml --results-dir out --debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarks(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Run every sweep and the relationship benchmark")
	for _, kf := range kindFlags {
		opts.kinds[kf.kind] = cmd.Flags().Bool(kf.flag, false, "Run the "+kf.kind+" sweep")
	}
	cmd.Flags().BoolVar(&opts.relationships, "relationships", false, "Run the category relationship benchmark")

	cmd.Flags().StringVar(&opts.resultsDir, "results-dir", "", "Directory for result files (overrides results_dir)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Todo Manager base URL (overrides base_url)")
	cmd.Flags().BoolVar(&opts.attach, "attach", false, "Attach to a running server instead of starting one")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Overall run timeout (0 disables)")

	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose output")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Suppress logs, progress and summaries")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
	cmd.MarkFlagsMutuallyExclusive("quiet", "debug")

	return cmd
}

func (o *runOptions) selection() app.Selection {
	if o.all {
		return app.All()
	}
	var sel app.Selection
	for _, kf := range kindFlags {
		if *o.kinds[kf.kind] {
			sel.Kinds = append(sel.Kinds, kf.kind)
		}
	}
	sel.Relationships = o.relationships
	if sel.Empty() {
		return app.All()
	}
	return sel
}

func runBenchmarks(cmd *cobra.Command, opts *runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	application, err := app.NewApplication(&app.Config{
		Debug:      opts.debug,
		Verbose:    opts.verbose,
		Quiet:      opts.quiet,
		ConfigPath: configPath(cmd),
		ResultsDir: opts.resultsDir,
		BaseURL:    opts.baseURL,
		Attach:     opts.attach,
		Selection:  opts.selection(),
		Version:    rootCmd.Version,
		Out:        cmd.OutOrStdout(),
		Log:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	return application.Run(ctx)
}
