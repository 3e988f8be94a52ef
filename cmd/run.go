package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rltest/internal/config"
	"rltest/internal/harness"
)

// errTestsFailed makes the process exit non-zero after a run with failures.
var errTestsFailed = errors.New("tests failed")

var (
	runScenarioPath string
	runCases        []string
	runFailFast     bool
	runQuiet        bool
	runReportPath   string
	runTimeout      time.Duration
)

// completeCaseFlag provides shell completion for the case flag by loading available scenarios
func completeCaseFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	path := runScenarioPath
	if path == "" {
		path = harness.GetDefaultScenarioPath()
	}
	scenarios, err := harness.NewScenarioLoader(false).LoadScenarios(path)
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveDefault
	}
	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run YAML test scenarios",
		Long: `Loads the test scenarios found under --scenarios and runs them one
after another. Each scenario may override the environment settings
(topology, module, shards, replicas, append-only log); scenarios with the
same settings share a running environment.

The configuration is layered: built-in defaults, ~/.config/rltest/config.yaml,
.rltest/config.yaml in the working directory, RLTEST_* environment variables
and finally the command line flags.

Example usage:
  rltest run                                  # Run every scenario
  rltest run --env oss-cluster --shards-count 3
  rltest run --case set-get --case flushed    # Run selected scenarios
  rltest run -vv --debug-print                # Print passing assertions, env data and every command
  rltest run --exit-on-failure --fail-fast    # Stop at the first failure`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	cmd.Flags().StringVar(&runScenarioPath, "scenarios", harness.GetDefaultScenarioPath(), "File or directory holding the YAML scenarios")
	cmd.Flags().StringSliceVar(&runCases, "case", nil, "Run only the named scenarios")
	cmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "Stop after the first failed scenario")
	cmd.Flags().BoolVar(&runQuiet, "quiet", false, "Only print failures and a one line summary")
	cmd.Flags().StringVar(&runReportPath, "report-path", "", "Directory to save a JSON report in")
	cmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "Timeout for the whole run")

	_ = cmd.RegisterFlagCompletionFunc("case", completeCaseFlag)
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	d, err := loadDefaults(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	summary, err := runScenarios(ctx, d, harness.Options{
		Out:        cmd.OutOrStdout(),
		In:         cmd.InOrStdin(),
		Quiet:      runQuiet,
		ReportPath: runReportPath,
		FailFast:   runFailFast,
	}, runScenarioPath, runCases)
	if err != nil {
		return err
	}
	if !summary.OK() {
		return errTestsFailed
	}
	return nil
}

// runScenarios loads the scenarios at path, keeps the named ones and runs
// them. An empty scenario directory is not an error; a name that matches no
// scenario is.
func runScenarios(ctx context.Context, d config.Defaults, opts harness.Options, path string, names []string) (harness.Summary, error) {
	fw := harness.NewFramework(d, opts)

	scenarios, err := fw.Loader.LoadScenarios(path)
	if err != nil {
		return harness.Summary{}, fmt.Errorf("failed to load test scenarios: %w", err)
	}

	all := harness.Cases(scenarios)
	if missing := harness.Missing(all, names); len(missing) > 0 {
		return harness.Summary{}, fmt.Errorf("unknown test case(s): %s", strings.Join(missing, ", "))
	}
	cases := harness.Filter(all, names)
	if len(cases) == 0 {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintf(out, "⚠️  No test scenarios found in %s\n", path)
		return harness.Summary{}, nil
	}
	return fw.Runner.Run(ctx, cases), nil
}

// loadDefaults merges the configuration layers with the flags of cmd.
func loadDefaults(cmd *cobra.Command) (config.Defaults, error) {
	d, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Defaults{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(d); err != nil {
		return config.Defaults{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return d, nil
}
