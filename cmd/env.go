package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rltest/internal/config"
	"rltest/internal/env"
	"rltest/internal/harness"
	"rltest/pkg/logging"
)

var envWait bool

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Start the configured environment and print its details",
		Long: `Starts the environment described by the configuration and flags,
prints its processes, ports and log files, then stops it again.

With --debug-pause the command waits for Enter before stopping, which
leaves time to attach a debugger. With --wait it keeps the environment
up until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runEnv,
	}
	cmd.Flags().BoolVar(&envWait, "wait", false, "Keep the environment up until interrupted")
	return cmd
}

func runEnv(cmd *cobra.Command, args []string) error {
	d, err := loadDefaults(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return startEnv(ctx, d, env.DefaultFactory{Defaults: d}, cmd.OutOrStdout(), cmd.InOrStdin(), envWait)
}

// startEnv brings up the environment for d, prints it and stops it. With
// wait it blocks until ctx is done in between.
func startEnv(ctx context.Context, d config.Defaults, f env.Factory, out io.Writer, in io.Reader, wait bool) error {
	desc, err := env.Resolve(env.Options{}, d)
	if err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	m := env.NewManager(f, harness.SettingsFrom(d, out, in))
	ec, err := m.Obtain(ctx, desc)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := m.Stop(stopCtx); err != nil {
			logging.Error("Env", err, "Failed to stop environment")
		}
	}()

	fmt.Fprintf(out, "Environment %s (%s) is up:\n", ec.ID, desc)
	ec.PrintEnvData(out, "\t")

	if wait {
		fmt.Fprintln(out, "Press Ctrl+C to stop.")
		<-ctx.Done()
	}
	return nil
}
