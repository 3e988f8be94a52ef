package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"rltest/internal/color"
	"rltest/internal/config"
	"rltest/pkg/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rltest",
	Short: "Run tests against disposable Redis deployments",
	Long: `rltest starts Redis deployments (a single server, an OSS cluster, an
enterprise cluster, or an already running deployment), runs test cases
against them and reports every failed assertion.

Consecutive tests that ask for the same deployment share it; a test that
needs a different one gets a fresh deployment.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed tests, unreachable servers)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetCount("verbose")
		logging.InitForCLI(logging.LevelForVerbosity(verbose), os.Stderr)
		color.InitFromEnv()
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "rltest version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newEnvCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
