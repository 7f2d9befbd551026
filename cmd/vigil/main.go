package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dorcha-inc/vigil/internal/core"
)

var (
	version = "dev"
	// build time date
	buildDate = "unknown"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	prettyLog  bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vigil",
		Short: "Invocation telemetry agent",
		Long: `Vigil wraps monitored function invocations, collects custom metrics,
labels and performance entries through pluggable instrumentation, and ships
one report per invocation.`,
		Version:       fmt.Sprintf("%s (built: %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := core.Init(flags.prettyLog, flags.logLevel); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync() //nolint:errcheck // sync errors on stdout/stderr are common and harmless
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to vigil.yaml config file")
	rootCmd.PersistentFlags().BoolVar(&flags.prettyLog, "pretty", false, "Use pretty-printed logs instead of JSON")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newPluginsCmd(flags))
	rootCmd.AddCommand(newConfigCmd(flags))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
