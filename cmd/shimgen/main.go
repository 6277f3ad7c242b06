// Command shimgen writes adapter sources and run-time shells for the
// contract/target pairs listed in a manifest.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ygrebnov/shim/internal/config"
	"github.com/ygrebnov/shim/internal/logging"
)

var (
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shimgen",
	Short: "Generate structural adapters for Go interfaces",
	Long: `shimgen resolves how each method of a contract interface binds to a
target type and writes the adapters as Go source, so no reflection is
needed at run time. It also writes the shell types the run-time registry
fills in.

Settings come from --config, then SHIMGEN_ environment variables, then flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(shellCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
