// Command officesim runs the autonomous office simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/mini-office/internal/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "officesim",
		Short:        "Autonomous office simulation",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "officesim.json", "Config file (JSON); missing file uses defaults")
	cmd.AddCommand(
		newRunCmd(),
		newEventsCmd(),
		newCatalogCmd(),
	)
	return cmd
}

// loadConfig reads the --config file and installs the slog default handler.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return cfg, nil
}
