package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlasview/atlas/cmd/atlas/commands"
	"github.com/atlasview/atlas/config"
	"github.com/atlasview/atlas/logger"
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Atlas - composable operations viewer host",
	Long: `Atlas - host runtime for composable viewer modules.

Atlas merges module descriptors from local, manifest and backend
sources, resolves remote capability bundles, and composes their
widgets into the viewer's extension slots.

Available commands:
  serve    - Start the Atlas host server
  modules  - Inspect and validate module descriptors
  config   - Manage Atlas configuration
  version  - Show version information

Examples:
  atlas serve                      # Start the host server
  atlas modules ls                 # List modules from configured sources
  atlas modules validate mod.json  # Validate a descriptor file
  atlas config show                # Show current configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize global logger before any command runs.
		// Skip for commands that produce plain output.
		if cmd.Name() != "show" && cmd.Name() != "version" {
			cfg, err := config.Load()
			jsonOutput := err == nil && cfg.Log.JSON
			if err := logger.Initialize(jsonOutput, commands.Verbosity); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&commands.Verbosity, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ModulesCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
