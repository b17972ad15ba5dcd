package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/atlasview/atlas/config"
	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/logger"
	"github.com/atlasview/atlas/module"
)

// ModulesCmd groups module inspection commands
var ModulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect and validate module descriptors",
	Long: `Inspect the modules visible from the configured descriptor sources
and validate descriptor files before publishing them.

Examples:
  atlas modules ls                  # List modules from configured sources
  atlas modules validate mod.json   # Validate a descriptor file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// ModulesLsCmd lists modules from the configured sources
var ModulesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List modules from configured sources",
	Long: `Fetch and merge module descriptors from the configured local,
manifest and backend sources, then print the merged registry view.

Remote capability bundles are not fetched; modules with a remote entry
show as pending.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModulesLs()
	},
}

// ModulesValidateCmd validates a descriptor file
var ModulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a module descriptor file",
	Long: `Validate a JSON module descriptor file the same way the registry
does when ingesting manifest and backend entries.

The file may contain a single descriptor object or an array of them.

Example:
  atlas modules validate modules.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModulesValidate(args[0])
	},
}

func init() {
	ModulesCmd.AddCommand(ModulesLsCmd)
	ModulesCmd.AddCommand(ModulesValidateCmd)
}

// runModulesLs does a one-shot registry load and prints the result
func runModulesLs() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reg := buildRegistry(cfg, logger.Logger)

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Registry.FetchTimeoutSeconds)*time.Second)
	defer cancel()

	descriptors, err := reg.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if len(descriptors) == 0 {
		fmt.Println("No modules found")
		return nil
	}

	fmt.Printf("%-20s %-10s %-20s %-10s %s\n", "MODULE", "SOURCE", "ROUTE", "VERSION", "STATE")
	fmt.Printf("%-20s %-10s %-20s %-10s %s\n", "------", "------", "-----", "-------", "-----")

	for i := range descriptors {
		d := &descriptors[i]
		state := "pending"
		if d.Resolved() {
			state = "resolved"
		}
		ver := d.Version
		if ver == "" {
			ver = "-"
		}
		fmt.Printf("%-20s %-10s %-20s %-10s %s\n",
			truncate(d.ID, 20),
			d.Origin.String(),
			truncate(d.RoutePath, 20),
			truncate(ver, 10),
			state)
	}

	fmt.Printf("\nTotal: %d module(s)\n", len(descriptors))
	return nil
}

// runModulesValidate validates every descriptor in a JSON file
func runModulesValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		// Not an array, try a single object
		raws = []json.RawMessage{json.RawMessage(data)}
	}

	valid := 0
	for i, raw := range raws {
		var entry interface{}
		if err := json.Unmarshal(raw, &entry); err != nil {
			pterm.Error.Printf("[%d] not valid JSON: %v\n", i, err)
			continue
		}

		d := module.Validate(entry)
		if d == nil {
			pterm.Error.Printf("[%d] malformed descriptor (id and routePath are required)\n", i)
			continue
		}

		state := "pending remote load"
		if d.Resolved() {
			state = "capabilities inline"
		}
		pterm.Success.Printf("[%d] %s (route %s, %s)\n", i, d.ID, d.RoutePath, state)
		valid++
	}

	if valid != len(raws) {
		return errors.Wrapf(errors.ErrMalformedDescriptor,
			"%d of %d descriptor(s) invalid", len(raws)-valid, len(raws))
	}
	pterm.Success.Printf("All %d descriptor(s) valid\n", valid)
	return nil
}

// truncate shortens a string for table display
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
