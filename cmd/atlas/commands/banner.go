package commands

import (
	"fmt"

	"github.com/atlasview/atlas/config"
	"github.com/atlasview/atlas/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(cfg *config.Config, port int) {
	// ANSI escape codes
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	blue := "\033[34m"
	bold := "\033[1m"
	reset := "\033[0m"

	versionInfo := version.Get()

	fmt.Printf("\n%s%s", cyan, bold)
	fmt.Printf("   ╔══════════════════════════════════════════╗\n")
	fmt.Printf("   ║                                          ║\n")
	fmt.Printf("   ║    █████  ████████ ██       █████  ███   ║\n")
	fmt.Printf("   ║   ██   ██    ██    ██      ██   ██ ██    ║\n")
	fmt.Printf("   ║   ███████    ██    ██      ███████ ███   ║\n")
	fmt.Printf("   ║   ██   ██    ██    ██      ██   ██   ██  ║\n")
	fmt.Printf("   ║   ██   ██    ██    ███████ ██   ██ ███   ║\n")
	fmt.Printf("   ║                                          ║\n")
	fmt.Printf("   ╚══════════════════════════════════════════╝%s\n\n", reset)

	fmt.Printf("%s%s┌─ Atlas Info ─────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:  %s (commit %s)\n", green, reset, versionInfo.Version, versionInfo.Short())
	fmt.Printf("%s│%s Built:    %s\n", green, reset, versionInfo.BuildTime)
	fmt.Printf("%s│%s Port:     %d\n", green, reset, port)
	if cfg.Registry.ManifestPath != "" {
		fmt.Printf("%s│%s Manifest: %s\n", green, reset, cfg.Registry.ManifestPath)
	}
	if cfg.Registry.BackendURL != "" {
		fmt.Printf("%s│%s Backend:  %s\n", green, reset, cfg.Registry.BackendURL)
	}
	fmt.Printf("%s└──────────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s%s✨ Edit the manifest to see modules reload live%s\n", yellow, bold, reset)
	fmt.Printf("%s💡 Press Ctrl+C to stop%s\n\n", blue, reset)
}
