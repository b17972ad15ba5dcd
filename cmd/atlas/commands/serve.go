package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasview/atlas/compose"
	"github.com/atlasview/atlas/config"
	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/logger"
	"github.com/atlasview/atlas/registry"
	"github.com/atlasview/atlas/remote"
	"github.com/atlasview/atlas/server"
	"github.com/atlasview/atlas/version"
)

// ServeCmd starts the Atlas host server
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the Atlas host server",
	Long: `Launch the Atlas host. The host merges module descriptors from the
configured sources, resolves remote capability bundles, and serves the
composed slot layout over HTTP and WebSocket.`,
	RunE: runServe,
}

var (
	servePort     int
	serveManifest string
	serveBackend  string
	serveNoWatch  bool
)

func init() {
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
	ServeCmd.Flags().StringVar(&serveManifest, "manifest", "", "Module manifest path or URL (overrides config)")
	ServeCmd.Flags().StringVar(&serveBackend, "backend", "", "Backend module list URL (overrides config)")
	ServeCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Disable manifest file watching")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	if serveManifest != "" {
		cfg.Registry.ManifestPath = serveManifest
	}
	if serveBackend != "" {
		cfg.Registry.BackendURL = serveBackend
	}
	port := cfg.GetServerPort()
	if servePort > 0 {
		port = servePort
	}

	printStartupBanner(cfg, port)

	log := logger.Logger

	reg := buildRegistry(cfg, log)
	loader := remote.NewLoader(cfg.Loader, log)
	viewer := compose.NewMemoryViewerState()
	engine := compose.NewEngine(viewer, log)

	srv, err := server.NewHostServer(cfg, reg, loader, engine, viewer, log)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	// Initial load. Source failures degrade to fewer modules, never abort
	// startup; the registry logs what was unavailable.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(),
		time.Duration(cfg.Registry.FetchTimeoutSeconds)*time.Second)
	if _, err := reg.Load(loadCtx); err != nil {
		cancelLoad()
		return errors.Wrap(err, "initial registry load failed")
	}
	cancelLoad()

	snap := reg.Snapshot()
	pterm.Info.Printf("Registry loaded: %d module(s)\n", len(snap.Descriptors))

	// Watch the manifest for edits so new modules appear without restart
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if cfg.Registry.WatchManifest && !serveNoWatch && cfg.Registry.ManifestPath != "" {
		debounce := time.Duration(cfg.Registry.ReloadDebounceMs) * time.Millisecond
		watcher, err := registry.NewManifestWatcher(reg, cfg.Registry.ManifestPath, debounce, log)
		if err != nil {
			log.Warnw("Manifest watching unavailable", "error", err)
		} else {
			watcher.Start(watchCtx)
			defer watcher.Stop()
		}
	}

	// Watch the config file so loader and log settings reload live
	if cw := setupConfigWatcher(loader, log); cw != nil {
		defer cw.Stop()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(port)
	}()

	// Wait for shutdown signal (Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return errors.Wrap(err, "server failed")
	case <-sigChan:
		pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("\nForce shutdown - exiting immediately")
			os.Exit(1)
			return nil // unreachable
		}
	}
}

// setupConfigWatcher starts watching the active config file and hooks
// reloads into the running components. Returns nil when no config file
// exists or watching is unavailable; both leave the host on its startup
// settings.
func setupConfigWatcher(loader *remote.Loader, log *zap.SugaredLogger) *config.ConfigWatcher {
	configPath := config.ActiveConfigPath()
	if configPath == "" {
		log.Infow("No config file found, config watching disabled")
		return nil
	}

	cw, err := config.NewConfigWatcher(configPath)
	if err != nil {
		log.Warnw("Config watching unavailable, restart required for config changes",
			"path", configPath,
			"error", err)
		return nil
	}

	config.SetGlobalWatcher(cw)

	cw.OnReload(func(newCfg *config.Config) error {
		loader.ApplyConfig(newCfg.Loader)
		if newCfg.Log.JSON != logger.JSONOutput {
			return logger.Initialize(newCfg.Log.JSON, Verbosity)
		}
		return nil
	})

	cw.Start()
	log.Infow("Config watcher started", "path", configPath)
	return cw
}

// buildRegistry assembles descriptor sources from configuration.
// The local source always exists (it carries the core module); manifest
// and backend sources are optional.
func buildRegistry(cfg *config.Config, log *zap.SugaredLogger) *registry.Registry {
	timeout := time.Duration(cfg.Registry.FetchTimeoutSeconds) * time.Second

	local := registry.NewLocalSource(nil)

	var manifest registry.Source
	if cfg.Registry.ManifestPath != "" {
		manifest = registry.NewManifestSource(cfg.Registry.ManifestPath, timeout, log)
	}

	var backend registry.Source
	if cfg.Registry.BackendURL != "" {
		token := config.GetViper().GetString("registry.backend_token")
		backend = registry.NewBackendSource(cfg.Registry.BackendURL, token, timeout, log)
	}

	return registry.New(version.Host(), local, manifest, backend, log)
}
