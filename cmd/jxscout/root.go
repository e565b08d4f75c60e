package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jxscout/internal/config"
	"jxscout/internal/slogutil"
	"jxscout/internal/version"
)

var (
	configFlag string
	hostFlag   string
	portFlag   int
	verbosity  int
	quietFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "jxscout",
	Short: "jxscout client - browse JavaScript analysis from a jxscout server",
	Long: `jxscout connects to a running jxscout server over WebSocket, requests the
analysis of JavaScript files it tracks, and renders the descriptors it finds
(secrets, paths, hostnames, query parameters) as a navigable tree.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("jxscout version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (json, yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Server host (overrides server.host)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "Server port (overrides server.port)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logs")
}

// newLoader returns the config loader for the current flags.
func newLoader() *config.Loader {
	wd, _ := os.Getwd()
	return config.NewLoader(configFlag, wd)
}

// loadConfig loads and validates the configuration, applying flag overrides.
func loadConfig(loader *config.Loader) (*config.Config, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *config.Config) {
	if hostFlag != "" {
		cfg.Server.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}
}

// newLogger builds the process logger. Flags decide the level when given, the config
// otherwise. The returned closer releases the log file, if any.
func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func(), error) {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quietFlag {
		level = slogutil.LevelFromVerbosity(verbosity, quietFlag)
	} else if level < slog.LevelWarn {
		// Keep the terminal clean unless asked; the log file still gets everything.
		level = slog.LevelWarn
	}

	handler := slogutil.NewHandler(stderr, level, cfg.Logging.Format)
	if cfg.Logging.File == "" {
		return slog.New(handler), func() {}, nil
	}

	f, err := slogutil.OpenLogFile(cfg.Logging.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileHandler := slogutil.NewHandler(f, slogutil.LevelFromString(cfg.Logging.Level), cfg.Logging.Format)
	return slog.New(slogutil.NewTeeHandler(handler, fileHandler)), func() { _ = f.Close() }, nil
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
