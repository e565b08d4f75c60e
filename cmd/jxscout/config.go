package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jxscout/internal/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the default configuration to path (.json, .yaml or .toml)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (json, human)")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loader := newLoader()
	cfg, err := loadConfig(loader)
	if err != nil {
		return err
	}

	if OutputFormat(configFormat) == FormatJSON {
		out, err := FormatResponse(cfg, FormatJSON)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}

	w := cmd.OutOrStdout()
	source := loader.ConfigFile()
	if source == "" {
		source = "(defaults)"
	}
	fmt.Fprintf(w, "Config file:      %s\n", source)
	fmt.Fprintf(w, "Endpoint:         %s\n", cfg.Endpoint())
	fmt.Fprintf(w, "Reconnect delay:  %v\n", cfg.ReconnectDelay())
	if cfg.RequestTimeout() < 0 {
		fmt.Fprintf(w, "Request timeout:  none\n")
	} else {
		fmt.Fprintf(w, "Request timeout:  %v\n", cfg.RequestTimeout())
	}
	fmt.Fprintf(w, "Logging:          %s, level %s\n", cfg.Logging.Format, cfg.Logging.Level)
	if cfg.Logging.File != "" {
		fmt.Fprintf(w, "Log file:         %s\n", cfg.Logging.File)
	}
	fmt.Fprintf(w, "Update check:     %v (every %v)\n", cfg.Update.Enabled, cfg.UpdateInterval())
	fmt.Fprintf(w, "View:             scope %s, sort %s\n", cfg.View.Scope, cfg.View.SortMode)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}
