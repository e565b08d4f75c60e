package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jxscout/internal/update"
	"jxscout/internal/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", true, "Check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), version.Full())

	if !versionCheck || update.Disabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checker := update.NewChecker(update.CheckerOptions{})
	info, err := checker.Check(ctx)
	if err != nil || info == nil {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n%s\n", info.Message(), info.ReleasesURL)
	return nil
}
