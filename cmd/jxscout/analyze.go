package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jxscout/internal/errors"
	"jxscout/internal/tree"
)

var (
	analyzeFormat string
	analyzeSort   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Show the descriptors of one file",
	Long:  "Request the analysis of a tracked JavaScript file and print its descriptor tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "human", "Output format (json, human)")
	analyzeCmd.Flags().StringVar(&analyzeSort, "sort", "", "Sort mode (alphabetical, occurrence)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setupOneShot(analyzeSort)
	if err != nil {
		return err
	}
	defer cleanup()

	path, analyzeErr := analyzeFile(a, args[0])
	if analyzeErr != nil && !errors.Is(analyzeErr, errors.AssetNotFound) {
		// Already reported through the terminal notifier.
		return &exitError{code: 1, err: analyzeErr}
	}

	output, err := FormatResponse(newAnalyzeResponse(path, a.model), OutputFormat(analyzeFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	if analyzeFormat == string(FormatJSON) {
		fmt.Fprintln(cmd.OutOrStdout())
	}

	if analyzeErr != nil {
		return &exitError{code: 2, err: analyzeErr}
	}
	return nil
}

// setupOneShot loads config and wires an app for a command that analyses one file.
func setupOneShot(sortOverride string) (*app, func(), error) {
	cfg, err := loadConfig(newLoader())
	if err != nil {
		return nil, nil, err
	}
	if sortOverride != "" {
		mode, err := tree.ParseSortMode(sortOverride)
		if err != nil {
			return nil, nil, err
		}
		cfg.View.SortMode = string(mode)
	}
	// One-shot commands always look at a single file.
	cfg.View.Scope = string(tree.ScopeFile)

	logger, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(cfg, logger, os.Stdout, os.Stderr, false)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return a, func() {
		a.close()
		closeLog()
	}, nil
}

// analyzeFile connects and loads file into the model. It returns the absolute path.
func analyzeFile(a *app, file string) (string, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", file, err)
	}

	ctx, cancel := newContext()
	defer cancel()

	if err := a.ctrl.Start(ctx); err != nil {
		return path, err
	}
	return path, a.ctrl.ActiveDocumentChanged(ctx, path)
}
