package main

import (
	"strings"

	"github.com/spf13/cobra"

	"jxscout/internal/errors"
	"jxscout/internal/extract"
	"jxscout/internal/tree"
)

var copyAnalyzer string

var copyCmd = &cobra.Command{
	Use:   "copy <values|paths|hostnames|query-params> <file>",
	Short: "Print deduplicated values from a file's matches",
	Long: `Select every match of a file (or only those under one analyzer category with
--analyzer) and print the deduplicated values, paths, hostnames or query parameter
names, one per line. Notices go to stderr so the output can be piped.`,
	Args: cobra.ExactArgs(2),
	RunE: runCopy,
}

func init() {
	copyCmd.Flags().StringVar(&copyAnalyzer, "analyzer", "", "Only copy matches under this top-level category (e.g. Paths)")
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	kind, err := extract.ParseKind(args[0])
	if err != nil {
		return err
	}

	a, cleanup, err := setupOneShot("")
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := analyzeFile(a, args[1]); err != nil {
		if errors.Is(err, errors.AssetNotFound) {
			a.term.Info(tree.LabelAssetNotFound)
			return &exitError{code: 2, err: err}
		}
		return &exitError{code: 1, err: err}
	}

	ctx, cancel := newContext()
	defer cancel()
	if _, err := a.ctrl.Copy(ctx, kind, selectMatches(a.model, copyAnalyzer)); err != nil {
		return err
	}
	return nil
}

// selectMatches returns the match items of the model in display order, limited to the
// top-level category named analyzer when it is set.
func selectMatches(model *tree.Model, analyzer string) []*tree.Item {
	var (
		items    []*tree.Item
		category string
	)
	for _, row := range model.Flatten() {
		if row.Depth == 0 {
			category = row.Item.Label
		}
		if !row.Item.IsMatch() {
			continue
		}
		if analyzer != "" && !strings.EqualFold(category, analyzer) {
			continue
		}
		items = append(items, row.Item)
	}
	return items
}
