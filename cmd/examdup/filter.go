package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/examdup/internal/export"
)

var (
	filterIDs  []string
	filterDrop bool
)

func init() {
	rootCmd.AddCommand(filterCmd)
	filterCmd.Flags().StringSliceVar(&filterIDs, "ids", nil, "Question ids, comma separated (required)")
	filterCmd.Flags().BoolVar(&filterDrop, "drop", false, "Remove the listed questions instead of keeping them")
	filterCmd.MarkFlagRequired("ids")
}

var filterCmd = &cobra.Command{
	Use:   "filter <doc.docx>",
	Short: "Write a copy of a document keeping only selected questions",
	Long: `Write a copy of a document that keeps only the listed question tables,
or with --drop, removes them. Tables without a QN= id and all text outside
tables are always kept. The source document is never modified.

The copy is written to output.filtered_path from the config.

Example:
  examdup filter bank.docx --ids 3,7,12
  examdup filter bank.docx --ids 4 --drop`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(false)

	ids := parseIDs(filterIDs)
	mode := export.ModeKeep
	if filterDrop {
		mode = export.ModeDrop
	}

	stats, err := export.FilterDocument(osFS, args[0], cfg.Output.FilteredPath, ids, mode)
	if err != nil {
		exitWithError(err, "filtering %s", args[0])
	}

	if humanOutput {
		fmt.Printf("Wrote %s (%d tables kept, %d removed)\n", stats.Output, stats.Kept, stats.Removed)
		if len(stats.NotFound) > 0 {
			fmt.Printf("Warning: ids not found in document: %s\n", strings.Join(stats.NotFound, ", "))
		}
		return nil
	}
	return outputJSON(stats)
}

// parseIDs trims ids, strips an optional QN= prefix, and drops blanks and repeats.
func parseIDs(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var ids []string
	for _, s := range raw {
		for _, id := range strings.Split(s, ",") {
			id = strings.TrimSpace(id)
			id = strings.TrimSpace(strings.TrimPrefix(id, "QN="))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
