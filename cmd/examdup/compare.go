package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/semantic"
)

func init() {
	rootCmd.AddCommand(compareCmd)
}

// CompareResult is the response for the compare command.
type CompareResult struct {
	Similarity float64 `json:"similarity"`
	Percent    float64 `json:"percent"`
	Model      string  `json:"model"`
}

var compareCmd = &cobra.Command{
	Use:   "compare <text1> <text2>",
	Short: "Print the embedding similarity of two texts",
	Long: `Embed two texts with the configured model and print their cosine similarity.

Useful for choosing a threshold.

Example:
  examdup compare "Which job is the sexiest of the 21st century?" \
    "What job did HBR call the sexiest of the 21st century?"`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg := mustLoadConfig(false)
	provider := embedding.NewShared(embeddingConfig(cfg))

	a, err := provider.Embed(ctx, args[0])
	if err != nil {
		exitWithError(err, "embedding first text")
	}
	b, err := provider.Embed(ctx, args[1])
	if err != nil {
		exitWithError(err, "embedding second text")
	}

	sim := semantic.CosineSimilarity(a.Vector, b.Vector)
	if humanOutput {
		fmt.Printf("Cosine similarity: %.4f (%.1f%%)\n", sim, semantic.Percent(sim))
		fmt.Printf("Above threshold %.2f: %v\n", cfg.Threshold, semantic.Exceeds(sim, cfg.Threshold))
		return nil
	}
	return outputJSON(CompareResult{
		Similarity: sim,
		Percent:    semantic.Percent(sim),
		Model:      provider.ModelName(),
	})
}
