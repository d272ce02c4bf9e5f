package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/matsen/examdup/internal/dedup"
	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/reference"
)

var noProgress bool

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storeAddCmd)
	storeCmd.AddCommand(storeInfoCmd)

	storeAddCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the reference store",
	Long: `Commands for the reference store of question/answer embedding pairs.

The store is a DuckDB (default) or SQLite file configured under store.*.
Its embeddings must come from the same model used by check.`,
}

// StoreInfo is the response for store init and store info.
type StoreInfo struct {
	Driver     string `json:"driver"`
	Path       string `json:"path"`
	Table      string `json:"table"`
	Pairs      int    `json:"pairs"`
	Dimensions int    `json:"dimensions"`
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the reference store table",
	Args:  cobra.NoArgs,
	RunE:  runStoreInit,
}

var storeAddCmd = &cobra.Command{
	Use:   "add <doc.docx>",
	Short: "Add the questions of a document to the reference store",
	Long: `Embed every question in a document and append the pairs to the store.

Nothing is written if any question in the document is malformed.

Example:
  examdup store add past-exams/2023.docx --human`,
	Args: cobra.ExactArgs(1),
	RunE: runStoreAdd,
}

var storeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show reference store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStoreInfo,
}

func runStoreInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig(false)
	store := mustOpenStore(ctx, cfg, false)
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		exitWithError(err, "initializing store")
	}
	return outputStoreInfo(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.Table, store)
}

func runStoreAdd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := mustLoadConfig(false)
	store := mustOpenStore(ctx, cfg, false)
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		exitWithError(err, "initializing store")
	}

	importer := dedup.NewImporter(osFS, embedding.NewShared(embeddingConfig(cfg)), store)
	showProgress := humanOutput && !noProgress
	if showProgress {
		importer.SetProgressReporter(dedup.ProgressFunc(printProgress))
		fmt.Fprintf(os.Stderr, "Embedding questions...\n")
	}

	stats, err := importer.Import(ctx, args[0])
	if showProgress {
		clearProgress()
	}
	if err != nil {
		exitWithError(err, "adding %s", args[0])
	}

	if humanOutput {
		fmt.Printf("Added %d pairs from %s\n", stats.PairsAdded, stats.Document)
		fmt.Printf("  Store total: %d\n", stats.StoreTotal)
		fmt.Printf("  Model: %s\n", stats.Model)
		fmt.Printf("  Time elapsed: %s\n", stats.Duration.Round(1e6))
		return nil
	}
	return outputJSON(stats)
}

func runStoreInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig(false)
	store := mustOpenStore(ctx, cfg, true)
	defer store.Close()

	return outputStoreInfo(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.Table, store)
}

func outputStoreInfo(ctx context.Context, driver, path, table string, store reference.Store) error {
	pairs, err := store.FetchPairs(ctx)
	if err != nil {
		exitWithError(err, "reading store")
	}
	info := StoreInfo{Driver: driver, Path: path, Table: table, Pairs: len(pairs)}
	if len(pairs) > 0 {
		info.Dimensions = len(pairs[0].Question)
	}

	if humanOutput {
		fmt.Printf("Store: %s (%s, table %s)\n", info.Path, info.Driver, info.Table)
		fmt.Printf("  Pairs: %d\n", info.Pairs)
		if info.Dimensions > 0 {
			fmt.Printf("  Dimensions: %d\n", info.Dimensions)
		}
		return nil
	}
	return outputJSON(info)
}
