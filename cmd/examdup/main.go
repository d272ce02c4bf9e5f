// Package main provides the examdup CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/matsen/examdup/internal/config"
	"github.com/matsen/examdup/internal/embedding"
	"github.com/matsen/examdup/internal/reference"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	configPath  string
)

// osFS is the filesystem used for documents and reports.
var osFS = afero.NewOsFs()

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "examdup",
	Short: "Find duplicate multiple-choice exam questions",
	Long: `examdup finds duplicate questions in .docx exam banks.

Each table in the document is one question: a QN=<id> header row, option
rows ("a.", "b.", ...) and an ANSWER: row. Questions are embedded and
compared with each other and with a reference store of previously
collected question/answer embeddings.

All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env file if present (ignore error if not found)
		_ = godotenv.Load()
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./examdup.yml, then $XDG_CONFIG_HOME/examdup/config.yml)")
	rootCmd.Version = Version
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// mustLoadConfig loads configuration, exits on error. Only commands that
// compare similarities need the threshold.
func mustLoadConfig(needThreshold bool) *config.Config {
	load := config.LoadWithoutThreshold
	if needThreshold {
		load = config.Load
	}
	cfg, err := load(configPath)
	if err != nil {
		exitWithError(err, "loading config")
	}
	return cfg
}

// embeddingConfig translates the embedding section of the config.
func embeddingConfig(cfg *config.Config) embedding.Config {
	e := cfg.Embedding
	return embedding.Config{
		Provider:   e.Provider,
		Model:      e.Model,
		BaseURL:    e.BaseURL,
		APIKey:     e.APIKey,
		Dimensions: e.Dimensions,
		RateLimit:  e.RateLimit,
		CacheSize:  e.CacheSize,
		CheckModel: true,
	}
}

// mustOpenStore opens the configured reference store, exits on error.
// Read-only opens require an existing store file.
// The caller is responsible for calling Close() on the returned store.
func mustOpenStore(ctx context.Context, cfg *config.Config, readOnly bool) reference.Writer {
	store, err := reference.Open(ctx, reference.Config{
		Driver:   cfg.Store.Driver,
		Path:     cfg.Store.Path,
		Table:    cfg.Store.Table,
		ReadOnly: readOnly,
	})
	if err != nil {
		exitWithError(err, "opening reference store")
	}
	return store
}
