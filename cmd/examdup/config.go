package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/examdup/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

// ConfigUpdateResponse is the response for config set.
type ConfigUpdateResponse struct {
	Status string `json:"status"`
	Path   string `json:"path"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show or set configuration",
	Long: `Show or set configuration values.

With no arguments, prints the effective configuration.
With one argument, prints that key.
With two arguments, sets the key in the config file.

Keys:
  threshold               similarity threshold, 0 < t < 1 (required)
  embedding.provider      ollama, eino-ollama, openai, gemini
  embedding.model         model name (provider default if empty)
  embedding.base_url      server URL for ollama providers
  embedding.api_key       API key (or OPENAI_API_KEY / GEMINI_API_KEY)
  embedding.dimensions    expected vector size (provider default if 0)
  embedding.concurrency   parallel embedding calls
  embedding.rate_limit    max requests per second (0 = unlimited)
  embedding.cache_size    embeddings memoized per run
  store.driver            duckdb or sqlite
  store.path              reference store file
  store.table             reference store table
  output.filtered_path    where filter writes its output

Every key can be overridden with EXAMDUP_<KEY>, e.g. EXAMDUP_STORE_PATH.

Examples:
  examdup config threshold 0.8
  examdup config store.path ~/exams/data.duckdb
  examdup config`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	if len(args) == 2 {
		return runConfigSet(args[0], args[1])
	}

	cfg := mustLoadConfig(false)
	if len(args) == 1 {
		value, err := cfg.Get(args[0])
		if err != nil {
			exitWithError(err, "reading config")
		}
		if humanOutput {
			fmt.Println(value)
			return nil
		}
		return outputJSON(map[string]string{args[0]: value})
	}

	if humanOutput {
		for _, key := range config.Keys() {
			value, _ := cfg.Get(key)
			if key == "embedding.api_key" && value != "" {
				value = "********"
			}
			fmt.Printf("%-22s %s\n", key, value)
		}
		return nil
	}
	return outputJSON(cfg)
}

func runConfigSet(key, value string) error {
	path := configWritePath()
	if err := config.Set(path, key, value); err != nil {
		exitWithError(err, "setting %s", key)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s in %s\n", key, value, path)
		return nil
	}
	return outputJSON(ConfigUpdateResponse{Status: "updated", Path: path, Key: key, Value: value})
}

// configWritePath is the --config file, else the file Load would read,
// else ./examdup.yml.
func configWritePath() string {
	if configPath != "" {
		return config.ExpandTilde(configPath)
	}
	if found := config.FindConfigFile(); found != "" {
		return found
	}
	return config.LocalConfigFile
}
