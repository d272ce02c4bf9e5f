// Package config loads and edits examdup configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration is returned for a missing or invalid configuration.
var ErrConfiguration = errors.New("configuration error")

// EnvPrefix prefixes environment overrides, e.g. EXAMDUP_THRESHOLD.
const EnvPrefix = "EXAMDUP"

// Config is the full examdup configuration.
type Config struct {
	// Threshold is the similarity above which two questions are duplicates.
	// It has no default.
	Threshold float64         `mapstructure:"threshold" yaml:"threshold,omitempty" json:"threshold" validate:"gt=0,lt=1"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding" json:"embedding"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store" json:"store"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider" json:"provider" validate:"oneof=ollama eino-ollama openai gemini"`
	Model       string  `mapstructure:"model" yaml:"model,omitempty" json:"model,omitempty"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty" json:"base_url,omitempty" validate:"omitempty,url"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key,omitempty" json:"-"`
	Dimensions  int     `mapstructure:"dimensions" yaml:"dimensions,omitempty" json:"dimensions,omitempty" validate:"gte=0"`
	Concurrency int     `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency" validate:"gte=1,lte=64"`
	RateLimit   float64 `mapstructure:"rate_limit" yaml:"rate_limit,omitempty" json:"rate_limit,omitempty" validate:"gte=0"`
	CacheSize   int     `mapstructure:"cache_size" yaml:"cache_size" json:"cache_size" validate:"gte=0"`
}

// StoreConfig locates the reference store.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver" validate:"oneof=duckdb sqlite"`
	Path   string `mapstructure:"path" yaml:"path" json:"path" validate:"required"`
	Table  string `mapstructure:"table" yaml:"table" json:"table" validate:"required,identifier"`
}

// OutputConfig holds fixed output locations.
type OutputConfig struct {
	FilteredPath string `mapstructure:"filtered_path" yaml:"filtered_path" json:"filtered_path" validate:"required"`
}

// Defaults for every key except threshold.
var defaults = map[string]any{
	"embedding.provider":    "ollama",
	"embedding.model":       "",
	"embedding.base_url":    "",
	"embedding.api_key":     "",
	"embedding.dimensions":  0,
	"embedding.concurrency": 4,
	"embedding.rate_limit":  0.0,
	"embedding.cache_size":  4096,
	"store.driver":          "duckdb",
	"store.path":            "data.duckdb",
	"store.table":           "data",
	"output.filtered_path":  "filtered_output.docx",
}

var (
	validate   = validator.New()
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
	validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifier.MatchString(fl.Field().String())
	})
}

// Load reads configuration from path, or from the first existing file in
// SearchPaths when path is empty, then applies EXAMDUP_* environment
// overrides. A missing or out-of-range threshold is an ErrConfiguration.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadWithoutThreshold is Load for commands that never compare
// similarities. An unset threshold is left at 0; a set one is still validated.
func LoadWithoutThreshold(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, needThreshold bool) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range Keys() {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("%w: binding %s: %v", ErrConfiguration, k, err)
		}
	}

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		v.SetConfigFile(ExpandTilde(path))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: config file not found: %s", ErrConfiguration, path)
			}
			return nil, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, path, err)
		}
	}

	if needThreshold && !v.IsSet("threshold") {
		return nil, fmt.Errorf("%w: threshold is not set (add 'threshold: 0.8' to %s or set %s_THRESHOLD)",
			ErrConfiguration, describe(path), EnvPrefix)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg.Store.Path = ExpandTilde(cfg.Store.Path)
	cfg.Output.FilteredPath = ExpandTilde(cfg.Output.FilteredPath)

	validateFn := cfg.Validate
	if !needThreshold {
		validateFn = cfg.validatePartial
	}
	if err := validateFn(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field, including the threshold.
func (c *Config) Validate() error {
	return wrapValidation(validate.Struct(c))
}

// validatePartial checks every field except an unset threshold, so a
// config file can be built one key at a time.
func (c *Config) validatePartial() error {
	if c.Threshold == 0 {
		return wrapValidation(validate.StructExcept(c, "Threshold"))
	}
	return c.Validate()
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed '%s' (got %v)", keyForNamespace(fe.Namespace()), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
}

func describe(path string) string {
	if path == "" {
		return GlobalConfigPath()
	}
	return path
}
