package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type keySpec struct {
	get func(*Config) string
	set func(*Config, string) error
}

var keys = map[string]keySpec{
	"threshold": {
		get: func(c *Config) string { return formatFloat(c.Threshold) },
		set: func(c *Config, v string) error { return parseFloat(v, &c.Threshold) },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.base_url": {
		get: func(c *Config) string { return c.Embedding.BaseURL },
		set: func(c *Config, v string) error { c.Embedding.BaseURL = v; return nil },
	},
	"embedding.api_key": {
		get: func(c *Config) string { return c.Embedding.APIKey },
		set: func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string { return strconv.Itoa(c.Embedding.Dimensions) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Embedding.Dimensions) },
	},
	"embedding.concurrency": {
		get: func(c *Config) string { return strconv.Itoa(c.Embedding.Concurrency) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Embedding.Concurrency) },
	},
	"embedding.rate_limit": {
		get: func(c *Config) string { return formatFloat(c.Embedding.RateLimit) },
		set: func(c *Config, v string) error { return parseFloat(v, &c.Embedding.RateLimit) },
	},
	"embedding.cache_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Embedding.CacheSize) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Embedding.CacheSize) },
	},
	"store.driver": {
		get: func(c *Config) string { return c.Store.Driver },
		set: func(c *Config, v string) error { c.Store.Driver = v; return nil },
	},
	"store.path": {
		get: func(c *Config) string { return c.Store.Path },
		set: func(c *Config, v string) error { c.Store.Path = v; return nil },
	},
	"store.table": {
		get: func(c *Config) string { return c.Store.Table },
		set: func(c *Config, v string) error { c.Store.Table = v; return nil },
	},
	"output.filtered_path": {
		get: func(c *Config) string { return c.Output.FilteredPath },
		set: func(c *Config, v string) error { c.Output.FilteredPath = v; return nil },
	},
}

// Keys returns every configuration key in sorted order.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the value of key in c.
func (c *Config) Get(key string) (string, error) {
	k, ok := keys[key]
	if !ok {
		return "", unknownKey(key)
	}
	return k.get(c), nil
}

// Set updates key in the config file at path, creating the file with
// defaults if needed. The result is validated before it is written.
func Set(path, key, value string) error {
	k, ok := keys[key]
	if !ok {
		return unknownKey(key)
	}

	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfiguration, key, err)
	}
	if err := cfg.validatePartial(); err != nil {
		return err
	}
	return cfg.Save(path)
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// readFile reads the YAML at path over the defaults, ignoring the environment.
func readFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfiguration, path, err)
	}
	return cfg, nil
}

// Default returns a config holding the defaults and no threshold.
func Default() *Config {
	cfg := &Config{}
	for k, v := range defaults {
		keys[k].set(cfg, fmt.Sprint(v))
	}
	return cfg
}

// keyForNamespace maps a validator namespace such as
// "Config.embedding.provider" back to "embedding.provider".
func keyForNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func unknownKey(key string) error {
	return fmt.Errorf("%w: unknown key %q (valid: %s)", ErrConfiguration, key, strings.Join(Keys(), ", "))
}

func parseFloat(s string, dst *float64) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*dst = f
	return nil
}

func parseInt(s string, dst *int) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	*dst = n
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
