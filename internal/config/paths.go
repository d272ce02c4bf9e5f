package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "examdup"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// LocalConfigFile is looked up in the working directory first.
	LocalConfigFile = "examdup.yml"
)

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/examdup/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// SearchPaths lists the config files Load tries, in order.
func SearchPaths() []string {
	paths := []string{LocalConfigFile}
	if global := GlobalConfigPath(); global != "" {
		paths = append(paths, global)
	}
	return paths
}

// FindConfigFile returns the first existing file from SearchPaths, or "".
func FindConfigFile() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
