// Package config loads the host application configuration from
// overglass.yaml and resolves the standard data directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultBaseDir = ".overglass"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Config is the host application configuration.
type Config struct {
	// LibraryDir is the shared read-only plugin library. Empty resolves
	// to <base>/library.
	LibraryDir string `yaml:"library_dir"`

	// ProfilesDir holds per-profile plugin config trees plus the profile
	// store. Empty resolves to <base>/profiles.
	ProfilesDir string `yaml:"profiles_dir"`

	Logging LoggingConfig `yaml:"logging"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Plugins PluginsConfig `yaml:"plugins"`
}

// LoggingConfig controls the host log.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// BridgeConfig controls the settings UI websocket bridge.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PluginsConfig controls the plugin runtime.
type PluginsConfig struct {
	// Limits selects the sandbox resource preset: strict, default or
	// relaxed.
	Limits string `yaml:"limits"`

	// HostVersion overrides the version string exposed to plugins; used
	// by tests, normally left empty.
	HostVersion string `yaml:"host_version,omitempty"`
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Bridge: BridgeConfig{
			Enabled: true,
			Addr:    "127.0.0.1:18950",
		},
		Plugins: PluginsConfig{Limits: "default"},
	}
}

// Load reads the config file. A missing file produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Bridge.Addr == "" {
		cfg.Bridge.Addr = "127.0.0.1:18950"
	}
	if cfg.Plugins.Limits == "" {
		cfg.Plugins.Limits = "default"
	}
}

// Paths holds resolved filesystem paths for Overglass data.
type Paths struct {
	Base     string // ~/.overglass
	Config   string // ~/.overglass/overglass.yaml
	Library  string // ~/.overglass/library
	Profiles string // ~/.overglass/profiles
	Logs     string // ~/.overglass/logs
}

// ResolvePaths computes the standard paths from the home directory.
// OVERGLASS_HOME overrides the base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("OVERGLASS_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:     base,
		Config:   filepath.Join(base, "overglass.yaml"),
		Library:  filepath.Join(base, "library"),
		Profiles: filepath.Join(base, "profiles"),
		Logs:     filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates the standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Library, p.Profiles, p.Logs} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Resolve fills directory fields left empty in the config from the
// standard paths.
func (c *Config) Resolve(p Paths) {
	if c.LibraryDir == "" {
		c.LibraryDir = p.Library
	}
	if c.ProfilesDir == "" {
		c.ProfilesDir = p.Profiles
	}
}
