// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the configuration file for [Load].
const EnvironmentVariable = "CLASSROOM_CONFIG"

// DefaultServerURL is the API base URL used when none is configured.
const DefaultServerURL = "http://localhost:5000/api"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local servers and classroom try-outs.
	Development Environment = "development"
	// Production is for a deployed server.
	Production Environment = "production"
)

// Storage backends accepted by StorageConfig.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	// BackendMemory keeps the session for the life of the process.
	BackendMemory = "memory"
)

// Config is the master configuration for the client.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment" json:"environment"`

	// Server configures the API endpoint.
	Server ServerConfig `yaml:"server" json:"server"`

	// Storage configures where the session survives restarts.
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Log configures diagnostic output.
	Log LogConfig `yaml:"log" json:"log"`

	// UI configures the terminal dashboard.
	UI UIConfig `yaml:"ui" json:"ui"`

	// Per-environment overrides, applied after the base config loads.
	Development *ConfigOverrides `yaml:"development,omitempty" json:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty" json:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
// Empty strings leave the base value in place.
type ConfigOverrides struct {
	Server  *ServerConfig  `yaml:"server,omitempty" json:"server,omitempty"`
	Storage *StorageConfig `yaml:"storage,omitempty" json:"storage,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty" json:"log,omitempty"`
	UI      *UIConfig      `yaml:"ui,omitempty" json:"ui,omitempty"`
}

// ServerConfig configures the API endpoint.
type ServerConfig struct {
	// URL is the API base URL including any path prefix.
	// Default: http://localhost:5000/api
	URL string `yaml:"url" json:"url"`

	// Timeout bounds each request, as a Go duration string.
	// Default: 30s
	Timeout string `yaml:"timeout" json:"timeout"`
}

// StorageConfig configures durable session storage.
type StorageConfig struct {
	// Backend is file, sqlite, or memory.
	// Default: file
	Backend string `yaml:"backend" json:"backend"`

	// Path is the session file or database.
	// Default: <user config dir>/classroom/session.json
	Path string `yaml:"path" json:"path"`

	// Sealed encrypts the token at rest with an age key.
	Sealed bool `yaml:"sealed" json:"sealed"`

	// KeyFile holds the age identity when Sealed is set. Created on
	// first use.
	// Default: <user config dir>/classroom/key.txt
	KeyFile string `yaml:"key_file" json:"key_file"`
}

// LogConfig configures diagnostic output.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	// Default: warn
	Level string `yaml:"level" json:"level"`
}

// UIConfig configures the terminal dashboard.
type UIConfig struct {
	// Theme is dark or light.
	// Default: dark
	Theme string `yaml:"theme" json:"theme"`
}

// Default returns the zero-setup configuration. Load paths start from
// it, so a file only needs the values it changes.
func Default() *Config {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	stateDir := filepath.Join(configDir, "classroom")

	return &Config{
		Environment: Development,
		Server: ServerConfig{
			URL:     DefaultServerURL,
			Timeout: "30s",
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    filepath.Join(stateDir, "session.json"),
			KeyFile: filepath.Join(stateDir, "key.txt"),
		},
		Log: LogConfig{
			Level: "warn",
		},
		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// LoadDotEnv loads variables from a .env file at path without replacing
// ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load loads the file named by CLASSROOM_CONFIG, or returns [Default]
// when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production default: the token is sealed at rest.
		if overrides == nil {
			c.Storage.Sealed = true
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Server != nil {
		if overrides.Server.URL != "" {
			c.Server.URL = overrides.Server.URL
		}
		if overrides.Server.Timeout != "" {
			c.Server.Timeout = overrides.Server.Timeout
		}
	}

	if overrides.Storage != nil {
		if overrides.Storage.Backend != "" {
			c.Storage.Backend = overrides.Storage.Backend
		}
		if overrides.Storage.Path != "" {
			c.Storage.Path = overrides.Storage.Path
		}
		// Sealed is a bool, so it always applies from an overriding section.
		c.Storage.Sealed = overrides.Storage.Sealed
		if overrides.Storage.KeyFile != "" {
			c.Storage.KeyFile = overrides.Storage.KeyFile
		}
	}

	if overrides.Log != nil && overrides.Log.Level != "" {
		c.Log.Level = overrides.Log.Level
	}

	if overrides.UI != nil && overrides.UI.Theme != "" {
		c.UI.Theme = overrides.UI.Theme
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(os.Getenv("HOME"), ".config")
	}
	vars := map[string]string{
		"HOME":            os.Getenv("HOME"),
		"XDG_CONFIG_HOME": configHome,
	}

	c.Storage.Path = expandVars(c.Storage.Path, vars)
	c.Storage.KeyFile = expandVars(c.Storage.KeyFile, vars)
	c.Server.URL = expandVars(c.Server.URL, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels = []string{"debug", "info", "warn", "error"}
	themes    = []string{"dark", "light"}
	backends  = []string{BackendFile, BackendSQLite, BackendMemory}
)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Server.URL == "" {
		errs = append(errs, fmt.Errorf("server.url is required"))
	} else if parsed, err := url.Parse(c.Server.URL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("server.url must be an http or https URL: %q", c.Server.URL))
	}

	if timeout, err := time.ParseDuration(c.Server.Timeout); err != nil || timeout <= 0 {
		errs = append(errs, fmt.Errorf("server.timeout must be a positive duration: %q", c.Server.Timeout))
	}

	if !slices.Contains(backends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend must be one of: %v", backends))
	}
	if c.Storage.Backend != BackendMemory && c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path is required"))
	}
	if c.Storage.Sealed && c.Storage.KeyFile == "" {
		errs = append(errs, fmt.Errorf("storage.key_file is required when storage.sealed is set"))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}

	if !slices.Contains(themes, c.UI.Theme) {
		errs = append(errs, fmt.Errorf("ui.theme must be one of: %v", themes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Timeout returns Server.Timeout parsed. Call after Validate.
func (c *Config) Timeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Server.Timeout)
	return timeout
}

// LogLevel returns Log.Level as a slog level. Unknown values map to warn.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
