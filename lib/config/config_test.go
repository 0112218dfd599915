// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Server.URL != "http://localhost:5000/api" {
		t.Errorf("expected server.url=http://localhost:5000/api, got %s", cfg.Server.URL)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("expected storage.backend=file, got %s", cfg.Storage.Backend)
	}
	if filepath.Base(cfg.Storage.Path) != "session.json" {
		t.Errorf("expected storage.path to end in session.json, got %s", cfg.Storage.Path)
	}
	if cfg.Storage.Sealed {
		t.Error("expected sealed=false for development")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_WithoutClassroomConfig(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.URL != DefaultServerURL {
		t.Errorf("expected default server url, got %s", cfg.Server.URL)
	}
}

func TestLoad_WithClassroomConfig(t *testing.T) {
	configPath := writeConfig(t, "classroom.yaml", `
server:
  url: https://school.example/api
`)
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.URL != "https://school.example/api" {
		t.Errorf("expected server.url from file, got %s", cfg.Server.URL)
	}
	if cfg.Server.Timeout != "30s" {
		t.Errorf("expected default timeout to survive, got %s", cfg.Server.Timeout)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, "classroom.yaml", `
environment: development

server:
  url: http://10.0.0.5:5000/api
  timeout: 5s

storage:
  backend: sqlite
  path: /tmp/classroom/session.db
  sealed: true
  key_file: /tmp/classroom/key.txt

log:
  level: debug

ui:
  theme: light
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.URL != "http://10.0.0.5:5000/api" {
		t.Errorf("expected server.url from file, got %s", cfg.Server.URL)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("expected timeout=5s, got %s", cfg.Timeout())
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.Path != "/tmp/classroom/session.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.Storage.Sealed || cfg.Storage.KeyFile != "/tmp/classroom/key.txt" {
		t.Errorf("storage sealing = %+v", cfg.Storage)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel())
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("expected theme=light, got %s", cfg.UI.Theme)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	configPath := writeConfig(t, "classroom.jsonc", `{
	// Local classroom server.
	"server": {"url": "http://localhost:8080/api",},
	"ui": {"theme": "light"},
}`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.URL != "http://localhost:8080/api" {
		t.Errorf("expected server.url from JSONC, got %s", cfg.Server.URL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("expected theme=light, got %s", cfg.UI.Theme)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	broken := writeConfig(t, "broken.yaml", "server: [unterminated")
	if _, err := LoadFile(broken); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Run("production section", func(t *testing.T) {
		configPath := writeConfig(t, "classroom.yaml", `
environment: production
server:
  url: http://localhost:5000/api
production:
  server:
    url: https://school.example/api
  log:
    level: error
`)
		cfg, err := LoadFile(configPath)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if cfg.Server.URL != "https://school.example/api" {
			t.Errorf("expected production url, got %s", cfg.Server.URL)
		}
		if cfg.Log.Level != "error" {
			t.Errorf("expected production log level, got %s", cfg.Log.Level)
		}
	})

	t.Run("production default seals", func(t *testing.T) {
		configPath := writeConfig(t, "classroom.yaml", "environment: production\n")
		cfg, err := LoadFile(configPath)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if !cfg.Storage.Sealed {
			t.Error("expected sealed=true in production without overrides")
		}
	})

	t.Run("inactive section ignored", func(t *testing.T) {
		configPath := writeConfig(t, "classroom.yaml", `
environment: development
production:
  server:
    url: https://school.example/api
`)
		cfg, err := LoadFile(configPath)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if cfg.Server.URL != DefaultServerURL {
			t.Errorf("production override leaked into development: %s", cfg.Server.URL)
		}
	})
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	configPath := writeConfig(t, "classroom.yaml", "server:\n  url: http://from-file:5000/api\n")
	t.Setenv("CLASSROOM_SERVER_URL", "http://from-env:5000/api")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.URL != "http://from-file:5000/api" {
		t.Errorf("environment overrode the file: %s", cfg.Server.URL)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("CLASSROOM_TEST_DIR", "/srv/classroom")

	tests := []struct {
		input string
		vars  map[string]string
		want  string
	}{
		{input: "${HOME}/session.json", vars: map[string]string{"HOME": "/home/alice"}, want: "/home/alice/session.json"},
		{input: "${CLASSROOM_TEST_DIR}/db", want: "/srv/classroom/db"},
		{input: "${CLASSROOM_UNSET_VAR:-/fallback}/db", want: "/fallback/db"},
		{input: "${CLASSROOM_UNSET_VAR}/db", want: "/db"},
		{input: "/plain/path", want: "/plain/path"},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			if got := expandVars(test.input, test.vars); got != test.want {
				t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestLoadFile_ExpandsPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	configPath := writeConfig(t, "classroom.yaml", `
storage:
  path: ${XDG_CONFIG_HOME}/classroom/session.json
  key_file: ${CLASSROOM_KEY_DIR:-/keys}/key.txt
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Storage.Path != "/xdg/classroom/session.json" {
		t.Errorf("storage.path = %s", cfg.Storage.Path)
	}
	if cfg.Storage.KeyFile != "/keys/key.txt" {
		t.Errorf("storage.key_file = %s", cfg.Storage.KeyFile)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   []string
	}{
		{name: "valid", modify: func(*Config) {}},
		{
			name:   "bad environment",
			modify: func(c *Config) { c.Environment = "staging" },
			want:   []string{"invalid environment"},
		},
		{
			name:   "missing url",
			modify: func(c *Config) { c.Server.URL = "" },
			want:   []string{"server.url is required"},
		},
		{
			name:   "ftp url",
			modify: func(c *Config) { c.Server.URL = "ftp://school.example" },
			want:   []string{"server.url must be an http or https URL"},
		},
		{
			name:   "bad timeout",
			modify: func(c *Config) { c.Server.Timeout = "soon" },
			want:   []string{"server.timeout"},
		},
		{
			name:   "sealed without key file",
			modify: func(c *Config) { c.Storage.Sealed = true; c.Storage.KeyFile = "" },
			want:   []string{"storage.key_file is required"},
		},
		{
			name:   "memory needs no path",
			modify: func(c *Config) { c.Storage.Backend = BackendMemory; c.Storage.Path = "" },
		},
		{
			name: "every problem reported",
			modify: func(c *Config) {
				c.Storage.Backend = "redis"
				c.Log.Level = "loud"
				c.UI.Theme = "sepia"
			},
			want: []string{"storage.backend", "log.level", "ui.theme"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if len(test.want) == 0 {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			for _, fragment := range test.want {
				if !strings.Contains(err.Error(), fragment) {
					t.Errorf("error %q does not mention %q", err, fragment)
				}
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	directory := t.TempDir()
	if err := LoadDotEnv(filepath.Join(directory, ".env")); err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}

	path := filepath.Join(directory, ".env")
	if err := os.WriteFile(path, []byte("CLASSROOM_DOTENV_TEST=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLASSROOM_DOTENV_TEST", "")
	os.Unsetenv("CLASSROOM_DOTENV_TEST")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("CLASSROOM_DOTENV_TEST"); got != "from-dotenv" {
		t.Errorf("CLASSROOM_DOTENV_TEST = %q, want from-dotenv", got)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CLASSROOM_DOTENV_KEEP=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLASSROOM_DOTENV_KEEP", "from-shell")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("CLASSROOM_DOTENV_KEEP"); got != "from-shell" {
		t.Errorf("CLASSROOM_DOTENV_KEEP = %q, want the shell value kept", got)
	}
}
