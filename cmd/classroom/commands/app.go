// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/lib/config"
	"github.com/bureau-foundation/classroom/lib/localstore"
	"github.com/bureau-foundation/classroom/lib/session"
	"github.com/bureau-foundation/classroom/lib/version"
)

// App carries the process streams shared by every command.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// connectionFlags are accepted by every command that talks to the server.
type connectionFlags struct {
	ConfigPath string
	ServerURL  string
	Verbose    bool
}

// AddFlags registers the connection flags on flagSet.
func (f *connectionFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.ConfigPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&f.ServerURL, "server", "", "API base URL, overriding the configuration")
	flagSet.BoolVarP(&f.Verbose, "verbose", "v", false, "log debug output to stderr")
}

// loadConfig reads and validates configuration, applying flag overrides.
func (f *connectionFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.ConfigPath != "" {
		cfg, err = config.LoadFile(f.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("load configuration: %w", err)
	}
	if f.ServerURL != "" {
		cfg.Server.URL = f.ServerURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// level is the log level for this invocation.
func (f *connectionFlags) level(cfg *config.Config) slog.Level {
	if f.Verbose {
		return slog.LevelDebug
	}
	return cfg.LogLevel()
}

// environment is the per-invocation state a command runs against.
type environment struct {
	config  *config.Config
	logger  *slog.Logger
	storage localstore.Store
	store   *session.Store
}

// open loads configuration and restores the saved session. Log output
// goes to the app's stderr.
func (a *App) open(flags connectionFlags) (*environment, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	return a.openWith(cfg, cli.NewCommandLogger(a.Stderr, flags.level(cfg)))
}

// openWith opens the session store described by cfg, logging to logger.
func (a *App) openWith(cfg *config.Config, logger *slog.Logger) (*environment, error) {
	storageConfig := localstore.Config{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		KeyFile: cfg.Storage.KeyFile,
		Logger:  logger,
	}
	if cfg.Storage.Sealed {
		storageConfig.SealedKeys = []string{session.TokenKey}
	}
	storage, err := localstore.Open(storageConfig)
	if err != nil {
		return nil, cli.Internal("open session storage: %w", err)
	}

	client, err := forum.NewClient(forum.ClientConfig{
		ServerURL:  cfg.Server.URL,
		HTTPClient: &http.Client{Timeout: cfg.Timeout()},
		Logger:     logger,
		UserAgent:  version.UserAgent(),
	})
	if err != nil {
		storage.Close()
		return nil, cli.Validation("%w", err)
	}

	store, err := session.NewStore(session.Config{
		Client:  client,
		Storage: storage,
		Logger:  logger,
	})
	if err != nil {
		storage.Close()
		return nil, cli.Internal("%w", err)
	}
	if err := store.Restore(); err != nil {
		storage.Close()
		return nil, cli.Internal("%w", err)
	}

	return &environment{
		config:  cfg,
		logger:  logger,
		storage: storage,
		store:   store,
	}, nil
}

// Close releases the session storage.
func (e *environment) Close() {
	if err := e.storage.Close(); err != nil {
		e.logger.Warn("closing session storage", "error", err)
	}
}

// requireSession returns the active credential and identity, or a
// forbidden error telling the user to log in.
func (e *environment) requireSession() (*forum.Session, session.Identity, error) {
	identity := e.store.Identity()
	credential := e.store.Session()
	if identity == nil || credential == nil {
		return nil, session.Identity{}, cli.Forbidden("not logged in; run \"classroom login <username>\" first")
	}
	return credential, *identity, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Stdout, format, args...)
}

func (a *App) notef(format string, args ...any) {
	fmt.Fprintf(a.Stderr, format, args...)
}
