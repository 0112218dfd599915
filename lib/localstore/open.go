// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"fmt"
	"log/slog"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config selects and parameterizes a backend.
type Config struct {
	// Backend is one of BackendMemory, BackendFile, BackendSQLite.
	// Empty means BackendFile.
	Backend string
	// Path is the file or database path. Ignored for BackendMemory.
	Path string
	// SealedKeys lists keys whose values are age-encrypted at rest.
	// Empty disables sealing.
	SealedKeys []string
	// KeyFile holds the age identity used for sealing. Required when
	// SealedKeys is non-empty; created on first use.
	KeyFile string
	// Logger receives backend lifecycle messages. Nil discards them.
	Logger *slog.Logger
}

// Open builds the Store described by config. The caller must Close it.
func Open(config Config) (Store, error) {
	var store Store
	switch config.Backend {
	case BackendMemory:
		store = NewMemory()
	case BackendFile, "":
		file, err := NewFile(config.Path)
		if err != nil {
			return nil, err
		}
		store = file
	case BackendSQLite:
		database, err := NewSQLite(config.Path, config.Logger)
		if err != nil {
			return nil, err
		}
		store = database
	default:
		return nil, fmt.Errorf("localstore: unknown backend %q (expected %s, %s, or %s)",
			config.Backend, BackendMemory, BackendFile, BackendSQLite)
	}

	if len(config.SealedKeys) == 0 {
		return store, nil
	}
	if config.KeyFile == "" {
		store.Close()
		return nil, fmt.Errorf("localstore: key file is required when sealing keys")
	}
	identity, err := LoadOrCreateIdentity(config.KeyFile)
	if err != nil {
		store.Close()
		return nil, err
	}
	return NewSealed(store, identity, config.SealedKeys...), nil
}
