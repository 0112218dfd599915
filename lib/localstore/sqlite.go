// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// sqlitePoolSize is small: the client issues a handful of key lookups
// per session and SQLite serializes writes regardless of pool size.
const sqlitePoolSize = 2

const createTable = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY NOT NULL,
	value TEXT NOT NULL
) WITHOUT ROWID`

// SQLite is a Store backed by a kv table in a SQLite database.
type SQLite struct {
	pool   *sqlitex.Pool
	path   string
	logger *slog.Logger
}

// NewSQLite opens (creating if needed) the database at path. The parent
// directory is created with mode 0700. The caller must call Close.
func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("localstore: sqlite path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, fmt.Errorf("localstore: creating directory %s: %w", directory, err)
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    sqlitePoolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("localstore: opening %s: %w", path, err)
	}

	logger.Debug("sqlite store opened", "path", path)
	return &SQLite{pool: pool, path: path, logger: logger}, nil
}

// prepareConnection applies pragmas and creates the schema. It runs once
// per pooled connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("localstore: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteTransient(conn, createTable, nil); err != nil {
		return fmt.Errorf("localstore: creating kv table: %w", err)
	}
	return nil
}

func (s *SQLite) take() (*sqlite.Conn, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return nil, fmt.Errorf("localstore: taking connection for %s: %w", s.path, err)
	}
	return conn, nil
}

func (s *SQLite) Get(key string) (string, bool, error) {
	conn, err := s.take()
	if err != nil {
		return "", false, err
	}
	defer s.pool.Put(conn)

	var value string
	found := false
	err = sqlitex.Execute(conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("localstore: reading %q from %s: %w", key, s.path, err)
	}
	return value, found, nil
}

func (s *SQLite) Set(key, value string) error {
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		&sqlitex.ExecOptions{Args: []any{key, value}})
	if err != nil {
		return fmt.Errorf("localstore: writing %q to %s: %w", key, s.path, err)
	}
	return nil
}

func (s *SQLite) Delete(key string) error {
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, "DELETE FROM kv WHERE key = ?", &sqlitex.ExecOptions{Args: []any{key}}); err != nil {
		return fmt.Errorf("localstore: deleting %q from %s: %w", key, s.path, err)
	}
	return nil
}

// Close closes every pooled connection.
func (s *SQLite) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("localstore: closing %s: %w", s.path, err)
	}
	s.logger.Debug("sqlite store closed", "path", s.path)
	return nil
}
