// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File is a Store backed by a single JSON object on disk. The parent
// directory is created with mode 0700 and the file is written with mode
// 0600, since it holds a credential token. Every change rewrites the
// whole file through a temporary file and a rename, so a crash leaves
// either the old contents or the new ones.
type File struct {
	path string

	mu     sync.Mutex
	closed bool
}

// NewFile returns a File store at path. The file is not created until
// the first Set. A missing file reads as an empty store.
//
// Get on a file that does not parse returns an error wrapping
// ErrUnreadable. Set and Delete replace such a file: its contents
// cannot be recovered.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("localstore: file path is required")
	}
	return &File{path: path}, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}
	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	values, err := f.loadForWrite()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	values, err := f.load()
	if errors.Is(err, ErrUnreadable) {
		return f.save(make(map[string]string))
	}
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: reading %s: %w", f.path, err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrUnreadable, f.path, err)
	}
	return values, nil
}

// loadForWrite is load with an unparseable file read as empty.
func (f *File) loadForWrite() (map[string]string, error) {
	values, err := f.load()
	if errors.Is(err, ErrUnreadable) {
		return make(map[string]string), nil
	}
	return values, err
}

func (f *File) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("localstore: marshaling %s: %w", f.path, err)
	}
	data = append(data, '\n')

	directory := filepath.Dir(f.path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("localstore: creating directory %s: %w", directory, err)
	}

	temporary, err := os.CreateTemp(directory, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("localstore: creating temporary file in %s: %w", directory, err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if err := temporary.Chmod(0600); err != nil {
		temporary.Close()
		return fmt.Errorf("localstore: chmod %s: %w", temporaryPath, err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("localstore: writing %s: %w", temporaryPath, err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("localstore: syncing %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("localstore: closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, f.path); err != nil {
		return fmt.Errorf("localstore: replacing %s: %w", f.path, err)
	}
	return nil
}
