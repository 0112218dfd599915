// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
)

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()

	if _, ok, err := store.Get("token"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v, err %v", ok, err)
	}

	if err := store.Set("token", "t1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("user", `{"id":7,"username":"alice","role":"student"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := store.Get("token")
	if err != nil || !ok || value != "t1" {
		t.Fatalf("Get(token) = %q, %v, %v", value, ok, err)
	}

	if err := store.Set("token", "t2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if value, _, _ := store.Get("token"); value != "t2" {
		t.Errorf("after overwrite Get(token) = %q, want t2", value)
	}

	if err := store.Delete("token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get("token"); ok {
		t.Error("token still present after Delete")
	}
	if value, ok, _ := store.Get("user"); !ok || !strings.Contains(value, "alice") {
		t.Errorf("unrelated key disturbed: %q, %v", value, ok)
	}

	if err := store.Delete("missing"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}

	// Empty values are values, not absence.
	if err := store.Set("empty", ""); err != nil {
		t.Fatalf("Set empty: %v", err)
	}
	if _, ok, _ := store.Get("empty"); !ok {
		t.Error("empty value reported as absent")
	}
}

func TestMemory(t *testing.T) {
	store := NewMemory()
	exerciseStore(t, store)

	store.Close()
	if _, _, err := store.Get("user"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close: %v, want ErrClosed", err)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	exerciseStore(t, store)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}
	directoryInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat directory: %v", err)
	}
	if directoryInfo.Mode().Perm() != 0700 {
		t.Errorf("directory mode = %v, want 0700", directoryInfo.Mode().Perm())
	}

	// A second store on the same path sees the persisted values.
	reopened, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if value, ok, _ := reopened.Get("user"); !ok || !strings.Contains(value, "alice") {
		t.Errorf("reopened Get(user) = %q, %v", value, ok)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the store file", len(entries))
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	store, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if _, _, err := store.Get("token"); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("Get on corrupt file: err = %v, want ErrUnreadable", err)
	}

	// Delete replaces the unparseable file with an empty store.
	if err := store.Delete("token"); err != nil {
		t.Fatalf("Delete on corrupt file failed: %v", err)
	}
	if value, ok, err := store.Get("token"); err != nil || ok {
		t.Fatalf("Get after Delete = %q, %v, %v, want empty store", value, ok, err)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("user", "alice"); err != nil {
		t.Fatalf("Set on corrupt file failed: %v", err)
	}
	if value, ok, err := store.Get("user"); err != nil || !ok || value != "alice" {
		t.Errorf("Get after Set = %q, %v, %v", value, ok, err)
	}
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	exerciseStore(t, store)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if value, ok, err := reopened.Get("user"); err != nil || !ok || !strings.Contains(value, "alice") {
		t.Errorf("reopened Get(user) = %q, %v, %v", value, ok, err)
	}
}

func TestSealed(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	inner := NewMemory()
	store := NewSealed(inner, identity, "token")
	exerciseStore(t, store)

	if err := store.Set("token", "secret-token"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	raw, _, _ := inner.Get("token")
	if raw == "secret-token" || strings.Contains(raw, "secret-token") {
		t.Errorf("token stored in plaintext: %q", raw)
	}
	value, ok, err := store.Get("token")
	if err != nil || !ok || value != "secret-token" {
		t.Errorf("Get(token) = %q, %v, %v", value, ok, err)
	}

	// Unsealed keys pass through.
	rawUser, _, _ := inner.Get("user")
	if !strings.Contains(rawUser, "alice") {
		t.Errorf("unsealed key was transformed: %q", rawUser)
	}

	// A different identity cannot read the value.
	other, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewSealed(inner, other, "token").Get("token"); !errors.Is(err, ErrUnreadable) {
		t.Errorf("Get with a different identity: err = %v, want ErrUnreadable", err)
	}
}

func TestLoadOrCreateIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "store.key")

	created, err := LoadOrCreateIdentity(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadOrCreateIdentity(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.String() != created.String() {
		t.Error("second call generated a new identity instead of loading")
	}
}

func TestOpen(t *testing.T) {
	directory := t.TempDir()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "default is file", config: Config{Path: filepath.Join(directory, "a.json")}},
		{name: "memory", config: Config{Backend: BackendMemory}},
		{name: "sqlite", config: Config{Backend: BackendSQLite, Path: filepath.Join(directory, "b.db")}},
		{name: "sealed file", config: Config{
			Path:       filepath.Join(directory, "c.json"),
			SealedKeys: []string{"token"},
			KeyFile:    filepath.Join(directory, "c.key"),
		}},
		{name: "sealed without key file", config: Config{Backend: BackendMemory, SealedKeys: []string{"token"}}, wantErr: true},
		{name: "unknown backend", config: Config{Backend: "redis"}, wantErr: true},
		{name: "file without path", config: Config{Backend: BackendFile}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store, err := Open(test.config)
			if test.wantErr {
				if err == nil {
					store.Close()
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer store.Close()
			exerciseStore(t, store)
		})
	}
}
