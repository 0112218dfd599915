// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadPassword(t *testing.T) {
	t.Run("stdin first line", func(t *testing.T) {
		password, err := ReadPassword("-", strings.NewReader("hunter2\nsecond line\n"), io.Discard, "Password: ")
		if err != nil {
			t.Fatalf("ReadPassword: %v", err)
		}
		if password != "hunter2" {
			t.Errorf("password = %q", password)
		}
	})

	t.Run("stdin without newline", func(t *testing.T) {
		password, err := ReadPassword("-", strings.NewReader("hunter2"), io.Discard, "")
		if err != nil {
			t.Fatalf("ReadPassword: %v", err)
		}
		if password != "hunter2" {
			t.Errorf("password = %q", password)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "password")
		if err := os.WriteFile(path, []byte("pw1\r\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		password, err := ReadPassword(path, nil, io.Discard, "")
		if err != nil {
			t.Fatalf("ReadPassword: %v", err)
		}
		if password != "pw1" {
			t.Errorf("password = %q", password)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadPassword("-", strings.NewReader("\n"), io.Discard, "")
		if CategoryOf(err) != CategoryValidation {
			t.Fatalf("err = %v, want validation error", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadPassword(filepath.Join(t.TempDir(), "absent"), nil, io.Discard, "")
		if CategoryOf(err) != CategoryInternal {
			t.Fatalf("err = %v, want internal error", err)
		}
	})

	t.Run("no terminal", func(t *testing.T) {
		_, err := ReadPassword("", strings.NewReader(""), io.Discard, "Password: ")
		if CategoryOf(err) != CategoryValidation {
			t.Fatalf("err = %v, want validation error", err)
		}
	})
}
