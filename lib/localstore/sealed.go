// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// Sealed wraps a Store and age-encrypts the values of selected keys to
// an X25519 identity. Ciphertext is stored base64-encoded. Keys not in
// the sealed set pass through unchanged.
type Sealed struct {
	inner     Store
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
	keys      map[string]bool
}

// NewSealed wraps inner, sealing the values of keys with identity.
func NewSealed(inner Store, identity *age.X25519Identity, keys ...string) *Sealed {
	sealedKeys := make(map[string]bool, len(keys))
	for _, key := range keys {
		sealedKeys[key] = true
	}
	return &Sealed{
		inner:     inner,
		identity:  identity,
		recipient: identity.Recipient(),
		keys:      sealedKeys,
	}
}

// LoadOrCreateIdentity reads an age identity from path, or generates one
// and writes it there with mode 0600 if the file does not exist.
func LoadOrCreateIdentity(path string) (*age.X25519Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		identity, err := age.ParseX25519Identity(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("localstore: parsing key file %s: %w", path, err)
		}
		return identity, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("localstore: reading key file %s: %w", path, err)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("localstore: generating age identity: %w", err)
	}
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, fmt.Errorf("localstore: creating directory %s: %w", directory, err)
	}
	// O_EXCL so two processes racing on first use cannot overwrite each
	// other's key.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return LoadOrCreateIdentity(path)
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: creating key file %s: %w", path, err)
	}
	if _, err := io.WriteString(file, identity.String()+"\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("localstore: writing key file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("localstore: closing key file %s: %w", path, err)
	}
	return identity, nil
}

func (s *Sealed) Get(key string) (string, bool, error) {
	value, ok, err := s.inner.Get(key)
	if err != nil || !ok || !s.keys[key] {
		return value, ok, err
	}
	plaintext, err := s.open(value)
	if err != nil {
		return "", false, fmt.Errorf("%w: unsealing %q: %w", ErrUnreadable, key, err)
	}
	return plaintext, true, nil
}

func (s *Sealed) Set(key, value string) error {
	if !s.keys[key] {
		return s.inner.Set(key, value)
	}
	ciphertext, err := s.seal(value)
	if err != nil {
		return fmt.Errorf("localstore: sealing %q: %w", key, err)
	}
	return s.inner.Set(key, ciphertext)
}

func (s *Sealed) Delete(key string) error {
	return s.inner.Delete(key)
}

// Close closes the wrapped store.
func (s *Sealed) Close() error {
	return s.inner.Close()
}

func (s *Sealed) seal(plaintext string) (string, error) {
	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, s.recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := io.WriteString(writer, plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

func (s *Sealed) open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding base64 ciphertext: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(raw), s.identity)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading plaintext: %w", err)
	}
	return string(plaintext), nil
}
