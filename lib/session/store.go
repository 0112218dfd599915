// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/lib/localstore"
)

// Storage keys for the persisted session.
const (
	TokenKey = "token"
	UserKey  = "user"
)

var (
	// ErrLoginFailed is returned for every login failure: rejected
	// credentials, an unreachable server, an unusable response, or a
	// persistence failure.
	ErrLoginFailed = errors.New("session: login failed")

	// ErrRegistrationFailed is returned for every registration failure.
	ErrRegistrationFailed = errors.New("session: registration failed")
)

// Config holds the dependencies of a Store.
type Config struct {
	// Client is the unauthenticated API client. Required.
	Client *forum.Client
	// Storage persists the session across restarts. Required.
	Storage localstore.Store
	// Logger receives session lifecycle messages. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

type subscriber struct {
	id int
	fn func(*Identity)
}

// Store holds the current identity and credential. It is safe for
// concurrent use; observers are never called with the lock held.
type Store struct {
	client  *forum.Client
	storage localstore.Store
	logger  *slog.Logger

	mu             sync.Mutex
	identity       *Identity
	session        *forum.Session
	subscribers    []subscriber
	nextSubscriber int
}

// NewStore returns a logged-out Store. Call Restore to load a persisted
// session.
func NewStore(config Config) (*Store, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("session: Client is required")
	}
	if config.Storage == nil {
		return nil, fmt.Errorf("session: Storage is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:  config.Client,
		storage: config.Storage,
		logger:  logger,
	}, nil
}

// Fingerprint identifies a token in logs without revealing it: the
// first 8 bytes of its BLAKE3 digest, hex-encoded.
func Fingerprint(token string) string {
	digest := blake3.Sum256([]byte(token))
	return hex.EncodeToString(digest[:8])
}

// Restore loads a persisted session. When both the token and a valid
// identity are stored, they become the active session and observers are
// notified. Anything less leaves the store logged out without error.
// Stored values that cannot be decoded (a corrupt file, a token sealed
// under another key) are cleared. Only a storage read failure is
// returned.
func (s *Store) Restore() error {
	token, hasToken, err := s.storage.Get(TokenKey)
	if errors.Is(err, localstore.ErrUnreadable) {
		s.discardUnreadable(err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: reading stored token: %w", err)
	}
	encoded, hasUser, err := s.storage.Get(UserKey)
	if errors.Is(err, localstore.ErrUnreadable) {
		s.discardUnreadable(err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: reading stored identity: %w", err)
	}

	if !hasToken || token == "" || !hasUser {
		if hasToken || hasUser {
			s.logger.Debug("ignoring partial stored session", "has_token", hasToken, "has_user", hasUser)
		}
		return nil
	}
	identity, err := decodeIdentity(encoded)
	if err != nil {
		s.logger.Warn("ignoring unusable stored identity", "error", err)
		return nil
	}

	s.activate(token, &identity)
	s.logger.Info("restored session",
		"username", identity.Username,
		"user_id", identity.ID,
		"role", identity.Role,
		"token_fingerprint", Fingerprint(token),
	)
	return nil
}

// Login exchanges credentials for a token, persists the new session, and
// makes it active. On any failure the previous session, in memory and
// on disk, is left as it was.
func (s *Store) Login(ctx context.Context, username, password string) (*Identity, error) {
	response, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("login failed", "username", username, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	role, err := ParseRole(response.Role)
	if err != nil {
		s.logger.Warn("login returned unusable role", "username", username, "role", response.Role)
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	identity := &Identity{ID: response.ID, Username: username, Role: role}

	if err := s.persist(response.AccessToken, identity); err != nil {
		s.logger.Error("persisting session failed", "username", username, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	s.activate(response.AccessToken, identity)
	s.logger.Info("logged in",
		"username", username,
		"user_id", identity.ID,
		"role", identity.Role,
		"token_fingerprint", Fingerprint(response.AccessToken),
	)
	copied := *identity
	return &copied, nil
}

// Register creates an account. It never changes the current session.
func (s *Store) Register(ctx context.Context, username, password string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrRegistrationFailed, role)
	}
	err := s.client.Register(ctx, forum.RegisterRequest{
		Username: username,
		Password: password,
		Role:     string(role),
	})
	if err != nil {
		s.logger.Warn("registration failed", "username", username, "error", err)
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	s.logger.Info("registered account", "username", username, "role", role)
	return nil
}

// Logout clears the persisted session, drops the credential, and
// notifies observers with a nil identity. It always succeeds; storage
// failures are logged.
func (s *Store) Logout() {
	s.clearStorage()

	s.mu.Lock()
	previous := s.identity
	s.identity = nil
	s.session = nil
	subscribers := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	if previous != nil {
		s.logger.Info("logged out", "username", previous.Username)
	}
	notify(subscribers, nil)
}

// Identity returns a copy of the current identity, or nil when logged
// out.
func (s *Store) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	copied := *s.identity
	return &copied
}

// Session returns the active credential, or nil when logged out. The
// returned value is immutable; a later login or logout does not change
// it.
func (s *Store) Session() *forum.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// LoggedIn reports whether a session is active.
func (s *Store) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// Client returns the unauthenticated API client.
func (s *Store) Client() *forum.Client {
	return s.client
}

// Subscribe registers fn to be called after every identity change with
// the new identity (nil on logout). Observers run in subscription order
// on the goroutine that changed the identity. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(*Identity)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubscriber++
	id := s.nextSubscriber
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for index, existing := range s.subscribers {
			if existing.id == id {
				s.subscribers = append(s.subscribers[:index:index], s.subscribers[index+1:]...)
				return
			}
		}
	}
}

func (s *Store) activate(token string, identity *Identity) {
	s.mu.Lock()
	s.identity = identity
	s.session = s.client.Session(token)
	subscribers := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	copied := *identity
	notify(subscribers, &copied)
}

// persist writes the identity and then the token. If the token write
// fails, the previously stored identity is put back.
func (s *Store) persist(token string, identity *Identity) error {
	encoded, err := identity.encode()
	if err != nil {
		return err
	}

	previousUser, hadUser, err := s.storage.Get(UserKey)
	if errors.Is(err, localstore.ErrUnreadable) {
		previousUser, hadUser, err = "", false, nil
	}
	if err != nil {
		return fmt.Errorf("session: reading stored identity: %w", err)
	}

	if err := s.storage.Set(UserKey, encoded); err != nil {
		return fmt.Errorf("session: storing identity: %w", err)
	}
	if err := s.storage.Set(TokenKey, token); err != nil {
		s.restoreKey(UserKey, previousUser, hadUser)
		return fmt.Errorf("session: storing token: %w", err)
	}
	return nil
}

func (s *Store) clearStorage() {
	for _, key := range []string{TokenKey, UserKey} {
		if err := s.storage.Delete(key); err != nil {
			s.logger.Error("clearing stored session", "key", key, "error", err)
		}
	}
}

func (s *Store) discardUnreadable(cause error) {
	s.logger.Warn("discarding unreadable stored session", "error", cause)
	s.clearStorage()
}

func (s *Store) restoreKey(key, value string, present bool) {
	var err error
	if present {
		err = s.storage.Set(key, value)
	} else {
		err = s.storage.Delete(key)
	}
	if err != nil {
		s.logger.Error("rolling back stored session", "key", key, "error", err)
	}
}

func (s *Store) snapshotSubscribersLocked() []func(*Identity) {
	functions := make([]func(*Identity), len(s.subscribers))
	for index, existing := range s.subscribers {
		functions[index] = existing.fn
	}
	return functions
}

func notify(subscribers []func(*Identity), identity *Identity) {
	for _, fn := range subscribers {
		fn(identity)
	}
}
