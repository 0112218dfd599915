// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"filippo.io/age"

	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/forum/forumtest"
	"github.com/bureau-foundation/classroom/lib/localstore"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestStore(t *testing.T, serverURL string, storage localstore.Store) *Store {
	t.Helper()
	client, err := forum.NewClient(forum.ClientConfig{ServerURL: serverURL, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	store, err := NewStore(Config{Client: client, Storage: storage, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

// TestLoginScenario covers the alice/t1/7 exchange end to end: the
// identity is built from the typed username plus the server's id and
// role, and the next request carries the returned token.
func TestLoginScenario(t *testing.T) {
	var mu sync.Mutex
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/login":
			json.NewEncoder(writer).Encode(map[string]any{"access_token": "t1", "role": "student", "id": 7})
		case "/discussions":
			mu.Lock()
			authorization = request.Header.Get("Authorization")
			mu.Unlock()
			writer.Write([]byte("[]"))
		default:
			t.Errorf("unexpected path %s", request.URL.Path)
		}
	}))
	defer server.Close()

	storage := localstore.NewMemory()
	store := newTestStore(t, server.URL, storage)

	identity, err := store.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	want := Identity{ID: 7, Username: "alice", Role: RoleStudent}
	if *identity != want {
		t.Errorf("identity = %+v, want %+v", *identity, want)
	}
	if got := store.Identity(); got == nil || *got != want {
		t.Errorf("store.Identity() = %+v, want %+v", got, want)
	}

	token, ok, _ := storage.Get(TokenKey)
	if !ok || token != "t1" {
		t.Errorf("stored token = %q, %v", token, ok)
	}
	encoded, ok, _ := storage.Get(UserKey)
	if !ok {
		t.Fatal("identity not stored")
	}
	var stored Identity
	if err := json.Unmarshal([]byte(encoded), &stored); err != nil || stored != want {
		t.Errorf("stored identity = %q (%v)", encoded, err)
	}

	if _, err := store.Session().ListDiscussions(context.Background()); err != nil {
		t.Fatalf("ListDiscussions failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if authorization != "Bearer t1" {
		t.Errorf("Authorization = %q, want %q", authorization, "Bearer t1")
	}
}

func TestLoginFailureLeavesStateUnchanged(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")

	storage := localstore.NewMemory()
	store := newTestStore(t, server.URL, storage)
	if _, err := store.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	before := store.Session()
	storedToken, _, _ := storage.Get(TokenKey)

	_, err := store.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	var apiErr *forum.APIError
	if errors.As(err, &apiErr) {
		t.Error("login failure exposes the underlying APIError")
	}

	if store.Session() != before {
		t.Error("failed login replaced the active session")
	}
	if identity := store.Identity(); identity == nil || identity.Username != "alice" {
		t.Errorf("identity after failed login = %+v", identity)
	}
	if token, _, _ := storage.Get(TokenKey); token != storedToken {
		t.Error("failed login changed the stored token")
	}
}

func TestLoginUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	store := newTestStore(t, url, localstore.NewMemory())
	_, err := store.Login(context.Background(), "alice", "pw1")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if store.LoggedIn() {
		t.Error("store logged in after network failure")
	}
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		json.NewEncoder(writer).Encode(map[string]any{"access_token": "t1", "role": "admin", "id": 1})
	}))
	defer server.Close()

	storage := localstore.NewMemory()
	store := newTestStore(t, server.URL, storage)
	if _, err := store.Login(context.Background(), "root", "pw"); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if storage.Len() != 0 {
		t.Error("unusable login response was persisted")
	}
}

// failingStorage fails every Set of one key.
type failingStorage struct {
	*localstore.Memory
	failKey string
}

func (f *failingStorage) Set(key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Memory.Set(key, value)
}

func TestLoginPersistenceFailureRollsBack(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")

	storage := &failingStorage{Memory: localstore.NewMemory(), failKey: TokenKey}
	store := newTestStore(t, server.URL, storage)

	_, err := store.Login(context.Background(), "alice", "pw1")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if store.LoggedIn() {
		t.Error("store activated a session it could not persist")
	}
	if _, ok, _ := storage.Get(UserKey); ok {
		t.Error("identity left behind after failed token write")
	}
}

func TestLogout(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")

	t.Run("after login", func(t *testing.T) {
		storage := localstore.NewMemory()
		store := newTestStore(t, server.URL, storage)
		if _, err := store.Login(context.Background(), "alice", "pw1"); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		store.Logout()
		if store.Identity() != nil || store.Session() != nil || store.LoggedIn() {
			t.Error("state remains after logout")
		}
		if storage.Len() != 0 {
			t.Errorf("storage has %d keys after logout", storage.Len())
		}
	})

	t.Run("already logged out", func(t *testing.T) {
		storage := localstore.NewMemory()
		storage.Set(TokenKey, "orphan")
		store := newTestStore(t, server.URL, storage)
		store.Logout()
		if store.Identity() != nil {
			t.Error("identity after logout")
		}
		if storage.Len() != 0 {
			t.Errorf("storage has %d keys after logout", storage.Len())
		}
	})
}

func TestRestore(t *testing.T) {
	valid := `{"id":7,"username":"alice","role":"student"}`

	tests := []struct {
		name       string
		values     map[string]string
		wantLogged bool
	}{
		{name: "both present", values: map[string]string{TokenKey: "t1", UserKey: valid}, wantLogged: true},
		{name: "token only", values: map[string]string{TokenKey: "t1"}},
		{name: "identity only", values: map[string]string{UserKey: valid}},
		{name: "empty", values: map[string]string{}},
		{name: "empty token", values: map[string]string{TokenKey: "", UserKey: valid}},
		{name: "corrupt identity", values: map[string]string{TokenKey: "t1", UserKey: "{"}},
		{name: "unknown role", values: map[string]string{TokenKey: "t1", UserKey: `{"id":1,"username":"x","role":"admin"}`}},
		{name: "missing username", values: map[string]string{TokenKey: "t1", UserKey: `{"id":1,"role":"student"}`}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			storage := localstore.NewMemory()
			for key, value := range test.values {
				storage.Set(key, value)
			}
			store := newTestStore(t, "http://localhost:1", storage)

			if err := store.Restore(); err != nil {
				t.Fatalf("Restore failed: %v", err)
			}
			if store.LoggedIn() != test.wantLogged {
				t.Fatalf("LoggedIn = %v, want %v", store.LoggedIn(), test.wantLogged)
			}
			if !test.wantLogged {
				if store.Session() != nil || store.Identity() != nil {
					t.Error("partial state exposed")
				}
				return
			}
			if store.Session().Token() != "t1" {
				t.Errorf("token = %q", store.Session().Token())
			}
			if identity := store.Identity(); identity.ID != 7 || identity.Role != RoleStudent {
				t.Errorf("identity = %+v", identity)
			}
		})
	}
}

func TestRestoreStorageFailure(t *testing.T) {
	storage := localstore.NewMemory()
	storage.Close()
	store := newTestStore(t, "http://localhost:1", storage)
	if err := store.Restore(); err == nil {
		t.Fatal("expected error from closed storage")
	}
	if store.LoggedIn() {
		t.Error("logged in after storage failure")
	}
}

// writeCorruptFile returns a file store whose backing file is not JSON.
func writeCorruptFile(t *testing.T) *localstore.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	storage, err := localstore.NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	return storage
}

func requireEmpty(t *testing.T, storage localstore.Store) {
	t.Helper()
	for _, key := range []string{TokenKey, UserKey} {
		value, ok, err := storage.Get(key)
		if err != nil || ok {
			t.Errorf("Get(%s) = %q, %v, %v, want absent", key, value, ok, err)
		}
	}
}

func TestRestoreUnreadableFile(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")
	storage := writeCorruptFile(t)
	store := newTestStore(t, server.URL, storage)

	if err := store.Restore(); err != nil {
		t.Fatalf("Restore over a corrupt file failed: %v", err)
	}
	if store.LoggedIn() {
		t.Fatal("logged in from a corrupt file")
	}
	requireEmpty(t, storage)

	if _, err := store.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login after discarding a corrupt file failed: %v", err)
	}
	if token, ok, err := storage.Get(TokenKey); err != nil || !ok || token == "" {
		t.Errorf("stored token = %q, %v, %v", token, ok, err)
	}
}

func TestLogoutClearsUnreadableFile(t *testing.T) {
	storage := writeCorruptFile(t)
	store := newTestStore(t, "http://localhost:1", storage)

	store.Logout()
	if store.LoggedIn() {
		t.Error("logged in after logout")
	}
	requireEmpty(t, storage)
}

func TestLoginOverUnreadableFile(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")
	storage := writeCorruptFile(t)
	store := newTestStore(t, server.URL, storage)

	if _, err := store.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login over a corrupt file failed: %v", err)
	}

	reopened := newTestStore(t, server.URL, storage)
	if err := reopened.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if identity := reopened.Identity(); identity == nil || identity.Username != "alice" {
		t.Errorf("restored identity = %+v", identity)
	}
}

func TestRestoreSealedKeyMismatch(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")
	inner := localstore.NewMemory()

	original, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	store := newTestStore(t, server.URL, localstore.NewSealed(inner, original, TokenKey))
	if _, err := store.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	rotated, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	sealed := localstore.NewSealed(inner, rotated, TokenKey)
	restarted := newTestStore(t, server.URL, sealed)
	if err := restarted.Restore(); err != nil {
		t.Fatalf("Restore with a rotated key failed: %v", err)
	}
	if restarted.LoggedIn() {
		t.Fatal("logged in with a token sealed under another key")
	}
	if inner.Len() != 0 {
		t.Errorf("storage has %d keys after discarding the session", inner.Len())
	}

	if _, err := restarted.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login with the rotated key failed: %v", err)
	}
	if token, ok, err := sealed.Get(TokenKey); err != nil || !ok || token != restarted.Session().Token() {
		t.Errorf("Get(token) under the rotated key = %q, %v, %v", token, ok, err)
	}
}

func TestRegister(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("taken", "pw", "student")
	store := newTestStore(t, server.URL, localstore.NewMemory())

	if err := store.Register(context.Background(), "bob", "pw", RoleTeacher); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if store.LoggedIn() {
		t.Error("registration logged the user in")
	}
	if _, err := store.Login(context.Background(), "bob", "pw"); err != nil {
		t.Fatalf("login with registered account failed: %v", err)
	}
	if !store.Identity().IsTeacher() {
		t.Error("registered teacher is not a teacher")
	}

	before := store.Session()
	err := store.Register(context.Background(), "taken", "pw", RoleStudent)
	if !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
	if store.Session() != before {
		t.Error("failed registration changed the session")
	}

	requests := len(server.Requests())
	if err := store.Register(context.Background(), "carol", "pw", Role("admin")); !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed for unknown role, got %v", err)
	}
	if len(server.Requests()) != requests {
		t.Error("unknown role was sent to the server")
	}
}

func TestSubscribe(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")
	store := newTestStore(t, server.URL, localstore.NewMemory())

	var events []*Identity
	unsubscribe := store.Subscribe(func(identity *Identity) {
		// Observers run outside the lock, so reading state is safe.
		_ = store.LoggedIn()
		events = append(events, identity)
	})

	if _, err := store.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	store.Logout()
	unsubscribe()
	if _, err := store.Login(context.Background(), "alice", "pw1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0] == nil || events[0].Username != "alice" {
		t.Errorf("first event = %+v, want alice", events[0])
	}
	if events[1] != nil {
		t.Errorf("second event = %+v, want nil", events[1])
	}
}

func TestFingerprint(t *testing.T) {
	first := Fingerprint("t1")
	if len(first) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(first))
	}
	if first != Fingerprint("t1") {
		t.Error("fingerprint is not deterministic")
	}
	if first == Fingerprint("t2") {
		t.Error("different tokens share a fingerprint")
	}
}
