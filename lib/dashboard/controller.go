// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/lib/discussion"
	"github.com/bureau-foundation/classroom/lib/session"
)

// ErrNotLoggedIn is returned by New when the store has no session.
var ErrNotLoggedIn = errors.New("dashboard: not logged in")

// SessionStore is the part of session.Store a controller depends on.
type SessionStore interface {
	Identity() *session.Identity
	Session() *forum.Session
	Subscribe(fn func(*session.Identity)) (unsubscribe func())
	Logout()
}

// Config holds optional controller settings.
type Config struct {
	// Logger receives controller and cache log output. If nil,
	// slog.Default() is used.
	Logger *slog.Logger
}

// Controller is the surface shared by students and teachers.
type Controller interface {
	// Identity is the user this controller was built for.
	Identity() session.Identity

	// Mount loads the discussion list. Call it once after New.
	Mount(ctx context.Context)
	// RefreshList reloads the discussion list.
	RefreshList(ctx context.Context)
	// Discussions returns the cached discussion list.
	Discussions() []forum.Discussion

	// Open selects a discussion and loads its messages.
	Open(ctx context.Context, discussionID int64)
	// Select binds a discussion without loading it; pair it with
	// RefreshThread when the fetch runs elsewhere.
	Select(discussionID int64)
	// RefreshThread reloads the open discussion.
	RefreshThread(ctx context.Context)
	// CloseThread dismisses the open discussion.
	CloseThread()
	// Thread returns a snapshot of the open discussion.
	Thread() Thread
	// Send posts a message to the open discussion and reloads it. It
	// reports whether the server accepted the message.
	Send(ctx context.Context, content string) bool

	// Logout ends the session, which also closes the controller.
	Logout()
	// Close releases the controller. In-flight requests are cancelled.
	Close()
	// Done is closed once the controller is closed.
	Done() <-chan struct{}
}

// Creator is implemented by controllers that may author discussions.
type Creator interface {
	// Create posts a new discussion and reloads the list. It reports
	// whether the server accepted the discussion.
	Create(ctx context.Context, title, content string) bool
}

// Thread is a snapshot of the open-discussion state.
type Thread struct {
	State discussion.State
	// Discussion is the open discussion as last seen in the list. Found
	// is false when the list does not (or no longer) contain it.
	Discussion forum.Discussion
	Found      bool
	Messages   []forum.Message
}

// New builds the controller for the store's current session. The
// returned value is a *Author for teachers and a *Viewer otherwise.
func New(store SessionStore, config Config) (Controller, error) {
	identity := store.Identity()
	credential := store.Session()
	if identity == nil || credential == nil {
		return nil, ErrNotLoggedIn
	}

	viewer := newViewer(store, *identity, credential, config)
	// A logout between reading the identity and subscribing would
	// otherwise go unnoticed.
	if current := store.Identity(); current == nil || *current != *identity {
		viewer.Close()
	}
	if identity.IsTeacher() {
		return &Author{Viewer: viewer}, nil
	}
	return viewer, nil
}

// Viewer is the student controller: browse, read, and post.
type Viewer struct {
	store    SessionStore
	identity session.Identity
	logger   *slog.Logger

	list   *discussion.ListCache
	thread *discussion.ThreadCache

	base      context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu          sync.Mutex
	unsubscribe func()
}

func newViewer(store SessionStore, identity session.Identity, credential *forum.Session, config Config) *Viewer {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("username", identity.Username, "role", identity.Role)

	base, cancel := context.WithCancel(context.Background())
	viewer := &Viewer{
		store:    store,
		identity: identity,
		logger:   logger,
		list:     discussion.NewListCache(credential, logger),
		thread:   discussion.NewThreadCache(credential, logger),
		base:     base,
		cancel:   cancel,
	}
	unsubscribe := store.Subscribe(func(current *session.Identity) {
		if current == nil || *current != identity {
			viewer.logger.Debug("session changed, closing dashboard")
			viewer.Close()
		}
	})
	viewer.mu.Lock()
	viewer.unsubscribe = unsubscribe
	closed := viewer.base.Err() != nil
	viewer.mu.Unlock()
	if closed {
		unsubscribe()
	}
	return viewer
}

func (v *Viewer) Identity() session.Identity {
	return v.identity
}

// begin derives an operation context that ends with either ctx or the
// controller. ok is false once the controller is closed.
func (v *Viewer) begin(ctx context.Context) (context.Context, context.CancelFunc, bool) {
	if v.base.Err() != nil {
		return nil, nil, false
	}
	operation, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.base, cancel)
	return operation, func() {
		stop()
		cancel()
	}, true
}

func (v *Viewer) Mount(ctx context.Context) {
	v.RefreshList(ctx)
}

func (v *Viewer) RefreshList(ctx context.Context) {
	operation, done, ok := v.begin(ctx)
	if !ok {
		return
	}
	defer done()
	_ = v.list.Refresh(operation) // logged by the cache
}

func (v *Viewer) Discussions() []forum.Discussion {
	return v.list.Discussions()
}

func (v *Viewer) Open(ctx context.Context, discussionID int64) {
	if v.base.Err() != nil {
		return
	}
	v.Select(discussionID)
	v.RefreshThread(ctx)
}

func (v *Viewer) Select(discussionID int64) {
	if v.base.Err() != nil {
		return
	}
	v.thread.Select(discussionID)
}

func (v *Viewer) RefreshThread(ctx context.Context) {
	operation, done, ok := v.begin(ctx)
	if !ok {
		return
	}
	defer done()
	v.report("refreshing thread", v.thread.Refresh(operation))
}

func (v *Viewer) CloseThread() {
	if v.base.Err() != nil {
		return
	}
	v.thread.Close()
}

func (v *Viewer) Thread() Thread {
	snapshot := Thread{
		State:    v.thread.State(),
		Messages: v.thread.Messages(),
	}
	if snapshot.State == discussion.Open {
		snapshot.Discussion, snapshot.Found = v.list.Find(v.thread.DiscussionID())
		if !snapshot.Found {
			snapshot.Discussion.ID = v.thread.DiscussionID()
		}
	}
	return snapshot
}

func (v *Viewer) Send(ctx context.Context, content string) bool {
	operation, done, ok := v.begin(ctx)
	if !ok {
		return false
	}
	defer done()
	return v.report("sending message", v.thread.Send(operation, content))
}

func (v *Viewer) Logout() {
	v.store.Logout()
	// The subscription only fires on a change; the store may already
	// have been logged out by someone else.
	v.Close()
}

func (v *Viewer) Close() {
	v.closeOnce.Do(func() {
		v.cancel()
		v.mu.Lock()
		unsubscribe := v.unsubscribe
		v.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		v.list.Reset()
		v.thread.Close()
		v.logger.Debug("dashboard closed")
	})
}

func (v *Viewer) Done() <-chan struct{} {
	return v.base.Done()
}

// report swallows err and reports whether the write was accepted.
// Precondition rejections are expected user input and logged at debug.
// Other failures were already logged by the cache.
func (v *Viewer) report(action string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, discussion.ErrRefetchFailed):
		return true
	case errors.Is(err, discussion.ErrEmptyContent), errors.Is(err, discussion.ErrNotOpen):
		v.logger.Debug(fmt.Sprintf("%s rejected", action), "reason", err)
		return false
	default:
		return false
	}
}

// Author is the teacher controller: everything a Viewer does, plus
// creating discussions.
type Author struct {
	*Viewer
}

func (a *Author) Create(ctx context.Context, title, content string) bool {
	operation, done, ok := a.begin(ctx)
	if !ok {
		return false
	}
	defer done()
	return a.report("creating discussion", a.list.Create(operation, title, content))
}

var (
	_ Controller = (*Viewer)(nil)
	_ Controller = (*Author)(nil)
	_ Creator    = (*Author)(nil)
)
