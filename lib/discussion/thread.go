// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discussion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bureau-foundation/classroom/forum"
)

// MessageAPI is the slice of forum.Session the thread cache uses.
type MessageAPI interface {
	ListMessages(ctx context.Context, discussionID int64) ([]forum.Message, error)
	SendMessage(ctx context.Context, discussionID int64, content string) error
}

// State is the open-discussion state of a ThreadCache.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// ThreadCache holds the messages of at most one open discussion.
// Contents are only ever the response to a fetch for the currently
// bound discussion; binding another discussion discards them first.
type ThreadCache struct {
	api    MessageAPI
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	discussionID int64
	messages     []forum.Message
	generation   uint64
	issued       uint64
	applied      uint64
}

// NewThreadCache returns a Closed cache. A nil logger discards log
// output.
func NewThreadCache(api MessageAPI, logger *slog.Logger) *ThreadCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ThreadCache{api: api, logger: logger}
}

// Select binds the cache to discussionID and discards the previous
// contents. It issues no request; Open is Select plus Refresh. Selecting
// the already open discussion still discards.
func (c *ThreadCache) Select(discussionID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Open
	c.discussionID = discussionID
	c.messages = nil
	c.generation++
	c.applied = c.issued
}

// Open binds the cache to discussionID and fetches its messages. The
// previous contents are gone even if the fetch fails.
func (c *ThreadCache) Open(ctx context.Context, discussionID int64) error {
	c.Select(discussionID)
	return c.Refresh(ctx)
}

// Close unbinds the cache and discards its contents. In-flight fetches
// for the old binding are dropped when they complete.
func (c *ThreadCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closed
	c.discussionID = 0
	c.messages = nil
	c.generation++
	c.applied = c.issued
}

// Refresh refetches the bound discussion. It returns ErrNotOpen without
// a request when the cache is Closed.
func (c *ThreadCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Open {
		c.mu.Unlock()
		return ErrNotOpen
	}
	generation := c.generation
	c.mu.Unlock()
	return c.refresh(ctx, generation)
}

// Send posts content, unchanged, to the open discussion and then
// refetches it; the refetch is how bot replies become visible. Empty or
// whitespace-only content returns ErrEmptyContent and a Closed cache
// returns ErrNotOpen, both without a request. A failed post is not
// followed by a refetch; a failed refetch after an accepted post is
// reported as ErrRefetchFailed. If the binding changes while the post
// is in flight, the refetch is skipped.
func (c *ThreadCache) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	c.mu.Lock()
	if c.state != Open {
		c.mu.Unlock()
		return ErrNotOpen
	}
	discussionID := c.discussionID
	generation := c.generation
	c.mu.Unlock()

	if err := c.api.SendMessage(ctx, discussionID, content); err != nil {
		logFailure(ctx, c.logger, "sending message failed", "discussion_id", discussionID, "error", err)
		return err
	}
	c.logger.Debug("sent message",
		"discussion_id", discussionID,
		"mentions_bot", forum.MentionsBot(content),
	)
	if err := c.refresh(ctx, generation); err != nil {
		return fmt.Errorf("%w: %w", ErrRefetchFailed, err)
	}
	return nil
}

// refresh fetches the discussion bound at generation. Nothing is fetched
// if the binding has already moved on, and the response is dropped if
// it moved on while the fetch was in flight or a later fetch has landed.
func (c *ThreadCache) refresh(ctx context.Context, generation uint64) error {
	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return nil
	}
	discussionID := c.discussionID
	c.issued++
	sequence := c.issued
	c.mu.Unlock()

	messages, err := c.api.ListMessages(ctx, discussionID)
	if err != nil {
		logFailure(ctx, c.logger, "fetching messages failed", "discussion_id", discussionID, "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation || sequence <= c.applied {
		c.logger.Debug("dropping stale messages",
			"discussion_id", discussionID,
			"sequence", sequence,
			"applied", c.applied,
		)
		return nil
	}
	c.applied = sequence
	c.messages = messages
	return nil
}

// State reports whether a discussion is open.
func (c *ThreadCache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DiscussionID returns the bound discussion, or 0 when Closed.
func (c *ThreadCache) DiscussionID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discussionID
}

// Messages returns a copy of the cached messages, in server order.
func (c *ThreadCache) Messages() []forum.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]forum.Message{}, c.messages...)
}
