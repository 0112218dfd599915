// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discussion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/classroom/forum"
)

// DiscussionAPI is the slice of forum.Session the list cache uses.
type DiscussionAPI interface {
	ListDiscussions(ctx context.Context) ([]forum.Discussion, error)
	CreateDiscussion(ctx context.Context, request forum.CreateDiscussionRequest) error
}

// ListCache holds the discussion list of the current session.
type ListCache struct {
	api    DiscussionAPI
	logger *slog.Logger

	mu          sync.Mutex
	discussions []forum.Discussion
	issued      uint64
	applied     uint64
}

// NewListCache returns an empty cache. A nil logger discards log output.
func NewListCache(api DiscussionAPI, logger *slog.Logger) *ListCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ListCache{api: api, logger: logger}
}

// Refresh replaces the contents with the server's full list. On failure
// the previous contents are kept and the error is returned. A response
// overtaken by a later refresh is dropped without error.
func (c *ListCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	sequence := c.issued
	c.mu.Unlock()

	discussions, err := c.api.ListDiscussions(ctx)
	if err != nil {
		logFailure(ctx, c.logger, "fetching discussions failed", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sequence <= c.applied {
		c.logger.Debug("dropping stale discussion list", "sequence", sequence, "applied", c.applied)
		return nil
	}
	c.applied = sequence
	c.discussions = discussions
	return nil
}

// Create asks the server for a new discussion and then refreshes, so the
// cache only ever holds server-assigned ids and timestamps. A failed
// create issues no refresh; a failed refresh after an accepted create
// is reported as ErrRefetchFailed.
func (c *ListCache) Create(ctx context.Context, title, content string) error {
	err := c.api.CreateDiscussion(ctx, forum.CreateDiscussionRequest{Title: title, Content: content})
	if err != nil {
		logFailure(ctx, c.logger, "creating discussion failed", "title", title, "error", err)
		return err
	}
	c.logger.Info("created discussion", "title", title)
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRefetchFailed, err)
	}
	return nil
}

// Reset empties the cache and drops every response still in flight.
func (c *ListCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discussions = nil
	c.applied = c.issued
}

// Discussions returns a copy of the cached list, in server order.
func (c *ListCache) Discussions() []forum.Discussion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]forum.Discussion{}, c.discussions...)
}

// Find returns the cached discussion with id.
func (c *ListCache) Find(id int64) (forum.Discussion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, discussion := range c.discussions {
		if discussion.ID == id {
			return discussion, true
		}
	}
	return forum.Discussion{}, false
}
