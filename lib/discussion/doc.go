// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package discussion caches the discussion list and the messages of the
// one open discussion.
//
// Both caches are pull-only: every change is a wholesale replacement by
// a server response, and writes (create, send) are followed by a
// refetch instead of a local prediction. The server is the only source
// of generated ids, timestamps, and bot replies.
//
// Responses can complete out of issuance order. [ListCache] numbers
// each refresh and applies a response only if nothing issued later has
// been applied. [ThreadCache] additionally tracks a binding generation
// that changes on every Select and Close, so a response for a
// discussion that is no longer open is dropped.
//
// Fetch failures leave the previous contents in place, are logged, and
// are returned; the dashboard layer decides whether to surface them.
package discussion

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrEmptyContent rejects a send whose content is empty or only
	// whitespace. No request is issued.
	ErrEmptyContent = errors.New("discussion: message content is empty")

	// ErrNotOpen rejects a thread operation while no discussion is open.
	// No request is issued.
	ErrNotOpen = errors.New("discussion: no discussion is open")

	// ErrRefetchFailed marks an error from the refetch that follows an
	// accepted write. The write itself succeeded; errors.Is tells the
	// two apart, and the refetch cause is wrapped alongside.
	ErrRefetchFailed = errors.New("discussion: write accepted but refetch failed")
)

// logFailure logs a request failure at warn, or at debug when the
// caller's context ended, since cancellation is not a server problem.
func logFailure(ctx context.Context, logger *slog.Logger, message string, args ...any) {
	if ctx.Err() != nil {
		logger.Debug(message, args...)
		return
	}
	logger.Warn(message, args...)
}
