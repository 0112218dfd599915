// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Session is a Client bound to one credential token. It is immutable
// and safe for concurrent use.
type Session struct {
	client *Client
	token  string
}

// Token returns the credential token this session sends.
func (s *Session) Token() string {
	return s.token
}

// Client returns the unauthenticated client this session was derived from.
func (s *Session) Client() *Client {
	return s.client
}

// ListDiscussions fetches every discussion visible to the session.
// A null body decodes as an empty list.
func (s *Session) ListDiscussions(ctx context.Context) ([]Discussion, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/discussions", s.token, nil)
	if err != nil {
		return nil, fmt.Errorf("forum: list discussions failed: %w", err)
	}

	var discussions []Discussion
	if err := json.Unmarshal(body, &discussions); err != nil {
		return nil, fmt.Errorf("forum: failed to parse discussions: %w", err)
	}
	if discussions == nil {
		discussions = []Discussion{}
	}
	return discussions, nil
}

// CreateDiscussion asks the server to create a discussion. The server
// assigns the id and timestamp; callers re-fetch the list to see them.
// Only teachers may create discussions; students get a 403 APIError.
func (s *Session) CreateDiscussion(ctx context.Context, request CreateDiscussionRequest) error {
	if _, err := s.client.doRequest(ctx, http.MethodPost, "/discussions", s.token, request); err != nil {
		return fmt.Errorf("forum: create discussion failed: %w", err)
	}
	return nil
}

// ListMessages fetches every message in a discussion, in server order.
func (s *Session) ListMessages(ctx context.Context, discussionID int64) ([]Message, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, messagesPath(discussionID), s.token, nil)
	if err != nil {
		return nil, fmt.Errorf("forum: list messages for discussion %d failed: %w", discussionID, err)
	}

	var messages []Message
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, fmt.Errorf("forum: failed to parse messages for discussion %d: %w", discussionID, err)
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}

// SendMessage posts content to a discussion. Any bot reply the message
// triggers is generated server-side and only becomes visible through a
// subsequent ListMessages.
func (s *Session) SendMessage(ctx context.Context, discussionID int64, content string) error {
	if _, err := s.client.doRequest(ctx, http.MethodPost, messagesPath(discussionID), s.token, SendMessageRequest{Content: content}); err != nil {
		return fmt.Errorf("forum: send message to discussion %d failed: %w", discussionID, err)
	}
	return nil
}

func messagesPath(discussionID int64) string {
	return "/discussions/" + strconv.FormatInt(discussionID, 10) + "/messages"
}
