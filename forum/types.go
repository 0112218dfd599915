// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forum

import (
	"fmt"
	"strings"
	"time"
)

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login. Role is the
// server's role string ("student" or "teacher"); validating it is the
// caller's responsibility.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ID          int64  `json:"id"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateDiscussionRequest is the body of POST /discussions.
type CreateDiscussionRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SendMessageRequest is the body of POST /discussions/{id}/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// Discussion is a teacher-authored thread. CreatedAt is kept exactly as
// the server sent it; use CreatedTime to parse it.
type Discussion struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	TeacherID int64  `json:"teacher_id,omitempty"`
}

// CreatedTime parses CreatedAt. See ParseTimestamp.
func (d Discussion) CreatedTime() (time.Time, error) {
	return ParseTimestamp(d.CreatedAt)
}

// Message is a single post within a discussion, authored by a user or
// by the bot. Username is the author's display name ("Bot" for bot
// replies on the reference server).
type Message struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UserID    int64  `json:"user_id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
}

// CreatedTime parses CreatedAt. See ParseTimestamp.
func (m Message) CreatedTime() (time.Time, error) {
	return ParseTimestamp(m.CreatedAt)
}

// naiveLayouts are the zone-less ISO-8601 forms the server emits
// (Python's datetime.isoformat on a naive UTC datetime).
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a server timestamp. RFC 3339 values are parsed
// as-is; zone-less values are interpreted as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("forum: unrecognized timestamp %q", value)
}

// BotMention is the literal the server looks for in message content
// to decide whether to generate a bot reply.
const BotMention = "@bot"

// MentionsBot reports whether content would trigger a bot reply. The
// server matches case-insensitively. Clients use this only for hints;
// the content is sent unchanged either way.
func MentionsBot(content string) bool {
	return strings.Contains(strings.ToLower(content), BotMention)
}
