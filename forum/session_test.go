// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forum_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/forum/forumtest"
)

func newSession(t *testing.T, server *forumtest.Server, username, password string) *forum.Session {
	t.Helper()
	client, err := forum.NewClient(forum.ClientConfig{ServerURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	response, err := client.Login(context.Background(), username, password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return client.Session(response.AccessToken)
}

func TestSessionCarriesBearerToken(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")
	session := newSession(t, server, "alice", "pw1")
	server.ResetRequests()

	if _, err := session.ListDiscussions(context.Background()); err != nil {
		t.Fatalf("ListDiscussions failed: %v", err)
	}

	requests := server.Requests()
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(requests))
	}
	if requests[0].Authorization != "Bearer "+session.Token() {
		t.Errorf("Authorization = %q", requests[0].Authorization)
	}
}

func TestSessionWithoutValidToken(t *testing.T) {
	server := forumtest.New(t)
	client, err := forum.NewClient(forum.ClientConfig{ServerURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Session("not-a-jwt").ListDiscussions(context.Background())
	if !forum.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestListDiscussionsEmpty(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")
	session := newSession(t, server, "alice", "pw1")

	discussions, err := session.ListDiscussions(context.Background())
	if err != nil {
		t.Fatalf("ListDiscussions failed: %v", err)
	}
	if discussions == nil || len(discussions) != 0 {
		t.Errorf("discussions = %#v, want empty non-nil slice", discussions)
	}
}

func TestCreateDiscussion(t *testing.T) {
	server := forumtest.New(t)
	teacherID := server.AddUser("mrs-t", "pw", "teacher")
	server.AddUser("alice", "pw1", "student")

	t.Run("teacher", func(t *testing.T) {
		session := newSession(t, server, "mrs-t", "pw")
		err := session.CreateDiscussion(context.Background(), forum.CreateDiscussionRequest{Title: "Intro", Content: "hi"})
		if err != nil {
			t.Fatalf("CreateDiscussion failed: %v", err)
		}
		discussions, err := session.ListDiscussions(context.Background())
		if err != nil {
			t.Fatalf("ListDiscussions failed: %v", err)
		}
		if len(discussions) != 1 {
			t.Fatalf("got %d discussions, want 1", len(discussions))
		}
		if discussions[0].Title != "Intro" || discussions[0].TeacherID != teacherID {
			t.Errorf("discussion = %+v", discussions[0])
		}
		if _, err := discussions[0].CreatedTime(); err != nil {
			t.Errorf("CreatedTime: %v", err)
		}
	})

	t.Run("student forbidden", func(t *testing.T) {
		session := newSession(t, server, "alice", "pw1")
		err := session.CreateDiscussion(context.Background(), forum.CreateDiscussionRequest{Title: "Nope"})
		if !forum.IsStatus(err, http.StatusForbidden) {
			t.Fatalf("expected 403, got %v", err)
		}
	})
}

func TestSendMessageAndBotReply(t *testing.T) {
	server := forumtest.New(t)
	teacherID := server.AddUser("mrs-t", "pw", "teacher")
	server.AddUser("alice", "pw1", "student")
	discussion := server.AddDiscussion("Recursion", "ask away", teacherID)
	session := newSession(t, server, "alice", "pw1")

	if err := session.SendMessage(context.Background(), discussion.ID, "@bot explain recursion"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	messages, err := session.ListMessages(context.Background(), discussion.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want user message and bot reply", len(messages))
	}
	if messages[0].Content != "@bot explain recursion" || messages[0].IsBot || messages[0].Username != "alice" {
		t.Errorf("first message = %+v", messages[0])
	}
	if !messages[1].IsBot || messages[1].Username != "Bot" {
		t.Errorf("second message = %+v", messages[1])
	}
}

func TestSendMessageUnknownDiscussion(t *testing.T) {
	server := forumtest.New(t)
	server.AddUser("alice", "pw1", "student")
	session := newSession(t, server, "alice", "pw1")

	err := session.SendMessage(context.Background(), 999, "hello")
	if !forum.IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404, got %v", err)
	}
}
