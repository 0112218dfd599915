// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package forumtest provides an in-process discussion server for tests.
//
// [Server] implements the same REST surface as the real server (login,
// register, discussions, messages, bot replies on "@bot") backed by
// in-memory state. Tokens are HS256 JWTs whose subject is the user id,
// so the Authorization header is validated the way the real server
// validates it. Every request is recorded, which lets tests assert on
// request order and on the absence of requests.
//
// Tests control timing and failures through [Server.Intercept]: an
// interceptor runs before the route handler and may block (to force
// out-of-order completions) or write its own response (to inject
// failures).
package forumtest

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bureau-foundation/classroom/forum"
)

// Request is one recorded request.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          string
}

// BotResponder produces the bot's reply to content, given the messages
// already in the discussion (oldest first, not including content).
type BotResponder func(history []forum.Message, content string) string

// Interceptor runs before every route handler. Returning true means the
// interceptor wrote the response and the handler is skipped.
type Interceptor func(writer http.ResponseWriter, request *http.Request) bool

type user struct {
	id       int64
	username string
	password string
	role     string
}

// Server is an in-memory discussion server. All methods are safe for
// concurrent use.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	signingKey   []byte
	users        []user
	discussions  []forum.Discussion
	messages     map[int64][]forum.Message
	requests     []Request
	nextID       int64
	epoch        time.Time
	ticks        int
	bot          BotResponder
	interceptors []Interceptor
}

// New starts a server and closes it when the test completes.
func New(t testing.TB) *Server {
	t.Helper()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("forumtest: generating signing key: %v", err)
	}

	server := &Server{
		signingKey: key,
		messages:   make(map[int64][]forum.Message),
		epoch:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		bot: func(_ []forum.Message, content string) string {
			return "Bot reply to: " + content
		},
	}
	server.Server = httptest.NewServer(server.router())
	t.Cleanup(server.Close)
	return server
}

func (s *Server) router() http.Handler {
	router := chi.NewRouter()
	router.Use(s.record)
	router.Use(s.intercept)

	router.Post("/login", s.handleLogin)
	router.Post("/register", s.handleRegister)
	router.Group(func(router chi.Router) {
		router.Use(s.authenticate)
		router.Get("/discussions", s.handleListDiscussions)
		router.Post("/discussions", s.handleCreateDiscussion)
		router.Get("/discussions/{discussionID}/messages", s.handleListMessages)
		router.Post("/discussions/{discussionID}/messages", s.handleCreateMessage)
	})
	return router
}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(username, password, role string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.users = append(s.users, user{id: s.nextID, username: username, password: password, role: role})
	return s.nextID
}

// AddDiscussion creates a discussion directly and returns it.
func (s *Server) AddDiscussion(title, content string, teacherID int64) forum.Discussion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addDiscussionLocked(title, content, teacherID)
}

// AddMessage appends a message directly and returns it.
func (s *Server) AddMessage(discussionID, userID int64, content string, isBot bool) forum.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMessageLocked(discussionID, userID, content, isBot)
}

// SetBotResponder replaces the default bot, which echoes the content.
func (s *Server) SetBotResponder(responder BotResponder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bot = responder
}

// Intercept installs an interceptor. Interceptors run in installation
// order; the first to return true wins.
func (s *Server) Intercept(interceptor Interceptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interceptors = append(s.interceptors, interceptor)
}

// FailRoute makes every request matching method and path fail with
// status until the test ends.
func (s *Server) FailRoute(method, path string, status int) {
	s.Intercept(func(writer http.ResponseWriter, request *http.Request) bool {
		if request.Method != method || request.URL.Path != path {
			return false
		}
		writeJSON(writer, status, map[string]string{"error": "injected failure"})
		return true
	})
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Messages returns the stored messages of a discussion.
func (s *Server) Messages(discussionID int64) []forum.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]forum.Message(nil), s.messages[discussionID]...)
}

// IssueToken mints a valid token for userID without a login request.
func (s *Server) IssueToken(userID int64) string {
	token, err := s.signToken(userID)
	if err != nil {
		panic(fmt.Sprintf("forumtest: signing token: %v", err))
	}
	return token
}

func (s *Server) signToken(userID int64) (string, error) {
	s.mu.Lock()
	issuedAt := s.nowLocked()
	s.mu.Unlock()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(15 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// nowLocked returns a strictly increasing timestamp so server ordering
// by creation time is deterministic.
func (s *Server) nowLocked() time.Time {
	s.ticks++
	return s.epoch.Add(time.Duration(s.ticks) * time.Second)
}

func (s *Server) addDiscussionLocked(title, content string, teacherID int64) forum.Discussion {
	s.nextID++
	discussion := forum.Discussion{
		ID:        s.nextID,
		Title:     title,
		Content:   content,
		CreatedAt: formatTimestamp(s.nowLocked()),
		TeacherID: teacherID,
	}
	s.discussions = append(s.discussions, discussion)
	return discussion
}

func (s *Server) addMessageLocked(discussionID, userID int64, content string, isBot bool) forum.Message {
	s.nextID++
	username := "Bot"
	if !isBot {
		username = s.usernameLocked(userID)
	}
	message := forum.Message{
		ID:        s.nextID,
		Content:   content,
		CreatedAt: formatTimestamp(s.nowLocked()),
		UserID:    userID,
		IsBot:     isBot,
		Username:  username,
	}
	s.messages[discussionID] = append(s.messages[discussionID], message)
	return message
}

func (s *Server) usernameLocked(userID int64) string {
	found, _ := s.userLocked(userID)
	return found.username
}

func (s *Server) userLocked(userID int64) (user, bool) {
	for _, candidate := range s.users {
		if candidate.id == userID {
			return candidate, true
		}
	}
	return user{}, false
}

// formatTimestamp matches the server's naive ISO-8601 output.
func formatTimestamp(value time.Time) string {
	return value.UTC().Format("2006-01-02T15:04:05.000000")
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var body []byte
		if request.Body != nil {
			body, _ = io.ReadAll(request.Body)
			request.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        request.Method,
			Path:          request.URL.Path,
			Authorization: request.Header.Get("Authorization"),
			RequestID:     request.Header.Get(forum.RequestIDHeader),
			Body:          string(body),
		})
		s.mu.Unlock()
		next.ServeHTTP(writer, request)
	})
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		s.mu.Lock()
		interceptors := append([]Interceptor(nil), s.interceptors...)
		s.mu.Unlock()
		for _, interceptor := range interceptors {
			if interceptor(writer, request) {
				return
			}
		}
		next.ServeHTTP(writer, request)
	})
}

type userIDKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			writeJSON(writer, http.StatusUnauthorized, map[string]string{"msg": "Missing Authorization Header"})
			return
		}

		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
			return s.signingKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
		if err != nil {
			writeJSON(writer, http.StatusUnauthorized, map[string]string{"msg": "Invalid token"})
			return
		}
		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			writeJSON(writer, http.StatusUnauthorized, map[string]string{"msg": "Invalid token subject"})
			return
		}

		ctx := request.Context()
		next.ServeHTTP(writer, request.WithContext(contextWithUserID(ctx, userID)))
	})
}

func (s *Server) handleLogin(writer http.ResponseWriter, request *http.Request) {
	var body forum.LoginRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeJSON(writer, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	s.mu.Lock()
	var found user
	var ok bool
	for _, candidate := range s.users {
		if candidate.username == body.Username {
			found, ok = candidate, true
			break
		}
	}
	s.mu.Unlock()

	if !ok || found.password != body.Password {
		writeJSON(writer, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	token, err := s.signToken(found.id)
	if err != nil {
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(writer, http.StatusOK, forum.LoginResponse{
		AccessToken: token,
		Role:        found.role,
		ID:          found.id,
	})
}

func (s *Server) handleRegister(writer http.ResponseWriter, request *http.Request) {
	var body forum.RegisterRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeJSON(writer, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	s.mu.Lock()
	for _, existing := range s.users {
		if existing.username == body.Username {
			s.mu.Unlock()
			writeJSON(writer, http.StatusBadRequest, map[string]string{"error": "Username already exists"})
			return
		}
	}
	s.nextID++
	s.users = append(s.users, user{id: s.nextID, username: body.Username, password: body.Password, role: body.Role})
	s.mu.Unlock()

	writeJSON(writer, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

func (s *Server) handleListDiscussions(writer http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	discussions := append([]forum.Discussion{}, s.discussions...)
	s.mu.Unlock()
	writeJSON(writer, http.StatusOK, discussions)
}

func (s *Server) handleCreateDiscussion(writer http.ResponseWriter, request *http.Request) {
	userID := userIDFromContext(request.Context())

	var body forum.CreateDiscussionRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeJSON(writer, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	s.mu.Lock()
	author, ok := s.userLocked(userID)
	if !ok || author.role != "teacher" {
		s.mu.Unlock()
		writeJSON(writer, http.StatusForbidden, map[string]string{"error": "Only teachers can create discussions"})
		return
	}
	discussion := s.addDiscussionLocked(body.Title, body.Content, userID)
	s.mu.Unlock()

	writeJSON(writer, http.StatusCreated, discussion)
}

func (s *Server) handleListMessages(writer http.ResponseWriter, request *http.Request) {
	discussionID, err := strconv.ParseInt(chi.URLParam(request, "discussionID"), 10, 64)
	if err != nil {
		writeJSON(writer, http.StatusNotFound, map[string]string{"error": "Not Found"})
		return
	}

	s.mu.Lock()
	messages := append([]forum.Message{}, s.messages[discussionID]...)
	s.mu.Unlock()
	writeJSON(writer, http.StatusOK, messages)
}

func (s *Server) handleCreateMessage(writer http.ResponseWriter, request *http.Request) {
	userID := userIDFromContext(request.Context())
	discussionID, err := strconv.ParseInt(chi.URLParam(request, "discussionID"), 10, 64)
	if err != nil {
		writeJSON(writer, http.StatusNotFound, map[string]string{"error": "Not Found"})
		return
	}

	var body forum.SendMessageRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeJSON(writer, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	s.mu.Lock()
	if !s.discussionExistsLocked(discussionID) {
		s.mu.Unlock()
		writeJSON(writer, http.StatusNotFound, map[string]string{"error": "Discussion not found"})
		return
	}
	history := append([]forum.Message(nil), s.messages[discussionID]...)
	message := s.addMessageLocked(discussionID, userID, body.Content, false)
	bot := s.bot
	s.mu.Unlock()

	if forum.MentionsBot(body.Content) {
		reply := bot(history, body.Content)
		s.mu.Lock()
		s.addMessageLocked(discussionID, userID, reply, true)
		s.mu.Unlock()
	}

	writeJSON(writer, http.StatusCreated, message)
}

func (s *Server) discussionExistsLocked(discussionID int64) bool {
	for _, discussion := range s.discussions {
		if discussion.ID == discussionID {
			return true
		}
	}
	return false
}

func contextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func userIDFromContext(ctx context.Context) int64 {
	userID, _ := ctx.Value(userIDKey{}).(int64)
	return userID
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value) //nolint:errcheck // client went away
}
