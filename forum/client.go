// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// maxResponseSize bounds response body reads. Discussion and message
// lists are small; the bound only stops a misbehaving server from
// exhausting memory. A variable so tests can lower it.
var maxResponseSize int64 = 32 << 20

// RequestIDHeader carries a random per-request identifier so server
// logs can be correlated with client logs.
const RequestIDHeader = "X-Request-ID"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// ServerURL is the base URL of the API, including any path prefix
	// (e.g., "http://localhost:5000/api").
	ServerURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// UserAgent is sent on every request when non-empty.
	UserAgent string
}

// Client is an unauthenticated API client. It holds the base URL and
// HTTP transport, shared across Sessions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a new unauthenticated client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.ServerURL == "" {
		return nil, fmt.Errorf("forum: ServerURL is required")
	}

	parsed, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("forum: invalid ServerURL %q: %w", config.ServerURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("forum: ServerURL %q must use http or https", config.ServerURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.ServerURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		userAgent:  config.UserAgent,
	}, nil
}

// ServerURL returns the base URL with any trailing slash removed.
func (c *Client) ServerURL() string {
	return c.baseURL
}

// Login exchanges a username and password for a credential token. The
// returned response is not validated beyond decoding; an empty token
// is reported as an error.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	if username == "" {
		return nil, fmt.Errorf("forum: username is required for login")
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/login", "", LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("forum: login failed: %w", err)
	}

	var response LoginResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("forum: failed to parse login response: %w", err)
	}
	if response.AccessToken == "" {
		return nil, fmt.Errorf("forum: login response has no access_token")
	}

	c.logger.Debug("logged in", "username", username, "user_id", response.ID, "role", response.Role)
	return &response, nil
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, request RegisterRequest) error {
	if request.Username == "" {
		return fmt.Errorf("forum: username is required for registration")
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/register", "", request); err != nil {
		return fmt.Errorf("forum: registration failed: %w", err)
	}

	c.logger.Debug("registered account", "username", request.Username, "role", request.Role)
	return nil
}

// Session binds token to this client. The token is not validated; the
// first authorized call fails with a 401 APIError if it is stale.
func (c *Client) Session(token string) *Session {
	return &Session{client: c, token: token}
}

// doRequest performs a request and returns the response body. On 2xx,
// returns the body. On any other status, returns an *APIError. token may
// be empty for unauthenticated endpoints.
func (c *Client) doRequest(ctx context.Context, method, path, token string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("forum: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("forum: failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	request.Header.Set("Accept", "application/json")
	request.Header.Set(RequestIDHeader, requestID)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		request.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("forum: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("forum: failed to read response body: %w", err)
	}
	if int64(len(responseBody)) > maxResponseSize {
		return nil, fmt.Errorf("forum: %s %s: %w (limit %d bytes)", method, path, ErrResponseTooLarge, maxResponseSize)
	}

	c.logger.Debug("forum request",
		"method", method,
		"path", path,
		"status_code", response.StatusCode,
		"request_id", requestID,
	)

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	apiErr := &APIError{
		StatusCode: response.StatusCode,
		Method:     method,
		Path:       path,
	}
	// The reference server sends {"error": "..."}; fall back to the
	// raw body for proxies and framework error pages.
	if jsonErr := json.Unmarshal(responseBody, apiErr); jsonErr != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(responseBody))
	}
	return nil, apiErr
}
