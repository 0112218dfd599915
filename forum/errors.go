// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forum

import (
	"errors"
	"fmt"
)

// ErrResponseTooLarge is returned when a response body exceeds the
// client's read limit. The body is not decoded.
var ErrResponseTooLarge = errors.New("response body too large")

// APIError is a non-2xx response from the server. Callers can use
// errors.As to extract it:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
//	    ...
//	}
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
	// Message is the server's error text: the "error" field of a JSON
	// error body, or the raw body when the server did not send JSON.
	Message string `json:"error"`
	// Method and Path identify the request that failed.
	Method string `json:"-"`
	Path   string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("forum: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("forum: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == statusCode
	}
	return false
}
