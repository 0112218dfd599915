// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/lib/dashboard"
	"github.com/bureau-foundation/classroom/lib/discussion"
	"github.com/bureau-foundation/classroom/lib/session"
)

// ErrorCategory classifies command errors so that scripts can make
// decisions (retry, fix input, log in again) without parsing error
// message text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// missing required arguments, wrong argument count, unparseable
	// values. The caller should fix the input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not exist,
	// such as an unknown discussion ID.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates the caller is not logged in, the
	// credential was rejected, or the role lacks permission.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryTransient indicates a temporary failure: network error,
	// timeout, server error. The caller may retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected error: bugs, local I/O
	// failures, unusable local state.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error returned by CLI commands. It wraps
// an inner error, preserving the full error chain for debugging. Use the
// category-specific constructors (Validation, NotFound, etc.) rather
// than constructing ToolError directly.
type ToolError struct {
	// Category classifies the error for programmatic handling.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error
}

// Error returns the underlying error message. The category is not
// included in the string.
func (e *ToolError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error, allowing errors.Is and
// errors.As to walk the full chain through the ToolError wrapper.
func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced resource does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error: the caller lacks permission.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may succeed on retry.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// CategoryOf returns the category of err, or "" when err carries none.
func CategoryOf(err error) ErrorCategory {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category
	}
	return ""
}

// Classify wraps err in a ToolError chosen from what the error chain
// says about the failure. Errors that are already categorized pass
// through unchanged, as does nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return err
	}

	category := CategoryTransient
	var apiErr *forum.APIError
	switch {
	case errors.As(err, &apiErr):
		category = categoryForStatus(apiErr.StatusCode)
	case errors.Is(err, session.ErrLoginFailed):
		category = CategoryForbidden
	case errors.Is(err, session.ErrRegistrationFailed):
		category = CategoryValidation
	case errors.Is(err, dashboard.ErrNotLoggedIn):
		category = CategoryForbidden
	case errors.Is(err, discussion.ErrEmptyContent):
		category = CategoryValidation
	case errors.Is(err, discussion.ErrNotOpen):
		category = CategoryInternal
	}
	return &ToolError{Category: category, Err: err}
}

func categoryForStatus(statusCode int) ErrorCategory {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return CategoryForbidden
	case statusCode == http.StatusNotFound:
		return CategoryNotFound
	case statusCode >= 400 && statusCode < 500:
		return CategoryValidation
	default:
		return CategoryTransient
	}
}
