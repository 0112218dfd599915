// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package forum wraps the classroom discussion server's REST API.
//
// The package provides two core types. [Client] is an unauthenticated
// client that handles registration and login. It holds the server base
// URL, HTTP transport, and logger, shared across every [Session] derived
// from it.
//
// [Session] binds a Client to one credential token. Every authorized
// request is built from a Session, which hands its token to the request
// constructor; there is no process-wide Authorization header. A Session
// is immutable once created, so a request in flight always carries the
// token that was active when it was issued, even if the caller logs out
// or logs in as someone else before the response arrives.
//
// The server owns every generated field. [Session.CreateDiscussion] and
// [Session.SendMessage] report only whether the server accepted the
// write; callers re-fetch the list to learn ids, timestamps, and any
// bot reply the write triggered.
//
// All non-2xx responses are returned as [*APIError] carrying the HTTP
// status and the server's error text. [IsStatus] tests for a specific
// status code. Transport failures are wrapped with the method and path.
package forum
