// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session holds the authenticated identity and its credential
// token.
//
// A [Store] persists the (token, identity) pair in a localstore.Store
// under the keys "token" and "user", restores it on start, and exposes
// the active credential as an immutable forum.Session. Presence is
// all-or-nothing: a token without a valid identity, or an identity
// without a token, is the logged-out state.
//
// Login and registration failures are normalized to [ErrLoginFailed]
// and [ErrRegistrationFailed]. The underlying cause is logged and
// included in the message text, but callers cannot branch on it.
//
// Observers registered with [Store.Subscribe] are told about every
// identity change, so dashboards react to login and logout without
// polling.
package session
