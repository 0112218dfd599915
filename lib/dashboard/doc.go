// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard orchestrates user actions against the discussion
// caches for one logged-in user.
//
// [New] picks the variant from the session's role: students get a
// [Viewer], teachers get an [Author], which can also create
// discussions. Both satisfy [Controller]; only Author satisfies
// [Creator].
//
// The controller is the error boundary. Fetch and write failures are
// logged by the caches and never returned from here; write operations
// report only whether the server accepted the write.
//
// A controller lives until Close or until the session logs out,
// whichever comes first. Every request it issues derives from a base
// context that ends then, and both caches are reset, so no response
// lands after the controller is gone. Operations on a closed controller
// do nothing.
package dashboard
