// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for classroom packages.
//
// [RequireClosed] and [RequireReceive] wrap the select-with-timeout
// pattern for tests that wait on goroutines, so individual tests do not
// call time.After directly. [Timeout] bounds every wait.
//
// Helpers call t.Fatalf on failure rather than returning errors.
//
// This package depends on no other classroom packages.
package testutil
