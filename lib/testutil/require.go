// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// Timeout is how long a helper waits before failing the test. It only
// guards against hangs; passing tests never wait this long.
var Timeout = 5 * time.Second

// RequireClosed waits for ch to be closed (or to deliver a value).
//
//	testutil.RequireClosed(t, controller.Done(), "controller closed after logout")
func RequireClosed(t testing.TB, ch <-chan struct{}, what string, args ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(Timeout):
		t.Fatalf("timed out after %v: %s", Timeout, fmt.Sprintf(what, args...))
	}
}

// RequireReceive returns the next value from ch. A channel closed
// without a value fails the test.
//
//	result := testutil.RequireReceive(t, results, "send result")
func RequireReceive[T any](t testing.TB, ch <-chan T, what string, args ...any) T {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without a value: %s", fmt.Sprintf(what, args...))
		}
		return value
	case <-time.After(Timeout):
		t.Fatalf("timed out after %v: %s", Timeout, fmt.Sprintf(what, args...))
	}
	panic("unreachable")
}
