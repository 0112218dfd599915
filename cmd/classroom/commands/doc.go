// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the classroom command tree.
//
// Every command that talks to the server accepts --config, --server,
// and --verbose, loads configuration, opens the durable session store,
// and restores the saved session before running. Output goes to the
// [App] streams so tests can capture it.
package commands
