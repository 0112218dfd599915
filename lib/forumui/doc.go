// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package forumui is the full-screen terminal dashboard over a
// dashboard.Controller.
//
// The [Model] follows the Elm architecture of bubbletea. Controller
// calls that touch the network run inside tea.Cmd functions and report
// back with messages, so the Update loop is the only place state
// changes. After a completion message the model re-reads the
// controller's snapshots rather than carrying data in the message.
//
// Layout: a header with the dashboard kind and username, the discussion
// list or (once a discussion is opened) the thread with its compose
// box, a status line fed by [LogHandler], and a help line. Teachers
// also get a form for creating discussions. Bot replies are styled
// apart from human messages and rendered as Markdown with highlighted
// code blocks.
package forumui
