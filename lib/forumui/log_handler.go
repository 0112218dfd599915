// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forumui

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg carries a log record into the model for the status line.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// statusFadeMsg clears the status line if nothing newer replaced it.
type statusFadeMsg struct {
	sequence int
}

const statusFadeDelay = 6 * time.Second

// LogHandler is a slog.Handler that delivers records at or above its
// level to a bubbletea program, where they appear in the status line.
// This is how fetch and send failures reach the user.
//
// Records that arrive before SetProgram are dropped. Handlers derived
// through WithAttrs and WithGroup share the program binding.
type LogHandler struct {
	level   slog.Leveler
	program *atomic.Pointer[tea.Program]
	prefix  string
	attrs   []string
}

// NewLogHandler returns a handler for records at level and above.
func NewLogHandler(level slog.Leveler) *LogHandler {
	return &LogHandler{level: level, program: &atomic.Pointer[tea.Program]{}}
}

// SetProgram binds the receiving program. Safe from any goroutine.
func (h *LogHandler) SetProgram(program *tea.Program) {
	h.program.Store(program)
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}

	parts := append([]string(nil), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, h.prefix+formatAttr(attr))
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	program.Send(logRecordMsg{Summary: summary, Level: record.Level})
	return nil
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append([]string(nil), h.attrs...)
	for _, attr := range attrs {
		derived.attrs = append(derived.attrs, h.prefix+formatAttr(attr))
	}
	return &derived
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.attrs = append([]string(nil), h.attrs...)
	derived.prefix = h.prefix + name + "."
	return &derived
}

func formatAttr(attr slog.Attr) string {
	return attr.Key + "=" + attr.Value.String()
}
