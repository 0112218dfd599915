// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forumui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/classroom/lib/dashboard"
)

// Result describes how a dashboard session ended.
type Result struct {
	// LoggedOut is true when the user logged out (or the session ended
	// elsewhere) rather than quitting.
	LoggedOut bool
}

// Run shows the dashboard until the user quits, the session logs out,
// or ctx is cancelled. The controller is closed before Run returns.
func Run(ctx context.Context, controller dashboard.Controller, options Options) (Result, error) {
	defer controller.Close()

	model := NewModel(ctx, controller, options)
	programOptions := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	}, options.ProgramOptions...)
	program := tea.NewProgram(model, programOptions...)

	if options.LogHandler != nil {
		options.LogHandler.SetProgram(program)
		defer options.LogHandler.SetProgram(nil)
	}

	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}

	var result Result
	if finalModel, ok := final.(Model); ok {
		result.LoggedOut = finalModel.LoggedOut()
	}
	return result, nil
}
