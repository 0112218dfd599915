// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import "github.com/bureau-foundation/classroom/cmd/classroom/cli"

// Root returns the classroom command tree bound to app's streams.
func Root(app *App) *cli.Command {
	return &cli.Command{
		Name:    "classroom",
		Summary: "Classroom discussion client",
		Description: `classroom is a client for a classroom discussion server.

Teachers create discussions; students and teachers post messages in
them. Mention @bot in a message to get an automated reply.

Log in once with "classroom login"; every other command reuses the
saved session until "classroom logout".`,
		HelpOutput: app.Stderr,
		Subcommands: []*cli.Command{
			app.loginCommand(),
			app.registerCommand(),
			app.logoutCommand(),
			app.whoamiCommand(),
			app.dashboardCommand(),
			app.discussionCommand(),
			app.versionCommand(),
		},
	}
}
