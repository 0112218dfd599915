// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/dashboard"
	"github.com/bureau-foundation/classroom/lib/forumui"
)

func (a *App) dashboardCommand() *cli.Command {
	var (
		connection connectionFlags
		theme      string
	)

	return &cli.Command{
		Name:    "dashboard",
		Summary: "Open the interactive dashboard",
		Description: `Open the full-screen dashboard for the saved session.

Students browse discussions, read threads, and post messages. Teachers
can also create discussions. Log output is shown on the status line
instead of stderr while the dashboard is open.

The help line lists the key bindings. L logs out; q quits and
keeps the session.`,
		Usage: "classroom dashboard [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			flagSet.StringVar(&theme, "theme", "", "color theme: dark or light (default: ui.theme from the configuration)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			cfg, err := connection.loadConfig()
			if err != nil {
				return err
			}
			if theme == "" {
				theme = cfg.UI.Theme
			}
			selected, err := forumui.ThemeByName(theme)
			if err != nil {
				return cli.Validation("%w", err)
			}

			handler := forumui.NewLogHandler(connection.level(cfg))
			env, err := a.openWith(cfg, slog.New(handler))
			if err != nil {
				return err
			}
			defer env.Close()

			controller, err := dashboard.New(env.store, dashboard.Config{Logger: env.logger})
			if errors.Is(err, dashboard.ErrNotLoggedIn) {
				return cli.Forbidden("not logged in; run \"classroom login <username>\" first")
			}
			if err != nil {
				return cli.Internal("%w", err)
			}

			result, err := forumui.Run(ctx, controller, forumui.Options{
				Theme:      selected,
				LogHandler: handler,
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return cli.Internal("dashboard: %w", err)
			}
			if result.LoggedOut {
				a.notef("Logged out.\n")
			}
			return nil
		},
	}
}
