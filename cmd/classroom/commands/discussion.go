// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/lib/discussion"
)

func (a *App) discussionCommand() *cli.Command {
	return &cli.Command{
		Name:    "discussion",
		Summary: "List, read, and post to discussions",
		Description: `Work with discussions from the command line.

Every subcommand fetches fresh state from the server; nothing is cached
between invocations except the session.`,
		Subcommands: []*cli.Command{
			a.discussionListCommand(),
			a.discussionCreateCommand(),
			a.discussionShowCommand(),
			a.discussionSendCommand(),
		},
	}
}

func (a *App) discussionListCommand() *cli.Command {
	var (
		connection connectionFlags
		output     cli.JSONOutput
	)

	return &cli.Command{
		Name:    "list",
		Summary: "List discussions",
		Usage:   "classroom discussion list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			output.AddJSONFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			env, err := a.open(connection)
			if err != nil {
				return err
			}
			defer env.Close()

			credential, _, err := env.requireSession()
			if err != nil {
				return err
			}

			list := discussion.NewListCache(credential, env.logger)
			if err := list.Refresh(ctx); err != nil {
				return cli.Classify(err)
			}
			discussions := list.Discussions()

			if done, err := output.EmitJSON(a.Stdout, discussions); done {
				return err
			}

			if len(discussions) == 0 {
				a.notef("No discussions yet.\n")
				return nil
			}
			writer := tabwriter.NewWriter(a.Stdout, 2, 0, 3, ' ', 0)
			writeRow(writer, "ID", "CREATED", "TITLE")
			for _, item := range discussions {
				writeRow(writer, strconv.FormatInt(item.ID, 10), displayTime(item.CreatedAt), item.Title)
			}
			return writer.Flush()
		},
	}
}

func (a *App) discussionCreateCommand() *cli.Command {
	var (
		connection connectionFlags
		content    string
	)

	return &cli.Command{
		Name:    "create",
		Summary: "Create a discussion (teachers only)",
		Description: `Create a discussion and print the refreshed list.

Only teachers can create discussions. The server assigns the id and the
creation time.`,
		Usage: "classroom discussion create <title> [--content <text>] [flags]",
		Examples: []cli.Example{
			{
				Description: "Open a discussion for this week's reading",
				Command:     "classroom discussion create \"Week 1\" --content \"Read chapter one\"",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			flagSet.StringVar(&content, "content", "", "opening text of the discussion")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return cli.Validation("title is required\n\nUsage: classroom discussion create <title> [flags]")
			}
			title := strings.Join(args, " ")

			env, err := a.open(connection)
			if err != nil {
				return err
			}
			defer env.Close()

			credential, identity, err := env.requireSession()
			if err != nil {
				return err
			}
			if !identity.IsTeacher() {
				return cli.Forbidden("only teachers can create discussions (logged in as %s, a %s)", identity.Username, identity.Role)
			}

			list := discussion.NewListCache(credential, env.logger)
			err = list.Create(ctx, title, content)
			switch {
			case errors.Is(err, discussion.ErrRefetchFailed):
				a.notef("Created %q, but reloading the list failed: %v\n", title, err)
				return nil
			case err != nil:
				return cli.Classify(err)
			}

			a.notef("Created %q.\n", title)
			// Titles need not be unique; the server assigns increasing
			// ids, so the newest match is the one just created.
			var newest int64
			for _, item := range list.Discussions() {
				if item.Title == title && item.ID > newest {
					newest = item.ID
				}
			}
			if newest != 0 {
				a.printf("%d\n", newest)
			}
			return nil
		},
	}
}

func (a *App) discussionShowCommand() *cli.Command {
	var (
		connection connectionFlags
		output     cli.JSONOutput
	)

	return &cli.Command{
		Name:    "show",
		Summary: "Show the messages of a discussion",
		Usage:   "classroom discussion show <id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			output.AddJSONFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one discussion id is required\n\nUsage: classroom discussion show <id> [flags]")
			}
			discussionID, err := parseDiscussionID(args[0])
			if err != nil {
				return err
			}

			env, err := a.open(connection)
			if err != nil {
				return err
			}
			defer env.Close()

			credential, _, err := env.requireSession()
			if err != nil {
				return err
			}

			// The server answers an empty thread for unknown ids, so the
			// list decides whether the discussion exists.
			list := discussion.NewListCache(credential, env.logger)
			if err := list.Refresh(ctx); err != nil {
				return cli.Classify(err)
			}
			header, found := list.Find(discussionID)
			if !found {
				return cli.NotFound("no discussion with id %d", discussionID)
			}

			thread := discussion.NewThreadCache(credential, env.logger)
			if err := thread.Open(ctx, discussionID); err != nil {
				return cli.Classify(err)
			}
			return a.printThread(&output, discussionID, header, thread.Messages())
		},
	}
}

func (a *App) discussionSendCommand() *cli.Command {
	var (
		connection connectionFlags
		output     cli.JSONOutput
	)

	return &cli.Command{
		Name:    "send",
		Summary: "Post a message to a discussion",
		Description: `Post a message and print the discussion as the server now has it.

Mention ` + forum.BotMention + ` anywhere in the message to ask the bot; its reply is
part of the refreshed thread.`,
		Usage: "classroom discussion send <id> <message...> [flags]",
		Examples: []cli.Example{
			{
				Description: "Ask the bot a question",
				Command:     "classroom discussion send 1 \"@bot explain recursion\"",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("send", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			output.AddJSONFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) < 2 {
				return cli.Validation("a discussion id and a message are required\n\nUsage: classroom discussion send <id> <message...> [flags]")
			}
			discussionID, err := parseDiscussionID(args[0])
			if err != nil {
				return err
			}
			content := strings.Join(args[1:], " ")

			env, err := a.open(connection)
			if err != nil {
				return err
			}
			defer env.Close()

			credential, _, err := env.requireSession()
			if err != nil {
				return err
			}

			thread := discussion.NewThreadCache(credential, env.logger)
			thread.Select(discussionID)
			err = thread.Send(ctx, content)
			switch {
			case errors.Is(err, discussion.ErrEmptyContent):
				return cli.Validation("message is empty")
			case errors.Is(err, discussion.ErrRefetchFailed):
				a.notef("Message sent, but reloading the discussion failed: %v\n", err)
				return nil
			case err != nil:
				return cli.Classify(err)
			}

			if forum.MentionsBot(content) && !output.OutputJSON {
				a.notef("Message mentions %s; the bot's reply appears in the thread.\n", forum.BotMention)
			}
			return a.printThread(&output, discussionID, forum.Discussion{}, thread.Messages())
		},
	}
}

// threadOutput is the JSON output of show and send.
type threadOutput struct {
	Discussion *forum.Discussion `json:"discussion,omitempty"`
	Messages   []forum.Message   `json:"messages"`
}

func (a *App) printThread(output *cli.JSONOutput, discussionID int64, header forum.Discussion, messages []forum.Message) error {
	result := threadOutput{Messages: messages}
	if header.ID != 0 {
		result.Discussion = &header
	}
	if result.Messages == nil {
		result.Messages = []forum.Message{}
	}
	if done, err := output.EmitJSON(a.Stdout, result); done {
		return err
	}

	if header.ID != 0 {
		a.printf("# %s\n", header.Title)
		if header.Content != "" {
			a.printf("%s\n", header.Content)
		}
		a.printf("\n")
	}
	if len(messages) == 0 {
		a.notef("No messages in discussion %d yet.\n", discussionID)
		return nil
	}
	for _, message := range messages {
		author := message.Username
		if message.IsBot {
			author += " [bot]"
		}
		a.printf("%s  %s\n", author, displayTime(message.CreatedAt))
		for _, line := range strings.Split(message.Content, "\n") {
			a.printf("  %s\n", line)
		}
		a.printf("\n")
	}
	return nil
}

func writeRow(writer *tabwriter.Writer, columns ...string) {
	writer.Write([]byte(strings.Join(columns, "\t") + "\n"))
}

func parseDiscussionID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, cli.Validation("invalid discussion id %q", value)
	}
	return id, nil
}

// displayTime renders a server timestamp in local time, or the raw value
// when it does not parse.
func displayTime(value string) string {
	parsed, err := forum.ParseTimestamp(value)
	if err != nil {
		return value
	}
	return parsed.Local().Format(time.DateTime)
}
