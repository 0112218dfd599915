// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/version"
)

type versionOutput struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildTime string `json:"build_time"`
	Go        string `json:"go"`
}

func (a *App) versionCommand() *cli.Command {
	var output cli.JSONOutput

	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Usage:   "classroom version [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			output.AddJSONFlag(flagSet)
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if done, err := output.EmitJSON(a.Stdout, versionOutput{
				Version:   version.Version,
				Commit:    version.GitCommit,
				Dirty:     version.GitDirty == "true",
				BuildTime: version.BuildTime,
				Go:        runtime.Version(),
			}); done {
				return err
			}
			a.printf("%s\n", version.Full())
			return nil
		},
	}
}
