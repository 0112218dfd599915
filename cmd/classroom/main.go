// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command classroom is the command-line and terminal client for a
// classroom discussion server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/classroom/cmd/classroom/commands"
	"github.com/bureau-foundation/classroom/lib/config"
)

func main() {
	if err := run(); err != nil {
		// Commands that already wrote their own output return an
		// ExitError with the desired code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	return commands.Root(&commands.App{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}).Execute(ctx, os.Args[1:])
}
