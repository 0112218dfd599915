// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadPassword reads a password. passwordFile "-" reads the first line
// of stdin; any other non-empty value is a file path. With no file the
// password is prompted for on the terminal with echo disabled, and
// prompt is written to stderr first.
//
// Trailing newlines are stripped (common with echo/printf pipelines).
func ReadPassword(passwordFile string, stdin io.Reader, stderr io.Writer, prompt string) (string, error) {
	switch passwordFile {
	case "-":
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", Internal("reading password from stdin: %w", err)
		}
		return nonEmptyPassword(line, "stdin")

	case "":
		file, ok := stdin.(*os.File)
		if !ok || !term.IsTerminal(int(file.Fd())) {
			return "", Validation("no terminal available for interactive password prompt (use --password-file)")
		}
		fmt.Fprint(stderr, prompt)
		passwordBytes, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return "", Internal("reading password: %w", err)
		}
		return nonEmptyPassword(string(passwordBytes), "the terminal")

	default:
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", Internal("reading %s: %w", passwordFile, err)
		}
		return nonEmptyPassword(string(data), passwordFile)
	}
}

func nonEmptyPassword(value, source string) (string, error) {
	value = strings.TrimRight(value, "\r\n")
	if value == "" {
		return "", Validation("password from %s is empty", source)
	}
	return value, nil
}
