// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/session"
)

func (a *App) loginCommand() *cli.Command {
	var (
		connection   connectionFlags
		passwordFile string
	)

	return &cli.Command{
		Name:    "login",
		Summary: "Log in and save the session",
		Description: `Log in to the discussion server and save the session locally.

After login, the other commands use the saved session transparently. The
session (token and identity) is stored according to the storage section
of the configuration; with storage.sealed the token is encrypted at rest.

The password can be provided via --password-file (a path, or - to read
the first line of stdin) or is prompted for on the terminal.`,
		Usage: "classroom login <username> [flags]",
		Examples: []cli.Example{
			{
				Description: "Log in interactively (prompts for password)",
				Command:     "classroom login alice",
			},
			{
				Description: "Log in against a specific server",
				Command:     "classroom login alice --server http://school.example:5000/api",
			},
			{
				Description: "Log in with the password on stdin",
				Command:     "printf '%s\\n' \"$PASSWORD\" | classroom login alice --password-file -",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("login", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			flagSet.StringVar(&passwordFile, "password-file", "", "file containing the password, or - for stdin (default: prompt)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) < 1 {
				return cli.Validation("username is required\n\nUsage: classroom login <username> [flags]")
			}
			if len(args) > 1 {
				return cli.Validation("unexpected argument: %s", args[1])
			}
			username := args[0]

			password, err := cli.ReadPassword(passwordFile, a.Stdin, a.Stderr, "Password: ")
			if err != nil {
				return err
			}

			env, err := a.open(connection)
			if err != nil {
				return err
			}
			defer env.Close()

			identity, err := env.store.Login(ctx, username, password)
			if err != nil {
				return cli.Classify(err)
			}

			a.notef("Logged in as %s (%s) on %s\n", identity.Username, identity.Role, env.config.Server.URL)
			return nil
		},
	}
}

func (a *App) registerCommand() *cli.Command {
	var (
		connection   connectionFlags
		passwordFile string
		role         string
	)

	return &cli.Command{
		Name:    "register",
		Summary: "Create an account",
		Description: `Create a student or teacher account on the discussion server.

Registration does not log in; run "classroom login" afterwards. Only
teachers can create discussions.`,
		Usage: "classroom register <username> [--role student|teacher] [flags]",
		Examples: []cli.Example{
			{
				Description: "Register a teacher account",
				Command:     "classroom register mrs-t --role teacher",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("register", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			flagSet.StringVar(&passwordFile, "password-file", "", "file containing the password, or - for stdin (default: prompt)")
			flagSet.StringVar(&role, "role", string(session.RoleStudent), "account role: student or teacher")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) < 1 {
				return cli.Validation("username is required\n\nUsage: classroom register <username> [flags]")
			}
			if len(args) > 1 {
				return cli.Validation("unexpected argument: %s", args[1])
			}
			username := args[0]

			parsedRole, err := session.ParseRole(role)
			if err != nil {
				return cli.Validation("%w", err)
			}

			password, err := cli.ReadPassword(passwordFile, a.Stdin, a.Stderr, "New password: ")
			if err != nil {
				return err
			}

			env, err := a.open(connection)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.store.Register(ctx, username, password, parsedRole); err != nil {
				return cli.Classify(err)
			}

			a.notef("Registered %s as a %s. Run \"classroom login %s\" to start.\n", username, parsedRole, username)
			return nil
		},
	}
}

func (a *App) logoutCommand() *cli.Command {
	var connection connectionFlags

	return &cli.Command{
		Name:    "logout",
		Summary: "Forget the saved session",
		Description: `Remove the saved token and identity.

Logout is local: the server is not contacted. It succeeds whether or not
a session was saved.`,
		Usage: "classroom logout [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("logout", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			env, err := a.open(connection)
			if err != nil {
				return err
			}
			defer env.Close()

			previous := env.store.Identity()
			env.store.Logout()
			if previous == nil {
				a.notef("Not logged in.\n")
				return nil
			}
			a.notef("Logged out %s.\n", previous.Username)
			return nil
		},
	}
}

// whoamiOutput is the JSON output for the whoami command.
type whoamiOutput struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username"`
	Role             string     `json:"role"`
	Server           string     `json:"server"`
	TokenFingerprint string     `json:"token_fingerprint"`
	Subject          string     `json:"subject,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

func (a *App) whoamiCommand() *cli.Command {
	var (
		connection connectionFlags
		output     cli.JSONOutput
	)

	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the logged-in identity",
		Description: `Display the identity of the saved session.

Only local state is read; the server is not contacted. When the token is
a JWT, its subject and expiry are shown for information. The token is
not verified and an expired token is not treated specially.`,
		Usage: "classroom whoami [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("whoami", pflag.ContinueOnError)
			connection.AddFlags(flagSet)
			output.AddJSONFlag(flagSet)
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			env, err := a.open(connection)
			if err != nil {
				return err
			}
			defer env.Close()

			credential, identity, err := env.requireSession()
			if err != nil {
				return err
			}

			result := whoamiOutput{
				ID:               identity.ID,
				Username:         identity.Username,
				Role:             string(identity.Role),
				Server:           env.config.Server.URL,
				TokenFingerprint: session.Fingerprint(credential.Token()),
			}
			result.Subject, result.ExpiresAt = tokenClaims(credential.Token())

			if done, err := output.EmitJSON(a.Stdout, result); done {
				return err
			}

			a.printf("User:        %s (id %d)\n", result.Username, result.ID)
			a.printf("Role:        %s\n", result.Role)
			a.printf("Server:      %s\n", result.Server)
			a.printf("Token:       %s\n", result.TokenFingerprint)
			if result.Subject != "" {
				a.printf("Subject:     %s\n", result.Subject)
			}
			if result.ExpiresAt != nil {
				a.printf("Expires:     %s\n", result.ExpiresAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}

// tokenClaims decodes the subject and expiry of a JWT without verifying
// it. Tokens that are not JWTs yield zero values.
func tokenClaims(token string) (string, *time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", nil
	}
	subject, _ := claims.GetSubject()
	var expiresAt *time.Time
	if expiry, err := claims.GetExpirationTime(); err == nil && expiry != nil {
		expiresAt = &expiry.Time
	}
	return subject, expiresAt
}
