// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the classroom client.
//
// Configuration comes from at most one file, named by the
// CLASSROOM_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). A .env file in the working directory may set
// CLASSROOM_CONFIG; see [LoadDotEnv]. With no file, [Default] applies:
// the client works against a local server with zero setup.
//
// Files are YAML, or JSON with comments and trailing commas when the
// name ends in .json or .jsonc.
//
// The file may contain environment-specific sections (development,
// production) that override base values when [Config].Environment
// matches. Path fields expand ${HOME}, ${XDG_CONFIG_HOME}, and
// ${VAR:-default}. No other environment variables override values.
//
// Key exports:
//
//   - [Config] -- master struct with Server, Storage, Log, UI
//   - [Default] -- the zero-setup configuration
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other classroom packages.
package config
