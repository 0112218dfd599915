// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package localstore provides small durable key-value stores for client
// state that must survive a restart: the credential token and the
// serialized identity.
//
// Every backend implements [Store]:
//
//   - [Memory] keeps values in a map and is meant for tests.
//   - [File] keeps one JSON object on disk, rewritten atomically on each
//     change, with owner-only permissions.
//   - [SQLite] keeps a kv table in a SQLite database through a
//     connection pool.
//   - [Sealed] wraps another Store and age-encrypts the values of
//     selected keys, so the token is never at rest in plaintext.
//
// [Open] builds the backend described by a [Config].
package localstore
