// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
)

// Role is the server-assigned role of an account.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// ParseRole converts a server or user supplied role string.
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.Valid() {
		return "", fmt.Errorf("session: unknown role %q (expected %q or %q)", value, RoleStudent, RoleTeacher)
	}
	return role, nil
}

// Identity is the authenticated user. The username is the one the user
// typed at login; id and role come from the server.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsTeacher reports whether the identity may author discussions.
func (i Identity) IsTeacher() bool {
	return i.Role == RoleTeacher
}

func (i Identity) valid() bool {
	return i.Username != "" && i.Role.Valid()
}

func (i Identity) encode() (string, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return "", fmt.Errorf("session: encoding identity: %w", err)
	}
	return string(data), nil
}

func decodeIdentity(value string) (Identity, error) {
	var identity Identity
	if err := json.Unmarshal([]byte(value), &identity); err != nil {
		return Identity{}, fmt.Errorf("session: decoding identity: %w", err)
	}
	if !identity.valid() {
		return Identity{}, fmt.Errorf("session: stored identity %q is incomplete", value)
	}
	return identity, nil
}
