// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestEmitJSON(t *testing.T) {
	t.Run("flag unset", func(t *testing.T) {
		var output JSONOutput
		var buffer bytes.Buffer
		done, err := output.EmitJSON(&buffer, map[string]int{"a": 1})
		if done || err != nil {
			t.Fatalf("EmitJSON = (%v, %v), want (false, nil)", done, err)
		}
		if buffer.Len() != 0 {
			t.Errorf("wrote %q without --json", buffer.String())
		}
	})

	t.Run("flag set", func(t *testing.T) {
		var output JSONOutput
		flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
		output.AddJSONFlag(flagSet)
		if err := flagSet.Parse([]string{"--json"}); err != nil {
			t.Fatalf("Parse: %v", err)
		}

		var buffer bytes.Buffer
		done, err := output.EmitJSON(&buffer, struct {
			Title string `json:"title"`
		}{Title: "Intro"})
		if !done || err != nil {
			t.Fatalf("EmitJSON = (%v, %v), want (true, nil)", done, err)
		}
		if buffer.String() != "{\n  \"title\": \"Intro\"\n}\n" {
			t.Errorf("output = %q", buffer.String())
		}
	})

	t.Run("nil slice", func(t *testing.T) {
		output := JSONOutput{OutputJSON: true}
		var buffer bytes.Buffer
		var items []string
		if _, err := output.EmitJSON(&buffer, items); err != nil {
			t.Fatalf("EmitJSON: %v", err)
		}
		if strings.TrimSpace(buffer.String()) != "[]" {
			t.Errorf("output = %q, want []", buffer.String())
		}
	})
}
