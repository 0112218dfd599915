// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forumui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the dashboard palette. Colors are ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Message authors.
	OwnAuthor   lipgloss.Color
	OtherAuthor lipgloss.Color
	BotAuthor   lipgloss.Color
	BotBorder   lipgloss.Color

	// Status line levels.
	WarnText  lipgloss.Color
	ErrorText lipgloss.Color

	MatchHighlight lipgloss.Color

	// CodeStyle is the chroma style used for fenced code in bot replies.
	CodeStyle string
}

// DarkTheme suits dark terminal backgrounds.
var DarkTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	OwnAuthor:   lipgloss.Color("114"),
	OtherAuthor: lipgloss.Color("75"),
	BotAuthor:   lipgloss.Color("141"),
	BotBorder:   lipgloss.Color("97"),

	WarnText:  lipgloss.Color("220"),
	ErrorText: lipgloss.Color("196"),

	MatchHighlight: lipgloss.Color("220"),

	CodeStyle: "monokai",
}

// LightTheme suits light terminal backgrounds.
var LightTheme = Theme{
	NormalText: lipgloss.Color("235"),
	FaintText:  lipgloss.Color("242"),

	SelectedBackground: lipgloss.Color("254"),
	SelectedForeground: lipgloss.Color("232"),

	HeaderForeground: lipgloss.Color("232"),
	BorderColor:      lipgloss.Color("248"),
	HelpText:         lipgloss.Color("244"),

	OwnAuthor:   lipgloss.Color("28"),
	OtherAuthor: lipgloss.Color("25"),
	BotAuthor:   lipgloss.Color("92"),
	BotBorder:   lipgloss.Color("140"),

	WarnText:  lipgloss.Color("130"),
	ErrorText: lipgloss.Color("160"),

	MatchHighlight: lipgloss.Color("166"),

	CodeStyle: "github",
}

// ThemeByName returns the named theme ("dark" or "light"). Empty means
// dark.
func ThemeByName(name string) (Theme, error) {
	switch name {
	case "", "dark":
		return DarkTheme, nil
	case "light":
		return LightTheme, nil
	default:
		return Theme{}, fmt.Errorf("forumui: unknown theme %q (expected dark or light)", name)
	}
}
