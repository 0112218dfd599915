// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forumui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/lib/discussion"
)

const timestampLayout = "2006-01-02 15:04"

func (m Model) View() string {
	sections := []string{m.headerView()}

	switch {
	case m.focus == focusCreate:
		sections = append(sections, m.createView())
	case m.thread.State == discussion.Open:
		sections = append(sections, m.threadHeaderView(), m.threadView.View(), m.composeView())
	default:
		sections = append(sections, m.listView())
	}

	sections = append(sections, m.statusView(), m.helpView())
	return strings.Join(sections, "\n")
}

func (m Model) headerView() string {
	title := "Student Dashboard"
	if m.identity.IsTeacher() {
		title = "Teacher Dashboard"
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground)
	user := lipgloss.NewStyle().Foreground(m.theme.FaintText).
		Render(fmt.Sprintf("%s (%s)", m.identity.Username, m.identity.Role))

	header := style.Render(title) + "  " + user
	if m.loadingList || m.loadingThread || m.sending || m.creating {
		header += lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("  loading…")
	}
	return ansi.Truncate(header, m.width, "…")
}

// listHeight is the number of rows available to discussion entries.
// Each entry takes two rows.
func (m Model) listHeight() int {
	rows := m.height - chromeLines
	if m.focus == focusFilter || m.filter.Value() != "" {
		rows--
	}
	return max(rows, 2)
}

func (m Model) listView() string {
	var lines []string
	if m.focus == focusFilter || m.filter.Value() != "" {
		lines = append(lines, m.filter.View())
	}

	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	if len(m.visible) == 0 {
		switch {
		case m.loadingList:
			lines = append(lines, faint.Render("Loading discussions…"))
		case len(m.all) > 0:
			lines = append(lines, faint.Render("No discussions match the filter."))
		default:
			lines = append(lines, faint.Render("No discussions yet."))
		}
		return m.pad(lines, m.height-chromeLines)
	}

	perPage := max(m.listHeight()/2, 1)
	start := 0
	if m.cursor >= perPage {
		start = m.cursor - perPage + 1
	}
	end := min(start+perPage, len(m.visible))

	for index := start; index < end; index++ {
		match := m.visible[index]
		selected := index == m.cursor

		marker := "  "
		if selected {
			marker = "▸ "
		}
		title := highlightPositions(match.Discussion.Title, match.TitlePositions,
			lipgloss.NewStyle().Foreground(m.theme.MatchHighlight).Bold(true))
		detail := "   " + formatTimestamp(match.Discussion.CreatedAt)
		if preview := firstLine(match.Discussion.Content); preview != "" {
			detail += " · " + preview
		}

		titleLine := ansi.Truncate(marker+title, m.width, "…")
		detailLine := faint.Render(ansi.Truncate(detail, m.width, "…"))
		if selected {
			selectedStyle := lipgloss.NewStyle().
				Background(m.theme.SelectedBackground).
				Foreground(m.theme.SelectedForeground).
				Width(m.width)
			titleLine = selectedStyle.Render(titleLine)
		}
		lines = append(lines, titleLine, detailLine)
	}
	return m.pad(lines, m.height-chromeLines)
}

func (m Model) threadHeaderView() string {
	title := m.thread.Discussion.Title
	if !m.thread.Found {
		title = fmt.Sprintf("Discussion %d", m.thread.Discussion.ID)
	}
	bold := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	rule := lipgloss.NewStyle().Foreground(m.theme.BorderColor).Render(strings.Repeat("─", max(m.width, 1)))
	return strings.Join([]string{
		ansi.Truncate(bold.Render(title), m.width, "…"),
		faint.Render(ansi.Truncate(firstLine(m.thread.Discussion.Content), m.width, "…")),
		rule,
	}, "\n")
}

// threadContent renders every message of the open thread, oldest first.
func (m Model) threadContent() string {
	if len(m.thread.Messages) == 0 {
		if m.loadingThread {
			return lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("Loading messages…")
		}
		return lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("No messages yet. Start the conversation.")
	}

	width := max(m.width-2, 10)
	var blocks []string
	for _, message := range m.thread.Messages {
		blocks = append(blocks, m.messageView(message, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) messageView(message forum.Message, width int) string {
	authorColor := m.theme.OtherAuthor
	switch {
	case message.IsBot:
		authorColor = m.theme.BotAuthor
	case message.UserID == m.identity.ID:
		authorColor = m.theme.OwnAuthor
	}
	author := message.Username
	if author == "" {
		author = fmt.Sprintf("user %d", message.UserID)
	}
	heading := lipgloss.NewStyle().Bold(true).Foreground(authorColor).Render(author) +
		lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("  "+formatTimestamp(message.CreatedAt))

	if !message.IsBot {
		body := lipgloss.NewStyle().Foreground(m.theme.NormalText).
			Render(ansi.Wrap(message.Content, width, wrapBreakpoints))
		return heading + "\n" + body
	}

	body := renderMarkdown(message.Content, m.theme, width-2)
	gutter := lipgloss.NewStyle().Foreground(m.theme.BotBorder).Render("│ ")
	lines := strings.Split(body, "\n")
	return heading + "\n" + strings.Join(prefixLines(lines, gutter, gutter), "\n")
}

func (m Model) composeView() string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), true, false).
		BorderForeground(m.theme.BorderColor)
	if m.focus == focusCompose {
		border = border.BorderForeground(m.theme.HeaderForeground)
	}
	view := border.Render(m.compose.View())
	if m.focus == focusCompose && forum.MentionsBot(m.compose.Value()) {
		hint := lipgloss.NewStyle().Foreground(m.theme.BotAuthor).
			Render("The bot will reply to this message.")
		view += "\n" + hint
	}
	return view
}

func (m Model) createView() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground).Render("New discussion")
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.BorderColor)
	return strings.Join([]string{
		heading,
		m.createTitle.View(),
		border.Render(m.createContent.View()),
	}, "\n")
}

func (m Model) statusView() string {
	if m.status == "" {
		return ""
	}
	color := m.theme.FaintText
	switch {
	case m.statusLevel >= slog.LevelError:
		color = m.theme.ErrorText
	case m.statusLevel >= slog.LevelWarn:
		color = m.theme.WarnText
	}
	return lipgloss.NewStyle().Foreground(color).Render(ansi.Truncate(m.status, m.width, "…"))
}

func (m Model) helpView() string {
	var bindings []key.Binding
	switch {
	case m.focus == focusFilter:
		bindings = []key.Binding{m.keys.Open, m.keys.Back}
	case m.focus == focusCompose:
		bindings = []key.Binding{m.keys.Submit, m.keys.Back}
	case m.focus == focusCreate:
		bindings = []key.Binding{m.keys.NextField, m.keys.Submit, m.keys.Back}
	case m.thread.State == discussion.Open:
		bindings = []key.Binding{m.keys.Compose, m.keys.Refresh, m.keys.Back, m.keys.Logout, m.keys.Quit}
	default:
		bindings = []key.Binding{m.keys.Open, m.keys.Filter, m.keys.Refresh}
		if m.creator != nil {
			bindings = append(bindings, m.keys.Create)
		}
		bindings = append(bindings, m.keys.Logout, m.keys.Quit)
	}

	keyStyle := lipgloss.NewStyle().Foreground(m.theme.NormalText)
	descStyle := lipgloss.NewStyle().Foreground(m.theme.HelpText)
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, keyStyle.Render(help.Key)+" "+descStyle.Render(help.Desc))
	}
	return ansi.Truncate(strings.Join(parts, descStyle.Render(" · ")), m.width, "…")
}

func (m Model) pad(lines []string, height int) string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// highlightPositions styles the runes of text at positions.
func highlightPositions(text string, positions []int, style lipgloss.Style) string {
	if len(positions) == 0 {
		return text
	}
	marked := make(map[int]bool, len(positions))
	for _, position := range positions {
		marked[position] = true
	}
	var builder strings.Builder
	for index, r := range []rune(text) {
		if marked[index] {
			builder.WriteString(style.Render(string(r)))
		} else {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// formatTimestamp renders a server timestamp in local time, or the raw
// value when it does not parse.
func formatTimestamp(value string) string {
	parsed, err := forum.ParseTimestamp(value)
	if err != nil {
		return value
	}
	return parsed.Local().Format(timestampLayout)
}

func firstLine(content string) string {
	content = strings.TrimSpace(content)
	if index := strings.IndexByte(content, '\n'); index >= 0 {
		return strings.TrimSpace(content[:index])
	}
	return content
}
