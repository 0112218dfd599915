// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forumui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

const wrapBreakpoints = " ,.;-+|"

// renderMarkdown renders bot reply content for the terminal at width
// columns. Each block renders to a list of lines; containers (quotes,
// lists) prefix their children's lines. Soft line breaks reflow.
func renderMarkdown(input string, theme Theme, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := parser().Parser().Parse(text.NewReader(source))

	// The dashboard always draws to a terminal; forcing the profile
	// keeps output colored when stdout is not a tty (tests, pipes).
	styles := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	styles.SetColorProfile(termenv.ANSI256)

	renderer := &markdownRenderer{source: source, theme: theme, styles: styles}
	return strings.Join(renderer.blocks(document, width), "\n")
}

type markdownRenderer struct {
	source []byte
	theme  Theme
	styles *lipgloss.Renderer
}

func (r *markdownRenderer) style() lipgloss.Style {
	return r.styles.NewStyle()
}

// blocks renders every child block of parent, separated by blank lines.
func (r *markdownRenderer) blocks(parent ast.Node, width int) []string {
	var lines []string
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		rendered := r.block(child, width)
		if len(rendered) == 0 {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, rendered...)
	}
	return lines
}

func (r *markdownRenderer) block(node ast.Node, width int) []string {
	if width < 10 {
		width = 10
	}
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return r.wrap(r.inline(node, inlineStyle{}), width)

	case *ast.Heading:
		content := ansi.Strip(r.inline(node, inlineStyle{}))
		heading := r.style().Bold(true).Foreground(r.theme.HeaderForeground)
		if node.Level > 2 {
			heading = heading.Foreground(r.theme.NormalText)
		}
		return r.wrap(heading.Render(content), width)

	case *ast.FencedCodeBlock:
		return r.code(r.lines(node), string(node.Language(r.source)))

	case *ast.CodeBlock:
		return r.code(r.lines(node), "")

	case *ast.Blockquote:
		bar := r.style().Foreground(r.theme.BorderColor).Render("│ ")
		return prefixLines(r.blocks(node, width-2), bar, bar)

	case *ast.List:
		return r.list(node, width)

	case *ast.ThematicBreak:
		return []string{r.style().Foreground(r.theme.BorderColor).Render(strings.Repeat("─", width))}

	case *ast.HTMLBlock:
		raw := strings.TrimSpace(r.lines(node))
		if raw == "" {
			return nil
		}
		return r.wrap(r.style().Foreground(r.theme.FaintText).Render(raw), width)

	case *extast.Table:
		return r.table(node)

	default:
		return r.blocks(node, width)
	}
}

func (r *markdownRenderer) list(list *ast.List, width int) []string {
	var lines []string
	number := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		bullet := "- "
		if list.IsOrdered() {
			bullet = fmt.Sprintf("%d. ", number)
			number++
		}
		indent := strings.Repeat(" ", len(bullet))

		var itemLines []string
		if list.IsTight {
			for child := item.FirstChild(); child != nil; child = child.NextSibling() {
				itemLines = append(itemLines, r.block(child, width-len(bullet))...)
			}
		} else {
			itemLines = r.blocks(item, width-len(bullet))
			if len(lines) > 0 {
				lines = append(lines, "")
			}
		}
		lines = append(lines, prefixLines(itemLines, bullet, indent)...)
	}
	return lines
}

// code highlights source with chroma, falling back to faint plain text
// when the language is unknown or missing.
func (r *markdownRenderer) code(source, language string) []string {
	source = strings.TrimRight(source, "\n")
	highlighted := ""
	if language != "" {
		var buffer strings.Builder
		if err := quick.Highlight(&buffer, source, language, "terminal256", r.theme.CodeStyle); err == nil {
			highlighted = strings.TrimRight(buffer.String(), "\n")
		}
	}
	if highlighted == "" {
		faint := r.style().Foreground(r.theme.FaintText)
		var plain []string
		for _, line := range strings.Split(source, "\n") {
			plain = append(plain, faint.Render(line))
		}
		return prefixLines(plain, "  ", "  ")
	}
	return prefixLines(strings.Split(highlighted, "\n"), "  ", "  ")
}

// table renders rows as pipe-separated cells, without column sizing.
func (r *markdownRenderer) table(table *extast.Table) []string {
	separator := r.style().Foreground(r.theme.BorderColor).Render(" │ ")
	var lines []string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			style := inlineStyle{}
			if _, header := row.(*extast.TableHeader); header {
				style.bold = true
			}
			cells = append(cells, r.inline(cell, style))
		}
		lines = append(lines, strings.Join(cells, separator))
	}
	return lines
}

func (r *markdownRenderer) lines(node ast.Node) string {
	var builder strings.Builder
	segments := node.Lines()
	for index := 0; index < segments.Len(); index++ {
		segment := segments.At(index)
		builder.Write(segment.Value(r.source))
	}
	return builder.String()
}

func (r *markdownRenderer) wrap(content string, width int) []string {
	if content == "" {
		return nil
	}
	return strings.Split(ansi.Wrap(content, width, wrapBreakpoints), "\n")
}

type inlineStyle struct {
	bold          bool
	italic        bool
	strikethrough bool
}

func (r *markdownRenderer) textStyle(current inlineStyle) lipgloss.Style {
	return r.style().
		Foreground(r.theme.NormalText).
		Bold(current.bold).
		Italic(current.italic).
		Strikethrough(current.strikethrough)
}

// inline renders the inline children of node with the given style.
func (r *markdownRenderer) inline(node ast.Node, current inlineStyle) string {
	var builder strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch child := child.(type) {
		case *ast.Text:
			builder.WriteString(r.textStyle(current).Render(string(child.Segment.Value(r.source))))
			if child.HardLineBreak() {
				builder.WriteString("\n")
			} else if child.SoftLineBreak() {
				builder.WriteString(" ")
			}

		case *ast.String:
			builder.WriteString(r.textStyle(current).Render(string(child.Value)))

		case *ast.Emphasis:
			nested := current
			if child.Level >= 2 {
				nested.bold = true
			} else {
				nested.italic = true
			}
			builder.WriteString(r.inline(child, nested))

		case *extast.Strikethrough:
			nested := current
			nested.strikethrough = true
			builder.WriteString(r.inline(child, nested))

		case *ast.CodeSpan:
			code := ansi.Strip(r.inline(child, inlineStyle{}))
			builder.WriteString(r.style().Foreground(r.theme.MatchHighlight).Render(code))

		case *ast.Link:
			builder.WriteString(r.inline(child, current))
			if destination := string(child.Destination); destination != "" {
				builder.WriteString(" " + r.style().Foreground(r.theme.FaintText).Render("("+destination+")"))
			}

		case *ast.AutoLink:
			builder.WriteString(r.style().Foreground(r.theme.FaintText).Render(string(child.URL(r.source))))

		case *ast.Image:
			alt := ansi.Strip(r.inline(child, current))
			builder.WriteString(r.style().Foreground(r.theme.FaintText).Render("[" + alt + "]"))

		case *ast.RawHTML:
			// Inline tags are dropped; their text children are not markup.

		case *extast.TaskCheckBox:
			if child.IsChecked {
				builder.WriteString("[x] ")
			} else {
				builder.WriteString("[ ] ")
			}

		default:
			builder.WriteString(r.inline(child, current))
		}
	}
	return builder.String()
}

// prefixLines puts first before the first line and rest before the
// others.
func prefixLines(lines []string, first, rest string) []string {
	prefixed := make([]string, len(lines))
	for index, line := range lines {
		if index == 0 {
			prefixed[index] = first + line
		} else {
			prefixed[index] = rest + line
		}
	}
	return prefixed
}
