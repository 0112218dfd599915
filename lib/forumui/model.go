// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forumui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/junegunn/fzf/src/util"

	"github.com/bureau-foundation/classroom/forum"
	"github.com/bureau-foundation/classroom/lib/dashboard"
	"github.com/bureau-foundation/classroom/lib/discussion"
	"github.com/bureau-foundation/classroom/lib/session"
)

type focus int

const (
	focusList focus = iota
	focusFilter
	focusThread
	focusCompose
	focusCreate
)

// Completion messages. They carry no data: the model re-reads the
// controller, which already dropped anything stale.
type (
	listLoadedMsg   struct{}
	threadLoadedMsg struct{}
	sentMsg         struct{ accepted bool }
	createdMsg      struct{ accepted bool }
	closedMsg       struct{}
)

// Options configures a Model.
type Options struct {
	Theme Theme
	// Keys overrides DefaultKeyMap.
	Keys *KeyMap
	// LogHandler, when set, is bound to the program so log records
	// appear in the status line.
	LogHandler *LogHandler
	// ProgramOptions are appended to the defaults (alternate screen,
	// cancellation by the Run context).
	ProgramOptions []tea.ProgramOption
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx        context.Context
	controller dashboard.Controller
	creator    dashboard.Creator
	identity   session.Identity
	theme      Theme
	keys       KeyMap

	width  int
	height int
	focus  focus

	all     []forum.Discussion
	visible []discussionMatch
	cursor  int
	filter  textinput.Model
	slab    *util.Slab

	thread     dashboard.Thread
	threadView viewport.Model
	compose    textarea.Model

	createTitle   textinput.Model
	createContent textarea.Model
	createBody    bool // Content field has focus rather than title.

	loadingList   bool
	loadingThread bool
	sending       bool
	creating      bool

	status         string
	statusLevel    slog.Level
	statusSequence int

	loggedOut bool
}

// NewModel builds the dashboard for controller. Network work started by
// the model uses ctx.
func NewModel(ctx context.Context, controller dashboard.Controller, options Options) Model {
	keys := DefaultKeyMap
	if options.Keys != nil {
		keys = *options.Keys
	}
	theme := options.Theme
	if theme == (Theme{}) {
		theme = DarkTheme
	}

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter discussions"

	compose := textarea.New()
	compose.Placeholder = "Write a message. Mention " + forum.BotMention + " to ask the bot."
	compose.ShowLineNumbers = false
	compose.SetHeight(3)

	createTitle := textinput.New()
	createTitle.Prompt = "Title: "
	createTitle.Placeholder = "discussion title"

	createContent := textarea.New()
	createContent.Placeholder = "What should students discuss?"
	createContent.ShowLineNumbers = false
	createContent.SetHeight(6)

	creator, _ := controller.(dashboard.Creator)

	model := Model{
		ctx:           ctx,
		controller:    controller,
		creator:       creator,
		identity:      controller.Identity(),
		theme:         theme,
		keys:          keys,
		width:         80,
		height:        24,
		filter:        filter,
		slab:          util.MakeSlab(100*1024, 2048),
		threadView:    viewport.New(80, 10),
		compose:       compose,
		createTitle:   createTitle,
		createContent: createContent,
		loadingList:   true,
	}
	model.resize(80, 24)
	return model
}

// LoggedOut reports whether the program ended because the session
// logged out.
func (m Model) LoggedOut() bool {
	return m.loggedOut
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.mountCmd(), m.waitForClose())
}

func (m Model) mountCmd() tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		controller.Mount(ctx)
		return listLoadedMsg{}
	}
}

func (m Model) refreshListCmd() tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		controller.RefreshList(ctx)
		return listLoadedMsg{}
	}
}

func (m Model) refreshThreadCmd() tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		controller.RefreshThread(ctx)
		return threadLoadedMsg{}
	}
}

func (m Model) sendCmd(content string) tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		return sentMsg{accepted: controller.Send(ctx, content)}
	}
}

func (m Model) createCmd(title, content string) tea.Cmd {
	ctx, creator := m.ctx, m.creator
	return func() tea.Msg {
		return createdMsg{accepted: creator.Create(ctx, title, content)}
	}
}

func (m Model) waitForClose() tea.Cmd {
	done := m.controller.Done()
	return func() tea.Msg {
		<-done
		return closedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.renderThread()
		return m, nil

	case listLoadedMsg:
		m.loadingList = false
		m.reloadList()
		m.renderThread()
		return m, nil

	case threadLoadedMsg:
		m.loadingThread = false
		m.reloadThread()
		return m, nil

	case sentMsg:
		m.sending = false
		if msg.accepted {
			m.compose.Reset()
		}
		m.reloadThread()
		return m, nil

	case createdMsg:
		m.creating = false
		if msg.accepted {
			m.createTitle.Reset()
			m.createContent.Reset()
			m.createTitle.Blur()
			m.createContent.Blur()
			m.focus = focusList
		}
		m.reloadList()
		return m, nil

	case closedMsg:
		m.loggedOut = true
		return m, tea.Quit

	case logRecordMsg:
		m.status = msg.Summary
		m.statusLevel = msg.Level
		m.statusSequence++
		sequence := m.statusSequence
		return m, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
			return statusFadeMsg{sequence: sequence}
		})

	case statusFadeMsg:
		if msg.sequence == m.statusSequence {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forwardToFocused(msg)
}

// forwardToFocused hands non-key messages (cursor blink) to the active
// text field.
func (m Model) forwardToFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
	case focusCompose:
		m.compose, cmd = m.compose.Update(msg)
	case focusCreate:
		if m.createBody {
			m.createContent, cmd = m.createContent.Update(msg)
		} else {
			m.createTitle, cmd = m.createTitle.Update(msg)
		}
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}
	switch m.focus {
	case focusFilter:
		return m.handleFilterKey(msg)
	case focusCompose:
		return m.handleComposeKey(msg)
	case focusCreate:
		return m.handleCreateKey(msg)
	case focusThread:
		return m.handleThreadKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		return m.openSelected()
	case key.Matches(msg, m.keys.Filter):
		m.focus = focusFilter
		focusCmd := m.filter.Focus()
		return m, focusCmd
	case key.Matches(msg, m.keys.Back):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
		}
	case key.Matches(msg, m.keys.Refresh):
		m.loadingList = true
		return m, m.refreshListCmd()
	case key.Matches(msg, m.keys.Create):
		if m.creator == nil {
			return m, nil
		}
		m.focus = focusCreate
		m.createBody = false
		m.createContent.Blur()
		focusCmd := m.createTitle.Focus()
		return m, focusCmd
	}
	return m, nil
}

func (m Model) openSelected() (tea.Model, tea.Cmd) {
	if len(m.visible) == 0 {
		return m, nil
	}
	m.controller.Select(m.visible[m.cursor].Discussion.ID)
	m.reloadThread()
	m.focus = focusThread
	m.loadingThread = true
	return m, m.refreshThreadCmd()
}

func (m Model) handleThreadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.Back):
		m.controller.CloseThread()
		m.reloadThread()
		m.loadingThread = false
		m.focus = focusList
		return m, nil
	case key.Matches(msg, m.keys.Compose):
		m.focus = focusCompose
		focusCmd := m.compose.Focus()
		return m, focusCmd
	case key.Matches(msg, m.keys.Refresh):
		m.loadingThread = true
		return m, m.refreshThreadCmd()
	}
	var cmd tea.Cmd
	m.threadView, cmd = m.threadView.Update(msg)
	return m, cmd
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.compose.Blur()
		m.focus = focusThread
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if m.sending {
			return m, nil
		}
		content := m.compose.Value()
		if strings.TrimSpace(content) == "" {
			m.setStatus("Message is empty", slog.LevelInfo)
			return m, nil
		}
		m.sending = true
		return m, m.sendCmd(content)
	}
	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return m, cmd
}

func (m Model) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.createTitle.Blur()
		m.createContent.Blur()
		m.focus = focusList
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		m.createBody = !m.createBody
		if m.createBody {
			m.createTitle.Blur()
			focusCmd := m.createContent.Focus()
			return m, focusCmd
		}
		m.createContent.Blur()
		focusCmd := m.createTitle.Focus()
		return m, focusCmd
	case key.Matches(msg, m.keys.Submit):
		if m.creating {
			return m, nil
		}
		title := strings.TrimSpace(m.createTitle.Value())
		if title == "" {
			m.setStatus("A discussion needs a title", slog.LevelInfo)
			return m, nil
		}
		m.creating = true
		return m, m.createCmd(title, m.createContent.Value())
	}
	var cmd tea.Cmd
	if m.createBody {
		m.createContent, cmd = m.createContent.Update(msg)
	} else {
		m.createTitle, cmd = m.createTitle.Update(msg)
	}
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.filter.SetValue("")
		m.filter.Blur()
		m.focus = focusList
		m.applyFilter()
		return m, nil
	case key.Matches(msg, m.keys.Open):
		m.filter.Blur()
		m.focus = focusList
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	m.controller.Logout()
	m.loggedOut = true
	return m, tea.Quit
}

func (m *Model) setStatus(text string, level slog.Level) {
	m.status = text
	m.statusLevel = level
	m.statusSequence++
}

func (m *Model) reloadList() {
	m.all = m.controller.Discussions()
	m.applyFilter()
}

func (m *Model) applyFilter() {
	m.visible = filterDiscussions(m.all, m.filter.Value(), m.slab)
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) reloadThread() {
	m.thread = m.controller.Thread()
	if m.thread.State == discussion.Closed && (m.focus == focusThread || m.focus == focusCompose) {
		m.compose.Blur()
		m.focus = focusList
	}
	m.renderThread()
	m.threadView.GotoBottom()
}

// renderThread refreshes the viewport content at the current width.
func (m *Model) renderThread() {
	if m.thread.State != discussion.Open {
		m.threadView.SetContent("")
		return
	}
	m.threadView.SetContent(m.threadContent())
}

const (
	chromeLines        = 3 // header, status, help
	threadHeaderLines  = 3 // title, content preview, rule
	composeFrameHeight = 2
)

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	m.compose.SetWidth(max(width-2, 10))
	m.createContent.SetWidth(max(width-2, 10))
	m.createTitle.Width = max(width-len(m.createTitle.Prompt)-2, 10)
	m.filter.Width = max(width-len(m.filter.Prompt)-2, 10)

	viewHeight := height - chromeLines - threadHeaderLines - m.compose.Height() - composeFrameHeight
	m.threadView.Width = width
	m.threadView.Height = max(viewHeight, 3)
}
