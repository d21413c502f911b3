// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StreamTokenMsg:
		// Buffered only; the next StreamTickMsg drains it into the
		// transcript at the capped frame rate.
		m.buffer.Write(msg.Token)
		return m, nil

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)
	}

	// Everything else (mouse wheel etc.) goes to the viewport.
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleResize recalculates the viewport dimensions.
//
// The constants below are conservative estimates of the fixed chrome
// around the viewport; renderChat() measures actual heights with
// lipgloss.Height() and corrects any mismatch, but these must never be
// smaller than the rendered components or the layout overflows.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	const (
		headerHeight    = 2
		inputAreaHeight = 4
		statusBarHeight = 2
	)

	viewportHeight := m.height - headerHeight - inputAreaHeight - statusBarHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	viewportWidth := m.width
	if viewportWidth < 1 {
		viewportWidth = 1
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
	m.input.Width = m.width - 6

	m.rebuildMarkdown(m.width - 8)
	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, nil
}

// handleKey dispatches key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		return m.handleSubmit()

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		// Digit keys pick stage options, but only when they cannot be
		// the start of typed text.
		if m.input.Value() == "" && m.state == StateReady {
			return m.selectAction(int(msg.String()[0] - '0'))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// selectAction activates the n-th (1-based) option of the current
// stage.
func (m Model) selectAction(n int) (tea.Model, tea.Cmd) {
	actions := m.session.Actions()
	if n < 1 || n > len(actions) {
		return m, nil
	}

	m.session.Select(actions[n-1])
	m.session.EnterStage()
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// handleStreamTick drains the token buffer into the transcript and
// schedules the next tick while the stream is alive.
func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}

	if chunk := m.buffer.Flush(); chunk != "" {
		m.session.Conversation.AppendToLast(chunk)
		m.refreshViewport()
		m.viewport.GotoBottom()
	}

	return m, streamTickCmd()
}

// handleStreamComplete finalizes the exchange. Reply.Text is
// authoritative: it replaces whatever partial content the ticks
// flushed, so a failed stream shows the apology, not a truncated
// answer.
func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	m.buffer.Reset()
	m.session.Conversation.ReplaceLast(msg.Reply.Text)
	m.lastDiagnostic = msg.Reply.Diagnostic

	m.lastStats = ""
	if stats := msg.Reply.Stats; stats != nil && stats.CompletionTokens > 0 {
		m.lastStats = stats.Format()
	}

	if msg.Analysis {
		m.session.MarkAnalyzed()
	}

	m.state = StateReady
	m.session.EnterStage()
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}
