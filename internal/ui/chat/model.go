// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/finbot-labs/finbot-tui/internal/assistant"
	"github.com/finbot-labs/finbot-tui/internal/config"
	"github.com/finbot-labs/finbot-tui/internal/flow"
	"github.com/finbot-labs/finbot-tui/internal/prompt"
	"github.com/finbot-labs/finbot-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a streaming response
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. It owns no dialog
// logic itself: every event is handed to the flow session and the
// transcript is re-rendered from its conversation.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Dialog session (stage machine + transcript)
	session *flow.Session

	// Model exchange layer
	assistant *assistant.Client

	// Analysis trigger prompt, hot-reloaded from disk
	prompts *prompt.Store

	// Upload limits and UI settings
	cfg *config.Config

	// Streaming optimization: batches tokens so the viewport redraws
	// at a capped frame rate instead of per token
	buffer *StreamingBuffer

	// Last failed exchange detail for the status bar. Cleared on the
	// next successful exchange or /new.
	lastDiagnostic string

	// Formatted tok/s summary of the last successful exchange.
	lastStats string

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Markdown renderer, rebuilt on resize to match the wrap width
	markdown      *glamour.TermRenderer
	markdownWidth int
}

// New creates the chat model. The session enters its Welcome stage
// immediately so the greeting is already in the transcript on first
// render.
func New(theme *styles.Theme, session *flow.Session, client *assistant.Client, prompts *prompt.Store, cfg *config.Config) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII-compatible spinner at 30fps to match streaming
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	session.EnterStage()

	m := Model{
		state:     StateReady,
		theme:     theme,
		session:   session,
		assistant: client,
		prompts:   prompts,
		cfg:       cfg,
		buffer:    NewStreamingBuffer(),
		viewport:  vp,
		input:     ti,
		spinner:   sp,
	}
	m.refreshViewport()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// rebuildMarkdown recreates the glamour renderer for the given wrap
// width. A nil renderer is tolerated everywhere and falls back to raw
// text.
func (m *Model) rebuildMarkdown(width int) {
	if width < 20 {
		width = 20
	}
	if m.markdown != nil && m.markdownWidth == width {
		return
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
	m.markdownWidth = width
}
