// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/finbot-labs/finbot-tui/internal/assistant"
	"github.com/finbot-labs/finbot-tui/internal/config"
	"github.com/finbot-labs/finbot-tui/internal/model"
)

// =============================================================================
// INPUT HANDLING
// =============================================================================

// handleSubmit processes the Enter key: slash commands run locally,
// everything else goes through the dialog session and, when it says so,
// out to the model.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	needsModel := m.session.Input(text)
	m.session.EnterStage()

	if !needsModel {
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil
	}

	return m.startExchange(text)
}

// runCommand executes a slash command.
func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		return m, tea.Quit

	case "/new":
		m.session.Reset()
		m.session.EnterStage()
		m.lastDiagnostic = ""
		m.lastStats = ""
		m.refreshViewport()
		m.viewport.GotoTop()
		return m, nil

	case "/attach":
		if arg == "" {
			m.session.Conversation.AddSystemMessage("Usage: /attach <path>")
			m.refreshViewport()
			m.viewport.GotoBottom()
			return m, nil
		}
		return m.attachFile(arg)

	default:
		m.session.Conversation.AddSystemMessage("Unknown command: " + cmd)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil
	}
}

// attachFile reads and validates a local file, hands it to the session,
// and kicks off the automatic analysis exchange.
func (m Model) attachFile(path string) (tea.Model, tea.Cmd) {
	notice := func(text string) (tea.Model, tea.Cmd) {
		m.session.Conversation.AddSystemMessage(text)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return notice(fmt.Sprintf("Could not read file: %v", err))
	}

	name := filepath.Base(path)
	if err := validateUpload(&m.cfg.Chat, name, data); err != nil {
		return notice(err.Error())
	}

	if !m.session.Upload(name, string(data)) {
		return notice(fmt.Sprintf("File '%s' is already attached.", name))
	}

	return m.startAnalysis()
}

// validateUpload enforces the upload limits: allowed extension, size
// cap, and valid UTF-8 text.
func validateUpload(cfg *config.ChatConfig, name string, data []byte) error {
	ext := strings.ToLower(filepath.Ext(name))
	allowed := false
	for _, e := range cfg.UploadExtensions {
		if ext == strings.ToLower(e) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("File type '%s' is not supported. Allowed: %s", ext, strings.Join(cfg.UploadExtensions, ", "))
	}

	if int64(len(data)) > cfg.MaxUploadBytes {
		return fmt.Errorf("File '%s' is too large (%d bytes, limit %d).", name, len(data), cfg.MaxUploadBytes)
	}

	if !utf8.Valid(data) {
		return fmt.Errorf("File '%s' is not valid UTF-8 text.", name)
	}

	return nil
}

// =============================================================================
// EXCHANGE STARTERS
// =============================================================================

// startExchange begins a streaming model exchange for a free-text turn.
func (m Model) startExchange(promptText string) (tea.Model, tea.Cmd) {
	req := assistant.Request{
		Prompt:   promptText,
		History:  historyForPrompt(m.session.Conversation, promptText),
		Document: m.session.ContextDocument(),
	}

	m.session.Conversation.StartStreaming()
	m.state = StateStreaming
	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spinner.Tick,
		streamTickCmd(),
		exchangeCmd(m.assistant, req),
	)
}

// startAnalysis begins the automatic document-analysis exchange: the
// trigger prompt from disk, the fresh document, no history.
func (m Model) startAnalysis() (tea.Model, tea.Cmd) {
	doc := m.session.Document
	trigger := m.prompts.Text()

	m.session.Conversation.StartStreaming()
	m.state = StateStreaming
	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spinner.Tick,
		streamTickCmd(),
		analyzeCmd(m.assistant, trigger, doc),
	)
}

// historyForPrompt returns the replayable history minus the trailing
// user message, which the session has already appended and the
// assistant adds back as the prompt itself.
func historyForPrompt(conv *model.Conversation, promptText string) []*model.Message {
	history := conv.History()
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == model.RoleUser && last.Content == promptText {
			history = history[:n-1]
		}
	}
	return history
}
