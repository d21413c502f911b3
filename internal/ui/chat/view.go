// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/finbot-labs/finbot-tui/internal/model"
	"github.com/finbot-labs/finbot-tui/internal/ui/styles"
	"github.com/finbot-labs/finbot-tui/internal/util"
)

// streamCursor marks the insertion point of an in-flight response.
const streamCursor = "▌"

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete chat view.
// Layout: header (1 line) + messages (viewport) + input (3 lines) +
// status (1 line). Total height must equal m.height exactly.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	headerHeight := lipgloss.Height(header)
	inputHeight := lipgloss.Height(input)
	statusHeight := lipgloss.Height(status)

	availableHeight := m.height - headerHeight - inputHeight - statusHeight
	if availableHeight < 1 {
		availableHeight = 1
	}

	messages := m.viewport.View()

	// The viewport is sized in handleResize with conservative
	// constants; correct any mismatch here so the layout never breaks.
	if lipgloss.Height(messages) != availableHeight {
		messages = lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(m.width).
			Render(messages)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		messages,
		input,
		status,
	)
}

// =============================================================================
// HEADER
// =============================================================================

// renderHeader renders the title bar with model name and status
// indicator. Always 1 line high.
func (m Model) renderHeader() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	title := m.theme.HeaderTitle.Render("finbot")

	modelInfo := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render(" | " + m.assistant.Model())

	var statusIcon string
	if m.state == StateStreaming {
		statusIcon = lipgloss.NewStyle().
			Foreground(styles.Amber).
			Render(" " + m.spinner.View())
	} else if m.lastDiagnostic != "" {
		statusIcon = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Render(" " + styles.StatusIndicators.Error)
	} else {
		statusIcon = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Render(" " + styles.StatusIndicators.Success)
	}

	return m.theme.Header.
		Width(width).
		Render(title + modelInfo + statusIcon)
}

// =============================================================================
// MESSAGES
// =============================================================================

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
}

// renderMessages renders the full transcript plus, when the session is
// idle and the stage offers options, the numbered option list.
func (m *Model) renderMessages() string {
	var parts []string

	for _, msg := range m.session.Conversation.Snapshot() {
		if rendered := m.renderMessage(msg); rendered != "" {
			parts = append(parts, rendered)
		}
	}

	if m.state == StateReady {
		if actions := m.renderActions(); actions != "" {
			parts = append(parts, actions)
		}
	}

	return strings.Join(parts, "\n")
}

// renderMessage renders a single message based on its role.
func (m *Model) renderMessage(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return m.renderUserMessage(msg)
	case model.RoleAssistant:
		return m.renderAssistantMessage(msg)
	case model.RoleSystem:
		return m.renderSystemMessage(msg)
	default:
		return msg.GetDisplayContent()
	}
}

// maxBubbleWidth returns the cap for message bubbles, never exceeding
// the terminal.
func (m *Model) maxBubbleWidth() int {
	maxWidth := m.width - 8
	if maxWidth > m.width-2 {
		maxWidth = m.width - 2
	}
	if maxWidth < 10 {
		maxWidth = 10
	}
	return maxWidth
}

// renderUserMessage renders a user message as a blue right-aligned
// bubble.
func (m *Model) renderUserMessage(msg *model.Message) string {
	maxWidth := m.maxBubbleWidth()

	bubble := m.theme.UserBubble.MaxWidth(maxWidth)

	wrapWidth := maxWidth - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	rendered := bubble.Render(wrapText(msg.GetDisplayContent(), wrapWidth))

	marginLeft := m.width - lipgloss.Width(rendered) - 4
	if marginLeft < 0 {
		marginLeft = 0
	}

	return lipgloss.NewStyle().
		MarginLeft(marginLeft).
		MarginTop(1).
		MarginBottom(1).
		Render(rendered)
}

// renderAssistantMessage renders an assistant message. Finalized
// messages go through the markdown renderer; an in-flight message is
// shown raw with the stream cursor appended.
func (m *Model) renderAssistantMessage(msg *model.Message) string {
	content := msg.GetDisplayContent()

	if strings.TrimSpace(content) == "" && !msg.IsStreaming {
		return ""
	}

	var body string
	if msg.IsStreaming {
		wrapWidth := m.maxBubbleWidth() - 4
		if wrapWidth < 10 {
			wrapWidth = 10
		}
		cursor := lipgloss.NewStyle().
			Foreground(styles.Purple).
			Render(streamCursor)
		if content == "" {
			body = cursor
		} else {
			body = wrapText(content, wrapWidth) + cursor
		}
	} else {
		body = m.renderMarkdown(content)
	}

	return lipgloss.NewStyle().
		MarginTop(1).
		MarginBottom(1).
		MarginLeft(2).
		Render(body)
}

// renderMarkdown renders finalized assistant text, falling back to
// plain wrapped text if the renderer is unavailable.
func (m *Model) renderMarkdown(content string) string {
	if m.markdown != nil {
		if out, err := m.markdown.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}

	wrapWidth := m.maxBubbleWidth() - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	return wrapText(content, wrapWidth)
}

// renderSystemMessage renders an internal status notice as an amber
// double-bordered bubble.
func (m *Model) renderSystemMessage(msg *model.Message) string {
	maxWidth := m.maxBubbleWidth()

	bubble := m.theme.SystemBubble.MaxWidth(maxWidth)

	wrapWidth := maxWidth - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	return lipgloss.NewStyle().
		MarginTop(1).
		MarginBottom(1).
		MarginLeft(2).
		Render(bubble.Render(wrapText(msg.GetDisplayContent(), wrapWidth)))
}

// =============================================================================
// STAGE OPTIONS
// =============================================================================

// renderActions renders the numbered option list for the current stage.
func (m *Model) renderActions() string {
	actions := m.session.Actions()
	if len(actions) == 0 {
		return ""
	}

	var b strings.Builder
	for i, action := range actions {
		b.WriteString("  ")
		b.WriteString(m.theme.OptionNumber.Render(fmt.Sprintf("[%d]", i+1)))
		b.WriteString(" ")
		b.WriteString(m.theme.OptionLabel.Render(action.Label))
		b.WriteString("\n")
	}
	b.WriteString("  ")
	b.WriteString(m.theme.OptionHint.Render("Press 1-" + string(rune('0'+len(actions))) + " to choose, or just type."))

	return b.String()
}

// =============================================================================
// INPUT AREA
// =============================================================================

// renderInput renders the input area: separator, input line, and hint
// line. Always 3 lines high.
func (m Model) renderInput() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	borderColor := styles.Overlay
	if m.input.Focused() && m.state == StateReady {
		borderColor = styles.Purple
	}
	separator := lipgloss.NewStyle().
		Foreground(borderColor).
		Render(strings.Repeat("─", width))

	var statusIndicator string
	if m.state == StateStreaming {
		statusIndicator = m.theme.ThinkingText.Render(" (streaming...)")
	}

	inputLine := lipgloss.NewStyle().
		Padding(0, 1).
		Render(m.input.View() + statusIndicator)

	hint := m.theme.ShortcutDesc.
		Padding(0, 1).
		Render("Enter send | /attach file | /new restart | /quit exit")

	return lipgloss.JoinVertical(lipgloss.Left, separator, inputLine, hint)
}

// =============================================================================
// STATUS BAR
// =============================================================================

// renderStatusBar renders the bottom status bar.
// Format: <stage> | <document> | <diagnostic>
// Guarantees content never exceeds the terminal width.
func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	maxContentWidth := width - 4
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}

	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")

	stage := m.theme.StatusStage.Render(m.session.Stage.String())

	var docStr string
	if m.session.Document != nil {
		docStr = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Render("file: " + m.session.Document.Name)
	}

	var diagStr string
	if m.lastDiagnostic != "" {
		budget := maxContentWidth - util.StringWidth(m.session.Stage.String()) - 16
		if budget < 10 {
			budget = 10
		}
		diagStr = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Render(styles.StatusIndicators.Error + " " + util.TruncateWidth(m.lastDiagnostic, budget))
	}

	var statsStr string
	if m.lastStats != "" {
		statsStr = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(m.lastStats)
	}

	content := stage
	if docStr != "" {
		content += sep + docStr
	}
	if statsStr != "" {
		content += sep + statsStr
	}
	if diagStr != "" {
		content += sep + diagStr
	}

	return m.theme.StatusBar.
		Width(width).
		Render(content)
}
