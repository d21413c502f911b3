// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/finbot-labs/finbot-tui/internal/assistant"
	"github.com/finbot-labs/finbot-tui/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StreamTokenMsg carries one model token from the streaming goroutine.
type StreamTokenMsg struct {
	Token string
}

// StreamTickMsg is the 30fps render tick active while streaming.
type StreamTickMsg struct {
	Time time.Time
}

// StreamCompleteMsg reports the outcome of an exchange. Reply.Text is
// the full response on success or the substitute apology on failure.
type StreamCompleteMsg struct {
	Reply    assistant.Reply
	Analysis bool
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// exchangeCmd runs one chat exchange. The command blocks in Bubble
// Tea's command goroutine; tokens reach the UI through send() as they
// arrive and the final reply comes back as the command's message.
func exchangeCmd(client *assistant.Client, req assistant.Request) tea.Cmd {
	return func() tea.Msg {
		reply := client.Send(context.Background(), req, func(token string) {
			send(StreamTokenMsg{Token: token})
		})
		return StreamCompleteMsg{Reply: reply}
	}
}

// analyzeCmd runs the automatic document-analysis exchange.
func analyzeCmd(client *assistant.Client, trigger string, doc *model.Document) tea.Cmd {
	return func() tea.Msg {
		reply := client.Analyze(context.Background(), trigger, doc, func(token string) {
			send(StreamTokenMsg{Token: token})
		})
		return StreamCompleteMsg{Reply: reply, Analysis: true}
	}
}
