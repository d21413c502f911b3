// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the conversation data structures shared by the
// flow controller, the assistant client, and the UI.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a message typed (or clicked) by the person at the keyboard.
	RoleUser Role = "user"

	// RoleAssistant is a message produced by FinBot, either from the stage
	// table or streamed from the model.
	RoleAssistant Role = "assistant"

	// RoleSystem is an out-of-band notice (upload confirmations, hand-off
	// banners). System messages are rendered but never sent to the model.
	RoleSystem Role = "system"
)

// DisplayName returns the label shown next to the message in the transcript.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "FinBot"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Message is a single entry in the conversation transcript.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time

	// IsStreaming marks an assistant message that is still receiving
	// tokens. While true, Content is empty and streamContent holds the
	// partial text.
	IsStreaming bool

	// streamContent accumulates tokens without repeated string
	// concatenation. Flushed into Content by FinalizeStream.
	streamContent strings.Builder
}

// NewMessage creates a completed message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewStreamingMessage creates an empty assistant message ready to
// receive tokens.
func NewStreamingMessage() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// AppendToken adds a streamed token to the message. No-op once the
// message has been finalized.
func (m *Message) AppendToken(token string) {
	if !m.IsStreaming {
		return
	}
	m.streamContent.WriteString(token)
}

// FinalizeStream moves the accumulated stream content into Content and
// clears the streaming flag. Safe to call more than once.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// SetContent replaces the message text, finalizing any in-flight stream
// first. Used when an exchange fails and the partial output is replaced
// by an apology.
func (m *Message) SetContent(content string) {
	m.FinalizeStream()
	m.Content = content
}

// GetDisplayContent returns the text to render: the partial stream for
// an in-flight message, Content otherwise.
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// generateID returns a unique message ID like "msg_a1b2c3d4e5f6a7b8".
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a timestamp; collisions are harmless here.
		return "msg_" + hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return "msg_" + hex.EncodeToString(b)
}
