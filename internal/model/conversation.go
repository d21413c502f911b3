// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxMessages bounds the in-memory transcript. Old messages are pruned
// pairwise so the conversation never loses an assistant reply without
// its prompt.
const maxMessages = 1000

// Conversation is the transcript of one session. All methods are safe
// for concurrent use; streaming callbacks append from a goroutine while
// the UI reads.
type Conversation struct {
	mu        sync.RWMutex
	ID        string
	Messages  []*Message
	CreatedAt time.Time
}

// NewConversation creates an empty conversation with a UUID identifier.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// AddUserMessage appends a user message and returns it.
func (c *Conversation) AddUserMessage(content string) *Message {
	return c.add(NewMessage(RoleUser, content))
}

// AddAssistantMessage appends a completed assistant message.
func (c *Conversation) AddAssistantMessage(content string) *Message {
	return c.add(NewMessage(RoleAssistant, content))
}

// AddSystemMessage appends an out-of-band notice.
func (c *Conversation) AddSystemMessage(content string) *Message {
	return c.add(NewMessage(RoleSystem, content))
}

// StartStreaming appends an empty assistant message that will receive
// tokens, and returns it.
func (c *Conversation) StartStreaming() *Message {
	return c.add(NewStreamingMessage())
}

func (c *Conversation) add(msg *Message) *Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = append(c.Messages, msg)
	c.pruneLocked()
	return msg
}

// AppendToLast adds a token to the in-flight assistant message. No-op
// when the last message is not streaming.
func (c *Conversation) AppendToLast(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last := c.lastLocked(); last != nil {
		last.AppendToken(token)
	}
}

// FinalizeLast completes the in-flight assistant message.
func (c *Conversation) FinalizeLast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last := c.lastLocked(); last != nil {
		last.FinalizeStream()
	}
}

// ReplaceLast overwrites the last message's text, finalizing any stream.
// Used to swap a failed exchange's partial output for an apology.
func (c *Conversation) ReplaceLast(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last := c.lastLocked(); last != nil {
		last.SetContent(content)
	}
}

// Last returns the most recent message, or nil for an empty transcript.
func (c *Conversation) Last() *Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastLocked()
}

func (c *Conversation) lastLocked() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Len returns the number of messages in the transcript.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Messages)
}

// Snapshot returns a copy of the message slice for rendering. The
// messages themselves are shared, not copied.
func (c *Conversation) Snapshot() []*Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// History returns the user and assistant messages eligible for replay
// to the model: system notices, in-flight messages, empty messages, and
// upload bookkeeping are all excluded.
func (c *Conversation) History() []*Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Message
	for _, msg := range c.Messages {
		if msg.Role == RoleSystem || msg.IsStreaming {
			continue
		}
		if msg.Content == "" || IsFiltered(msg.Content) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Clear empties the transcript, keeping the conversation ID.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = nil
}

// pruneLocked drops the oldest messages once the transcript exceeds
// maxMessages, removing two at a time to keep prompt/reply pairs intact.
func (c *Conversation) pruneLocked() {
	if len(c.Messages) <= maxMessages {
		return
	}
	excess := len(c.Messages) - maxMessages
	if excess%2 != 0 {
		excess++
	}
	c.Messages = c.Messages[excess:]
}
