// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant is the boundary between the conversation flow and
// the model transport. It assembles the outbound message list for each
// exchange and guarantees that every exchange produces reply text:
// transport failures are folded into fixed apologies with a separate
// diagnostic, never raised to the caller.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finbot-labs/finbot-tui/internal/model"
	"github.com/finbot-labs/finbot-tui/internal/ollama"
)

// Fixed user-facing substitute replies, one per failure class. The
// diagnostic carries the detail; these stay stable and calm.
const (
	connectionApology = "I'm sorry, I can't connect to the local LLM. Please check if Ollama is running."
	httpApology       = "I'm sorry, I encountered an error with the Ollama API. Please check the server logs."
	genericApology    = "An unexpected error occurred. Please check your Ollama setup."
)

// Request is one exchange to send to the model.
type Request struct {
	// Prompt is the new user turn, always last in the outbound list.
	Prompt string

	// History is the prior conversation to replay. Callers normally
	// pass Conversation.History(); internal status lines are filtered
	// out here again regardless.
	History []*model.Message

	// Document, when set, is injected as a wrapped user message right
	// after the system prompt, before any history.
	Document *model.Document
}

// Reply is the outcome of an exchange. Text is never empty. Diagnostic
// is empty on success and carries the failure detail otherwise.
type Reply struct {
	Text       string
	Diagnostic string

	// Stats carries timing and token counts for a successful stream.
	// Nil on failure.
	Stats *ollama.StreamStats
}

// Failed reports whether the reply is a substitute for a failed exchange.
func (r Reply) Failed() bool {
	return r.Diagnostic != ""
}

// Client drives chat exchanges against a single configured model.
type Client struct {
	transport     *ollama.Client
	model         string
	systemPrompt  string
	streamTimeout time.Duration
}

// New creates an assistant client. streamTimeout bounds each whole
// exchange; zero means no bound.
func New(transport *ollama.Client, modelName, systemPrompt string, streamTimeout time.Duration) *Client {
	return &Client{
		transport:     transport,
		model:         modelName,
		systemPrompt:  systemPrompt,
		streamTimeout: streamTimeout,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Send runs one streaming exchange. onToken receives each content
// fragment as it arrives (may be nil). The returned reply holds the
// full concatenation on success, or an apology plus diagnostic on any
// failure; it never panics and Text is never empty.
func (c *Client) Send(ctx context.Context, req Request, onToken func(token string)) Reply {
	if c.streamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.streamTimeout)
		defer cancel()
	}

	messages := c.buildMessages(req)

	stats := ollama.NewStreamStats()
	var full strings.Builder
	err := c.transport.ChatStream(ctx, c.model, messages, func(chunk ollama.StreamChunk) {
		if chunk.Done {
			stats.Finalize(chunk)
		}
		if chunk.Content == "" {
			return
		}
		if full.Len() == 0 {
			stats.RecordFirstToken()
		}
		full.WriteString(chunk.Content)
		if onToken != nil {
			onToken(chunk.Content)
		}
	})

	if err != nil {
		return c.foldError(err)
	}

	text := full.String()
	if text == "" {
		// A stream of nothing but malformed or empty lines still has
		// to hand the caller a message to append.
		return Reply{
			Text:       genericApology,
			Diagnostic: "Ollama returned an empty response",
		}
	}

	return Reply{Text: text, Stats: stats}
}

// Analyze runs the automatic document-analysis exchange: the trigger
// prompt as the user turn, the document injected, and deliberately no
// history.
func (c *Client) Analyze(ctx context.Context, triggerPrompt string, doc *model.Document, onToken func(token string)) Reply {
	return c.Send(ctx, Request{
		Prompt:   triggerPrompt,
		Document: doc,
	}, onToken)
}

// buildMessages assembles the outbound list: system prompt, optional
// document wrapper, filtered history, then the new prompt.
func (c *Client) buildMessages(req Request) []ollama.Message {
	messages := []ollama.Message{ollama.NewSystemMessage(c.systemPrompt)}

	if req.Document != nil {
		messages = append(messages, ollama.NewUserMessage(req.Document.Wrap()))
	}

	for _, msg := range req.History {
		if msg.Content == "" || model.IsFiltered(msg.Content) {
			continue
		}
		switch msg.Role {
		case model.RoleUser:
			messages = append(messages, ollama.NewUserMessage(msg.Content))
		case model.RoleAssistant:
			messages = append(messages, ollama.NewAssistantMessage(msg.Content))
		}
	}

	return append(messages, ollama.NewUserMessage(req.Prompt))
}

// foldError maps a transport failure to its substitute reply.
func (c *Client) foldError(err error) Reply {
	if ollama.IsNotRunning(err) {
		return Reply{
			Text: connectionApology,
			Diagnostic: fmt.Sprintf("Could not connect to Ollama server at %s. Please ensure Ollama is running and the model '%s' is pulled.",
				c.transport.GetConfig().BaseURL, c.model),
		}
	}

	if ce, ok := ollama.IsHTTP(err); ok {
		return Reply{
			Text:       httpApology,
			Diagnostic: fmt.Sprintf("Ollama API Error: %d - %s", ce.StatusCode, strings.TrimSpace(ce.Body)),
		}
	}

	if ollama.IsTimeout(err) {
		return Reply{
			Text:       genericApology,
			Diagnostic: fmt.Sprintf("Ollama request timed out after %s", c.streamTimeout),
		}
	}

	return Reply{
		Text:       genericApology,
		Diagnostic: fmt.Sprintf("An unexpected error occurred: %v", err),
	}
}
