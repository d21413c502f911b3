// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finbot-labs/finbot-tui/internal/model"
	"github.com/finbot-labs/finbot-tui/internal/ollama"
)

func newTestClient(baseURL string) *Client {
	transport := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: baseURL, DefaultModel: "llama3"})
	return New(transport, "llama3", "You are FinBot.", 5*time.Second)
}

func ndjsonHandler(t *testing.T, capture *[][]ollama.Message) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []ollama.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if capture != nil {
			*capture = append(*capture, req.Messages)
		}
		w.Write([]byte(`{"message":{"content":"Hello"},"done":false}` + "\n"))
		w.Write([]byte("this line is not json\n"))
		w.Write([]byte(`{"message":{"content":" there"},"done":true,"eval_count":2,"eval_duration":1000000000}` + "\n"))
	}
}

func TestSendStreamsAndConcatenates(t *testing.T) {
	server := httptest.NewServer(ndjsonHandler(t, nil))
	defer server.Close()

	client := newTestClient(server.URL)

	var tokens []string
	reply := client.Send(context.Background(), Request{Prompt: "hi"}, func(tok string) {
		tokens = append(tokens, tok)
	})

	if reply.Failed() {
		t.Fatalf("reply failed: %s", reply.Diagnostic)
	}
	if reply.Text != "Hello there" {
		t.Errorf("Text = %q, want %q", reply.Text, "Hello there")
	}
	if len(tokens) != 2 {
		t.Errorf("got %d tokens, want 2 (malformed line skipped)", len(tokens))
	}
	if reply.Stats == nil {
		t.Fatal("successful reply missing stream stats")
	}
	if reply.Stats.CompletionTokens != 2 {
		t.Errorf("CompletionTokens = %d, want 2", reply.Stats.CompletionTokens)
	}
	if reply.Stats.TokensPerSecond <= 0 {
		t.Errorf("TokensPerSecond = %v, want > 0", reply.Stats.TokensPerSecond)
	}
}

func TestSendMessageOrder(t *testing.T) {
	var captured [][]ollama.Message
	server := httptest.NewServer(ndjsonHandler(t, &captured))
	defer server.Close()

	client := newTestClient(server.URL)

	history := []*model.Message{
		model.NewMessage(model.RoleUser, "earlier question"),
		model.NewMessage(model.RoleAssistant, "earlier answer"),
		model.NewMessage(model.RoleAssistant, model.UploadNotice("notes.txt")),
		model.NewMessage(model.RoleAssistant, model.ThinkingPlaceholder),
	}
	doc := &model.Document{Name: "notes.txt", Content: "Q1 revenue $5000"}

	reply := client.Send(context.Background(), Request{
		Prompt:   "what is my revenue?",
		History:  history,
		Document: doc,
	}, nil)
	if reply.Failed() {
		t.Fatalf("reply failed: %s", reply.Diagnostic)
	}

	msgs := captured[0]
	if len(msgs) != 5 {
		t.Fatalf("sent %d messages, want 5 (system, doc, 2 history, prompt)", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Errorf("first message role = %q, want system", msgs[0].Role)
	}
	if msgs[1].Role != "user" || !strings.Contains(msgs[1].Content, "a file named 'notes.txt'") {
		t.Errorf("second message = %q %q, want document wrapper", msgs[1].Role, msgs[1].Content)
	}
	if msgs[2].Content != "earlier question" || msgs[3].Content != "earlier answer" {
		t.Errorf("history out of order: %q, %q", msgs[2].Content, msgs[3].Content)
	}
	if msgs[4].Content != "what is my revenue?" {
		t.Errorf("prompt not last: %q", msgs[4].Content)
	}
	for _, m := range msgs {
		if model.IsFiltered(m.Content) {
			t.Errorf("filtered status line leaked into outbound history: %q", m.Content)
		}
	}
}

func TestSendConnectionFailure(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	reply := client.Send(context.Background(), Request{Prompt: "hi"}, nil)

	if reply.Text != connectionApology {
		t.Errorf("Text = %q, want connection apology", reply.Text)
	}
	if !strings.Contains(reply.Diagnostic, "http://127.0.0.1:1") {
		t.Errorf("Diagnostic %q does not name the endpoint", reply.Diagnostic)
	}
	if !strings.Contains(reply.Diagnostic, "'llama3'") {
		t.Errorf("Diagnostic %q does not name the model", reply.Diagnostic)
	}
}

func TestSendHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model requires more system memory"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reply := client.Send(context.Background(), Request{Prompt: "hi"}, nil)

	if reply.Text != httpApology {
		t.Errorf("Text = %q, want HTTP apology", reply.Text)
	}
	if !strings.Contains(reply.Diagnostic, "500") {
		t.Errorf("Diagnostic %q missing status code", reply.Diagnostic)
	}
	if !strings.Contains(reply.Diagnostic, "model requires more system memory") {
		t.Errorf("Diagnostic %q missing response body", reply.Diagnostic)
	}
}

func TestSendEmptyStreamStillReplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("garbage line\n"))
		w.Write([]byte(`{"done":true}` + "\n"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reply := client.Send(context.Background(), Request{Prompt: "hi"}, nil)

	if reply.Text == "" {
		t.Fatal("Text is empty; the reply must always carry a message")
	}
	if !reply.Failed() {
		t.Error("empty stream should carry a diagnostic")
	}
}

func TestSendTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	transport := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: server.URL})
	client := New(transport, "llama3", "You are FinBot.", 50*time.Millisecond)

	reply := client.Send(context.Background(), Request{Prompt: "hi"}, nil)

	if reply.Text != genericApology {
		t.Errorf("Text = %q, want generic apology for timeout", reply.Text)
	}
	if !strings.Contains(reply.Diagnostic, "timed out") {
		t.Errorf("Diagnostic = %q, want timeout detail", reply.Diagnostic)
	}
}

func TestAnalyzeUsesEmptyHistory(t *testing.T) {
	var captured [][]ollama.Message
	server := httptest.NewServer(ndjsonHandler(t, &captured))
	defer server.Close()

	client := newTestClient(server.URL)
	doc := &model.Document{Name: "notes.txt", Content: "Q1 revenue $5000"}

	reply := client.Analyze(context.Background(), "Analyze the attached file.", doc, nil)
	if reply.Failed() {
		t.Fatalf("reply failed: %s", reply.Diagnostic)
	}

	msgs := captured[0]
	if len(msgs) != 3 {
		t.Fatalf("sent %d messages, want 3 (system, document, trigger) — history must be empty", len(msgs))
	}
	if !strings.Contains(msgs[1].Content, "Q1 revenue $5000") {
		t.Errorf("document content missing: %q", msgs[1].Content)
	}
	if msgs[2].Content != "Analyze the attached file." {
		t.Errorf("trigger prompt = %q", msgs[2].Content)
	}
}
