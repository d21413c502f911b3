// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbot-labs/finbot-tui/internal/model"
)

func TestWelcomeEntryIdempotent(t *testing.T) {
	s := NewSession()

	s.EnterStage()
	s.EnterStage()
	s.EnterStage()

	if got := s.Conversation.Len(); got != 1 {
		t.Errorf("Len() = %d after repeated entry, want 1", got)
	}
	if last := s.Conversation.Last(); last.Role != model.RoleAssistant {
		t.Errorf("greeting role = %q, want assistant", last.Role)
	}
}

func TestWelcomeOptionCount(t *testing.T) {
	actions := Actions(StageWelcome)

	if len(actions) != 6 {
		t.Fatalf("Welcome has %d actions, want 6", len(actions))
	}
	for _, a := range actions {
		if a.Kind != ActionOption {
			t.Errorf("Welcome action %q kind = %v, want ActionOption", a.Label, a.Kind)
		}
	}
}

func TestSelectEchoesExactlyOnce(t *testing.T) {
	s := NewSession()
	s.EnterStage()

	option := Actions(StageWelcome)[0] // "I’m just starting my business"
	s.Select(option)

	if s.Stage != StageNewBusinessStart {
		t.Fatalf("Stage = %v, want StageNewBusinessStart", s.Stage)
	}
	if s.Pending != option.Label {
		t.Errorf("Pending = %q, want %q", s.Pending, option.Label)
	}
	// Nothing is appended until the next entry cycle.
	if got := s.Conversation.Len(); got != 1 {
		t.Errorf("Len() = %d after Select, want 1", got)
	}

	s.EnterStage()

	if s.Pending != "" {
		t.Error("Pending not cleared by EnterStage")
	}
	msgs := s.Conversation.Snapshot()
	if len(msgs) != 3 {
		t.Fatalf("Len() = %d after entry, want 3", len(msgs))
	}
	if msgs[1].Role != model.RoleUser || msgs[1].Content != option.Label {
		t.Errorf("echo = %q %q", msgs[1].Role, msgs[1].Content)
	}
	if msgs[2].Role != model.RoleAssistant {
		t.Errorf("canned line role = %q", msgs[2].Role)
	}

	// Re-entry with nothing pending appends nothing.
	s.EnterStage()
	if got := s.Conversation.Len(); got != 3 {
		t.Errorf("Len() = %d after re-entry, want 3", got)
	}
}

func TestSelectToFreeTextEchoesWithoutCannedLine(t *testing.T) {
	s := NewSession()
	s.EnterStage()

	s.Select(Action{Kind: ActionOption, Label: "I have a question", Target: StageFreeText})
	s.EnterStage()

	msgs := s.Conversation.Snapshot()
	if len(msgs) != 2 {
		t.Fatalf("Len() = %d, want 2 (greeting + echo)", len(msgs))
	}
	if msgs[1].Role != model.RoleUser || msgs[1].Content != "I have a question" {
		t.Errorf("echo = %q %q", msgs[1].Role, msgs[1].Content)
	}
}

func TestBackToStartRegreets(t *testing.T) {
	s := NewSession()
	s.EnterStage()
	s.Select(Actions(StageWelcome)[0])
	s.EnterStage()

	s.Select(Action{Kind: ActionBackToStart, Label: backToStartLabel, Target: StageWelcome})
	s.EnterStage()

	if s.Stage != StageWelcome {
		t.Fatalf("Stage = %v, want StageWelcome", s.Stage)
	}
	last := s.Conversation.Last()
	if last.Content != welcomeGreeting {
		t.Errorf("last = %q, want greeting", last.Content)
	}

	// Re-entry does not duplicate the greeting.
	before := s.Conversation.Len()
	s.EnterStage()
	if s.Conversation.Len() != before {
		t.Error("greeting duplicated on re-entry")
	}
}

func TestInputLiveAgentAnyCase(t *testing.T) {
	tests := []string{"live agent", "Live Agent", "LIVE AGENT", "  lIvE aGeNt  "}

	for _, input := range tests {
		s := NewSession()
		s.EnterStage()

		needsModel := s.Input(input)

		if needsModel {
			t.Errorf("Input(%q) needsModel = true, want false", input)
		}
		if s.Stage != StageHumanSupport {
			t.Errorf("Input(%q) stage = %v, want StageHumanSupport", input, s.Stage)
		}
		if last := s.Conversation.Last(); last.Content != liveAgentLine {
			t.Errorf("Input(%q) last = %q", input, last.Content)
		}
	}
}

func TestInputForcesFreeText(t *testing.T) {
	s := NewSession()
	s.EnterStage()
	s.Select(Actions(StageWelcome)[0])
	s.EnterStage() // now in NewBusinessStart

	needsModel := s.Input("how much does an LLC cost?")

	if !needsModel {
		t.Error("needsModel = false for ordinary text")
	}
	if s.Stage != StageFreeText {
		t.Errorf("Stage = %v, want StageFreeText", s.Stage)
	}
	if last := s.Conversation.Last(); last.Role != model.RoleUser {
		t.Errorf("last role = %q, want user", last.Role)
	}
}

func TestInputKeepsFileAnalysisStage(t *testing.T) {
	s := NewSession()
	s.Upload("notes.txt", "Q1 revenue $5000")

	if s.Stage != StageFileAnalysis {
		t.Fatalf("Stage = %v, want StageFileAnalysis", s.Stage)
	}

	s.Input("what about Q2?")

	if s.Stage != StageFileAnalysis {
		t.Errorf("Stage = %v after input, want StageFileAnalysis preserved", s.Stage)
	}
}

func TestInputEmptyIsNoOp(t *testing.T) {
	s := NewSession()
	s.EnterStage()
	before := s.Conversation.Len()

	if s.Input("   ") {
		t.Error("needsModel = true for blank input")
	}
	if s.Conversation.Len() != before {
		t.Error("blank input appended a message")
	}
}

func TestUpload(t *testing.T) {
	s := NewSession()

	if !s.Upload("notes.txt", "Q1 revenue $5000") {
		t.Fatal("Upload() = false for new document")
	}
	if s.Stage != StageFileAnalysis {
		t.Errorf("Stage = %v, want StageFileAnalysis", s.Stage)
	}
	if !s.NeedsAnalysis() {
		t.Error("NeedsAnalysis() = false after upload")
	}
	if last := s.Conversation.Last(); last.Content != model.UploadNotice("notes.txt") {
		t.Errorf("last = %q", last.Content)
	}

	// Same name again is a no-op.
	before := s.Conversation.Len()
	if s.Upload("notes.txt", "different content") {
		t.Error("Upload() = true for same file name")
	}
	if s.Conversation.Len() != before {
		t.Error("duplicate upload appended a message")
	}

	// A different name replaces the document and resets analysis.
	s.MarkAnalyzed()
	if !s.Upload("plan.md", "budget plan") {
		t.Fatal("Upload() = false for new name")
	}
	if s.DocumentAnalyzed {
		t.Error("DocumentAnalyzed not reset by new upload")
	}
	if s.Document.Name != "plan.md" {
		t.Errorf("Document.Name = %q", s.Document.Name)
	}
}

func TestMarkAnalyzed(t *testing.T) {
	s := NewSession()
	s.Upload("notes.txt", "Q1 revenue $5000")

	s.MarkAnalyzed()

	if s.NeedsAnalysis() {
		t.Error("NeedsAnalysis() = true after MarkAnalyzed")
	}
	if s.Stage != StageFreeText {
		t.Errorf("Stage = %v, want StageFreeText", s.Stage)
	}
	if s.ContextDocument() == nil {
		t.Error("ContextDocument() = nil for analyzed document")
	}
}

func TestContextDocumentOnlyAfterAnalysis(t *testing.T) {
	s := NewSession()
	if s.ContextDocument() != nil {
		t.Error("ContextDocument() != nil with no document")
	}

	s.Upload("notes.txt", "Q1 revenue $5000")
	if s.ContextDocument() != nil {
		t.Error("ContextDocument() != nil before analysis")
	}
}

func TestRequestHandoff(t *testing.T) {
	s := NewSession()
	s.Input("live agent")

	s.Select(Action{Kind: ActionHandoff, Label: handoffLabel, Target: StageFreeText})

	if s.Stage != StageFreeText {
		t.Errorf("Stage = %v, want StageFreeText", s.Stage)
	}
	if last := s.Conversation.Last(); last.Content != handoffLine {
		t.Errorf("last = %q", last.Content)
	}
}

func TestReset(t *testing.T) {
	s := NewSession()
	s.EnterStage()
	s.Input("hello")
	s.Upload("notes.txt", "data")

	s.Reset()

	if s.Stage != StageWelcome || s.Conversation.Len() != 0 || s.Document != nil || s.Pending != "" {
		t.Errorf("Reset left state behind: %+v", s)
	}
}

// Full conversation walkthrough: welcome, existing-business branch,
// live agent, document upload and analysis hand-back.
func TestConversationScenario(t *testing.T) {
	s := NewSession()

	// Fresh session: one assistant message, six options.
	s.EnterStage()
	require.Equal(t, 1, s.Conversation.Len())
	require.Len(t, s.Actions(), 6)

	// Click "I already run a business".
	var existing Action
	for _, a := range s.Actions() {
		if a.Label == "I already run a business" {
			existing = a
		}
	}
	require.NotEmpty(t, existing.Label)

	s.Select(existing)
	s.EnterStage()

	assert.Equal(t, StageExistingBusinessNeeds, s.Stage)
	msgs := s.Conversation.Snapshot()
	require.Equal(t, 3, len(msgs))
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, "I already run a business", msgs[1].Content)
	assert.Equal(t, model.RoleAssistant, msgs[2].Role)
	assert.Len(t, s.Actions(), 5)

	// Type "live agent": straight to human support, no model call.
	needsModel := s.Input("live agent")
	assert.False(t, needsModel)
	assert.Equal(t, StageHumanSupport, s.Stage)
	assert.Equal(t, liveAgentLine, s.Conversation.Last().Content)

	// Upload notes.txt: upload notice, FileAnalysis, analysis pending.
	accepted := s.Upload("notes.txt", "Q1 revenue $5000")
	require.True(t, accepted)
	assert.Equal(t, StageFileAnalysis, s.Stage)
	assert.True(t, s.NeedsAnalysis())
	assert.Equal(t, "Q1 revenue $5000", s.Document.Content)

	// The upload notice never reaches the model history.
	for _, msg := range s.Conversation.History() {
		assert.False(t, model.IsFiltered(msg.Content))
	}

	// Host runs the analysis exchange and hands the result back.
	s.Conversation.AddAssistantMessage("The document shows Q1 revenue of $5000.")
	s.MarkAnalyzed()

	assert.Equal(t, StageFreeText, s.Stage)
	assert.False(t, s.NeedsAnalysis())
	require.NotNil(t, s.ContextDocument())
}
