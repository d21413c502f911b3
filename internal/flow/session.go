// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package flow

import (
	"strings"

	"github.com/finbot-labs/finbot-tui/internal/model"
)

// liveAgentCommand is the typed escape hatch to human support,
// matched case-insensitively against the whole trimmed input.
const liveAgentCommand = "live agent"

// Session owns all per-conversation state: the transcript, the active
// stage, the pending selection awaiting its echo, and the uploaded
// document. It is created fresh per session and never persisted.
//
// All mutation happens through the methods below, one synchronous event
// at a time; the host re-invokes EnterStage after every event.
type Session struct {
	Conversation *model.Conversation
	Stage        Stage

	// Pending is the last selected option label, held until the next
	// EnterStage consumes it. Never survives past one cycle.
	Pending string

	Document         *model.Document
	DocumentAnalyzed bool
}

// NewSession creates an empty session at the Welcome stage.
func NewSession() *Session {
	return &Session{
		Conversation: model.NewConversation(),
		Stage:        StageWelcome,
	}
}

// Reset returns the session to a fresh Welcome with an empty
// transcript. The uploaded document is dropped too.
func (s *Session) Reset() {
	s.Conversation = model.NewConversation()
	s.Stage = StageWelcome
	s.Pending = ""
	s.Document = nil
	s.DocumentAnalyzed = false
}

// EnterStage performs the idempotent entry action for the current
// stage. Called on every render cycle: with no pending selection and no
// new event it appends nothing.
func (s *Session) EnterStage() {
	spec := stageTable[s.Stage]

	if s.Pending != "" {
		// Guard against replaying the canned lines when the
		// transcript already ends with them.
		if !s.tailMatches(spec.lines) {
			s.Conversation.AddUserMessage(s.Pending)
			for _, line := range spec.lines {
				s.Conversation.AddAssistantMessage(line)
			}
		}
		s.Pending = ""
		return
	}

	// Welcome greets on any fresh entry, including return-to-start,
	// but never twice in a row.
	if s.Stage == StageWelcome {
		last := s.Conversation.Last()
		if last == nil || last.Content != welcomeGreeting {
			s.Conversation.AddAssistantMessage(welcomeGreeting)
		}
	}
}

// tailMatches reports whether the transcript already ends with the
// stage's last canned line.
func (s *Session) tailMatches(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	last := s.Conversation.Last()
	return last != nil && last.Content == lines[len(lines)-1]
}

// Select applies a widget selection. Option selections record the label
// as pending and move to the target stage; the echo happens in the next
// EnterStage. Back-to-start and handoff actions take effect directly.
func (s *Session) Select(action Action) {
	switch action.Kind {
	case ActionOption:
		s.Pending = action.Label
		s.Stage = action.Target
	case ActionBackToStart:
		s.Stage = StageWelcome
	case ActionHandoff:
		s.RequestHandoff()
	}
}

// Actions returns the widgets the current stage offers.
func (s *Session) Actions() []Action {
	return Actions(s.Stage)
}

// Input handles free-typed text. It forces the session into free-text
// mode (unless a file analysis is in progress), appends the user
// message, and reports whether the turn requires a model exchange.
// The "live agent" command is handled here without a model call.
func (s *Session) Input(text string) (needsModel bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if s.Stage != StageFreeText && s.Stage != StageFileAnalysis {
		s.Stage = StageFreeText
	}

	s.Conversation.AddUserMessage(trimmed)

	if strings.EqualFold(trimmed, liveAgentCommand) {
		s.Conversation.AddAssistantMessage(liveAgentLine)
		s.Stage = StageHumanSupport
		return false
	}

	return true
}

// Upload stores an uploaded document. A document with the same name as
// the held one is a no-op; a new name replaces it, resets the analyzed
// flag, appends the upload notice, and moves to FileAnalysis. Returns
// whether the upload was accepted.
func (s *Session) Upload(name, content string) bool {
	if s.Document != nil && s.Document.Name == name {
		return false
	}

	s.Document = &model.Document{Name: name, Content: content}
	s.DocumentAnalyzed = false
	s.Conversation.AddAssistantMessage(model.UploadNotice(name))
	s.Stage = StageFileAnalysis
	return true
}

// RequestHandoff appends the hand-off line and returns to free text.
func (s *Session) RequestHandoff() {
	s.Conversation.AddAssistantMessage(handoffLine)
	s.Stage = StageFreeText
}

// NeedsAnalysis reports whether a held document still awaits its
// automatic analysis exchange.
func (s *Session) NeedsAnalysis() bool {
	return s.Document != nil && !s.DocumentAnalyzed
}

// MarkAnalyzed records that the analysis exchange completed and moves
// the session to free text. Idempotent.
func (s *Session) MarkAnalyzed() {
	s.DocumentAnalyzed = true
	s.Stage = StageFreeText
}

// ContextDocument returns the document to inject into ordinary
// free-text exchanges: only an already-analyzed document rides along.
func (s *Session) ContextDocument() *model.Document {
	if s.Document != nil && s.DocumentAnalyzed {
		return s.Document
	}
	return nil
}
