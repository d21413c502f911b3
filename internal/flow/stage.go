// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package flow implements the conversational state machine: dialog
// stages, their canned lines and option sets, and the transitions
// driven by selections, typed input, and document uploads.
package flow

// Stage identifies the current point in the dialog tree. Exactly one
// stage is active per session; transitions are the only way to change it.
type Stage int

const (
	StageWelcome Stage = iota
	StageNewBusinessStart
	StageNewBusinessIdea
	StageNewBusinessNoIdea
	StageExistingBusinessNeeds
	StageLearnMoreTopics
	StageFreeText
	StageFileAnalysis
	StageHumanSupport
)

// String returns a stable identifier for the stage.
func (s Stage) String() string {
	switch s {
	case StageWelcome:
		return "welcome"
	case StageNewBusinessStart:
		return "new_business_start"
	case StageNewBusinessIdea:
		return "new_business_idea"
	case StageNewBusinessNoIdea:
		return "new_business_no_idea"
	case StageExistingBusinessNeeds:
		return "existing_business_needs"
	case StageLearnMoreTopics:
		return "learn_more_topics"
	case StageFreeText:
		return "free_text"
	case StageFileAnalysis:
		return "file_analysis"
	case StageHumanSupport:
		return "human_support"
	default:
		return "unknown"
	}
}

// ActionKind distinguishes the widgets a stage offers.
type ActionKind int

const (
	// ActionOption is a dialog option: selecting it echoes the label
	// and moves to the target stage.
	ActionOption ActionKind = iota

	// ActionBackToStart returns to the Welcome stage without an echo.
	ActionBackToStart

	// ActionHandoff is the HumanSupport button that appends the
	// hand-off line and returns to free text.
	ActionHandoff
)

// Action is one selectable widget offered by a stage.
type Action struct {
	Kind   ActionKind
	Label  string
	Target Stage
}

// stageSpec is one row of the declarative stage table: the canned
// assistant lines appended on entry and the actions offered.
type stageSpec struct {
	lines   []string
	actions []Action
}

// Canned lines that are referenced from transition logic as well as the
// stage table.
const (
	welcomeGreeting = "Hi 👋 I’m FinBot, your small business finance buddy. I can help you track cash flow, check funding options, or give you smart budget tips. Let’s get started — what do you want help with today?"

	liveAgentLine = "Connecting you to a human expert. Please wait a moment."
	handoffLine   = "Our human expert will be with you shortly. Please provide your contact details."

	backToStartLabel = "Back to Main Menu"
	handoffLabel     = "Talk to a Human Expert"
)

var stageTable = map[Stage]stageSpec{
	StageWelcome: {
		lines: []string{welcomeGreeting},
		actions: []Action{
			{Kind: ActionOption, Label: "I’m just starting my business", Target: StageNewBusinessStart},
			{Kind: ActionOption, Label: "I already run a business", Target: StageExistingBusinessNeeds},
			{Kind: ActionOption, Label: "I want funding help", Target: StageFreeText},
			{Kind: ActionOption, Label: "I want to track my cash flow", Target: StageFreeText},
			{Kind: ActionOption, Label: "I want to learn more", Target: StageLearnMoreTopics},
			{Kind: ActionOption, Label: "I have a question", Target: StageFreeText},
		},
	},
	StageNewBusinessStart: {
		lines: []string{"Great! Let’s build a strong base together. Do you have a business idea yet?"},
		actions: []Action{
			{Kind: ActionOption, Label: "Yes, I have an idea", Target: StageNewBusinessIdea},
			{Kind: ActionOption, Label: "No, I need help choosing", Target: StageNewBusinessNoIdea},
		},
	},
	StageNewBusinessIdea: {
		lines: []string{
			"Awesome! Do you know roughly how much money you’ll need to start?",
			"*(Placeholder: Offer simple planning template)*",
		},
		actions: []Action{
			{Kind: ActionBackToStart, Label: backToStartLabel, Target: StageWelcome},
		},
	},
	StageNewBusinessNoIdea: {
		lines: []string{
			"No worries! I can show you some small business ideas that need low investment. Want to see them?",
			"*(Placeholder: Link to blog/articles for ideas)*",
		},
		actions: []Action{
			{Kind: ActionBackToStart, Label: backToStartLabel, Target: StageWelcome},
		},
	},
	StageExistingBusinessNeeds: {
		lines: []string{"Good to know! What’s your biggest need right now?"},
		actions: []Action{
			{Kind: ActionOption, Label: "Track cash flow", Target: StageFreeText},
			{Kind: ActionOption, Label: "Check funding eligibility", Target: StageFreeText},
			{Kind: ActionOption, Label: "Get budget advice", Target: StageFreeText},
			{Kind: ActionOption, Label: "Improve financial health score", Target: StageFreeText},
			{Kind: ActionOption, Label: "Other", Target: StageFreeText},
		},
	},
	StageLearnMoreTopics: {
		lines: []string{"Perfect! I can share guides, checklists, or tips for you. What do you want to learn about?"},
		actions: []Action{
			{Kind: ActionOption, Label: "How to budget better", Target: StageFreeText},
			{Kind: ActionOption, Label: "How to save money", Target: StageFreeText},
			{Kind: ActionOption, Label: "How to get more customers", Target: StageFreeText},
			{Kind: ActionOption, Label: "How to file taxes", Target: StageFreeText},
			{Kind: ActionOption, Label: "Other", Target: StageFreeText},
		},
	},
	StageFreeText: {
		actions: []Action{
			{Kind: ActionBackToStart, Label: backToStartLabel, Target: StageWelcome},
		},
	},
	StageFileAnalysis: {
		actions: []Action{
			{Kind: ActionBackToStart, Label: backToStartLabel, Target: StageWelcome},
		},
	},
	StageHumanSupport: {
		actions: []Action{
			{Kind: ActionHandoff, Label: handoffLabel, Target: StageFreeText},
		},
	},
}

// Actions returns the ordered action list for a stage. Pure lookup.
func Actions(stage Stage) []Action {
	return stageTable[stage].actions
}

// Lines returns the canned assistant lines appended when a stage is
// entered via a selection (or, for Welcome, on any fresh entry).
func Lines(stage Stage) []string {
	return stageTable[stage].lines
}
