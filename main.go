// finbot TUI - a terminal chat assistant for small business finance.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/finbot-labs/finbot-tui/internal/assistant"
	"github.com/finbot-labs/finbot-tui/internal/config"
	"github.com/finbot-labs/finbot-tui/internal/flow"
	"github.com/finbot-labs/finbot-tui/internal/ollama"
	"github.com/finbot-labs/finbot-tui/internal/prompt"
	"github.com/finbot-labs/finbot-tui/internal/ui/chat"
	"github.com/finbot-labs/finbot-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.finbot/config.toml)")
	modelName := flag.String("model", "", "override the configured Ollama model")
	promptPath := flag.String("prompt", "", "override the analysis prompt file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("finbot %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	// Load configuration. The Ollama base URL and model name are the
	// only hard requirements; everything else has a default.
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		if config.MissingRequired(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			fmt.Fprintf(os.Stderr, "finbot needs to know where Ollama is and which model to use.\n")
			fmt.Fprintf(os.Stderr, "Either set them in ~/.finbot/config.toml:\n\n")
			fmt.Fprintf(os.Stderr, "  [ollama]\n")
			fmt.Fprintf(os.Stderr, "  base_url = \"http://localhost:11434\"\n")
			fmt.Fprintf(os.Stderr, "  model = \"llama3.2\"\n\n")
			fmt.Fprintf(os.Stderr, "or export OLLAMA_API_BASE and OLLAMA_MODEL.\n")
		} else {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		}
		os.Exit(1)
	}

	// CLI args override config
	if *modelName != "" {
		cfg.Ollama.Model = *modelName
	}
	if *promptPath != "" {
		cfg.Chat.AnalysisPromptPath = *promptPath
	}
	config.SetGlobal(cfg)

	// The analysis trigger prompt must exist up front; edits to the
	// file are picked up while running.
	prompts, err := prompt.Load(cfg.Chat.AnalysisPromptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading analysis prompt: %v\n", err)
		os.Exit(1)
	}
	defer prompts.Close()
	if err := prompts.Watch(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: prompt file watching disabled: %v\n", err)
	}

	ollamaClient := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Ollama.BaseURL,
		DefaultModel: cfg.Ollama.Model,
		Timeout:      time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
	})

	// Reachability check up front so a dead endpoint is visible before
	// the first exchange. Not fatal: Ollama may come up later and every
	// exchange degrades to an apology with a diagnostic anyway.
	checkCtx, cancelCheck := context.WithTimeout(context.Background(), 5*time.Second)
	if err := ollamaClient.CheckRunning(checkCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot reach Ollama at %s: %v\n", cfg.Ollama.BaseURL, err)
	}
	cancelCheck()

	client := assistant.New(
		ollamaClient,
		cfg.Ollama.Model,
		cfg.Chat.SystemPrompt,
		time.Duration(cfg.Ollama.StreamTimeoutSecs)*time.Second,
	)

	theme := styles.NewThemeWithMode(cfg.UI.Theme)
	session := flow.NewSession()

	m := chat.New(theme, session, client, prompts, cfg)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	chat.SetProgram(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
