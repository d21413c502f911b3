// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// programRef lets the streaming goroutine push token messages into the
// running Bubble Tea program. Set once at startup, after tea.NewProgram
// and before Run.
var (
	programMu  sync.RWMutex
	programRef *tea.Program
)

// SetProgram registers the running program for streaming callbacks.
func SetProgram(p *tea.Program) {
	programMu.Lock()
	defer programMu.Unlock()
	programRef = p
}

// send delivers a message to the running program. Safe to call before
// SetProgram: messages are dropped, which only happens in tests.
func send(msg tea.Msg) {
	programMu.RLock()
	p := programRef
	programMu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}
