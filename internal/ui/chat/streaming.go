// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea chat view: the transcript viewport,
// the input line, the stage option list, and the streaming machinery
// that feeds model tokens into the transcript.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches incoming tokens for rendering. Tokens arrive
// from the streaming goroutine far faster than the terminal can redraw;
// the buffer holds them until either the batch size threshold is
// reached or enough time has passed since the last flush.
//
// Thread-safety: all operations are protected by a mutex since tokens
// are written from the streaming goroutine while flushes happen on the
// main Bubble Tea loop.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize  int           // tokens per batch
	minFlushMs time.Duration // min time between flushes (1000/maxFPS)
}

// NewStreamingBuffer creates a streaming buffer with default settings:
// 15 tokens per batch, flushes capped at 30fps.
func NewStreamingBuffer() *StreamingBuffer {
	const (
		defaultBatchSize = 15
		defaultMaxFPS    = 30
	)

	return &StreamingBuffer{
		batchSize:  defaultBatchSize,
		minFlushMs: time.Duration(1000/defaultMaxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// Write appends a token and reports whether the buffer is ready to
// flush.
func (b *StreamingBuffer) Write(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer.WriteString(token)
	b.tokenCount++

	return b.shouldFlushLocked()
}

// Flush returns the buffered content and resets the buffer.
// Returns an empty string if nothing is pending.
func (b *StreamingBuffer) Flush() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer.Len() == 0 {
		return ""
	}

	content := b.buffer.String()
	b.buffer.Reset()
	b.tokenCount = 0
	b.lastFlush = time.Now()

	return content
}

// ShouldFlush reports whether a flush is due without writing.
func (b *StreamingBuffer) ShouldFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shouldFlushLocked()
}

func (b *StreamingBuffer) shouldFlushLocked() bool {
	if b.buffer.Len() == 0 {
		return false
	}
	if b.tokenCount >= b.batchSize {
		return true
	}
	return time.Since(b.lastFlush) >= b.minFlushMs
}

// Pending returns the number of buffered tokens.
func (b *StreamingBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokenCount
}

// Reset discards any buffered content.
func (b *StreamingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer.Reset()
	b.tokenCount = 0
	b.lastFlush = time.Now()
}

// =============================================================================
// STREAM TICK
// =============================================================================

// streamTickCmd drives the render loop during streaming: a tick every
// 33ms (30fps) prompts the Update loop to drain the buffer into the
// transcript.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
