// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"
)

func TestStreamingBufferBatchThreshold(t *testing.T) {
	b := NewStreamingBuffer()

	// Below the batch size and inside the frame window nothing is due.
	for i := 0; i < 14; i++ {
		b.Write("x")
	}
	if b.Pending() != 14 {
		t.Errorf("Pending() = %d, want 14", b.Pending())
	}

	if !b.Write("x") {
		t.Error("Write() at batch threshold should request a flush")
	}

	got := b.Flush()
	if got != strings.Repeat("x", 15) {
		t.Errorf("Flush() = %q, want 15 x's", got)
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() after flush = %d, want 0", b.Pending())
	}
}

func TestStreamingBufferTimeBasedFlush(t *testing.T) {
	b := NewStreamingBuffer()

	b.Write("hello")
	time.Sleep(40 * time.Millisecond)

	if !b.ShouldFlush() {
		t.Error("ShouldFlush() should be true after the frame interval")
	}
}

func TestStreamingBufferFlushEmpty(t *testing.T) {
	b := NewStreamingBuffer()
	if got := b.Flush(); got != "" {
		t.Errorf("Flush() on empty buffer = %q, want empty", got)
	}
}

func TestStreamingBufferPreservesTokenOrder(t *testing.T) {
	b := NewStreamingBuffer()
	for _, tok := range []string{"The ", "quick ", "fox"} {
		b.Write(tok)
	}
	if got := b.Flush(); got != "The quick fox" {
		t.Errorf("Flush() = %q, want %q", got, "The quick fox")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	b := NewStreamingBuffer()
	b.Write("discard me")
	b.Reset()

	if b.Pending() != 0 {
		t.Errorf("Pending() after reset = %d, want 0", b.Pending())
	}
	if got := b.Flush(); got != "" {
		t.Errorf("Flush() after reset = %q, want empty", got)
	}
}
