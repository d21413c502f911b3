// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.txt")
	if err := os.WriteFile(path, []byte("Summarize the attached document.\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := store.Text(); got != "Summarize the attached document." {
		t.Errorf("Text() = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Error("Load() = nil error for missing file")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("Load() = nil error for empty file")
	}
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.txt")
	if err := os.WriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Watch(); err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}
	defer store.Close()

	if err := os.WriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for store.Text() != "second" {
		select {
		case <-deadline:
			t.Fatalf("Text() = %q, want %q after reload", store.Text(), "second")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestReloadKeepsTextOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.txt")
	if err := os.WriteFile(path, []byte("stable"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	store.reload()

	if got := store.Text(); got != "stable" {
		t.Errorf("Text() = %q, want previous text kept", got)
	}
}
