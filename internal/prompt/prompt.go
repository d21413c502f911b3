// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt loads the document-analysis trigger prompt from a file
// and keeps it fresh while the app runs.
package prompt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current analysis prompt text and reloads it when the
// backing file changes. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	path   string
	text   string
	cancel context.CancelFunc
}

// Load reads the prompt file and returns a Store. A missing or empty
// file is an error: the analysis flow cannot run without its prompt.
func Load(path string) (*Store, error) {
	text, err := readPrompt(path)
	if err != nil {
		return nil, err
	}

	return &Store{path: path, text: text}, nil
}

// Text returns the current prompt text.
func (s *Store) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Watch starts reloading the prompt when the file changes. Edits take
// effect on the next analysis exchange. Watch is best-effort: if the
// watcher cannot be created the current text simply stays fixed.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory, not the file: editors typically replace the
	// file via rename, which drops a direct file watch.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.processEvents(ctx, watcher)

	return nil
}

// Close stops the watcher.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// processEvents reloads the file on write/create/rename events,
// debounced so editor save storms trigger a single read.
func (s *Store) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	defer func() {
		if r := recover(); r != nil {
			_ = r
		}
	}()

	const debounce = 100 * time.Millisecond
	var timer *time.Timer

	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, s.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Non-fatal; the current text remains valid.
			_ = err
		}
	}
}

// reload re-reads the file, keeping the previous text on any failure.
func (s *Store) reload() {
	text, err := readPrompt(s.path)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}

	return text, nil
}
