// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// Document is an uploaded file attached to the conversation.
type Document struct {
	Name    string
	Content string
}

// Transcript lines that are bookkeeping around a document upload, not
// conversation. Anything matching these prefixes is kept in the visible
// transcript but excluded from the history sent to the model.
const (
	// UploadNoticePrefix starts every upload confirmation line.
	UploadNoticePrefix = "File '"

	// ThinkingPlaceholder is shown while the automatic document
	// analysis is running.
	ThinkingPlaceholder = "Thinking about the file content..."
)

// UploadNotice returns the system line confirming an upload.
func UploadNotice(name string) string {
	return fmt.Sprintf("File '%s' uploaded successfully. Analyzing content...", name)
}

// IsFiltered reports whether content is upload bookkeeping that must
// not be replayed to the model as history.
func IsFiltered(content string) bool {
	return strings.HasPrefix(content, UploadNoticePrefix) ||
		strings.HasPrefix(content, ThinkingPlaceholder)
}

// Wrap renders the document as the context block sent ahead of the
// user's prompt.
func (d *Document) Wrap() string {
	return fmt.Sprintf("The following is content from a file named '%s':\n\n```\n%s\n```\n\nPlease analyze this content in the context of our conversation.", d.Name, d.Content)
}
