// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation transcript.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in the conversation.
//
// While an assistant message is streaming its text is append-only; once
// Completed is set the text never changes again. Only the session engine
// touches a Message, and it does so from a single serialization context, so
// Message carries no locking of its own. Code outside that context renders
// from Snapshot values instead of holding Message pointers.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content. While streaming, text accumulates in streamContent and is
	// merged into Content at finalization.
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	Content       string `json:"content"`
	streamContent strings.Builder

	// Lifecycle flags
	IsStreaming bool `json:"-"`
	Completed   bool `json:"completed"`

	// Errored marks a message finalized by an error or interruption. Retry
	// strips trailing errored assistant messages before resending.
	Errored bool `json:"errored,omitempty"`

	// Status is a short transient label shown next to a streaming message,
	// e.g. "responding...". Cleared at finalization.
	Status string `json:"-"`
}

// NewUserMessage creates a user message, finalized immediately.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Completed: true,
	}
}

// NewAssistantMessage creates an empty assistant message in streaming state.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewErrorMessage creates a completed assistant message carrying an error
// notice, used when a session fails before any response text arrived.
func NewErrorMessage(text string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleAssistant,
		Content:   text,
		Timestamp: time.Now(),
		Completed: true,
		Errored:   true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendChunk appends streamed text to a streaming message. Calls on a
// finalized message are ignored; a completed message is immutable.
func (m *Message) AppendChunk(chunk string) {
	if !m.IsStreaming || m.Completed {
		return
	}
	m.streamContent.WriteString(chunk)
}

// Finalize completes streaming. When full is non-empty it is the backend's
// authoritative response text and replaces the accumulated preview verbatim;
// otherwise the accumulated text stands.
func (m *Message) Finalize(full string) {
	if !m.IsStreaming {
		return
	}
	if full != "" {
		m.Content = full
	} else {
		m.Content = m.streamContent.String()
	}
	m.streamContent.Reset()
	m.IsStreaming = false
	m.Completed = true
	m.Status = ""
}

// FinalizeInterrupted completes a streaming message that was cut short by an
// error or cancellation. An empty message becomes the placeholder text; a
// partially streamed one keeps its text with the marker appended.
func (m *Message) FinalizeInterrupted(placeholder, marker string) {
	if !m.IsStreaming {
		return
	}
	text := m.streamContent.String()
	if text == "" {
		text = placeholder
	} else {
		text += marker
	}
	m.Content = text
	m.streamContent.Reset()
	m.IsStreaming = false
	m.Completed = true
	m.Errored = true
	m.Status = ""
}

// DisplayContent returns the text to render: the live accumulation while
// streaming, the final content afterwards.
func (m *Message) DisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// IsEmpty reports whether the message has no text at all.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(m.DisplayContent(), maxLen)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable copy of a message taken for rendering. Observers
// on other goroutines read these plain values while the engine keeps
// appending to the live Message behind its lock.
type Snapshot struct {
	ID        string
	Role      Role
	Timestamp time.Time

	// Text is the display text at the time of the snapshot: the live
	// accumulation while streaming, the final content afterwards.
	Text string

	Streaming bool
	Completed bool
	Errored   bool
	Status    string
}

// Snapshot copies the message's observable state. Must be called from the
// same serialization context that mutates the message.
func (m *Message) Snapshot() Snapshot {
	return Snapshot{
		ID:        m.ID,
		Role:      m.Role,
		Timestamp: m.Timestamp,
		Text:      m.DisplayContent(),
		Streaming: m.IsStreaming,
		Completed: m.Completed,
		Errored:   m.Errored,
		Status:    m.Status,
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID. IDs are never reused.
func generateID() string {
	return "msg_" + uuid.NewString()
}
