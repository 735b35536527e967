// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the ordered list of messages for the single in-memory
// exchange. It performs no locking; the session engine serializes all access.
type Conversation struct {
	messages []*Message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{messages: make([]*Message, 0)}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(msg *Message) {
	c.messages = append(c.messages, msg)
}

// AddUserMessage creates and appends a finalized user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.Append(msg)
	return msg
}

// AddAssistantMessage creates and appends a streaming assistant message.
// Any message still marked streaming is finalized first, preserving the
// invariant that at most one message streams at a time.
func (c *Conversation) AddAssistantMessage() *Message {
	if prev := c.StreamingMessage(); prev != nil {
		prev.Finalize("")
	}
	msg := NewAssistantMessage()
	c.Append(msg)
	return msg
}

// StreamingMessage returns the message currently streaming, or nil.
func (c *Conversation) StreamingMessage() *Message {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].IsStreaming {
			return c.messages[i]
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

// Messages returns the ordered message list. The slice is a copy; the
// messages themselves are shared live values, so callers outside the owning
// serialization context must work from Snapshot copies instead.
func (c *Conversation) Messages() []*Message {
	out := make([]*Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// IsEmpty reports whether the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// Clear removes all messages.
func (c *Conversation) Clear() {
	c.messages = make([]*Message, 0)
}

// =============================================================================
// RETRY SUPPORT
// =============================================================================

// TrimFailedTail prepares the conversation for a retry after a failed turn.
// It removes trailing errored assistant messages, then removes the trailing
// user message and returns its text so the caller can resend it. Prior
// successful turns are untouched.
//
// Returns ok=false (and removes nothing further) when no trailing user
// message exists to resend.
func (c *Conversation) TrimFailedTail() (utterance string, ok bool) {
	for len(c.messages) > 0 {
		last := c.messages[len(c.messages)-1]
		if last.Role != RoleAssistant || !last.Errored {
			break
		}
		c.messages = c.messages[:len(c.messages)-1]
	}

	if len(c.messages) == 0 {
		return "", false
	}
	last := c.messages[len(c.messages)-1]
	if last.Role != RoleUser {
		return "", false
	}
	c.messages = c.messages[:len(c.messages)-1]
	return last.Content, true
}
