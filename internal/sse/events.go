// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

// =============================================================================
// EVENT KINDS
// =============================================================================

// EventKind identifies one of the domain events the backend emits over the
// stream. Anything else on the wire is dropped by the decoder.
type EventKind int

const (
	// EventStatus reports pipeline progress via the payload's Stage field.
	EventStatus EventKind = iota
	// EventResponseStart signals that the model began answering.
	EventResponseStart
	// EventChunk carries an incremental piece of the answer in Content.
	EventChunk
	// EventResponseComplete ends the answer, optionally carrying the
	// authoritative FullResponse.
	EventResponseComplete
	// EventWarning carries a non-fatal notice in Message.
	EventWarning
	// EventError aborts the exchange with a reason in Message.
	EventError
	// EventDone is the backend's explicit end-of-stream marker.
	EventDone
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventResponseStart:
		return "response_start"
	case EventChunk:
		return "chunk"
	case EventResponseComplete:
		return "response_complete"
	case EventWarning:
		return "warning"
	case EventError:
		return "error"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// ParseEventKind maps a wire event name to its kind. The second return is
// false for names this client does not recognize.
func ParseEventKind(name string) (EventKind, bool) {
	switch name {
	case "status":
		return EventStatus, true
	case "response_start":
		return EventResponseStart, true
	case "chunk":
		return EventChunk, true
	case "response_complete":
		return EventResponseComplete, true
	case "warning":
		return EventWarning, true
	case "error":
		return EventError, true
	case "done":
		return EventDone, true
	default:
		return 0, false
	}
}

// =============================================================================
// PAYLOAD
// =============================================================================

// Stage values carried by status events.
const (
	StageRetrievingContext  = "retrieving_context"
	StageGeneratingResponse = "generating_response"
)

// Payload holds the fields this client reads from a record's JSON data.
// Every field is optional on the wire; which ones are meaningful depends on
// the event kind.
type Payload struct {
	Stage        string `json:"stage"`
	Content      string `json:"content"`
	FullResponse string `json:"full_response"`
	Message      string `json:"message"`
}

// Event is one decoded record: a recognized kind plus its payload.
type Event struct {
	Kind    EventKind
	Payload Payload
}
