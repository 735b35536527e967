// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// =============================================================================
// SESSION STATE
// =============================================================================

// Phase enumerates the lifecycle positions of an exchange with the backend.
type Phase int

const (
	// PhaseIdle is the initial and resting state: no exchange in flight.
	PhaseIdle Phase = iota
	// PhaseConnecting covers the window between send and the first
	// backend status event.
	PhaseConnecting
	// PhaseRetrievingContext means the backend is searching its document
	// index for relevant passages.
	PhaseRetrievingContext
	// PhaseGeneratingResponse means the model is producing an answer that
	// has not started arriving yet.
	PhaseGeneratingResponse
	// PhaseStreaming means answer text is arriving incrementally.
	PhaseStreaming
	// PhaseCompleted is a transient terminal marker; it decays back to
	// idle after a short grace delay.
	PhaseCompleted
	// PhaseError is a transient terminal marker carrying a reason; it
	// decays back to idle after a longer grace delay.
	PhaseError
)

// String returns a display name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseRetrievingContext:
		return "retrieving context"
	case PhaseGeneratingResponse:
		return "generating response"
	case PhaseStreaming:
		return "streaming"
	case PhaseCompleted:
		return "completed"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the session state as a tagged variant: the phase plus, for
// PhaseError only, the reason. Keeping the reason inside the value means an
// error state can never be observed without its explanation.
type State struct {
	Phase  Phase
	Reason string
}

// Idle returns the idle state.
func Idle() State { return State{Phase: PhaseIdle} }

// Errored returns an error state with the given reason.
func Errored(reason string) State {
	return State{Phase: PhaseError, Reason: reason}
}

// Active reports whether an exchange is in flight: any phase between
// connecting and streaming inclusive.
func (s State) Active() bool {
	switch s.Phase {
	case PhaseConnecting, PhaseRetrievingContext, PhaseGeneratingResponse, PhaseStreaming:
		return true
	default:
		return false
	}
}

// String returns a display form of the state, including the error reason
// when present.
func (s State) String() string {
	if s.Phase == PhaseError && s.Reason != "" {
		return "error: " + s.Reason
	}
	return s.Phase.String()
}
