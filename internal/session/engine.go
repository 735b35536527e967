// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/sse"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultCompletedGrace is how long the completed state stays visible
	// before decaying to idle.
	DefaultCompletedGrace = 300 * time.Millisecond

	// DefaultErrorGrace is how long the error state stays visible before
	// decaying to idle. Longer than completed so the reason can be read.
	DefaultErrorGrace = 1 * time.Second
)

const (
	errorPlaceholder     = "⚠️ The response failed before any text arrived."
	errorMarker          = " [interrupted by error]"
	cancelledPlaceholder = "(cancelled)"
	interruptedMarker    = " [interrupted]"

	reasonStreamEnded = "stream ended unexpectedly"
	reasonServerError = "the backend reported an error"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the engine's tunable behavior.
type Config struct {
	// CompanyID scopes every request to one document collection.
	CompanyID string

	// CompletedGrace and ErrorGrace override the terminal-state decay
	// delays. Zero selects the defaults.
	CompletedGrace time.Duration
	ErrorGrace     time.Duration

	// Streaming selects the incremental path. When false the engine uses
	// the call-and-wait Asker instead of the streaming Transport.
	Streaming bool
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the session lifecycle manager. It owns the conversation, the
// state machine, and the transport handle of the one active exchange, and it
// serializes every mutation behind a single mutex so that chunk delivery,
// timer callbacks, and UI operations never interleave.
//
// Network callbacks arrive on transport goroutines; each one re-enters the
// engine through a method that locks, verifies the delivering session is
// still the active one, and only then applies the event. Events from a
// superseded session are dropped unconditionally.
type Engine struct {
	mu  sync.Mutex
	log *zap.Logger
	cfg Config

	transport Transport
	asker     Asker

	conv   *model.Conversation
	states *Feed[State]
	state  State

	// stateSeq increments on every state change. Grace-delay timers
	// capture it at scheduling time and fire only if it is unchanged, so
	// a reset scheduled for an old terminal state never clobbers a newer
	// one.
	stateSeq uint64

	active   *exchange
	lastSent string
}

// exchange is the engine's view of one open session. The token is the
// session's identity: every delivery carries it, and deliveries whose token
// no longer matches the active exchange are stale and ignored.
type exchange struct {
	token  string
	handle Handle
	cancel context.CancelFunc
	lines  *sse.LineBuffer
	dec    *sse.Decoder
	msg    *model.Message
}

// New creates an engine over the given transports. Either transport or asker
// may be nil when the corresponding mode is never selected.
func New(transport Transport, asker Asker, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.CompletedGrace <= 0 {
		cfg.CompletedGrace = DefaultCompletedGrace
	}
	if cfg.ErrorGrace <= 0 {
		cfg.ErrorGrace = DefaultErrorGrace
	}
	return &Engine{
		log:       log,
		cfg:       cfg,
		transport: transport,
		asker:     asker,
		conv:      model.NewConversation(),
		states:    NewFeed[State](),
		state:     Idle(),
	}
}

// =============================================================================
// PUBLIC OPERATIONS
// =============================================================================

// Send submits a user utterance. Whitespace-only input is a no-op. Any prior
// session is cancelled first; at most one session is ever active.
func (e *Engine) Send(utterance string) {
	utterance = util.SanitizeInput(utterance)
	if utterance == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.conv.AddUserMessage(utterance)
	e.lastSent = utterance

	req := Request{Message: utterance, CompanyID: e.cfg.CompanyID}
	if e.cfg.Streaming {
		e.openStreamLocked(req)
	} else {
		e.openAskLocked(req)
	}
}

// Cancel aborts the active session, if any. The mid-stream message is
// finalized as interrupted and the state returns to idle immediately with no
// grace delay. Idempotent.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil && e.state.Phase == PhaseIdle {
		return
	}
	e.cancelLocked()
	e.setStateLocked(Idle())
}

// Retry re-sends the last user utterance after a failed turn. Trailing
// errored assistant messages and the user message that produced them are
// removed first, so the transcript ends up with the prior successful turns
// plus one fresh copy of the re-sent message. No-op when the transcript does
// not end in a failed turn.
func (e *Engine) Retry() {
	e.Cancel()

	e.mu.Lock()
	utterance, ok := e.conv.TrimFailedTail()
	e.mu.Unlock()
	if !ok {
		return
	}
	e.Send(utterance)
}

// Clear cancels any active session and discards the whole transcript.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.conv.Clear()
	e.setStateLocked(Idle())
}

// Messages returns an immutable snapshot of the transcript in order. The
// snapshot values are copied under the engine lock, so callers can read them
// freely while streaming continues.
func (e *Engine) Messages() []model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	msgs := e.conv.Messages()
	out := make([]model.Snapshot, len(msgs))
	for i, m := range msgs {
		out[i] = m.Snapshot()
	}
	return out
}

// State returns the current session state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// States exposes the state feed for subscription. Subscribers are invoked on
// the engine's serialization context and must not call back into the engine.
func (e *Engine) States() *Feed[State] {
	return e.states
}

// =============================================================================
// SESSION OPENING
// =============================================================================

// openStreamLocked opens a streaming exchange and starts its pump goroutine.
// A synchronous Open failure is a validation error: it produces a visible
// error message and no session.
func (e *Engine) openStreamLocked(req Request) {
	ctx, cancel := context.WithCancel(context.Background())
	handle, err := e.transport.Open(ctx, req)
	if err != nil {
		cancel()
		e.log.Warn("stream open rejected", zap.Error(err))
		e.failLocked("cannot reach backend: " + err.Error())
		return
	}

	ex := &exchange{
		token:  uuid.NewString(),
		handle: handle,
		cancel: cancel,
		lines:  &sse.LineBuffer{},
		dec:    sse.NewDecoder(e.log),
	}
	e.active = ex
	e.setStateLocked(State{Phase: PhaseConnecting})
	e.log.Debug("session opened", zap.String("token", ex.token))

	go e.pump(ex.token, handle)
}

// pump drains one handle and re-enters the engine for every delivery. It is
// the only reader of the handle's channels.
func (e *Engine) pump(token string, h Handle) {
	for chunk := range h.Chunks() {
		e.deliverChunk(token, chunk)
	}
	e.deliverDone(token, <-h.Done())
}

// openAskLocked runs the call-and-wait fallback. The exchange carries no
// handle; cancellation works through the context alone.
func (e *Engine) openAskLocked(req Request) {
	ctx, cancel := context.WithCancel(context.Background())
	ex := &exchange{
		token:  uuid.NewString(),
		cancel: cancel,
	}
	e.active = ex
	e.setStateLocked(State{Phase: PhaseConnecting})

	go func() {
		response, err := e.asker.Ask(ctx, req)
		e.deliverAnswer(ex.token, response, err)
	}()
}

// =============================================================================
// DELIVERY (transport goroutine re-entry points)
// =============================================================================

// deliverChunk applies one raw chunk from the transport. Stale chunks are
// dropped before any parsing.
func (e *Engine) deliverChunk(token string, chunk []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ex := e.active
	if ex == nil || ex.token != token {
		return
	}
	for _, line := range ex.lines.Feed(chunk) {
		ev, ok := ex.dec.Feed(line)
		if !ok {
			continue
		}
		e.applyEventLocked(ex, ev)
		// An error or done event tears the session down mid-chunk;
		// anything decoded after it belongs to a dead session.
		if e.active != ex {
			return
		}
	}
}

// deliverDone applies the transport's terminal signal. A clean close while
// the session is still active means the stream ended without a terminal
// event, which is a failure.
func (e *Engine) deliverDone(token string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ex := e.active
	if ex == nil || ex.token != token {
		return
	}
	if err != nil {
		e.log.Warn("transport failed", zap.String("token", token), zap.Error(err))
		e.failLocked(err.Error())
		return
	}
	if e.state.Active() {
		e.failLocked(reasonStreamEnded)
		return
	}
	e.teardownLocked()
}

// deliverAnswer applies the result of a call-and-wait exchange.
func (e *Engine) deliverAnswer(token string, response string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ex := e.active
	if ex == nil || ex.token != token {
		return
	}
	if err != nil {
		e.failLocked(err.Error())
		return
	}
	msg := e.conv.AddAssistantMessage()
	msg.Finalize(response)
	e.teardownLocked()
	e.setStateLocked(State{Phase: PhaseCompleted})
	e.scheduleResetLocked(e.cfg.CompletedGrace)
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

// applyEventLocked drives the state machine and the transcript from one
// decoded event.
func (e *Engine) applyEventLocked(ex *exchange, ev sse.Event) {
	switch ev.Kind {
	case sse.EventStatus:
		e.applyStatusLocked(ev.Payload.Stage)

	case sse.EventResponseStart:
		if !e.state.Active() {
			return
		}
		ex.msg = e.conv.AddAssistantMessage()
		ex.msg.Status = "responding..."
		e.setStateLocked(State{Phase: PhaseStreaming})

	case sse.EventChunk:
		if ex.msg != nil {
			ex.msg.AppendChunk(ev.Payload.Content)
		}

	case sse.EventResponseComplete:
		if ex.msg != nil {
			ex.msg.Finalize(ev.Payload.FullResponse)
			e.log.Debug("response complete",
				zap.String("preview", ex.msg.Preview(60)))
			ex.msg = nil
		}
		e.setStateLocked(State{Phase: PhaseCompleted})
		e.scheduleResetLocked(e.cfg.CompletedGrace)

	case sse.EventWarning:
		e.log.Warn("backend warning", zap.String("message", ev.Payload.Message))

	case sse.EventError:
		reason := ev.Payload.Message
		if reason == "" {
			reason = reasonServerError
		}
		e.failLocked(reason)

	case sse.EventDone:
		// Normal end of session. If no terminal event preceded it the
		// stream ended without a response, which is a failure.
		if e.state.Active() {
			e.failLocked(reasonStreamEnded)
			return
		}
		e.teardownLocked()
	}
}

// applyStatusLocked maps a backend progress stage onto the state machine.
// Stages never move the machine backwards or out of an active phase.
func (e *Engine) applyStatusLocked(stage string) {
	switch stage {
	case sse.StageRetrievingContext:
		if e.state.Phase == PhaseConnecting {
			e.setStateLocked(State{Phase: PhaseRetrievingContext})
		}
	case sse.StageGeneratingResponse:
		if e.state.Phase == PhaseConnecting || e.state.Phase == PhaseRetrievingContext {
			e.setStateLocked(State{Phase: PhaseGeneratingResponse})
		}
	default:
		e.log.Debug("unknown status stage", zap.String("stage", stage))
	}
}

// =============================================================================
// FAILURE AND TEARDOWN
// =============================================================================

// failLocked moves the session to the error state. A mid-stream message is
// finalized as interrupted; otherwise a standalone error message is appended
// so the failure is always visible in the transcript.
func (e *Engine) failLocked(reason string) {
	if e.active != nil && e.active.msg != nil {
		e.active.msg.FinalizeInterrupted(errorPlaceholder, errorMarker)
	} else {
		e.conv.Append(model.NewErrorMessage("⚠️ " + reason))
	}
	e.teardownLocked()
	e.setStateLocked(Errored(reason))
	e.scheduleResetLocked(e.cfg.ErrorGrace)
}

// cancelLocked tears down the active session as a caller-initiated
// interruption. It does not touch the state machine; callers decide what
// state follows.
func (e *Engine) cancelLocked() {
	if e.active == nil {
		return
	}
	if e.active.msg != nil {
		e.active.msg.FinalizeInterrupted(cancelledPlaceholder, interruptedMarker)
	}
	e.teardownLocked()
}

// teardownLocked releases the active exchange: aborts the transport
// best-effort, cancels its context, and drops the reassembly state. Stale
// deliveries from the released exchange fail the token check from now on.
func (e *Engine) teardownLocked() {
	ex := e.active
	if ex == nil {
		return
	}
	e.active = nil
	if ex.handle != nil {
		ex.handle.Cancel()
	}
	if ex.cancel != nil {
		ex.cancel()
	}
	ex.lines = nil
	ex.dec = nil
	e.log.Debug("session released", zap.String("token", ex.token))
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// setStateLocked publishes a new state and invalidates any scheduled reset.
func (e *Engine) setStateLocked(s State) {
	e.stateSeq++
	e.state = s
	e.states.Publish(s)
}

// scheduleResetLocked arms the grace-delay decay of a terminal state back to
// idle. The reset fires only if no other transition happened in between.
func (e *Engine) scheduleResetLocked(d time.Duration) {
	seq := e.stateSeq
	time.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.stateSeq != seq {
			return
		}
		e.setStateLocked(Idle())
	})
}
