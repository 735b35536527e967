// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// fakeHandle is a scripted transport handle. Tests either emit chunks
// through its channels or drive the engine's delivery methods directly.
type fakeHandle struct {
	chunks    chan []byte
	done      chan error
	closeOnce sync.Once
	cancelled atomic.Bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		chunks: make(chan []byte, 32),
		done:   make(chan error, 1),
	}
}

func (h *fakeHandle) Chunks() <-chan []byte { return h.chunks }
func (h *fakeHandle) Done() <-chan error    { return h.done }

func (h *fakeHandle) Cancel() {
	h.cancelled.Store(true)
	h.finish(context.Canceled)
}

// emit delivers one raw chunk through the channel.
func (h *fakeHandle) emit(s string) { h.chunks <- []byte(s) }

// finish closes the stream with the given terminal signal.
func (h *fakeHandle) finish(err error) {
	h.closeOnce.Do(func() {
		close(h.chunks)
		h.done <- err
	})
}

// fakeTransport hands out fakeHandles and records every open.
type fakeTransport struct {
	mu      sync.Mutex
	handles []*fakeHandle
	openErr error
}

func (f *fakeTransport) Open(ctx context.Context, req Request) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	h := newFakeHandle()
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeTransport) opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeTransport) handle(i int) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[i]
}

// fakeAsker is a scripted call-and-wait backend.
type fakeAsker struct {
	response string
	err      error
}

func (f *fakeAsker) Ask(ctx context.Context, req Request) (string, error) {
	return f.response, f.err
}

func newTestEngine(transport Transport) *Engine {
	return New(transport, nil, Config{
		CompanyID:      "acme",
		CompletedGrace: 20 * time.Millisecond,
		ErrorGrace:     30 * time.Millisecond,
		Streaming:      true,
	}, nil)
}

// activeToken reads the current session token for driving deliveries
// directly.
func activeToken(e *Engine) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return ""
	}
	return e.active.token
}

// waitFor polls until cond holds or the test times out.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func lastMessage(e *Engine) (model.Snapshot, bool) {
	msgs := e.Messages()
	if len(msgs) == 0 {
		return model.Snapshot{}, false
	}
	return msgs[len(msgs)-1], true
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestEngine_SendEmptyInputIsNoOp(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("")
	e.Send("   \n\t ")

	if n := len(e.Messages()); n != 0 {
		t.Errorf("Messages = %d, want 0", n)
	}
	if ft.opened() != 0 {
		t.Errorf("transport opened %d times, want 0", ft.opened())
	}
	if e.State().Phase != PhaseIdle {
		t.Errorf("State = %v, want idle", e.State())
	}
}

func TestEngine_SendAppendsUserMessageAndConnects(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("  hello there  ")

	msgs := e.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Messages = %d, want 1", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Text != "hello there" {
		t.Errorf("user message = %+v", msgs[0])
	}
	if e.State().Phase != PhaseConnecting {
		t.Errorf("State = %v, want connecting", e.State())
	}
	if ft.opened() != 1 {
		t.Errorf("transport opened %d times, want 1", ft.opened())
	}
}

func TestEngine_SendFailsClosedOnOpenError(t *testing.T) {
	ft := &fakeTransport{openErr: errors.New("bad endpoint")}
	e := newTestEngine(ft)

	e.Send("hi")

	if e.State().Phase != PhaseError {
		t.Fatalf("State = %v, want error", e.State())
	}
	last, ok := lastMessage(e)
	if !ok || !last.Errored {
		t.Error("no visible error message appended")
	}

	// Error state decays to idle after the grace delay
	waitFor(t, func() bool { return e.State().Phase == PhaseIdle }, "grace reset to idle")
}

func TestEngine_SendCancelsPriorSession(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("first")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: chunk\ndata: {\"content\":\"part\"}\n\n"))

	e.Send("second")

	if ft.opened() != 2 {
		t.Fatalf("transport opened %d times, want 2", ft.opened())
	}
	if !ft.handle(0).cancelled.Load() {
		t.Error("first handle was not cancelled")
	}

	// The superseded streaming message is finalized as interrupted
	var interrupted model.Snapshot
	var found bool
	for _, m := range e.Messages() {
		if m.Role == model.RoleAssistant {
			interrupted = m
			found = true
		}
	}
	if !found || interrupted.Streaming || !interrupted.Errored {
		t.Errorf("superseded message not finalized as interrupted: %+v", interrupted)
	}
}

// =============================================================================
// STREAMING EVENT TESTS
// =============================================================================

// TestEngine_HelloScenario replays the canonical exchange with a chunk split
// mid-payload and verifies the final transcript.
func TestEngine_HelloScenario(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("greet me")
	h := ft.handle(0)

	h.emit("event: response_start\ndata: {}\n\n")
	h.emit("event: chunk\ndata: {\"content\":\"Hel")
	h.emit("lo\"}\n\nevent: response_complete\ndata: {\"full_response\":\"Hello\"}\n\n")
	h.finish(nil)

	waitFor(t, func() bool {
		last, ok := lastMessage(e)
		return ok && last.Completed && last.Role == model.RoleAssistant
	}, "assistant message completion")

	last, _ := lastMessage(e)
	if last.Text != "Hello" {
		t.Errorf("Text = %q, want %q", last.Text, "Hello")
	}
	if last.Errored {
		t.Error("successful response marked errored")
	}

	waitFor(t, func() bool { return e.State().Phase == PhaseIdle }, "grace reset to idle")
}

func TestEngine_StatusStageTransitions(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)

	e.deliverChunk(tok, []byte("event: status\ndata: {\"stage\":\"retrieving_context\"}\n\n"))
	if e.State().Phase != PhaseRetrievingContext {
		t.Errorf("State = %v, want retrieving context", e.State())
	}

	e.deliverChunk(tok, []byte("event: status\ndata: {\"stage\":\"generating_response\"}\n\n"))
	if e.State().Phase != PhaseGeneratingResponse {
		t.Errorf("State = %v, want generating response", e.State())
	}

	// A late retrieving_context status must not move the machine backwards
	e.deliverChunk(tok, []byte("event: status\ndata: {\"stage\":\"retrieving_context\"}\n\n"))
	if e.State().Phase != PhaseGeneratingResponse {
		t.Errorf("State = %v, machine moved backwards", e.State())
	}
}

func TestEngine_ResponseStartCreatesStreamingMessage(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))

	if e.State().Phase != PhaseStreaming {
		t.Errorf("State = %v, want streaming", e.State())
	}
	last, ok := lastMessage(e)
	if !ok || !last.Streaming {
		t.Fatal("no streaming assistant message created")
	}
	if last.Status == "" {
		t.Error("streaming message has no status label")
	}
}

func TestEngine_FullResponseReplacesAccumulatedText(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: chunk\ndata: {\"content\":\"best effort\"}\n\n"))
	e.deliverChunk(tok, []byte("event: response_complete\ndata: {\"full_response\":\"authoritative\"}\n\n"))

	last, _ := lastMessage(e)
	if last.Text != "authoritative" {
		t.Errorf("Text = %q, want authoritative replacement", last.Text)
	}
	if e.State().Phase != PhaseCompleted {
		t.Errorf("State = %v, want completed", e.State())
	}
}

func TestEngine_CompleteWithoutFullResponseKeepsAccumulated(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: chunk\ndata: {\"content\":\"kept text\"}\n\n"))
	e.deliverChunk(tok, []byte("event: response_complete\ndata: {}\n\n"))

	if last, _ := lastMessage(e); last.Text != "kept text" {
		t.Errorf("Text = %q, want accumulated text", last.Text)
	}
}

func TestEngine_ErrorEventFinalizesAndReports(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: chunk\ndata: {\"content\":\"partial\"}\n\n"))
	e.deliverChunk(tok, []byte("event: error\ndata: {\"message\":\"model overloaded\"}\n\n"))

	st := e.State()
	if st.Phase != PhaseError || st.Reason != "model overloaded" {
		t.Errorf("State = %v, want error with reason", st)
	}
	last, _ := lastMessage(e)
	if last.Streaming || !last.Errored {
		t.Error("mid-stream message not finalized on error")
	}

	waitFor(t, func() bool { return e.State().Phase == PhaseIdle }, "error grace reset")
}

func TestEngine_ErrorEventWithoutMessageUsesGenericReason(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: error\ndata: not json\n\n"))

	st := e.State()
	if st.Phase != PhaseError || st.Reason == "" {
		t.Errorf("State = %v, want error with generic reason", st)
	}
}

func TestEngine_EventsAfterErrorInSameChunkDropped(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)

	// Error and a trailing chunk arrive in one network read; the chunk
	// belongs to a dead session and must not apply.
	e.deliverChunk(tok, []byte(
		"event: response_start\ndata: {}\n\n"+
			"event: error\ndata: {\"message\":\"boom\"}\n\n"+
			"event: chunk\ndata: {\"content\":\"zombie\"}\n\n"))

	last, _ := lastMessage(e)
	if last.Text == "zombie" {
		t.Error("event after error still mutated the transcript")
	}
}

func TestEngine_DoneAfterCompleteTearsDownQuietly(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: response_complete\ndata: {\"full_response\":\"done\"}\n\n"))
	e.deliverChunk(tok, []byte("event: done\ndata: DONE\n\n"))

	if e.State().Phase != PhaseCompleted {
		t.Errorf("State = %v, done must not override completed", e.State())
	}
	if tok2 := activeToken(e); tok2 != "" {
		t.Error("session not torn down after done")
	}
}

func TestEngine_StreamEndingWithoutCompletionIsError(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverDone(tok, nil)

	if e.State().Phase != PhaseError {
		t.Errorf("State = %v, want error on truncated stream", e.State())
	}
}

func TestEngine_TransportFailureSurfacesReason(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverDone(tok, errors.New("connection refused"))

	st := e.State()
	if st.Phase != PhaseError || st.Reason != "connection refused" {
		t.Errorf("State = %v", st)
	}
	last, ok := lastMessage(e)
	if !ok || !last.Errored {
		t.Error("transport failure produced no visible error message")
	}
}

// TestEngine_ConcurrentObserversDuringStreaming hammers the transcript
// snapshot from reader goroutines while chunks stream in through the pump.
// Snapshots are copied under the engine lock, so every observed text must be
// a prefix of the final response and the race detector must stay quiet.
func TestEngine_ConcurrentObserversDuringStreaming(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	h := ft.handle(0)
	h.emit("event: response_start\ndata: {}\n\n")

	const parts = 2000
	final := strings.Repeat("ab", parts)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, m := range e.Messages() {
					if m.Role != model.RoleAssistant {
						continue
					}
					if !strings.HasPrefix(final, m.Text) {
						t.Errorf("observed %q, not a prefix of the final response", m.Text)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < parts; i++ {
		h.emit("event: chunk\ndata: {\"content\":\"ab\"}\n\n")
	}
	h.emit("event: response_complete\ndata: {}\n\n")
	h.finish(nil)

	waitFor(t, func() bool {
		last, ok := lastMessage(e)
		return ok && last.Completed
	}, "response completion")
	close(done)
	wg.Wait()

	if last, _ := lastMessage(e); last.Text != final {
		t.Errorf("final text has %d bytes, want %d", len(last.Text), len(final))
	}
}

// =============================================================================
// STALE SESSION TESTS
// =============================================================================

func TestEngine_StaleDeliveriesDropped(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("first")
	staleTok := activeToken(e)

	e.Send("second")
	freshTok := activeToken(e)
	if staleTok == freshTok {
		t.Fatal("session tokens not distinct")
	}

	before := len(e.Messages())
	e.deliverChunk(staleTok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(staleTok, []byte("event: chunk\ndata: {\"content\":\"stale\"}\n\n"))
	e.deliverDone(staleTok, errors.New("stale failure"))

	if len(e.Messages()) != before {
		t.Error("stale delivery mutated the transcript")
	}
	if e.State().Phase != PhaseConnecting {
		t.Errorf("State = %v, stale delivery changed state", e.State())
	}
}

func TestEngine_LateChunkAfterCompletionDoesNotMutate(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: response_complete\ndata: {\"full_response\":\"Hello\"}\n\n"))

	e.deliverChunk(tok, []byte("event: chunk\ndata: {\"content\":\" late\"}\n\n"))

	if last, _ := lastMessage(e); last.Text != "Hello" {
		t.Errorf("Text = %q, finalized message mutated by late chunk", last.Text)
	}
}

// =============================================================================
// CANCEL / RETRY / CLEAR TESTS
// =============================================================================

func TestEngine_CancelIdempotentWhenIdle(t *testing.T) {
	e := newTestEngine(&fakeTransport{})
	e.Cancel()
	e.Cancel()
	if e.State().Phase != PhaseIdle {
		t.Errorf("State = %v, want idle", e.State())
	}
}

func TestEngine_CancelFinalizesAndGoesIdleImmediately(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: chunk\ndata: {\"content\":\"partial\"}\n\n"))

	e.Cancel()

	// Idle immediately, no grace delay
	if e.State().Phase != PhaseIdle {
		t.Errorf("State = %v, want idle immediately", e.State())
	}
	if !ft.handle(0).cancelled.Load() {
		t.Error("handle not cancelled")
	}
	last, _ := lastMessage(e)
	if last.Streaming || !last.Completed {
		t.Error("mid-stream message not finalized on cancel")
	}

	// Stale events from the cancelled session cannot mutate anything
	e.deliverChunk(tok, []byte("event: chunk\ndata: {\"content\":\"ghost\"}\n\n"))
	if after, _ := lastMessage(e); after.Text != last.Text {
		t.Error("cancelled session still mutated the transcript")
	}
}

func TestEngine_RetryAfterError(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	// A successful turn first
	e.Send("keep me")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: response_complete\ndata: {\"full_response\":\"kept\"}\n\n"))

	// Then a failed turn
	e.Send("retry me")
	tok = activeToken(e)
	e.deliverDone(tok, errors.New("transient"))

	e.Retry()

	msgs := e.Messages()
	// Prior successful turn (2) plus the re-sent user message (1)
	if len(msgs) != 3 {
		t.Fatalf("Messages = %d, want 3", len(msgs))
	}
	if msgs[0].Text != "keep me" || msgs[1].Text != "kept" {
		t.Error("successful turn was disturbed by retry")
	}
	if msgs[2].Role != model.RoleUser || msgs[2].Text != "retry me" {
		t.Errorf("re-sent message = %+v", msgs[2])
	}
	for _, m := range msgs {
		if m.Errored {
			t.Error("error marker survived retry")
		}
	}
	if e.State().Phase != PhaseConnecting {
		t.Errorf("State = %v, want connecting after retry", e.State())
	}
	if ft.opened() != 3 {
		t.Errorf("transport opened %d times, want 3", ft.opened())
	}
}

func TestEngine_RetryWithoutFailedTailIsNoOp(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("fine")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: response_complete\ndata: {\"full_response\":\"ok\"}\n\n"))

	e.Retry()

	if ft.opened() != 1 {
		t.Errorf("transport opened %d times, retry resent a successful turn", ft.opened())
	}
}

func TestEngine_Clear(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	e.Clear()

	if len(e.Messages()) != 0 {
		t.Error("Clear left messages behind")
	}
	if e.State().Phase != PhaseIdle {
		t.Errorf("State = %v, want idle", e.State())
	}
	if !ft.handle(0).cancelled.Load() {
		t.Error("Clear did not cancel the active session")
	}
}

// =============================================================================
// GRACE DELAY TESTS
// =============================================================================

func TestEngine_GraceResetPreemptedByNewSend(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	e.Send("q")
	tok := activeToken(e)
	e.deliverDone(tok, errors.New("fail"))
	if e.State().Phase != PhaseError {
		t.Fatalf("State = %v, want error", e.State())
	}

	// New send before the grace delay elapses
	e.Send("again")
	if e.State().Phase != PhaseConnecting {
		t.Fatalf("State = %v, want connecting", e.State())
	}

	// The stale scheduled reset must not fire
	time.Sleep(60 * time.Millisecond)
	if e.State().Phase != PhaseConnecting {
		t.Errorf("State = %v, stale grace reset clobbered the new session", e.State())
	}
}

// =============================================================================
// NON-STREAMING PATH TESTS
// =============================================================================

func TestEngine_AskPath(t *testing.T) {
	e := New(nil, &fakeAsker{response: "whole answer"}, Config{
		CompanyID:      "acme",
		CompletedGrace: 20 * time.Millisecond,
		ErrorGrace:     30 * time.Millisecond,
		Streaming:      false,
	}, nil)

	e.Send("question")

	waitFor(t, func() bool {
		last, ok := lastMessage(e)
		return ok && last.Role == model.RoleAssistant && last.Completed
	}, "ask response")

	if last, _ := lastMessage(e); last.Text != "whole answer" {
		t.Errorf("Text = %q", last.Text)
	}
	waitFor(t, func() bool { return e.State().Phase == PhaseIdle }, "grace reset")
}

func TestEngine_AskPathError(t *testing.T) {
	e := New(nil, &fakeAsker{err: errors.New("backend down")}, Config{
		CompanyID: "acme",
		Streaming: false,
	}, nil)

	e.Send("question")

	waitFor(t, func() bool { return e.State().Phase == PhaseError }, "error state")
	if last, ok := lastMessage(e); !ok || !last.Errored {
		t.Error("ask failure produced no visible error message")
	}
}

// =============================================================================
// STATE FEED TESTS
// =============================================================================

func TestEngine_StatePublishedToFeed(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)

	var mu sync.Mutex
	var phases []Phase
	e.States().Subscribe(func(s State) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})

	e.Send("q")
	tok := activeToken(e)
	e.deliverChunk(tok, []byte("event: response_start\ndata: {}\n\n"))
	e.deliverChunk(tok, []byte("event: response_complete\ndata: {\"full_response\":\"x\"}\n\n"))

	mu.Lock()
	defer mu.Unlock()
	want := []Phase{PhaseConnecting, PhaseStreaming, PhaseCompleted}
	if len(phases) < len(want) {
		t.Fatalf("observed %v, want at least %v", phases, want)
	}
	for i, p := range want {
		if phases[i] != p {
			t.Errorf("phase %d = %v, want %v", i, phases[i], p)
		}
	}
}
