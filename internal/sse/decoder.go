// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// RECORD DECODER
// =============================================================================

// Field prefixes recognized by the record grammar. Other fields (id:, retry:,
// comment lines starting with ':') are ignored.
const (
	eventPrefix = "event: "
	dataPrefix  = "data: "
)

// Decoder assembles complete lines into (event, data) records and maps each
// record to a domain event.
//
// The grammar follows the SSE record boundary convention: an "event: " line
// sets the pending event name, a "data: " line sets the pending payload, and
// an empty line emits the record when both are pending. Records with an
// unrecognized event name or an undecodable payload are dropped rather than
// aborting the stream - with one exception: an error record whose payload
// cannot be read still yields an EventError with an empty Message, because a
// broken error report must not be mistaken for a healthy stream.
//
// Not safe for concurrent use.
type Decoder struct {
	log *zap.Logger

	pendingName string
	hasName     bool
	pendingData string
	hasData     bool
}

// NewDecoder creates a decoder. A nil logger disables drop diagnostics.
func NewDecoder(log *zap.Logger) *Decoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decoder{log: log}
}

// Feed consumes one complete line. When the line completes a well-formed,
// recognized record, the decoded event is returned with ok=true; otherwise
// ok=false and the line only updates internal state (or is ignored).
func (d *Decoder) Feed(line string) (Event, bool) {
	switch {
	case line == "":
		return d.emit()
	case strings.HasPrefix(line, eventPrefix):
		d.pendingName = strings.TrimSpace(line[len(eventPrefix):])
		d.hasName = true
	case strings.HasPrefix(line, dataPrefix):
		d.pendingData = line[len(dataPrefix):]
		d.hasData = true
	}
	// Anything else: id:, retry:, comments, noise. Ignored.
	return Event{}, false
}

// Reset clears any pending record state. Called on session teardown.
func (d *Decoder) Reset() {
	d.pendingName = ""
	d.hasName = false
	d.pendingData = ""
	d.hasData = false
}

// emit finalizes the pending record on a blank line, if one is complete.
func (d *Decoder) emit() (Event, bool) {
	if !d.hasName || !d.hasData {
		// A blank line with only half a record pending is not a boundary
		// we act on; keep waiting.
		return Event{}, false
	}

	name := d.pendingName
	data := d.pendingData
	d.Reset()

	kind, ok := ParseEventKind(name)
	if !ok {
		d.log.Debug("dropping unrecognized stream event", zap.String("event", name))
		return Event{}, false
	}

	var payload Payload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		switch kind {
		case EventError:
			// The error itself is unreadable, but the stream is still dead.
			// Surface the error with no message; the engine substitutes a
			// generic reason.
			return Event{Kind: EventError}, true
		case EventDone:
			// The backend sends done with a bare "DONE" sentinel, not JSON.
			return Event{Kind: EventDone}, true
		}
		d.log.Debug("dropping undecodable stream record",
			zap.String("event", name),
			zap.Error(err))
		return Event{}, false
	}

	return Event{Kind: kind, Payload: payload}, true
}
