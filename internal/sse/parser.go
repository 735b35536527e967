// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import "strings"

// =============================================================================
// LINE BUFFER
// =============================================================================

// LineBuffer splits a byte stream delivered in arbitrary chunks into complete
// lines. A chunk may end mid-line; the undelivered tail is carried over and
// prepended to the next chunk, so a line is never emitted before it has been
// fully received.
//
// LineBuffer is not safe for concurrent use; the session engine feeds it from
// its single serialization context.
type LineBuffer struct {
	frag string
}

// Feed appends a chunk to the buffer and returns every line completed by it,
// in order. The trailing piece after the last separator (possibly empty)
// becomes the new carried-over fragment.
func (b *LineBuffer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	data := b.frag + string(chunk)
	pieces := strings.Split(data, "\n")

	// The last piece is incomplete by definition: either a partial line, or
	// empty when the chunk ended exactly on a separator.
	b.frag = pieces[len(pieces)-1]
	lines := pieces[:len(pieces)-1]

	// Tolerate CRLF line endings from proxies.
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Pending returns the carried-over fragment that has not yet formed a
// complete line.
func (b *LineBuffer) Pending() string {
	return b.frag
}

// Reset discards any carried-over fragment. Called on session teardown; a
// fragment left behind by a closed transport can never become a complete
// line and is dropped silently.
func (b *LineBuffer) Reset() {
	b.frag = ""
}
