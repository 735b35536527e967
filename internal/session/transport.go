// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "context"

// =============================================================================
// TRANSPORT CAPABILITY
// =============================================================================

// Request describes one outbound exchange with the backend.
type Request struct {
	// Message is the user utterance, already trimmed and normalized.
	Message string
	// CompanyID scopes retrieval to one document collection.
	CompanyID string
}

// Handle is one open streaming exchange. The engine owns its handle
// exclusively: it is never shared, and cancelling it exactly once is the
// engine's responsibility.
type Handle interface {
	// Chunks delivers raw byte chunks in arrival order. The channel is
	// closed before the terminal signal is sent on Done.
	Chunks() <-chan []byte

	// Done delivers exactly one terminal signal after Chunks closes: nil
	// for a clean end of stream, otherwise the transport failure.
	Done() <-chan error

	// Cancel aborts the exchange best-effort without blocking. Safe to
	// call more than once.
	Cancel()
}

// Transport opens streaming exchanges. Implementations validate the request
// synchronously and report connection failures asynchronously through the
// handle's Done channel, so Open never blocks on the network.
type Transport interface {
	Open(ctx context.Context, req Request) (Handle, error)
}

// Asker is the call-and-wait fallback used when streaming is disabled: one
// request, one complete response, no incremental delivery.
type Asker interface {
	Ask(ctx context.Context, req Request) (string, error)
}
