// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the document-chat backend.
//
// Client covers three surfaces: the streaming chat endpoint (exposed as a
// session.Transport delivering raw byte chunks), the call-and-wait chat
// endpoint (session.Asker), and the document upload/catalog endpoints. All
// requests share a client-side rate limiter and pooled HTTP transports.
package api
