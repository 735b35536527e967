// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse implements the server-sent-events wire protocol spoken by the
// docchat backend.
//
// The package is split into two layers that mirror the two problems of
// consuming an event stream over a raw byte transport:
//
//   - LineBuffer turns arbitrarily-chunked byte deliveries into complete
//     text lines, carrying partial lines across chunk boundaries.
//   - Decoder assembles those lines into (event, data) records using the
//     standard SSE record grammar and maps each record onto one of the
//     backend's domain events.
//
// Both layers are pure state machines with no I/O, so the same code path is
// exercised by the network client and by tests that script chunk sequences.
package sse
