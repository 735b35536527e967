// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the lifecycle of streaming chat exchanges with the
// backend.
//
// Engine is the single owner of the conversation transcript and the session
// state machine. Transport goroutines deliver chunks and terminal signals by
// re-entering the engine, which serializes everything behind one mutex and
// drops deliveries from superseded sessions via per-session tokens. The
// current state is observable through a Feed with an explicit
// subscribe/unsubscribe lifecycle.
package session
