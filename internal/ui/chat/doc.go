// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat interface.
//
// The model owns no streaming logic of its own: the session engine runs the
// stream on its own goroutines and the UI reads the conversation snapshot on
// a capped tick while a session is active. Session state transitions arrive
// as StateChangedMsg, bridged from the engine's state feed by the caller via
// tea.Program.Send. Document catalog operations run as asynchronous commands
// and report back through their own message types.
package chat
