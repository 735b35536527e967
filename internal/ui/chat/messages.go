// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat interface.
//
// This file defines the Bubble Tea message types used by the chat model:
//   - Session: engine state transitions and the render tick
//   - Catalog: document list, upload, and delete results
package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/catalog"
	"github.com/jeranaias/docchat-tui/internal/session"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// StateChangedMsg carries a session state transition into the update loop.
// The caller bridges the engine's state feed to the program with Send.
type StateChangedMsg struct {
	State session.State
}

// StreamTickMsg drives conversation re-rendering while a session is active.
// Ticking at a capped rate batches chunk arrivals into ~30fps redraws
// instead of redrawing per chunk.
type StreamTickMsg struct {
	Time time.Time
}

// streamTickInterval caps streaming redraws at roughly 30fps.
const streamTickInterval = 33 * time.Millisecond

// streamTickCmd schedules the next streaming redraw.
func streamTickCmd() tea.Cmd {
	return tea.Tick(streamTickInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// =============================================================================
// CATALOG MESSAGES
// =============================================================================

// DocsListedMsg delivers the result of a document catalog fetch.
type DocsListedMsg struct {
	Listing *catalog.Listing
	Err     error
}

// UploadFinishedMsg delivers the result of a document upload.
type UploadFinishedMsg struct {
	Path   string
	Result *api.UploadResult
	Err    error
}

// DeleteFinishedMsg delivers the result of a document deletion.
type DeleteFinishedMsg struct {
	Filename string
	Err      error
}
