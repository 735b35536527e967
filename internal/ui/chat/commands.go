// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat interface.
//
// This file implements slash commands and the asynchronous catalog commands
// they dispatch. Catalog operations hit the network, so each one runs inside
// a tea.Cmd and reports back with a message type from messages.go.
package chat

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/catalog"
)

// catalogTimeout bounds every catalog round trip issued from the UI.
const catalogTimeout = 30 * time.Second

// =============================================================================
// SLASH COMMAND PARSING
// =============================================================================

// slashCommand is one parsed "/name args" input line.
type slashCommand struct {
	Name string
	Args string
}

// parseSlashCommand splits a slash command into name and argument remainder.
// Returns ok=false when the input is not a slash command at all.
func parseSlashCommand(input string) (slashCommand, bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return slashCommand{}, false
	}
	body := strings.TrimPrefix(trimmed, "/")
	name, args, _ := strings.Cut(body, " ")
	return slashCommand{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}, true
}

// helpText is the /help output, rendered into the transcript as system text.
const helpText = `Commands:
  /help           show this help
  /docs           list documents in the collection
  /upload <path>  upload a document
  /rm <filename>  delete a document
  /retry          resend the last failed message
  /clear          clear the conversation
  /quit           exit

Keys: Enter send, Esc cancel response, PgUp/PgDn scroll, C-l clear, C-c quit`

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

// listDocsCmd fetches the document catalog.
func listDocsCmd(mgr *catalog.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()

		listing, err := mgr.List(ctx)
		return DocsListedMsg{Listing: listing, Err: err}
	}
}

// uploadCmd uploads one file to the collection.
func uploadCmd(mgr *catalog.Manager, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()

		result, err := mgr.Upload(ctx, path)
		return UploadFinishedMsg{Path: path, Result: result, Err: err}
	}
}

// deleteCmd removes one file from the collection.
func deleteCmd(mgr *catalog.Manager, filename string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()

		err := mgr.Delete(ctx, filename)
		return DeleteFinishedMsg{Filename: filename, Err: err}
	}
}
