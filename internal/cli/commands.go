// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/docchat-tui/internal/util"
)

// catalogTimeout bounds every catalog round trip issued from the REPL.
const catalogTimeout = 30 * time.Second

// docNameWidth caps the filename column in /docs output.
const docNameWidth = 40

const replHelp = `Commands:
  /help           show this help
  /docs           list documents in the collection
  /upload <path>  upload a document
  /rm <filename>  delete a document
  /retry          resend the last failed message
  /clear          clear the conversation
  /quit           exit

Ctrl+C cancels an in-flight response, Ctrl+D exits.`

// runCommand executes one slash command. Returns true when the REPL should
// exit.
func (r *REPL) runCommand(input string) bool {
	body := strings.TrimPrefix(strings.TrimSpace(input), "/")
	name, args, _ := strings.Cut(body, " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)

	switch name {
	case "help", "h":
		fmt.Fprintln(r.out, infoStyle.Render(replHelp))

	case "docs":
		r.listDocs()

	case "upload":
		if args == "" {
			fmt.Fprintln(r.out, warnStyle.Render("usage: /upload <path>"))
			return false
		}
		r.upload(args)

	case "rm":
		if args == "" {
			fmt.Fprintln(r.out, warnStyle.Render("usage: /rm <filename>"))
			return false
		}
		r.deleteDoc(args)

	case "retry":
		r.engine.Retry()
		r.waitForResponse()

	case "clear", "c":
		r.engine.Clear()
		fmt.Fprintln(r.out, infoStyle.Render("conversation cleared"))

	case "quit", "q", "exit":
		return true

	default:
		fmt.Fprintln(r.out, warnStyle.Render("unknown command: /"+name+" (try /help)"))
	}
	return false
}

// listDocs prints the document catalog.
func (r *REPL) listDocs() {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	listing, err := r.docs.List(ctx)
	if err != nil {
		fmt.Fprintln(r.out, errStyle.Render(fmt.Sprintf("document list failed: %v", err)))
		return
	}

	if listing.Stale {
		fmt.Fprintln(r.out, warnStyle.Render("backend unreachable, showing cached list"))
	}
	if len(listing.Documents) == 0 {
		fmt.Fprintln(r.out, infoStyle.Render("no documents uploaded yet"))
		return
	}

	// Filename column sized by display width so CJK names stay aligned
	nameCol := 0
	for _, d := range listing.Documents {
		if w := util.StringWidth(d.Filename); w > nameCol {
			nameCol = w
		}
	}
	if nameCol > docNameWidth {
		nameCol = docNameWidth
	}
	for _, d := range listing.Documents {
		name := util.PadRight(util.TruncateWidth(d.Filename, docNameWidth), nameCol)
		fmt.Fprintf(r.out, "  %s %10d bytes  %4d chunks  %s\n",
			name, d.FileSizeBytes, d.ChunksStored, d.UploadTimestamp)
	}
}

// upload sends one file to the collection.
func (r *REPL) upload(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	result, err := r.docs.Upload(ctx, path)
	if err != nil {
		fmt.Fprintln(r.out, errStyle.Render(fmt.Sprintf("upload failed: %v", err)))
		return
	}
	fmt.Fprintln(r.out, infoStyle.Render(
		fmt.Sprintf("uploaded %s (%d chunks)", result.Filename, result.ChunksStored)))
}

// deleteDoc removes one file from the collection.
func (r *REPL) deleteDoc(filename string) {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	if err := r.docs.Delete(ctx, filename); err != nil {
		fmt.Fprintln(r.out, errStyle.Render(fmt.Sprintf("delete failed: %v", err)))
		return
	}
	fmt.Fprintln(r.out, infoStyle.Render("deleted "+filename))
}
