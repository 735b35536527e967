// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/jeranaias/docchat-tui/internal/catalog"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full interface: header, transcript, input, status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputBox.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderHelp())
	}
	return b.String()
}

// renderHeader shows the product name, company, and endpoint.
func (m Model) renderHeader() string {
	title := fmt.Sprintf("docchat  %s  %s", m.opts.CompanyID, m.opts.Endpoint)
	return m.theme.Header.Width(m.width).Render(title)
}

// renderStatusBar shows the session phase, spinner, and transient notices.
func (m Model) renderStatusBar() string {
	var parts []string

	switch m.state.Phase {
	case session.PhaseIdle:
		parts = append(parts, m.theme.StatusBar.Render("ready"))
	case session.PhaseError:
		parts = append(parts, m.theme.ErrorText.Render(m.state.String()))
	default:
		if m.state.Active() {
			parts = append(parts, m.spin.View()+m.theme.StatusBar.Render(m.state.String()))
		} else {
			parts = append(parts, m.theme.StatusKey.Render(m.state.String()))
		}
	}

	if m.notice != "" {
		parts = append(parts, m.theme.WarningText.Render(m.notice))
	}
	parts = append(parts, m.theme.Help.Render("Enter send  Esc cancel  C-h help  C-c quit"))

	return strings.Join(parts, "  ")
}

// renderHelp shows the expanded key binding help.
func (m Model) renderHelp() string {
	var b strings.Builder
	for _, group := range m.keys.FullHelp() {
		var entries []string
		for _, binding := range group {
			h := binding.Help()
			entries = append(entries, h.Key+" "+h.Desc)
		}
		b.WriteString(m.theme.Help.Render(strings.Join(entries, "   ")))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// renderTranscript builds the viewport content from the conversation
// snapshot plus any system output.
func (m Model) renderTranscript() string {
	msgs := m.engine.Messages()

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	for _, line := range m.systemLines {
		b.WriteString("\n")
		b.WriteString(m.theme.DocMeta.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// renderMessage renders one conversation turn. Finalized assistant messages
// get markdown rendering; streaming text is shown raw so partial markdown
// does not flicker through the renderer.
func (m Model) renderMessage(msg model.Snapshot) string {
	label := msg.Role.DisplayName()

	switch {
	case msg.Role == model.RoleUser:
		return m.theme.UserLabel.Render(label) + "\n" + m.theme.UserText.Render(msg.Text)

	case msg.Errored:
		return m.theme.AssistantLabel.Render(label) + "\n" + m.theme.ErrorText.Render(msg.Text)

	case msg.Streaming:
		line := m.theme.AssistantLabel.Render(label)
		if msg.Status != "" {
			line += " " + m.theme.Timestamp.Render(msg.Status)
		}
		return line + "\n" + m.theme.AssistantText.Render(msg.Text)

	default:
		return m.theme.AssistantLabel.Render(label) + "\n" + m.renderMarkdown(msg.Text)
	}
}

// renderMarkdown renders final assistant text, falling back to plain text
// when no renderer is available.
func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return m.theme.AssistantText.Render(text)
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return m.theme.AssistantText.Render(text)
	}
	return strings.TrimRight(out, "\n")
}

// maxDocNameWidth caps the filename column in document listings.
const maxDocNameWidth = 40

// formatListing renders a document catalog listing as transcript text. The
// filename column is sized by display width so CJK names stay aligned.
func (m Model) formatListing(listing *catalog.Listing) string {
	var b strings.Builder
	if listing.Stale {
		b.WriteString("Documents (cached, backend unreachable):\n")
	} else {
		b.WriteString(fmt.Sprintf("Documents (%d):\n", len(listing.Documents)))
	}
	if len(listing.Documents) == 0 {
		b.WriteString("  no documents uploaded yet")
		return b.String()
	}

	nameCol := 0
	for _, d := range listing.Documents {
		if w := util.StringWidth(d.Filename); w > nameCol {
			nameCol = w
		}
	}
	if nameCol > maxDocNameWidth {
		nameCol = maxDocNameWidth
	}
	for _, d := range listing.Documents {
		name := util.PadRight(util.TruncateWidth(d.Filename, maxDocNameWidth), nameCol)
		b.WriteString(fmt.Sprintf("  %s %8s  %4d chunks  %s\n",
			name, formatBytes(d.FileSizeBytes), d.ChunksStored, d.UploadTimestamp))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatBytes renders a byte count in human units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
