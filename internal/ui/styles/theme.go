// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// THEME
// =============================================================================

// Theme bundles the Lip Gloss styles used across the chat interface.
// Construct one with NewTheme and share it; styles are immutable values.
type Theme struct {
	// Message rendering
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	AssistantText  lipgloss.Style
	ErrorText      lipgloss.Style
	WarningText    lipgloss.Style
	Timestamp      lipgloss.Style

	// Chrome
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	StatusKey lipgloss.Style
	Spinner   lipgloss.Style
	InputBox  lipgloss.Style
	Help      lipgloss.Style

	// Document catalog
	DocName  lipgloss.Style
	DocMeta  lipgloss.Style
	DocStale lipgloss.Style
}

// NewTheme builds the style set. The name selects the glamour markdown
// style later ("dark", "light", "auto"); the lipgloss styles themselves
// adapt to the terminal background automatically.
func NewTheme(name string) Theme {
	return Theme{
		UserLabel: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		AssistantLabel: lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true),
		UserText: lipgloss.NewStyle().
			Foreground(TextPrimary),
		AssistantText: lipgloss.NewStyle().
			Foreground(TextPrimary),
		ErrorText: lipgloss.NewStyle().
			Foreground(Rose),
		WarningText: lipgloss.NewStyle().
			Foreground(Amber),
		Timestamp: lipgloss.NewStyle().
			Foreground(TextMuted),

		Header: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Overlay),
		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary),
		StatusKey: lipgloss.NewStyle().
			Foreground(Emerald).
			Bold(true),
		Spinner: lipgloss.NewStyle().
			Foreground(Purple),
		InputBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Overlay),
		Help: lipgloss.NewStyle().
			Foreground(TextMuted),

		DocName: lipgloss.NewStyle().
			Foreground(TextPrimary).
			Bold(true),
		DocMeta: lipgloss.NewStyle().
			Foreground(TextMuted),
		DocStale: lipgloss.NewStyle().
			Foreground(Amber).
			Italic(true),
	}
}

// GlamourStyle maps a theme name to a glamour standard style name. "auto"
// resolves against the detected terminal background so the markdown style
// and the lipgloss styles agree.
func GlamourStyle(name string) string {
	switch name {
	case "light":
		return "light"
	case "dark":
		return "dark"
	default:
		if termenv.HasDarkBackground() {
			return "dark"
		}
		return "light"
	}
}
