// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/catalog"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options carries the display settings the model needs at construction.
type Options struct {
	CompanyID string
	Endpoint  string
	Theme     string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat interface. The session engine
// and catalog manager are shared mutable services; everything else is plain
// Bubble Tea component state.
type Model struct {
	engine *session.Engine
	docs   *catalog.Manager
	opts   Options
	keys   KeyMap
	theme  styles.Theme
	log    *zap.Logger

	vp       viewport.Model
	input    textinput.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	state    session.State
	showHelp bool
	// notice is a transient line in the status bar, e.g. upload results.
	notice string
	// systemLines are catalog listings and command output rendered into the
	// transcript after the conversation.
	systemLines []string
	// ticking is true while a streaming redraw tick is scheduled.
	ticking  bool
	quitting bool
}

// New creates the chat model. The caller is responsible for bridging the
// engine's state feed into the program as StateChangedMsg values.
func New(engine *session.Engine, docs *catalog.Manager, opts Options, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "Ask about your documents (or /help)"
	input.CharLimit = 4000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.NewTheme(opts.Theme).Spinner

	return Model{
		engine: engine,
		docs:   docs,
		opts:   opts,
		keys:   DefaultKeyMap(),
		theme:  styles.NewTheme(opts.Theme),
		log:    log,
		input:  input,
		spin:   spin,
		state:  engine.State(),
	}
}

// Init starts the cursor blink and spinner animations.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

// rebuildRenderer recreates the markdown renderer for the given wrap width.
// Rendering falls back to raw text when construction fails.
func (m *Model) rebuildRenderer(width int) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.GlamourStyle(m.opts.Theme)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.log.Warn("markdown renderer unavailable", zap.Error(err))
		m.renderer = nil
		return
	}
	m.renderer = r
}
