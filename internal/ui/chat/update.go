// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Layout constants: rows consumed by the chrome around the viewport.
const (
	headerRows = 2
	inputRows  = 3
	statusRows = 1
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update is the Bubble Tea update function.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - headerRows - inputRows - statusRows
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
		}
		m.input.Width = msg.Width - 6
		m.rebuildRenderer(msg.Width - 4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg:
		m.state = msg.State
		m.refresh()
		if m.state.Active() {
			return m, m.startTick()
		}
		return m, nil

	case StreamTickMsg:
		if m.state.Active() {
			m.refresh()
			return m, streamTickCmd()
		}
		// Final redraw picks up the completed text
		m.ticking = false
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case DocsListedMsg:
		m.applyDocsListed(msg)
		m.refresh()
		return m, nil

	case UploadFinishedMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("upload failed: %v", msg.Err)
		} else {
			m.notice = fmt.Sprintf("uploaded %s (%d chunks)", msg.Result.Filename, msg.Result.ChunksStored)
		}
		return m, nil

	case DeleteFinishedMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("delete failed: %v", msg.Err)
		} else {
			m.notice = fmt.Sprintf("deleted %s", msg.Filename)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey dispatches keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.Cancel()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.engine.Cancel()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.PageUp):
		m.vp.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.vp.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.vp.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.vp.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.engine.Clear()
		m.systemLines = nil
		m.notice = ""
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles Enter: slash commands run locally, everything else goes to
// the session engine.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""

	if cmd, ok := parseSlashCommand(value); ok {
		return m.runCommand(cmd)
	}

	m.engine.Send(value)
	m.refresh()
	return m, m.startTick()
}

// runCommand executes one slash command.
func (m Model) runCommand(cmd slashCommand) (tea.Model, tea.Cmd) {
	switch cmd.Name {
	case "help":
		m.systemLines = append(m.systemLines, helpText)
		m.refresh()
		return m, nil

	case "docs":
		m.notice = "fetching documents..."
		return m, listDocsCmd(m.docs)

	case "upload":
		if cmd.Args == "" {
			m.notice = "usage: /upload <path>"
			return m, nil
		}
		m.notice = "uploading " + cmd.Args + "..."
		return m, uploadCmd(m.docs, cmd.Args)

	case "rm":
		if cmd.Args == "" {
			m.notice = "usage: /rm <filename>"
			return m, nil
		}
		return m, deleteCmd(m.docs, cmd.Args)

	case "retry":
		m.engine.Retry()
		m.refresh()
		return m, m.startTick()

	case "clear":
		m.engine.Clear()
		m.systemLines = nil
		m.refresh()
		return m, nil

	case "quit", "exit":
		m.engine.Cancel()
		m.quitting = true
		return m, tea.Quit

	default:
		m.notice = "unknown command: /" + cmd.Name + " (try /help)"
		return m, nil
	}
}

// applyDocsListed renders a catalog listing into the transcript.
func (m *Model) applyDocsListed(msg DocsListedMsg) {
	m.notice = ""
	if msg.Err != nil {
		m.notice = fmt.Sprintf("document list failed: %v", msg.Err)
		return
	}
	m.systemLines = append(m.systemLines, m.formatListing(msg.Listing))
}

// startTick begins the streaming redraw tick if one is not already running.
func (m *Model) startTick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return streamTickCmd()
}

// refresh re-renders the transcript into the viewport and follows the tail.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderTranscript())
	m.vp.GotoBottom()
}
