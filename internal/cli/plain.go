// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// plain.go - Line-mode REPL for terminals where the full TUI is unwanted.
//
// The REPL drives the same session engine as the TUI: it submits input,
// polls the conversation snapshot while a session is active, and prints
// streamed text incrementally as it accumulates.
package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/catalog"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	bannerStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	warnStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// pollInterval is how often the REPL samples the conversation while a
// session is active.
const pollInterval = 50 * time.Millisecond

// =============================================================================
// REPL
// =============================================================================

// REPL is the plain line-mode chat interface.
type REPL struct {
	engine      *session.Engine
	docs        *catalog.Manager
	cfg         *config.Config
	log         *zap.Logger
	line        *liner.State
	historyFile string
	out         io.Writer
}

// NewREPL creates the REPL with input history loaded from the config
// directory.
func NewREPL(engine *session.Engine, docs *catalog.Manager, cfg *config.Config, log *zap.Logger) *REPL {
	if log == nil {
		log = zap.NewNop()
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	r := &REPL{
		engine:      engine,
		docs:        docs,
		cfg:         cfg,
		log:         log,
		line:        line,
		historyFile: historyFile,
		out:         os.Stdout,
	}
	r.loadHistory()
	return r
}

// Close saves history and releases the terminal.
func (r *REPL) Close() {
	r.saveHistory()
	r.line.Close()
}

func (r *REPL) loadHistory() {
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run executes the read-eval-print loop until /quit or EOF.
func (r *REPL) Run() error {
	fmt.Fprintln(r.out, bannerStyle.Render("docchat"))
	fmt.Fprintln(r.out, infoStyle.Render(fmt.Sprintf("company %s at %s  (/help for commands)",
		r.cfg.Server.CompanyID, r.cfg.Server.Endpoint)))
	fmt.Fprintln(r.out)

	for {
		input, err := r.line.Prompt(promptStyle.Render("> "))
		if err == liner.ErrPromptAborted {
			// Ctrl+C at the prompt clears the line
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.runCommand(input); quit {
				return nil
			}
			continue
		}

		r.engine.Send(input)
		r.waitForResponse()
	}
}

// waitForResponse prints the assistant's reply as it streams, polling the
// conversation snapshot until the session leaves its active phase. Ctrl+C
// cancels the in-flight session.
func (r *REPL) waitForResponse() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var msgID, printed string

	for {
		select {
		case <-sigCh:
			r.engine.Cancel()
		case <-ticker.C:
		}

		msgID, printed = r.printProgress(msgID, printed)

		state := r.engine.State()
		if !state.Active() {
			r.printFinal(msgID, printed, state)
			return
		}
	}
}

// printProgress prints any streamed text that arrived since the last poll.
// Returns the streaming message's ID and the text printed so far.
func (r *REPL) printProgress(msgID, printed string) (string, string) {
	for _, m := range r.engine.Messages() {
		if !m.Streaming {
			continue
		}
		if msgID == "" {
			msgID = m.ID
		}
		if m.ID != msgID {
			continue
		}
		if len(m.Text) > len(printed) && strings.HasPrefix(m.Text, printed) {
			fmt.Fprint(r.out, m.Text[len(printed):])
			printed = m.Text
		}
		return msgID, printed
	}
	return msgID, printed
}

// printFinal reconciles the printed text with the finalized message. The
// backend's authoritative full response can differ from the streamed
// accumulation, in which case the final text is reprinted whole.
func (r *REPL) printFinal(msgID, printed string, state session.State) {
	msgs := r.engine.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]

	if last.Role != model.RoleAssistant {
		if state.Phase == session.PhaseError {
			fmt.Fprintln(r.out, errStyle.Render(state.String()))
		}
		return
	}

	final := last.Text
	switch {
	case msgID != "" && last.ID == msgID && strings.HasPrefix(final, printed):
		fmt.Fprint(r.out, final[len(printed):])
	case msgID != "" && last.ID == msgID:
		// Authoritative text diverged from the streamed preview
		fmt.Fprintln(r.out)
		fmt.Fprint(r.out, final)
	default:
		// Nothing was streamed (ask mode, or failure before any text)
		fmt.Fprint(r.out, final)
	}
	fmt.Fprintln(r.out)

	if last.Errored && state.Phase == session.PhaseError {
		fmt.Fprintln(r.out, errStyle.Render(state.String()))
		fmt.Fprintln(r.out, infoStyle.Render("use /retry to resend"))
	}
	fmt.Fprintln(r.out)
}
