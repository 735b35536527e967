// docchat - A terminal client for the document chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/catalog"
	"github.com/jeranaias/docchat-tui/internal/cli"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/logging"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	opts := cli.ParseArgs(os.Args[1:])

	if opts.Help {
		fmt.Println(cli.Usage)
		return
	}
	if opts.Version {
		fmt.Printf("docchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docchat: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	logger := openLogger(cfg)
	defer logger.Sync()
	logger.Info("starting docchat",
		zap.String("version", Version),
		zap.String("endpoint", cfg.Server.Endpoint),
		zap.String("company", cfg.Server.CompanyID))

	client, err := api.New(cfg.Server.Endpoint, cfg.Server.RequestsPerMinute, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docchat: %v\n", err)
		os.Exit(1)
	}

	docs := catalog.NewManager(client, openCatalogStore(cfg, logger), cfg.Server.CompanyID, logger)

	engine := session.New(client, client, session.Config{
		CompanyID:      cfg.Server.CompanyID,
		CompletedGrace: time.Duration(cfg.Session.CompletedGraceMs) * time.Millisecond,
		ErrorGrace:     time.Duration(cfg.Session.ErrorGraceMs) * time.Millisecond,
		Streaming:      cfg.Server.StreamingEnabled,
	}, logger)

	// Pick up config file edits while running
	if watcher, err := config.NewWatcher(logger, nil); err == nil {
		if err := watcher.Watch(); err == nil {
			defer watcher.Close()
		}
	}

	if opts.Plain || !cli.IsInteractive() {
		runPlain(engine, docs, cfg, logger)
		return
	}
	runTUI(engine, docs, cfg, logger)
}

// loadConfig loads the configuration and applies command line overrides on
// top of file and environment values.
func loadConfig(opts cli.Options) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if opts.ConfigPath != "" {
		cfg, err = config.LoadFromPath(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			// A broken config file falls back to defaults with a warning
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
	}

	if opts.Endpoint != "" {
		cfg.Server.Endpoint = opts.Endpoint
	}
	if opts.CompanyID != "" {
		cfg.Server.CompanyID = opts.CompanyID
	}
	if opts.Theme != "" {
		cfg.UI.Theme = opts.Theme
	}
	if opts.NoStream {
		cfg.Server.StreamingEnabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLogger opens the file logger, degrading to a no-op logger when the
// log file cannot be created.
func openLogger(cfg *config.Config) *zap.Logger {
	path, err := cfg.LogPath()
	if err != nil {
		return logging.Nop()
	}
	logger, err := logging.New(path, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		return logging.Nop()
	}
	return logger
}

// openCatalogStore opens the SQLite document cache. A nil store disables
// caching; the catalog then always goes to the backend.
func openCatalogStore(cfg *config.Config, logger *zap.Logger) *catalog.Store {
	if !cfg.Catalog.CacheEnabled {
		return nil
	}
	path, err := cfg.CatalogPath()
	if err != nil {
		return nil
	}
	store, err := catalog.OpenStore(path)
	if err != nil {
		logger.Warn("catalog cache unavailable", zap.Error(err))
		return nil
	}
	return store
}

// runTUI runs the full-screen Bubble Tea interface.
func runTUI(engine *session.Engine, docs *catalog.Manager, cfg *config.Config, logger *zap.Logger) {
	m := chat.New(engine, docs, chat.Options{
		CompanyID: cfg.Server.CompanyID,
		Endpoint:  cfg.Server.Endpoint,
		Theme:     cfg.UI.Theme,
	}, logger)

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Bridge engine state transitions into the update loop
	token := engine.States().Subscribe(func(s session.State) {
		p.Send(chat.StateChangedMsg{State: s})
	})
	defer engine.States().Unsubscribe(token)

	if _, err := p.Run(); err != nil {
		logger.Error("tui terminated", zap.Error(err))
		fmt.Fprintf(os.Stderr, "docchat: %v\n", err)
		os.Exit(1)
	}
}

// runPlain runs the line-mode REPL.
func runPlain(engine *session.Engine, docs *catalog.Manager, cfg *config.Config, logger *zap.Logger) {
	repl := cli.NewREPL(engine, docs, cfg, logger)
	defer repl.Close()

	if err := repl.Run(); err != nil {
		logger.Error("repl terminated", zap.Error(err))
		fmt.Fprintf(os.Stderr, "docchat: %v\n", err)
		os.Exit(1)
	}
}
