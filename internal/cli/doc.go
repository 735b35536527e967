// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the command line surface: argument parsing,
// terminal detection, and the plain line-mode REPL used when the full TUI
// is disabled or unavailable.
package cli
