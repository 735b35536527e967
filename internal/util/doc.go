// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across the application.
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth, StringWidth: display-width aware helpers for the TUI
//   - SanitizeInput: whitespace trimming plus NFC normalization for outbound
//     user input
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
package util
