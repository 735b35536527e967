// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the color palette and Lip Gloss style set shared
// by the TUI. Colors are adaptive pairs so the same theme reads well on
// light and dark terminal backgrounds, and status output always pairs a
// shape indicator with the color for colorblind accessibility.
package styles
