// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the conversation transcript: messages, their
// streaming lifecycle, and the ordered conversation they belong to.
//
// The types here are plain data with no synchronization of their own. The
// session engine is the only writer and serializes every mutation; every
// other component observes the transcript through read-only snapshots.
package model
