// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog tracks the documents uploaded to the backend for one
// company.
//
// The backend owns the catalog; this package mirrors it into a local SQLite
// cache so listings render instantly and degrade gracefully when the backend
// is unreachable.
package catalog
