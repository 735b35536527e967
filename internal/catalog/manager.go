// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/api"
)

// =============================================================================
// DOCUMENT TYPE
// =============================================================================

// Document is one file in the company's collection as the catalog tracks it.
type Document struct {
	CompanyID       string
	Filename        string
	DocumentHash    string
	FileSizeBytes   int64
	ChunksStored    int
	UploadTimestamp string
}

// fromAPI converts a backend document record.
func fromAPI(companyID string, d api.Document) Document {
	if d.CompanyID != "" {
		companyID = d.CompanyID
	}
	return Document{
		CompanyID:       companyID,
		Filename:        d.Filename,
		DocumentHash:    d.DocumentHash,
		FileSizeBytes:   d.FileSizeBytes,
		ChunksStored:    d.ChunksStored,
		UploadTimestamp: d.UploadTimestamp,
	}
}

// =============================================================================
// REMOTE CAPABILITY
// =============================================================================

// Remote is the backend surface the catalog needs. *api.Client satisfies it;
// tests substitute a scripted fake.
type Remote interface {
	Upload(ctx context.Context, companyID, path string) (*api.UploadResult, error)
	ListDocuments(ctx context.Context, companyID string) (*api.DocumentList, error)
	DeleteDocument(ctx context.Context, companyID, filename string) error
}

// =============================================================================
// MANAGER
// =============================================================================

// Listing is the catalog view handed to callers: the documents plus whether
// they came from the backend or from the local cache after a backend
// failure.
type Listing struct {
	Documents []Document
	// Stale is true when the backend was unreachable and the documents
	// are the last cached snapshot.
	Stale bool
}

// Manager keeps the document catalog for one company: the backend is the
// source of truth, the local SQLite cache is the fallback and the fast path
// for startup rendering.
type Manager struct {
	mu        sync.Mutex
	remote    Remote
	store     *Store
	companyID string
	log       *zap.Logger
}

// NewManager creates a catalog manager. The store may be nil, in which case
// caching is disabled and every listing goes to the backend.
func NewManager(remote Remote, store *Store, companyID string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		remote:    remote,
		store:     store,
		companyID: companyID,
		log:       log,
	}
}

// List fetches the catalog from the backend and refreshes the cache. When
// the backend is unreachable it degrades to the cached snapshot, marked
// stale, so the user still sees what was known last.
func (m *Manager) List(ctx context.Context) (*Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	remote, err := m.remote.ListDocuments(ctx, m.companyID)
	if err != nil {
		if m.store == nil {
			return nil, err
		}
		m.log.Warn("catalog fetch failed, serving cache", zap.Error(err))
		cached, cacheErr := m.store.List(ctx, m.companyID)
		if cacheErr != nil {
			return nil, err
		}
		return &Listing{Documents: cached, Stale: true}, nil
	}

	docs := make([]Document, 0, len(remote.Documents))
	for _, d := range remote.Documents {
		docs = append(docs, fromAPI(m.companyID, d))
	}
	if m.store != nil {
		if err := m.store.ReplaceAll(ctx, m.companyID, docs); err != nil {
			m.log.Warn("catalog cache refresh failed", zap.Error(err))
		}
	}
	return &Listing{Documents: docs}, nil
}

// Cached returns the cached snapshot without touching the network. Used for
// instant rendering before the first backend round trip completes.
func (m *Manager) Cached(ctx context.Context) ([]Document, error) {
	if m.store == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.List(ctx, m.companyID)
}

// Upload sends a file to the backend and records it in the cache.
func (m *Manager) Upload(ctx context.Context, path string) (*api.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.remote.Upload(ctx, m.companyID, path)
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		doc := Document{
			CompanyID:    m.companyID,
			Filename:     result.Filename,
			DocumentHash: result.DocumentHash,
			ChunksStored: result.ChunksStored,
		}
		if err := m.store.Put(ctx, doc); err != nil {
			m.log.Warn("catalog cache update failed", zap.Error(err))
		}
	}
	return result, nil
}

// Delete removes a file from the backend collection and the cache.
func (m *Manager) Delete(ctx context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.remote.DeleteDocument(ctx, m.companyID, filename); err != nil {
		return err
	}
	if m.store != nil {
		if err := m.store.Delete(ctx, m.companyID, filename); err != nil {
			m.log.Warn("catalog cache delete failed", zap.Error(err))
		}
	}
	return nil
}
