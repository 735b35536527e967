// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Document describes one uploaded file as the backend reports it.
type Document struct {
	Filename        string `json:"filename"`
	DocumentHash    string `json:"document_hash"`
	FileSizeBytes   int64  `json:"file_size_bytes"`
	ChunksStored    int    `json:"chunks_stored"`
	UploadTimestamp string `json:"upload_timestamp"`
	CompanyID       string `json:"company_id"`
}

// DocumentList is the backend's catalog listing for one company.
type DocumentList struct {
	CompanyID       string         `json:"company_id"`
	Documents       []Document     `json:"documents"`
	TotalDocuments  int            `json:"total_documents"`
	CollectionStats map[string]any `json:"collection_stats"`
}

// UploadResult describes a completed upload.
type UploadResult struct {
	Filename     string `json:"filename"`
	DocumentHash string `json:"document_hash"`
	ChunksStored int    `json:"chunks_stored"`
	Message      string `json:"message"`
}

// =============================================================================
// DOCUMENT OPERATIONS
// =============================================================================

// Upload sends a local file to the backend for ingestion into the company's
// document collection.
func (c *Client) Upload(ctx context.Context, companyID, path string) (*UploadResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.WriteField("company_id", companyID); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpointURL("/upload/"), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.doJSON(httpReq, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListDocuments fetches the backend's catalog for one company.
func (c *Client) ListDocuments(ctx context.Context, companyID string) (*DocumentList, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	u := c.endpointURL("/upload/files") + "?company_id=" + url.QueryEscape(companyID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var list DocumentList
	if err := c.doJSON(httpReq, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteDocument removes one uploaded file from the company's collection.
func (c *Client) DeleteDocument(ctx context.Context, companyID, filename string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	u := c.endpointURL("/upload/"+url.PathEscape(filename)) +
		"?company_id=" + url.QueryEscape(companyID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doJSON(httpReq, nil)
}

// doJSON executes a request and decodes a JSON response into out (skipped
// when out is nil). Non-200 statuses become APIError values.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
