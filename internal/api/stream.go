// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/session"
)

// STREAMING: chunk delivery with context-controlled cancellation

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// streamReadSize is the buffer size for each read from the response body.
// Chunks are delivered as read, so this bounds latency, not correctness; the
// consumer reassembles lines across any chunk boundary.
const streamReadSize = 4 * 1024

// chatStreamRequest is the JSON body for the streaming chat endpoint.
type chatStreamRequest struct {
	Message   string `json:"message"`
	CompanyID string `json:"company_id"`
}

// =============================================================================
// STREAM HANDLE
// =============================================================================

// streamHandle is one open streaming exchange. The reader goroutine owns the
// response body; Cancel aborts it through the request context.
type streamHandle struct {
	chunks chan []byte
	done   chan error
	cancel context.CancelFunc
}

// Chunks implements session.Handle.
func (h *streamHandle) Chunks() <-chan []byte { return h.chunks }

// Done implements session.Handle.
func (h *streamHandle) Done() <-chan error { return h.done }

// Cancel implements session.Handle. Safe to call any number of times.
func (h *streamHandle) Cancel() { h.cancel() }

// =============================================================================
// TRANSPORT
// =============================================================================

// Open starts a streaming chat exchange. It returns immediately; the dial,
// the rate-limiter wait, and all reads happen on the handle's reader
// goroutine, and any failure arrives through the handle's Done channel.
//
// Open itself only fails on a request that cannot be constructed at all.
func (c *Client) Open(ctx context.Context, req session.Request) (session.Handle, error) {
	body, err := json.Marshal(chatStreamRequest{
		Message:   req.Message,
		CompanyID: req.CompanyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpointURL("/chat/stream"), bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	h := &streamHandle{
		chunks: make(chan []byte, 16),
		done:   make(chan error, 1),
		cancel: cancel,
	}
	go c.readStream(ctx, httpReq, h)
	return h, nil
}

// readStream performs the exchange and pumps the body into the handle. It
// always closes the chunks channel before delivering the terminal signal, so
// consumers can drain chunks then read done without racing.
func (c *Client) readStream(ctx context.Context, req *http.Request, h *streamHandle) {
	finish := func(err error) {
		close(h.chunks)
		h.done <- err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		finish(fmt.Errorf("%w: %v", ErrRateLimited, err))
		return
	}

	resp, err := c.streaming.Do(req)
	if err != nil {
		finish(fmt.Errorf("connection failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		finish(decodeAPIError(resp.StatusCode, body))
		return
	}

	buf := make([]byte, streamReadSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case h.chunks <- chunk:
			case <-ctx.Done():
				finish(ctx.Err())
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				finish(nil)
			} else if ctx.Err() != nil {
				finish(ctx.Err())
			} else {
				c.log.Warn("stream read failed", zap.Error(err))
				finish(fmt.Errorf("stream read failed: %w", err))
			}
			return
		}
	}
}

// decodeAPIError turns a non-200 response into an APIError, extracting the
// FastAPI-style {"detail": ...} field when present.
func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return &APIError{Status: status, Detail: payload.Detail}
	}
	detail := string(bytes.TrimSpace(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return &APIError{Status: status, Detail: detail}
}
