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

	"github.com/jeranaias/docchat-tui/internal/session"
)

// chatRequest is the JSON body for the call-and-wait chat endpoint.
type chatRequest struct {
	Message   string `json:"message"`
	CompanyID string `json:"company_id"`
	Stream    bool   `json:"stream"`
}

// chatResponse is the JSON body returned by the call-and-wait endpoint.
type chatResponse struct {
	Response string `json:"response"`
}

// Ask performs a complete chat exchange without streaming: one request, one
// fully formed answer. Used when streaming is disabled in the configuration.
func (c *Client) Ask(ctx context.Context, req session.Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	body, err := json.Marshal(chatRequest{
		Message:   req.Message,
		CompanyID: req.CompanyID,
		Stream:    false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpointURL("/chat/"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp.StatusCode, raw)
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return payload.Response, nil
}
