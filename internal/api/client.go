// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultRequestsPerMinute is the client-side rate limit applied when
	// the configuration does not set one.
	DefaultRequestsPerMinute = 60

	// MaxResponseSize is the maximum allowed response body size for
	// non-streaming endpoints.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client with connection pooling for request/response calls.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests (no timeout,
	// context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		// No timeout for streaming - controlled via context
	}
)

// Error variables for common client errors.
var (
	// ErrInvalidEndpoint indicates the configured backend address cannot
	// be parsed into a usable HTTP URL.
	ErrInvalidEndpoint = errors.New("invalid backend endpoint")

	// ErrRateLimited indicates the client-side rate limit rejected a
	// request before it reached the network.
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents an error response from the backend.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// Client communicates with the document-chat backend. It covers the
// streaming chat endpoint, the call-and-wait chat endpoint, and the document
// upload and catalog endpoints.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	streaming  *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the pooled request/response HTTP client. Used by
// tests to point the client at a local server with custom transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streaming = hc
	}
}

// New creates a client for the backend at endpoint. The endpoint is
// validated eagerly; a malformed address fails here so that callers never
// hold a client that cannot possibly reach anything.
func New(endpoint string, requestsPerMinute int, log *zap.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	base, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	c := &Client{
		baseURL:    base,
		httpClient: sharedHTTPClient,
		streaming:  sharedStreamingClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerMinute)/60, requestsPerMinute),
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// parseEndpoint validates and normalizes the backend address.
func parseEndpoint(endpoint string) (*url.URL, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidEndpoint)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	return u, nil
}

// endpointURL joins a path onto the base URL.
func (c *Client) endpointURL(path string) string {
	return c.baseURL.String() + path
}

// Endpoint returns the normalized backend address.
func (c *Client) Endpoint() string {
	return c.baseURL.String()
}
