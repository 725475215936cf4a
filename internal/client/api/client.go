// Package api implements the HTTP gateways the storefront client talks
// to: user-owned collections (cart, wishlist), identity operations, and
// catalog reads. All calls are plain request/response JSON over HTTP
// with a bearer credential header when a session token is available.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable marks transport-level failures (connection refused,
// timeout, DNS). Callers use it to branch into fallback behavior.
var ErrUnavailable = errors.New("server unavailable")

// StatusError is returned for any non-2xx response. It carries the raw
// body so identity calls can recover a structured result from it.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// TokenSource supplies the bearer credential attached to outgoing
// requests. The session satisfies this; an empty token means no header.
type TokenSource interface {
	Token() string
}

// Client is the shared HTTP plumbing for all gateways.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

const maxErrorBody = 64 << 10

// do performs one JSON round trip. A nil out skips response decoding.
// Transport failures wrap ErrUnavailable; non-2xx statuses produce a
// *StatusError. It never panics and never treats an HTTP error status
// as anything but a regular return value.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: data}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
