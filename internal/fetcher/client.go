// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fluffyriot/bookshare/internal/stats"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// CredentialSource decorates outgoing requests with the signed-in user's
// token headers.
type CredentialSource interface {
	ApplyHeaders(h http.Header)
}

type Client struct {
	httpClient http.Client
	baseURL    string
	creds      CredentialSource
}

func NewClient(baseURL string, timeout time.Duration, creds CredentialSource) *Client {
	return &Client{
		httpClient: http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) (http.Header, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) (http.Header, error) {

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.creds != nil {
		c.creds.ApplyHeaders(req.Header)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		stats.APIRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		stats.APIRequests.WithLabelValues(op, "failed").Inc()
		return resp.Header, &StatusError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	stats.APIRequests.WithLabelValues(op, "ok").Inc()

	if out == nil {
		return resp.Header, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, fmt.Errorf("%s: read response: %w", op, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return resp.Header, fmt.Errorf("%s: decode response: %w", op, err)
	}

	return resp.Header, nil
}
