// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"freeplaces-workers/internal/dispatch"
)

// maxErrorBody caps how much of a non-2xx body is kept on the StatusError.
const maxErrorBody = 4 << 10

// Client is the JSON transport used by the dispatch executor.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientWithHTTP wraps an existing *http.Client.
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// Do performs req and decodes the JSON answer. A non-2xx answer is returned
// as *dispatch.StatusError.
func (c *Client) Do(ctx context.Context, req dispatch.RequestDescriptor) (any, error) {
	httpReq, err := NewRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &dispatch.StatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

// NewRequest converts a descriptor into an *http.Request.
func NewRequest(ctx context.Context, req dispatch.RequestDescriptor) (*http.Request, error) {
	target, err := buildURL(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	return httpReq, nil
}

func buildURL(req dispatch.RequestDescriptor) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(req.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", req.BaseURL)
	}

	base.Path += "/" + strings.TrimPrefix(req.Path, "/")

	if len(req.Query) > 0 {
		params := url.Values{}
		for k, v := range req.Query {
			params.Set(k, queryValue(v))
		}
		base.RawQuery = params.Encode()
	}
	return base.String(), nil
}

func queryValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
