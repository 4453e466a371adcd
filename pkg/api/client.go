// Package api provides clients for the external collaborators of the
// console: the Template API, the Certificate API, the upload service and the
// font resource host. All durable decisions (numbering, rendering, revocation
// enforcement, storage) happen behind these endpoints; this package is a pure
// caller. Responses use the `{"data": ...}` envelope of the remote API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config carries the connection settings for the remote certificate API.
// Credentials are provided by a callback rather than a stored literal so
// tokens can rotate without rebuilding the client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:3001/api".
	BaseURL string
	// Credentials returns the current bearer token; nil or an empty result
	// sends unauthenticated requests.
	Credentials func() string
	// HTTPClient overrides the transport; nil uses a 30s-timeout default.
	HTTPClient *http.Client
}

// Client talks to the Template and Certificate APIs.
type Client struct {
	base   string
	creds  func() string
	http   *http.Client
	logger *slog.Logger
}

// New creates an API client from the given configuration.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		creds:  cfg.Credentials,
		http:   hc,
		logger: logger,
	}
}

// StatusError is a non-2xx response from the remote API, carrying the error
// envelope when one was returned.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("api: HTTP %d", e.StatusCode)
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// do performs a JSON request against the API base. body and out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// doBinary fetches a binary artifact (PDF or image bytes).
func (c *Client) doBinary(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// FetchImage retrieves arbitrary image bytes (background previews). The URL
// may point outside the API host, e.g. at object storage, so no credentials
// are attached.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: "image fetch failed"}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) authorize(req *http.Request) {
	if c.creds == nil {
		return
	}
	if token := c.creds(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) statusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil {
		se.Code = env.Code
		se.Message = env.Error
	}
	return se
}
