/*
Package transport implements the remote REST transport.

PURPOSE:
  HTTP client for the backend API. Implements generic.Transport with the
  standard verbs per entity plus arbitrary-path GETs for entity-specific
  endpoints (/products/rfid/{tag}, /reports/sales, ...).

PASS-THROUGH:
  Responses are decoded into generic.Record / []generic.Record and returned
  verbatim. Non-2xx responses become *generic.TransportError carrying the
  status and body unchanged - the adapter does not reinterpret them.

AUTHENTICATION:
  A bearer token provider is injected; when it yields a token, every
  request carries an Authorization header. Obtaining the token is the auth
  flow's concern, not this package's.

SEE ALSO:
  - generic/transport.go: The interface this implements
  - syncer/syncer.go:     Replays queued mutations through this client
*/
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/warp/erp-offline/generic"
)

// TokenProvider yields the current bearer token, or "" when unauthenticated.
type TokenProvider func() string

// Client talks to the remote API. Paths passed to its methods are relative
// to baseURL plus the API prefix, e.g. "/products".
type Client struct {
	baseURL string
	token   TokenProvider
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token provider.
func WithToken(tp TokenProvider) Option {
	return func(c *Client) { c.token = tp }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a transport client. baseURL includes the API prefix,
// e.g. "http://127.0.0.1:8002/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   func() string { return "" },
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context, path string) ([]generic.Record, error) {
	var out []generic.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []generic.Record{}
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, path, id string) (generic.Record, error) {
	var out generic.Record
	if err := c.do(ctx, http.MethodGet, path+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, path string, rec generic.Record) (generic.Record, error) {
	var out generic.Record
	if err := c.do(ctx, http.MethodPost, path, rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, path, id string, rec generic.Record) (generic.Record, error) {
	var out generic.Record
	if err := c.do(ctx, http.MethodPut, path+"/"+id, rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, path, id string) error {
	return c.do(ctx, http.MethodDelete, path+"/"+id, nil, nil)
}

func (c *Client) FetchOne(ctx context.Context, path string) (generic.Record, error) {
	var out generic.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Probe reports whether the remote API is reachable. Feeds the live
// connectivity signal; any HTTP response counts as reachable.
func (c *Client) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &generic.TransportError{StatusCode: 0, Path: path, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &generic.TransportError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
