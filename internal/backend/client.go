// Package backend is the typed client of the commission backend REST API. Every
// call carries the caller's bearer token; responses are decoded into tagged DTOs
// and validated before they reach the panel.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Observer receives one sample per backend round trip.
type Observer interface {
	ObserveBackend(method, endpoint string, status int, elapsed time.Duration)
}

// Client talks to the commission backend.
type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver installs a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New constructs a Client for baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	name   string
	method string
	path   string
	query  url.Values
	body   any
}

func get(name, path string, query url.Values) call {
	return call{name: name, method: http.MethodGet, path: path, query: query}
}

func send(name, method, path string, body any) call {
	return call{name: name, method: method, path: path, body: body}
}

// do executes the call and decodes a successful body into out when out is non-nil.
func (c *Client) do(ctx context.Context, token string, req call, out any) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", req.name, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s: %w", req.name, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req, 0, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s: %w", req.name, errors.Join(ErrConnection, err))
	}
	defer func() { _ = resp.Body.Close() }()
	c.observe(req, resp.StatusCode, start)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s: %w", req.name, errors.Join(ErrConnection, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		msg := eb.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", req.name, ErrInvalidPayload, err)
	}
	if isStruct(out) {
		if err := c.validate.Struct(out); err != nil {
			return fmt.Errorf("%s: %w: %v", req.name, ErrInvalidPayload, err)
		}
	}
	return nil
}

func (c *Client) observe(req call, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveBackend(req.method, req.name, status, time.Since(start))
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}

func optional(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}
