// Package api is the single gateway to the POS REST backend. It owns URL and
// query-string construction, JSON and multipart encoding, and the error
// taxonomy: transport failure, non-2xx with a JSON error body, non-2xx
// without one, and undecodable success bodies all come back as distinct,
// matchable errors. Services decide what to do with a failure (notify the
// operator, re-fetch the sale); the client never swallows one.
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
	"strings"
	"time"

	"github.com/rs/zerolog"

	"posterm/internal/logger"
)

// Client talks to the POS backend. All methods are safe for use from the
// goroutines the debouncer and scheduler spawn.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// Config holds client settings.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:5000/api".
	BaseURL string

	// Timeout bounds a single request. Default: 15 seconds.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:5000/api",
		Timeout: 15 * time.Second,
	}
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logger.WithComponent("api"),
	}
}

// BaseURL returns the configured API root. The printer service uses it to
// derive sibling document routes that live outside the /api prefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Query is an ordered-insensitive set of query parameters. Empty values are
// dropped, matching the original front end which never sent blank filters.
type Query map[string]string

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, endpoint string, query Query, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, out)
}

// Post issues a POST with a JSON body and decodes the response into out.
// A nil body is sent as an empty JSON object, which some backend routes
// require to satisfy their content-type check.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, nil, body, out)
}

// Put issues a PUT with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPut, endpoint, nil, body, out)
}

// Delete issues a DELETE. When the backend answers 204 No Content the call
// succeeds with out untouched and ErrNoContent returned, so the caller knows
// to re-fetch whatever the deletion changed.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, out)
}

// FormField is one text field of a multipart request.
type FormField struct {
	Name  string
	Value string
}

// FormFile is one file part of a multipart request.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// PostForm issues a multipart/form-data request (POST or PUT). The backend's
// item and combination routes accept their fields plus photo uploads this
// way.
func (c *Client) PostForm(ctx context.Context, method, endpoint string, fields []FormField, files []FormFile, out any) error {
	op := fmt.Sprintf("%s %s", method, endpoint)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return &CallError{Op: op, Err: err}
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return &CallError{Op: op, Err: err}
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return &CallError{Op: op, Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return &CallError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, &buf)
	if err != nil {
		return &CallError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, op, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, query Query, body, out any) error {
	op := fmt.Sprintf("%s %s", method, endpoint)

	u := c.baseURL + endpoint
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			if v != "" {
				params.Set(k, v)
			}
		}
		if encoded := params.Encode(); encoded != "" {
			u += "?" + encoded
		}
	}

	var reader io.Reader
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		if body == nil {
			body = struct{}{}
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			return &CallError{Op: op, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &CallError{Op: op, Err: err}
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, op, out)
}

func (c *Client) send(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("request failed")
		return &CallError{Op: op, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Op: op, StatusCode: resp.StatusCode, Message: decodeErrorBody(resp.Body)}
		c.log.Warn().Int("status", resp.StatusCode).Str("op", op).Str("message", statusErr.Message).Msg("backend rejected request")
		return statusErr
	}

	if resp.StatusCode == http.StatusNoContent {
		return ErrNoContent
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &CallError{Op: op, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}
	return nil
}

// decodeErrorBody pulls the backend's error text out of a failure response.
// The backend is inconsistent about the field name, so both are tried; an
// unparseable body yields an empty message.
func decodeErrorBody(r io.Reader) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
