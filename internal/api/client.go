// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package api is the HTTP client for the external blog REST API. It sends
// JSON requests on behalf of a dashboard session, replays the session's API
// cookies, and transparently renews an expired access token through the
// refresh endpoint. Concurrent requests of one session that hit an expired
// token wait on a single in-flight refresh and are then replayed.
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

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds every API round trip.
	DefaultTimeout = 15 * time.Second

	// DefaultRefreshPath is the token refresh endpoint.
	DefaultRefreshPath = "/refresh-token"

	// expirySkew refreshes tokens slightly before they actually expire so
	// a request doesn't race the deadline in flight.
	expirySkew = 10 * time.Second

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 64 << 10
)

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RefreshPath   string
	AccessCookie  string
	RefreshCookie string
	Store         CredentialStore
	HTTPClient    *http.Client     // optional, built from Timeout when nil
	Now           func() time.Time // optional clock for tests
}

// Client talks to the blog API. It is safe for concurrent use.
type Client struct {
	baseURL       string
	timeout       time.Duration
	refreshPath   string
	accessCookie  string
	refreshCookie string
	store         CredentialStore
	http          *http.Client
	now           func() time.Time

	// refreshes collapses concurrent token refreshes per session ID.
	refreshes singleflight.Group
}

// New creates a Client from opts, filling in defaults.
func New(opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		timeout:       opts.Timeout,
		refreshPath:   opts.RefreshPath,
		accessCookie:  opts.AccessCookie,
		refreshCookie: opts.RefreshCookie,
		store:         opts.Store,
		http:          opts.HTTPClient,
		now:           opts.Now,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.refreshPath == "" {
		c.refreshPath = DefaultRefreshPath
	}
	if c.accessCookie == "" {
		c.accessCookie = DefaultAccessCookie
	}
	if c.refreshCookie == "" {
		c.refreshCookie = DefaultRefreshCookie
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded when non-nil
}

// Get fetches path into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends body to path and decodes the response into out (may be nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put sends body to path and decodes the response into out (may be nil).
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

// Do performs req as the session carried by ctx (see WithSession) and
// decodes a successful response into out. Without a session the request is
// sent anonymously and never refreshed.
//
// A 401 for a session triggers one token refresh, shared with any other
// request of the same session that is refreshing at that moment, and the
// request is replayed once with the renewed cookies. If the refresh fails
// or the replay is rejected again, ErrSessionExpired is returned.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return err
	}

	sessionID := SessionFromContext(ctx)
	var creds *Credentials
	if sessionID != "" && c.store != nil {
		creds, err = c.store.LoadCredentials(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}
		if creds != nil && c.accessExpired(creds) {
			creds, err = c.refresh(ctx, sessionID, creds)
			if err != nil {
				return err
			}
		}
	}

	resp, err := c.send(ctx, req, payload, creds)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && creds != nil {
		drain(resp)
		creds, err = c.refresh(ctx, sessionID, creds)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, req, payload, creds)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			return ErrSessionExpired
		}
	}
	defer resp.Body.Close()

	// Some endpoints rotate cookies on ordinary responses.
	if creds != nil {
		c.captureRotation(ctx, sessionID, creds, resp)
	}

	return decodeResponse(resp, out)
}

// Authenticate performs an anonymous request (typically login) and returns
// the cookies the API set on the response.
func (c *Client) Authenticate(ctx context.Context, req Request, out any) (*Credentials, error) {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req, payload, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := decodeResponse(resp, out); err != nil {
		return nil, err
	}

	creds := &Credentials{}
	creds.Merge(resp.Cookies())
	return creds, nil
}

// send builds and executes one HTTP request. The caller owns resp.Body.
func (c *Client) send(ctx context.Context, req Request, payload []byte, creds *Credentials) (*http.Response, error) {
	endpoint := c.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", req.Method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	creds.apply(httpReq)

	start := c.now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send %s %s: %w", req.Method, req.Path, err)
	}

	slog.Debug("api request",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", c.now().Sub(start).String(),
	)
	return resp, nil
}

// captureRotation persists cookies the API rotated on a normal response.
// Failures are logged; the current request already succeeded.
func (c *Client) captureRotation(ctx context.Context, sessionID string, creds *Credentials, resp *http.Response) {
	cookies := resp.Cookies()
	if len(cookies) == 0 || c.store == nil {
		return
	}
	updated := creds.Clone()
	if !updated.Merge(cookies) {
		return
	}
	if err := c.store.SaveCredentials(ctx, sessionID, updated); err != nil {
		slog.Warn("failed to save rotated api cookies", "error", err)
	}
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return payload, nil
}

// wholeBodyDecoder is implemented by outputs that decode the whole response
// rather than an unwrapped "data" envelope.
type wholeBodyDecoder interface {
	wholeBody()
}

// decodeResponse maps non-2xx responses to *APIError and decodes JSON
// bodies into out. Single-entity responses wrapped as {"data": {...}} are
// unwrapped.
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Status:  resp.StatusCode,
			Message: extractMessage(body),
			Body:    body,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if _, whole := out.(wholeBodyDecoder); !whole {
		body = unwrapData(body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// unwrapData returns the "data" member of an envelope object, or body
// unchanged when it is not an envelope.
func unwrapData(body []byte) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	data, ok := envelope["data"]
	if !ok {
		return body
	}
	if _, hasID := envelope["id"]; hasID {
		return body
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return body
	}
	return trimmed
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
