// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"net/http"
	"sort"
)

// Default cookie names the blog API uses for its tokens.
const (
	DefaultAccessCookie  = "accessToken"
	DefaultRefreshCookie = "refreshToken"
)

// Credentials are the API cookies held on behalf of one dashboard session.
// The browser never sees them; they live in the session store.
type Credentials struct {
	Cookies map[string]string `json:"cookies"`
}

// Get returns the value of the named cookie or "".
func (c *Credentials) Get(name string) string {
	if c == nil {
		return ""
	}
	return c.Cookies[name]
}

// Clone returns a deep copy so a refresh never mutates credentials another
// goroutine is still sending with.
func (c *Credentials) Clone() *Credentials {
	out := &Credentials{Cookies: make(map[string]string)}
	if c == nil {
		return out
	}
	for k, v := range c.Cookies {
		out.Cookies[k] = v
	}
	return out
}

// Merge applies Set-Cookie headers from an API response. Cookies the API
// expires or blanks are removed. Reports whether anything changed.
func (c *Credentials) Merge(cookies []*http.Cookie) bool {
	if c.Cookies == nil {
		c.Cookies = make(map[string]string)
	}
	changed := false
	for _, ck := range cookies {
		if ck.MaxAge < 0 || ck.Value == "" {
			if _, ok := c.Cookies[ck.Name]; ok {
				delete(c.Cookies, ck.Name)
				changed = true
			}
			continue
		}
		if c.Cookies[ck.Name] != ck.Value {
			c.Cookies[ck.Name] = ck.Value
			changed = true
		}
	}
	return changed
}

// apply attaches the cookies to an outgoing request in a stable order.
func (c *Credentials) apply(req *http.Request) {
	if c == nil {
		return
	}
	names := make([]string, 0, len(c.Cookies))
	for name := range c.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: c.Cookies[name]})
	}
}

// CredentialStore persists credentials per dashboard session. Load returns
// (nil, nil) when the session has none.
type CredentialStore interface {
	LoadCredentials(ctx context.Context, sessionID string) (*Credentials, error)
	SaveCredentials(ctx context.Context, sessionID string, creds *Credentials) error
}

type sessionKey struct{}

// WithSession returns a context whose API calls authenticate as the given
// dashboard session.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFromContext returns the session ID set by WithSession, or "".
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
