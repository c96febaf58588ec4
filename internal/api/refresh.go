// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// refresh renews the session's tokens. All callers of one session that
// arrive while a refresh is running share its result. stale is the
// credential set the caller was rejected with; when the stored credentials
// have already moved past it, they are returned without another refresh.
func (c *Client) refresh(ctx context.Context, sessionID string, stale *Credentials) (*Credentials, error) {
	if c.store == nil {
		return nil, ErrSessionExpired
	}

	ch := c.refreshes.DoChan(sessionID, func() (any, error) {
		// Detach from the first caller: its cancellation must not fail the
		// other waiters.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		current, err := c.store.LoadCredentials(rctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load credentials: %w", err)
		}
		if current == nil || current.Get(c.refreshCookie) == "" {
			return nil, ErrSessionExpired
		}
		if current.Get(c.accessCookie) != stale.Get(c.accessCookie) && !c.accessExpired(current) {
			slog.Debug("api token already refreshed", "session", shortID(sessionID))
			return current, nil
		}

		fresh, err := c.callRefresh(rctx, current)
		if err != nil {
			return nil, err
		}
		if err := c.store.SaveCredentials(rctx, sessionID, fresh); err != nil {
			return nil, fmt.Errorf("save credentials: %w", err)
		}
		slog.Info("api token refreshed", "session", shortID(sessionID))
		return fresh, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("api token refresh shared", "session", shortID(sessionID))
		}
		return res.Val.(*Credentials), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callRefresh posts to the refresh endpoint with the current cookies and
// returns a copy updated with the cookies the API set.
func (c *Client) callRefresh(ctx context.Context, current *Credentials) (*Credentials, error) {
	resp, err := c.send(ctx, Request{Method: http.MethodPost, Path: c.refreshPath}, nil, current)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := decodeResponse(resp, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			slog.Info("api token refresh rejected", "status", apiErr.Status)
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return nil, err
	}

	fresh := current.Clone()
	fresh.Merge(resp.Cookies())
	return fresh, nil
}

// accessExpired reports whether the access token is a JWT whose expiry has
// passed (or is about to). Opaque tokens are never considered expired here;
// the API's 401 decides for them.
func (c *Client) accessExpired(creds *Credentials) bool {
	token := creds.Get(c.accessCookie)
	if token == "" {
		return false
	}
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return !c.now().Add(expirySkew).Before(claims.ExpiresAt)
}

// shortID keeps session IDs out of logs beyond a short prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
