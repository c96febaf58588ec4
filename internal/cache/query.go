// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// query.go provides a Valkey-backed cache of blog API responses.
// Reads of lists and single records are cached per signed-in user, so a
// page reload skips the API round trip; any mutation of a resource drops
// the cached responses of that resource for every user.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// queryKeyPrefix is the Valkey key prefix for cached API responses.
	queryKeyPrefix = "query:"

	// DefaultQueryTTL is how long an API response stays cached.
	DefaultQueryTTL = time.Minute
)

// QueryCache caches decoded API responses in Valkey. A nil *QueryCache is
// valid and never hits.
type QueryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQueryCache creates a query cache backed by the given Valkey client.
func NewQueryCache(client *redis.Client, ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultQueryTTL
	}
	return &QueryCache{client: client, ttl: ttl}
}

// QueryKey returns the cache key for a user's request of path (including
// its query string).
func QueryKey(userID, path string) string {
	return queryKeyPrefix + userID + ":" + path
}

// Get decodes the cached response for (userID, path) into out. Reports
// false on a miss; errors are logged and treated as misses.
func (qc *QueryCache) Get(ctx context.Context, userID, path string, out any) bool {
	if qc == nil || userID == "" {
		return false
	}
	key := QueryKey(userID, path)
	val, err := qc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("query cache get error", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		slog.Warn("query cache decode error", "key", key, "error", err)
		return false
	}
	slog.Debug("query cache hit", "key", key)
	return true
}

// Set stores v for (userID, path) with the configured TTL.
func (qc *QueryCache) Set(ctx context.Context, userID, path string, v any) {
	if qc == nil || userID == "" {
		return
	}
	key := QueryKey(userID, path)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Warn("query cache encode error", "key", key, "error", err)
		return
	}
	if err := qc.client.Set(ctx, key, payload, qc.ttl).Err(); err != nil {
		slog.Warn("query cache set error", "key", key, "error", err)
	}
}

// Invalidate removes every cached response whose path starts with
// resource (e.g. "/blog"), for all users.
func (qc *QueryCache) Invalidate(ctx context.Context, resource string) {
	if qc == nil {
		return
	}
	pattern := queryKeyPrefix + "*:" + escapeGlob(resource) + "*"

	var cursor uint64
	var deleted int
	for {
		keys, next, err := qc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("query cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := qc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("query cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Debug("query cache invalidated", "resource", resource, "deleted", deleted)
	}
}

// InvalidateUser drops every cached response of one user (sign-out, role
// change).
func (qc *QueryCache) InvalidateUser(ctx context.Context, userID string) {
	if qc == nil || userID == "" {
		return
	}
	var cursor uint64
	for {
		keys, next, err := qc.client.Scan(ctx, cursor, queryKeyPrefix+escapeGlob(userID)+":*", 100).Result()
		if err != nil {
			slog.Warn("query cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := qc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("query cache bulk delete error", "user", userID, "error", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

type userKey struct{}

// WithUser scopes cache reads and writes made with ctx to userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the user set by WithUser, or "".
func UserFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes SCAN MATCH metacharacters.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
