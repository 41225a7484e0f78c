// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// render.go provides a Valkey-backed cache of goldmark-rendered content
// bodies. Entries are keyed by (content id, version); snapshots are
// immutable, so a cached rendering never needs invalidation and simply
// ages out on TTL.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// renderKeyPrefix namespaces rendered-body keys in Valkey.
	renderKeyPrefix = "render:"

	// DefaultRenderTTL is how long a rendered body stays cached.
	DefaultRenderTTL = time.Hour
)

// RenderCache stores rendered content HTML in Valkey.
type RenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRenderCache creates a render cache backed by the given Valkey client.
func NewRenderCache(client *redis.Client, ttl time.Duration) *RenderCache {
	if ttl == 0 {
		ttl = DefaultRenderTTL
	}
	return &RenderCache{client: client, ttl: ttl}
}

// renderKey builds the Valkey key for one immutable snapshot rendering.
func renderKey(contentID uuid.UUID, version int) string {
	return fmt.Sprintf("%s%s:%d", renderKeyPrefix, contentID, version)
}

// Get retrieves the cached HTML for a snapshot. Returns false on miss.
func (rc *RenderCache) Get(ctx context.Context, contentID uuid.UUID, version int) (string, bool) {
	val, err := rc.client.Get(ctx, renderKey(contentID, version)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Warn("render cache get error", "content_id", contentID, "error", err)
		return "", false
	}
	slog.Debug("render cache hit", "content_id", contentID, "version", version)
	return val, true
}

// Set stores rendered HTML for a snapshot with the configured TTL.
func (rc *RenderCache) Set(ctx context.Context, contentID uuid.UUID, version int, html string) {
	if err := rc.client.Set(ctx, renderKey(contentID, version), html, rc.ttl).Err(); err != nil {
		slog.Warn("render cache set error", "content_id", contentID, "error", err)
	}
}
