// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package scheduler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// lockKey namespaces the tick lock in Valkey.
const lockKey = "scheduler:tick"

// releaseScript deletes the lock only if this instance still holds it,
// so a slow tick cannot release a lock the TTL already handed to another
// replica.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TickLock is a best-effort cross-replica lock over Valkey. Losing the
// lock race means skipping the tick; losing the lock mid-tick is
// harmless because duplicate scheduler attempts no-op on the workflow
// engine's transition guard.
type TickLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTickLock creates a tick lock with the given TTL. The TTL should
// comfortably exceed a worst-case tick duration.
func NewTickLock(client *redis.Client, ttl time.Duration) *TickLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &TickLock{client: client, ttl: ttl}
}

// TryAcquire attempts to take the tick lock. On success it returns true
// and a release function; on a lost race it returns false.
func (l *TickLock) TryAcquire(ctx context.Context) (bool, func(), error) {
	token, err := randomToken()
	if err != nil {
		return false, nil, fmt.Errorf("lock token: %w", err)
	}

	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("lock setnx: %w", err)
	}
	if !ok {
		return false, nil, nil
	}

	release := func() {
		if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
			slog.Warn("scheduler lock release failed", "error", err)
		}
	}
	return true, release, nil
}

// randomToken creates the fencing token stored under the lock key.
func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
